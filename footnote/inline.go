// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package footnote

import "zombiezen.com/go/marknote"

// inlineFootnoteRule recognizes an inline footnote like "^[text]".
func inlineFootnoteRule(state *marknote.InlineState, silent bool) bool {
	max := state.PosMax
	start := state.Pos
	// Shortest inline footnote is "^[x]".
	if start+3 >= max {
		return false
	}
	if state.Src[start] != '^' || state.Src[start+1] != '[' {
		return false
	}
	contentStart := start + 2
	contentEnd := matchBracket(state, start+1, false)
	if contentEnd < 0 {
		return false
	}

	if !silent {
		reg := ensureRegistry(state.Env)
		id := reg.reserveInline()
		content := state.Src[contentStart:contentEnd]
		reg.fillInline(id, content, state.Parser.Inline.Parse(content, state.Parser, state.Env))
		tok := state.Push(TypeRef, "", marknote.SelfClosing)
		tok.Meta = &Meta{ID: id}
	}
	state.Pos = contentEnd + 1
	state.PosMax = max
	return true
}

// referenceRule recognizes a reference to a defined footnote like "[^label]".
func referenceRule(state *marknote.InlineState, silent bool) bool {
	max := state.PosMax
	start := state.Pos
	// Shortest reference is "[^x]".
	if start+3 >= max {
		return false
	}
	reg := registryFrom(state.Env)
	if reg == nil || len(reg.refs) == 0 {
		return false
	}
	if state.Src[start] != '[' || state.Src[start+1] != '^' {
		return false
	}

	pos := start + 2
scan:
	for ; pos < max; pos++ {
		switch state.Src[pos] {
		case ' ', '\n':
			return false
		case ']':
			break scan
		}
	}
	if pos == start+2 || pos >= max {
		return false
	}
	label := state.Src[start+2 : pos]
	if !reg.isDefined(label) {
		return false
	}

	if !silent {
		id, subID := reg.use(label)
		tok := state.Push(TypeRef, "", marknote.SelfClosing)
		tok.Meta = &Meta{ID: id, SubID: subID, Label: label}
	}
	state.Pos = pos + 1
	state.PosMax = max
	return true
}
