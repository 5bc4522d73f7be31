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

// definitionIndent is the number of columns that the body of a definition
// is indented relative to its container.
const definitionIndent = 4

// parseDefinitionLabel parses the "[^label]:" prefix of a footnote definition
// from the beginning of line.
// end is the offset just past the colon.
func parseDefinitionLabel(line string) (label string, end int, ok bool) {
	// Shortest definition is "[^x]:".
	if len(line) < 5 || line[0] != '[' || line[1] != '^' {
		return "", 0, false
	}
	for i := 2; i < len(line); i++ {
		switch line[i] {
		case ' ':
			return "", 0, false
		case ']':
			if i == 2 || i+1 >= len(line) || line[i+1] != ':' {
				return "", 0, false
			}
			return line[2:i], i + 2, true
		}
	}
	return "", 0, false
}

// definitionRule recognizes a footnote definition
// and parses its body as blocks indented by definitionIndent columns.
// The body is bracketed by reference open and close tokens
// so that the tail pass can move it to the end of the document.
func definitionRule(state *marknote.BlockState, startLine, endLine int, silent bool) bool {
	start := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	label, n, ok := parseDefinitionLabel(state.Src[start:max])
	if !ok {
		return false
	}
	if silent {
		return true
	}

	reg := ensureRegistry(state.Env)
	reg.define(label)
	oldLine, oldLevel, oldLen := state.Line, state.Level, len(state.Tokens)
	closed := false
	defer func() {
		if !closed {
			state.Line = oldLine
			state.Level = oldLevel
			clear(state.Tokens[oldLen:])
			state.Tokens = state.Tokens[:oldLen]
		}
	}()
	open := state.Push(TypeReferenceOpen, "", marknote.Opening)
	open.Meta = &Meta{Label: label}
	open.Map = []int{startLine, 0}
	bodyStart := len(state.Tokens)

	tokenizeDefinitionBody(state, startLine, endLine, start+n)

	if text, ok := lastInlineContent(state.Tokens[bodyStart:]); ok {
		reg.texts[label] = state.Parser.RenderInline(text, &marknote.Env{DocID: state.Env.DocID})
	}
	open.Map[1] = state.Line
	closeTok := state.Push(TypeReferenceClose, "", marknote.Closing)
	closeTok.Meta = &Meta{Label: label}
	closed = true
	return true
}

// tokenizeDefinitionBody runs the block rules over the definition body
// that begins at posAfterColon on startLine.
// The line table entry for startLine and the container fields of state
// are restored before it returns.
func tokenizeDefinitionBody(state *marknote.BlockState, startLine, endLine, posAfterColon int) {
	snap := state.Snapshot(startLine)
	defer state.Restore(snap)

	max := state.EMarks[startLine]
	initial := state.SCount[startLine] + posAfterColon - (state.BMarks[startLine] + state.TShift[startLine])
	offset := initial
	pos := posAfterColon
	for ; pos < max; pos++ {
		switch state.Src[pos] {
		case '\t':
			offset += 4 - offset%4
			continue
		case ' ':
			offset++
			continue
		}
		break
	}

	state.TShift[startLine] = pos - posAfterColon
	state.SCount[startLine] = offset - initial
	state.BMarks[startLine] = posAfterColon
	state.BlkIndent += definitionIndent
	state.ParentType = "footnote"
	if state.SCount[startLine] < state.BlkIndent {
		state.SCount[startLine] += state.BlkIndent
	}

	state.Parser.Block.Tokenize(state, startLine, endLine)
}

// lastInlineContent returns the source of the last inline token in tokens.
func lastInlineContent(tokens []*marknote.Token) (string, bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type == "inline" {
			return tokens[i].Content, true
		}
	}
	return "", false
}
