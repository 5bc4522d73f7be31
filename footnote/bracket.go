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

// matchBracket returns the offset of the ']' that balances the '[' at start,
// or -1 if there is none before state.PosMax.
// Brackets inside other inline constructs (like links and code spans)
// are skipped over with [*marknote.InlineParser.SkipToken].
// If disableNested is true, a '[' that begins another construct
// (such as a nested link) causes the match to fail.
// state.Pos is the same when matchBracket returns as when it was called.
func matchBracket(state *marknote.InlineState, start int, disableNested bool) int {
	oldPos := state.Pos
	defer func() { state.Pos = oldPos }()

	state.Pos = start + 1
	level := 1
	for state.Pos < state.PosMax {
		c := state.Src[state.Pos]
		if c == ']' {
			level--
			if level == 0 {
				return state.Pos
			}
		}
		prevPos := state.Pos
		state.Parser.Inline.SkipToken(state)
		if c == '[' {
			if state.Pos == prevPos+1 {
				level++
			} else if disableNested {
				return -1
			}
		}
	}
	return -1
}
