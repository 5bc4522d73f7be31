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

package marknote

import (
	"strings"
	"unicode"
)

// maxLinkLabelLength is the maximum number of characters in a [link label].
//
// [link label]: https://spec.commonmark.org/0.30/#link-label
const maxLinkLabelLength = 999

// ParseLinkLabel finds the closing bracket of the link label
// whose opening bracket is at start.
// Brackets that are part of other inline constructs
// (as determined by [*InlineParser.SkipToken]) are not counted.
// If disableNested is true, a nested link causes the search to fail.
// ParseLinkLabel returns the offset of the closing bracket or -1.
// state.Pos is unchanged when ParseLinkLabel returns.
func ParseLinkLabel(state *InlineState, start int, disableNested bool) int {
	oldPos := state.Pos
	max := state.PosMax
	state.Pos = start + 1
	level := 1
	found := false
	for state.Pos < max {
		marker := state.Src[state.Pos]
		if marker == ']' {
			level--
			if level == 0 {
				found = true
				break
			}
		}
		prevPos := state.Pos
		state.Parser.Inline.SkipToken(state)
		if marker == '[' {
			if prevPos == state.Pos-1 {
				// Literal bracket that is not part of another construct.
				level++
			} else if disableNested {
				state.Pos = oldPos
				return -1
			}
		}
	}
	labelEnd := -1
	if found {
		labelEnd = state.Pos
	}
	state.Pos = oldPos
	return labelEnd
}

// ParseLinkDestination parses a [link destination] in s
// starting at pos and ending before max.
// It returns the unescaped destination and the offset just past it.
//
// [link destination]: https://spec.commonmark.org/0.30/#link-destination
func ParseLinkDestination(s string, pos, max int) (dest string, end int, ok bool) {
	start := pos
	if pos < max && s[pos] == '<' {
		pos++
		for pos < max {
			switch s[pos] {
			case '\n', '<':
				return "", start, false
			case '>':
				return unescapeAll(s[start+1 : pos]), pos + 1, true
			case '\\':
				if pos+1 < max {
					pos += 2
					continue
				}
			}
			pos++
		}
		return "", start, false
	}

	level := 0
scan:
	for pos < max {
		c := s[pos]
		switch {
		case c == ' ':
			break scan
		case c < 0x20 || c == 0x7f:
			break scan
		case c == '\\' && pos+1 < max:
			if s[pos+1] == ' ' {
				break scan
			}
			pos += 2
			continue
		case c == '(':
			level++
			if level > 32 {
				return "", start, false
			}
		case c == ')':
			if level == 0 {
				break scan
			}
			level--
		}
		pos++
	}
	if start == pos || level != 0 {
		return "", start, false
	}
	return unescapeAll(s[start:pos]), pos, true
}

// ParseLinkTitle parses a [link title] in s
// starting at pos and ending before max.
// It returns the unescaped title and the offset just past it.
//
// [link title]: https://spec.commonmark.org/0.30/#link-title
func ParseLinkTitle(s string, pos, max int) (title string, end int, ok bool) {
	if pos >= max {
		return "", pos, false
	}
	marker := s[pos]
	switch marker {
	case '"', '\'':
	case '(':
		marker = ')'
	default:
		return "", pos, false
	}
	start := pos + 1
	for pos = start; pos < max; pos++ {
		c := s[pos]
		switch {
		case c == marker:
			return unescapeAll(s[start:pos]), pos + 1, true
		case c == '(' && marker == ')':
			return "", start - 1, false
		case c == '\\' && pos+1 < max:
			pos++
		}
	}
	return "", start - 1, false
}

// unescapeAll removes backslashes before ASCII punctuation.
func unescapeAll(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	sb := new(strings.Builder)
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isASCIIPunctuation(s[i+1]) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

var badProtocols = []string{"javascript:", "vbscript:", "file:", "data:"}

// validateLink reports whether a link destination is safe to emit.
// data: URLs are only permitted for common raster image types.
func validateLink(dest string) bool {
	lower := strings.ToLower(strings.TrimSpace(dest))
	for _, proto := range badProtocols {
		if strings.HasPrefix(lower, proto) {
			return proto == "data:" &&
				(strings.HasPrefix(lower, "data:image/gif;") ||
					strings.HasPrefix(lower, "data:image/png;") ||
					strings.HasPrefix(lower, "data:image/jpeg;") ||
					strings.HasPrefix(lower, "data:image/webp;"))
		}
	}
	return true
}

func isSpaceOrTab(c byte) bool {
	return c == ' ' || c == '\t'
}

func isASCIIPunctuation(c byte) bool {
	return '!' <= c && c <= '/' ||
		':' <= c && c <= '@' ||
		'[' <= c && c <= '`' ||
		'{' <= c && c <= '~'
}

func isASCIILetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isUnicodeWhitespace reports whether c is a [Unicode whitespace character].
//
// [Unicode whitespace character]: https://spec.commonmark.org/0.30/#unicode-whitespace-character
func isUnicodeWhitespace(c rune) bool {
	return unicode.Is(unicode.Zs, c) || c == '\t' || c == '\n' || c == '\f' || c == '\r'
}

// isUnicodePunctuation reports whether c is a [Unicode punctuation character].
//
// [Unicode punctuation character]: https://spec.commonmark.org/0.30/#unicode-punctuation-character
func isUnicodePunctuation(c rune) bool {
	if c < 0x80 {
		return isASCIIPunctuation(byte(c))
	}
	return unicode.In(c, unicode.Pc, unicode.Pd, unicode.Pe, unicode.Pf, unicode.Pi, unicode.Po, unicode.Ps)
}
