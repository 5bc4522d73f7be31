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

	"golang.org/x/text/cases"
)

// LinkDefinition is the data of a [link reference definition].
//
// [link reference definition]: https://spec.commonmark.org/0.30/#link-reference-definition
type LinkDefinition struct {
	Destination  string
	Title        string
	TitlePresent bool
}

// ReferenceMap is a mapping of [normalized labels] to link definitions.
//
// [normalized labels]: https://spec.commonmark.org/0.30/#matches
type ReferenceMap map[string]LinkDefinition

// MatchReference reports whether the normalized label appears in the map.
func (m ReferenceMap) MatchReference(normalizedLabel string) bool {
	_, ok := m[normalizedLabel]
	return ok
}

// NormalizeReference returns the normalized form of a link label:
// leading and trailing whitespace stripped,
// internal whitespace collapsed to a single space,
// and Unicode case folded.
func NormalizeReference(label string) string {
	return cases.Fold().String(strings.Join(strings.Fields(label), " "))
}

// parseLinkReferenceDefinition parses a link reference definition
// from the beginning of text.
// It returns the number of bytes consumed (including the trailing line ending)
// or -1 if text does not start with a definition.
func parseLinkReferenceDefinition(text string) (label string, def LinkDefinition, n int) {
	if len(text) == 0 || text[0] != '[' {
		return "", LinkDefinition{}, -1
	}
	labelEnd := -1
scanLabel:
	for i := 1; i < len(text) && i <= maxLinkLabelLength+1; i++ {
		switch text[i] {
		case '[':
			return "", LinkDefinition{}, -1
		case ']':
			labelEnd = i
			break scanLabel
		case '\\':
			i++
		}
	}
	if labelEnd < 0 || labelEnd+1 >= len(text) || text[labelEnd+1] != ':' {
		return "", LinkDefinition{}, -1
	}
	label = text[1:labelEnd]
	if strings.TrimSpace(label) == "" {
		return "", LinkDefinition{}, -1
	}

	pos := skipWhitespace(text, labelEnd+2)
	dest, pos, ok := ParseLinkDestination(text, pos, len(text))
	if !ok {
		return "", LinkDefinition{}, -1
	}
	def.Destination = dest
	destEnd := pos

	// Optional title, which must be separated from the destination by whitespace
	// and be followed only by whitespace on its line.
	titleStart := skipWhitespace(text, pos)
	if titleStart > destEnd {
		if title, titleEnd, ok := ParseLinkTitle(text, titleStart, len(text)); ok {
			if end := endOfBlankLine(text, titleEnd); end >= 0 {
				def.Title = title
				def.TitlePresent = true
				return label, def, end
			}
		}
	}
	end := endOfBlankLine(text, destEnd)
	if end < 0 {
		return "", LinkDefinition{}, -1
	}
	return label, def, end
}

// skipWhitespace skips spaces, tabs, and line endings.
func skipWhitespace(s string, pos int) int {
	for pos < len(s) && (isSpaceOrTab(s[pos]) || s[pos] == '\n') {
		pos++
	}
	return pos
}

// endOfBlankLine returns the offset just past the end of the line
// containing pos if the rest of the line is blank,
// or -1 otherwise.
func endOfBlankLine(s string, pos int) int {
	for pos < len(s) && isSpaceOrTab(s[pos]) {
		pos++
	}
	switch {
	case pos == len(s):
		return pos
	case s[pos] == '\n':
		return pos + 1
	default:
		return -1
	}
}
