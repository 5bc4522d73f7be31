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
	"strconv"
	"strings"
)

// tabStopSize is the multiple of columns that a [tab] advances to.
//
// [tab]: https://spec.commonmark.org/0.30/#tabs
const tabStopSize = 4

// codeBlockIndentLimit is the column width of an indent
// required to start an indented code block.
const codeBlockIndentLimit = 4

// A BlockRule attempts to recognize a block construct
// starting at startLine.
// If silent is true, the rule must only report whether it would match
// and must not modify the state.
// Otherwise, a matching rule appends tokens
// and advances state.Line past the lines it consumed.
type BlockRule func(state *BlockState, startLine, endLine int, silent bool) bool

// BlockParser splits a document into block tokens.
type BlockParser struct {
	Ruler Ruler[BlockRule]
}

func newBlockParser() *BlockParser {
	bp := new(BlockParser)
	bp.Ruler.Push("code", codeBlockRule)
	bp.Ruler.Push("fence", fenceRule, "paragraph", "reference", "blockquote")
	bp.Ruler.Push("blockquote", blockQuoteRule, "paragraph", "reference", "blockquote")
	bp.Ruler.Push("hr", thematicBreakRule, "paragraph", "reference", "blockquote")
	bp.Ruler.Push("reference", referenceRule)
	bp.Ruler.Push("heading", atxHeadingRule, "paragraph", "reference", "blockquote")
	bp.Ruler.Push("paragraph", paragraphRule)
	return bp
}

// BlockState is the cursor shared by the block rules
// while a document is split into blocks.
//
// Each line has an entry in the line tables.
// Rules for container blocks (like block quotes)
// temporarily rewrite the entries for the lines they contain
// and must restore them before returning.
type BlockState struct {
	Src    string
	Parser *Parser
	Env    *Env
	Tokens []*Token

	BMarks  []int // offset of the beginning of each line
	EMarks  []int // offset of the end of each line (excluding the line ending)
	TShift  []int // number of indentation bytes on each line
	SCount  []int // indentation width of each line in columns
	BSCount []int // column offset that a tab on the line is relative to

	// BlkIndent is the required indentation of the current container.
	BlkIndent int

	Line    int // line being processed
	LineMax int // number of lines

	Tight      bool
	ParentType string
	Level      int
}

// NewBlockState splits src into lines and returns a state
// positioned at the first line.
func NewBlockState(src string, p *Parser, env *Env) *BlockState {
	s := &BlockState{
		Src:        src,
		Parser:     p,
		Env:        env,
		Tight:      true,
		ParentType: "root",
	}
	indentFound := false
	start, indent, offset := 0, 0, 0
	for pos := 0; pos < len(src); pos++ {
		c := src[pos]
		if !indentFound {
			if isSpaceOrTab(c) {
				indent++
				if c == '\t' {
					offset += tabStopSize - offset%tabStopSize
				} else {
					offset++
				}
				continue
			}
			indentFound = true
		}
		if c == '\n' || pos == len(src)-1 {
			if c != '\n' {
				pos++
			}
			s.appendLine(start, pos, indent, offset)
			indentFound = false
			indent = 0
			offset = 0
			start = pos + 1
		}
	}
	// Sentinel line to simplify lookahead.
	s.appendLine(len(src), len(src), 0, 0)
	s.LineMax = len(s.BMarks) - 1
	return s
}

func (s *BlockState) appendLine(start, end, indent, offset int) {
	s.BMarks = append(s.BMarks, start)
	s.EMarks = append(s.EMarks, end)
	s.TShift = append(s.TShift, indent)
	s.SCount = append(s.SCount, offset)
	s.BSCount = append(s.BSCount, 0)
}

// Push appends a new block token to the stream
// and adjusts the nesting level.
func (s *BlockState) Push(typ, tag string, nesting Nesting) *Token {
	tok := NewToken(typ, tag, nesting)
	tok.Block = true
	if nesting < 0 {
		s.Level--
	}
	tok.Level = s.Level
	if nesting > 0 {
		s.Level++
	}
	s.Tokens = append(s.Tokens, tok)
	return tok
}

// IsEmpty reports whether the line has no content after its indentation.
func (s *BlockState) IsEmpty(line int) bool {
	return s.BMarks[line]+s.TShift[line] >= s.EMarks[line]
}

// SkipEmptyLines returns the first non-empty line at or after from.
func (s *BlockState) SkipEmptyLines(from int) int {
	for ; from < s.LineMax; from++ {
		if !s.IsEmpty(from) {
			break
		}
	}
	return from
}

// SkipSpaces returns the offset of the first non-space, non-tab byte
// at or after pos.
func (s *BlockState) SkipSpaces(pos int) int {
	for pos < len(s.Src) && isSpaceOrTab(s.Src[pos]) {
		pos++
	}
	return pos
}

// SkipSpacesBack returns the offset just after the last non-space byte
// before pos, stopping at min.
func (s *BlockState) SkipSpacesBack(pos, min int) int {
	for pos > min && isSpaceOrTab(s.Src[pos-1]) {
		pos--
	}
	return pos
}

// SkipChars returns the offset of the first byte at or after pos
// that is not c.
func (s *BlockState) SkipChars(pos int, c byte) int {
	for pos < len(s.Src) && s.Src[pos] == c {
		pos++
	}
	return pos
}

// SkipCharsBack returns the offset just after the last byte
// before pos that is not c, stopping at min.
func (s *BlockState) SkipCharsBack(pos int, c byte, min int) int {
	for pos > min && s.Src[pos-1] == c {
		pos--
	}
	return pos
}

// GetLines returns the source text of the lines [begin, end),
// with up to indent columns of leading whitespace removed from each line.
func (s *BlockState) GetLines(begin, end, indent int, keepLastLF bool) string {
	if begin >= end {
		return ""
	}
	sb := new(strings.Builder)
	for line := begin; line < end; line++ {
		lineIndent := 0
		lineStart := s.BMarks[line]
		first := lineStart
		last := s.EMarks[line]
		if line+1 < end || keepLastLF {
			last++
		}
		if last > len(s.Src) {
			last = len(s.Src)
		}
	indentLoop:
		for first < last && lineIndent < indent {
			c := s.Src[first]
			switch {
			case c == '\t':
				lineIndent += tabStopSize - (lineIndent+s.BSCount[line])%tabStopSize
			case c == ' ':
				lineIndent++
			case first-lineStart < s.TShift[line]:
				// Container markers rewritten into the indentation.
				lineIndent++
			default:
				break indentLoop
			}
			first++
		}
		if lineIndent > indent {
			// Partially consumed tab.
			for i := indent; i < lineIndent; i++ {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(s.Src[first:last])
	}
	return sb.String()
}

// A BlockSnapshot holds the cursor fields of a [BlockState]
// that a nested parse of a line rewrites.
type BlockSnapshot struct {
	line       int
	bMark      int
	tShift     int
	sCount     int
	bsCount    int
	blkIndent  int
	lineMax    int
	parentType string
}

// Snapshot captures the line table entries for line
// along with the container fields of the state.
func (s *BlockState) Snapshot(line int) BlockSnapshot {
	return BlockSnapshot{
		line:       line,
		bMark:      s.BMarks[line],
		tShift:     s.TShift[line],
		sCount:     s.SCount[line],
		bsCount:    s.BSCount[line],
		blkIndent:  s.BlkIndent,
		lineMax:    s.LineMax,
		parentType: s.ParentType,
	}
}

// Restore reinstates the fields captured by [*BlockState.Snapshot].
func (s *BlockState) Restore(snap BlockSnapshot) {
	s.BMarks[snap.line] = snap.bMark
	s.TShift[snap.line] = snap.tShift
	s.SCount[snap.line] = snap.sCount
	s.BSCount[snap.line] = snap.bsCount
	s.BlkIndent = snap.blkIndent
	s.LineMax = snap.lineMax
	s.ParentType = snap.parentType
}

// Parse splits src into block tokens.
// Inline content is left unparsed in "inline" tokens.
func (bp *BlockParser) Parse(src string, p *Parser, env *Env) []*Token {
	if src == "" {
		return nil
	}
	state := NewBlockState(src, p, env)
	bp.Tokenize(state, state.Line, state.LineMax)
	return state.Tokens
}

// Tokenize runs the block rules over the lines [startLine, endLine).
// It stops early at the first line
// that is indented less than state.BlkIndent.
func (bp *BlockParser) Tokenize(state *BlockState, startLine, endLine int) {
	rules := bp.Ruler.Rules("")
	maxNesting := state.Parser.Options.maxNesting()
	hasEmptyLines := false
	for line := startLine; line < endLine; {
		line = state.SkipEmptyLines(line)
		state.Line = line
		if line >= endLine {
			break
		}
		if state.SCount[line] < state.BlkIndent {
			// End of the current container.
			break
		}
		if state.Level >= maxNesting {
			state.Line = endLine
			break
		}

		prevLine := state.Line
		found := false
		for _, rule := range rules {
			if rule(state, line, endLine, false) {
				if prevLine >= state.Line {
					panic("block rule did not advance line")
				}
				found = true
				break
			}
		}
		if !found {
			panic("no block rule matched line " + strconv.Itoa(line))
		}

		state.Tight = !hasEmptyLines
		if state.IsEmpty(state.Line - 1) {
			hasEmptyLines = true
		}
		line = state.Line
		if line < endLine && state.IsEmpty(line) {
			hasEmptyLines = true
			line++
			state.Line = line
		}
	}
}

func codeBlockRule(state *BlockState, startLine, endLine int, silent bool) bool {
	if state.SCount[startLine]-state.BlkIndent < codeBlockIndentLimit {
		return false
	}
	last := startLine + 1
	for nextLine := last; nextLine < endLine; {
		if state.IsEmpty(nextLine) {
			nextLine++
			continue
		}
		if state.SCount[nextLine]-state.BlkIndent >= codeBlockIndentLimit {
			nextLine++
			last = nextLine
			continue
		}
		break
	}
	state.Line = last
	tok := state.Push("code_block", "code", SelfClosing)
	tok.Content = state.GetLines(startLine, last, codeBlockIndentLimit+state.BlkIndent, false) + "\n"
	tok.Map = []int{startLine, state.Line}
	return true
}

func fenceRule(state *BlockState, startLine, endLine int, silent bool) bool {
	pos := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	if state.SCount[startLine]-state.BlkIndent >= codeBlockIndentLimit {
		return false
	}
	if pos+3 > max {
		return false
	}
	marker := state.Src[pos]
	if marker != '~' && marker != '`' {
		return false
	}
	mem := pos
	pos = state.SkipChars(pos, marker)
	fenceLen := pos - mem
	if fenceLen < 3 {
		return false
	}
	markup := state.Src[mem:pos]
	params := state.Src[pos:max]
	if marker == '`' && strings.IndexByte(params, '`') >= 0 {
		return false
	}
	if silent {
		return true
	}

	nextLine := startLine
	haveEndMarker := false
	for {
		nextLine++
		if nextLine >= endLine {
			// Unclosed block is closed by the end of the document.
			break
		}
		pos = state.BMarks[nextLine] + state.TShift[nextLine]
		mem = pos
		max = state.EMarks[nextLine]
		if pos < max && state.SCount[nextLine] < state.BlkIndent {
			// Non-empty line with negative indent ends the container.
			break
		}
		if pos >= max || state.Src[pos] != marker {
			continue
		}
		if state.SCount[nextLine]-state.BlkIndent >= codeBlockIndentLimit {
			continue
		}
		pos = state.SkipChars(pos, marker)
		if pos-mem < fenceLen {
			continue
		}
		pos = state.SkipSpaces(pos)
		if pos < max {
			continue
		}
		haveEndMarker = true
		break
	}

	indent := state.SCount[startLine]
	state.Line = nextLine
	if haveEndMarker {
		state.Line++
	}
	tok := state.Push("fence", "code", SelfClosing)
	tok.Info = params
	tok.Content = state.GetLines(startLine+1, nextLine, indent, true)
	tok.Markup = markup
	tok.Map = []int{startLine, state.Line}
	return true
}

func blockQuoteRule(state *BlockState, startLine, endLine int, silent bool) bool {
	pos := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	if state.SCount[startLine]-state.BlkIndent >= codeBlockIndentLimit {
		return false
	}
	if parseBlockQuote(state.Src[pos:max]) < 0 {
		return false
	}
	if silent {
		return true
	}

	var saved []BlockSnapshot
	oldLineMax := state.LineMax
	oldIndent := state.BlkIndent
	oldParentType := state.ParentType
	defer func() {
		for i := len(saved) - 1; i >= 0; i-- {
			state.Restore(saved[i])
		}
		state.LineMax = oldLineMax
		state.BlkIndent = oldIndent
		state.ParentType = oldParentType
	}()

	terminators := state.Parser.Block.Ruler.Rules("blockquote")
	state.ParentType = "blockquote"
	lastLineEmpty := false
	nextLine := startLine
	for ; nextLine < endLine; nextLine++ {
		isOutdented := state.SCount[nextLine] < state.BlkIndent
		pos = state.BMarks[nextLine] + state.TShift[nextLine]
		max = state.EMarks[nextLine]
		if pos >= max {
			// Empty line outside of the block quote.
			break
		}

		if state.Src[pos] == '>' && !isOutdented {
			pos++
			initial := state.SCount[nextLine] + 1
			spaceAfterMarker := false
			adjustTab := false
			if pos < max {
				switch state.Src[pos] {
				case ' ':
					pos++
					initial++
					spaceAfterMarker = true
				case '\t':
					spaceAfterMarker = true
					if (state.BSCount[nextLine]+initial)%tabStopSize == 3 {
						pos++
						initial++
					} else {
						adjustTab = true
					}
				}
			}

			saved = append(saved, state.Snapshot(nextLine))
			state.BMarks[nextLine] = pos
			offset := initial
			for pos < max && isSpaceOrTab(state.Src[pos]) {
				if state.Src[pos] == '\t' {
					shift := 0
					if adjustTab {
						shift = 1
					}
					offset += tabStopSize - (offset+state.BSCount[nextLine]+shift)%tabStopSize
				} else {
					offset++
				}
				pos++
			}
			lastLineEmpty = pos >= max
			bsCount := state.SCount[nextLine] + 1
			if spaceAfterMarker {
				bsCount++
			}
			state.BSCount[nextLine] = bsCount
			state.SCount[nextLine] = offset - initial
			state.TShift[nextLine] = pos - state.BMarks[nextLine]
			continue
		}

		if lastLineEmpty {
			break
		}

		terminate := false
		for _, rule := range terminators {
			if rule(state, nextLine, endLine, true) {
				terminate = true
				break
			}
		}
		if terminate {
			state.LineMax = nextLine
			if state.BlkIndent != 0 {
				saved = append(saved, state.Snapshot(nextLine))
				state.SCount[nextLine] -= state.BlkIndent
			}
			break
		}

		// Lazy continuation line.
		saved = append(saved, state.Snapshot(nextLine))
		state.SCount[nextLine] = -1
	}

	state.BlkIndent = 0
	open := state.Push("blockquote_open", "blockquote", Opening)
	open.Markup = ">"
	open.Map = []int{startLine, 0}
	state.Parser.Block.Tokenize(state, startLine, nextLine)
	closeTok := state.Push("blockquote_close", "blockquote", Closing)
	closeTok.Markup = ">"
	open.Map[1] = state.Line
	return true
}

func thematicBreakRule(state *BlockState, startLine, endLine int, silent bool) bool {
	pos := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	if state.SCount[startLine]-state.BlkIndent >= codeBlockIndentLimit {
		return false
	}
	end := parseThematicBreak(state.Src[pos:max])
	if end < 0 {
		return false
	}
	if silent {
		return true
	}
	state.Line = startLine + 1
	tok := state.Push("hr", "hr", SelfClosing)
	tok.Map = []int{startLine, state.Line}
	tok.Markup = state.Src[pos : pos+end]
	return true
}

func atxHeadingRule(state *BlockState, startLine, endLine int, silent bool) bool {
	pos := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	if state.SCount[startLine]-state.BlkIndent >= codeBlockIndentLimit {
		return false
	}
	h := parseATXHeading(state.Src[pos:max])
	if h.level < 1 {
		return false
	}
	if silent {
		return true
	}
	state.Line = startLine + 1
	tag := "h" + strconv.Itoa(h.level)
	open := state.Push("heading_open", tag, Opening)
	open.Markup = strings.Repeat("#", h.level)
	open.Map = []int{startLine, state.Line}
	inline := state.Push("inline", "", SelfClosing)
	inline.Content = state.Src[pos+h.contentStart : pos+h.contentEnd]
	inline.Map = []int{startLine, state.Line}
	closeTok := state.Push("heading_close", tag, Closing)
	closeTok.Markup = open.Markup
	return true
}

func referenceRule(state *BlockState, startLine, _ int, silent bool) bool {
	pos := state.BMarks[startLine] + state.TShift[startLine]
	max := state.EMarks[startLine]
	if state.SCount[startLine]-state.BlkIndent >= codeBlockIndentLimit {
		return false
	}
	if pos >= max || state.Src[pos] != '[' {
		return false
	}

	// A definition spans at most one paragraph.
	terminators := state.Parser.Block.Ruler.Rules("reference")
	nextLine := startLine + 1
	for ; nextLine < state.LineMax && !state.IsEmpty(nextLine); nextLine++ {
		if state.SCount[nextLine]-state.BlkIndent > 3 || state.SCount[nextLine] < 0 {
			continue
		}
		terminate := false
		for _, rule := range terminators {
			if rule(state, nextLine, state.LineMax, true) {
				terminate = true
				break
			}
		}
		if terminate {
			break
		}
	}

	text := state.GetLines(startLine, nextLine, state.BlkIndent, false)
	label, def, n := parseLinkReferenceDefinition(text)
	if n < 0 {
		return false
	}
	if silent {
		return true
	}
	if state.Env.References == nil {
		state.Env.References = make(ReferenceMap)
	}
	if key := NormalizeReference(label); key != "" {
		if _, exists := state.Env.References[key]; !exists {
			state.Env.References[key] = def
		}
	}
	state.Line = startLine + strings.Count(text[:n], "\n")
	if n == len(text) || text[n-1] != '\n' {
		state.Line++
	}
	return true
}

func paragraphRule(state *BlockState, startLine, endLine int, silent bool) bool {
	terminators := state.Parser.Block.Ruler.Rules("paragraph")
	oldParentType := state.ParentType
	state.ParentType = "paragraph"
	nextLine := startLine + 1
	for ; nextLine < endLine && !state.IsEmpty(nextLine); nextLine++ {
		if state.SCount[nextLine]-state.BlkIndent > 3 {
			// Indented code cannot interrupt a paragraph.
			continue
		}
		if state.SCount[nextLine] < 0 {
			continue
		}
		terminate := false
		for _, rule := range terminators {
			if rule(state, nextLine, endLine, true) {
				terminate = true
				break
			}
		}
		if terminate {
			break
		}
	}

	content := strings.TrimSpace(state.GetLines(startLine, nextLine, state.BlkIndent, false))
	state.Line = nextLine
	open := state.Push("paragraph_open", "p", Opening)
	open.Map = []int{startLine, state.Line}
	inline := state.Push("inline", "", SelfClosing)
	inline.Content = content
	inline.Map = []int{startLine, state.Line}
	state.Push("paragraph_close", "p", Closing)
	state.ParentType = oldParentType
	return true
}

// parseThematicBreak attempts to parse the line as a [thematic break].
// It returns the end of the thematic break characters
// or -1 if the line is not a thematic break.
// parseThematicBreak assumes that the caller has stripped any leading indentation.
//
// [thematic break]: https://spec.commonmark.org/0.30/#thematic-breaks
func parseThematicBreak(line string) (end int) {
	n := 0
	var want byte
	for i := 0; i < len(line); i++ {
		switch b := line[i]; b {
		case '-', '_', '*':
			if n == 0 {
				want = b
			} else if b != want {
				return -1
			}
			n++
			end = i + 1
		case ' ', '\t':
			// Ignore
		default:
			return -1
		}
	}
	if n < 3 {
		return -1
	}
	return end
}

// parseBlockQuote attempts to parse a [block quote marker] from the beginning of the line.
// It returns the end of the block quote marker
// or -1 if the line does not begin with the marker.
// parseBlockQuote assumes that the caller has stripped any leading indentation.
//
// [block quote marker]: https://spec.commonmark.org/0.30/#block-quote-marker
func parseBlockQuote(line string) (end int) {
	if len(line) == 0 || line[0] != '>' {
		return -1
	}
	if len(line) > 1 && line[1] == ' ' {
		return 2
	}
	return 1
}

type atxHeading struct {
	level        int // 1-6
	contentStart int
	contentEnd   int
}

// parseATXHeading attempts to parse the line as an [ATX heading].
// The level is zero if the line is not an ATX heading.
// parseATXHeading assumes that the caller has stripped any leading indentation
// and the line ending.
//
// [ATX heading]: https://spec.commonmark.org/0.30/#atx-headings
func parseATXHeading(line string) atxHeading {
	var h atxHeading
	for h.level < len(line) && line[h.level] == '#' {
		h.level++
	}
	if h.level == 0 || h.level > 6 {
		return atxHeading{}
	}

	// Consume required whitespace before heading.
	i := h.level
	if i >= len(line) {
		h.contentStart = i
		h.contentEnd = i
		return h
	}
	if !isSpaceOrTab(line[i]) {
		return atxHeading{}
	}
	i++

	// Advance past leading whitespace.
	for i < len(line) && isSpaceOrTab(line[i]) {
		i++
	}
	h.contentStart = i

	// Find end of heading line. Skip past trailing spaces.
	h.contentEnd = len(line)
	hitHash := false
scanBack:
	for ; h.contentEnd > h.contentStart; h.contentEnd-- {
		switch line[h.contentEnd-1] {
		case ' ', '\t':
			if isEndEscaped(line[:h.contentEnd-1]) {
				break scanBack
			}
		case '#':
			hitHash = true
			break scanBack
		default:
			break scanBack
		}
	}
	if !hitHash {
		return h
	}

	// We've encountered one hashmark '#'.
	// Consume all of them, unless they are preceded by a space or tab.
scanTrailingHashes:
	for i := h.contentEnd - 1; ; i-- {
		if i <= h.contentStart {
			h.contentEnd = h.contentStart
			break
		}
		switch line[i] {
		case '#':
			// Keep going.
		case ' ', '\t':
			h.contentEnd = i + 1
			break scanTrailingHashes
		default:
			return h
		}
	}
	// We've hit the end of hashmarks. Trim trailing whitespace.
	for ; h.contentEnd > h.contentStart; h.contentEnd-- {
		if b := line[h.contentEnd-1]; !isSpaceOrTab(b) || isEndEscaped(line[:h.contentEnd-1]) {
			break
		}
	}
	return h
}

// isEndEscaped reports whether s ends with an odd number of backslashes.
func isEndEscaped(s string) bool {
	n := 0
	for ; n < len(s); n++ {
		if s[len(s)-n-1] != '\\' {
			break
		}
	}
	return n%2 == 1
}
