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
	"unicode/utf8"
)

// An InlineRule attempts to recognize an inline construct at state.Pos.
// A matching rule advances state.Pos past the construct.
// If silent is true, the rule must not emit tokens.
type InlineRule func(state *InlineState, silent bool) bool

// An InlinePostRule runs once over the tokens of an inline parse
// after tokenization finishes.
type InlinePostRule func(state *InlineState)

// InlineParser converts the content of "inline" tokens into inline tokens.
type InlineParser struct {
	Ruler     Ruler[InlineRule]
	PostRuler Ruler[InlinePostRule]
}

func newInlineParser() *InlineParser {
	ip := new(InlineParser)
	ip.Ruler.Push("text", textRule)
	ip.Ruler.Push("newline", newlineRule)
	ip.Ruler.Push("escape", escapeRule)
	ip.Ruler.Push("backticks", backticksRule)
	ip.Ruler.Push("emphasis", emphasisRule)
	ip.Ruler.Push("link", linkRule)
	ip.Ruler.Push("image", imageRule)

	ip.PostRuler.Push("balance_pairs", balancePairs)
	ip.PostRuler.Push("emphasis", emphasisPostProcess)
	ip.PostRuler.Push("fragments_join", fragmentsJoin)
	return ip
}

// InlineState is the cursor shared by the inline rules.
type InlineState struct {
	Src    string
	Parser *Parser
	Env    *Env
	Tokens []*Token

	Pos    int
	PosMax int
	Level  int

	// Pending is literal text not yet flushed into a "text" token.
	Pending      string
	pendingLevel int

	// LinkLevel is the number of links that enclose the current position.
	LinkLevel int

	delimiters     *delimiterList
	prevDelimiters []*delimiterList
	tokensMeta     []*delimiterList

	// cache maps a start position to the end position found by SkipToken.
	cache map[int]int

	backticks        map[int]int
	backticksScanned bool
}

type delimiterList struct {
	delims []delimiter
}

type delimiter struct {
	marker byte
	length int
	token  int // index into InlineState.Tokens
	end    int // index of the matching delimiter or -1
	open   bool
	close  bool
}

// NewInlineState returns a state positioned at the beginning of src.
func NewInlineState(src string, p *Parser, env *Env) *InlineState {
	return &InlineState{
		Src:        src,
		Parser:     p,
		Env:        env,
		PosMax:     len(src),
		delimiters: new(delimiterList),
		cache:      make(map[int]int),
		backticks:  make(map[int]int),
	}
}

// PushPending flushes pending text into a new "text" token.
func (s *InlineState) PushPending() *Token {
	tok := NewToken("text", "", SelfClosing)
	tok.Content = s.Pending
	tok.Level = s.pendingLevel
	s.Tokens = append(s.Tokens, tok)
	s.tokensMeta = append(s.tokensMeta, nil)
	s.Pending = ""
	return tok
}

// Push appends a new inline token, flushing any pending text first.
func (s *InlineState) Push(typ, tag string, nesting Nesting) *Token {
	if s.Pending != "" {
		s.PushPending()
	}
	tok := NewToken(typ, tag, nesting)
	var meta *delimiterList
	if nesting < 0 {
		s.Level--
		if n := len(s.prevDelimiters); n > 0 {
			s.delimiters = s.prevDelimiters[n-1]
			s.prevDelimiters = s.prevDelimiters[:n-1]
		}
	}
	tok.Level = s.Level
	if nesting > 0 {
		s.Level++
		s.prevDelimiters = append(s.prevDelimiters, s.delimiters)
		s.delimiters = new(delimiterList)
		meta = s.delimiters
	}
	s.pendingLevel = s.Level
	s.Tokens = append(s.Tokens, tok)
	s.tokensMeta = append(s.tokensMeta, meta)
	return tok
}

const (
	openerFlag = 1 << iota
	closerFlag
)

// scanDelims measures the run of delimiter characters starting at start
// and determines whether it can open and/or close emphasis.
func (s *InlineState) scanDelims(start int, canSplitWord bool) (flags uint8, length int) {
	marker := s.Src[start]
	pos := start
	for pos < s.PosMax && s.Src[pos] == marker {
		pos++
	}
	return emphasisFlags(s.Src[:s.PosMax], start, pos, canSplitWord), pos - start
}

// emphasisFlags determines whether the given [delimiter run]
// [can open emphasis] and/or [can close emphasis].
//
// [delimiter run]: https://spec.commonmark.org/0.30/#delimiter-run
// [can open emphasis]: https://spec.commonmark.org/0.30/#can-open-emphasis
// [can close emphasis]: https://spec.commonmark.org/0.30/#can-close-emphasis
func emphasisFlags(source string, start, end int, canSplitWord bool) uint8 {
	var flags uint8
	prevChar := ' '
	if start > 0 {
		prevChar, _ = utf8.DecodeLastRuneInString(source[:start])
	}
	nextChar := ' '
	if end < len(source) {
		nextChar, _ = utf8.DecodeRuneInString(source[end:])
	}
	leftFlanking := !isUnicodeWhitespace(nextChar) &&
		(!isUnicodePunctuation(nextChar) || isUnicodeWhitespace(prevChar) || isUnicodePunctuation(prevChar))
	rightFlanking := !isUnicodeWhitespace(prevChar) &&
		(!isUnicodePunctuation(prevChar) || isUnicodeWhitespace(nextChar) || isUnicodePunctuation(nextChar))
	if leftFlanking && (canSplitWord || !rightFlanking || isUnicodePunctuation(prevChar)) {
		flags |= openerFlag
	}
	if rightFlanking && (canSplitWord || !leftFlanking || isUnicodePunctuation(nextChar)) {
		flags |= closerFlag
	}
	return flags
}

// Parse parses src as inline content and returns the resulting tokens.
func (ip *InlineParser) Parse(src string, p *Parser, env *Env) []*Token {
	state := NewInlineState(src, p, env)
	ip.Tokenize(state)
	for _, rule := range ip.PostRuler.Rules("") {
		rule(state)
	}
	return state.Tokens
}

// Tokenize runs the inline rules from state.Pos to state.PosMax.
// Bytes that no rule recognizes become literal text.
func (ip *InlineParser) Tokenize(state *InlineState) {
	rules := ip.Ruler.Rules("")
	end := state.PosMax
	maxNesting := state.Parser.Options.maxNesting()
	for state.Pos < end {
		prevPos := state.Pos
		ok := false
		if state.Level < maxNesting {
			for _, rule := range rules {
				if rule(state, false) {
					if prevPos >= state.Pos {
						panic("inline rule did not advance position")
					}
					ok = true
					break
				}
			}
		}
		if ok {
			if state.Pos >= end {
				break
			}
			continue
		}
		state.Pending += state.Src[state.Pos : state.Pos+1]
		state.Pos++
	}
	if state.Pending != "" {
		state.PushPending()
	}
}

// SkipToken advances state.Pos past exactly one inline construct
// without emitting any tokens.
// If no rule matches, it advances by one byte.
func (ip *InlineParser) SkipToken(state *InlineState) {
	pos := state.Pos
	if end, ok := state.cache[pos]; ok {
		state.Pos = end
		return
	}
	ok := false
	if state.Level < state.Parser.Options.maxNesting() {
		for _, rule := range ip.Ruler.Rules("") {
			// Increment level to prevent unbounded recursion
			// through nested link labels.
			state.Level++
			ok = rule(state, true)
			state.Level--
			if ok {
				if pos >= state.Pos {
					panic("inline rule did not advance position")
				}
				break
			}
		}
	} else {
		state.Pos = state.PosMax
	}
	if !ok {
		state.Pos++
	}
	state.cache[pos] = state.Pos
}

func isTerminatorChar(c byte) bool {
	switch c {
	case '\n', '!', '#', '$', '%', '&', '*', '+', '-', ':', '<', '=', '>', '@',
		'[', '\\', ']', '^', '_', '`', '{', '}', '~':
		return true
	default:
		return false
	}
}

func textRule(state *InlineState, silent bool) bool {
	pos := state.Pos
	for pos < state.PosMax && !isTerminatorChar(state.Src[pos]) {
		pos++
	}
	if pos == state.Pos {
		return false
	}
	if !silent {
		state.Pending += state.Src[state.Pos:pos]
	}
	state.Pos = pos
	return true
}

func newlineRule(state *InlineState, silent bool) bool {
	pos := state.Pos
	if state.Src[pos] != '\n' {
		return false
	}
	if !silent {
		pmax := len(state.Pending) - 1
		switch {
		case pmax >= 1 && state.Pending[pmax] == ' ' && state.Pending[pmax-1] == ' ':
			// Two or more trailing spaces make a hard break.
			state.Pending = strings.TrimRight(state.Pending, " ")
			state.Push("hardbreak", "br", SelfClosing)
		case pmax >= 0 && state.Pending[pmax] == ' ':
			state.Pending = state.Pending[:pmax]
			state.Push("softbreak", "br", SelfClosing)
		default:
			state.Push("softbreak", "br", SelfClosing)
		}
	}
	pos++
	for pos < state.PosMax && isSpaceOrTab(state.Src[pos]) {
		pos++
	}
	state.Pos = pos
	return true
}

func escapeRule(state *InlineState, silent bool) bool {
	pos := state.Pos
	if state.Src[pos] != '\\' {
		return false
	}
	pos++
	if pos >= state.PosMax {
		return false
	}
	c := state.Src[pos]
	if c == '\n' {
		if !silent {
			state.Push("hardbreak", "br", SelfClosing)
		}
		pos++
		for pos < state.PosMax && isSpaceOrTab(state.Src[pos]) {
			pos++
		}
		state.Pos = pos
		return true
	}
	_, size := utf8.DecodeRuneInString(state.Src[pos:state.PosMax])
	if !silent {
		tok := state.Push("text", "", SelfClosing)
		if isASCIIPunctuation(c) {
			tok.Content = state.Src[pos : pos+size]
		} else {
			tok.Content = state.Src[pos-1 : pos+size]
		}
		tok.Markup = state.Src[pos-1 : pos+size]
		tok.Info = "escape"
	}
	state.Pos = pos + size
	return true
}

func backticksRule(state *InlineState, silent bool) bool {
	pos := state.Pos
	if state.Src[pos] != '`' {
		return false
	}
	start := pos
	pos++
	max := state.PosMax
	for pos < max && state.Src[pos] == '`' {
		pos++
	}
	marker := state.Src[start:pos]
	openerLength := len(marker)
	if last, ok := state.backticks[openerLength]; state.backticksScanned && (!ok || last <= start) {
		if !silent {
			state.Pending += marker
		}
		state.Pos += openerLength
		return true
	}

	matchEnd := pos
	for {
		i := strings.IndexByte(state.Src[matchEnd:max], '`')
		if i < 0 {
			break
		}
		matchStart := matchEnd + i
		matchEnd = matchStart + 1
		for matchEnd < max && state.Src[matchEnd] == '`' {
			matchEnd++
		}
		closerLength := matchEnd - matchStart
		if closerLength == openerLength {
			if !silent {
				tok := state.Push("code_inline", "code", SelfClosing)
				tok.Markup = marker
				tok.Content = stripCodeSpanSpace(strings.ReplaceAll(state.Src[pos:matchStart], "\n", " "))
			}
			state.Pos = matchEnd
			return true
		}
		state.backticks[closerLength] = matchStart
	}

	// No closer found: remember so later openers of the same length
	// fail quickly.
	state.backticksScanned = true
	if !silent {
		state.Pending += marker
	}
	state.Pos += openerLength
	return true
}

// stripCodeSpanSpace strips a single leading and trailing space
// from code span content that is not entirely spaces.
func stripCodeSpanSpace(s string) string {
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.Trim(s, " ") != "" {
		return s[1 : len(s)-1]
	}
	return s
}

func emphasisRule(state *InlineState, silent bool) bool {
	start := state.Pos
	marker := state.Src[start]
	if silent {
		return false
	}
	if marker != '_' && marker != '*' {
		return false
	}
	flags, length := state.scanDelims(start, marker == '*')
	for i := 0; i < length; i++ {
		tok := state.Push("text", "", SelfClosing)
		tok.Content = string(marker)
		state.delimiters.delims = append(state.delimiters.delims, delimiter{
			marker: marker,
			length: length,
			token:  len(state.Tokens) - 1,
			end:    -1,
			open:   flags&openerFlag != 0,
			close:  flags&closerFlag != 0,
		})
	}
	state.Pos += length
	return true
}

func linkRule(state *InlineState, silent bool) bool {
	oldPos := state.Pos
	max := state.PosMax
	if state.Src[state.Pos] != '[' {
		return false
	}
	labelStart := state.Pos + 1
	labelEnd := ParseLinkLabel(state, state.Pos, true)
	if labelEnd < 0 {
		return false
	}

	dest, ok := parseLinkTail(state, labelStart, labelEnd)
	if !ok {
		state.Pos = oldPos
		return false
	}
	if !silent {
		state.Pos = labelStart
		state.PosMax = labelEnd
		open := state.Push("link_open", "a", Opening)
		open.AttrPush("href", dest.Destination)
		if dest.TitlePresent {
			open.AttrPush("title", dest.Title)
		}
		state.LinkLevel++
		state.Parser.Inline.Tokenize(state)
		state.LinkLevel--
		state.Push("link_close", "a", Closing)
	}
	state.Pos = dest.end
	state.PosMax = max
	return true
}

func imageRule(state *InlineState, silent bool) bool {
	oldPos := state.Pos
	max := state.PosMax
	if state.Src[state.Pos] != '!' || state.Pos+1 >= max || state.Src[state.Pos+1] != '[' {
		return false
	}
	labelStart := state.Pos + 2
	labelEnd := ParseLinkLabel(state, state.Pos+1, false)
	if labelEnd < 0 {
		return false
	}

	dest, ok := parseLinkTail(state, labelStart, labelEnd)
	if !ok {
		state.Pos = oldPos
		return false
	}
	if !silent {
		content := state.Src[labelStart:labelEnd]
		tok := state.Push("image", "img", SelfClosing)
		tok.AttrPush("src", dest.Destination)
		tok.AttrPush("alt", "")
		if dest.TitlePresent {
			tok.AttrPush("title", dest.Title)
		}
		tok.Children = state.Parser.Inline.Parse(content, state.Parser, state.Env)
		tok.Content = content
	}
	state.Pos = dest.end
	state.PosMax = max
	return true
}

type linkTail struct {
	LinkDefinition
	end int
}

// parseLinkTail parses the inline destination and title
// or the reference that follows a link label.
func parseLinkTail(state *InlineState, labelStart, labelEnd int) (linkTail, bool) {
	src := state.Src
	max := state.PosMax
	pos := labelEnd + 1
	if pos < max && src[pos] == '(' {
		pos = skipWhitespace(src[:max], pos+1)
		if pos >= max {
			return linkTail{}, false
		}
		var tail linkTail
		if dest, end, ok := ParseLinkDestination(src, pos, max); ok {
			dest = NormalizeURI(dest)
			if validateLink(dest) {
				tail.Destination = dest
				pos = end
			}
			start := pos
			pos = skipWhitespace(src[:max], pos)
			if title, end, ok := ParseLinkTitle(src, pos, max); pos < max && start != pos && ok {
				tail.Title = title
				tail.TitlePresent = true
				pos = skipWhitespace(src[:max], end)
			}
		}
		if pos < max && src[pos] == ')' {
			tail.end = pos + 1
			return tail, true
		}
		// Fall through to try a reference.
	}

	if len(state.Env.References) == 0 {
		return linkTail{}, false
	}
	var label string
	pos = labelEnd + 1
	if pos < max && src[pos] == '[' {
		start := pos + 1
		if end := ParseLinkLabel(state, pos, false); end >= 0 {
			label = src[start:end]
			pos = end + 1
		} else {
			pos = labelEnd + 1
		}
	}
	if label == "" {
		// Collapsed or shortcut reference.
		label = src[labelStart:labelEnd]
	}
	def, ok := state.Env.References[NormalizeReference(label)]
	if !ok {
		return linkTail{}, false
	}
	return linkTail{
		LinkDefinition: LinkDefinition{
			Destination:  NormalizeURI(def.Destination),
			Title:        def.Title,
			TitlePresent: def.TitlePresent,
		},
		end: pos,
	}, true
}

const openersBottomCount = 6

// processDelimiters matches emphasis openers with closers,
// following the [process emphasis procedure].
// Matched openers have their end field set to the index of their closer.
//
// [process emphasis procedure]: https://spec.commonmark.org/0.30/#process-emphasis
func processDelimiters(delims []delimiter) {
	if len(delims) == 0 {
		return
	}
	openersBottom := make(map[byte]*[openersBottomCount]int)
	headerIdx := 0
	lastTokenIdx := -2
	jumps := make([]int, 0, len(delims))
	for closerIdx := range delims {
		closer := &delims[closerIdx]
		jumps = append(jumps, 0)

		// Delimiters from the same run are grouped so that
		// the search for an opener skips the rest of the closer's run.
		if delims[headerIdx].marker != closer.marker || lastTokenIdx != closer.token-1 {
			headerIdx = closerIdx
		}
		lastTokenIdx = closer.token
		if !closer.close {
			continue
		}

		bottoms := openersBottom[closer.marker]
		if bottoms == nil {
			bottoms = &[openersBottomCount]int{-1, -1, -1, -1, -1, -1}
			openersBottom[closer.marker] = bottoms
		}
		minOpenerIdx := bottoms[closer.openersBottomIndex()]
		openerIdx := headerIdx - jumps[headerIdx] - 1
		newMinOpenerIdx := openerIdx
		for ; openerIdx > minOpenerIdx; openerIdx -= jumps[openerIdx] + 1 {
			opener := &delims[openerIdx]
			if opener.marker != closer.marker || !opener.open || opener.end >= 0 {
				continue
			}
			if isOddMatch(*opener, *closer) {
				continue
			}
			lastJump := 0
			if openerIdx > 0 && !delims[openerIdx-1].open {
				lastJump = jumps[openerIdx-1] + 1
			}
			jumps[closerIdx] = closerIdx - openerIdx + lastJump
			jumps[openerIdx] = lastJump
			closer.open = false
			opener.end = closerIdx
			opener.close = false
			newMinOpenerIdx = -1
			lastTokenIdx = -2
			break
		}
		if newMinOpenerIdx != -1 {
			// No opener for this kind of closer up to this point,
			// so put a lower bound on future searches.
			bottoms[closer.openersBottomIndex()] = newMinOpenerIdx
		}
	}
}

func (d delimiter) openersBottomIndex() int {
	i := d.length % 3
	if d.open {
		i += 3
	}
	return i
}

// isOddMatch implements rules 9 and 10 of
// https://spec.commonmark.org/0.30/#emphasis-and-strong-emphasis.
func isOddMatch(opener, closer delimiter) bool {
	if !opener.close && !closer.open {
		return false
	}
	return (opener.length+closer.length)%3 == 0 &&
		(opener.length%3 != 0 || closer.length%3 != 0)
}

func balancePairs(state *InlineState) {
	processDelimiters(state.delimiters.delims)
	for _, meta := range state.tokensMeta {
		if meta != nil {
			processDelimiters(meta.delims)
		}
	}
}

func emphasisPostProcess(state *InlineState) {
	convertEmphasis(state, state.delimiters.delims)
	for _, meta := range state.tokensMeta {
		if meta != nil {
			convertEmphasis(state, meta.delims)
		}
	}
}

// convertEmphasis rewrites matched delimiter text tokens
// into em and strong open and close tokens.
func convertEmphasis(state *InlineState, delims []delimiter) {
	for i := len(delims) - 1; i >= 0; i-- {
		startDelim := delims[i]
		if startDelim.marker != '_' && startDelim.marker != '*' {
			continue
		}
		if startDelim.end < 0 {
			continue
		}
		endDelim := delims[startDelim.end]

		// Two adjacent pairs that enclose each other become one strong span.
		isStrong := i > 0 &&
			delims[i-1].end == startDelim.end+1 &&
			delims[i-1].marker == startDelim.marker &&
			delims[i-1].token == startDelim.token-1 &&
			delims[startDelim.end+1].token == endDelim.token+1

		typ, tag, markup := "em", "em", string(startDelim.marker)
		if isStrong {
			typ, tag, markup = "strong", "strong", markup+markup
		}
		open := state.Tokens[startDelim.token]
		open.Type = typ + "_open"
		open.Tag = tag
		open.Nesting = Opening
		open.Markup = markup
		open.Content = ""
		closeTok := state.Tokens[endDelim.token]
		closeTok.Type = typ + "_close"
		closeTok.Tag = tag
		closeTok.Nesting = Closing
		closeTok.Markup = markup
		closeTok.Content = ""
		if isStrong {
			state.Tokens[delims[i-1].token].Content = ""
			state.Tokens[delims[startDelim.end+1].token].Content = ""
			i--
		}
	}
}

// fragmentsJoin merges adjacent text tokens
// and recomputes nesting levels after emphasis conversion.
func fragmentsJoin(state *InlineState) {
	level := 0
	last := 0
	for curr, tok := range state.Tokens {
		if tok.Nesting < 0 {
			level--
		}
		tok.Level = level
		if tok.Nesting > 0 {
			level++
		}
		if tok.Type == "text" && curr+1 < len(state.Tokens) && state.Tokens[curr+1].Type == "text" {
			next := state.Tokens[curr+1]
			next.Content = tok.Content + next.Content
			continue
		}
		state.Tokens[last] = tok
		last++
	}
	for i := last; i < len(state.Tokens); i++ {
		state.Tokens[i] = nil
	}
	state.Tokens = state.Tokens[:last]
}
