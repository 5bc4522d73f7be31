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

// tailRule moves definition bodies out of the token stream
// and appends the footnote list to the end of the document.
// Documents without any footnote syntax are left untouched.
func tailRule(state *marknote.CoreState) {
	reg := registryFrom(state.Env)
	if reg == nil {
		return
	}
	var bodies map[string][]*marknote.Token
	state.Tokens, bodies = extractDefinitions(state.Tokens)
	reg.claimUnreferenced()
	if len(reg.list) == 0 {
		return
	}
	state.Tokens = appendFootnoteList(state.Tokens, reg, bodies)
}

// extractDefinitions removes the tokens between reference open and close markers
// (including the markers themselves) from tokens
// and returns them keyed by label.
// A definition nested inside another definition is kept separate.
// If a label is defined more than once, the last body wins.
func extractDefinitions(tokens []*marknote.Token) ([]*marknote.Token, map[string][]*marknote.Token) {
	type collector struct {
		label string
		body  []*marknote.Token
	}
	var stack []*collector
	bodies := make(map[string][]*marknote.Token)
	kept := tokens[:0]
	for _, tok := range tokens {
		switch {
		case tok.Type == TypeReferenceOpen:
			stack = append(stack, &collector{label: metaOf(tok).Label})
		case tok.Type == TypeReferenceClose:
			if len(stack) == 0 {
				panic("footnote: unbalanced definition close")
			}
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			bodies[c.label] = c.body
		case len(stack) > 0:
			c := stack[len(stack)-1]
			c.body = append(c.body, tok)
		default:
			kept = append(kept, tok)
		}
	}
	if len(stack) > 0 {
		panic("footnote: unbalanced definition open")
	}
	for i := len(kept); i < len(tokens); i++ {
		tokens[i] = nil
	}
	return kept, bodies
}

// appendFootnoteList appends the footnote block for every entry in reg to tokens.
func appendFootnoteList(tokens []*marknote.Token, reg *registry, bodies map[string][]*marknote.Token) []*marknote.Token {
	tokens = append(tokens, marknote.NewToken(TypeBlockOpen, "", marknote.Opening))
	for id, e := range reg.list {
		open := marknote.NewToken(TypeOpen, "", marknote.Opening)
		open.Meta = &Meta{ID: id, Label: e.label}
		tokens = append(tokens, open)

		if e.inline {
			tokens = append(tokens, inlineBody(e)...)
		} else {
			tokens = append(tokens, bodies[e.label]...)
		}

		// Back-references go inside the final paragraph.
		var lastParagraph *marknote.Token
		if last := tokens[len(tokens)-1]; last.Type == "paragraph_close" {
			lastParagraph = last
			tokens = tokens[:len(tokens)-1]
		}
		for subID := 0; subID < max(e.count, 1); subID++ {
			anchor := marknote.NewToken(TypeAnchor, "", marknote.SelfClosing)
			anchor.Meta = &Meta{ID: id, SubID: subID, Label: e.label}
			tokens = append(tokens, anchor)
		}
		if lastParagraph != nil {
			tokens = append(tokens, lastParagraph)
		}

		tokens = append(tokens, marknote.NewToken(TypeClose, "", marknote.Closing))
	}
	return append(tokens, marknote.NewToken(TypeBlockClose, "", marknote.Closing))
}

// inlineBody wraps the parsed content of an inline footnote in a paragraph.
func inlineBody(e *entry) []*marknote.Token {
	popen := marknote.NewToken("paragraph_open", "p", marknote.Opening)
	popen.Block = true
	inline := marknote.NewToken("inline", "", marknote.SelfClosing)
	inline.Content = e.content
	inline.Children = e.tokens
	pclose := marknote.NewToken("paragraph_close", "p", marknote.Closing)
	pclose.Block = true
	return []*marknote.Token{popen, inline, pclose}
}
