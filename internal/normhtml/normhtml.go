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

// Package normhtml normalizes rendered HTML for comparison in tests.
// Whitespace next to block tags is dropped,
// runs of whitespace collapse to a single space,
// attributes are sorted,
// and self-closing tags lose their trailing slash,
// so XHTML and HTML renderings of the same document compare equal.
package normhtml

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

var textEscaper = bytereplacer.New(
	"&", "&amp;",
	`'`, "&apos;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
)

// Normalize returns the normalized form of an HTML fragment.
func Normalize(s string) string {
	return string(NormalizeHTML([]byte(s)))
}

// Equal reports whether two HTML fragments are the same after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// NormalizeHTML strips insignificant output differences from HTML.
func NormalizeHTML(b []byte) []byte {
	n := &normalizer{
		tok:  html.NewTokenizerFragment(bytes.NewReader(b), atom.Div.String()),
		last: html.StartTagToken,
	}
	for {
		tt := n.tok.Next()
		switch tt {
		case html.ErrorToken:
			return n.out
		case html.TextToken:
			n.text(n.tok.Text())
		case html.EndTagToken:
			name, _ := n.tok.TagName()
			n.endTag(string(name))
		case html.StartTagToken, html.SelfClosingTagToken:
			n.startTag()
		case html.CommentToken:
			n.out = append(n.out, n.tok.Raw()...)
		}
		n.last = tt
		if tt == html.SelfClosingTagToken {
			n.last = html.EndTagToken
		}
	}
}

type normalizer struct {
	tok     *html.Tokenizer
	out     []byte
	last    html.TokenType
	lastTag string
	inPre   bool
}

func (n *normalizer) text(data []byte) {
	afterTag := n.last == html.EndTagToken || n.last == html.StartTagToken
	if afterTag && n.lastTag == atom.Br.String() {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
		if afterTag && isBlockTag(n.lastTag) {
			if n.last == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	n.out = append(n.out, textEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) endTag(name string) {
	if name == atom.Pre.String() {
		n.inPre = false
	} else if isBlockTag(name) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, "</"...)
	n.out = append(n.out, name...)
	n.out = append(n.out, '>')
	n.lastTag = name
}

type attribute struct {
	key   string
	value string
}

func (n *normalizer) startTag() {
	nameBytes, hasAttr := n.tok.TagName()
	name := string(nameBytes)
	if name == atom.Pre.String() {
		n.inPre = true
	}
	if isBlockTag(name) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, '<')
	n.out = append(n.out, name...)
	var attrs []attribute
	for more := hasAttr; more; {
		var k, v []byte
		k, v, more = n.tok.TagAttr()
		attrs = append(attrs, attribute{string(k), string(v)})
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].key < attrs[j].key
	})
	for _, attr := range attrs {
		n.out = append(n.out, ' ')
		n.out = append(n.out, attr.key...)
		if attr.value != "" {
			n.out = append(n.out, `="`...)
			n.out = append(n.out, html.EscapeString(attr.value)...)
			n.out = append(n.out, '"')
		}
	}
	n.out = append(n.out, '>')
	n.lastTag = name
}

var blockTags = map[atom.Atom]struct{}{
	atom.Article:    {},
	atom.Aside:      {},
	atom.Blockquote: {},
	atom.Body:       {},
	atom.Div:        {},
	atom.Figure:     {},
	atom.Footer:     {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Header:     {},
	atom.Hr:         {},
	atom.Li:         {},
	atom.Ol:         {},
	atom.P:          {},
	atom.Pre:        {},
	atom.Section:    {},
	atom.Table:      {},
	atom.Ul:         {},
}

func isBlockTag(tag string) bool {
	_, ok := blockTags[atom.Lookup([]byte(strings.ToLower(tag)))]
	return ok
}
