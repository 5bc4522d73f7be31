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

// Nesting is the effect a [Token] has on the nesting level of the stream.
type Nesting int8

const (
	// Closing tokens end an element opened by an earlier [Opening] token.
	Closing Nesting = -1
	// SelfClosing tokens do not change the nesting level.
	SelfClosing Nesting = 0
	// Opening tokens start an element.
	Opening Nesting = 1
)

// Attr is a single HTML attribute on a [Token].
type Attr struct {
	Name  string
	Value string
}

// A Token is a single element of the flat token stream
// produced by a [Parser].
// Block-level tokens form the top-level stream;
// tokens of type "inline" hold their parsed content in Children.
type Token struct {
	// Type is the token type, like "paragraph_open" or "text".
	Type string
	// Tag is the HTML tag name, like "p".
	Tag   string
	Attrs []Attr
	// Map is the [start, end) source line range for block tokens.
	// It is nil for inline tokens.
	Map     []int
	Nesting Nesting
	// Level is the nesting level of the token.
	Level    int
	Children []*Token
	// Content is the raw source text for self-closing tokens
	// like "text", "code_inline", or "inline".
	Content string
	// Markup is the source delimiter, like "*" or "```".
	Markup string
	// Info is the fence info string.
	Info string
	// Meta is an arbitrary value owned by the rule that created the token.
	Meta any
	// Block is true for block-level tokens.
	Block bool
	// Hidden tokens are skipped by the renderer.
	Hidden bool
}

// NewToken returns a new token with the given type, tag, and nesting.
func NewToken(typ, tag string, nesting Nesting) *Token {
	return &Token{
		Type:    typ,
		Tag:     tag,
		Nesting: nesting,
	}
}

// AttrIndex returns the index of the attribute with the given name
// or -1 if it is not present.
func (tok *Token) AttrIndex(name string) int {
	for i, a := range tok.Attrs {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// AttrGet returns the value of the named attribute
// and whether it was present.
func (tok *Token) AttrGet(name string) (string, bool) {
	i := tok.AttrIndex(name)
	if i < 0 {
		return "", false
	}
	return tok.Attrs[i].Value, true
}

// AttrSet sets the named attribute, replacing any existing value.
func (tok *Token) AttrSet(name, value string) {
	if i := tok.AttrIndex(name); i >= 0 {
		tok.Attrs[i].Value = value
		return
	}
	tok.Attrs = append(tok.Attrs, Attr{Name: name, Value: value})
}

// AttrPush appends an attribute without checking for duplicates.
func (tok *Token) AttrPush(name, value string) {
	tok.Attrs = append(tok.Attrs, Attr{Name: name, Value: value})
}
