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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"zombiezen.com/go/marknote"
)

type tokenSummary struct {
	Type string
	Meta *Meta
}

func summarize(tokens []*marknote.Token) []tokenSummary {
	var s []tokenSummary
	for _, tok := range tokens {
		meta, _ := tok.Meta.(*Meta)
		s = append(s, tokenSummary{Type: tok.Type, Meta: meta})
	}
	return s
}

func TestTail(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []tokenSummary
	}{
		{
			name: "Empty",
			src:  "",
			want: nil,
		},
		{
			name: "NoFootnotes",
			src:  "Hello\n",
			want: []tokenSummary{
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: "paragraph_close"},
			},
		},
		{
			name: "UndefinedReference",
			src:  "[^x]\n",
			want: []tokenSummary{
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: "paragraph_close"},
			},
		},
		{
			name: "RepeatedReference",
			src:  "[^x][^x]\n\n[^x]: Body\n",
			want: []tokenSummary{
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: "paragraph_close"},
				{Type: TypeBlockOpen},
				{Type: TypeOpen, Meta: &Meta{ID: 0, Label: "x"}},
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: TypeAnchor, Meta: &Meta{ID: 0, SubID: 0, Label: "x"}},
				{Type: TypeAnchor, Meta: &Meta{ID: 0, SubID: 1, Label: "x"}},
				{Type: "paragraph_close"},
				{Type: TypeClose},
				{Type: TypeBlockClose},
			},
		},
		{
			name: "InlineFootnote",
			src:  "A^[b]\n",
			want: []tokenSummary{
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: "paragraph_close"},
				{Type: TypeBlockOpen},
				{Type: TypeOpen, Meta: &Meta{ID: 0}},
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: TypeAnchor, Meta: &Meta{ID: 0}},
				{Type: "paragraph_close"},
				{Type: TypeClose},
				{Type: TypeBlockClose},
			},
		},
		{
			name: "BodyNotEndingInParagraph",
			src:  "[^c]\n\n[^c]:\n    ```\n    code\n    ```\n",
			want: []tokenSummary{
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: "paragraph_close"},
				{Type: TypeBlockOpen},
				{Type: TypeOpen, Meta: &Meta{ID: 0, Label: "c"}},
				{Type: "fence"},
				{Type: TypeAnchor, Meta: &Meta{ID: 0, Label: "c"}},
				{Type: TypeClose},
				{Type: TypeBlockClose},
			},
		},
		{
			name: "DefinitionOnly",
			src:  "[^d]: Body\n",
			want: []tokenSummary{
				{Type: TypeBlockOpen},
				{Type: TypeOpen, Meta: &Meta{ID: 0, Label: "d"}},
				{Type: "paragraph_open"},
				{Type: "inline"},
				{Type: TypeAnchor, Meta: &Meta{ID: 0, Label: "d"}},
				{Type: "paragraph_close"},
				{Type: TypeClose},
				{Type: TypeBlockClose},
			},
		},
	}
	p := newParser(t, nil, nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := summarize(p.Parse(test.src, nil))
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("tokens for %q (-want +got):\n%s", test.src, diff)
			}
		})
	}
}

func TestExtractDefinitions(t *testing.T) {
	tok := func(typ string, label string) *marknote.Token {
		tk := marknote.NewToken(typ, "", marknote.SelfClosing)
		if label != "" {
			tk.Meta = &Meta{Label: label}
		}
		return tk
	}
	text := func(content string) *marknote.Token {
		tk := marknote.NewToken("text", "", marknote.SelfClosing)
		tk.Content = content
		return tk
	}
	tokens := []*marknote.Token{
		text("before"),
		tok(TypeReferenceOpen, "a"),
		text("a1"),
		tok(TypeReferenceOpen, "b"),
		text("b1"),
		tok(TypeReferenceClose, "b"),
		text("a2"),
		tok(TypeReferenceClose, "a"),
		text("between"),
		tok(TypeReferenceOpen, "a"),
		text("a-again"),
		tok(TypeReferenceClose, "a"),
		text("after"),
	}
	kept, bodies := extractDefinitions(tokens)

	contents := func(tokens []*marknote.Token) []string {
		var s []string
		for _, tok := range tokens {
			s = append(s, tok.Content)
		}
		return s
	}
	if diff := cmp.Diff([]string{"before", "between", "after"}, contents(kept)); diff != "" {
		t.Errorf("kept (-want +got):\n%s", diff)
	}
	gotBodies := make(map[string][]string)
	for label, body := range bodies {
		gotBodies[label] = contents(body)
	}
	wantBodies := map[string][]string{
		"a": {"a-again"},
		"b": {"b1"},
	}
	if diff := cmp.Diff(wantBodies, gotBodies); diff != "" {
		t.Errorf("bodies (-want +got):\n%s", diff)
	}
}
