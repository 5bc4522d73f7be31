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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewBlockState(t *testing.T) {
	type lineTables struct {
		BMarks  []int
		EMarks  []int
		TShift  []int
		SCount  []int
		LineMax int
	}
	tests := []struct {
		src  string
		want lineTables
	}{
		{
			src: "a\n",
			want: lineTables{
				BMarks:  []int{0, 2},
				EMarks:  []int{1, 2},
				TShift:  []int{0, 0},
				SCount:  []int{0, 0},
				LineMax: 1,
			},
		},
		{
			src: "a\n  b\n\tc",
			want: lineTables{
				BMarks:  []int{0, 2, 6, 8},
				EMarks:  []int{1, 5, 8, 8},
				TShift:  []int{0, 2, 1, 0},
				SCount:  []int{0, 2, 4, 0},
				LineMax: 3,
			},
		},
		{
			src: "\n\n",
			want: lineTables{
				BMarks:  []int{0, 1, 2},
				EMarks:  []int{0, 1, 2},
				TShift:  []int{0, 0, 0},
				SCount:  []int{0, 0, 0},
				LineMax: 2,
			},
		},
	}
	for _, test := range tests {
		s := NewBlockState(test.src, New(nil), new(Env))
		got := lineTables{
			BMarks:  s.BMarks,
			EMarks:  s.EMarks,
			TShift:  s.TShift,
			SCount:  s.SCount,
			LineMax: s.LineMax,
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("NewBlockState(%q) line tables (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestGetLines(t *testing.T) {
	s := NewBlockState("a\n  b\n\tc\n", New(nil), new(Env))
	tests := []struct {
		begin, end, indent int
		keepLastLF         bool
		want               string
	}{
		{0, 3, 0, false, "a\n  b\n\tc"},
		{0, 3, 0, true, "a\n  b\n\tc\n"},
		{1, 3, 2, true, "b\n  c\n"},
		{1, 2, 1, false, " b"},
		{2, 3, 4, false, "c"},
		{2, 2, 0, false, ""},
	}
	for _, test := range tests {
		got := s.GetLines(test.begin, test.end, test.indent, test.keepLastLF)
		if got != test.want {
			t.Errorf("GetLines(%d, %d, %d, %t) = %q; want %q",
				test.begin, test.end, test.indent, test.keepLastLF, got, test.want)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := NewBlockState("a\n  b\n", New(nil), new(Env))
	before := []int{s.BMarks[1], s.TShift[1], s.SCount[1], s.BSCount[1], s.BlkIndent, s.LineMax}

	snap := s.Snapshot(1)
	s.BMarks[1] += 2
	s.TShift[1] = 0
	s.SCount[1] = -1
	s.BSCount[1] = 3
	s.BlkIndent = 4
	s.LineMax = 1
	s.ParentType = "blockquote"
	s.Restore(snap)

	after := []int{s.BMarks[1], s.TShift[1], s.SCount[1], s.BSCount[1], s.BlkIndent, s.LineMax}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("after Restore (-want +got):\n%s", diff)
	}
	if s.ParentType != "root" {
		t.Errorf("ParentType = %q; want \"root\"", s.ParentType)
	}
}

type blockSummary struct {
	Type    string
	Tag     string
	Content string
	Map     []int
}

func TestBlockParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []blockSummary
	}{
		{
			name: "Empty",
			src:  "",
			want: nil,
		},
		{
			name: "Paragraphs",
			src:  "a\nb\n\nc\n",
			want: []blockSummary{
				{Type: "paragraph_open", Tag: "p", Map: []int{0, 2}},
				{Type: "inline", Content: "a\nb", Map: []int{0, 2}},
				{Type: "paragraph_close", Tag: "p"},
				{Type: "paragraph_open", Tag: "p", Map: []int{3, 4}},
				{Type: "inline", Content: "c", Map: []int{3, 4}},
				{Type: "paragraph_close", Tag: "p"},
			},
		},
		{
			name: "Heading",
			src:  "## Hi ##\n",
			want: []blockSummary{
				{Type: "heading_open", Tag: "h2", Map: []int{0, 1}},
				{Type: "inline", Content: "Hi", Map: []int{0, 1}},
				{Type: "heading_close", Tag: "h2"},
			},
		},
		{
			name: "CodeBlock",
			src:  "    x\n\n    y\n",
			want: []blockSummary{
				{Type: "code_block", Tag: "code", Content: "x\n\ny\n", Map: []int{0, 3}},
			},
		},
		{
			name: "Fence",
			src:  "~~~\nx\n~~~\nafter\n",
			want: []blockSummary{
				{Type: "fence", Tag: "code", Content: "x\n", Map: []int{0, 3}},
				{Type: "paragraph_open", Tag: "p", Map: []int{3, 4}},
				{Type: "inline", Content: "after", Map: []int{3, 4}},
				{Type: "paragraph_close", Tag: "p"},
			},
		},
		{
			name: "UnclosedFence",
			src:  "```\nx\n",
			want: []blockSummary{
				{Type: "fence", Tag: "code", Content: "x\n", Map: []int{0, 2}},
			},
		},
		{
			name: "BlockQuoteLazy",
			src:  "> a\nb\n",
			want: []blockSummary{
				{Type: "blockquote_open", Tag: "blockquote", Map: []int{0, 2}},
				{Type: "paragraph_open", Tag: "p", Map: []int{0, 2}},
				{Type: "inline", Content: "a\nb", Map: []int{0, 2}},
				{Type: "paragraph_close", Tag: "p"},
				{Type: "blockquote_close", Tag: "blockquote"},
			},
		},
		{
			name: "ThematicBreakInterruptsParagraph",
			src:  "a\n***\n",
			want: []blockSummary{
				{Type: "paragraph_open", Tag: "p", Map: []int{0, 1}},
				{Type: "inline", Content: "a", Map: []int{0, 1}},
				{Type: "paragraph_close", Tag: "p"},
				{Type: "hr", Tag: "hr", Map: []int{1, 2}},
			},
		},
		{
			name: "ReferenceDefinition",
			src:  "[a]: /url\n",
			want: nil,
		},
	}
	p := New(nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got []blockSummary
			for _, tok := range p.Block.Parse(test.src, p, new(Env)) {
				got = append(got, blockSummary{
					Type:    tok.Type,
					Tag:     tok.Tag,
					Content: tok.Content,
					Map:     tok.Map,
				})
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Parse(%q) (-want +got):\n%s", test.src, diff)
			}
		})
	}
}

func TestParseThematicBreak(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"***", 3},
		{"- - -", 5},
		{"___  ", 3},
		{"_ _", -1},
		{"**-", -1},
		{"--a", -1},
		{"", -1},
	}
	for _, test := range tests {
		if got := parseThematicBreak(test.line); got != test.want {
			t.Errorf("parseThematicBreak(%q) = %d; want %d", test.line, got, test.want)
		}
	}
}

func TestParseATXHeading(t *testing.T) {
	tests := []struct {
		line    string
		level   int
		content string
	}{
		{"# Hi", 1, "Hi"},
		{"## Hi ##", 2, "Hi"},
		{"### Hi #not", 3, "Hi #not"},
		{"# Hi \\#", 1, "Hi \\#"},
		{"#", 1, ""},
		{"# #", 1, ""},
		{"#5 bolt", 0, ""},
		{"#######", 0, ""},
	}
	for _, test := range tests {
		h := parseATXHeading(test.line)
		if h.level != test.level {
			t.Errorf("parseATXHeading(%q).level = %d; want %d", test.line, h.level, test.level)
			continue
		}
		if h.level == 0 {
			continue
		}
		if got := test.line[h.contentStart:h.contentEnd]; got != test.content {
			t.Errorf("parseATXHeading(%q) content = %q; want %q", test.line, got, test.content)
		}
	}
}
