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

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"foo", "foo"},
		{"  Foo \t Bar\n", "foo bar"},
		{"ÄBC", "äbc"},
		{"", ""},
	}
	for _, test := range tests {
		if got := NormalizeReference(test.label); got != test.want {
			t.Errorf("NormalizeReference(%q) = %q; want %q", test.label, got, test.want)
		}
	}
}

func TestParseLinkReferenceDefinition(t *testing.T) {
	tests := []struct {
		text  string
		label string
		def   LinkDefinition
		n     int
	}{
		{
			text:  `[foo]: /url "title"` + "\n",
			label: "foo",
			def:   LinkDefinition{Destination: "/url", Title: "title", TitlePresent: true},
			n:     20,
		},
		{
			text:  "[foo]: /url\nnext",
			label: "foo",
			def:   LinkDefinition{Destination: "/url"},
			n:     12,
		},
		{
			text:  "[foo]:\n<my url>\n'multi\nline'",
			label: "foo",
			def:   LinkDefinition{Destination: "my url", Title: "multi\nline", TitlePresent: true},
			n:     28,
		},
		{
			// A title followed by other text is not a title.
			text:  "[foo]: /url\n'title' x",
			label: "foo",
			def:   LinkDefinition{Destination: "/url"},
			n:     12,
		},
		{text: "[foo]:", n: -1},
		{text: "[]: /u", n: -1},
		{text: "[ ]: /u", n: -1},
		{text: "[a]: /u x", n: -1},
		{text: "[a] /u", n: -1},
		{text: "[a[b]]: /u", n: -1},
		{text: "a: /u", n: -1},
	}
	for _, test := range tests {
		label, def, n := parseLinkReferenceDefinition(test.text)
		if n != test.n {
			t.Errorf("parseLinkReferenceDefinition(%q) n = %d; want %d", test.text, n, test.n)
			continue
		}
		if n < 0 {
			continue
		}
		if label != test.label {
			t.Errorf("parseLinkReferenceDefinition(%q) label = %q; want %q", test.text, label, test.label)
		}
		if diff := cmp.Diff(test.def, def); diff != "" {
			t.Errorf("parseLinkReferenceDefinition(%q) definition (-want +got):\n%s", test.text, diff)
		}
	}
}
