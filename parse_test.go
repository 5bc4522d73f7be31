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
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestInsecureCharacters(t *testing.T) {
	const input = "Hello,\x00World"
	const want = "Hello,\ufffdWorld"

	tokens := New(nil).Parse(input, nil)
	if len(tokens) != 3 {
		t.Fatalf("len(tokens) = %d; want 3", len(tokens))
	}
	if got := tokens[1].Type; got != "inline" {
		t.Fatalf("tokens[1].Type = %q; want \"inline\"", got)
	}
	if got := tokens[1].Content; got != want {
		t.Errorf("tokens[1].Content = %q; want %q", got, want)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Empty",
			input: "",
			want:  "",
		},
		{
			name:  "Blank",
			input: "\n\n",
			want:  "",
		},
		{
			name:  "Paragraph",
			input: "Hello, **World**!\n",
			want:  "<p>Hello, <strong>World</strong>!</p>\n",
		},
		{
			name:  "CRLF",
			input: "a\r\nb\rc",
			want:  "<p>a\nb\nc</p>\n",
		},
		{
			name:  "Escaping",
			input: `a < b & "c"` + "\n",
			want:  "<p>a &lt; b &amp; &quot;c&quot;</p>\n",
		},
		{
			name:  "RawHTMLIsText",
			input: "<b>hi</b>\n",
			want:  "<p>&lt;b&gt;hi&lt;/b&gt;</p>\n",
		},
		{
			name:  "Heading",
			input: "# Title\n\nBody\n",
			want:  "<h1>Title</h1>\n<p>Body</p>\n",
		},
		{
			name:  "CodeBlock",
			input: "    a < b\n",
			want:  "<pre><code>a &lt; b\n</code></pre>\n",
		},
		{
			name:  "Fence",
			input: "```go extra\nx := 1\n```\n",
			want:  "<pre><code class=\"language-go\">x := 1\n</code></pre>\n",
		},
		{
			name:  "BlockQuote",
			input: "> quote\n",
			want:  "<blockquote>\n<p>quote</p>\n</blockquote>\n",
		},
		{
			name:  "ThematicBreak",
			input: "***\n",
			want:  "<hr>\n",
		},
		{
			name:  "InlineLink",
			input: `[a](http://x.com "t")` + "\n",
			want:  `<p><a href="http://x.com" title="t">a</a></p>` + "\n",
		},
		{
			name:  "ReferenceLink",
			input: "[a][r]\n\n[r]: /url\n",
			want:  `<p><a href="/url">a</a></p>` + "\n",
		},
		{
			name:  "FirstReferenceWins",
			input: "[r]\n\n[R]: /first\n[r]: /second\n",
			want:  `<p><a href="/first">r</a></p>` + "\n",
		},
		{
			name:  "Image",
			input: "![alt *x*](/i.png)\n",
			want:  `<p><img src="/i.png" alt="alt x"></p>` + "\n",
		},
		{
			name:  "CodeSpan",
			input: "`a<b`\n",
			want:  "<p><code>a&lt;b</code></p>\n",
		},
		{
			name:  "HardBreak",
			input: "a  \nb\n",
			want:  "<p>a<br>\nb</p>\n",
		},
		{
			name:  "UnsafeLink",
			input: "[x](javascript:alert(1))\n",
			want:  "<p>[x](javascript:alert(1))</p>\n",
		},
	}
	p := New(nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := p.Render(test.input, nil)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Render(%q) (-want +got):\n%s", test.input, diff)
			}
		})
	}
}

func TestRenderInline(t *testing.T) {
	p := New(nil)
	tokens := p.ParseInline("*a* b\n\nc", nil)
	if len(tokens) != 1 || tokens[0].Type != "inline" {
		t.Fatalf("ParseInline returned %d tokens; want a single inline token", len(tokens))
	}
	if got, want := p.RenderInline("*a* b", nil), "<em>a</em> b"; got != want {
		t.Errorf("RenderInline(...) = %q; want %q", got, want)
	}
	// Block syntax is not recognized in inline mode.
	if got, want := p.RenderInline("# a", nil), "# a"; got != want {
		t.Errorf("RenderInline(\"# a\") = %q; want %q", got, want)
	}
}

func TestRenderHTML(t *testing.T) {
	p := New(nil)
	sb := new(strings.Builder)
	if err := p.RenderHTML(sb, "Hello\n", nil); err != nil {
		t.Fatal("RenderHTML:", err)
	}
	if got, want := sb.String(), "<p>Hello</p>\n"; got != want {
		t.Errorf("RenderHTML(...) wrote %q; want %q", got, want)
	}

	errWrite := errors.New("bork")
	err := p.RenderHTML(errWriter{errWrite}, "Hello\n", nil)
	if !errors.Is(err, errWrite) {
		t.Errorf("RenderHTML(failing writer) = %v; want %v", err, errWrite)
	}
}

type errWriter struct {
	err error
}

func (w errWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestEnvReferences(t *testing.T) {
	p := New(nil)
	env := new(Env)
	p.Parse("[Foo  Bar]: /u 'title'\n", env)
	want := ReferenceMap{
		"foo bar": {Destination: "/u", Title: "title", TitlePresent: true},
	}
	if diff := cmp.Diff(want, env.References); diff != "" {
		t.Errorf("env.References (-want +got):\n%s", diff)
	}
}

func TestEnvValues(t *testing.T) {
	type key struct{}
	var nilEnv *Env
	if got := nilEnv.Value(key{}); got != nil {
		t.Errorf("nil Env Value = %v; want <nil>", got)
	}
	env := new(Env)
	if got := env.Value(key{}); got != nil {
		t.Errorf("new Env Value = %v; want <nil>", got)
	}
	env.SetValue(key{}, 42)
	if got := env.Value(key{}); got != 42 {
		t.Errorf("Value after SetValue = %v; want 42", got)
	}
}

func TestUse(t *testing.T) {
	p := New(nil)
	var calls []string
	plugin := func(name string, err error) Plugin {
		return func(p *Parser) error {
			calls = append(calls, name)
			return err
		}
	}
	errBoom := errors.New("boom")
	err := p.Use(plugin("a", nil), plugin("b", errBoom), plugin("c", nil))
	if !errors.Is(err, errBoom) {
		t.Errorf("Use(...) = %v; want %v", err, errBoom)
	}
	if diff := cmp.Diff([]string{"a", "b"}, calls); diff != "" {
		t.Errorf("plugins called (-want +got):\n%s", diff)
	}
}

func TestCustomRules(t *testing.T) {
	p := New(nil)
	err := p.Use(func(p *Parser) error {
		p.Core.Ruler.Push("shout", func(state *CoreState) {
			for _, tok := range state.Tokens {
				for _, child := range tok.Children {
					if child.Type == "text" {
						child.Content = strings.ToUpper(child.Content)
					}
				}
			}
		})
		return p.Block.Ruler.Disable("heading")
	})
	if err != nil {
		t.Fatal(err)
	}
	got := p.Render("# hi\n", nil)
	if want := "<p># HI</p>\n"; got != want {
		t.Errorf("Render(...) = %q; want %q", got, want)
	}
}

func TestMaxNesting(t *testing.T) {
	p := New(nil)
	got := p.Render(strings.Repeat("> ", 1000)+"x\n", nil)
	if n := strings.Count(got, "<blockquote>"); n != defaultMaxNesting {
		t.Errorf("rendered %d block quotes; want %d", n, defaultMaxNesting)
	}
	if n := strings.Count(got, "</blockquote>"); n != defaultMaxNesting {
		t.Errorf("rendered %d block quote ends; want %d", n, defaultMaxNesting)
	}
}

func FuzzRender(f *testing.F) {
	f.Add("Hello, **World**!\n")
	f.Add("# Heading\n\n> quote\n> *lazy\ncontinues*\n")
	f.Add("[a][b]\n\n[b]: /url \"title\"\n")
	f.Add("```\nunclosed\n")
	f.Add("    code\n\n\tmore code\n")
	f.Add("![img [nested](/x)](/y) `code` \\* a  \nb")

	p := New(nil)
	f.Fuzz(func(t *testing.T, markdown string) {
		if !utf8.ValidString(markdown) {
			t.Skip("Invalid UTF-8")
		}
		env := new(Env)
		tokens := p.Parse(markdown, env)
		// Carriage returns are normalized into line feeds before parsing.
		lines := strings.Count(markdown, "\n") + strings.Count(markdown, "\r") + 1
		level := 0
		for i, tok := range tokens {
			if tok.Map != nil && (tok.Map[0] < 0 || tok.Map[0] > tok.Map[1] || tok.Map[1] > lines) {
				t.Errorf("tokens[%d] (%s).Map = %v; want range within %d lines", i, tok.Type, tok.Map, lines)
			}
			if tok.Nesting == Closing {
				level--
			}
			if tok.Level != level {
				t.Errorf("tokens[%d] (%s).Level = %d; want %d", i, tok.Type, tok.Level, level)
			}
			if tok.Nesting == Opening {
				level++
			}
		}
		if level != 0 {
			t.Errorf("unbalanced tokens: final level = %d", level)
		}
		p.Renderer.Append(nil, tokens, env)
	})
}
