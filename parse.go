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

// Package marknote provides a Markdown parser
// that produces a flat stream of tokens
// and an HTML renderer for that stream.
// The block, inline, and core passes and the renderer
// are driven by ordered rule chains that extensions can add to
// (see [Plugin]).
package marknote

import (
	"fmt"
	"io"
	"strings"
)

// defaultMaxNesting is the nesting limit used when Options.MaxNesting is zero.
const defaultMaxNesting = 100

// Options is the set of parser and renderer settings.
type Options struct {
	// XHTMLOut causes self-closing tags to be rendered with a trailing slash,
	// like "<br />".
	XHTMLOut bool
	// SoftBreak determines how soft line breaks are rendered.
	SoftBreak SoftBreakBehavior
	// MaxNesting is the maximum nesting level of tokens.
	// Content nested deeper than this is not parsed further.
	// Zero means a default of 100.
	MaxNesting int
	// If Highlight is not nil, it is called with the content of each fenced code block,
	// the first word of its info string, and the rest of the info string.
	// It returns escaped HTML to place inside the block's code element,
	// or the empty string to escape the content as usual.
	// Output that starts with "<pre" replaces the whole block.
	Highlight func(code, lang, attrs string) string
}

func (opts *Options) maxNesting() int {
	if opts == nil || opts.MaxNesting <= 0 {
		return defaultMaxNesting
	}
	return opts.MaxNesting
}

// A Plugin modifies a [Parser] to recognize and render additional syntax.
type Plugin func(p *Parser) error

// Parser converts Markdown source into tokens and renders them as HTML.
// A Parser must not be modified after it is first used to parse,
// but may then be used from multiple goroutines simultaneously
// as long as each document has its own [Env].
type Parser struct {
	Options  Options
	Core     *CoreParser
	Block    *BlockParser
	Inline   *InlineParser
	Renderer *Renderer
}

// New returns a new parser with the default rule chains.
// opts may be nil to use the default options.
func New(opts *Options) *Parser {
	p := &Parser{
		Core:   newCoreParser(),
		Block:  newBlockParser(),
		Inline: newInlineParser(),
	}
	if opts != nil {
		p.Options = *opts
	}
	p.Renderer = newRenderer(&p.Options)
	return p
}

// Use applies the plugins to the parser in order.
func (p *Parser) Use(plugins ...Plugin) error {
	for _, plugin := range plugins {
		if err := plugin(p); err != nil {
			return fmt.Errorf("marknote: use plugin: %w", err)
		}
	}
	return nil
}

// Parse splits src into block tokens
// and parses the content of each "inline" token into its Children.
// env may be nil, in which case a new [Env] is used.
func (p *Parser) Parse(src string, env *Env) []*Token {
	state := &CoreState{
		Src:    src,
		Env:    envOrNew(env),
		Parser: p,
	}
	p.Core.Process(state)
	return state.Tokens
}

// ParseInline parses src as a single paragraph's inline content,
// skipping the block rules.
// The result is a single "inline" token.
func (p *Parser) ParseInline(src string, env *Env) []*Token {
	state := &CoreState{
		Src:        src,
		Env:        envOrNew(env),
		Parser:     p,
		InlineMode: true,
	}
	p.Core.Process(state)
	return state.Tokens
}

// Render parses src and returns the rendered HTML.
func (p *Parser) Render(src string, env *Env) string {
	env = envOrNew(env)
	return string(p.Renderer.Append(nil, p.Parse(src, env), env))
}

// RenderInline parses src as inline content and returns the rendered HTML
// without a paragraph wrapper.
func (p *Parser) RenderInline(src string, env *Env) string {
	env = envOrNew(env)
	return string(p.Renderer.Append(nil, p.ParseInline(src, env), env))
}

// RenderHTML parses src and writes the rendered HTML to w.
func (p *Parser) RenderHTML(w io.Writer, src string, env *Env) error {
	env = envOrNew(env)
	return p.Renderer.Render(w, p.Parse(src, env), env)
}

func envOrNew(env *Env) *Env {
	if env == nil {
		return new(Env)
	}
	return env
}

// CoreState is the state of a single document as it passes through the core rules.
type CoreState struct {
	Src    string
	Env    *Env
	Tokens []*Token
	Parser *Parser
	// InlineMode is true if the document should be parsed
	// as a single block of inline content.
	InlineMode bool
}

// A CoreRule is a whole-document pass.
type CoreRule func(state *CoreState)

// CoreParser runs the whole-document passes in order.
type CoreParser struct {
	Ruler Ruler[CoreRule]
}

func newCoreParser() *CoreParser {
	cp := new(CoreParser)
	cp.Ruler.Push("normalize", normalizeRule)
	cp.Ruler.Push("block", blockRule)
	cp.Ruler.Push("inline", inlineRule)
	return cp
}

// Process runs every enabled core rule on state.
func (cp *CoreParser) Process(state *CoreState) {
	for _, rule := range cp.Ruler.Rules("") {
		rule(state)
	}
}

var newlineReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\x00", "�",
)

// normalizeRule replaces [line endings] with line feeds
// and [insecure characters] with the replacement character.
//
// [line endings]: https://spec.commonmark.org/0.30/#line-ending
// [insecure characters]: https://spec.commonmark.org/0.30/#insecure-characters
func normalizeRule(state *CoreState) {
	state.Src = newlineReplacer.Replace(state.Src)
}

func blockRule(state *CoreState) {
	if state.InlineMode {
		tok := NewToken("inline", "", SelfClosing)
		tok.Content = state.Src
		tok.Map = []int{0, 1}
		tok.Children = []*Token{}
		state.Tokens = append(state.Tokens, tok)
		return
	}
	state.Tokens = state.Parser.Block.Parse(state.Src, state.Parser, state.Env)
}

func inlineRule(state *CoreState) {
	for _, tok := range state.Tokens {
		if tok.Type == "inline" {
			tok.Children = state.Parser.Inline.Parse(tok.Content, state.Parser, state.Env)
		}
	}
}
