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
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

// A RenderFunc appends the HTML for tokens[idx] to dst
// and returns the resulting byte slice.
type RenderFunc func(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte

// A Renderer converts a token stream into HTML.
//
// # Security considerations
//
// The default rules never emit raw HTML from the source
// and drop link destinations with dangerous schemes,
// but the output should still be sent through an HTML sanitizer
// when rendering untrusted inputs with extensions installed.
type Renderer struct {
	// Options points to the options of the owning parser.
	Options *Options
	// Rules maps token types to the functions that render them.
	// Tokens with no rule are rendered by [*Renderer.AppendToken].
	Rules map[string]RenderFunc
}

func newRenderer(opts *Options) *Renderer {
	return &Renderer{
		Options: opts,
		Rules: map[string]RenderFunc{
			"text":        renderText,
			"code_inline": renderCodeInline,
			"code_block":  renderCodeBlock,
			"fence":       renderFence,
			"image":       renderImage,
			"hardbreak":   renderHardBreak,
			"softbreak":   renderSoftBreak,
		},
	}
}

// Render writes the HTML for a block token stream to w.
func (r *Renderer) Render(w io.Writer, tokens []*Token, env *Env) error {
	if _, err := w.Write(r.Append(nil, tokens, env)); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// Append appends the HTML for a block token stream to dst
// and returns the resulting byte slice.
func (r *Renderer) Append(dst []byte, tokens []*Token, env *Env) []byte {
	for i, tok := range tokens {
		if tok.Type == "inline" {
			dst = r.AppendInline(dst, tok.Children, env)
			continue
		}
		dst = r.appendOne(dst, tokens, i, env)
	}
	return dst
}

// AppendInline appends the HTML for an inline token stream to dst
// and returns the resulting byte slice.
func (r *Renderer) AppendInline(dst []byte, tokens []*Token, env *Env) []byte {
	for i := range tokens {
		dst = r.appendOne(dst, tokens, i, env)
	}
	return dst
}

func (r *Renderer) appendOne(dst []byte, tokens []*Token, idx int, env *Env) []byte {
	if rule := r.Rules[tokens[idx].Type]; rule != nil {
		return rule(dst, tokens, idx, env, r)
	}
	return r.AppendToken(dst, tokens, idx)
}

// AppendToken appends the default rendering of tokens[idx]:
// an opening or closing tag named by the token's Tag field
// with the token's attributes.
func (r *Renderer) AppendToken(dst []byte, tokens []*Token, idx int) []byte {
	tok := tokens[idx]
	if tok.Hidden {
		return dst
	}
	// Insert a line break before a block tag that follows hidden content.
	if tok.Block && tok.Nesting != Closing && idx > 0 && tokens[idx-1].Hidden {
		dst = append(dst, '\n')
	}
	if tok.Nesting == Closing {
		dst = append(dst, "</"...)
	} else {
		dst = append(dst, '<')
	}
	dst = append(dst, tok.Tag...)
	dst = r.AppendAttrs(dst, tok)
	if tok.Nesting == SelfClosing && r.xhtml() {
		dst = append(dst, " /"...)
	}

	needLF := false
	if tok.Block {
		needLF = true
		if tok.Nesting == Opening && idx+1 < len(tokens) {
			next := tokens[idx+1]
			if next.Type == "inline" || next.Hidden ||
				(next.Nesting == Closing && next.Tag == tok.Tag) {
				// Keep the content on the same line as the opening tag.
				needLF = false
			}
		}
	}
	if needLF {
		return append(dst, ">\n"...)
	}
	return append(dst, '>')
}

// AppendAttrs appends the escaped attributes of tok to dst,
// each preceded by a space.
func (r *Renderer) AppendAttrs(dst []byte, tok *Token) []byte {
	for _, a := range tok.Attrs {
		dst = append(dst, ' ')
		dst = escapeHTML(dst, a.Name)
		dst = append(dst, `="`...)
		dst = escapeHTML(dst, a.Value)
		dst = append(dst, '"')
	}
	return dst
}

// AppendInlineText appends the plain text of an inline token stream to dst,
// as used for image alt text.
func (r *Renderer) AppendInlineText(dst []byte, tokens []*Token) []byte {
	for _, tok := range tokens {
		switch tok.Type {
		case "text":
			dst = append(dst, tok.Content...)
		case "image":
			dst = r.AppendInlineText(dst, tok.Children)
		case "softbreak", "hardbreak":
			dst = append(dst, '\n')
		}
	}
	return dst
}

func (r *Renderer) xhtml() bool {
	return r.Options != nil && r.Options.XHTMLOut
}

func renderText(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	return escapeHTML(dst, tokens[idx].Content)
}

func renderCodeInline(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	tok := tokens[idx]
	dst = append(dst, '<')
	dst = append(dst, atom.Code.String()...)
	dst = r.AppendAttrs(dst, tok)
	dst = append(dst, '>')
	dst = escapeHTML(dst, tok.Content)
	return appendCloseTag(dst, atom.Code)
}

func renderCodeBlock(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	tok := tokens[idx]
	dst = append(dst, '<')
	dst = append(dst, atom.Pre.String()...)
	dst = r.AppendAttrs(dst, tok)
	dst = append(dst, '>')
	dst = appendOpenTag(dst, atom.Code)
	dst = escapeHTML(dst, tok.Content)
	dst = appendCloseTag(dst, atom.Code)
	dst = appendCloseTag(dst, atom.Pre)
	return append(dst, '\n')
}

func renderFence(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	tok := tokens[idx]
	info := strings.TrimSpace(unescapeAll(tok.Info))
	langName := info
	if i := strings.IndexAny(info, " \t"); i >= 0 {
		langName = info[:i]
	}
	var highlighted string
	if r.Options != nil && r.Options.Highlight != nil {
		langAttrs := strings.TrimLeft(info[len(langName):], " \t")
		highlighted = r.Options.Highlight(tok.Content, langName, langAttrs)
		if strings.HasPrefix(highlighted, "<pre") {
			return append(append(dst, highlighted...), '\n')
		}
	}
	dst = appendOpenTag(dst, atom.Pre)
	dst = append(dst, '<')
	dst = append(dst, atom.Code.String()...)
	dst = r.AppendAttrs(dst, tok)
	if langName != "" {
		dst = append(dst, ` class="language-`...)
		dst = escapeHTML(dst, langName)
		dst = append(dst, '"')
	}
	dst = append(dst, '>')
	if highlighted != "" {
		dst = append(dst, highlighted...)
	} else {
		dst = escapeHTML(dst, tok.Content)
	}
	dst = appendCloseTag(dst, atom.Code)
	dst = appendCloseTag(dst, atom.Pre)
	return append(dst, '\n')
}

func renderImage(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	tok := tokens[idx]
	tok.AttrSet("alt", string(r.AppendInlineText(nil, tok.Children)))
	return r.AppendToken(dst, tokens, idx)
}

func renderHardBreak(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	if r.xhtml() {
		return append(dst, "<br />\n"...)
	}
	return append(dst, "<br>\n"...)
}

func renderSoftBreak(dst []byte, tokens []*Token, idx int, env *Env, r *Renderer) []byte {
	behavior := SoftBreakPreserve
	if r.Options != nil {
		behavior = r.Options.SoftBreak
	}
	switch behavior {
	case SoftBreakSpace:
		return append(dst, ' ')
	case SoftBreakHarden:
		return renderHardBreak(dst, tokens, idx, env, r)
	default:
		return append(dst, '\n')
	}
}

func appendOpenTag(dst []byte, name atom.Atom) []byte {
	dst = append(dst, '<')
	dst = append(dst, name.String()...)
	return append(dst, '>')
}

func appendCloseTag(dst []byte, name atom.Atom) []byte {
	dst = append(dst, "</"...)
	dst = append(dst, name.String()...)
	return append(dst, '>')
}

// EscapeHTML appends the HTML-escaped version of src to dst.
func EscapeHTML(dst []byte, src string) []byte {
	return escapeHTML(dst, src)
}

func escapeHTML(dst []byte, src string) []byte {
	verbatimStart := 0
	for i := 0; i < len(src); i++ {
		var esc string
		switch src[i] {
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		case '"':
			esc = "&quot;"
		default:
			continue
		}
		dst = append(dst, src[verbatimStart:i]...)
		dst = append(dst, esc...)
		verbatimStart = i + 1
	}
	return append(dst, src[verbatimStart:]...)
}

// SoftBreakBehavior is an enumeration of rendering styles for [soft line breaks].
//
// [soft line breaks]: https://spec.commonmark.org/0.30/#soft-line-breaks
type SoftBreakBehavior int

const (
	// SoftBreakPreserve indicates that a soft line break should be rendered as-is.
	SoftBreakPreserve SoftBreakBehavior = iota
	// SoftBreakSpace indicates that a soft line break should be rendered as a space.
	SoftBreakSpace
	// SoftBreakHarden indicates that a soft line break should be rendered as a hard line break.
	SoftBreakHarden
)

// ParseSoftBreakBehavior converts the lowercase name of a behavior
// ("preserve", "space", or "harden") into its value.
func ParseSoftBreakBehavior(s string) (SoftBreakBehavior, error) {
	switch s {
	case "", "preserve":
		return SoftBreakPreserve, nil
	case "space":
		return SoftBreakSpace, nil
	case "harden":
		return SoftBreakHarden, nil
	default:
		return 0, fmt.Errorf("unknown soft break behavior %q", s)
	}
}

// String returns the lowercase name of the behavior.
func (b SoftBreakBehavior) String() string {
	switch b {
	case SoftBreakPreserve:
		return "preserve"
	case SoftBreakSpace:
		return "space"
	case SoftBreakHarden:
		return "harden"
	default:
		return fmt.Sprintf("SoftBreakBehavior(%d)", int(b))
	}
}

// NormalizeURI percent-encodes any characters in a string
// that are not reserved or unreserved URI characters.
// This is commonly used for transforming link destinations
// into strings suitable for href or src attributes.
func NormalizeURI(s string) string {
	// RFC 3986 reserved and unreserved characters.
	const safeSet = `;/?:@&=+$,-_.!~*'()#`

	sb := new(strings.Builder)
	sb.Grow(len(s))
	skip := 0
	var buf [utf8.UTFMax]byte
	for i, c := range s {
		if skip > 0 {
			skip--
			sb.WriteRune(c)
			continue
		}
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				skip = 2
				sb.WriteByte('%')
			} else {
				sb.WriteString("%25")
			}
		case (c < 0x80 && (isASCIILetter(byte(c)) || isASCIIDigit(byte(c)))) || strings.ContainsRune(safeSet, c):
			sb.WriteRune(c)
		default:
			n := utf8.EncodeRune(buf[:], c)
			for _, b := range buf[:n] {
				sb.WriteByte('%')
				sb.WriteByte(urlHexDigit(b >> 4))
				sb.WriteByte(urlHexDigit(b & 0x0f))
			}
		}
	}
	return sb.String()
}

func isHex(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || isASCIIDigit(c)
}

func urlHexDigit(x byte) byte {
	switch {
	case x < 0xa:
		return '0' + x
	case x < 0x10:
		return 'A' + x - 0xa
	default:
		panic("out of bounds")
	}
}
