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

// Package footnote adds footnotes to a [marknote.Parser].
//
// Three forms of syntax are recognized:
//
//	Here is a reference.[^note]
//	Here is an inline footnote.^[Its text is given in place.]
//
//	[^note]: The definition of the note.
//	    Indented lines continue the definition.
//
// Every footnote that is used or defined is rendered
// in a numbered list at the end of the document,
// with a back-reference link for each use.
package footnote

import (
	"fmt"

	"zombiezen.com/go/marknote"
)

// Token types produced by the plugin.
const (
	// TypeReferenceOpen and TypeReferenceClose bracket the body of a definition
	// in the block token stream.
	// They are removed by the tail pass and never reach the renderer.
	TypeReferenceOpen  = "footnote_reference_open"
	TypeReferenceClose = "footnote_reference_close"

	TypeRef        = "footnote_ref"
	TypeBlockOpen  = "footnote_block_open"
	TypeBlockClose = "footnote_block_close"
	TypeOpen       = "footnote_open"
	TypeClose      = "footnote_close"
	TypeAnchor     = "footnote_anchor"
)

// Meta is the metadata attached to every footnote token.
type Meta struct {
	// ID is the zero-based index of the footnote
	// in the order the footnotes were first used.
	ID int
	// SubID is the zero-based index of a use among all the uses
	// of the same footnote.
	SubID int
	// Label is the label of the footnote.
	// It is empty for inline footnotes.
	Label string
}

// Options is the set of rendering options for footnotes.
// The zero value renders the same markup as the markdown-it-footnote plugin.
type Options struct {
	// AnchorName returns the fragment identifier suffix of a footnote.
	// If nil, [AnchorName] is used.
	AnchorName func(meta *Meta, env *marknote.Env) string
	// Caption returns the visible text of a footnote reference.
	// If nil, [Caption] is used.
	Caption func(meta *Meta) string
	// BackrefLabel returns the accessible label
	// of a back-reference link.
	// If nil or if it returns the empty string,
	// back-reference links have no aria-label attribute.
	BackrefLabel func(meta *Meta) string
}

// Plugin returns a plugin that adds the footnote rules to a parser.
// opts may be nil to use the default options.
func Plugin(opts *Options) marknote.Plugin {
	r := new(renderer)
	if opts != nil {
		r.opts = *opts
	}
	return func(p *marknote.Parser) error {
		if err := p.Block.Ruler.Before("reference", "footnote_def", definitionRule, "paragraph", "reference"); err != nil {
			return fmt.Errorf("footnote: %w", err)
		}
		if err := p.Inline.Ruler.After("image", "footnote_inline", inlineFootnoteRule); err != nil {
			return fmt.Errorf("footnote: %w", err)
		}
		if err := p.Inline.Ruler.After("footnote_inline", "footnote_ref", referenceRule); err != nil {
			return fmt.Errorf("footnote: %w", err)
		}
		if err := p.Core.Ruler.After("inline", "footnote_tail", tailRule); err != nil {
			return fmt.Errorf("footnote: %w", err)
		}
		r.install(p.Renderer)
		return nil
	}
}

// metaOf returns the footnote metadata of a token.
// It panics if the token was not produced by this package.
func metaOf(tok *marknote.Token) *Meta {
	meta, ok := tok.Meta.(*Meta)
	if !ok || meta == nil {
		panic(fmt.Sprintf("footnote: %s token without footnote metadata", tok.Type))
	}
	return meta
}
