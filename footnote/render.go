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
	"strconv"

	"zombiezen.com/go/marknote"
)

// AnchorName returns the fragment identifier suffix for a footnote:
// its one-based number,
// prefixed by "-DocID-" if the document has a [marknote.Env.DocID].
func AnchorName(meta *Meta, env *marknote.Env) string {
	n := strconv.Itoa(meta.ID + 1)
	if env != nil && env.DocID != "" {
		return "-" + env.DocID + "-" + n
	}
	return n
}

// Caption returns the visible text of a footnote reference,
// like "[1]" or "[1:2]" for the third use of the first footnote.
func Caption(meta *Meta) string {
	n := strconv.Itoa(meta.ID + 1)
	if meta.SubID > 0 {
		n += ":" + strconv.Itoa(meta.SubID)
	}
	return "[" + n + "]"
}

// backrefGlyph is a leftwards arrow with hook
// followed by a text presentation selector,
// which keeps iOS from displaying it as an emoji.
const backrefGlyph = "\u21a9\ufe0e"

type renderer struct {
	opts Options
}

func (r *renderer) install(mr *marknote.Renderer) {
	if mr.Rules == nil {
		mr.Rules = make(map[string]marknote.RenderFunc)
	}
	mr.Rules[TypeRef] = r.renderRef
	mr.Rules[TypeBlockOpen] = r.renderBlockOpen
	mr.Rules[TypeBlockClose] = r.renderBlockClose
	mr.Rules[TypeOpen] = r.renderOpen
	mr.Rules[TypeClose] = r.renderClose
	mr.Rules[TypeAnchor] = r.renderAnchor
}

func (r *renderer) anchorName(meta *Meta, env *marknote.Env) string {
	if r.opts.AnchorName != nil {
		return r.opts.AnchorName(meta, env)
	}
	return AnchorName(meta, env)
}

func (r *renderer) caption(meta *Meta) string {
	if r.opts.Caption != nil {
		return r.opts.Caption(meta)
	}
	return Caption(meta)
}

// useID returns the fragment identifier suffix of a single use of a footnote.
func (r *renderer) useID(meta *Meta, env *marknote.Env) string {
	id := r.anchorName(meta, env)
	if meta.SubID > 0 {
		id += ":" + strconv.Itoa(meta.SubID)
	}
	return id
}

func (r *renderer) renderRef(dst []byte, tokens []*marknote.Token, idx int, env *marknote.Env, _ *marknote.Renderer) []byte {
	meta := metaOf(tokens[idx])
	dst = append(dst, `<sup class="footnote-ref"><a href="#fn`...)
	dst = marknote.EscapeHTML(dst, r.anchorName(meta, env))
	dst = append(dst, `" id="fnref`...)
	dst = marknote.EscapeHTML(dst, r.useID(meta, env))
	dst = append(dst, `">`...)
	dst = marknote.EscapeHTML(dst, r.caption(meta))
	dst = append(dst, "</a></sup>"...)
	return dst
}

func (r *renderer) renderBlockOpen(dst []byte, _ []*marknote.Token, _ int, _ *marknote.Env, mr *marknote.Renderer) []byte {
	dst = append(dst, `<hr class="footnotes-sep"`...)
	if mr.Options != nil && mr.Options.XHTMLOut {
		dst = append(dst, " /"...)
	}
	dst = append(dst, ">\n"...)
	dst = append(dst, `<section class="footnotes">`+"\n"...)
	dst = append(dst, `<ol class="footnotes-list">`+"\n"...)
	return dst
}

func (r *renderer) renderBlockClose(dst []byte, _ []*marknote.Token, _ int, _ *marknote.Env, _ *marknote.Renderer) []byte {
	return append(dst, "</ol>\n</section>\n"...)
}

func (r *renderer) renderOpen(dst []byte, tokens []*marknote.Token, idx int, env *marknote.Env, _ *marknote.Renderer) []byte {
	meta := metaOf(tokens[idx])
	dst = append(dst, `<li id="fn`...)
	dst = marknote.EscapeHTML(dst, r.useID(meta, env))
	dst = append(dst, `" class="footnote-item">`...)
	return dst
}

func (r *renderer) renderClose(dst []byte, _ []*marknote.Token, _ int, _ *marknote.Env, _ *marknote.Renderer) []byte {
	return append(dst, "</li>\n"...)
}

func (r *renderer) renderAnchor(dst []byte, tokens []*marknote.Token, idx int, env *marknote.Env, _ *marknote.Renderer) []byte {
	meta := metaOf(tokens[idx])
	dst = append(dst, ` <a href="#fnref`...)
	dst = marknote.EscapeHTML(dst, r.useID(meta, env))
	dst = append(dst, `" class="footnote-backref"`...)
	if r.opts.BackrefLabel != nil {
		if label := r.opts.BackrefLabel(meta); label != "" {
			dst = append(dst, ` aria-label="`...)
			dst = marknote.EscapeHTML(dst, label)
			dst = append(dst, '"')
		}
	}
	dst = append(dst, '>')
	dst = append(dst, backrefGlyph...)
	dst = append(dst, "</a>"...)
	return dst
}
