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

import "zombiezen.com/go/marknote"

// unassigned is the registry value of a label
// that has been defined but not yet used.
const unassigned = -1

// registryKey is the [marknote.Env] key of a document's *registry.
type registryKey struct{}

// registry is the footnote state of a single document.
type registry struct {
	// refs maps a label to its footnote ID or unassigned.
	refs map[string]int
	// defined lists labels in the order they were first defined.
	defined []string
	// list is indexed by footnote ID.
	list []*entry
	// texts maps a label to the rendered inline HTML
	// of the last paragraph of its definition.
	texts map[string]string
}

type entry struct {
	label string
	count int

	// Inline footnotes carry their parsed content.
	inline  bool
	content string
	tokens  []*marknote.Token
}

// registryFrom returns the document's footnote state
// or nil if no footnote syntax has been seen.
func registryFrom(env *marknote.Env) *registry {
	reg, _ := env.Value(registryKey{}).(*registry)
	return reg
}

// ensureRegistry returns the document's footnote state,
// creating it if necessary.
func ensureRegistry(env *marknote.Env) *registry {
	if reg := registryFrom(env); reg != nil {
		return reg
	}
	reg := &registry{
		refs:  make(map[string]int),
		texts: make(map[string]string),
	}
	env.SetValue(registryKey{}, reg)
	return reg
}

// define registers label as defined.
// Defining a label again keeps its first position;
// the tail pass renders the last body.
func (reg *registry) define(label string) {
	if _, seen := reg.refs[label]; !seen {
		reg.defined = append(reg.defined, label)
	}
	reg.refs[label] = unassigned
}

// isDefined reports whether label has been defined.
func (reg *registry) isDefined(label string) bool {
	if reg == nil {
		return false
	}
	_, ok := reg.refs[label]
	return ok
}

// use records a use of a defined label,
// assigning the next ID on the label's first use.
func (reg *registry) use(label string) (id, subID int) {
	id, ok := reg.refs[label]
	if !ok {
		panic("footnote: use of undefined label " + label)
	}
	if id == unassigned {
		id = len(reg.list)
		reg.list = append(reg.list, &entry{label: label})
		reg.refs[label] = id
	}
	e := reg.list[id]
	subID = e.count
	e.count++
	return id, subID
}

// reserveInline appends an empty inline footnote and returns its ID.
// The slot is reserved before the content is parsed
// so inline footnotes nested in the content receive later IDs.
func (reg *registry) reserveInline() int {
	id := len(reg.list)
	reg.list = append(reg.list, &entry{inline: true, count: 1})
	return id
}

// fillInline sets the content of a reserved inline footnote.
func (reg *registry) fillInline(id int, content string, tokens []*marknote.Token) {
	e := reg.list[id]
	if !e.inline {
		panic("footnote: fill of labeled entry")
	}
	e.content = content
	e.tokens = tokens
}

// claimUnreferenced assigns IDs to defined labels that were never used,
// in definition order, so their bodies are still rendered.
func (reg *registry) claimUnreferenced() {
	for _, label := range reg.defined {
		if reg.refs[label] != unassigned {
			continue
		}
		reg.refs[label] = len(reg.list)
		reg.list = append(reg.list, &entry{label: label})
	}
}

// Texts returns the inline HTML of the last paragraph
// of each footnote definition in the document, keyed by label.
// It is intended for callers that display notes outside the document,
// such as in tooltips.
// Texts returns nil if the document has no footnote definitions.
func Texts(env *marknote.Env) map[string]string {
	reg := registryFrom(env)
	if reg == nil || len(reg.texts) == 0 {
		return nil
	}
	m := make(map[string]string, len(reg.texts))
	for k, v := range reg.texts {
		m[k] = v
	}
	return m
}
