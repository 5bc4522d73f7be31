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

import "fmt"

// A Ruler is an ordered list of named rules.
// Rules may also be members of alternate chains,
// which block rules use to decide which constructs
// may interrupt a paragraph, block quote, or reference.
type Ruler[F any] struct {
	rules []namedRule[F]
	cache map[string][]F
}

type namedRule[F any] struct {
	name     string
	fn       F
	alt      []string
	disabled bool
}

// Push appends a rule to the end of the chain.
func (r *Ruler[F]) Push(name string, fn F, alt ...string) {
	r.rules = append(r.rules, namedRule[F]{name: name, fn: fn, alt: alt})
	r.cache = nil
}

// Before inserts a rule immediately before the rule named anchor.
func (r *Ruler[F]) Before(anchor, name string, fn F, alt ...string) error {
	i := r.find(anchor)
	if i < 0 {
		return fmt.Errorf("insert rule %q: no rule named %q", name, anchor)
	}
	r.insert(i, namedRule[F]{name: name, fn: fn, alt: alt})
	return nil
}

// After inserts a rule immediately after the rule named anchor.
func (r *Ruler[F]) After(anchor, name string, fn F, alt ...string) error {
	i := r.find(anchor)
	if i < 0 {
		return fmt.Errorf("insert rule %q: no rule named %q", name, anchor)
	}
	r.insert(i+1, namedRule[F]{name: name, fn: fn, alt: alt})
	return nil
}

// Disable turns off the named rules.
// It returns an error if any of the names are not present.
func (r *Ruler[F]) Disable(names ...string) error {
	for _, name := range names {
		i := r.find(name)
		if i < 0 {
			return fmt.Errorf("disable rule: no rule named %q", name)
		}
		r.rules[i].disabled = true
	}
	r.cache = nil
	return nil
}

// Names returns the names of the enabled rules in order.
func (r *Ruler[F]) Names() []string {
	var names []string
	for _, rule := range r.rules {
		if !rule.disabled {
			names = append(names, rule.name)
		}
	}
	return names
}

// Rules returns the enabled rules for the given chain.
// The empty string names the main chain that contains every rule.
func (r *Ruler[F]) Rules(chain string) []F {
	if fns, ok := r.cache[chain]; ok {
		return fns
	}
	var fns []F
	for _, rule := range r.rules {
		if rule.disabled {
			continue
		}
		if chain == "" || contains(rule.alt, chain) {
			fns = append(fns, rule.fn)
		}
	}
	if r.cache == nil {
		r.cache = make(map[string][]F)
	}
	r.cache[chain] = fns
	return fns
}

func (r *Ruler[F]) find(name string) int {
	for i, rule := range r.rules {
		if rule.name == name {
			return i
		}
	}
	return -1
}

func (r *Ruler[F]) insert(i int, rule namedRule[F]) {
	r.rules = append(r.rules, namedRule[F]{})
	copy(r.rules[i+1:], r.rules[i:])
	r.rules[i] = rule
	r.cache = nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
