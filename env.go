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

// Env is the document-scoped state shared by every pass
// that processes a single document.
// A new Env should be used for each document.
// An Env must not be used by multiple goroutines at the same time.
type Env struct {
	// DocID is an optional identifier for the document.
	// Renderers use it to disambiguate fragment identifiers
	// when several documents are rendered into one page.
	DocID string
	// References holds the document's link reference definitions.
	// It is populated during the block pass.
	References ReferenceMap

	values map[any]any
}

// Value returns the value the extension associated with key,
// or nil if there is none.
// Keys should be of unexported types to avoid collisions,
// just like [context.Context] keys.
func (env *Env) Value(key any) any {
	if env == nil {
		return nil
	}
	return env.values[key]
}

// SetValue associates a value with key.
func (env *Env) SetValue(key, value any) {
	if env.values == nil {
		env.values = make(map[any]any)
	}
	env.values[key] = value
}
