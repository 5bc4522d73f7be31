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

// Package fixtures provides Markdown documents with their expected HTML renderings.
package fixtures

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Example is a single document and its expected rendering.
type Example struct {
	Name     string `yaml:"name"`
	DocID    string `yaml:"doc_id"`
	Markdown string `yaml:"markdown"`
	HTML     string `yaml:"html"`
}

//go:embed footnotes.yaml
var footnoteData []byte

// LoadFootnotes returns the footnote examples.
func LoadFootnotes() ([]Example, error) {
	var examples []Example
	if err := yaml.Unmarshal(footnoteData, &examples); err != nil {
		return nil, fmt.Errorf("load footnote examples: %w", err)
	}
	return examples, nil
}
