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

package main

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/sirupsen/logrus"
)

// Styles are left to the page's stylesheet.
var highlightFormatter = chromahtml.New(
	chromahtml.WithClasses(true),
	chromahtml.WithLineNumbers(false),
	chromahtml.PreventSurroundingPre(true),
)

// highlightCode renders code as HTML spans classed by token type.
// It returns the empty string for a missing or unknown language.
func highlightCode(code, lang, _ string) string {
	if lang == "" {
		return ""
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		logrus.WithField("lang", lang).Debug("No lexer for fenced code")
		return ""
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		logrus.WithError(err).WithField("lang", lang).Warn("Could not highlight fenced code")
		return ""
	}
	sb := new(strings.Builder)
	if err := highlightFormatter.Format(sb, styles.Fallback, iterator); err != nil {
		logrus.WithError(err).WithField("lang", lang).Warn("Could not highlight fenced code")
		return ""
	}
	return sb.String()
}
