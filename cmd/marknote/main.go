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

// Command marknote renders Markdown documents with footnotes as HTML.
//
// Each FILE argument is rendered as its own document
// and the results are concatenated to standard output.
// With no arguments (or "-"), marknote reads standard input.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"zombiezen.com/go/marknote"
	"zombiezen.com/go/marknote/footnote"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(os.Stdin, os.Stdout).ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	var configPath string
	flagConfig := defaultConfig()
	cmd := &cobra.Command{
		Use:          "marknote [flags] [FILE ...]",
		Short:        "Render Markdown with footnotes as HTML",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultConfig()
			if configPath != "" {
				if err := cfg.load(configPath); err != nil {
					return err
				}
			}
			cfg.override(cmd.Flags(), &flagConfig)
			if err := setLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			r, err := newDocRenderer(&cfg)
			if err != nil {
				return err
			}
			return r.renderAll(cmd.Context(), stdin, stdout, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "read settings from YAML `file`")
	f.BoolVar(&flagConfig.XHTML, "xhtml", flagConfig.XHTML, "close void elements XHTML-style")
	f.StringVar(&flagConfig.SoftBreak, "soft-break", flagConfig.SoftBreak, "render soft line breaks as `mode`: preserve, space, or harden")
	f.BoolVar(&flagConfig.NoFootnotes, "no-footnotes", flagConfig.NoFootnotes, "disable footnote syntax")
	f.BoolVar(&flagConfig.DocIDs, "doc-ids", flagConfig.DocIDs, "prefix footnote anchors with each file's base name")
	f.StringVar(&flagConfig.BackrefLabel, "backref-label", flagConfig.BackrefLabel, "accessible `label` for back-reference links; {n} is replaced by the footnote number")
	f.BoolVar(&flagConfig.Sanitize, "sanitize", flagConfig.Sanitize, "pass output through an HTML sanitizer")
	f.BoolVar(&flagConfig.Highlight, "highlight", flagConfig.Highlight, "syntax-highlight fenced code with CSS classes")
	f.StringVar(&flagConfig.LogLevel, "log-level", flagConfig.LogLevel, "log messages at or above `level`: debug, info, warn, error")
	return cmd
}

func setLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(level)
	return nil
}

type docRenderer struct {
	parser *marknote.Parser
	docIDs bool
	policy *bluemonday.Policy
}

func newDocRenderer(cfg *config) (*docRenderer, error) {
	softBreak, err := marknote.ParseSoftBreakBehavior(cfg.SoftBreak)
	if err != nil {
		return nil, err
	}
	opts := &marknote.Options{
		XHTMLOut:  cfg.XHTML,
		SoftBreak: softBreak,
	}
	if cfg.Highlight {
		opts.Highlight = highlightCode
	}
	p := marknote.New(opts)
	if !cfg.NoFootnotes {
		fnOpts := new(footnote.Options)
		if label := cfg.BackrefLabel; label != "" {
			fnOpts.BackrefLabel = func(meta *footnote.Meta) string {
				return strings.ReplaceAll(label, "{n}", strconv.Itoa(meta.ID+1))
			}
		}
		if err := p.Use(footnote.Plugin(fnOpts)); err != nil {
			return nil, err
		}
	}
	r := &docRenderer{
		parser: p,
		docIDs: cfg.DocIDs,
	}
	if cfg.Sanitize {
		r.policy = sanitizePolicy()
	}
	return r, nil
}

func (r *docRenderer) renderAll(ctx context.Context, stdin io.Reader, stdout io.Writer, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := readSource(stdin, path)
		if err != nil {
			return err
		}
		env := new(marknote.Env)
		if r.docIDs && path != "-" {
			env.DocID = docID(path)
		}
		html, err := r.render(path, src, env)
		if err != nil {
			return err
		}
		if _, err := stdout.Write(html); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

func (r *docRenderer) render(path, src string, env *marknote.Env) ([]byte, error) {
	tokens := r.parser.Parse(src, env)
	buf := new(bytes.Buffer)
	if err := r.parser.Renderer.Render(buf, tokens, env); err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	html := buf.Bytes()
	if r.policy != nil {
		html = r.policy.SanitizeBytes(html)
	}
	logrus.WithFields(logrus.Fields{
		"file":        path,
		"bytes":       len(html),
		"refs":        marknote.CountTokens(tokens, footnote.TypeRef),
		"definitions": len(footnote.Texts(env)),
	}).Debug("Rendered document")
	return html, nil
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// docID returns the base name of path without its extension.
func docID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var (
	footnoteClassPattern = regexp.MustCompile(`^footnote(s|s-sep|s-list|-ref|-item|-backref)$`)
	footnoteIDPattern    = regexp.MustCompile(`^fn(ref)?[-\w.:]+$`)
	languageClassPattern = regexp.MustCompile(`^language-[-\w+#.]+$`)
	tokenClassPattern    = regexp.MustCompile(`^(line|cl|[a-z][a-z0-9]{0,3})$`)
)

// sanitizePolicy returns a user-generated content policy
// that keeps the markup of rendered footnotes.
func sanitizePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("section", "sup")
	policy.AllowAttrs("class").Matching(footnoteClassPattern).OnElements("a", "hr", "li", "ol", "section", "sup")
	policy.AllowAttrs("id").Matching(footnoteIDPattern).OnElements("a", "li")
	policy.AllowAttrs("aria-label").OnElements("a")
	policy.AllowAttrs("class").Matching(languageClassPattern).OnElements("code")
	policy.AllowAttrs("class").Matching(tokenClassPattern).OnElements("span")
	return policy
}
