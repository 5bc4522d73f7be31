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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
	"zombiezen.com/go/marknote"
)

// config holds the driver settings.
// Values come from the defaults, then the config file, then flags.
type config struct {
	XHTML        bool   `yaml:"xhtml"`
	SoftBreak    string `yaml:"soft_break"`
	NoFootnotes  bool   `yaml:"no_footnotes"`
	DocIDs       bool   `yaml:"doc_ids"`
	BackrefLabel string `yaml:"backref_label"`
	Sanitize     bool   `yaml:"sanitize"`
	Highlight    bool   `yaml:"highlight"`
	LogLevel     string `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		SoftBreak: marknote.SoftBreakPreserve.String(),
		LogLevel:  logrus.WarnLevel.String(),
	}
}

// load merges the settings in the YAML file at path into c.
// Unknown keys are an error.
func (c *config) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	logrus.WithField("path", path).Debug("Loaded config")
	return nil
}

// override copies the values of flags set on the command line
// from src into c.
func (c *config) override(fs *pflag.FlagSet, src *config) {
	if fs.Changed("xhtml") {
		c.XHTML = src.XHTML
	}
	if fs.Changed("soft-break") {
		c.SoftBreak = src.SoftBreak
	}
	if fs.Changed("no-footnotes") {
		c.NoFootnotes = src.NoFootnotes
	}
	if fs.Changed("doc-ids") {
		c.DocIDs = src.DocIDs
	}
	if fs.Changed("backref-label") {
		c.BackrefLabel = src.BackrefLabel
	}
	if fs.Changed("sanitize") {
		c.Sanitize = src.Sanitize
	}
	if fs.Changed("highlight") {
		c.Highlight = src.Highlight
	}
	if fs.Changed("log-level") {
		c.LogLevel = src.LogLevel
	}
}
