// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package present renders recovered filenames.
package present

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

const Heading = "Unique filenames extracted from .DS_Store:"

func sorted(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

// Text writes a heading and then names, sorted, one per line.
func Text(w io.Writer, names []string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, Heading); err != nil {
		return err
	}
	for _, n := range sorted(names) {
		if _, err := fmt.Fprintln(bw, n); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Report is the machine-readable form of a run.
type Report struct {
	Source      string   `yaml:"source"`
	Fingerprint string   `yaml:"fingerprint,omitempty"`
	Compression string   `yaml:"compression,omitempty"`
	Records     int      `yaml:"records"`
	Filenames   []string `yaml:"filenames"`
}

// YAML writes r as a YAML document with its filenames sorted.
func YAML(w io.Writer, r Report) error {
	r.Filenames = sorted(r.Filenames)
	if r.Filenames == nil {
		r.Filenames = []string{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("yaml.Encode: %w", err)
	}
	return enc.Close()
}
