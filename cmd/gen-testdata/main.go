// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a synthetic .DS_Store.  Filenames come from the
// arguments, or from stdin one per line, or are generated at random when
// -n is given.
package main

import (
	"bufio"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bpowers/dsleak/internal/fixture"
)

const (
	prefix    = "file_"
	suffixLen = 16
)

var extensions = []string{".txt", ".php", ".bak", ".zip", ".sql", ""}

func newRand() *rand.Rand {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:])
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func randomNames(rng *rand.Rand, n int) []string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			panic(err)
		}
		names = append(names, fmt.Sprintf("%s%x%s", prefix, buf, extensions[rng.Intn(len(extensions))]))
	}
	return names
}

func readNames(r io.Reader) ([]string, error) {
	var names []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			names = append(names, line)
		}
	}
	return names, s.Err()
}

func main() {
	var (
		output  string
		count   int
		perLeaf int
	)
	flagSet := pflag.NewFlagSet("gen-testdata", pflag.ExitOnError)
	flagSet.StringVarP(&output, "output", "o", "", "write the container here instead of stdout")
	flagSet.IntVarP(&count, "count", "n", 0, "generate this many random filenames")
	flagSet.IntVar(&perLeaf, "per-leaf", 16, "records per B-tree leaf")
	_ = flagSet.Parse(os.Args[1:])

	var names []string
	switch {
	case count > 0:
		names = randomNames(newRand(), count)
	case flagSet.NArg() > 0:
		names = flagSet.Args()
	default:
		var err error
		if names, err = readNames(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "error: reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	data := fixture.Tree(names, perLeaf)
	var err error
	if output == "" {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(output, data, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
