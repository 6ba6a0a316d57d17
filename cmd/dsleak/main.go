// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// dsleak prints the filenames recorded in a .DS_Store, fetched from a URL
// or read from a local path.
//
// A fetch failure is reported on stderr and exits 0: a missing file is an
// expected outcome when probing a site.  A file that is present but cannot
// be decoded exits 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bpowers/dsleak"
	"github.com/bpowers/dsleak/internal/present"
	"github.com/bpowers/dsleak/internal/source"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type config struct {
	url     string
	format  string
	lenient bool
	timeout time.Duration
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	flagSet := pflag.NewFlagSet("dsleak", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.url, "url", "u", "", "URL or path of the .DS_Store to read (required)")
	flagSet.StringVar(&cfg.format, "format", "text", "output format: text or yaml")
	flagSet.BoolVar(&cfg.lenient, "lenient", false, "accept files where only one signature word matches")
	flagSet.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "give up fetching after this long")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log decode progress to stderr")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: dsleak -u <url> [flags]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return cfg, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return cfg, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if cfg.url == "" {
		return cfg, errors.New("--url is required")
	}
	if cfg.format != "text" && cfg.format != "yaml" {
		return cfg, fmt.Errorf("unknown --format %q", cfg.format)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	} else if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	fetcher := source.Fetcher{Logger: logger}
	blob, err := fetcher.Fetch(ctx, cfg.url)
	if err != nil {
		fmt.Fprintf(stderr, "could not retrieve %s: %v\n", cfg.url, err)
		return exitOK
	}

	opts := []dsleak.Option{dsleak.WithLogger(logger)}
	if cfg.lenient {
		opts = append(opts, dsleak.WithLenientMagic())
	}
	store, err := dsleak.Open(blob.Data, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	res, err := store.Walk()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	switch cfg.format {
	case "yaml":
		err = present.YAML(stdout, present.Report{
			Source:      blob.Location,
			Fingerprint: fmt.Sprintf("%016x", blob.Fingerprint),
			Compression: blob.Compression,
			Records:     res.Records,
			Filenames:   res.Filenames,
		})
	default:
		err = present.Text(stdout, res.Filenames)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}
