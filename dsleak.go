// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dsleak recovers the filenames referenced by a .DS_Store file,
// without access to the directory it describes.
//
//	s, err := dsleak.Open(data)
//	if err != nil {
//		return err
//	}
//	names, err := s.Filenames()
package dsleak

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/bpowers/dsleak/internal/btree"
	"github.com/bpowers/dsleak/internal/buffer"
	"github.com/bpowers/dsleak/internal/container"
	"github.com/bpowers/dsleak/internal/record"
	"github.com/bpowers/dsleak/internal/source"
)

var (
	ErrOutOfBounds       = buffer.ErrOutOfBounds
	ErrHeaderInvalid     = container.ErrHeaderInvalid
	ErrBlockIDOutOfRange = container.ErrBlockIDOutOfRange
	ErrMissingRootEntry  = container.ErrMissingRootEntry
	ErrMalformedRecord   = record.ErrMalformedRecord
	ErrMalformedTree     = btree.ErrMalformedTree
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	lenientMagic bool
}

// WithLogger sets an optional logger for decode progress and consistency
// warnings.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithLenientMagic accepts files where only one of the two signature
// words matches.  Some tools in the wild accept these; by default they are
// rejected.
func WithLenientMagic() Option {
	return func(opts *options) {
		opts.lenientMagic = true
	}
}

// Store is an opened .DS_Store.
type Store struct {
	c      *container.Container
	logger *slog.Logger
}

// Open parses the bookkeeping structures of data.  data must not be
// modified while the Store is in use.
func Open(data []byte, opts ...Option) (*Store, error) {
	var options options
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}

	c, err := container.Open(data, options.lenientMagic)
	if err != nil {
		return nil, err
	}
	options.logger.Debug("opened container",
		"bytes", len(data),
		"blocks", c.BlockCount(),
		"directory", c.DirectoryNames())
	return &Store{
		c:      c,
		logger: options.logger,
	}, nil
}

// ReadFile opens the .DS_Store at path.
func ReadFile(path string, opts ...Option) (*Store, error) {
	data, err := source.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source.ReadFile: %w", err)
	}
	return Open(data, opts...)
}

// Result is the outcome of walking a Store's record tree.
type Result struct {
	// Filenames holds each unique filename once, sorted.
	Filenames []string
	// Records is the number of records decoded; a file usually has
	// several.
	Records int
}

// Walk decodes every record in the tree.
func (s *Store) Walk() (Result, error) {
	root, err := s.c.RootBlock()
	if err != nil {
		return Result{}, err
	}
	res, err := btree.New(s.c, s.logger).TraverseRoot(root)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Filenames: res.Names.Sorted(),
		Records:   res.Records,
	}, nil
}

// Filenames returns the unique filenames referenced by the store, sorted.
func (s *Store) Filenames() ([]string, error) {
	res, err := s.Walk()
	if err != nil {
		return nil, err
	}
	return res.Filenames, nil
}

// Records returns the record count stored in the tree's descriptor.  It
// is what the writer claimed, not what Walk finds.
func (s *Store) Records() (int, error) {
	root, err := s.c.RootBlock()
	if err != nil {
		return 0, err
	}
	b, err := s.c.Block(root)
	if err != nil {
		return 0, fmt.Errorf("descriptor block %d: %w", root, err)
	}
	d, err := btree.ReadDescriptor(b)
	if err != nil {
		return 0, err
	}
	return int(d.Records), nil
}

// FreeBlocks returns the free block offsets for blocks of 2^class bytes,
// as recorded in the file's free list.
func (s *Store) FreeBlocks(class int) []uint32 {
	return s.c.FreeBlocks(class)
}
