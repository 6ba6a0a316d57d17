// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package btree walks the record B-tree of a .DS_Store and collects the
// filenames it holds.
//
// A node starts with two words: a child pointer and an entry count.  Leaf
// nodes have a zero pointer and count records.  Internal nodes hold count
// (child id, record) pairs in key order; the pointer is the right-most
// child, holding keys greater than every local record.
//
// The walk uses an explicit stack rather than recursion, and refuses
// trees deeper than MaxDepth or that reach the same block twice.
package btree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bpowers/dsleak/internal/blockset"
	"github.com/bpowers/dsleak/internal/buffer"
	"github.com/bpowers/dsleak/internal/nameset"
	"github.com/bpowers/dsleak/internal/record"
)

const MaxDepth = 64

var ErrMalformedTree = errors.New("malformed tree")

// Resolver hands out views of blocks by id.  *container.Container is the
// usual implementation.
type Resolver interface {
	Block(id uint32) (*buffer.Buffer, error)
	BlockCount() int
}

// Descriptor is the B-tree header stored in the block named by the DSDB
// directory entry.
type Descriptor struct {
	Root     uint32
	Levels   uint32 // internal levels above the leaves
	Records  uint32
	Nodes    uint32
	PageSize uint32
}

func ReadDescriptor(b *buffer.Buffer) (Descriptor, error) {
	var d Descriptor
	var err error
	for _, field := range []*uint32{&d.Root, &d.Levels, &d.Records, &d.Nodes, &d.PageSize} {
		if *field, err = b.Uint32(); err != nil {
			return d, fmt.Errorf("descriptor: %w", err)
		}
	}
	return d, nil
}

// Result is what a traversal found.
type Result struct {
	Names   nameset.Set
	Records int
	Nodes   int
}

type Traverser struct {
	r      Resolver
	logger *slog.Logger
}

func New(r Resolver, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Traverser{r: r, logger: logger}
}

// TraverseRoot reads the descriptor in block descriptorID and walks the
// tree it points at.  Disagreement between the descriptor's counts and
// what was found is logged, not fatal.
func (t *Traverser) TraverseRoot(descriptorID uint32) (Result, error) {
	w := t.newWalk()
	if w.visited.Visit(descriptorID) {
		return Result{}, fmt.Errorf("%w: descriptor block %d reached twice", ErrMalformedTree, descriptorID)
	}
	b, err := t.r.Block(descriptorID)
	if err != nil {
		return Result{}, fmt.Errorf("descriptor block %d: %w", descriptorID, err)
	}
	d, err := ReadDescriptor(b)
	if err != nil {
		return Result{}, err
	}
	t.logger.Debug("btree descriptor", "root", d.Root, "levels", d.Levels, "records", d.Records, "nodes", d.Nodes)

	res, err := w.run(d.Root)
	if err != nil {
		return Result{}, err
	}
	if uint32(res.Records) != d.Records {
		t.logger.Warn("record count differs from descriptor", "descriptor", d.Records, "found", res.Records)
	}
	if uint32(res.Nodes) != d.Nodes {
		t.logger.Warn("node count differs from descriptor", "descriptor", d.Nodes, "found", res.Nodes)
	}
	return res, nil
}

// Traverse walks the subtree rooted at block id.
func (t *Traverser) Traverse(id uint32) (Result, error) {
	return t.newWalk().run(id)
}

type walk struct {
	t       *Traverser
	visited *blockset.Set
	records int
	nodes   int
}

func (t *Traverser) newWalk() *walk {
	return &walk{
		t:       t,
		visited: blockset.New(t.r.BlockCount()),
	}
}

// frame is the partial state of one node on the walk's stack.
type frame struct {
	id        uint32
	node      *buffer.Buffer
	right     uint32 // zero for leaves
	remaining uint32
	decoded   uint32
	// childDone is set once the child of the current pair has been
	// walked, and its record is next.
	childDone bool
	rightDone bool
	depth     int
	names     nameset.Set
}

func (w *walk) open(id uint32, depth int) (*frame, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: node %d is deeper than %d levels", ErrMalformedTree, id, MaxDepth)
	}
	if w.visited.Visit(id) {
		return nil, fmt.Errorf("%w: node %d reached twice", ErrMalformedTree, id)
	}
	node, err := w.t.r.Block(id)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	right, err := node.Uint32()
	if err != nil {
		return nil, fmt.Errorf("node %d pointer: %w", id, err)
	}
	count, err := node.Uint32()
	if err != nil {
		return nil, fmt.Errorf("node %d count: %w", id, err)
	}
	w.nodes++
	w.t.logger.Debug("btree node", "id", id, "internal", right != 0, "entries", count, "depth", depth)
	return &frame{
		id:        id,
		node:      node,
		right:     right,
		remaining: count,
		depth:     depth,
		names:     nameset.New(),
	}, nil
}

func (w *walk) decodeRecord(f *frame) error {
	r, err := record.Decode(f.node)
	if err != nil {
		return fmt.Errorf("node %d record %d: %w", f.id, f.decoded, err)
	}
	if r.Recovered > 0 {
		w.t.logger.Debug("resynchronized record", "node", f.id, "filename", r.Filename, "steps", r.Recovered)
	}
	f.names.Add(r.Filename)
	f.decoded++
	f.remaining--
	w.records++
	return nil
}

func (w *walk) run(root uint32) (Result, error) {
	f, err := w.open(root, 0)
	if err != nil {
		return Result{}, err
	}
	stack := []*frame{f}
	for {
		top := stack[len(stack)-1]

		var child uint32
		push := false
		switch {
		case top.right == 0:
			for top.remaining > 0 {
				if err := w.decodeRecord(top); err != nil {
					return Result{}, err
				}
			}
		case top.childDone:
			if err := w.decodeRecord(top); err != nil {
				return Result{}, err
			}
			top.childDone = false
			continue
		case top.remaining > 0:
			if child, err = top.node.Uint32(); err != nil {
				return Result{}, fmt.Errorf("node %d child %d: %w", top.id, top.decoded, err)
			}
			top.childDone = true
			push = true
		case !top.rightDone:
			child = top.right
			top.rightDone = true
			push = true
		}

		if push {
			next, err := w.open(child, top.depth+1)
			if err != nil {
				return Result{}, err
			}
			stack = append(stack, next)
			continue
		}

		// top is finished: hand its names up
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return Result{Names: top.names, Records: w.records, Nodes: w.nodes}, nil
		}
		parent := stack[len(stack)-1]
		parent.names.Merge(top.names)
	}
}
