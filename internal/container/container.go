// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package container decodes the bookkeeping structures of a .DS_Store
// file and resolves block ids to bounded views of the file.
//
// A .DS_Store generally looks like:
//
//	┌───────────────────────────┐
//	│ header (36 bytes)         │ magic, allocator offset/size
//	├───────────────────────────┤
//	│ blocks ...                │ power-of-two sized and aligned
//	├───────────────────────────┤
//	│ allocator block           │
//	│   address table (paged)   │ block id -> packed address
//	│   directory               │ "DSDB" -> B-tree descriptor id
//	│   free list (32 classes)  │
//	└───────────────────────────┘
//
// Every block's payload starts 4 bytes past the offset encoded in its
// address.  All integers are big-endian.
package container

import (
	"errors"
	"fmt"

	"github.com/bpowers/dsleak/internal/buffer"
)

var (
	ErrHeaderInvalid     = errors.New("invalid header")
	ErrBlockIDOutOfRange = errors.New("block id out of range")
	ErrMissingRootEntry  = errors.New("missing DSDB directory entry")
)

// Container is a parsed .DS_Store, ready to hand out block views.
type Container struct {
	file      *buffer.Buffer
	h         fileHeader
	addresses []Address
	directory map[string]uint32
	free      freeList
}

// Open parses the header, allocator table, directory index and free list
// of data.  data is retained and must not be modified afterwards.
func Open(data []byte, lenientMagic bool) (*Container, error) {
	file := buffer.New(data)
	h, err := readHeader(file, lenientMagic)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	root, err := h.rootView(file)
	if err != nil {
		return nil, err
	}

	addresses, err := readAllocator(root)
	if err != nil {
		return nil, fmt.Errorf("allocator table: %w", err)
	}
	directory, err := readDirectory(root)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	free, err := readFreeList(root)
	if err != nil {
		return nil, fmt.Errorf("free list: %w", err)
	}

	return &Container{
		file:      file,
		h:         h,
		addresses: addresses,
		directory: directory,
		free:      free,
	}, nil
}

// BlockCount returns the number of live (non-zero) allocator slots.
func (c *Container) BlockCount() int {
	return len(c.addresses)
}

// Address returns the packed address of a live block id.
func (c *Container) Address(id uint32) (Address, error) {
	if int64(id) >= int64(len(c.addresses)) {
		return 0, fmt.Errorf("%w: %d >= %d", ErrBlockIDOutOfRange, id, len(c.addresses))
	}
	return c.addresses[id], nil
}

// Block returns a fresh bounded view over the payload of block id.
func (c *Container) Block(id uint32) (*buffer.Buffer, error) {
	addr, err := c.Address(id)
	if err != nil {
		return nil, err
	}
	offset, _ := addr.Unpack()
	size := addr.Size()
	if size > uint64(c.file.Len()) {
		return nil, fmt.Errorf("block %d: %w: size %d exceeds file length %d", id, buffer.ErrOutOfBounds, size, c.file.Len())
	}
	v, err := c.file.Sub(int(offset)+blockTagLen, int(size))
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", id, err)
	}
	return v, nil
}

// Lookup returns the block id registered under name in the directory.
func (c *Container) Lookup(name string) (uint32, bool) {
	id, ok := c.directory[name]
	return id, ok
}

// RootBlock returns the id of the B-tree descriptor block.
func (c *Container) RootBlock() (uint32, error) {
	id, ok := c.Lookup(RootEntry)
	if !ok {
		return 0, ErrMissingRootEntry
	}
	return id, nil
}

// DirectoryNames returns the names in the directory index, in no
// particular order.
func (c *Container) DirectoryNames() []string {
	names := make([]string, 0, len(c.directory))
	for name := range c.directory {
		names = append(names, name)
	}
	return names
}

// FreeBlocks returns the free block offsets for blocks of 2^class bytes.
// The free list is informational only.
func (c *Container) FreeBlocks(class int) []uint32 {
	if class < 0 || class >= SizeClasses {
		return nil
	}
	return c.free[class]
}
