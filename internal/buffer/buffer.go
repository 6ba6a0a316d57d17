// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package buffer provides a cursor-based, bounds-checked view over an
// immutable byte slice.  All multi-byte integers are big-endian.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("read out of bounds")

// Buffer is a read cursor over a byte range.  The underlying bytes are
// never written to; views produced by Sub share memory with their parent.
type Buffer struct {
	data []byte
	pos  int
}

func New(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the addressable length of the view.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Pos returns the cursor position relative to the start of the view.
func (b *Buffer) Pos() int {
	return b.pos
}

// Remaining returns the number of bytes between the cursor and the end of
// the view, or a negative number if the cursor has been skipped past it.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Skip moves the cursor by delta bytes, which may be negative.  The new
// position is only validated by the next read.
func (b *Buffer) Skip(delta int) {
	b.pos += delta
}

// Discard is like Skip, but fails instead of moving past the end of the view.
func (b *Buffer) Discard(n int) error {
	if err := b.check(b.pos, n); err != nil {
		return err
	}
	b.pos += n
	return nil
}

func (b *Buffer) check(off, n int) error {
	if off < 0 || n < 0 || off > len(b.data) || n > len(b.data)-off {
		return fmt.Errorf("%w: off %d + len %d beyond bounds (%d)", ErrOutOfBounds, off, n, len(b.data))
	}
	return nil
}

// Read returns the next n bytes and advances the cursor.
func (b *Buffer) Read(n int) ([]byte, error) {
	if err := b.check(b.pos, n); err != nil {
		return nil, err
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// ReadAt returns n bytes starting at off without moving the cursor.
func (b *Buffer) ReadAt(n, off int) ([]byte, error) {
	if err := b.check(off, n); err != nil {
		return nil, err
	}
	return b.data[off : off+n], nil
}

func (b *Buffer) Byte() (byte, error) {
	p, err := b.Read(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) Uint16() (uint16, error) {
	p, err := b.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func (b *Buffer) Uint32() (uint32, error) {
	p, err := b.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// PeekUint32 decodes the 4 bytes at the cursor without consuming them.
func (b *Buffer) PeekUint32() (uint32, error) {
	p, err := b.ReadAt(4, b.pos)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// Sub returns a new view of n bytes starting at off, with its own cursor
// positioned at zero.
func (b *Buffer) Sub(off, n int) (*Buffer, error) {
	p, err := b.ReadAt(n, off)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: p}, nil
}
