// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"fmt"

	"github.com/bpowers/dsleak/internal/buffer"
)

const (
	HeaderSize = 36

	Magic1 = 0x00000001
	Magic2 = 0x42756431 // "Bud1"

	headerReservedLen = 16
	// blocks, including the allocator block, start one tag word past
	// their computed offset
	blockTagLen = 4
)

type fileHeader struct {
	magic1          uint32
	magic2          uint32
	allocatorOffset uint32
	allocatorSize   uint32
	duplicateOffset uint32
}

// readHeader validates the file header at the cursor of b.  When lenient
// is set, the signature is only rejected if neither magic word matches.
func readHeader(b *buffer.Buffer, lenient bool) (fileHeader, error) {
	var h fileHeader
	if b.Len() < HeaderSize {
		return h, fmt.Errorf("%w: file too short: %d < %d", ErrHeaderInvalid, b.Len(), HeaderSize)
	}

	var err error
	for _, field := range []*uint32{&h.magic1, &h.magic2, &h.allocatorOffset, &h.allocatorSize, &h.duplicateOffset} {
		if *field, err = b.Uint32(); err != nil {
			return h, err
		}
	}

	badMagic1, badMagic2 := h.magic1 != Magic1, h.magic2 != Magic2
	if (lenient && badMagic1 && badMagic2) || (!lenient && (badMagic1 || badMagic2)) {
		return h, fmt.Errorf("%w: bad magic (%08x %08x) -- not a .DS_Store or corrupted", ErrHeaderInvalid, h.magic1, h.magic2)
	}
	if h.allocatorOffset != h.duplicateOffset {
		return h, fmt.Errorf("%w: allocator offsets do not match (%d != %d)", ErrHeaderInvalid, h.allocatorOffset, h.duplicateOffset)
	}

	b.Skip(headerReservedLen)
	return h, nil
}

// rootView returns the bounded view holding the allocator table, directory
// index and free list.
func (h fileHeader) rootView(file *buffer.Buffer) (*buffer.Buffer, error) {
	v, err := file.Sub(int(h.allocatorOffset)+blockTagLen, int(h.allocatorSize))
	if err != nil {
		return nil, fmt.Errorf("allocator region: %w", err)
	}
	return v, nil
}
