// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"fmt"

	"github.com/bpowers/dsleak/internal/buffer"
)

// SizeClasses is the number of free-list buckets; bucket k holds free
// blocks of 2^k bytes.
const SizeClasses = 32

type freeList [SizeClasses][]uint32

func readFreeList(b *buffer.Buffer) (freeList, error) {
	var fl freeList
	for class := 0; class < SizeClasses; class++ {
		count, err := b.Uint32()
		if err != nil {
			return fl, fmt.Errorf("free list class %d: %w", class, err)
		}
		if need := int(count) * 4; need > b.Remaining() {
			return fl, fmt.Errorf("%w: free list class %d: %d offsets, %d bytes remain", buffer.ErrOutOfBounds, class, count, b.Remaining())
		}
		if count == 0 {
			continue
		}
		offsets := make([]uint32, count)
		for i := range offsets {
			if offsets[i], err = b.Uint32(); err != nil {
				return fl, fmt.Errorf("free list class %d: %w", class, err)
			}
		}
		fl[class] = offsets
	}
	return fl, nil
}
