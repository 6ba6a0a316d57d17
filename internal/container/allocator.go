// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"fmt"

	"github.com/bpowers/dsleak/internal/buffer"
)

const (
	// AddressesPerPage is the number of address slots in one page of the
	// allocator table; the table always spans whole pages.
	AddressesPerPage = 256
	addressLen       = 4
	allocatorPrefix  = 4 + 4 // count + reserved word
)

// AllocatorPadding returns the total length in bytes of an allocator table
// holding count addresses, including its count and reserved prefix.
func AllocatorPadding(count uint32) int {
	pages := int(count)/AddressesPerPage + 1
	return allocatorPrefix + pages*AddressesPerPage*addressLen
}

// readAllocator reads the block address table at the cursor of b and
// leaves the cursor at the end of its last page.  Unused (zero) slots are
// dropped: block ids index the returned slice.
func readAllocator(b *buffer.Buffer) ([]Address, error) {
	start := b.Pos()
	count, err := b.Uint32()
	if err != nil {
		return nil, fmt.Errorf("address count: %w", err)
	}
	b.Skip(4)

	// don't trust count for the allocation size
	if need := int(count) * addressLen; need > b.Remaining() {
		return nil, fmt.Errorf("%w: %d addresses need %d bytes, %d remain", buffer.ErrOutOfBounds, count, need, b.Remaining())
	}

	live := make([]Address, 0, count)
	for i := uint32(0); i < count; i++ {
		addr, err := b.Uint32()
		if err != nil {
			return nil, fmt.Errorf("address %d: %w", i, err)
		}
		if addr == 0 {
			continue
		}
		live = append(live, Address(addr))
	}

	b.Skip(start + AllocatorPadding(count) - b.Pos())
	return live, nil
}
