// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

const (
	addressExpBits = 5
	addressExpMask = (1 << addressExpBits) - 1
)

// Address packs a block's location and size into 32 bits: the high 27 bits
// are the byte offset in 32-byte units, the low 5 bits are log2 of the
// block size.
type Address uint32

func NewAddress(offset uint32, sizeExponent uint8) Address {
	return Address((offset &^ addressExpMask) | (uint32(sizeExponent) & addressExpMask))
}

func (a Address) Unpack() (offset uint32, sizeExponent uint8) {
	packed := uint32(a)
	offset = (packed >> addressExpBits) << addressExpBits
	sizeExponent = uint8(packed & addressExpMask)
	return offset, sizeExponent
}

// Size returns the block size in bytes.
func (a Address) Size() uint64 {
	_, exp := a.Unpack()
	return uint64(1) << exp
}
