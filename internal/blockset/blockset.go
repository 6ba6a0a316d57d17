// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package blockset tracks which block ids have been visited, one bit per
// block.
package blockset

// Set is conceptually a []bool indexed by block id, but 64x smaller.
type Set struct {
	bits   []uint64
	length uint32
}

func New(length int) *Set {
	return &Set{
		bits:   make([]uint64, (length+63)/64),
		length: uint32(length),
	}
}

func offsets(id uint32) (word uint32, bit uint64) {
	return id / 64, uint64(id % 64)
}

// Visit marks id as visited and reports whether it was already marked.
// Ids beyond the set's length are never recorded and always report false.
func (s *Set) Visit(id uint32) (seen bool) {
	if id >= s.length {
		return false
	}
	word, bit := offsets(id)
	w := &s.bits[word]
	seen = *w&(1<<bit) != 0
	*w |= 1 << bit
	return seen
}

// Visited reports whether id has been marked.
func (s *Set) Visited(id uint32) bool {
	if id >= s.length {
		return false
	}
	word, bit := offsets(id)
	return s.bits[word]&(1<<bit) != 0
}
