// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package fixture

import (
	"sort"

	"github.com/bpowers/dsleak/internal/container"
)

// recordFor varies the value type across records so decoders see a mix of
// fixed, blob and string layouts.
func recordFor(i int, name string) Record {
	switch i % 4 {
	case 0:
		return Iloc(name)
	case 1:
		return BlobRecord(name, []byte("bplist00"))
	case 2:
		return Record{Name: name, Type: "modD", Value: make([]byte, 8)}
	default:
		return Record{Name: name, Type: "cmmt", Value: UString("comment for " + name)}
	}
}

// Tree returns a complete file holding one record per name.  Names are
// sorted and packed perLeaf to a leaf; with more than one leaf, a single
// internal root separates them.
func Tree(names []string, perLeaf int) []byte {
	if perLeaf < 1 {
		perLeaf = 1
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	b := NewBuilder()
	var leaves [][]Record
	var separators []Record
	var cur []Record
	for i, name := range sorted {
		r := recordFor(i, name)
		if len(cur) == perLeaf {
			// this record separates the full leaf from the next one
			leaves = append(leaves, cur)
			separators = append(separators, r)
			cur = nil
			continue
		}
		cur = append(cur, r)
	}
	leaves = append(leaves, cur)

	var root uint32
	levels := uint32(0)
	nodes := uint32(len(leaves))
	if len(leaves) == 1 {
		root = b.Add(Leaf(leaves[0]...))
	} else {
		pairs := make([]Pair, 0, len(separators))
		for i, sep := range separators {
			pairs = append(pairs, Pair{Child: b.Add(Leaf(leaves[i]...)), Record: sep})
		}
		right := b.Add(Leaf(leaves[len(leaves)-1]...))
		root = b.Add(Internal(right, pairs...))
		levels = 1
		nodes++
	}

	dsdb := b.Add(Descriptor(root, levels, uint32(len(sorted)), nodes))
	b.Directory(container.RootEntry, dsdb)
	return b.Bytes()
}
