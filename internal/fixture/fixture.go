// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package fixture assembles synthetic .DS_Store files for tests and the
// test data generator.  It produces the same block layout Finder does
// (allocator block as block 0, power-of-two aligned blocks) but makes no
// attempt at being a general purpose writer.
package fixture

import (
	"encoding/binary"
	"math/bits"

	"golang.org/x/text/encoding/unicode"

	"github.com/bpowers/dsleak/internal/container"
)

const (
	minBlockExp = 5
	pageSize    = 0x1000
)

func be32(v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf[:]
}

// UTF16 encodes s as big-endian UTF-16, without a byte order mark.
func UTF16(s string) []byte {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	p, err := enc.Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return p
}

// Record is one B-tree record.  Value holds the on-disk value bytes,
// including any length prefix.
type Record struct {
	Name        string
	StructureID uint32
	Type        string
	Value       []byte
}

func (r Record) Bytes() []byte {
	name := UTF16(r.Name)
	if len(r.Type) != 4 {
		panic("type tags are 4 bytes: " + r.Type)
	}
	out := make([]byte, 0, 4+len(name)+8+len(r.Value))
	out = append(out, be32(uint32(len(name)/2))...)
	out = append(out, name...)
	out = append(out, be32(r.StructureID)...)
	out = append(out, r.Type...)
	out = append(out, r.Value...)
	return out
}

// Blob returns p with its u32 length prefix.
func Blob(p []byte) []byte {
	return append(be32(uint32(len(p))), p...)
}

// UString returns s as a length-prefixed UTF-16 value.
func UString(s string) []byte {
	p := UTF16(s)
	return append(be32(uint32(len(p)/2)), p...)
}

func Iloc(name string) Record {
	return Record{Name: name, StructureID: 0x496c6f63, Type: "Iloc", Value: make([]byte, 16)}
}

func BlobRecord(name string, p []byte) Record {
	return Record{Name: name, Type: "blob", Value: Blob(p)}
}

func Leaf(records ...Record) []byte {
	out := append(be32(0), be32(uint32(len(records)))...)
	for _, r := range records {
		out = append(out, r.Bytes()...)
	}
	return out
}

// Pair is an internal node entry: a child subtree followed by the record
// whose key is greater than everything in that subtree.
type Pair struct {
	Child  uint32
	Record Record
}

// Internal encodes an internal node.  right is the subtree holding keys
// greater than every local record.
func Internal(right uint32, pairs ...Pair) []byte {
	out := append(be32(right), be32(uint32(len(pairs)))...)
	for _, p := range pairs {
		out = append(out, be32(p.Child)...)
		out = append(out, p.Record.Bytes()...)
	}
	return out
}

// Descriptor encodes the B-tree descriptor the DSDB directory entry
// points at.
func Descriptor(root, levels, records, nodes uint32) []byte {
	var out []byte
	for _, v := range []uint32{root, levels, records, nodes, pageSize} {
		out = append(out, be32(v)...)
	}
	return out
}

type dirEntry struct {
	name string
	id   uint32
}

// Builder lays out blocks and the allocator block holding the address
// table, directory and free list.
type Builder struct {
	blocks    [][]byte // blocks[0] is the allocator block
	directory []dirEntry
	free      [container.SizeClasses][]uint32
	// zeroSlots[i] is the number of unused address slots written before
	// live block i
	zeroSlots        map[int]int
	magic2           uint32
	corruptDupOffset bool
}

func NewBuilder() *Builder {
	return &Builder{
		blocks:    [][]byte{nil},
		zeroSlots: make(map[int]int),
		magic2:    container.Magic2,
	}
}

// Add appends a block and returns its id.
func (b *Builder) Add(payload []byte) uint32 {
	b.blocks = append(b.blocks, payload)
	return uint32(len(b.blocks) - 1)
}

// Reserve allocates a block id whose payload is provided later with Set.
func (b *Builder) Reserve() uint32 {
	return b.Add(nil)
}

func (b *Builder) Set(id uint32, payload []byte) {
	if id == 0 || int(id) >= len(b.blocks) {
		panic("Set on unknown block")
	}
	b.blocks[id] = payload
}

// Directory registers a named entry in the directory index.
func (b *Builder) Directory(name string, id uint32) {
	b.directory = append(b.directory, dirEntry{name: name, id: id})
}

func (b *Builder) Free(class int, offsets ...uint32) {
	b.free[class] = append(b.free[class], offsets...)
}

// ZeroSlot writes an unused address before the next added block.
func (b *Builder) ZeroSlot() {
	b.zeroSlots[len(b.blocks)]++
}

// BadMagic replaces the second signature word.
func (b *Builder) BadMagic(magic2 uint32) {
	b.magic2 = magic2
}

// CorruptDuplicateOffset makes the header's two allocator offsets disagree.
func (b *Builder) CorruptDuplicateOffset() {
	b.corruptDupOffset = true
}

func (b *Builder) rawAddressCount() int {
	n := len(b.blocks)
	for _, z := range b.zeroSlots {
		n += z
	}
	return n
}

func (b *Builder) allocatorLen() int {
	n := container.AllocatorPadding(uint32(b.rawAddressCount()))
	n += 4
	for _, e := range b.directory {
		n += 1 + len(e.name) + 4
	}
	for _, offsets := range b.free {
		n += 4 + 4*len(offsets)
	}
	return n
}

func blockExp(n int) uint8 {
	if n <= 1<<minBlockExp {
		return minBlockExp
	}
	return uint8(bits.Len(uint(n - 1)))
}

// Bytes returns the assembled file.
func (b *Builder) Bytes() []byte {
	exps := make([]uint8, len(b.blocks))
	exps[0] = blockExp(b.allocatorLen())
	for i := 1; i < len(b.blocks); i++ {
		exps[i] = blockExp(len(b.blocks[i]))
	}

	// offsets start past the 36-byte header
	addrs := make([]container.Address, len(b.blocks))
	next := uint32(1 << minBlockExp)
	fileLen := uint32(container.HeaderSize)
	for i, exp := range exps {
		size := uint32(1) << exp
		off := (next + size - 1) &^ (size - 1)
		addrs[i] = container.NewAddress(off, exp)
		next = off + size
		if end := off + 4 + size; end > fileLen {
			fileLen = end
		}
	}

	out := make([]byte, fileLen)
	allocOff, allocExp := addrs[0].Unpack()
	allocSize := uint32(1) << allocExp
	binary.BigEndian.PutUint32(out[0:], container.Magic1)
	binary.BigEndian.PutUint32(out[4:], b.magic2)
	binary.BigEndian.PutUint32(out[8:], allocOff)
	binary.BigEndian.PutUint32(out[12:], allocSize)
	dup := allocOff
	if b.corruptDupOffset {
		dup += 1 << minBlockExp
	}
	binary.BigEndian.PutUint32(out[16:], dup)

	for i := 1; i < len(b.blocks); i++ {
		off, _ := addrs[i].Unpack()
		copy(out[off+4:], b.blocks[i])
	}
	copy(out[allocOff+4:], b.allocatorBlock(addrs))
	return out
}

func (b *Builder) allocatorBlock(addrs []container.Address) []byte {
	raw := b.rawAddressCount()
	out := append(be32(uint32(raw)), be32(0)...)
	for i, addr := range addrs {
		for z := 0; z < b.zeroSlots[i]; z++ {
			out = append(out, be32(0)...)
		}
		out = append(out, be32(uint32(addr))...)
	}
	for z := 0; z < b.zeroSlots[len(addrs)]; z++ {
		out = append(out, be32(0)...)
	}
	out = append(out, make([]byte, container.AllocatorPadding(uint32(raw))-len(out))...)

	out = append(out, be32(uint32(len(b.directory)))...)
	for _, e := range b.directory {
		out = append(out, byte(len(e.name)))
		out = append(out, e.name...)
		out = append(out, be32(e.id)...)
	}
	for _, offsets := range b.free {
		out = append(out, be32(uint32(len(offsets)))...)
		for _, off := range offsets {
			out = append(out, be32(off)...)
		}
	}
	return out
}
