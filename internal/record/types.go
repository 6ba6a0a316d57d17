// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package record

type valueKind int

const (
	kindUnknown valueKind = iota
	kindFixed
	kindBlob   // u32 byte length + bytes
	kindString // u32 UTF-16 code unit count + 2*count bytes
)

type valueLayout struct {
	kind valueKind
	size int
}

// TypeBlob is the length-prefixed opaque value type.  It is the anchor
// used to resynchronize after a misread type tag.
const TypeBlob = "blob"

var layouts = map[string]valueLayout{
	TypeBlob: {kind: kindBlob},

	"bool": {kindFixed, 1},
	"ICVO": {kindFixed, 1},
	"LSVO": {kindFixed, 1},
	"dscl": {kindFixed, 1},

	"type": {kindFixed, 4},
	"long": {kindFixed, 4},
	"shor": {kindFixed, 4},
	"fwsw": {kindFixed, 4},
	"fwvh": {kindFixed, 4},
	"icvt": {kindFixed, 4},
	"lsvt": {kindFixed, 4},
	"vSrn": {kindFixed, 4},
	"vstl": {kindFixed, 4},

	"comp": {kindFixed, 8},
	"dutc": {kindFixed, 8},
	"icgo": {kindFixed, 8},
	"icsp": {kindFixed, 8},
	"logS": {kindFixed, 8},
	"lg1S": {kindFixed, 8},
	"lssp": {kindFixed, 8},
	"modD": {kindFixed, 8},
	"moDD": {kindFixed, 8},
	"phyS": {kindFixed, 8},
	"ph1S": {kindFixed, 8},

	"ustr": {kind: kindString},
	"cmmt": {kind: kindString},
	"extn": {kind: kindString},
	"GRP0": {kind: kindString},

	"BKGD": {kindFixed, 12},
	"Iloc": {kindFixed, 16},
	"dilc": {kindFixed, 32},
	"lsvo": {kindFixed, 76},

	// icvo and info have no known fixed layout and fall through to
	// resynchronization like any unrecognized tag.
}

// Known reports whether values of type tag can be skipped without
// resynchronizing.
func Known(tag string) bool {
	_, ok := layouts[tag]
	return ok
}

// FixedSize returns the value size of a fixed-layout type tag.
func FixedSize(tag string) (int, bool) {
	l, ok := layouts[tag]
	if !ok || l.kind != kindFixed {
		return 0, false
	}
	return l.size, true
}
