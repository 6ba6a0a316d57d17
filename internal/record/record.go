// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package record decodes the filename records stored inline in .DS_Store
// B-tree nodes.
//
// A record looks like:
//
//	+---------+------------------+--------------+----------+---------+
//	| u32 len | UTF-16BE name    | u32 struct   | 4-char   | value   |
//	|         | (2*len bytes)    | id           | type tag | ...     |
//	+---------+------------------+--------------+----------+---------+
//
// Only the name is kept; the value is skipped according to its type tag.
package record

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/bpowers/dsleak/internal/buffer"
)

// MaxRecoverySteps bounds how many times a record decode will shift the
// type tag by one code unit looking for a tag it understands.
const MaxRecoverySteps = 64

const (
	structureIDLen = 4
	typeTagLen     = 4
	codeUnitLen    = 2
)

var ErrMalformedRecord = errors.New("malformed record")

// Record is the decoded header of one B-tree record.
type Record struct {
	Filename    string
	StructureID uint32
	Type        string
	// ValueLen is the number of value bytes skipped, excluding any length
	// prefix.
	ValueLen int
	// Recovered counts the code units appended to the filename while
	// resynchronizing on an unrecognized tag.
	Recovered int
}

type decodeState int

const (
	expectTag decodeState = iota
	recovering
)

// Decode reads one record at the cursor of b and leaves the cursor just
// past its value.  Every failure, including bounds violations, is
// reported as ErrMalformedRecord.
func Decode(b *buffer.Buffer) (Record, error) {
	r, err := decode(b)
	if err != nil {
		if errors.Is(err, ErrMalformedRecord) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return r, nil
}

func decode(b *buffer.Buffer) (Record, error) {
	var r Record
	nameLen, err := b.Uint32()
	if err != nil {
		return r, fmt.Errorf("name length: %w", err)
	}
	if int64(nameLen)*codeUnitLen > int64(b.Remaining()) {
		return r, fmt.Errorf("name of %d code units: %w", nameLen, buffer.ErrOutOfBounds)
	}
	raw, err := b.Read(int(nameLen) * codeUnitLen)
	if err != nil {
		return r, fmt.Errorf("name: %w", err)
	}
	// copy, since recovery may append to it
	name := append([]byte(nil), raw...)

	if err := readTag(b, &r); err != nil {
		return r, err
	}

	state := expectTag
	for {
		switch state {
		case expectTag:
			n, ok, err := valueLen(b, r.Type)
			if err != nil {
				return r, fmt.Errorf("%q value: %w", r.Type, err)
			}
			if !ok {
				state = recovering
				continue
			}
			if err := b.Discard(n); err != nil {
				return r, fmt.Errorf("%q value of %d bytes: %w", r.Type, n, err)
			}
			r.ValueLen = n
			if r.Filename, err = decodeName(name); err != nil {
				return r, err
			}
			return r, nil

		case recovering:
			if r.Recovered >= MaxRecoverySteps {
				return r, fmt.Errorf("%w: no known type tag after %d recovery steps (last %q)", ErrMalformedRecord, r.Recovered, r.Type)
			}
			r.Recovered++

			// the tag we couldn't use was probably more filename: back up
			// over the structure id and tag and take one more code unit
			b.Skip(-(structureIDLen + typeTagLen))
			unit, err := b.Read(codeUnitLen)
			if err != nil {
				return r, fmt.Errorf("recovery: %w", err)
			}
			name = append(name, unit...)
			if err := readTag(b, &r); err != nil {
				return r, err
			}
			next, err := b.ReadAt(typeTagLen, b.Pos())
			if err != nil {
				return r, fmt.Errorf("recovery lookahead: %w", err)
			}
			if r.Type != TypeBlob && string(next) != TypeBlob {
				// keep shifting
				continue
			}
			state = expectTag
		}
	}
}

func readTag(b *buffer.Buffer, r *Record) error {
	var err error
	if r.StructureID, err = b.Uint32(); err != nil {
		return fmt.Errorf("structure id: %w", err)
	}
	tag, err := b.Read(typeTagLen)
	if err != nil {
		return fmt.Errorf("type tag: %w", err)
	}
	r.Type = string(tag)
	return nil
}

// valueLen returns how many bytes of value follow for tag, consuming any
// length prefix.  ok is false for tags with no known layout.
func valueLen(b *buffer.Buffer, tag string) (n int, ok bool, err error) {
	l, ok := layouts[tag]
	if !ok {
		return 0, false, nil
	}
	switch l.kind {
	case kindFixed:
		return l.size, true, nil
	case kindBlob, kindString:
		count, err := b.Uint32()
		if err != nil {
			return 0, true, err
		}
		n := int64(count)
		if l.kind == kindString {
			n *= codeUnitLen
		}
		if n > int64(b.Remaining()) {
			return 0, true, fmt.Errorf("%w: value length %d, %d bytes remain", buffer.ErrOutOfBounds, n, b.Remaining())
		}
		return int(n), true, nil
	}
	return 0, false, nil
}

func decodeName(utf16be []byte) (string, error) {
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	name, err := dec.Bytes(utf16be)
	if err != nil {
		return "", fmt.Errorf("filename: %w", err)
	}
	return string(name), nil
}
