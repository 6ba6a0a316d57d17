// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package source

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress unwraps gzip or zstd payloads.  Anything else, including
// every real .DS_Store (which starts with 00 00 00 01), is returned as is.
func decompress(raw []byte) (data []byte, compression string, err error) {
	switch {
	case bytes.HasPrefix(raw, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, "", fmt.Errorf("gzip.NewReader: %w", err)
		}
		defer func() {
			_ = zr.Close()
		}()
		data, err := readLimited(zr)
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		return data, "gzip", nil

	case bytes.HasPrefix(raw, zstdMagic):
		zr, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(MaxContainerSize)))
		if err != nil {
			return nil, "", fmt.Errorf("zstd.NewReader: %w", err)
		}
		defer zr.Close()
		data, err := zr.DecodeAll(raw, nil)
		if err != nil {
			return nil, "", fmt.Errorf("zstd: %w", err)
		}
		return data, "zstd", nil
	}
	return raw, "", nil
}
