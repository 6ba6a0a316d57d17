// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReadFile reads a local container through a read-only mapping.  The
// returned bytes are a private copy; the mapping is gone when ReadFile
// returns.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	if !stats.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	size := stats.Size()
	if size > MaxContainerSize {
		return nil, fmt.Errorf("%s: %d bytes is larger than %d", path, size, MaxContainerSize)
	}
	if size == 0 {
		// mmap of a zero-length file fails with EINVAL
		return []byte{}, nil
	}

	m, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap(%s): %w", path, err)
	}
	defer func() {
		_ = unix.Munmap(m)
	}()
	if err := unix.Madvise(m, unix.MADV_SEQUENTIAL); err != nil {
		return nil, fmt.Errorf("madvise: %w", err)
	}

	data := make([]byte, len(m))
	copy(data, m)
	return data, nil
}
