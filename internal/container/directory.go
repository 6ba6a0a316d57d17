// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"fmt"

	"github.com/bpowers/dsleak/internal/buffer"
)

// RootEntry names the directory entry pointing at the B-tree descriptor.
const RootEntry = "DSDB"

func readDirectory(b *buffer.Buffer) (map[string]uint32, error) {
	count, err := b.Uint32()
	if err != nil {
		return nil, fmt.Errorf("directory count: %w", err)
	}

	dir := make(map[string]uint32)
	for i := uint32(0); i < count; i++ {
		nameLen, err := b.Byte()
		if err != nil {
			return nil, fmt.Errorf("directory entry %d: %w", i, err)
		}
		name, err := b.Read(int(nameLen))
		if err != nil {
			return nil, fmt.Errorf("directory entry %d name: %w", i, err)
		}
		id, err := b.Uint32()
		if err != nil {
			return nil, fmt.Errorf("directory entry %q: %w", name, err)
		}
		dir[string(name)] = id
	}
	return dir, nil
}
