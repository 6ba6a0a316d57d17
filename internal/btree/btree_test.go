// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package btree_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/dsleak/internal/btree"
	"github.com/bpowers/dsleak/internal/buffer"
	"github.com/bpowers/dsleak/internal/container"
	"github.com/bpowers/dsleak/internal/fixture"
	"github.com/bpowers/dsleak/internal/record"
)

func open(t *testing.T, b *fixture.Builder) *container.Container {
	t.Helper()
	c, err := container.Open(b.Bytes(), false)
	require.NoError(t, err)
	return c
}

func traverseRoot(t *testing.T, c *container.Container) (btree.Result, error) {
	t.Helper()
	id, err := c.RootBlock()
	require.NoError(t, err)
	return btree.New(c, nil).TraverseRoot(id)
}

func TestTraverse_Leaf(t *testing.T) {
	for _, order := range [][]string{{"a.txt", "b.txt"}, {"b.txt", "a.txt"}} {
		b := fixture.NewBuilder()
		leaf := b.Add(fixture.Leaf(fixture.Iloc(order[0]), fixture.BlobRecord(order[1], []byte("x"))))
		b.Directory(container.RootEntry, b.Add(fixture.Descriptor(leaf, 0, 2, 1)))
		c := open(t, b)

		res, err := traverseRoot(t, c)
		require.NoError(t, err)
		require.Equal(t, []string{"a.txt", "b.txt"}, res.Names.Sorted())
		require.Equal(t, 2, res.Records)
		require.Equal(t, 1, res.Nodes)
	}
}

func TestTraverse_MultipleRecordsPerFile(t *testing.T) {
	// Finder writes one record per (file, property); names repeat
	b := fixture.NewBuilder()
	leaf := b.Add(fixture.Leaf(
		fixture.Iloc("a.txt"),
		fixture.Record{Name: "a.txt", Type: "modD", Value: make([]byte, 8)},
		fixture.Iloc("b.txt"),
	))
	b.Directory(container.RootEntry, b.Add(fixture.Descriptor(leaf, 0, 3, 1)))

	res, err := traverseRoot(t, open(t, b))
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt"}, res.Names.Sorted())
	require.Equal(t, 3, res.Records)
}

func TestTraverse_Internal(t *testing.T) {
	b := fixture.NewBuilder()
	left := b.Add(fixture.Leaf(fixture.Iloc("a"), fixture.Iloc("b")))
	right := b.Add(fixture.Leaf(fixture.Iloc("d"), fixture.Iloc("e")))
	root := b.Add(fixture.Internal(right, fixture.Pair{Child: left, Record: fixture.Iloc("c")}))
	b.Directory(container.RootEntry, b.Add(fixture.Descriptor(root, 1, 5, 3)))

	res, err := traverseRoot(t, open(t, b))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, res.Names.Sorted())
	require.Equal(t, 5, res.Records)
	require.Equal(t, 3, res.Nodes)
}

func TestTraverse_InternalDuplicates(t *testing.T) {
	b := fixture.NewBuilder()
	left := b.Add(fixture.Leaf(fixture.Iloc("a"), fixture.Iloc("same")))
	right := b.Add(fixture.Leaf(fixture.Iloc("same"), fixture.Iloc("z")))
	root := b.Add(fixture.Internal(right, fixture.Pair{Child: left, Record: fixture.BlobRecord("same", nil)}))
	b.Directory(container.RootEntry, b.Add(fixture.Descriptor(root, 1, 5, 3)))

	res, err := traverseRoot(t, open(t, b))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "same", "z"}, res.Names.Sorted())
}

func TestTraverse_ThreeLevels(t *testing.T) {
	b := fixture.NewBuilder()
	var want []string
	leaf := func(names ...string) uint32 {
		var recs []fixture.Record
		for _, n := range names {
			recs = append(recs, fixture.Iloc(n))
			want = append(want, n)
		}
		return b.Add(fixture.Leaf(recs...))
	}
	sep := func(child uint32, name string) fixture.Pair {
		want = append(want, name)
		return fixture.Pair{Child: child, Record: fixture.Iloc(name)}
	}

	l1 := leaf("a", "b")
	l2 := leaf("d")
	mid1 := b.Add(fixture.Internal(l2, sep(l1, "c")))
	l3 := leaf("f", "g")
	l4 := leaf("i")
	l5 := leaf("k", "l")
	mid2 := b.Add(fixture.Internal(l5, sep(l3, "h"), sep(l4, "j")))
	root := b.Add(fixture.Internal(mid2, sep(mid1, "e")))
	b.Directory(container.RootEntry, b.Add(fixture.Descriptor(root, 2, uint32(len(want)), 8)))

	res, err := traverseRoot(t, open(t, b))
	require.NoError(t, err)
	require.Len(t, want, 12)
	require.ElementsMatch(t, want, res.Names.Sorted())
	require.Equal(t, 8, res.Nodes)
}

func TestTraverse_Deterministic(t *testing.T) {
	names := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		names = append(names, fmt.Sprintf("file-%03d.txt", i))
	}
	c, err := container.Open(fixture.Tree(names, 7), false)
	require.NoError(t, err)

	first, err := traverseRoot(t, c)
	require.NoError(t, err)
	second, err := traverseRoot(t, c)
	require.NoError(t, err)
	require.Equal(t, first.Names, second.Names)
	require.Equal(t, names, first.Names.Sorted())
}

func TestTraverseRoot_Errors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		b := fixture.NewBuilder()
		root := b.Reserve()
		leaf := b.Add(fixture.Leaf(fixture.Iloc("a")))
		b.Set(root, fixture.Internal(root, fixture.Pair{Child: leaf, Record: fixture.Iloc("b")}))
		b.Directory(container.RootEntry, b.Add(fixture.Descriptor(root, 1, 2, 2)))

		_, err := traverseRoot(t, open(t, b))
		require.ErrorIs(t, err, btree.ErrMalformedTree)
	})

	t.Run("descriptor as root", func(t *testing.T) {
		b := fixture.NewBuilder()
		dsdb := b.Reserve()
		b.Set(dsdb, fixture.Descriptor(dsdb, 0, 0, 1))
		b.Directory(container.RootEntry, dsdb)

		_, err := traverseRoot(t, open(t, b))
		require.ErrorIs(t, err, btree.ErrMalformedTree)
	})

	t.Run("too deep", func(t *testing.T) {
		b := fixture.NewBuilder()
		child := b.Add(fixture.Leaf(fixture.Iloc("bottom")))
		for i := 0; i <= btree.MaxDepth; i++ {
			child = b.Add(fixture.Internal(child))
		}
		b.Directory(container.RootEntry, b.Add(fixture.Descriptor(child, btree.MaxDepth+1, 1, btree.MaxDepth+2)))

		_, err := traverseRoot(t, open(t, b))
		require.ErrorIs(t, err, btree.ErrMalformedTree)
	})

	t.Run("child out of range", func(t *testing.T) {
		b := fixture.NewBuilder()
		leaf := b.Add(fixture.Leaf(fixture.Iloc("a")))
		root := b.Add(fixture.Internal(leaf, fixture.Pair{Child: 999, Record: fixture.Iloc("b")}))
		b.Directory(container.RootEntry, b.Add(fixture.Descriptor(root, 1, 2, 2)))

		_, err := traverseRoot(t, open(t, b))
		require.ErrorIs(t, err, container.ErrBlockIDOutOfRange)
	})

	t.Run("bad record", func(t *testing.T) {
		b := fixture.NewBuilder()
		// claims two records, holds one
		bad := fixture.Leaf(fixture.Iloc("a"))
		bad[7] = 2
		leaf := b.Add(bad)
		b.Directory(container.RootEntry, b.Add(fixture.Descriptor(leaf, 0, 2, 1)))

		_, err := traverseRoot(t, open(t, b))
		require.ErrorIs(t, err, record.ErrMalformedRecord)
	})
}

func TestTraverse_LogsCountMismatch(t *testing.T) {
	b := fixture.NewBuilder()
	leaf := b.Add(fixture.Leaf(fixture.Iloc("a")))
	b.Directory(container.RootEntry, b.Add(fixture.Descriptor(leaf, 0, 5, 1)))
	c := open(t, b)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	id, err := c.RootBlock()
	require.NoError(t, err)
	res, err := btree.New(c, logger).TraverseRoot(id)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, res.Names.Sorted())
	require.Contains(t, logs.String(), "record count differs from descriptor")
}

func TestReadDescriptor(t *testing.T) {
	d, err := btree.ReadDescriptor(buffer.New(fixture.Descriptor(7, 1, 120, 9)))
	require.NoError(t, err)
	require.Equal(t, btree.Descriptor{Root: 7, Levels: 1, Records: 120, Nodes: 9, PageSize: 0x1000}, d)

	_, err = btree.ReadDescriptor(buffer.New(fixture.Descriptor(7, 1, 120, 9)[:19]))
	require.ErrorIs(t, err, buffer.ErrOutOfBounds)
}
