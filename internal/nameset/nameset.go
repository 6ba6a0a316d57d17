// Copyright 2026 The dsleak Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package nameset is a set of unique filenames.
package nameset

import (
	"sort"
)

type Set map[string]struct{}

func New(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s Set) Add(name string) {
	s[name] = struct{}{}
}

func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Merge adds every name in other to s.
func (s Set) Merge(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Union returns a new set holding the names of both a and b.
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	out.Merge(a)
	out.Merge(b)
	return out
}

// Sorted returns the names in lexicographic (byte-wise) order.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
