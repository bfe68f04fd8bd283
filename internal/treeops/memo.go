// SPDX-License-Identifier: Apache-2.0

// Package treeops implements the pure, content-addressed tree operations the
// rest of the filter engine is built from: inserting a blob at a path,
// overlaying one tree on another, subtracting one tree from another,
// dropping entries that match a predicate, and extracting the subtree at a
// path. None of these touch commits or history; they operate purely on git
// tree objects and are safe to memoise since the same inputs always produce
// the same output tree id.
package treeops

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/gitviews/gitviews/internal/gitinterface"
)

// Memo is a bounded, advisory cache of tree-operation results keyed by
// operation name and operand hashes. A miss just means the operation is
// recomputed from the object store, so eviction can never produce an
// incorrect result — unlike the filter cache in internal/filtercache, whose
// entries are authoritative and must never be silently dropped.
type Memo struct {
	cache *ristretto.Cache[string, gitinterface.Hash]
}

// NewMemo builds a Memo sized for a few hundred thousand intermediate tree
// results, which comfortably covers a single filtering pass over a large
// repository's working tree depth.
func NewMemo() (*Memo, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, gitinterface.Hash]{
		NumCounters: 1e6,
		MaxCost:     1 << 27,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating treeops memo: %w", err)
	}
	return &Memo{cache: c}, nil
}

func (m *Memo) get(key string) (gitinterface.Hash, bool) {
	if m == nil {
		return gitinterface.ZeroHash, false
	}
	return m.cache.Get(key)
}

func (m *Memo) set(key string, h gitinterface.Hash) {
	if m == nil {
		return
	}
	m.cache.Set(key, h, 1)
}

func memoKey(op string, args ...gitinterface.Hash) string {
	key := op
	for _, a := range args {
		key += ":" + a.String()
	}
	return key
}
