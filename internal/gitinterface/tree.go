// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TreeEntry is one named child of a tree: either a blob (file) or another
// tree (directory), recorded with its git file mode.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash Hash
}

// IsDir reports whether the entry points at a tree rather than a blob.
func (e TreeEntry) IsDir() bool {
	return e.Mode == filemode.Dir
}

// GetTree reads the tree object named by h.
func GetTree(store Store, h Hash) (*object.Tree, error) {
	t, err := object.GetTree(store, h)
	if err != nil {
		return nil, fmt.Errorf("reading tree %s: %w: %w", h, ErrObjectNotFound, err)
	}
	return t, nil
}

// TreeEntries returns the immediate children of the tree named by h, or an
// empty slice if h is the empty tree.
func TreeEntries(store Store, h Hash) ([]TreeEntry, error) {
	if h.IsZero() || h == EmptyTreeHash {
		return nil, nil
	}

	t, err := GetTree(store, h)
	if err != nil {
		return nil, err
	}

	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}
	return entries, nil
}

// WriteTree encodes and stores a flat list of entries as a single tree
// object and returns its id. Entries may come in any order (callers in
// internal/treeops pass them in map order); WriteTree sorts them the way
// git expects, since a tree with out-of-order entries hashes differently
// from the canonical one.
func WriteTree(store Store, entries []TreeEntry) (Hash, error) {
	if len(entries) == 0 {
		return EmptyTreeHash, nil
	}

	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeEntrySortKey(sorted[i]) < treeEntrySortKey(sorted[j])
	})

	tree := &object.Tree{Entries: make([]object.TreeEntry, len(sorted))}
	for i, e := range sorted {
		tree.Entries[i] = object.TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash}
	}

	obj := store.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return ZeroHash, fmt.Errorf("encoding tree: %w", err)
	}
	h, err := store.SetEncodedObject(obj)
	if err != nil {
		return ZeroHash, fmt.Errorf("writing tree: %w", err)
	}
	return h, nil
}

// treeEntrySortKey reproduces git's tree entry ordering: entries are sorted
// as if directory names carried a trailing slash, so "foo" sorts after
// "foo-bar" but before "foo/anything".
func treeEntrySortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// EmptyTreeHash is the id of the tree with no entries. go-git does not
// expose this as a constant because it depends on the backing hash
// algorithm; for SHA-1 stores it is the well known git empty tree id.
var EmptyTreeHash = plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

// IsEmptyTree reports whether h denotes a tree with no entries (either the
// zero hash, standing in for "does not exist", or the canonical empty tree
// object).
func IsEmptyTree(h Hash) bool {
	return h.IsZero() || h == EmptyTreeHash
}
