// SPDX-License-Identifier: Apache-2.0

package treeops

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/gitviews/gitviews/internal/gitinterface"
)

// EmptyTree is the id of the tree with no entries.
func EmptyTree() gitinterface.Hash {
	return gitinterface.EmptyTreeHash
}

// entryMap reads a tree's immediate children into a name-indexed map,
// preserving nothing about ordering since WriteTree re-sorts on write.
func entryMap(store gitinterface.Store, tree gitinterface.Hash) (map[string]gitinterface.TreeEntry, error) {
	entries, err := gitinterface.TreeEntries(store, tree)
	if err != nil {
		return nil, err
	}
	m := make(map[string]gitinterface.TreeEntry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m, nil
}

func writeEntries(store gitinterface.Store, m map[string]gitinterface.TreeEntry) (gitinterface.Hash, error) {
	entries := make([]gitinterface.TreeEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	return gitinterface.WriteTree(store, entries)
}

// Insert writes blob at path inside tree, creating any missing intermediate
// directories, and returns the id of the resulting tree. It is the building
// block every filter that adds or relocates content is implemented with.
func Insert(store gitinterface.Store, tree gitinterface.Hash, p string, blob gitinterface.Hash, mode filemode.FileMode) (gitinterface.Hash, error) {
	p = path.Clean(p)
	if p == "." || p == "" {
		return gitinterface.ZeroHash, fmt.Errorf("insert: empty path")
	}

	head, rest, hasRest := cutPath(p)

	m, err := entryMap(store, tree)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	if !hasRest {
		m[head] = gitinterface.TreeEntry{Name: head, Mode: mode, Hash: blob}
		return writeEntries(store, m)
	}

	childTree := gitinterface.ZeroHash
	if existing, ok := m[head]; ok && existing.IsDir() {
		childTree = existing.Hash
	}

	newChild, err := Insert(store, childTree, rest, blob, mode)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	m[head] = gitinterface.TreeEntry{Name: head, Mode: filemode.Dir, Hash: newChild}
	return writeEntries(store, m)
}

// GetBlob looks up the blob named at path inside tree. The second return
// value is false if no such path exists or it names a directory.
func GetBlob(store gitinterface.Store, tree gitinterface.Hash, p string) (gitinterface.Hash, bool, error) {
	p = path.Clean(p)
	if p == "." || p == "" {
		return gitinterface.ZeroHash, false, nil
	}

	head, rest, hasRest := cutPath(p)

	m, err := entryMap(store, tree)
	if err != nil {
		return gitinterface.ZeroHash, false, err
	}

	entry, ok := m[head]
	if !ok {
		return gitinterface.ZeroHash, false, nil
	}

	if !hasRest {
		if entry.IsDir() {
			return gitinterface.ZeroHash, false, nil
		}
		return entry.Hash, true, nil
	}

	if !entry.IsDir() {
		return gitinterface.ZeroHash, false, nil
	}
	return GetBlob(store, entry.Hash, rest)
}

// LookupTree extracts the subtree found at path inside tree, returning the
// empty tree if no such directory exists. This is the primitive the Subdir
// and Prefix filters are built from.
func LookupTree(store gitinterface.Store, tree gitinterface.Hash, p string) (gitinterface.Hash, error) {
	p = path.Clean(p)
	if p == "." || p == "" {
		return tree, nil
	}

	head, rest, hasRest := cutPath(p)

	m, err := entryMap(store, tree)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	entry, ok := m[head]
	if !ok || !entry.IsDir() {
		return EmptyTree(), nil
	}

	if !hasRest {
		return entry.Hash, nil
	}
	return LookupTree(store, entry.Hash, rest)
}

// Overlay merges overlay on top of base: every path present in overlay wins,
// every path only present in base is kept, and shared directories are
// merged recursively rather than replaced wholesale.
func Overlay(store gitinterface.Store, memo *Memo, base, overlay gitinterface.Hash) (gitinterface.Hash, error) {
	if IsEmpty(overlay) {
		return base, nil
	}
	if IsEmpty(base) {
		return overlay, nil
	}
	if base == overlay {
		return base, nil
	}

	key := memoKey("overlay", base, overlay)
	if h, ok := memo.get(key); ok {
		return h, nil
	}

	baseEntries, err := entryMap(store, base)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	overlayEntries, err := entryMap(store, overlay)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	result := make(map[string]gitinterface.TreeEntry, len(baseEntries)+len(overlayEntries))
	for name, e := range baseEntries {
		result[name] = e
	}

	for name, oe := range overlayEntries {
		be, existed := baseEntries[name]
		if existed && be.IsDir() && oe.IsDir() {
			merged, err := Overlay(store, memo, be.Hash, oe.Hash)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			result[name] = gitinterface.TreeEntry{Name: name, Mode: filemode.Dir, Hash: merged}
			continue
		}
		result[name] = oe
	}

	h, err := writeEntries(store, result)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	memo.set(key, h)
	return h, nil
}

// Subtract removes from a every path that is identically present in b,
// descending into directories shared between the two so that only the
// parts that actually differ survive.
func Subtract(store gitinterface.Store, memo *Memo, a, b gitinterface.Hash) (gitinterface.Hash, error) {
	if IsEmpty(a) || IsEmpty(b) {
		return a, nil
	}
	if a == b {
		return EmptyTree(), nil
	}

	key := memoKey("subtract", a, b)
	if h, ok := memo.get(key); ok {
		return h, nil
	}

	aEntries, err := entryMap(store, a)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	bEntries, err := entryMap(store, b)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	result := make(map[string]gitinterface.TreeEntry, len(aEntries))
	for name, ae := range aEntries {
		be, existsInB := bEntries[name]
		switch {
		case !existsInB:
			result[name] = ae
		case ae.Hash == be.Hash && ae.Mode == be.Mode:
			// identical in both, drop
		case ae.IsDir() && be.IsDir():
			sub, err := Subtract(store, memo, ae.Hash, be.Hash)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			if !IsEmpty(sub) {
				result[name] = gitinterface.TreeEntry{Name: name, Mode: filemode.Dir, Hash: sub}
			}
		default:
			// differs from b's entry at the same path: kept, since it is
			// not identically present in b.
			result[name] = ae
		}
	}

	h, err := writeEntries(store, result)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	memo.set(key, h)
	return h, nil
}

// RemovePred drops every blob whose slash-joined path (relative to tree)
// satisfies pred, pruning directories that become empty as a result.
func RemovePred(store gitinterface.Store, memo *Memo, tree gitinterface.Hash, prefix string, pred func(path string) bool) (gitinterface.Hash, error) {
	if IsEmpty(tree) {
		return tree, nil
	}

	entries, err := gitinterface.TreeEntries(store, tree)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	result := make(map[string]gitinterface.TreeEntry, len(entries))
	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}

		if e.IsDir() {
			sub, err := RemovePred(store, memo, e.Hash, full, pred)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			if !IsEmpty(sub) {
				result[e.Name] = gitinterface.TreeEntry{Name: e.Name, Mode: filemode.Dir, Hash: sub}
			}
			continue
		}

		if !pred(full) {
			result[e.Name] = e
		}
	}

	return writeEntries(store, result)
}

// DirTree collapses tree to a skeleton: every blob is dropped, and every
// directory that itself contains no further directories is replaced by a
// single marker blob carrying its own name, so that the directory's prior
// existence survives even though none of its file contents do. This is the
// primitive the Dirs filter is built from.
func DirTree(store gitinterface.Store, tree gitinterface.Hash) (gitinterface.Hash, error) {
	if IsEmpty(tree) {
		return tree, nil
	}

	entries, err := gitinterface.TreeEntries(store, tree)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	result := make(map[string]gitinterface.TreeEntry, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		sub, err := DirTree(store, e.Hash)
		if err != nil {
			return gitinterface.ZeroHash, err
		}

		if IsEmpty(sub) {
			marker, err := gitinterface.WriteBlob(store, []byte(e.Name))
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			result[e.Name] = gitinterface.TreeEntry{Name: e.Name, Mode: filemode.Regular, Hash: marker}
			continue
		}

		result[e.Name] = gitinterface.TreeEntry{Name: e.Name, Mode: filemode.Dir, Hash: sub}
	}

	return writeEntries(store, result)
}

// IsEmpty reports whether h denotes the empty tree.
func IsEmpty(h gitinterface.Hash) bool {
	return gitinterface.IsEmptyTree(h)
}

// cutPath splits a cleaned slash-separated path into its first segment and
// the remainder, reporting whether a remainder exists.
func cutPath(p string) (head, rest string, hasRest bool) {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:], true
	}
	return p, "", false
}
