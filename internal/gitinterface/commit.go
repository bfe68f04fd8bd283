// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit is the subset of commit metadata the engine reads and rewrites.
// It mirrors object.Commit but keeps the filter packages from needing to
// import go-git's object package directly.
type Commit struct {
	Hash       Hash
	TreeHash   Hash
	ParentIDs  []Hash
	Author     object.Signature
	Committer  object.Signature
	Message    string
	PGPSignature string
}

// GetCommit reads the commit named by h.
func GetCommit(store Store, h Hash) (*Commit, error) {
	c, err := object.GetCommit(store, h)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w: %w", h, ErrObjectNotFound, err)
	}

	return &Commit{
		Hash:         c.Hash,
		TreeHash:     c.TreeHash,
		ParentIDs:    append([]Hash(nil), c.ParentHashes...),
		Author:       c.Author,
		Committer:    c.Committer,
		Message:      c.Message,
		PGPSignature: c.PGPSignature,
	}, nil
}

// WriteCommit encodes and stores a commit with the given tree, parents,
// message and author/committer identities copied from base, then returns
// its id. The PGP signature is never copied forward: a rewritten commit has
// a different tree and/or parent set, so any signature over the original
// would no longer verify.
func WriteCommit(store Store, base *Commit, tree Hash, parents []Hash, message string) (Hash, error) {
	c := &object.Commit{
		Author:       base.Author,
		Committer:    base.Committer,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: append([]Hash(nil), parents...),
	}

	obj := store.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return ZeroHash, fmt.Errorf("encoding commit: %w", err)
	}
	h, err := store.SetEncodedObject(obj)
	if err != nil {
		return ZeroHash, fmt.Errorf("writing commit: %w", err)
	}
	return h, nil
}

// SameParents reports whether two parent lists name the same commits in the
// same order, the condition under which a rewritten commit can keep its
// original id instead of being recommitted.
func SameParents(a, b []Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParentsOf is a convenience wrapper returning just the parent ids of the
// commit named by h, used by the history walk's ancestry traversal.
func ParentsOf(store Store, h Hash) ([]Hash, error) {
	c, err := GetCommit(store, h)
	if err != nil {
		return nil, err
	}
	return c.ParentIDs, nil
}
