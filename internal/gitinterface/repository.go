// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Store is the object-storage surface the filter engine runs on. It is
// satisfied by both an on-disk repository (storage/filesystem) and a
// throwaway in-memory one (storage/memory), which is what tests use.
type Store interface {
	storer.EncodedObjectStorer
	storer.ReferenceStorer
}

// Repository bundles a Store with the path it was opened from, purely for
// error messages and logging context.
type Repository struct {
	Store Store
	path  string
}

// Open opens the on-disk git directory at path (a ".git" directory or a
// bare repository) without touching the working tree. Every read and write
// the engine performs goes through the returned Store.
func Open(path string) (*Repository, error) {
	fs := osfs.New(path)
	dotGit, err := fs.Chroot(".")
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	st := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())
	return &Repository{Store: st, path: path}, nil
}

// NewInMemory creates a throwaway repository backed entirely by memory. It
// is used by tests and by any caller that wants to stage filtered objects
// before deciding whether to persist them.
func NewInMemory() *Repository {
	return &Repository{Store: memory.NewStorage(), path: "<memory>"}
}

func (r *Repository) String() string {
	return r.path
}

// ErrObjectNotFound is returned (wrapped) whenever a tree, blob or commit
// cannot be found in the backing store.
var ErrObjectNotFound = errors.New("object not found")
