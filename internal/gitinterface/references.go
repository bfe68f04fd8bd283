// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// ResolveRef returns the commit (or other object) id a reference currently
// points at, following symbolic references.
func ResolveRef(store Store, name string) (Hash, error) {
	ref, err := storerResolve(store, plumbing.ReferenceName(name))
	if err != nil {
		return ZeroHash, fmt.Errorf("resolving ref %s: %w: %w", name, ErrObjectNotFound, err)
	}
	return ref.Hash(), nil
}

// SetRef points name at hash, creating or overwriting the reference.
func SetRef(store Store, name string, hash Hash) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), hash)
	if err := store.SetReference(ref); err != nil {
		return fmt.Errorf("setting ref %s: %w", name, err)
	}
	return nil
}

func storerResolve(store Store, name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := store.Reference(name)
	if err != nil {
		return nil, err
	}
	for ref.Type() == plumbing.SymbolicReference {
		ref, err = store.Reference(ref.Target())
		if err != nil {
			return nil, err
		}
	}
	return ref, nil
}
