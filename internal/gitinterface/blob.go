// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ReadBlob returns the full contents of the blob named by h.
func ReadBlob(store Store, h Hash) ([]byte, error) {
	blob, err := object.GetBlob(store, h)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w: %w", h, ErrObjectNotFound, err)
	}

	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", h, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

// WriteBlob stores data as a new blob object and returns its id.
func WriteBlob(store Store, data []byte) (Hash, error) {
	obj := store.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return ZeroHash, fmt.Errorf("opening blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return ZeroHash, fmt.Errorf("writing blob contents: %w", err)
	}
	if err := w.Close(); err != nil {
		return ZeroHash, fmt.Errorf("closing blob writer: %w", err)
	}

	h, err := store.SetEncodedObject(obj)
	if err != nil {
		return ZeroHash, fmt.Errorf("storing blob: %w", err)
	}
	return h, nil
}
