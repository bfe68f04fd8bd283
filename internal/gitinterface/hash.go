// SPDX-License-Identifier: Apache-2.0

// Package gitinterface wraps go-git's object store with the small surface
// the filter engine needs: reading and writing trees, blobs and commits, and
// resolving references. It never shells out to the git binary — every
// operation goes through go-git's pure-Go object model so it works equally
// well against an on-disk repository or an in-memory one built for tests.
package gitinterface

import (
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
)

// Hash identifies a git object. It is a thin alias over go-git's hash type so
// that callers outside this package never need to import go-git directly.
type Hash = plumbing.Hash

// ZeroHash is the null object id, used throughout the engine to mean "this
// commit or tree vanished under the filter".
var ZeroHash = plumbing.ZeroHash

var ErrInvalidHash = errors.New("not a valid git object id")

// NewHash parses a hex object id. It accepts ids of the length of the Hash
// type the build uses: 40 hex chars for SHA-1, 64 hex chars for SHA-256.
func NewHash(s string) (Hash, error) {
	if len(s) != 2*len(ZeroHash) {
		return ZeroHash, ErrInvalidHash
	}
	h := plumbing.NewHash(s)
	if h.IsZero() && s != ZeroHash.String() {
		return ZeroHash, ErrInvalidHash
	}
	return h, nil
}

// IsZero reports whether h is the null id.
func IsZero(h Hash) bool {
	return h.IsZero()
}
