// SPDX-License-Identifier: Apache-2.0

// Package filterexpr implements the filter operator algebra: the data model
// of filter operators, a parser and two printers for it, a fixed-point
// normaliser, and process-wide interning so that structurally equal filters
// share a single handle.
package filterexpr

import (
	"encoding/binary"
	"sync"

	"github.com/zeebo/blake3"
)

// Kind distinguishes the filter operator variants from spec.md's algebra.
type Kind uint8

const (
	KindNop Kind = iota
	KindEmpty
	KindDirs
	KindFold
	KindSquash
	KindFile
	KindSubdir
	KindPrefix
	KindGlob
	KindWorkspace
	KindCompose
	KindChain
	KindSubtract
)

// Op is one node of a filter operator tree. Nested filters are referenced by
// their interned Filter handle, never embedded by value, so that the tree is
// really a DAG of shared handles and structural equality reduces to handle
// equality.
type Op struct {
	Kind    Kind
	Path    string   // File, Subdir, Prefix, Workspace: a path. Glob: a pattern.
	Filters []Filter // Compose
	A, B    Filter   // Chain(a,b), Subtract(a,b)
}

// Filter is an interned handle for an operator tree. It is a content hash of
// the operator's canonical encoding, so equal operator trees always produce
// equal handles and Filter is safe to use as a map key or compare with ==.
type Filter struct {
	hash [32]byte
}

var (
	internMu sync.Mutex
	byFilter = map[Filter]Op{}
)

// Lookup returns the operator a handle was interned from. Every Filter ever
// returned by a constructor or Parse in this process resolves successfully;
// a Filter value received from outside the process (e.g. deserialised) does
// not and ok is false.
func Lookup(f Filter) (Op, bool) {
	internMu.Lock()
	defer internMu.Unlock()
	op, ok := byFilter[f]
	return op, ok
}

func intern(op Op) Filter {
	f := Filter{hash: blake3.Sum256(encode(op))}

	internMu.Lock()
	defer internMu.Unlock()
	if _, ok := byFilter[f]; !ok {
		byFilter[f] = op
	}
	return f
}

// encode produces the canonical byte encoding an operator's content hash is
// taken over. It must be a bijection on (Kind, fields) up to the identity of
// already-interned child handles, and must never change shape across runs
// since the resulting hash is used as a durable cache key.
func encode(op Op) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(op.Kind))
	buf = appendString(buf, op.Path)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(op.Filters)))
	for _, c := range op.Filters {
		buf = append(buf, c.hash[:]...)
	}
	buf = append(buf, op.A.hash[:]...)
	buf = append(buf, op.B.hash[:]...)
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Constructors. Each normalises nothing by itself; intern is the only way
// filter handles are minted, so Normalize (in normalize.go) works purely in
// terms of these.

func Nop() Filter      { return intern(Op{Kind: KindNop}) }
func Empty() Filter    { return intern(Op{Kind: KindEmpty}) }
func Dirs() Filter     { return intern(Op{Kind: KindDirs}) }
func Fold() Filter     { return intern(Op{Kind: KindFold}) }
func Squash() Filter   { return intern(Op{Kind: KindSquash}) }

func File(path string) Filter      { return intern(Op{Kind: KindFile, Path: path}) }
func Subdir(path string) Filter    { return intern(Op{Kind: KindSubdir, Path: path}) }
func Prefix(path string) Filter    { return intern(Op{Kind: KindPrefix, Path: path}) }
func Glob(pattern string) Filter   { return intern(Op{Kind: KindGlob, Path: pattern}) }
func Workspace(path string) Filter { return intern(Op{Kind: KindWorkspace, Path: path}) }

func Compose(fs []Filter) Filter {
	cp := append([]Filter(nil), fs...)
	return intern(Op{Kind: KindCompose, Filters: cp})
}

func Chain(a, b Filter) Filter {
	return intern(Op{Kind: KindChain, A: a, B: b})
}

func Subtract(a, b Filter) Filter {
	return intern(Op{Kind: KindSubtract, A: a, B: b})
}

// kindOf is a small helper used by normalisation and printing to read a
// handle's kind without the ", ok" ceremony when the handle is known-valid.
func kindOf(f Filter) Kind {
	op, _ := Lookup(f)
	return op.Kind
}
