// SPDX-License-Identifier: Apache-2.0

package treeops

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitviews/gitviews/internal/gitinterface"
)

func newMemo(t *testing.T) *Memo {
	t.Helper()
	m, err := NewMemo()
	require.NoError(t, err)
	return m
}

func TestInsertAndGetBlob(t *testing.T) {
	repo := gitinterface.NewInMemory()

	blob, err := gitinterface.WriteBlob(repo.Store, []byte("one"))
	require.NoError(t, err)

	tree, err := Insert(store(repo), EmptyTree(), "a/b/c.txt", blob, filemode.Regular)
	require.NoError(t, err)

	got, ok, err := GetBlob(store(repo), tree, "a/b/c.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blob, got)

	_, ok, err = GetBlob(store(repo), tree, "a/b/missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertOverwritesExisting(t *testing.T) {
	repo := gitinterface.NewInMemory()
	blobA, _ := gitinterface.WriteBlob(repo.Store, []byte("a"))
	blobB, _ := gitinterface.WriteBlob(repo.Store, []byte("b"))

	tree, err := Insert(store(repo), EmptyTree(), "f.txt", blobA, filemode.Regular)
	require.NoError(t, err)
	tree, err = Insert(store(repo), tree, "f.txt", blobB, filemode.Regular)
	require.NoError(t, err)

	got, ok, err := GetBlob(store(repo), tree, "f.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blobB, got)
}

func TestLookupTreeMissingReturnsEmpty(t *testing.T) {
	repo := gitinterface.NewInMemory()
	h, err := LookupTree(store(repo), EmptyTree(), "nope")
	require.NoError(t, err)
	assert.True(t, IsEmpty(h))
}

func TestLookupTreeFound(t *testing.T) {
	repo := gitinterface.NewInMemory()
	blob, _ := gitinterface.WriteBlob(repo.Store, []byte("x"))
	tree, err := Insert(store(repo), EmptyTree(), "sub/file.txt", blob, filemode.Regular)
	require.NoError(t, err)

	sub, err := LookupTree(store(repo), tree, "sub")
	require.NoError(t, err)

	got, ok, err := GetBlob(store(repo), sub, "file.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blob, got)
}

func TestOverlayMergesDisjointAndPrefersOverlayOnConflict(t *testing.T) {
	repo := gitinterface.NewInMemory()
	memo := newMemo(t)

	blobA, _ := gitinterface.WriteBlob(repo.Store, []byte("a"))
	blobB, _ := gitinterface.WriteBlob(repo.Store, []byte("b"))
	blobC, _ := gitinterface.WriteBlob(repo.Store, []byte("c"))

	base, err := Insert(store(repo), EmptyTree(), "keep.txt", blobA, filemode.Regular)
	require.NoError(t, err)
	base, err = Insert(store(repo), base, "conflict.txt", blobA, filemode.Regular)
	require.NoError(t, err)

	overlay, err := Insert(store(repo), EmptyTree(), "conflict.txt", blobB, filemode.Regular)
	require.NoError(t, err)
	overlay, err = Insert(store(repo), overlay, "added.txt", blobC, filemode.Regular)
	require.NoError(t, err)

	merged, err := Overlay(store(repo), memo, base, overlay)
	require.NoError(t, err)

	gotKeep, ok, _ := GetBlob(store(repo), merged, "keep.txt")
	assert.True(t, ok)
	assert.Equal(t, blobA, gotKeep)

	gotConflict, ok, _ := GetBlob(store(repo), merged, "conflict.txt")
	assert.True(t, ok)
	assert.Equal(t, blobB, gotConflict)

	gotAdded, ok, _ := GetBlob(store(repo), merged, "added.txt")
	assert.True(t, ok)
	assert.Equal(t, blobC, gotAdded)
}

func TestSubtractRemovesIdenticalEntriesOnly(t *testing.T) {
	repo := gitinterface.NewInMemory()
	memo := newMemo(t)

	blobA, _ := gitinterface.WriteBlob(repo.Store, []byte("a"))
	blobB, _ := gitinterface.WriteBlob(repo.Store, []byte("b"))

	a, err := Insert(store(repo), EmptyTree(), "same.txt", blobA, filemode.Regular)
	require.NoError(t, err)
	a, err = Insert(store(repo), a, "differs.txt", blobA, filemode.Regular)
	require.NoError(t, err)
	a, err = Insert(store(repo), a, "onlyA.txt", blobA, filemode.Regular)
	require.NoError(t, err)

	b, err := Insert(store(repo), EmptyTree(), "same.txt", blobA, filemode.Regular)
	require.NoError(t, err)
	b, err = Insert(store(repo), b, "differs.txt", blobB, filemode.Regular)
	require.NoError(t, err)

	result, err := Subtract(store(repo), memo, a, b)
	require.NoError(t, err)

	_, ok, _ := GetBlob(store(repo), result, "same.txt")
	assert.False(t, ok, "identical entries should be subtracted")

	gotDiffers, ok, _ := GetBlob(store(repo), result, "differs.txt")
	assert.True(t, ok)
	assert.Equal(t, blobA, gotDiffers)

	gotOnlyA, ok, _ := GetBlob(store(repo), result, "onlyA.txt")
	assert.True(t, ok)
	assert.Equal(t, blobA, gotOnlyA)
}

func TestRemovePredPrunesEmptyDirectories(t *testing.T) {
	repo := gitinterface.NewInMemory()
	memo := newMemo(t)

	blob, _ := gitinterface.WriteBlob(repo.Store, []byte("x"))
	tree, err := Insert(store(repo), EmptyTree(), "secrets/key.pem", blob, filemode.Regular)
	require.NoError(t, err)
	tree, err = Insert(store(repo), tree, "keep.txt", blob, filemode.Regular)
	require.NoError(t, err)

	result, err := RemovePred(store(repo), memo, tree, "", func(p string) bool {
		return p == "secrets/key.pem"
	})
	require.NoError(t, err)

	_, ok, _ := GetBlob(store(repo), result, "secrets/key.pem")
	assert.False(t, ok)

	sub, err := LookupTree(store(repo), result, "secrets")
	require.NoError(t, err)
	assert.True(t, IsEmpty(sub), "directory left empty by the predicate should be pruned")

	_, ok, _ = GetBlob(store(repo), result, "keep.txt")
	assert.True(t, ok)
}

func TestDirTreeSkeleton(t *testing.T) {
	repo := gitinterface.NewInMemory()
	blob, _ := gitinterface.WriteBlob(repo.Store, []byte("x"))

	tree, err := Insert(store(repo), EmptyTree(), "a/b/file.txt", blob, filemode.Regular)
	require.NoError(t, err)
	tree, err = Insert(store(repo), tree, "a/leaf.txt", blob, filemode.Regular)
	require.NoError(t, err)
	tree, err = Insert(store(repo), tree, "top.txt", blob, filemode.Regular)
	require.NoError(t, err)

	skeleton, err := DirTree(store(repo), tree)
	require.NoError(t, err)

	// top.txt was a file at the root: it leaves no trace since the root
	// itself isn't skeletonised into a marker by its own DirTree call.
	_, ok, _ := GetBlob(store(repo), skeleton, "top.txt")
	assert.False(t, ok)

	aSub, err := LookupTree(store(repo), skeleton, "a")
	require.NoError(t, err)
	require.False(t, IsEmpty(aSub))

	// "a/b" contained only a file, so it becomes a marker blob named "b".
	markerB, ok, err := GetBlob(store(repo), aSub, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", string(mustReadBlob(t, repo, markerB)))
}

func mustReadBlob(t *testing.T, repo *gitinterface.Repository, h gitinterface.Hash) []byte {
	t.Helper()
	data, err := gitinterface.ReadBlob(repo.Store, h)
	require.NoError(t, err)
	return data
}

func store(repo *gitinterface.Repository) gitinterface.Store {
	return repo.Store
}
