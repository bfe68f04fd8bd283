// SPDX-License-Identifier: Apache-2.0

package historywalk

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitviews/gitviews/internal/filtercache"
	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treefilter"
	"github.com/gitviews/gitviews/internal/treeops"
)

func newContext(t *testing.T) (Context, gitinterface.Store) {
	t.Helper()
	store := gitinterface.NewInMemory().Store
	memo, err := treeops.NewMemo()
	require.NoError(t, err)
	tree := treefilter.Context{Store: store, Memo: memo}
	txn := filtercache.NewTransaction(filtercache.New(store))
	return Context{Tree: tree, Cache: txn}, store
}

func writeBlob(t *testing.T, store gitinterface.Store, content string) gitinterface.Hash {
	t.Helper()
	h, err := gitinterface.WriteBlob(store, []byte(content))
	require.NoError(t, err)
	return h
}

func commit(t *testing.T, store gitinterface.Store, tree gitinterface.Hash, parents []gitinterface.Hash, message string) gitinterface.Hash {
	t.Helper()
	base := &gitinterface.Commit{
		Author:    object.Signature{Name: "tester", Email: "tester@example.com"},
		Committer: object.Signature{Name: "tester", Email: "tester@example.com"},
	}
	h, err := gitinterface.WriteCommit(store, base, tree, parents, message)
	require.NoError(t, err)
	return h
}

func TestWalkChainThenIncrementalAdvanceVisitsOneCommit(t *testing.T) {
	ctx, store := newContext(t)
	f := filterexpr.Subdir("a")

	tree := treeops.EmptyTree()
	var tip gitinterface.Hash
	var parents []gitinterface.Hash
	const n = 40
	for i := 0; i < n; i++ {
		blob := writeBlob(t, store, "v")
		var err error
		tree, err = treeops.Insert(store, tree, "a/x", blob, filemode.Regular)
		require.NoError(t, err)
		tip = commit(t, store, tree, parents, "edit")
		parents = []gitinterface.Hash{tip}
	}

	_, err := Walk(ctx, f, tip)
	require.NoError(t, err)

	nextBlob := writeBlob(t, store, "final")
	nextTree, err := treeops.Insert(store, tree, "a/x", nextBlob, filemode.Regular)
	require.NoError(t, err)
	nextTip := commit(t, store, nextTree, []gitinterface.Hash{tip}, "final edit")

	known, err := FindKnown(store, ctx.Cache, filterexpr.Spec(f), nextTip)
	require.NoError(t, err)
	assert.Contains(t, known, tip)

	order, err := ancestorsOldestFirst(store, nextTip, known)
	require.NoError(t, err)
	assert.Equal(t, []gitinterface.Hash{nextTip}, order, "only the newly advanced tip should be unvisited")

	got, err := Walk(ctx, f, nextTip)
	require.NoError(t, err)
	assert.False(t, gitinterface.IsZero(got))
}

func TestApplyFilterToRefsUpdatesOnlyWhenChanged(t *testing.T) {
	ctx, store := newContext(t)
	f := filterexpr.Subdir("a")

	tree := treeops.EmptyTree()
	blob := writeBlob(t, store, "1")
	tree, err := treeops.Insert(store, tree, "a/x", blob, filemode.Regular)
	require.NoError(t, err)
	tip := commit(t, store, tree, nil, "root")

	require.NoError(t, gitinterface.SetRef(store, "refs/heads/main", tip))

	updated, err := ApplyFilterToRefs(ctx, f, []RefPair{{Src: "refs/heads/main", Dst: "refs/views/a/heads/main"}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = ApplyFilterToRefs(ctx, f, []RefPair{{Src: "refs/heads/main", Dst: "refs/views/a/heads/main"}})
	require.NoError(t, err)
	assert.Equal(t, 0, updated, "re-running against an unchanged tip must not update the ref again")
}

func TestFindOriginalInvertsWalk(t *testing.T) {
	ctx, store := newContext(t)
	f := filterexpr.Subdir("a")

	tree := treeops.EmptyTree()
	blob := writeBlob(t, store, "1")
	tree, err := treeops.Insert(store, tree, "a/x", blob, filemode.Regular)
	require.NoError(t, err)
	root := commit(t, store, tree, nil, "root")

	filtered, err := Walk(ctx, f, root)
	require.NoError(t, err)
	require.False(t, gitinterface.IsZero(filtered))

	orig, err := FindOriginal(ctx, f, root, filtered)
	require.NoError(t, err)
	assert.Equal(t, root, orig)
}

func TestUnapplyFilterBranchDoesNotExist(t *testing.T) {
	ctx, _ := newContext(t)
	f := filterexpr.Subdir("a")

	res, err := UnapplyFilter(ctx, f, gitinterface.ZeroHash, gitinterface.ZeroHash, gitinterface.ZeroHash)
	require.NoError(t, err)
	assert.Equal(t, BranchDoesNotExist, res.Kind)
}

func TestUnapplyFilterRoundTripsSingleEdit(t *testing.T) {
	ctx, store := newContext(t)
	f := filterexpr.Subdir("a")

	tree := treeops.EmptyTree()
	blob := writeBlob(t, store, "1")
	tree, err := treeops.Insert(store, tree, "a/x", blob, filemode.Regular)
	require.NoError(t, err)
	tree, err = treeops.Insert(store, tree, "b/y", writeBlob(t, store, "unrelated"), filemode.Regular)
	require.NoError(t, err)
	root := commit(t, store, tree, nil, "root")

	oldFiltered, err := Walk(ctx, f, root)
	require.NoError(t, err)

	filteredTree, err := treefilter.Apply(ctx.Tree, f, tree)
	require.NoError(t, err)
	editedBlob := writeBlob(t, store, "2")
	newFilteredTree, err := treeops.Insert(store, filteredTree, "x", editedBlob, filemode.Regular)
	require.NoError(t, err)
	newFiltered := commit(t, store, newFilteredTree, []gitinterface.Hash{oldFiltered}, "edit x")

	res, err := UnapplyFilter(ctx, f, root, oldFiltered, newFiltered)
	require.NoError(t, err)
	require.Equal(t, Done, res.Kind)
	require.False(t, gitinterface.IsZero(res.NewOriginal))

	newOrigCommit, err := gitinterface.GetCommit(store, res.NewOriginal)
	require.NoError(t, err)
	assert.Equal(t, []gitinterface.Hash{root}, newOrigCommit.ParentIDs)

	data, ok := func() (string, bool) {
		b, found, err := treeops.GetBlob(store, newOrigCommit.TreeHash, "a/x")
		require.NoError(t, err)
		if !found {
			return "", false
		}
		d, err := gitinterface.ReadBlob(store, b)
		require.NoError(t, err)
		return string(d), true
	}()
	require.True(t, ok)
	assert.Equal(t, "2", data)

	unrelated, found, err := treeops.GetBlob(store, newOrigCommit.TreeHash, "b/y")
	require.NoError(t, err)
	require.True(t, found)
	unrelatedData, err := gitinterface.ReadBlob(store, unrelated)
	require.NoError(t, err)
	assert.Equal(t, "unrelated", string(unrelatedData))
}

// TestUnapplyFilterRejectsMergeWithDivergentCandidateTrees covers the S5
// scenario: a filtered merge commit whose two parents trace back to
// originals that agree inside the filtered subtree but disagree outside it.
// Unapplying such a merge cannot pick a side, so it must be rejected rather
// than guessed at.
func TestUnapplyFilterRejectsMergeWithDivergentCandidateTrees(t *testing.T) {
	ctx, store := newContext(t)
	f := filterexpr.Subdir("a")
	spec := filterexpr.Spec(f)

	treeA := treeops.EmptyTree()
	var err error
	treeA, err = treeops.Insert(store, treeA, "a/x", writeBlob(t, store, "1"), filemode.Regular)
	require.NoError(t, err)
	treeA, err = treeops.Insert(store, treeA, "b/y", writeBlob(t, store, "from-a"), filemode.Regular)
	require.NoError(t, err)
	commitA := commit(t, store, treeA, nil, "A")

	treeB := treeops.EmptyTree()
	treeB, err = treeops.Insert(store, treeB, "a/x", writeBlob(t, store, "1"), filemode.Regular)
	require.NoError(t, err)
	treeB, err = treeops.Insert(store, treeB, "b/z", writeBlob(t, store, "from-b"), filemode.Regular)
	require.NoError(t, err)
	commitB := commit(t, store, treeB, nil, "B")

	filteredTreeA, err := treefilter.Apply(ctx.Tree, f, treeA)
	require.NoError(t, err)
	filteredTreeB, err := treefilter.Apply(ctx.Tree, f, treeB)
	require.NoError(t, err)
	require.Equal(t, filteredTreeA, filteredTreeB, "both originals agree inside the filtered subtree")

	fB := commit(t, store, filteredTreeB, nil, "fB")
	fA := commit(t, store, filteredTreeA, []gitinterface.Hash{fB}, "fA")
	mergeFiltered := commit(t, store, filteredTreeA, []gitinterface.Hash{fA, fB}, "merge")

	ctx.Cache.Insert(spec, commitA, fA)
	ctx.Cache.Insert(spec, commitB, fB)

	res, err := UnapplyFilter(ctx, f, commitA, fA, mergeFiltered)
	require.NoError(t, err)
	assert.Equal(t, RejectMerge, res.Kind)
	assert.Equal(t, 2, res.N)
}
