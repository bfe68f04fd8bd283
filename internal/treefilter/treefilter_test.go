// SPDX-License-Identifier: Apache-2.0

package treefilter

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treeops"
)

func newContext(t *testing.T) (Context, *gitinterface.Repository) {
	t.Helper()
	repo := gitinterface.NewInMemory()
	memo, err := treeops.NewMemo()
	require.NoError(t, err)
	return Context{Store: repo.Store, Memo: memo}, repo
}

func writeFile(t *testing.T, repo *gitinterface.Repository, tree gitinterface.Hash, path, content string) gitinterface.Hash {
	t.Helper()
	blob, err := gitinterface.WriteBlob(repo.Store, []byte(content))
	require.NoError(t, err)
	newTree, err := treeops.Insert(repo.Store, tree, path, blob, filemode.Regular)
	require.NoError(t, err)
	return newTree
}

func readFile(t *testing.T, repo *gitinterface.Repository, tree gitinterface.Hash, path string) (string, bool) {
	t.Helper()
	blob, ok, err := treeops.GetBlob(repo.Store, tree, path)
	require.NoError(t, err)
	if !ok {
		return "", false
	}
	data, err := gitinterface.ReadBlob(repo.Store, blob)
	require.NoError(t, err)
	return string(data), true
}

// S1: Subdir apply/unapply round trip.
func TestSubdirApplyAndUnapply(t *testing.T) {
	ctx, repo := newContext(t)

	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "a/x", "1")
	tree = writeFile(t, repo, tree, "a/y", "2")
	tree = writeFile(t, repo, tree, "b/z", "3")

	f := filterexpr.Subdir("a")

	filtered, err := Apply(ctx, f, tree)
	require.NoError(t, err)

	x, ok := readFile(t, repo, filtered, "x")
	require.True(t, ok)
	assert.Equal(t, "1", x)
	y, ok := readFile(t, repo, filtered, "y")
	require.True(t, ok)
	assert.Equal(t, "2", y)

	parent := treeops.EmptyTree()
	parent = writeFile(t, repo, parent, "b/z", "3")

	unapplied, err := Unapply(ctx, f, filtered, parent)
	require.NoError(t, err)

	ax, ok := readFile(t, repo, unapplied, "a/x")
	require.True(t, ok)
	assert.Equal(t, "1", ax)
	bz, ok := readFile(t, repo, unapplied, "b/z")
	require.True(t, ok)
	assert.Equal(t, "3", bz)
}

// S2: Chain(Subdir(a), Prefix(a)) normalises to identity on the a subtree.
func TestSubdirThenPrefixRestoresSubtree(t *testing.T) {
	ctx, repo := newContext(t)

	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "a/x", "1")
	tree = writeFile(t, repo, tree, "b/z", "3")

	f := filterexpr.Normalize(filterexpr.Chain(filterexpr.Subdir("a"), filterexpr.Prefix("a")))
	assert.Equal(t, filterexpr.Nop(), f)

	sub, err := treeops.LookupTree(repo.Store, tree, "a")
	require.NoError(t, err)

	out, err := Apply(ctx, f, tree)
	require.NoError(t, err)
	assert.Equal(t, tree, out)
	_ = sub
}

// S3: exclude via glob.
func TestExcludeGlob(t *testing.T) {
	ctx, repo := newContext(t)

	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "src/main.c", "int main(){}")
	tree = writeFile(t, repo, tree, "src/test.c", "test")
	tree = writeFile(t, repo, tree, "README", "doc")

	f, err := filterexpr.Parse(":exclude[::**/test.c]")
	require.NoError(t, err)

	out, err := Apply(ctx, f, tree)
	require.NoError(t, err)

	_, ok := readFile(t, repo, out, "src/test.c")
	assert.False(t, ok)
	_, ok = readFile(t, repo, out, "src/main.c")
	assert.True(t, ok)
	_, ok = readFile(t, repo, out, "README")
	assert.True(t, ok)
}

// S4: workspace filter.
func TestWorkspaceFilter(t *testing.T) {
	ctx, repo := newContext(t)

	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "ws/workspace.josh", ":/lib")
	tree = writeFile(t, repo, tree, "lib/a", "contents")

	f := filterexpr.Workspace("ws")
	out, err := Apply(ctx, f, tree)
	require.NoError(t, err)

	a, ok := readFile(t, repo, out, "a")
	require.True(t, ok)
	assert.Equal(t, "contents", a)
}

func TestWorkspaceFallsBackToSubdirWithoutWorkspaceFile(t *testing.T) {
	ctx, repo := newContext(t)

	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "ws/a", "x")

	f := filterexpr.Workspace("ws")
	out, err := Apply(ctx, f, tree)
	require.NoError(t, err)

	a, ok := readFile(t, repo, out, "a")
	require.True(t, ok)
	assert.Equal(t, "x", a)
}

func TestIdentityAndEmptyLaws(t *testing.T) {
	ctx, repo := newContext(t)
	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "a", "1")

	out, err := Apply(ctx, filterexpr.Nop(), tree)
	require.NoError(t, err)
	assert.Equal(t, tree, out)

	out, err = Apply(ctx, filterexpr.Empty(), tree)
	require.NoError(t, err)
	assert.True(t, treeops.IsEmpty(out))

	out, err = Apply(ctx, filterexpr.Nop(), treeops.EmptyTree())
	require.NoError(t, err)
	assert.True(t, treeops.IsEmpty(out))
}

func TestUnapplyNotReversible(t *testing.T) {
	ctx, repo := newContext(t)
	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "a", "1")

	f := filterexpr.Subtract(filterexpr.Subdir("x"), filterexpr.Subdir("y"))
	_, err := Unapply(ctx, f, tree, treeops.EmptyTree())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilterNotReversible)
}

func TestComposeOverlayOrderLaterWins(t *testing.T) {
	ctx, repo := newContext(t)
	tree := treeops.EmptyTree()
	tree = writeFile(t, repo, tree, "a/f", "1")
	tree = writeFile(t, repo, tree, "b/f", "2")

	f := filterexpr.Compose([]filterexpr.Filter{
		filterexpr.Chain(filterexpr.Subdir("a"), filterexpr.Prefix("out")),
		filterexpr.Chain(filterexpr.Subdir("b"), filterexpr.Prefix("out")),
	})

	out, err := Apply(ctx, f, tree)
	require.NoError(t, err)

	got, ok := readFile(t, repo, out, "out/f")
	require.True(t, ok)
	assert.Equal(t, "2", got, "later compose child should win on conflict")
}
