// SPDX-License-Identifier: Apache-2.0

package filterengine

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treeops"
)

func TestParseSpecRoundTrip(t *testing.T) {
	f, err := Parse(":/lib")
	require.NoError(t, err)
	assert.Equal(t, ":/lib", Spec(f))
}

func TestEngineApplyAndWalk(t *testing.T) {
	store := gitinterface.NewInMemory().Store

	tree := treeops.EmptyTree()
	blob, err := gitinterface.WriteBlob(store, []byte("hi"))
	require.NoError(t, err)
	tree, err = treeops.Insert(store, tree, "lib/a", blob, filemode.Regular)
	require.NoError(t, err)

	base := &gitinterface.Commit{
		Author:    object.Signature{Name: "t", Email: "t@example.com"},
		Committer: object.Signature{Name: "t", Email: "t@example.com"},
	}
	root, err := gitinterface.WriteCommit(store, base, tree, nil, "root")
	require.NoError(t, err)
	require.NoError(t, gitinterface.SetRef(store, "refs/heads/main", root))

	engine, err := New(store)
	require.NoError(t, err)

	f, err := Parse(":/lib")
	require.NoError(t, err)

	filteredTree, err := engine.Apply(f, tree)
	require.NoError(t, err)
	a, found, err := treeops.GetBlob(store, filteredTree, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, blob, a)

	txn := engine.Transaction()
	updated, err := engine.ApplyFilterToRefs(txn, f, []RefPair{{Src: "refs/heads/main", Dst: "refs/views/lib/heads/main"}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	engine.CommitTransaction(txn)

	filteredTip, err := gitinterface.ResolveRef(store, "refs/views/lib/heads/main")
	require.NoError(t, err)

	txn2 := engine.Transaction()
	orig, err := engine.FindOriginal(txn2, f, root, filteredTip)
	require.NoError(t, err)
	assert.Equal(t, root, orig)
}
