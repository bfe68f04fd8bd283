// SPDX-License-Identifier: Apache-2.0

// Package commitfilter lifts the pure tree filter to the commit graph:
// given a filter and a commit, it computes the filtered tree, selects which
// parents survive, and either reuses the original commit id (when nothing
// changed) or writes a new commit preserving author, committer and message.
package commitfilter

import (
	"fmt"

	"github.com/gitviews/gitviews/internal/filtercache"
	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treefilter"
	"github.com/gitviews/gitviews/internal/treeops"
)

// ResolveParent resolves the filtered id of a single (filter, commit) pair
// on behalf of ApplyToCommit, standing in for both a direct parent (filter
// == f) and a Workspace extra parent (filter == Subtract(cw, pcw)). A
// caller that is not running a full history walk may bind this directly to
// ApplyToCommit; historywalk binds it to its own known-set-pruning Walk so
// that ancestors visited earlier in the same traversal are cache hits
// rather than redundant recursive work.
type ResolveParent func(f filterexpr.Filter, original gitinterface.Hash) (gitinterface.Hash, error)

// Context bundles everything ApplyToCommit and CreateFilteredCommit need:
// the tree-filter context (object store plus tree-op memoisation), the
// cache transaction results are recorded into, and the parent resolver.
type Context struct {
	Tree          treefilter.Context
	Cache         *filtercache.Transaction
	ResolveParent ResolveParent
}

func (ctx Context) store() gitinterface.Store {
	return ctx.Tree.Store
}

// ApplyToCommit computes apply_to_commit(f, commit): the id of the filtered
// commit, or the zero hash if commit vanishes under f. Results are
// memoised in ctx.Cache under (spec(f), commit).
func ApplyToCommit(ctx Context, f filterexpr.Filter, commit gitinterface.Hash) (gitinterface.Hash, error) {
	if gitinterface.IsZero(commit) {
		return gitinterface.ZeroHash, nil
	}

	spec := filterexpr.Spec(f)
	if ctx.Cache != nil {
		if cached, ok := ctx.Cache.Get(spec, commit); ok {
			return cached, nil
		}
	}

	result, err := applyToCommitUncached(ctx, f, commit)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	if ctx.Cache != nil {
		ctx.Cache.Insert(spec, commit, result)
	}
	return result, nil
}

func applyToCommitUncached(ctx Context, f filterexpr.Filter, commitID gitinterface.Hash) (gitinterface.Hash, error) {
	store := ctx.store()
	op, ok := filterexpr.Lookup(f)
	if !ok {
		return gitinterface.ZeroHash, fmt.Errorf("apply_to_commit: unknown filter handle")
	}

	c, err := gitinterface.GetCommit(store, commitID)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	switch op.Kind {
	case filterexpr.KindNop:
		return commitID, nil

	case filterexpr.KindEmpty:
		return gitinterface.ZeroHash, nil

	case filterexpr.KindSquash:
		return rewriteWithParents(store, c, c.TreeHash, nil)

	case filterexpr.KindChain:
		mid, err := ApplyToCommit(ctx, op.A, commitID)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if gitinterface.IsZero(mid) {
			return gitinterface.ZeroHash, nil
		}
		return ApplyToCommit(ctx, op.B, mid)

	default:
		parentIDs, err := filteredParentIDs(ctx, f, op, c)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		tree, err := filteredTree(ctx, f, op, c, parentIDs)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		return CreateFilteredCommit(ctx, c, parentIDs, tree)
	}
}

// filteredTree implements the per-operator "filtered_tree" policy. Most
// operators simply delegate to the pure tree-level Apply; Fold looks at the
// (already computed) filtered parents instead.
func filteredTree(ctx Context, f filterexpr.Filter, op filterexpr.Op, c *gitinterface.Commit, filteredParents []gitinterface.Hash) (gitinterface.Hash, error) {
	store := ctx.store()

	switch op.Kind {
	case filterexpr.KindFold:
		result := c.TreeHash
		for _, fp := range filteredParents {
			if gitinterface.IsZero(fp) {
				continue
			}
			pc, err := gitinterface.GetCommit(store, fp)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			result, err = treeops.Overlay(store, ctx.Tree.Memo, result, pc.TreeHash)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
		}
		return result, nil

	default:
		// Compose, Workspace, Subtract and the remaining leaf operators all
		// reduce to the plain tree-level transform of c's tree: Compose's
		// overlay-of-children and Subtract's round-trip-through-unapply are
		// defined identically at the tree and commit level (see
		// treefilter.Apply), and Workspace's tree body is apply(f, c.tree)
		// with the extra parents handled entirely in filteredParentIDs.
		return treefilter.Apply(ctx.Tree, f, c.TreeHash)
	}
}

// filteredParentIDs resolves every original parent's filtered id via
// ctx.ResolveParent, and for Workspace appends the extra parents that
// capture history which only became reachable under the new workspace
// definition.
func filteredParentIDs(ctx Context, f filterexpr.Filter, op filterexpr.Op, c *gitinterface.Commit) ([]gitinterface.Hash, error) {
	ids := make([]gitinterface.Hash, 0, len(c.ParentIDs))
	for _, p := range c.ParentIDs {
		fp, err := ctx.ResolveParent(f, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fp)
	}

	if op.Kind != filterexpr.KindWorkspace {
		return ids, nil
	}

	extra, err := workspaceExtraParents(ctx, op.Path, c)
	if err != nil {
		return nil, err
	}
	return append(ids, extra...), nil
}

// workspaceExtraParents implements the Workspace "extra parents" rule: for
// each original parent q, diff the workspace definition at c against the
// one at q and pull in whatever that difference resolves to.
func workspaceExtraParents(ctx Context, dir string, c *gitinterface.Commit) ([]gitinterface.Hash, error) {
	store := ctx.store()

	cw, ok := treefilter.WorkspaceFilterAt(ctx.Tree, dir, c.TreeHash)
	if !ok {
		return nil, nil
	}

	var extra []gitinterface.Hash
	for _, parentID := range c.ParentIDs {
		q, err := gitinterface.GetCommit(store, parentID)
		if err != nil {
			return nil, err
		}

		pcw, ok := treefilter.WorkspaceFilterAt(ctx.Tree, dir, q.TreeHash)
		if !ok {
			continue
		}

		diffFilter := filterexpr.Subtract(cw, pcw)
		extraID, err := ctx.ResolveParent(diffFilter, parentID)
		if err != nil {
			return nil, err
		}
		if !gitinterface.IsZero(extraID) {
			extra = append(extra, extraID)
		}
	}
	return extra, nil
}

// CreateFilteredCommit implements create_filtered_commit: given a commit c,
// the (possibly-null) filtered ids of its parents, and the commit's
// filtered tree, it decides which parents survive and either reuses c's id
// verbatim or writes a new commit.
func CreateFilteredCommit(ctx Context, c *gitinterface.Commit, parentIDs []gitinterface.Hash, tree gitinterface.Hash) (gitinterface.Hash, error) {
	store := ctx.store()

	var survivors []gitinterface.Hash
	for _, p := range parentIDs {
		if !gitinterface.IsZero(p) {
			survivors = append(survivors, p)
		}
	}

	if len(survivors) >= 2 {
		ok, err := gitinterface.CommonAncestorExists(store, survivors)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if !ok {
			var kept []gitinterface.Hash
			for _, s := range survivors {
				sc, err := gitinterface.GetCommit(store, s)
				if err != nil {
					return gitinterface.ZeroHash, err
				}
				if !treeops.IsEmpty(sc.TreeHash) {
					kept = append(kept, s)
				}
			}
			survivors = kept
		}
	}

	selected, err := selectParents(store, c, survivors, tree)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	if len(selected) == 0 {
		isEmptyRoot := len(c.ParentIDs) == 0 && treeops.IsEmpty(c.TreeHash)
		if !isEmptyRoot {
			if len(survivors) > 0 {
				return survivors[0], nil
			}
			if treeops.IsEmpty(tree) {
				return gitinterface.ZeroHash, nil
			}
			// tree is non-empty, nothing upstream to anchor to: falls
			// through and becomes a new root commit.
		}
	}

	return rewriteWithParents(store, c, tree, selected)
}

// selectParents implements the "parent selection" rule: a commit is kept
// (its selected parents are its survivors) if it affects the filter — some
// filtered parent's tree differs from the commit's own filtered tree — or
// if every original parent already had the same tree as c (so dropping it
// loses nothing). Otherwise it collapses into its predecessor.
func selectParents(store gitinterface.Store, c *gitinterface.Commit, survivors []gitinterface.Hash, tree gitinterface.Hash) ([]gitinterface.Hash, error) {
	affectsFilter := false
	for _, s := range survivors {
		sc, err := gitinterface.GetCommit(store, s)
		if err != nil {
			return nil, err
		}
		if sc.TreeHash != tree {
			affectsFilter = true
			break
		}
	}

	allDiffsEmpty := true
	for _, origParent := range c.ParentIDs {
		pc, err := gitinterface.GetCommit(store, origParent)
		if err != nil {
			return nil, err
		}
		if pc.TreeHash != c.TreeHash {
			allDiffsEmpty = false
			break
		}
	}

	if affectsFilter || allDiffsEmpty {
		return survivors, nil
	}
	return nil, nil
}

// rewriteWithParents is the signature-preservation shortcut shared by every
// path that writes a filtered commit: if nothing actually changed, reuse
// c's id verbatim instead of minting a new object.
func rewriteWithParents(store gitinterface.Store, c *gitinterface.Commit, tree gitinterface.Hash, parents []gitinterface.Hash) (gitinterface.Hash, error) {
	if tree == c.TreeHash && gitinterface.SameParents(parents, c.ParentIDs) {
		return c.Hash, nil
	}
	return gitinterface.WriteCommit(store, c, tree, parents, c.Message)
}
