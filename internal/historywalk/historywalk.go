// SPDX-License-Identifier: Apache-2.0

// Package historywalk lifts the commit filter across an entire history: it
// finds which ancestors already have a cache entry so a walk only visits
// new commits, applies the filter along a reverse-topological traversal,
// updates refs in batch, and inverts a filtered edit back onto the
// original repository.
package historywalk

import (
	"github.com/gitviews/gitviews/internal/commitfilter"
	"github.com/gitviews/gitviews/internal/filtercache"
	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treefilter"
	"github.com/gitviews/gitviews/internal/treeops"
)

// Context bundles the tree-filter context and the cache transaction a walk
// reads through and writes into.
type Context struct {
	Tree  treefilter.Context
	Cache *filtercache.Transaction
}

// commitCtx builds a commitfilter.Context whose ResolveParent closes back
// over Walk, so that resolving a parent's filtered id benefits from the
// same known-set pruning as the outer walk instead of blindly recursing.
func (ctx Context) commitCtx() commitfilter.Context {
	return commitfilter.Context{
		Tree:  ctx.Tree,
		Cache: ctx.Cache,
		ResolveParent: func(f filterexpr.Filter, original gitinterface.Hash) (gitinterface.Hash, error) {
			return Walk(ctx, f, original)
		},
	}
}

// Walk computes apply_to_commit(f, input), doing the work of getting there
// efficiently: it discovers which ancestors are already cached (the "known"
// set), walks only the remainder in reverse-topological order applying the
// filter, then returns the now-cached result for input.
func Walk(ctx Context, f filterexpr.Filter, input gitinterface.Hash) (gitinterface.Hash, error) {
	if gitinterface.IsZero(input) {
		return gitinterface.ZeroHash, nil
	}

	spec := filterexpr.Spec(f)
	if cached, ok := ctx.Cache.Get(spec, input); ok {
		return cached, nil
	}

	ctx.Cache.EnterWalk()

	known, err := FindKnown(ctx.Tree.Store, ctx.Cache, spec, input)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	order, err := ancestorsOldestFirst(ctx.Tree.Store, input, known)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	cc := ctx.commitCtx()
	for _, c := range order {
		if _, err := commitfilter.ApplyToCommit(cc, f, c); err != nil {
			return gitinterface.ZeroHash, err
		}
	}

	return commitfilter.ApplyToCommit(cc, f, input)
}

// FindKnown discovers which ancestors of input already have a cache entry
// under spec. It repeats a pruned traversal from input until a pass adds no
// new known commit, covering a cache populated piecemeal by unrelated prior
// walks (a commit might only become provably known once an ancestor closer
// to input is discovered known in an earlier pass).
func FindKnown(store gitinterface.Store, cache *filtercache.Transaction, spec string, input gitinterface.Hash) (map[gitinterface.Hash]struct{}, error) {
	known := map[gitinterface.Hash]struct{}{}

	for {
		addedThisPass := false
		visited := map[gitinterface.Hash]struct{}{}
		queue := []gitinterface.Hash{input}

		for len(queue) > 0 {
			h := queue[0]
			queue = queue[1:]
			if _, ok := visited[h]; ok {
				continue
			}
			visited[h] = struct{}{}

			if _, ok := known[h]; ok {
				continue
			}
			if _, ok := cache.Get(spec, h); ok {
				known[h] = struct{}{}
				addedThisPass = true
				continue
			}

			parents, err := gitinterface.ParentsOf(store, h)
			if err != nil {
				return nil, err
			}
			queue = append(queue, parents...)
		}

		if !addedThisPass {
			break
		}
	}

	return known, nil
}

// ancestorsOldestFirst returns input and its ancestors topologically
// sorted so that every commit's parents precede it, excluding any commit
// reachable from hidden. The candidate set comes from
// gitinterface.ReachableCommits (go-git's revlist, the same machinery
// behind `git rev-list --not`); only the ordering is done by hand, since
// revlist returns an unordered set.
func ancestorsOldestFirst(store gitinterface.Store, input gitinterface.Hash, hidden map[gitinterface.Hash]struct{}) ([]gitinterface.Hash, error) {
	exclude := make([]gitinterface.Hash, 0, len(hidden))
	for h := range hidden {
		exclude = append(exclude, h)
	}

	candidates, err := gitinterface.ReachableCommits(store, []gitinterface.Hash{input}, exclude)
	if err != nil {
		return nil, err
	}

	set := make(map[gitinterface.Hash]struct{}, len(candidates))
	for _, h := range candidates {
		set[h] = struct{}{}
	}

	remainingParents := make(map[gitinterface.Hash]int, len(candidates))
	children := make(map[gitinterface.Hash][]gitinterface.Hash, len(candidates))
	for _, h := range candidates {
		parents, err := gitinterface.ParentsWithin(store, h, set)
		if err != nil {
			return nil, err
		}
		remainingParents[h] = len(parents)
		for _, p := range parents {
			children[p] = append(children[p], h)
		}
	}

	var queue []gitinterface.Hash
	for _, h := range candidates {
		if remainingParents[h] == 0 {
			queue = append(queue, h)
		}
	}

	order := make([]gitinterface.Hash, 0, len(candidates))
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		order = append(order, h)
		for _, child := range children[h] {
			remainingParents[child]--
			if remainingParents[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	return order, nil
}

// RefPair names a source ref to read the original tip from and a
// destination ref to write the filtered tip to.
type RefPair struct {
	Src, Dst string
}

// ApplyFilterToRefs runs Walk on each source ref's tip and, when the result
// is non-null and differs from the destination's current target, updates
// the destination ref. It returns how many refs were actually updated and
// never deletes a ref.
func ApplyFilterToRefs(ctx Context, f filterexpr.Filter, pairs []RefPair) (int, error) {
	updated := 0
	for _, pair := range pairs {
		tip, err := gitinterface.ResolveRef(ctx.Tree.Store, pair.Src)
		if err != nil {
			continue
		}

		filtered, err := Walk(ctx, f, tip)
		if err != nil {
			return updated, err
		}
		if gitinterface.IsZero(filtered) {
			continue
		}

		current, _ := gitinterface.ResolveRef(ctx.Tree.Store, pair.Dst)
		if current == filtered {
			continue
		}

		if err := gitinterface.SetRef(ctx.Tree.Store, pair.Dst, filtered); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// FindOriginal inverts apply_to_commit: given a filtered commit id, it
// returns the original commit that produced it. The backward cache is
// consulted first; on miss it falls back to a bounded walk over the
// ancestors of containedIn, filtering each one until a match turns up.
func FindOriginal(ctx Context, f filterexpr.Filter, containedIn, filteredID gitinterface.Hash) (gitinterface.Hash, error) {
	spec := filterexpr.Spec(f)
	if orig, ok := ctx.Cache.GetOriginal(spec, filteredID); ok {
		return orig, nil
	}
	if gitinterface.IsZero(containedIn) {
		return gitinterface.ZeroHash, nil
	}

	ancestors, err := ancestorsOldestFirst(ctx.Tree.Store, containedIn, nil)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	cc := ctx.commitCtx()
	for _, o := range ancestors {
		got, err := commitfilter.ApplyToCommit(cc, f, o)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if got == filteredID {
			return o, nil
		}
	}
	return gitinterface.ZeroHash, nil
}

// ResultKind is the outcome of UnapplyFilter.
type ResultKind int

const (
	// Done means the edit was successfully inverted; Result.NewOriginal
	// names the new commit on the original (unfiltered) history.
	Done ResultKind = iota
	// RejectMerge means a visited commit's parents resolved to more than
	// one candidate original tree, so the merge cannot be reconstructed
	// unambiguously. Result.N carries the number of distinct candidates.
	RejectMerge
	// BranchDoesNotExist means unfilteredOld was the null id and no
	// original branch exists to anchor the inversion to.
	BranchDoesNotExist
)

// Result is the structured outcome of UnapplyFilter.
type Result struct {
	Kind        ResultKind
	NewOriginal gitinterface.Hash
	N           int
}

// UnapplyFilter inverts the edits between old and new (both filtered
// commits) onto the original, unfiltered history reachable from
// unfilteredOld. It walks from new in reverse-topological order hiding old,
// resolves each visited commit's parents back to originals via
// FindOriginal, unapplies the tree against each resolved parent's tree, and
// rewrites a new original commit. A commit whose candidate trees disagree
// across parents (an original merge whose sides differ outside the filter)
// is rejected rather than silently guessed at.
func UnapplyFilter(ctx Context, f filterexpr.Filter, unfilteredOld, old, new gitinterface.Hash) (Result, error) {
	if gitinterface.IsZero(unfilteredOld) {
		return Result{Kind: BranchDoesNotExist}, nil
	}

	hidden := map[gitinterface.Hash]struct{}{}
	if !gitinterface.IsZero(old) {
		hidden[old] = struct{}{}
	}

	order, err := ancestorsOldestFirst(ctx.Tree.Store, new, hidden)
	if err != nil {
		return Result{}, err
	}

	store := ctx.Tree.Store
	spec := filterexpr.Spec(f)
	rewritten := map[gitinterface.Hash]gitinterface.Hash{}

	var lastOriginal gitinterface.Hash
	for _, filteredCommit := range order {
		c, err := gitinterface.GetCommit(store, filteredCommit)
		if err != nil {
			return Result{}, err
		}

		var resolvedParents []gitinterface.Hash
		treesSeen := map[gitinterface.Hash]struct{}{}
		var candidateTree gitinterface.Hash

		for _, fp := range c.ParentIDs {
			origParent, ok := rewritten[fp]
			if !ok {
				origParent, err = FindOriginal(ctx, f, unfilteredOld, fp)
				if err != nil {
					return Result{}, err
				}
			}
			if gitinterface.IsZero(origParent) {
				continue
			}
			resolvedParents = append(resolvedParents, origParent)

			origParentCommit, err := gitinterface.GetCommit(store, origParent)
			if err != nil {
				return Result{}, err
			}

			tree, err := treefilter.Unapply(ctx.Tree, f, c.TreeHash, origParentCommit.TreeHash)
			if err != nil {
				return Result{}, err
			}
			if _, seen := treesSeen[tree]; !seen {
				treesSeen[tree] = struct{}{}
				candidateTree = tree
			}
		}

		var finalTree gitinterface.Hash
		switch len(treesSeen) {
		case 0:
			finalTree, err = treefilter.Unapply(ctx.Tree, f, c.TreeHash, treeops.EmptyTree())
			if err != nil {
				return Result{}, err
			}
		case 1:
			finalTree = candidateTree
		default:
			return Result{Kind: RejectMerge, NewOriginal: lastOriginal, N: len(treesSeen)}, nil
		}

		base := &gitinterface.Commit{Author: c.Author, Committer: c.Committer}
		newOriginal, err := gitinterface.WriteCommit(store, base, finalTree, resolvedParents, c.Message)
		if err != nil {
			return Result{}, err
		}

		ctx.Cache.Insert(spec, newOriginal, filteredCommit)
		rewritten[filteredCommit] = newOriginal
		lastOriginal = newOriginal
	}

	return Result{Kind: Done, NewOriginal: lastOriginal}, nil
}
