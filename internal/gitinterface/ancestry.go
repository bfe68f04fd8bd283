// SPDX-License-Identifier: Apache-2.0

package gitinterface

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/revlist"

	"github.com/gitviews/gitviews/internal/common/set"
)

// ObjectExists reports whether h names an object present in store,
// regardless of its type. The filter cache uses this to invalidate entries
// whose object was removed by an external garbage collection.
func ObjectExists(store Store, h Hash) bool {
	if h.IsZero() {
		return false
	}
	_, err := store.EncodedObject(plumbing.AnyObject, h)
	return err == nil
}

// ReachableCommits returns every commit reachable from include that is not
// also reachable from exclude — the same object-graph primitive as
// `git rev-list <include> --not <exclude>`. The history walk uses this to
// turn a "visit everything except this known/hidden boundary" request into
// a concrete commit set without hand-rolling a revwalk. The result is
// unordered.
func ReachableCommits(store Store, include, exclude []Hash) ([]Hash, error) {
	ids, err := revlist.Objects(store, include, exclude)
	if err != nil {
		return nil, fmt.Errorf("revlist: %w", err)
	}

	commits := make([]Hash, 0, len(ids))
	for _, id := range ids {
		if _, err := GetCommit(store, id); err == nil {
			commits = append(commits, id)
		}
	}
	return commits, nil
}

// CommonAncestorExists reports whether the given commits share any common
// ancestor (including one of them being an ancestor of another). With fewer
// than two commits the answer is vacuously true. It underlies the
// initial-merge-flattening rule: a merge whose parents share no history is
// an orphan-branch merge, and its synthetic empty-tree parent should not
// survive filtering.
func CommonAncestorExists(store Store, ids []Hash) (bool, error) {
	if len(ids) < 2 {
		return true, nil
	}

	closures := make([]*set.Set[string], len(ids))
	for i, id := range ids {
		reachable, err := ReachableCommits(store, []Hash{id}, nil)
		if err != nil {
			return false, err
		}
		s := set.NewSet[string]()
		for _, h := range reachable {
			s.Add(h.String())
		}
		closures[i] = s
	}

	for i := 0; i < len(closures); i++ {
		for j := i + 1; j < len(closures); j++ {
			if closures[i].Intersection(closures[j]).Len() > 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

// ParentsWithin filters parents to just those present in set, used when
// topologically sorting a commit set obtained from ReachableCommits: edges
// that leave the set (into the hidden/known boundary) are not part of the
// sub-DAG being ordered.
func ParentsWithin(store Store, h Hash, set map[Hash]struct{}) ([]Hash, error) {
	parents, err := ParentsOf(store, h)
	if err != nil {
		return nil, err
	}
	var kept []Hash
	for _, p := range parents {
		if _, ok := set[p]; ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
