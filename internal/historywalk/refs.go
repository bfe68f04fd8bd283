// SPDX-License-Identifier: Apache-2.0

package historywalk

import "strings"

// refKinds are the ref-name prefixes the engine treats equivalently to
// refs/heads/<branch> for the purpose of filtering: a draft or for-review
// ref is walked exactly like a branch ref, but keeps its own prefix in the
// filtered output rather than being rewritten to refs/heads/*.
var refKinds = []string{"refs/heads/", "refs/for/", "refs/drafts/"}

// SplitRefKind reports the ref-kind prefix and branch name of ref, if ref
// falls into one of the equivalence classes the engine treats as an
// ordinary branch ref for filtering purposes.
func SplitRefKind(ref string) (kind, branch string, ok bool) {
	for _, k := range refKinds {
		if strings.HasPrefix(ref, k) {
			return k, strings.TrimPrefix(ref, k), true
		}
	}
	return "", "", false
}

// DraftRefTarget computes the destination ref name for the filtered view of
// ref under destNamespace, preserving ref's own prefix (refs/heads/,
// refs/for/ or refs/drafts/) rather than collapsing every kind to
// refs/heads/*. It reports false if ref is not one of the recognised kinds.
func DraftRefTarget(ref, destNamespace string) (string, bool) {
	kind, branch, ok := SplitRefKind(ref)
	if !ok {
		return "", false
	}
	return "refs/namespaces/" + destNamespace + "/" + kind + branch, true
}
