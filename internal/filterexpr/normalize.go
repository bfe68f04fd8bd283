// SPDX-License-Identifier: Apache-2.0

package filterexpr

// Normalize rewrites a filter's operator tree to a fixed point using the
// rewrite rules in this file (normalizeChain, normalizeCompose,
// foldPrefixSiblings), then returns the (possibly new) interned handle for
// the result.
func Normalize(f Filter) Filter {
	prev := f
	for {
		next := normalizeOnce(prev)
		if next == prev {
			return next
		}
		prev = next
	}
}

func normalizeOnce(f Filter) Filter {
	op, ok := Lookup(f)
	if !ok {
		return f
	}

	switch op.Kind {
	case KindChain:
		return normalizeChain(normalizeOnce(op.A), normalizeOnce(op.B))
	case KindCompose:
		return normalizeCompose(op.Filters)
	case KindSubtract:
		a, b := normalizeOnce(op.A), normalizeOnce(op.B)
		if a == op.A && b == op.B {
			return f
		}
		return Subtract(a, b)
	default:
		return f
	}
}

func normalizeChain(a, b Filter) Filter {
	switch kindOf(a) {
	case KindNop:
		return b
	case KindEmpty:
		return Empty()
	}
	switch kindOf(b) {
	case KindNop:
		return a
	case KindEmpty:
		return Empty()
	}

	aOp, _ := Lookup(a)
	bOp, _ := Lookup(b)

	if aOp.Kind == KindSubdir && bOp.Kind == KindPrefix && aOp.Path == bOp.Path {
		return Nop()
	}
	if aOp.Kind == KindPrefix && bOp.Kind == KindSubdir && aOp.Path == bOp.Path {
		return Nop()
	}

	// Chain(Chain(x,y), z) -> Chain(x, Chain(y,z)): right-associate so the
	// tree always leans right, which is what lets the two rules above see
	// adjacent Subdir/Prefix pairs after repeated normalisation.
	if aOp.Kind == KindChain {
		return normalizeOnce(Chain(aOp.A, normalizeChain(aOp.B, b)))
	}

	return Chain(a, b)
}

func normalizeCompose(children []Filter) Filter {
	var flat []Filter
	for _, c := range children {
		nc := normalizeOnce(c)
		if ncOp, ok := Lookup(nc); ok && ncOp.Kind == KindCompose {
			flat = append(flat, ncOp.Filters...)
			continue
		}
		flat = append(flat, nc)
	}

	flat = foldPrefixSiblings(flat)

	switch len(flat) {
	case 0:
		return Empty()
	case 1:
		return flat[0]
	default:
		return Compose(flat)
	}
}

// trailingPrefix reports whether f has the shape Chain(inner, Prefix(path)),
// the form produced whenever some content is relocated under path.
func trailingPrefix(f Filter) (path string, inner Filter, ok bool) {
	op, found := Lookup(f)
	if !found || op.Kind != KindChain {
		return "", Filter{}, false
	}
	bOp, found := Lookup(op.B)
	if !found || bOp.Kind != KindPrefix {
		return "", Filter{}, false
	}
	return bOp.Path, op.A, true
}

// foldPrefixSiblings merges Compose siblings that share a terminal
// Prefix(path) into a single Chain(Compose(inners), Prefix(path)), per the
// "equal prefix folds, disjoint prefixes stay as-is" rule. Relative order is
// preserved: a folded group occupies the position of its first member.
func foldPrefixSiblings(fs []Filter) []Filter {
	type entry struct {
		plain   Filter
		path    string
		inners  []Filter
		isGroup bool
	}

	order := make([]entry, 0, len(fs))
	index := map[string]int{}

	for _, f := range fs {
		path, inner, ok := trailingPrefix(f)
		if !ok {
			order = append(order, entry{plain: f})
			continue
		}
		if i, exists := index[path]; exists {
			order[i].inners = append(order[i].inners, inner)
			continue
		}
		index[path] = len(order)
		order = append(order, entry{path: path, inners: []Filter{inner}, isGroup: true})
	}

	result := make([]Filter, 0, len(order))
	for _, e := range order {
		switch {
		case !e.isGroup:
			result = append(result, e.plain)
		case len(e.inners) == 1:
			result = append(result, Chain(e.inners[0], Prefix(e.path)))
		default:
			result = append(result, Chain(Compose(e.inners), Prefix(e.path)))
		}
	}
	return result
}
