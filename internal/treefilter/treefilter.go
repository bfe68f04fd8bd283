// SPDX-License-Identifier: Apache-2.0

// Package treefilter implements the pure tree-level transforms of the filter
// algebra: Apply maps an input tree through a filter, Unapply computes the
// minimal superset of a parent tree that would apply back to a given
// result. Neither function touches commits or the history graph.
package treefilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/treeops"
)

// ErrFilterNotReversible is returned by Unapply when invoked on a filter
// that has no well-defined inverse, such as a Subtract whose left side is
// not Nop.
var ErrFilterNotReversible = errors.New("filter not reversible")

// Context bundles the object store and tree-op memoisation cache that Apply
// and Unapply read and write through.
type Context struct {
	Store gitinterface.Store
	Memo  *treeops.Memo
}

const workspaceFileName = "workspace.josh"

// Apply computes apply(f, t) as specified by the operator table.
func Apply(ctx Context, f filterexpr.Filter, t gitinterface.Hash) (gitinterface.Hash, error) {
	op, ok := filterexpr.Lookup(f)
	if !ok {
		return gitinterface.ZeroHash, fmt.Errorf("apply: unknown filter handle")
	}

	if treeops.IsEmpty(t) {
		return treeops.EmptyTree(), nil
	}

	switch op.Kind {
	case filterexpr.KindNop, filterexpr.KindFold, filterexpr.KindSquash:
		return t, nil

	case filterexpr.KindEmpty:
		return treeops.EmptyTree(), nil

	case filterexpr.KindFile:
		blob, found, err := treeops.GetBlob(ctx.Store, t, op.Path)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if !found {
			return treeops.EmptyTree(), nil
		}
		return treeops.Insert(ctx.Store, treeops.EmptyTree(), op.Path, blob, filemode.Regular)

	case filterexpr.KindSubdir:
		return treeops.LookupTree(ctx.Store, t, op.Path)

	case filterexpr.KindPrefix:
		return treeops.Insert(ctx.Store, treeops.EmptyTree(), op.Path, t, filemode.Dir)

	case filterexpr.KindGlob:
		pattern := op.Path
		return treeops.RemovePred(ctx.Store, ctx.Memo, t, "", func(path string) bool {
			return !globMatch(pattern, path)
		})

	case filterexpr.KindDirs:
		return treeops.DirTree(ctx.Store, t)

	case filterexpr.KindCompose:
		result := treeops.EmptyTree()
		for _, child := range op.Filters {
			ct, err := Apply(ctx, child, t)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			result, err = treeops.Overlay(ctx.Store, ctx.Memo, result, ct)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
		}
		return result, nil

	case filterexpr.KindChain:
		mid, err := Apply(ctx, op.A, t)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		return Apply(ctx, op.B, mid)

	case filterexpr.KindSubtract:
		af, err := Apply(ctx, op.A, t)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		bf, err := Apply(ctx, op.B, t)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		bu, err := Unapply(ctx, op.B, bf, treeops.EmptyTree())
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		ba, err := Apply(ctx, op.A, bu)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		return treeops.Subtract(ctx.Store, ctx.Memo, af, ba)

	case filterexpr.KindWorkspace:
		return applyWorkspace(ctx, op.Path, t)

	default:
		return gitinterface.ZeroHash, fmt.Errorf("apply: unhandled filter kind %d", op.Kind)
	}
}

// Unapply computes the minimal superset of parent that Apply(f, ·) maps to
// t, i.e. the inverse transform described by spec.md's unapply table.
func Unapply(ctx Context, f filterexpr.Filter, t, parent gitinterface.Hash) (gitinterface.Hash, error) {
	op, ok := filterexpr.Lookup(f)
	if !ok {
		return gitinterface.ZeroHash, fmt.Errorf("unapply: unknown filter handle")
	}

	switch op.Kind {
	case filterexpr.KindNop:
		return t, nil

	case filterexpr.KindEmpty:
		return parent, nil

	case filterexpr.KindChain:
		p, err := Apply(ctx, op.A, parent)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		x, err := Unapply(ctx, op.B, t, p)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		return Unapply(ctx, op.A, x, parent)

	case filterexpr.KindPrefix:
		return treeops.LookupTree(ctx.Store, t, op.Path)

	case filterexpr.KindSubdir:
		return treeops.Insert(ctx.Store, parent, op.Path, t, filemode.Dir)

	case filterexpr.KindFile:
		blob, found, err := treeops.GetBlob(ctx.Store, t, op.Path)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if !found {
			return treeops.EmptyTree(), nil
		}
		return treeops.Insert(ctx.Store, parent, op.Path, blob, filemode.Regular)

	case filterexpr.KindGlob:
		pattern := op.Path
		kept, err := treeops.RemovePred(ctx.Store, ctx.Memo, t, "", func(path string) bool {
			return !globMatch(pattern, path)
		})
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		return treeops.Overlay(ctx.Store, ctx.Memo, parent, kept)

	case filterexpr.KindWorkspace:
		return unapplyWorkspace(ctx, op.Path, t, parent)

	case filterexpr.KindCompose:
		return unapplyCompose(ctx, op.Filters, t, parent)

	case filterexpr.KindSubtract:
		if filterexprKindOf(op.A) == filterexpr.KindNop {
			bu, err := Unapply(ctx, op.B, t, treeops.EmptyTree())
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			diff, err := treeops.Subtract(ctx.Store, ctx.Memo, t, bu)
			if err != nil {
				return gitinterface.ZeroHash, err
			}
			return treeops.Overlay(ctx.Store, ctx.Memo, parent, diff)
		}
		return gitinterface.ZeroHash, fmt.Errorf("%w: subtract with non-nop left side", ErrFilterNotReversible)

	default:
		return gitinterface.ZeroHash, fmt.Errorf("%w: %v", ErrFilterNotReversible, op.Kind)
	}
}

func filterexprKindOf(f filterexpr.Filter) filterexpr.Kind {
	op, _ := filterexpr.Lookup(f)
	return op.Kind
}

// unapplyCompose iterates fs in reverse, unapplying one filter at a time
// against a shrinking "remaining" view of t and accumulating the result.
// Each step subtracts from "remaining" whatever that filter's contribution
// would re-produce, so later (earlier-in-original-order) filters are not
// asked to account for paths a later sibling already claimed.
func unapplyCompose(ctx Context, fs []filterexpr.Filter, t, parent gitinterface.Hash) (gitinterface.Hash, error) {
	result := parent
	remaining := t

	for i := len(fs) - 1; i >= 0; i-- {
		child := fs[i]

		fromEmpty, err := Unapply(ctx, child, remaining, treeops.EmptyTree())
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		if treeops.IsEmpty(fromEmpty) {
			continue
		}

		result, err = Unapply(ctx, child, remaining, result)
		if err != nil {
			return gitinterface.ZeroHash, err
		}

		reapply, err := Apply(ctx, child, fromEmpty)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
		remaining, err = treeops.Subtract(ctx.Store, ctx.Memo, remaining, reapply)
		if err != nil {
			return gitinterface.ZeroHash, err
		}
	}

	return result, nil
}

// ParseWorkspaceFile parses the contents of a workspace.josh blob: blank
// lines and "#"-prefixed comment lines are dropped, the remaining lines are
// joined and read as a filter spec. Only the compact Spec grammar is
// accepted (not Pretty's multi-line assignment form).
func ParseWorkspaceFile(data []byte) (filterexpr.Filter, error) {
	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return filterexpr.Filter{}, fmt.Errorf("workspace file has no filter content")
	}
	return filterexpr.Parse(content)
}

func applyWorkspace(ctx Context, dir string, t gitinterface.Hash) (gitinterface.Hash, error) {
	parsed, ok := workspaceFilterAt(ctx, dir, t)
	if !ok {
		return treeops.LookupTree(ctx.Store, t, dir)
	}
	composed := filterexpr.Compose([]filterexpr.Filter{filterexpr.Subdir(dir), parsed})
	return Apply(ctx, composed, t)
}

func unapplyWorkspace(ctx Context, dir string, t, parent gitinterface.Hash) (gitinterface.Hash, error) {
	blob, found, err := treeops.GetBlob(ctx.Store, t, workspaceFileName)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	if !found {
		return treeops.Insert(ctx.Store, parent, dir, t, filemode.Dir)
	}

	data, err := gitinterface.ReadBlob(ctx.Store, blob)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	parsed, err := ParseWorkspaceFile(data)
	if err != nil {
		return gitinterface.ZeroHash, fmt.Errorf("parsing %s: %w", workspaceFileName, err)
	}

	reinsertedBlob, err := gitinterface.WriteBlob(ctx.Store, data)
	if err != nil {
		return gitinterface.ZeroHash, err
	}
	tPrime, err := treeops.Insert(ctx.Store, t, workspaceFileName, reinsertedBlob, filemode.Regular)
	if err != nil {
		return gitinterface.ZeroHash, err
	}

	composed := filterexpr.Compose([]filterexpr.Filter{filterexpr.Subdir(dir), parsed})
	return Unapply(ctx, composed, tPrime, parent)
}

// WorkspaceFilterAt reads and parses <dir>/workspace.josh inside t, if
// present and valid. Exported for the commit filter's Workspace extra-parent
// computation, which needs the same lookup outside of a full Apply/Unapply.
func WorkspaceFilterAt(ctx Context, dir string, t gitinterface.Hash) (filterexpr.Filter, bool) {
	return workspaceFilterAt(ctx, dir, t)
}

// workspaceFilterAt reads and parses <dir>/workspace.josh inside t, if
// present and valid.
func workspaceFilterAt(ctx Context, dir string, t gitinterface.Hash) (filterexpr.Filter, bool) {
	sub, err := treeops.LookupTree(ctx.Store, t, dir)
	if err != nil || treeops.IsEmpty(sub) {
		return filterexpr.Filter{}, false
	}

	blob, found, err := treeops.GetBlob(ctx.Store, sub, workspaceFileName)
	if err != nil || !found {
		return filterexpr.Filter{}, false
	}

	data, err := gitinterface.ReadBlob(ctx.Store, blob)
	if err != nil {
		return filterexpr.Filter{}, false
	}

	f, err := ParseWorkspaceFile(data)
	if err != nil {
		return filterexpr.Filter{}, false
	}
	return f, true
}
