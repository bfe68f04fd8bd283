// SPDX-License-Identifier: Apache-2.0

// Package filterengine is the stable surface the filter engine exposes to
// its host: parsing and printing filter expressions, the pure tree
// transforms, and the history-level walk/ref-update/unapply operations.
// Everything else (the HTTP frontend, the CGI bridge to git http-backend,
// credential caching, namespaces, update hooks) lives outside this module
// entirely, per the engine's own scope.
package filterengine

import (
	"github.com/gitviews/gitviews/internal/filtercache"
	"github.com/gitviews/gitviews/internal/filterexpr"
	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/internal/historywalk"
	"github.com/gitviews/gitviews/internal/treefilter"
	"github.com/gitviews/gitviews/internal/treeops"
)

// Filter is an interned filter expression handle.
type Filter = filterexpr.Filter

// RefPair names a source ref to read an original tip from and a
// destination ref to write the filtered tip to.
type RefPair = historywalk.RefPair

// UnapplyResult is the structured outcome of UnapplyFilter.
type UnapplyResult = historywalk.Result

// UnapplyResultKind enumerates UnapplyResult.Kind.
type UnapplyResultKind = historywalk.ResultKind

// Outcomes of UnapplyFilter, re-exported from internal/historywalk.
const (
	Done               = historywalk.Done
	RejectMerge        = historywalk.RejectMerge
	BranchDoesNotExist = historywalk.BranchDoesNotExist
)

// Hash identifies a git object (a commit or a tree, depending on context).
type Hash = gitinterface.Hash

// Parse parses a filter spec string into a Filter, normalising it to a
// canonical, interned form. It returns a ParseError on malformed input.
func Parse(spec string) (Filter, error) {
	return filterexpr.Parse(spec)
}

// Spec renders f as the round-trippable single-line form: for a filter in
// normalised form (such as any filter Parse returns), parse(Spec(f)) yields
// f back.
func Spec(f Filter) string {
	return filterexpr.Spec(f)
}

// Pretty renders f as the multi-line, human-readable form used for display;
// workspace.josh files are not read in this form, and it is not guaranteed
// round-trippable.
func Pretty(f Filter, indent int) string {
	return filterexpr.Pretty(f, indent)
}

// Engine bundles an object store with the long-lived state a filter
// computation needs across many calls: tree-op memoisation and the shared
// filter cache. Construct one per repository and keep it for the process
// lifetime; individual walks borrow it through a short-lived Transaction.
type Engine struct {
	store gitinterface.Store
	memo  *treeops.Memo
	cache *filtercache.Cache
}

// New constructs an Engine over store. The returned Engine owns a fresh,
// empty filter cache and tree-op memoisation table.
func New(store gitinterface.Store) (*Engine, error) {
	memo, err := treeops.NewMemo()
	if err != nil {
		return nil, err
	}
	return &Engine{
		store: store,
		memo:  memo,
		cache: filtercache.New(store),
	}, nil
}

func (e *Engine) treeContext() treefilter.Context {
	return treefilter.Context{Store: e.store, Memo: e.memo}
}

// Apply computes apply(f, tree).
func (e *Engine) Apply(f Filter, tree Hash) (Hash, error) {
	return treefilter.Apply(e.treeContext(), f, tree)
}

// Unapply computes unapply(f, tree, parent).
func (e *Engine) Unapply(f Filter, tree, parent Hash) (Hash, error) {
	return treefilter.Unapply(e.treeContext(), f, tree, parent)
}

// Transaction opens a short-lived, exclusively-owned cache view for a
// single walk. The caller must call Commit (directly on the transaction,
// or via the Engine's CommitTransaction) to publish its results back to
// the engine's shared cache; an abandoned transaction's writes are simply
// discarded.
func (e *Engine) Transaction() *filtercache.Transaction {
	return filtercache.NewTransaction(e.cache)
}

// CommitTransaction publishes txn's buffered writes into the engine's
// shared cache under a single write-lock acquisition.
func (e *Engine) CommitTransaction(txn *filtercache.Transaction) {
	txn.Commit()
}

func (e *Engine) historyContext(txn *filtercache.Transaction) historywalk.Context {
	return historywalk.Context{Tree: e.treeContext(), Cache: txn}
}

// Walk computes apply_to_commit(f, commit), visiting only the ancestors of
// commit not already present in txn (or its upstream cache).
func (e *Engine) Walk(txn *filtercache.Transaction, f Filter, commit Hash) (Hash, error) {
	return historywalk.Walk(e.historyContext(txn), f, commit)
}

// ApplyFilterToRefs runs Walk on the tip of every src ref and updates the
// paired dst ref when the filtered result changed, returning how many refs
// were updated.
func (e *Engine) ApplyFilterToRefs(txn *filtercache.Transaction, f Filter, pairs []RefPair) (int, error) {
	return historywalk.ApplyFilterToRefs(e.historyContext(txn), f, pairs)
}

// UnapplyFilter inverts the edits between old and new (both filtered
// commits) onto the original history reachable from unfilteredOld.
func (e *Engine) UnapplyFilter(txn *filtercache.Transaction, f Filter, unfilteredOld, old, new Hash) (UnapplyResult, error) {
	return historywalk.UnapplyFilter(e.historyContext(txn), f, unfilteredOld, old, new)
}

// FindOriginal inverts apply_to_commit, returning the original commit that
// produced filteredID under f, searching the ancestors of containedIn.
func (e *Engine) FindOriginal(txn *filtercache.Transaction, f Filter, containedIn, filteredID Hash) (Hash, error) {
	return historywalk.FindOriginal(e.historyContext(txn), f, containedIn, filteredID)
}

// CacheSize reports how many forward entries the engine's shared cache
// currently holds for f.
func (e *Engine) CacheSize(f Filter) int {
	return e.cache.Stats()[Spec(f)]
}

// ResetCache discards every entry in the engine's shared cache, for every
// filter spec.
func (e *Engine) ResetCache() {
	e.cache.Reset()
}
