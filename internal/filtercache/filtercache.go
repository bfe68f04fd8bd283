// SPDX-License-Identifier: Apache-2.0

// Package filtercache implements the transactional mapping between original
// and filtered commit ids. A Cache is the process-wide shared store; a
// Transaction is a short-lived, exclusively-owned view used by a single
// walk, which reads through its upstream on miss and buffers writes until
// Commit merges them back.
package filtercache

import (
	"sync"

	"github.com/gitviews/gitviews/internal/gitinterface"
)

// direction holds one spec-keyed id-to-id mapping, used for both the
// forward (original -> filtered) and backward (filtered -> original)
// directions; the two are otherwise symmetric.
type direction struct {
	bySpec map[string]map[gitinterface.Hash]gitinterface.Hash
}

func newDirection() direction {
	return direction{bySpec: map[string]map[gitinterface.Hash]gitinterface.Hash{}}
}

func (d direction) get(spec string, from gitinterface.Hash) (gitinterface.Hash, bool) {
	m, ok := d.bySpec[spec]
	if !ok {
		return gitinterface.ZeroHash, false
	}
	to, ok := m[from]
	return to, ok
}

func (d direction) set(spec string, from, to gitinterface.Hash) {
	m, ok := d.bySpec[spec]
	if !ok {
		m = map[gitinterface.Hash]gitinterface.Hash{}
		d.bySpec[spec] = m
	}
	m[from] = to
}

func (d direction) merge(other direction) {
	for spec, om := range other.bySpec {
		m, ok := d.bySpec[spec]
		if !ok {
			m = map[gitinterface.Hash]gitinterface.Hash{}
			d.bySpec[spec] = m
		}
		for from, to := range om {
			m[from] = to
		}
	}
}

func (d direction) count(spec string) int {
	return len(d.bySpec[spec])
}

// Cache is the shared, process-wide forward/backward mapping. The zero
// value is not usable; construct with New.
type Cache struct {
	mu       sync.RWMutex
	forward  direction
	backward direction
	store    gitinterface.Store
}

// New creates an empty cache. store is consulted by Get to validate that a
// cached object id still exists (covering external garbage collection).
func New(store gitinterface.Store) *Cache {
	return &Cache{
		forward:  newDirection(),
		backward: newDirection(),
		store:    store,
	}
}

// Get returns the forward mapping original -> filtered for spec, validating
// that the filtered object still exists. A stale entry (object gone) is
// treated as a miss.
func (c *Cache) Get(spec string, original gitinterface.Hash) (gitinterface.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getLocked(spec, original)
}

func (c *Cache) getLocked(spec string, original gitinterface.Hash) (gitinterface.Hash, bool) {
	to, ok := c.forward.get(spec, original)
	if !ok {
		return gitinterface.ZeroHash, false
	}
	if gitinterface.IsZero(to) {
		return gitinterface.ZeroHash, true
	}
	if !c.objectExists(to) {
		return gitinterface.ZeroHash, false
	}
	return to, true
}

// GetOriginal returns the backward mapping filtered -> original for spec.
func (c *Cache) GetOriginal(spec string, filtered gitinterface.Hash) (gitinterface.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backward.get(spec, filtered)
}

func (c *Cache) objectExists(id gitinterface.Hash) bool {
	if c.store == nil {
		return true
	}
	return gitinterface.ObjectExists(c.store, id)
}

// Merge unions other's entries into c; entries in other win on conflict.
// Takes the exclusive write lock for the duration of the merge.
func (c *Cache) Merge(other *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward.merge(other.forward)
	c.backward.merge(other.backward)
}

// Stats reports, per filter spec, the number of forward entries held.
func (c *Cache) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.forward.bySpec))
	for spec := range c.forward.bySpec {
		out[spec] = c.forward.count(spec)
	}
	return out
}

// Reset discards every entry, forward and backward.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward = newDirection()
	c.backward = newDirection()
}

// Transaction is a downstream view of a Cache:
// reads fall through to the upstream on miss, writes land only in the
// transaction's own buffer, and Commit publishes the buffer to the upstream
// Cache under a single write lock. A walk owns its transaction exclusively,
// so its hot loop never takes a lock.
type Transaction struct {
	upstream *Cache
	forward  direction
	backward direction

	Hits   int
	Misses int
	// Walks is a running total of Walk invocations that missed the cache
	// against this transaction, for diagnostics only. It is never
	// decremented, so it is not the current nesting depth.
	Walks int
}

// EnterWalk records one more walk against this transaction and returns the
// new running total.
func (t *Transaction) EnterWalk() int {
	t.Walks++
	return t.Walks
}

// NewTransaction opens a transaction downstream of the shared cache.
func NewTransaction(upstream *Cache) *Transaction {
	return &Transaction{
		upstream: upstream,
		forward:  newDirection(),
		backward: newDirection(),
	}
}

// Get reads the forward mapping, consulting the transaction's own buffer
// first and falling through to the upstream cache on miss.
func (t *Transaction) Get(spec string, original gitinterface.Hash) (gitinterface.Hash, bool) {
	if to, ok := t.forward.get(spec, original); ok {
		if gitinterface.IsZero(to) || t.upstream == nil || t.upstream.objectExists(to) {
			t.Hits++
			return to, true
		}
	}
	if t.upstream != nil {
		if to, ok := t.upstream.Get(spec, original); ok {
			t.Hits++
			return to, true
		}
	}
	t.Misses++
	return gitinterface.ZeroHash, false
}

// GetOriginal reads the backward mapping, buffer first then upstream.
func (t *Transaction) GetOriginal(spec string, filtered gitinterface.Hash) (gitinterface.Hash, bool) {
	if from, ok := t.backward.get(spec, filtered); ok {
		return from, true
	}
	if t.upstream != nil {
		return t.upstream.GetOriginal(spec, filtered)
	}
	return gitinterface.ZeroHash, false
}

// Insert records original -> filtered (and, unless filtered is the null id,
// the reverse mapping filtered -> original) in the transaction's buffer.
func (t *Transaction) Insert(spec string, original, filtered gitinterface.Hash) {
	t.forward.set(spec, original, filtered)
	if !gitinterface.IsZero(filtered) {
		t.backward.set(spec, filtered, original)
	}
}

// Commit publishes every buffered entry to the upstream cache under a
// single write-lock acquisition.
func (t *Transaction) Commit() {
	if t.upstream == nil {
		return
	}
	t.upstream.Merge(t)
}

// TransactionStats is a snapshot of a transaction's counters.
type TransactionStats struct {
	Hits, Misses, Walks int
}

// Stats returns the transaction's current hit/miss/walk-total counters.
func (t *Transaction) Stats() TransactionStats {
	return TransactionStats{Hits: t.Hits, Misses: t.Misses, Walks: t.Walks}
}
