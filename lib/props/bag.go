// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package props holds the property bag behind every room, player and
// object: a lock-guarded map of wire values with optional change
// tracking.
//
// With tracking enabled, each Set is compared against the last
// committed state and recorded in a pending change set when it
// differs. CommitChanges hands the change set to a callback and folds
// it into the committed state. The game client uses this to batch
// high-frequency writes (position, rotation) into one update per tick.
package props

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/loadbalancer/lib/wire"
)

// Bag is a concurrency-safe property map. The zero Bag is empty and
// untracked.
type Bag struct {
	mu        sync.Mutex
	values    wire.Map
	tracking  bool
	committed wire.Map
	changes   wire.Map
}

// New returns a bag holding a copy of initial.
func New(initial wire.Map) *Bag {
	return &Bag{values: initial.Clone()}
}

func (b *Bag) Get(key wire.Key) (wire.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.values[key]
	return value, ok
}

func (b *Bag) Has(key wire.Key) bool {
	_, ok := b.Get(key)
	return ok
}

func (b *Bag) Str(key wire.Key) (string, bool) {
	value, _ := b.Get(key)
	return value.Str()
}

func (b *Bag) Int(key wire.Key) (int64, bool) {
	value, _ := b.Get(key)
	return value.Int()
}

func (b *Bag) Bool(key wire.Key) (bool, bool) {
	value, _ := b.Get(key)
	return value.Bool()
}

func (b *Bag) Point3(key wire.Key) (wire.Point3, bool) {
	value, _ := b.Get(key)
	return value.Point3()
}

// Set stores value under key and records the change when tracking.
func (b *Bag) Set(key wire.Key, value wire.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(key, value)
}

func (b *Bag) setLocked(key wire.Key, value wire.Value) {
	if b.values == nil {
		b.values = wire.Map{}
	}
	b.values[key] = value
	if !b.tracking {
		return
	}
	if committed, ok := b.committed[key]; ok && committed.Equal(value) {
		delete(b.changes, key)
		return
	}
	b.changes[key] = value
}

// Merge sets every entry of delta, last write wins.
func (b *Bag) Merge(delta wire.Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range delta.Keys() {
		b.setLocked(key, delta[key])
	}
}

// Match reports whether every entry of required is present and equal.
func (b *Bag) Match(required wire.Map) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, want := range required {
		got, ok := b.values[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Extract returns the entries for keys that are present.
func (b *Bag) Extract(keys ...wire.Key) wire.Map {
	b.mu.Lock()
	defer b.mu.Unlock()
	extracted := make(wire.Map, len(keys))
	for _, key := range keys {
		if value, ok := b.values[key]; ok {
			extracted[key] = value
		}
	}
	return extracted
}

// Remove deletes keys from the current values. Tracked state is left
// alone; see RemoveTracked.
func (b *Bag) Remove(keys ...wire.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.values, key)
	}
}

// RemoveTracked deletes keys from the values, the committed state and
// the pending change set.
func (b *Bag) RemoveTracked(keys ...wire.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.values, key)
		delete(b.committed, key)
		delete(b.changes, key)
	}
}

func (b *Bag) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.values)
	if b.tracking {
		clear(b.committed)
		clear(b.changes)
	}
}

func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.values)
}

// Snapshot returns a copy of the current values.
func (b *Bag) Snapshot() wire.Map {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values.Clone()
}

// EnableTracking starts recording changes against the current values.
func (b *Bag) EnableTracking() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracking = true
	b.committed = b.values.Clone()
	b.changes = wire.Map{}
}

func (b *Bag) Tracking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracking
}

// MergeCommitted stores delta as already committed: each entry is
// written to the values and the committed state, and any pending
// change for its key is dropped. Writes to other keys keep their
// pending changes.
func (b *Bag) MergeCommitted(delta wire.Map) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = wire.Map{}
	}
	for _, key := range delta.Keys() {
		value := delta[key]
		b.values[key] = value
		if b.tracking {
			b.committed[key] = value
			delete(b.changes, key)
		}
	}
}

// HasChanges reports whether a commit would call its callback.
func (b *Bag) HasChanges() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes) > 0
}

// HasChangesExcept reports whether any key outside ignored changed.
func (b *Bag) HasChangesExcept(ignored ...wire.Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.changes {
		if !slices.Contains(ignored, key) {
			return true
		}
	}
	return false
}

// CommitChanges returns false without calling fn when nothing changed
// since the last commit. Otherwise it calls fn with a copy of the
// change set, folds the changes into the committed state, clears them
// and returns true. fn runs without the bag's lock held.
func (b *Bag) CommitChanges(fn func(changes wire.Map)) bool {
	b.mu.Lock()
	if !b.tracking || len(b.changes) == 0 {
		b.mu.Unlock()
		return false
	}
	changes := b.changes
	b.changes = wire.Map{}
	b.committed.Merge(changes)
	b.mu.Unlock()

	if fn != nil {
		fn(changes.Clone())
	}
	return true
}
