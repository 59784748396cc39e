// Package state implements the key/value states the planner reasons about:
// world states, goals, action preconditions, effects and settings.
//
// A State is a small handle into an Arena. Handles are comparable, so two
// handles are equal exactly when they name the same live slot; this is the
// identity the search uses to key its explored set. Values are compared with
// ==, and an absent key never equals a present one.
//
// States are single-writer: no method takes a lock. Hand a state to another
// goroutine only as a Snapshot, which is frozen and rejects mutation.
package state

import (
	"fmt"
	"sort"
	"strings"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

// State is a handle to a pooled key/value mapping. The zero State is not
// valid; use Valid to test optional states such as absent action settings.
type State[K comparable, V comparable] struct {
	arena *Arena[K, V]
	slot  int
	gen   uint32
}

// Diff tunes MissingDifferenceWith and ReplaceWithMissingDifferenceWith.
type Diff[K comparable, V comparable] struct {
	// StopAt stops after this many differences; zero or less means no limit.
	StopAt int
	// Into, when valid, receives every differing pair of self.
	// ReplaceWithMissingDifferenceWith ignores it.
	Into State[K, V]
	// Where filters which differences count. other is the value in the
	// compared state and present reports whether the key exists there.
	Where func(key K, value V, other V, present bool) bool
}

// New returns a standalone state backed by its own single-slot arena. Use it
// for definitions that live outside planning (action effects, goals, world).
func New[K comparable, V comparable]() State[K, V] {
	return NewArena[K, V](1).Get()
}

// FromMap returns a standalone state holding a copy of m.
func FromMap[K comparable, V comparable](m map[K]V) State[K, V] {
	return NewArena[K, V](1).FromMap(m)
}

func (s State[K, V]) data() *slot[K, V] {
	if s.arena == nil {
		panic(goaperrors.NewContractViolationError("State", "use of zero State"))
	}
	return s.arena.lookup(s.slot, s.gen)
}

func (s State[K, V]) mutable() *slot[K, V] {
	d := s.data()
	if d.frozen {
		panic(goaperrors.NewContractViolationError("State", "mutation of frozen snapshot"))
	}
	return d
}

// Valid reports whether s refers to a live state. It never panics.
func (s State[K, V]) Valid() bool {
	if s.arena == nil || s.slot < 0 || s.slot >= len(s.arena.slots) {
		return false
	}
	d := s.arena.slots[s.slot]
	return d.live && d.gen == s.gen
}

// Arena returns the arena s was obtained from.
func (s State[K, V]) Arena() *Arena[K, V] {
	return s.arena
}

// Clone obtains a copy of s from the same arena.
func (s State[K, V]) Clone() State[K, V] {
	s.data()
	return s.arena.Clone(s)
}

// Snapshot returns a frozen, standalone copy of s that may be shared with
// other goroutines and outlives s's arena.
func (s State[K, V]) Snapshot() State[K, V] {
	snap := NewArena[K, V](1).Clone(s)
	snap.data().frozen = true
	return snap
}

// Frozen reports whether s is a read-only snapshot.
func (s State[K, V]) Frozen() bool {
	return s.data().frozen
}

// Recycle returns s to its arena. Any further use of s, or of a copy of the
// handle, panics with a StaleHandleError.
func (s State[K, V]) Recycle() {
	if s.arena == nil {
		panic(goaperrors.NewContractViolationError("State", "recycle of zero State"))
	}
	s.arena.release(s.slot, s.gen)
}

// Get returns the value stored under key.
func (s State[K, V]) Get(key K) (V, bool) {
	v, ok := s.data().values[key]
	return v, ok
}

// Set stores value under key.
func (s State[K, V]) Set(key K, value V) {
	s.mutable().values[key] = value
}

// Remove deletes key.
func (s State[K, V]) Remove(key K) {
	delete(s.mutable().values, key)
}

// HasKey reports whether key is present.
func (s State[K, V]) HasKey(key K) bool {
	_, ok := s.data().values[key]
	return ok
}

// Size returns the number of pairs.
func (s State[K, V]) Size() int {
	return len(s.data().values)
}

// Clear removes all pairs.
func (s State[K, V]) Clear() {
	clear(s.mutable().values)
}

// Values returns a copy of the pairs.
func (s State[K, V]) Values() map[K]V {
	values := s.data().values
	out := make(map[K]V, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// Range calls fn for each pair until fn returns false. fn must not mutate s.
func (s State[K, V]) Range(fn func(key K, value V) bool) {
	for k, v := range s.data().values {
		if !fn(k, v) {
			return
		}
	}
}

// AddFromState copies every pair of other into s, overwriting on collision.
func (s State[K, V]) AddFromState(other State[K, V]) {
	dst := s.mutable().values
	for k, v := range other.data().values {
		dst[k] = v
	}
}

// HasAny reports whether any pair of other is already held by s.
func (s State[K, V]) HasAny(other State[K, V]) bool {
	mine := s.data().values
	for k, want := range other.data().values {
		if have, ok := mine[k]; ok && have == want {
			return true
		}
	}
	return false
}

// HasAnyConflict reports whether s holds a key of other with a different
// value. Keys absent from s never conflict.
func (s State[K, V]) HasAnyConflict(other State[K, V]) bool {
	mine := s.data().values
	for k, want := range other.data().values {
		if have, ok := mine[k]; ok && have != want {
			return true
		}
	}
	return false
}

// HasAnyConflictWithChanges is the relaxed form of HasAnyConflict. A
// conflicting key k is excused when changes sets k either to other's value
// (the change resolves the conflict) or to s's own value (the change already
// fulfils s for k).
func (s State[K, V]) HasAnyConflictWithChanges(changes, other State[K, V]) bool {
	mine := s.data().values
	delta := changes.data().values
	for k, want := range other.data().values {
		have, ok := mine[k]
		if !ok || have == want {
			continue
		}
		if change, changed := delta[k]; changed && (change == want || change == have) {
			continue
		}
		return true
	}
	return false
}

// MissingDifference counts the pairs of s that other lacks or holds with a
// different value. Zero means other satisfies s.
func (s State[K, V]) MissingDifference(other State[K, V]) int {
	return s.MissingDifferenceWith(other, Diff[K, V]{})
}

// MissingDifferenceWith is MissingDifference with a limit, an output state
// and a filter.
func (s State[K, V]) MissingDifferenceWith(other State[K, V], d Diff[K, V]) int {
	mine := s.data().values
	theirs := other.data().values
	var into map[K]V
	if d.Into.arena != nil {
		into = d.Into.mutable().values
	}
	count := 0
	for k, v := range mine {
		ov, present := theirs[k]
		if present && ov == v {
			continue
		}
		if d.Where != nil && !d.Where(k, v, ov, present) {
			continue
		}
		count++
		if into != nil {
			into[k] = v
		}
		if d.StopAt > 0 && count >= d.StopAt {
			break
		}
	}
	return count
}

// ReplaceWithMissingDifference narrows s to the pairs other does not
// satisfy and returns how many remain.
func (s State[K, V]) ReplaceWithMissingDifference(other State[K, V]) int {
	return s.ReplaceWithMissingDifferenceWith(other, Diff[K, V]{})
}

// ReplaceWithMissingDifferenceWith is ReplaceWithMissingDifference with a
// limit and a filter. Pairs past StopAt are dropped. It swaps the two backing
// maps instead of allocating.
func (s State[K, V]) ReplaceWithMissingDifferenceWith(other State[K, V], d Diff[K, V]) int {
	sl := s.mutable()
	theirs := other.data().values
	previous := sl.values
	if sl.onB {
		sl.values = sl.bufferA
	} else {
		sl.values = sl.bufferB
	}
	sl.onB = !sl.onB
	clear(sl.values)
	count := 0
	for k, v := range previous {
		ov, present := theirs[k]
		if present && ov == v {
			continue
		}
		if d.Where != nil && !d.Where(k, v, ov, present) {
			continue
		}
		count++
		sl.values[k] = v
		if d.StopAt > 0 && count >= d.StopAt {
			break
		}
	}
	return count
}

// Equal reports whether s and other hold exactly the same pairs.
func (s State[K, V]) Equal(other State[K, V]) bool {
	return s.Size() == other.Size() && s.MissingDifference(other) == 0
}

// String renders the pairs sorted by key, e.g. "hasAxe: true, hasWood: false".
func (s State[K, V]) String() string {
	if !s.Valid() {
		return "<invalid state>"
	}
	values := s.data().values
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, fmt.Sprintf("%v: %v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
