package state

import (
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

// DefaultSize is the initial capacity of the backing maps of a fresh slot.
const DefaultSize = 20

// slot is the storage behind a State handle. values always points at either
// bufferA or bufferB (onB); ReplaceWithMissingDifference flips between them.
type slot[K comparable, V comparable] struct {
	values  map[K]V
	bufferA map[K]V
	bufferB map[K]V
	onB     bool
	gen     uint32
	live    bool
	frozen  bool
}

// Arena is a pool of state slots addressed by generation-stamped handles.
// Each acquisition bumps the slot's generation, so a State handle kept after
// Recycle fails loudly instead of aliasing whatever reuses the slot.
//
// An Arena is not safe for concurrent use. Each planner owns its own arena;
// share data across goroutines with State.Snapshot.
type Arena[K comparable, V comparable] struct {
	slots []*slot[K, V]
	free  []int
	live  int
}

// NewArena creates an arena with room for sizeHint slots before it grows.
func NewArena[K comparable, V comparable](sizeHint int) *Arena[K, V] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Arena[K, V]{
		slots: make([]*slot[K, V], 0, sizeHint),
		free:  make([]int, 0, sizeHint),
	}
}

// Get obtains an empty state from the arena.
func (a *Arena[K, V]) Get() State[K, V] {
	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		bufA := make(map[K]V, DefaultSize)
		a.slots = append(a.slots, &slot[K, V]{
			values:  bufA,
			bufferA: bufA,
			bufferB: make(map[K]V, DefaultSize),
		})
		idx = len(a.slots) - 1
	}
	s := a.slots[idx]
	clear(s.values)
	s.gen++
	s.live = true
	s.frozen = false
	a.live++
	return State[K, V]{arena: a, slot: idx, gen: s.gen}
}

// Clone obtains a state from the arena holding a copy of src's pairs. src
// may belong to another arena.
func (a *Arena[K, V]) Clone(src State[K, V]) State[K, V] {
	from := src.data()
	dst := a.Get()
	values := dst.data().values
	for k, v := range from.values {
		values[k] = v
	}
	return dst
}

// FromMap obtains a state from the arena holding a copy of m.
func (a *Arena[K, V]) FromMap(m map[K]V) State[K, V] {
	dst := a.Get()
	values := dst.data().values
	for k, v := range m {
		values[k] = v
	}
	return dst
}

// Live returns the number of states currently handed out.
func (a *Arena[K, V]) Live() int {
	return a.live
}

// Slots returns the number of slots ever allocated by the arena.
func (a *Arena[K, V]) Slots() int {
	return len(a.slots)
}

func (a *Arena[K, V]) release(idx int, gen uint32) {
	s := a.slots[idx]
	if !s.live || s.gen != gen {
		panic(goaperrors.NewStaleHandleError("state", idx, gen, s.gen))
	}
	s.live = false
	s.frozen = false
	a.free = append(a.free, idx)
	a.live--
}

func (a *Arena[K, V]) lookup(idx int, gen uint32) *slot[K, V] {
	if idx < 0 || idx >= len(a.slots) {
		panic(goaperrors.NewContractViolationError("Arena", "state handle points outside the arena"))
	}
	s := a.slots[idx]
	if !s.live || s.gen != gen {
		panic(goaperrors.NewStaleHandleError("state", idx, gen, s.gen))
	}
	return s
}
