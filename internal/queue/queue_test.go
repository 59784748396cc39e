package queue_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/gxo-labs/goap/internal/queue"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name     string
	priority float64
	index    int
}

func (i *item) Priority() float64       { return i.priority }
func (i *item) SetPriority(p float64)   { i.priority = p }
func (i *item) QueueIndex() int         { return i.index }
func (i *item) SetQueueIndex(index int) { i.index = index }

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a contract violation panic")
		err, ok := r.(error)
		require.True(t, ok)
		var cv *goaperrors.ContractViolationError
		assert.ErrorAs(t, err, &cv)
	}()
	fn()
}

func TestQueue_DequeueReturnsMinimum(t *testing.T) {
	q := queue.New[*item](10)
	for i, p := range []float64{5, 3, 8, 1, 9, 2} {
		q.Enqueue(&item{name: string(rune('a' + i))}, p)
		require.True(t, q.IsValid())
	}
	assert.Equal(t, 6, q.Count())
	assert.Equal(t, 1.0, q.First().Priority())

	var got []float64
	for q.Count() > 0 {
		got = append(got, q.Dequeue().Priority())
		require.True(t, q.IsValid())
	}
	assert.Equal(t, []float64{1, 2, 3, 5, 8, 9}, got)
}

func TestQueue_ContainsConsistency(t *testing.T) {
	q := queue.New[*item](4)
	a, b, c := &item{name: "a"}, &item{name: "b"}, &item{name: "c"}

	assert.False(t, q.Contains(a))
	q.Enqueue(a, 2)
	q.Enqueue(b, 1)
	q.Enqueue(c, 3)
	assert.True(t, q.Contains(a))
	assert.True(t, q.Contains(b))

	head := q.Dequeue()
	assert.Same(t, b, head)
	assert.False(t, q.Contains(b))

	q.Remove(c)
	assert.False(t, q.Contains(c))
	assert.True(t, q.Contains(a))
	assert.True(t, q.IsValid())
}

func TestQueue_UpdatePriorityReorders(t *testing.T) {
	q := queue.New[*item](8)
	items := make([]*item, 5)
	for i := range items {
		items[i] = &item{name: string(rune('a' + i))}
		q.Enqueue(items[i], float64(i+1))
	}

	q.UpdatePriority(items[4], 0)
	require.True(t, q.IsValid())
	assert.Same(t, items[4], q.First())

	q.UpdatePriority(items[4], 10)
	require.True(t, q.IsValid())
	assert.Same(t, items[0], q.First())
}

func TestQueue_RandomOperationsKeepHeapInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const capacity = 64
	q := queue.New[*item](capacity)
	var enqueued []*item

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(4); {
		case op == 0 && q.Count() < capacity:
			it := &item{}
			q.Enqueue(it, float64(rng.Intn(20)))
			enqueued = append(enqueued, it)
		case op == 1 && q.Count() > 0:
			minimum := enqueued[0].Priority()
			for _, it := range enqueued {
				if it.Priority() < minimum {
					minimum = it.Priority()
				}
			}
			head := q.Dequeue()
			assert.Equal(t, minimum, head.Priority())
			enqueued = without(enqueued, head)
		case op == 2 && q.Count() > 0:
			victim := enqueued[rng.Intn(len(enqueued))]
			q.Remove(victim)
			assert.False(t, q.Contains(victim))
			enqueued = without(enqueued, victim)
		case op == 3 && q.Count() > 0:
			q.UpdatePriority(enqueued[rng.Intn(len(enqueued))], float64(rng.Intn(20)))
		}
		require.True(t, q.IsValid(), "heap invariant broken at step %d", step)
		require.Equal(t, len(enqueued), q.Count())
	}

	priorities := make([]float64, 0, len(enqueued))
	for _, it := range enqueued {
		priorities = append(priorities, it.Priority())
	}
	sort.Float64s(priorities)
	for _, want := range priorities {
		assert.Equal(t, want, q.Dequeue().Priority())
	}
}

func TestQueue_Resize(t *testing.T) {
	q := queue.New[*item](2)
	a, b := &item{}, &item{}
	q.Enqueue(a, 2)
	q.Enqueue(b, 1)

	q.Resize(4)
	assert.Equal(t, 4, q.MaxSize())
	assert.True(t, q.Contains(a))
	q.Enqueue(&item{}, 0)
	assert.Equal(t, 3, q.Count())

	requireViolation(t, func() { q.Resize(2) })
}

func TestQueue_Clear(t *testing.T) {
	q := queue.New[*item](3)
	q.Enqueue(&item{}, 1)
	q.Enqueue(&item{}, 2)
	q.Clear()
	assert.Equal(t, 0, q.Count())
	q.Enqueue(&item{}, 3)
	assert.Equal(t, 1, q.Count())
}

func TestQueue_ContractViolations(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(q *queue.FastPriorityQueue[*item])
	}{
		{"NilEnqueue", func(q *queue.FastPriorityQueue[*item]) { q.Enqueue(nil, 1) }},
		{"DuplicateEnqueue", func(q *queue.FastPriorityQueue[*item]) {
			it := &item{}
			q.Enqueue(it, 1)
			q.Enqueue(it, 2)
		}},
		{"OverCapacity", func(q *queue.FastPriorityQueue[*item]) {
			q.Enqueue(&item{}, 1)
			q.Enqueue(&item{}, 1)
			q.Enqueue(&item{}, 1)
		}},
		{"EmptyDequeue", func(q *queue.FastPriorityQueue[*item]) { q.Dequeue() }},
		{"EmptyFirst", func(q *queue.FastPriorityQueue[*item]) { q.First() }},
		{"RemoveNotEnqueued", func(q *queue.FastPriorityQueue[*item]) { q.Remove(&item{}) }},
		{"UpdateNotEnqueued", func(q *queue.FastPriorityQueue[*item]) { q.UpdatePriority(&item{}, 3) }},
		{"CorruptedIndex", func(q *queue.FastPriorityQueue[*item]) { q.Contains(&item{index: 99}) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := queue.New[*item](2)
			requireViolation(t, func() { tc.fn(q) })
		})
	}

	requireViolation(t, func() { queue.New[*item](0) })
}

func without(items []*item, target *item) []*item {
	for i, it := range items {
		if it == target {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
