// Package queue provides the planner's frontier: a fixed-capacity binary
// min-heap with O(1) membership checks.
package queue

import (
	"fmt"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

// Queueable is implemented by elements stored in a FastPriorityQueue. The
// queue writes priority and queue index directly on the element. The index is
// 1-based and only meaningful while the element is enqueued.
type Queueable interface {
	comparable
	Priority() float64
	SetPriority(priority float64)
	QueueIndex() int
	SetQueueIndex(index int)
}

// FastPriorityQueue is a min-heap ordered by element priority. Equal
// priorities have no defined relative order.
//
// Every contract violation (nil element, duplicate enqueue, enqueue on a full
// queue, dequeue or peek on an empty queue, remove or update of an element
// that is not enqueued, resize below the current count) panics with a
// *errors.ContractViolationError.
type FastPriorityQueue[T Queueable] struct {
	count int
	nodes []T // nodes[0] is unused
}

// New creates a queue holding at most maxNodes elements.
func New[T Queueable](maxNodes int) *FastPriorityQueue[T] {
	if maxNodes <= 0 {
		violation("new queue size cannot be smaller than 1")
	}
	return &FastPriorityQueue[T]{nodes: make([]T, maxNodes+1)}
}

func violation(reason string) {
	panic(goaperrors.NewContractViolationError("FastPriorityQueue", reason))
}

// Count returns the number of enqueued elements.
func (q *FastPriorityQueue[T]) Count() int {
	return q.count
}

// MaxSize returns how many elements can be enqueued at once.
func (q *FastPriorityQueue[T]) MaxSize() int {
	return len(q.nodes) - 1
}

// Clear removes every element. O(n).
func (q *FastPriorityQueue[T]) Clear() {
	var zero T
	for i := 1; i <= q.count; i++ {
		q.nodes[i] = zero
	}
	q.count = 0
}

// Contains reports in O(1) whether node is enqueued.
func (q *FastPriorityQueue[T]) Contains(node T) bool {
	var zero T
	if node == zero {
		violation("nil node")
	}
	idx := node.QueueIndex()
	if idx < 0 || idx >= len(q.nodes) {
		violation(fmt.Sprintf("queue index %d has been corrupted; was it set manually or is the node in another queue?", idx))
	}
	return idx > 0 && q.nodes[idx] == node
}

// Enqueue inserts node with the given priority. O(log n).
func (q *FastPriorityQueue[T]) Enqueue(node T, priority float64) {
	var zero T
	if node == zero {
		violation("nil node")
	}
	if q.count >= len(q.nodes)-1 {
		violation(fmt.Sprintf("queue is full, node cannot be added: %v", node))
	}
	if q.Contains(node) {
		violation(fmt.Sprintf("node is already enqueued: %v", node))
	}
	node.SetPriority(priority)
	q.count++
	q.nodes[q.count] = node
	node.SetQueueIndex(q.count)
	q.cascadeUp(node)
}

// Dequeue removes and returns the element with the lowest priority. O(log n).
func (q *FastPriorityQueue[T]) Dequeue() T {
	if q.count <= 0 {
		violation("dequeue on an empty queue")
	}
	head := q.nodes[1]
	q.Remove(head)
	return head
}

// First returns the element with the lowest priority without removing it.
func (q *FastPriorityQueue[T]) First() T {
	if q.count <= 0 {
		violation("first on an empty queue")
	}
	return q.nodes[1]
}

// Remove removes node, which need not be the head. O(log n).
func (q *FastPriorityQueue[T]) Remove(node T) {
	if !q.Contains(node) {
		violation(fmt.Sprintf("remove of a node which is not enqueued: %v", node))
	}
	var zero T
	if node.QueueIndex() == q.count {
		q.nodes[q.count] = zero
		q.count--
		node.SetQueueIndex(0)
		return
	}
	last := q.nodes[q.count]
	q.swap(node, last)
	q.nodes[q.count] = zero
	q.count--
	node.SetQueueIndex(0)
	q.onNodeUpdated(last)
}

// UpdatePriority changes the priority of an enqueued node and restores the
// heap order. It must be used instead of SetPriority while enqueued.
func (q *FastPriorityQueue[T]) UpdatePriority(node T, priority float64) {
	if !q.Contains(node) {
		violation(fmt.Sprintf("update priority of a node which is not enqueued: %v", node))
	}
	node.SetPriority(priority)
	q.onNodeUpdated(node)
}

// Resize changes the capacity, keeping every enqueued element. O(n).
func (q *FastPriorityQueue[T]) Resize(maxNodes int) {
	if maxNodes <= 0 {
		violation("queue size cannot be smaller than 1")
	}
	if maxNodes < q.count {
		violation(fmt.Sprintf("resize to %d, but queue contains %d nodes", maxNodes, q.count))
	}
	nodes := make([]T, maxNodes+1)
	copy(nodes, q.nodes[:q.count+1])
	q.nodes = nodes
}

// IsValid checks the heap property over the whole array. It is meant for
// tests and debugging.
func (q *FastPriorityQueue[T]) IsValid() bool {
	for i := 1; i <= q.count; i++ {
		if q.nodes[i].QueueIndex() != i {
			return false
		}
		left := 2 * i
		if left <= q.count && higherPriority(q.nodes[left], q.nodes[i]) {
			return false
		}
		right := left + 1
		if right <= q.count && higherPriority(q.nodes[right], q.nodes[i]) {
			return false
		}
	}
	return true
}

func higherPriority[T Queueable](higher, lower T) bool {
	return higher.Priority() < lower.Priority()
}

func (q *FastPriorityQueue[T]) swap(a, b T) {
	ai, bi := a.QueueIndex(), b.QueueIndex()
	q.nodes[ai] = b
	q.nodes[bi] = a
	a.SetQueueIndex(bi)
	b.SetQueueIndex(ai)
}

func (q *FastPriorityQueue[T]) cascadeUp(node T) {
	parent := node.QueueIndex() / 2
	for parent >= 1 {
		parentNode := q.nodes[parent]
		if higherPriority(parentNode, node) {
			break
		}
		q.swap(node, parentNode)
		parent = node.QueueIndex() / 2
	}
}

func (q *FastPriorityQueue[T]) cascadeDown(node T) {
	final := node.QueueIndex()
	for {
		newParent := node
		left := 2 * final
		if left > q.count {
			break
		}
		if higherPriority(q.nodes[left], newParent) {
			newParent = q.nodes[left]
		}
		if right := left + 1; right <= q.count && higherPriority(q.nodes[right], newParent) {
			newParent = q.nodes[right]
		}
		if newParent == node {
			break
		}
		// move the child up; node itself is placed once the loop ends
		q.nodes[final] = newParent
		next := newParent.QueueIndex()
		newParent.SetQueueIndex(final)
		final = next
	}
	node.SetQueueIndex(final)
	q.nodes[final] = node
}

func (q *FastPriorityQueue[T]) onNodeUpdated(node T) {
	parent := node.QueueIndex() / 2
	if parent > 0 && higherPriority(node, q.nodes[parent]) {
		q.cascadeUp(node)
		return
	}
	q.cascadeDown(node)
}
