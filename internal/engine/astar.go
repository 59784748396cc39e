package engine

import (
	"fmt"

	"github.com/gxo-labs/goap/internal/queue"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
	"github.com/mitchellh/hashstructure/v2"
)

// stateKey identifies a search state in the explored and frontier indexes.
// With identity keying only handle is set; with structural keying only hash.
type stateKey[K comparable, V comparable] struct {
	handle state.State[K, V]
	hash   uint64
}

// structuralKey is what structural keying hashes: two nodes with equal state
// but different residual goals are different search states.
type structuralKey[K comparable, V comparable] struct {
	State map[K]V
	Goal  map[K]V
}

// AStar is the search driver. Its frontier is sized once, at creation, to
// the planner's MaxNodesToExpand.
type AStar[K comparable, V comparable] struct {
	frontier     *queue.FastPriorityQueue[*Node[K, V]]
	stateToNode  map[stateKey[K, V]]*Node[K, V]
	explored     map[stateKey[K, V]]*Node[K, V]
	createdNodes []*Node[K, V]
	keying       goapv1.Keying
	log          goaplog.Logger

	iterations int
	debugPlan  bool
	debugger   *PlanDebugger
}

// NewAStar creates a search driver whose frontier holds maxNodesToExpand
// nodes.
func NewAStar[K comparable, V comparable](maxNodesToExpand int, keying goapv1.Keying, log goaplog.Logger) *AStar[K, V] {
	return &AStar[K, V]{
		frontier:     queue.New[*Node[K, V]](maxNodesToExpand),
		stateToNode:  make(map[stateKey[K, V]]*Node[K, V]),
		explored:     make(map[stateKey[K, V]]*Node[K, V]),
		createdNodes: make([]*Node[K, V], 0, maxNodesToExpand),
		keying:       keying,
		log:          log,
		debugger:     &PlanDebugger{},
	}
}

// ClearNodes recycles every node registered by the previous run.
func (a *AStar[K, V]) ClearNodes() {
	for _, node := range a.createdNodes {
		node.Recycle()
	}
	a.createdNodes = a.createdNodes[:0]
}

// Iterations returns the number of children generated by the last run.
func (a *AStar[K, V]) Iterations() int {
	return a.iterations
}

// Debugger returns the graph recorded by the last run with debugging on.
func (a *AStar[K, V]) Debugger() *PlanDebugger {
	return a.debugger
}

// Run searches from start until a node satisfies the goal, the frontier
// empties, or the frontier is about to overflow. It returns nil when no
// solution was found.
//
// maxIterations bounds expansion only: once that many children have been
// generated no node is expanded any more, but the frontier is still drained
// and goal-tested.
//
// With clearNodes the nodes of the previous run are recycled first and every
// node of this run is registered for recycling by the next one.
func (a *AStar[K, V]) Run(start *Node[K, V], maxIterations int, earlyExit, clearNodes, debugPlan bool) *Node[K, V] {
	a.debugPlan = debugPlan
	a.iterations = 0

	a.frontier.Clear()
	clear(a.stateToNode)
	clear(a.explored)
	if clearNodes {
		a.ClearNodes()
		a.createdNodes = append(a.createdNodes, start)
	}
	if debugPlan {
		a.debugger.Clear()
	}

	a.frontier.Enqueue(start, start.Cost())
	a.debugNode(start, nil)

	for a.frontier.Count() > 0 && a.frontier.Count()+1 < a.frontier.MaxSize() {
		node := a.frontier.Dequeue()
		if node.IsGoal() {
			a.log.Debugf("[AStar] Success iterations: %d", a.iterations)
			a.endDebugPlan(node)
			return node
		}
		a.explored[a.keyOf(node)] = node
		if a.iterations >= maxIterations {
			continue
		}

		children := node.Expand()
		if clearNodes {
			a.createdNodes = append(a.createdNodes, children...)
		}
		for _, child := range children {
			a.iterations++
			if earlyExit && child.IsGoal() {
				a.log.Debugf("[AStar] (early exit) Success iterations: %d", a.iterations)
				a.debugNode(child, node)
				a.endDebugPlan(child)
				return child
			}

			key := a.keyOf(child)
			if _, seen := a.explored[key]; seen {
				continue
			}
			if similar, ok := a.stateToNode[key]; ok {
				if similar.Cost() <= child.Cost() {
					continue
				}
				a.frontier.Remove(similar)
			}
			if a.frontier.Count() >= a.frontier.MaxSize() {
				break
			}

			a.debugNode(child, node)
			a.frontier.Enqueue(child, child.Cost())
			a.stateToNode[key] = child
		}
	}
	a.log.Warnf("[AStar] failed after %d iterations.", a.iterations)
	a.endDebugPlan(nil)
	return nil
}

func (a *AStar[K, V]) keyOf(n *Node[K, V]) stateKey[K, V] {
	if a.keying == goapv1.KeyingStructural {
		key := structuralKey[K, V]{State: n.State().Values(), Goal: n.Goal().Values()}
		hash, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
		if err == nil {
			return stateKey[K, V]{hash: hash}
		}
		a.log.Warnf("[AStar] cannot hash search state of %s, falling back to identity keying: %v", n, err)
	}
	return stateKey[K, V]{handle: n.State()}
}

func (a *AStar[K, V]) debugNode(node, parent *Node[K, V]) {
	if !a.debugPlan {
		return
	}
	label := fmt.Sprintf("%s\npCost %g, hCost %g, cost %g\nprecon {%s}\neffects {%s}\ngoal {%s}",
		node.Name(), node.PathCost(), node.HeuristicCost(), node.Cost(),
		describe(node.preconditions), describe(node.effects), describe(node.Goal()))
	a.debugger.AddNode(fmt.Sprintf("%s [label=%s]", dotQuote(node.ID()), dotQuote(label)))
	if parent != nil {
		a.debugger.AddConn(fmt.Sprintf("%s -> %s", dotQuote(parent.ID()), dotQuote(node.ID())))
	}
}

// endDebugPlan marks the success path from node up to the root.
func (a *AStar[K, V]) endDebugPlan(node *Node[K, V]) {
	if !a.debugPlan {
		return
	}
	for ; node != nil; node = node.Parent() {
		a.debugger.AddNode(fmt.Sprintf("%s [style=\"bold\" color=\"darkgreen\"]", dotQuote(node.ID())))
	}
}

func describe[K comparable, V comparable](s state.State[K, V]) string {
	if !s.Valid() {
		return ""
	}
	return s.String()
}
