package engine

import (
	"fmt"

	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/state"
)

// searchContext is what nodes need from the planner during one planning
// pass: the agent, the world snapshot taken when the pass started, and the
// planner-owned arenas.
type searchContext[K comparable, V comparable] struct {
	agent               goapv1.Agent[K, V]
	world               state.State[K, V]
	states              *state.Arena[K, V]
	nodes               *NodeArena[K, V]
	heuristicMultiplier float64
}

// Node is one step of a candidate plan. The search runs backwards from the
// goal: a node's goal is what must still hold before its action can run, and
// the node is a solution once the live world already satisfies that goal.
type Node[K comparable, V comparable] struct {
	search *searchContext[K, V]
	parent NodeRef[K, V]
	action goapv1.Action[K, V]

	settings      state.State[K, V]
	state         state.State[K, V]
	goal          state.State[K, V]
	goalVsWorld   state.State[K, V]
	preconditions state.State[K, V] // owned by the action
	effects       state.State[K, V] // owned by the action

	g, h, cost float64

	priority   float64
	queueIndex int

	slot       int
	gen        uint32
	live       bool
	expandList []*Node[K, V]
}

// NodeArena pools search nodes with generation stamps, mirroring
// state.Arena. It is owned by a single planner.
//
// A *Node only detects use after Recycle; once its slot is handed out again
// the pointer is valid for the new node. Code holding a node across
// recycling keeps a NodeRef instead, which also catches slot reuse.
type NodeArena[K comparable, V comparable] struct {
	nodes   []*Node[K, V]
	free    []int
	live    int
	created int
}

// NewNodeArena creates an arena with room for sizeHint nodes.
func NewNodeArena[K comparable, V comparable](sizeHint int) *NodeArena[K, V] {
	return &NodeArena[K, V]{
		nodes: make([]*Node[K, V], 0, sizeHint),
		free:  make([]int, 0, sizeHint),
	}
}

func (a *NodeArena[K, V]) obtain() *Node[K, V] {
	var n *Node[K, V]
	if k := len(a.free); k > 0 {
		n = a.nodes[a.free[k-1]]
		a.free = a.free[:k-1]
	} else {
		n = &Node[K, V]{slot: len(a.nodes)}
		a.nodes = append(a.nodes, n)
	}
	n.gen++
	n.live = true
	a.live++
	a.created++
	return n
}

func (a *NodeArena[K, V]) release(n *Node[K, V]) {
	n.live = false
	a.free = append(a.free, n.slot)
	a.live--
}

// NodeRef is a generation-stamped handle to a node.
type NodeRef[K comparable, V comparable] struct {
	node *Node[K, V]
	gen  uint32
}

// Ref returns a handle to n in its current generation.
func (n *Node[K, V]) Ref() NodeRef[K, V] {
	n.check()
	return NodeRef[K, V]{node: n, gen: n.gen}
}

// IsZero reports whether r refers to no node.
func (r NodeRef[K, V]) IsZero() bool { return r.node == nil }

// Resolve returns the node r was taken from. It panics with a
// StaleHandleError when that node was recycled or its slot reused since.
func (r NodeRef[K, V]) Resolve() *Node[K, V] {
	if r.node == nil {
		return nil
	}
	if !r.node.live || r.node.gen != r.gen {
		panic(goaperrors.NewStaleHandleError("node", r.node.slot, r.gen, r.node.gen))
	}
	return r.node
}

// Live returns the number of nodes currently handed out.
func (a *NodeArena[K, V]) Live() int { return a.live }

// Created returns how many nodes were ever obtained from the arena.
func (a *NodeArena[K, V]) Created() int { return a.created }

// newNode obtains a node from the arena and evaluates it. goal is the
// parent's residual goal; for the root it is the goal itself and the node
// takes ownership of it.
func newNode[K comparable, V comparable](sc *searchContext[K, V], goal state.State[K, V], parent *Node[K, V], action goapv1.Action[K, V], settings state.State[K, V]) *Node[K, V] {
	n := sc.nodes.obtain()
	n.search = sc
	n.parent = NodeRef[K, V]{}
	n.action = action
	n.expandList = n.expandList[:0]
	n.priority = 0
	n.queueIndex = 0
	n.settings = state.State[K, V]{}
	n.preconditions = state.State[K, V]{}
	n.effects = state.State[K, V]{}

	if settings.Valid() {
		n.settings = sc.states.Clone(settings)
	}
	if parent != nil {
		n.state = parent.state.Clone()
		n.g = parent.g
		n.parent = parent.Ref()
	} else {
		n.state = sc.states.Clone(sc.world)
		n.g = 0
	}

	if action != nil {
		n.goal = goal.Clone()
		ctx := goapv1.ActionContext[K, V]{
			Agent:        sc.agent,
			CurrentState: n.state,
			GoalState:    n.goal,
			Next:         action,
			Settings:     n.settings,
		}
		n.preconditions = action.Preconditions(ctx)
		n.effects = action.Effects(ctx)
		n.g += action.Cost(ctx)

		n.state.AddFromState(n.effects)
		// conditions the action fulfils are done; its preconditions become
		// what earlier actions (or the world) must provide
		n.goal.ReplaceWithMissingDifference(n.effects)
		n.goal.AddFromState(n.preconditions)
	} else {
		n.goal = goal
	}

	n.h = float64(n.goal.Size())
	n.cost = n.g + n.h*sc.heuristicMultiplier

	n.goalVsWorld = sc.states.Get()
	n.goal.MissingDifferenceWith(sc.world, state.Diff[K, V]{Into: n.goalVsWorld})
	return n
}

func (n *Node[K, V]) check() {
	if !n.live {
		panic(goaperrors.NewStaleHandleError("node", n.slot, n.gen, n.gen))
	}
}

// Expand returns the children of n: one per action and settings variant whose
// effects advance the goal without contradicting it. Actions are visited in
// reverse registration order. The returned slice is reused by the next call.
func (n *Node[K, V]) Expand() []*Node[K, V] {
	n.check()
	n.expandList = n.expandList[:0]

	sc := n.search
	actions := sc.agent.Actions()
	ctx := goapv1.ActionContext[K, V]{
		Agent:        sc.agent,
		CurrentState: n.state,
		GoalState:    n.goal,
		Next:         n.action,
	}
	for i := len(actions) - 1; i >= 0; i-- {
		candidate := actions[i]
		ctx.Settings = state.State[K, V]{}
		candidate.Precalculations(ctx)

		for _, settings := range settingsVariants(candidate, ctx) {
			ctx.Settings = settings
			precond := candidate.Preconditions(ctx)
			effects := candidate.Effects(ctx)

			if effects.HasAny(n.goal) &&
				!n.goal.HasAnyConflictWithChanges(effects, precond) &&
				!n.goal.HasAnyConflict(effects) &&
				candidate.CheckProceduralCondition(ctx) {
				n.expandList = append(n.expandList, newNode(sc, n.goal, n, candidate, settings))
			}
		}
	}
	return n.expandList
}

// settingsVariants returns the action's settings, or a single zero State
// when it declares none.
func settingsVariants[K comparable, V comparable](action goapv1.Action[K, V], ctx goapv1.ActionContext[K, V]) []state.State[K, V] {
	variants := action.Settings(ctx)
	if len(variants) == 0 {
		return []state.State[K, V]{{}}
	}
	return variants
}

// CalculatePath walks from n up to the root (exclusive) and returns the
// steps in that order, which is execution order for a backward search: the
// deepest node's action is the first one to run. Settings are snapshotted so
// the plan survives node recycling.
func (n *Node[K, V]) CalculatePath() goapv1.Plan[K, V] {
	n.check()
	var plan goapv1.Plan[K, V]
	node := n
	for !node.parent.IsZero() {
		step := goapv1.PlanStep[K, V]{Action: node.action}
		if node.settings.Valid() {
			step.Settings = node.settings.Snapshot()
		}
		plan = append(plan, step)

		node = node.parent.Resolve()
	}
	return plan
}

// Recycle returns the node and the states it owns to their arenas. The
// parent is not recycled.
func (n *Node[K, V]) Recycle() {
	n.check()
	n.state.Recycle()
	n.goal.Recycle()
	n.goalVsWorld.Recycle()
	if n.settings.Valid() {
		n.settings.Recycle()
	}
	n.state = state.State[K, V]{}
	n.goal = state.State[K, V]{}
	n.goalVsWorld = state.State[K, V]{}
	n.settings = state.State[K, V]{}
	n.preconditions = state.State[K, V]{}
	n.effects = state.State[K, V]{}
	n.parent = NodeRef[K, V]{}
	n.action = nil
	n.search.nodes.release(n)
}

// IsGoal reports whether the live world already satisfies the residual goal.
func (n *Node[K, V]) IsGoal() bool {
	n.check()
	return n.goalVsWorld.Size() <= 0
}

func (n *Node[K, V]) PathCost() float64      { return n.g }
func (n *Node[K, V]) HeuristicCost() float64 { return n.h }
func (n *Node[K, V]) Cost() float64          { return n.cost }
func (n *Node[K, V]) Parent() *Node[K, V]    { return n.parent.node }

func (n *Node[K, V]) State() state.State[K, V] {
	n.check()
	return n.state
}

func (n *Node[K, V]) Goal() state.State[K, V] {
	n.check()
	return n.goal
}

func (n *Node[K, V]) Action() goapv1.Action[K, V] { return n.action }

func (n *Node[K, V]) Settings() state.State[K, V] { return n.settings }

// Name returns the action name, or "NoAction" for the root.
func (n *Node[K, V]) Name() string {
	if n.action == nil {
		return "NoAction"
	}
	return n.action.Name()
}

// ID identifies the node within its arena generation, e.g. "n4_2".
func (n *Node[K, V]) ID() string {
	return fmt.Sprintf("n%d_%d", n.slot, n.gen)
}

func (n *Node[K, V]) String() string {
	return fmt.Sprintf("%s[%s g=%g h=%g]", n.ID(), n.Name(), n.g, n.h)
}

// Queue bookkeeping, written by queue.FastPriorityQueue.
func (n *Node[K, V]) Priority() float64            { return n.priority }
func (n *Node[K, V]) SetPriority(priority float64) { n.priority = priority }
func (n *Node[K, V]) QueueIndex() int              { return n.queueIndex }
func (n *Node[K, V]) SetQueueIndex(index int)      { n.queueIndex = index }
