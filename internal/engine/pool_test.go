package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/goap/internal/engine"
	intMetrics "github.com/gxo-labs/goap/internal/metrics"
	"github.com/gxo-labs/goap/internal/retry"
	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

func newTestPool(t *testing.T, workers int, opts ...goapv1.PlannerOption) *engine.Pool[string, any] {
	t.Helper()
	pool, err := engine.NewPool[string, any](workers, nopLogger(), opts...)
	require.NoError(t, err)
	return pool
}

func TestNewPool_Validation(t *testing.T) {
	_, err := engine.NewPool[string, any](0, nopLogger())
	assert.Error(t, err)

	_, err = engine.NewPool[string, any](1, nil)
	assert.Error(t, err)

	settings := goapv1.DefaultSettings()
	settings.MaxIterations = -1
	_, err = engine.NewPool[string, any](2, nopLogger(), goapv1.WithSettings(settings))
	assert.Error(t, err)

	pool := newTestPool(t, 3)
	assert.Equal(t, 3, pool.Workers())
}

func TestPool_PlanAll(t *testing.T) {
	provider := intMetrics.NewPrometheusRegistryProvider()
	pool := newTestPool(t, 2, goapv1.WithMetricsRegistryProvider(provider))

	var agents []AgentT
	var goals []*testGoal
	for i, hasAxe := range []bool{true, false, true, true, false} {
		agent, goal, _ := chopWoodAgent(hasAxe)
		agent.name = []string{"ann", "bob", "cid", "dee", "eve"}[i]
		agents = append(agents, agent)
		goals = append(goals, goal)
	}

	results, err := pool.PlanAll(context.Background(), agents)
	require.NoError(t, err)
	require.Len(t, results, len(agents))

	for i, res := range results {
		assert.Same(t, agents[i], res.Agent)
		assert.Equal(t, agents[i].Name(), res.Stats.Agent)
		if i == 1 || i == 4 {
			assert.Nil(t, res.Goal)
			assert.True(t, goaperrors.IsNoPlan(res.Err), "agent %s", res.Agent.Name())
			continue
		}
		assert.NoError(t, res.Err)
		assert.Same(t, goals[i], res.Goal)
		assert.Equal(t, "[ChopWood]", names(goals[i].Plan()))
	}

	families, err := provider.Registry().Gather()
	require.NoError(t, err)
	assert.Equal(t, 3.0, counterValue(families, "goap_plan_runs_total", "status", "Succeeded"))
	assert.Equal(t, 2.0, counterValue(families, "goap_plan_runs_total", "status", "Failed"))
	for _, mf := range families {
		if mf.GetName() == "goap_pool_active_workers" {
			assert.Zero(t, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestPool_PlanAllEmpty(t *testing.T) {
	pool := newTestPool(t, 1)
	results, err := pool.PlanAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPool_PlanAllCancelled(t *testing.T) {
	pool := newTestPool(t, 1)
	agent, _, _ := chopWoodAgent(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := pool.PlanAll(ctx, []AgentT{agent})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Goal)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	} else {
		// the planner was handed out before the cancellation was observed
		assert.True(t, goaperrors.IsNoPlan(results[0].Err))
	}
}

func TestPool_PlanWithRetry(t *testing.T) {
	t.Run("succeeds once the goal becomes possible", func(t *testing.T) {
		pool := newTestPool(t, 1)
		agent, goal, _ := chopWoodAgent(true)
		var checks atomic.Int32
		goal.possible = func() bool { return checks.Add(1) > 1 }

		res := pool.PlanWithRetry(context.Background(), agent, retry.Config{Attempts: 3})

		require.NoError(t, res.Err)
		assert.Same(t, goal, res.Goal)
		assert.Same(t, agent, res.Agent)
		assert.Equal(t, int32(2), checks.Load())
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		pool := newTestPool(t, 1)
		agent, goal, _ := chopWoodAgent(false)

		start := time.Now()
		res := pool.PlanWithRetry(context.Background(), agent, retry.Config{Attempts: 3})

		assert.True(t, goaperrors.IsNoPlan(res.Err))
		assert.Nil(t, res.Goal)
		assert.Nil(t, goal.Plan())
		// two waits of the goal's one millisecond error delay
		assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		pool := newTestPool(t, 1)
		agent, _, _ := chopWoodAgent(false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := pool.PlanWithRetry(ctx, agent, retry.Config{Attempts: 5, Delay: time.Hour})

		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Nil(t, res.Goal)
	})
}

func TestPool_PlanAllWithRetry(t *testing.T) {
	pool := newTestPool(t, 2)
	ready, goal, _ := chopWoodAgent(true)
	late, lateGoal, _ := chopWoodAgent(true)
	late.name = "late"
	var checks atomic.Int32
	lateGoal.possible = func() bool { return checks.Add(1) > 2 }

	results, err := pool.PlanAllWithRetry(context.Background(), []AgentT{ready, late}, retry.Config{Attempts: 5, Delay: time.Millisecond})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Same(t, goal, results[0].Goal)
	assert.Same(t, lateGoal, results[1].Goal)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int32(3), checks.Load())
}

func TestPool_DebugGraph(t *testing.T) {
	settings := goapv1.DefaultSettings()
	settings.DebugPlan = true
	pool := newTestPool(t, 1, goapv1.WithSettings(settings))
	agent, _, _ := chopWoodAgent(true)

	results, err := pool.PlanAll(context.Background(), []AgentT{agent})
	require.NoError(t, err)
	assert.Contains(t, results[0].DebugGraph, "digraph plan")
}
