package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	codes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	goapv1 "github.com/gxo-labs/goap/pkg/goap/v1"
)

// RecordErrorWithContext records err on span and marks the span failed. It
// does nothing for a nil error or a span that is not recording. Planner state
// carries no secrets, so the message is recorded as is.
func RecordErrorWithContext(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err, oteltrace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}

// StatsAttributes converts planning statistics into span attributes.
func StatsAttributes(stats goapv1.PlanStats) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("goap.plan.id", stats.PlanID),
		attribute.String("goap.agent.name", stats.Agent),
		attribute.String("goap.plan.goal", stats.Goal),
		attribute.Int("goap.plan.goals_considered", stats.GoalsConsidered),
		attribute.Int("goap.plan.goals_prechecked", stats.GoalsPrechecked),
		attribute.Int("goap.plan.astar_runs", stats.AStarRuns),
		attribute.Int("goap.plan.iterations", stats.Iterations),
		attribute.Int("goap.plan.nodes_created", stats.NodesCreated),
	}
}
