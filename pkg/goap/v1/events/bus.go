package events

import "time"

// EventType represents the type of a planner event.
type EventType string

// Planner event types.
const (
	PlanStart    EventType = "PlanStart"    // plan() entered for an agent
	PlanEnd      EventType = "PlanEnd"      // plan() finished, with or without a goal
	GoalSelected EventType = "GoalSelected" // a goal received a plan
	GoalRejected EventType = "GoalRejected" // goal dropped by the reachability pre-check or plan checks
	AStarFailed  EventType = "AStarFailed"  // search exhausted its budget or frontier
)

// Event represents a significant occurrence during planning.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	// PlanID correlates all events of one plan() invocation.
	PlanID    string `json:"plan_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	GoalName  string `json:"goal_name,omitempty"`
	// Payload contains event-specific data, e.g. "reason" for GoalRejected or
	// "iterations" for AStarFailed.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus publishes planner events. Emit must not block the planner.
type Bus interface {
	Emit(event Event)
}
