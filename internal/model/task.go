package model

import "time"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusAssigned  TaskStatus = "ASSIGNED"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusRetry     TaskStatus = "RETRY"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
)

// Priority levels. Lower numbers dispatch first: 1 (critical), 3 (high),
// 5 (default), 10 (low); ties broken by FIFO.
const (
	PriorityCritical = 1
	PriorityHigh     = 3
	PriorityDefault  = 5
	PriorityLow      = 10
)

// TaskSource distinguishes how a task was created, for audit/metrics only —
// it never influences dispatch logic (SPEC_FULL §3 supplement).
type TaskSource string

const (
	TaskSourceScheduled TaskSource = "scheduled"
	TaskSourceManual    TaskSource = "manual"
)

// Task is a unit of work assigned to an agent (spec §3).
type Task struct {
	ID          string
	AgentID     string
	AgentKind   AgentKind
	Kind        string
	Priority    int
	Payload     map[string]any
	Status      TaskStatus
	Source      TaskSource
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Result      map[string]any
	Error       string
	NotBefore   time.Time
	Deadline    time.Time
}

// DefaultMaxAttempts is the spec §3 default for Task.MaxAttempts.
const DefaultMaxAttempts = 3

// NewTask constructs a Task with spec-default fields populated, ready for
// Store.enqueue_task.
func NewTask(id string, agentKind AgentKind, kind string, priority int, payload map[string]any, now time.Time) Task {
	return Task{
		ID:          id,
		AgentKind:   agentKind,
		Kind:        kind,
		Priority:    priority,
		Payload:     payload,
		Status:      TaskStatusPending,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		NotBefore:   now,
	}
}
