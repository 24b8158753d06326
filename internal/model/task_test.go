package model

import (
	"testing"
	"time"
)

func TestNewTask_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := NewTask("t-1", AgentKindAWS, "collect_iam_policies", PriorityHigh, map[string]any{"region": "us-east-1"}, now)

	if task.Status != TaskStatusPending {
		t.Errorf("Status = %s, want PENDING", task.Status)
	}
	if task.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", task.Attempts)
	}
	if task.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", task.MaxAttempts, DefaultMaxAttempts)
	}
	if !task.NotBefore.Equal(now) {
		t.Errorf("NotBefore = %v, want %v", task.NotBefore, now)
	}
	if task.Priority != PriorityHigh {
		t.Errorf("Priority = %d, want %d", task.Priority, PriorityHigh)
	}
}

func TestPriority_Ordering(t *testing.T) {
	// Dispatch takes lower numbers first: 1 (critical), 3 (high),
	// 5 (default), 10 (low).
	if !(PriorityCritical < PriorityHigh && PriorityHigh < PriorityDefault && PriorityDefault < PriorityLow) {
		t.Fatal("priority constants must sort critical < high < default < low numerically")
	}
}
