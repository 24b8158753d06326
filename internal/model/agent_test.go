package model

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	cases := []struct {
		from, to AgentStatus
		want     bool
	}{
		{AgentStatusCreated, AgentStatusStarting, true},
		{AgentStatusStarting, AgentStatusRunning, true},
		{AgentStatusRunning, AgentStatusPaused, true},
		{AgentStatusPaused, AgentStatusRunning, true},
		{AgentStatusRunning, AgentStatusDegraded, true},
		{AgentStatusDegraded, AgentStatusRunning, true},
		{AgentStatusRunning, AgentStatusStopping, true},
		{AgentStatusStopping, AgentStatusStopped, true},
		{AgentStatusStopping, AgentStatusTerminated, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanTransition_RejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to AgentStatus
	}{
		{AgentStatusCreated, AgentStatusRunning},
		{AgentStatusStopped, AgentStatusRunning},
		{AgentStatusTerminated, AgentStatusStarting},
		{AgentStatusPaused, AgentStatusDegraded},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", c.from, c.to)
		}
	}
}

func TestCanTransition_UnknownFromState(t *testing.T) {
	if CanTransition(AgentStatus("BOGUS"), AgentStatusRunning) {
		t.Fatal("expected false for unknown from-state")
	}
}

func TestAgentStatus_Terminal(t *testing.T) {
	if !AgentStatusStopped.Terminal() {
		t.Error("STOPPED should be terminal")
	}
	if !AgentStatusTerminated.Terminal() {
		t.Error("TERMINATED should be terminal")
	}
	if AgentStatusRunning.Terminal() {
		t.Error("RUNNING should not be terminal")
	}
}
