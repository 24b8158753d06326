package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/memorystore"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestAddJob_ComputesNextFireAt(t *testing.T) {
	s := memorystore.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sched := New(s, nil, fixedClock{t: now}, nil, time.Millisecond)

	err := sched.AddJob(Job{ID: "j-1", AgentKind: model.AgentKindAWS, Kind: "collect", Schedule: "* * * * *"})
	require.NoError(t, err)

	sched.mu.Lock()
	next := sched.jobs["j-1"].NextFireAt
	sched.mu.Unlock()
	assert.True(t, next.After(now))
}

func TestAddJob_RejectsInvalidSchedule(t *testing.T) {
	s := memorystore.New()
	sched := New(s, nil, fixedClock{t: time.Now()}, nil, time.Millisecond)

	err := sched.AddJob(Job{ID: "j-bad", AgentKind: model.AgentKindAWS, Kind: "collect", Schedule: "not a cron"})
	assert.Error(t, err)
}

func TestFireDue_EnqueuesTaskAndAdvances(t *testing.T) {
	s := memorystore.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &mutableClock{t: now}
	sched := New(s, nil, clock, nil, time.Millisecond)

	require.NoError(t, sched.AddJob(Job{
		ID: "j-1", AgentID: "agent-1", AgentKind: model.AgentKindAWS, Kind: "collect",
		Schedule: "* * * * *", TenantID: "t-1",
	}))

	sched.mu.Lock()
	sched.jobs["j-1"].NextFireAt = now
	firstNext := sched.jobs["j-1"].schedule.Next(now)
	sched.mu.Unlock()

	sched.fireDue(context.Background())

	claimed, err := s.ClaimNextTask(context.Background(), "agent-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.AgentKindAWS, claimed.AgentKind)
	assert.Equal(t, model.TaskSourceScheduled, claimed.Source)

	sched.mu.Lock()
	assert.Equal(t, firstNext, sched.jobs["j-1"].NextFireAt)
	assert.Equal(t, now, sched.jobs["j-1"].LastFireAt)
	sched.mu.Unlock()
}

func TestFire_CriticalKindAlwaysCritical(t *testing.T) {
	s := memorystore.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sched := New(s, constantTier{p: model.PriorityLow}, fixedClock{t: now}, nil, time.Millisecond)

	require.NoError(t, sched.AddJob(Job{
		ID: "j-crit", AgentID: "agent-1", AgentKind: model.AgentKindAWS, Kind: "security_incident",
		Schedule: "* * * * *", TenantID: "t-1",
	}))
	sched.mu.Lock()
	sched.jobs["j-crit"].NextFireAt = now
	sched.mu.Unlock()

	sched.fireDue(context.Background())

	claimed, err := s.ClaimNextTask(context.Background(), "agent-1", now)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityCritical, claimed.Priority)
}

type constantTier struct{ p int }

func (c constantTier) PriorityFor(string) int { return c.p }

type mutableClock struct{ t time.Time }

func (c *mutableClock) Now() time.Time { return c.t }
