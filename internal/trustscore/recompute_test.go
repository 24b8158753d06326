package trustscore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/memorystore"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func waitForScore(t *testing.T, s store.Store, tenantID string) model.TrustScore {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		score, err := s.GetTrustScore(context.Background(), tenantID)
		if err == nil {
			return score
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for trust score")
	return model.TrustScore{}
}

func TestRecomputer_ComputesAndPersistsOnNotification(t *testing.T) {
	s := memorystore.New()
	b := bus.New(bus.DefaultConfig())
	clock := &fixedClock{now: time.Unix(1000, 0)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := s.PutEvidenceIfAbsent(ctx, compliantS3())
	require.NoError(t, err)

	r := NewRecomputer(newEngine(), s, b, nil, clock)
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	require.NoError(t, b.Publish(ctx, bus.Message{
		TaskID:     "e-1",
		TenantID:   "t-1",
		AgentKind:  RecomputeTopic,
		Priority:   model.PriorityDefault,
		EnqueuedAt: clock.Now(),
	}))

	score := waitForScore(t, s, "t-1")
	assert.Equal(t, "t-1", score.TenantID)
	assert.Equal(t, 1, score.EvidenceCount)
}

func TestRecomputer_DebouncesBurstIntoOneRecompute(t *testing.T) {
	s := memorystore.New()
	b := bus.New(bus.DefaultConfig())
	clock := &fixedClock{now: time.Unix(2000, 0)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRecomputer(newEngine(), s, b, nil, clock)
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, bus.Message{
			TaskID:     "e-burst",
			TenantID:   "t-2",
			AgentKind:  RecomputeTopic,
			Priority:   model.PriorityDefault,
			EnqueuedAt: clock.Now(),
		}))
	}

	waitForScore(t, s, "t-2")

	r.mu.Lock()
	last := r.lastRun["t-2"]
	r.mu.Unlock()
	assert.False(t, last.IsZero())
}
