//go:build integration

package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// These tests run only against a real Postgres instance (docker-compose or
// CI service container), selected via DATABASE_URL. Unit-level coverage of
// the Store contract lives in memorystore, which both implementations share.

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping pgstore integration test")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPgStore_AgentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	agent := model.Agent{
		ID:        "pg-agent-1",
		TenantID:  "tenant-1",
		Kind:      model.AgentKindAWS,
		Status:    model.AgentStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutAgent(ctx, agent))

	got, err := s.LoadAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.Equal(t, agent.TenantID, got.TenantID)
	require.Equal(t, agent.Status, got.Status)
}

func TestPgStore_ClaimNextTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	task := model.NewTask("pg-task-1", model.AgentKindAWS, "scan", model.PriorityHigh, nil, now)
	task.AgentID = "pg-agent-claim"
	require.NoError(t, s.EnqueueTask(ctx, task))

	claimed, err := s.ClaimNextTask(ctx, "pg-agent-claim", now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, task.ID, claimed.ID)
	require.Equal(t, model.TaskStatusAssigned, claimed.Status)

	_, err = s.ClaimNextTask(ctx, "pg-agent-claim", now.Add(time.Second))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPgStore_PutEvidenceIfAbsent_Dedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := model.Evidence{
		TenantID:    "tenant-dedup",
		ContentHash: "deadbeef",
		Kind:        "iam_policy",
		CollectedAt: time.Now().UTC(),
	}

	result, id1, err := s.PutEvidenceIfAbsent(ctx, e)
	require.NoError(t, err)
	require.Equal(t, store.Inserted, result)

	result, id2, err := s.PutEvidenceIfAbsent(ctx, e)
	require.NoError(t, err)
	require.Equal(t, store.Duplicate, result)
	require.Equal(t, id1, id2)
}
