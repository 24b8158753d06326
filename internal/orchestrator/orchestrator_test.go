package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	"github.com/R3E-Network/compliance-orchestrator/internal/compliance"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/pipeline"
	"github.com/R3E-Network/compliance-orchestrator/internal/probe"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/memorystore"
)

type noopBus struct{}

func (noopBus) Publish(context.Context, bus.Message) error { return nil }
func (noopBus) Subscribe(context.Context, model.AgentKind) (<-chan bus.Message, error) {
	return nil, nil
}
func (noopBus) Close() error { return nil }

type stubProbe struct{}

func (stubProbe) Collect(context.Context, string) ([]model.Evidence, string, bool, error) {
	return nil, "", true, nil
}
func (stubProbe) Healthcheck(context.Context) (bool, time.Duration, string) { return true, 0, "" }

func newTestDeps(t *testing.T) (Deps, store.Store) {
	t.Helper()
	s := memorystore.New()
	reg := probe.NewRegistry()
	reg.Register(probe.Registration{
		Metadata: probe.Metadata{Kind: model.AgentKindAWS},
		New:      func(map[string]any) (probe.Probe, error) { return stubProbe{}, nil },
	})
	evalReg := compliance.NewRegistry(compliance.DefaultRules())
	eval := compliance.NewEvaluator(evalReg)
	pl := pipeline.New(s, noopBus{}, eval, ids.SystemClock{}, nil, pipeline.DefaultOutboxConfig())

	return Deps{Store: s, Probes: reg, Pipeline: pl, Clock: ids.SystemClock{}}, s
}

func TestCreateAgent_RefusesUnregisteredKind(t *testing.T) {
	deps, _ := newTestDeps(t)
	o := New(deps)

	_, err := o.CreateAgent(context.Background(), "t-1", model.AgentKindGCP, nil)
	assert.Error(t, err)
}

func TestCreateAndStartAgent(t *testing.T) {
	deps, s := newTestDeps(t)
	o := New(deps)
	ctx := context.Background()

	a, err := o.CreateAgent(ctx, "t-1", model.AgentKindAWS, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusCreated, a.Status)

	require.NoError(t, o.Start(ctx, a.ID))

	require.Eventually(t, func() bool {
		got, err := s.LoadAgent(ctx, a.ID)
		return err == nil && got.Status == model.AgentStatusRunning
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, o.Stop(ctx, a.ID))
}

func TestOnStartup_ResetsStartingToError(t *testing.T) {
	deps, s := newTestDeps(t)
	o := New(deps)
	ctx := context.Background()

	require.NoError(t, s.PutAgent(ctx, model.Agent{ID: "a-stuck", Kind: model.AgentKindAWS, Status: model.AgentStatusStarting}))

	require.NoError(t, o.OnStartup(ctx))

	got, err := s.LoadAgent(ctx, "a-stuck")
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusError, got.Status)
}

func TestCheckHeartbeats_DegradesStaleAgent(t *testing.T) {
	deps, s := newTestDeps(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deps.Clock = fixedClock{t: now}
	o := New(deps)
	ctx := context.Background()

	require.NoError(t, s.PutAgent(ctx, model.Agent{
		ID: "a-1", Kind: model.AgentKindAWS, Status: model.AgentStatusRunning,
		LastHeartbeatAt: now.Add(-time.Minute),
	}))

	o.checkHeartbeats(ctx)

	got, err := s.LoadAgent(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusDegraded, got.Status)
}

// TestOnStartup_RestartsRunningAgentAndReconcilesStaleTasks covers S4: an
// agent that crashed while RUNNING, with a task still claimed RUNNING under
// it, must come back RUNNING with a live pull-loop, and the orphaned task
// must be reclaimable again rather than stuck RUNNING forever.
func TestOnStartup_RestartsRunningAgentAndReconcilesStaleTasks(t *testing.T) {
	deps, s := newTestDeps(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deps.Clock = fixedClock{t: now}
	deps.RetryCfg = resilience.RetryConfig{Base: time.Second, Cap: time.Minute, Jitter: 0}
	o := New(deps)
	ctx := context.Background()

	require.NoError(t, s.PutAgent(ctx, model.Agent{ID: "a-1", Kind: model.AgentKindAWS, Status: model.AgentStatusRunning}))
	require.NoError(t, s.EnqueueTask(ctx, model.Task{
		ID: "t-1", AgentID: "a-1", AgentKind: model.AgentKindAWS,
		Status: model.TaskStatusPending, Attempts: 1, MaxAttempts: 3, NotBefore: now,
	}))
	_, err := s.ClaimNextTask(ctx, "a-1", now)
	require.NoError(t, err)
	require.NoError(t, s.StartTask(ctx, "t-1", now))

	require.NoError(t, o.OnStartup(ctx))

	gotAgent, err := s.LoadAgent(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusRunning, gotAgent.Status)
	_, tracked := o.runtime("a-1")
	assert.True(t, tracked, "restarted agent should have a tracked runtime")

	gotTask, err := s.(*memorystore.Store).TaskByID("t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusRetry, gotTask.Status)
	assert.Equal(t, 2, gotTask.Attempts)
	assert.True(t, gotTask.NotBefore.After(now))
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
