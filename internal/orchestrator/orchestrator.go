// Package orchestrator implements the top-level supervisor of spec §4.10:
// it owns agent lifecycle (create/start/stop/pause/resume), keeps each
// RUNNING agent's pull-loop alive, and watches heartbeat freshness to drive
// RUNNING->DEGRADED->ERROR.
package orchestrator

import (
	"context"
	"sync"
	"time"

	orcherrors "github.com/R3E-Network/compliance-orchestrator/infrastructure/errors"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/metrics"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/agent"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/pipeline"
	"github.com/R3E-Network/compliance-orchestrator/internal/probe"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// DispatchTickInterval and HealthTickInterval are spec §4.10's dispatch_loop
// and health_loop cadences.
const (
	DispatchTickInterval = 5 * time.Second
	HealthTickInterval   = 30 * time.Second

	// degradedAfter and errorAfter are the heartbeat-staleness thresholds
	// that drive RUNNING->DEGRADED->ERROR (spec §4.10, defaults per §6).
	degradedAfter = 30 * time.Second
	errorAfter    = 120 * time.Second

	// restartBackoffCap bounds the exponential backoff applied when a
	// crashed agent's loop is respawned.
	restartBackoffCap = 60 * time.Second
)

// Deps bundles the Orchestrator's shared collaborators, handed to every
// agent.Runtime it creates.
type Deps struct {
	Store    store.Store
	Probes   *probe.Registry
	Pipeline *pipeline.Pipeline
	Breakers *breaker.Registry
	Limiter  *ratelimit.Limiter
	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Clock    ids.Clock
	RetryCfg resilience.RetryConfig
}

// Orchestrator is the top-level agent supervisor.
type Orchestrator struct {
	deps Deps

	mu        sync.Mutex
	runtimes  map[string]*agent.Runtime
	restarts  map[string]int
	runCtx    context.Context
	runCancel context.CancelFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = ids.SystemClock{}
	}
	return &Orchestrator{
		deps:     deps,
		runtimes: make(map[string]*agent.Runtime),
		restarts: make(map[string]int),
		stopCh:   make(chan struct{}),
	}
}

// CreateAgent validates config against the probe registry and inserts a
// CREATED agent row (spec §4.10).
func (o *Orchestrator) CreateAgent(ctx context.Context, tenantID string, kind model.AgentKind, config map[string]any) (model.Agent, error) {
	if _, err := o.deps.Probes.New(kind, config); err != nil {
		return model.Agent{}, orcherrors.Config(err.Error())
	}

	a := model.Agent{
		ID:        ids.New(),
		TenantID:  tenantID,
		Kind:      kind,
		Config:    config,
		Status:    model.AgentStatusCreated,
		CreatedAt: o.deps.Clock.Now(),
	}
	if err := o.deps.Store.PutAgent(ctx, a); err != nil {
		return model.Agent{}, orcherrors.Storage("put_agent", err)
	}
	return a, nil
}

// Start spawns the agent's runtime loop. The probe is constructed fresh
// from the agent's stored config each time, so Start is safe to call again
// after a crash-restart.
func (o *Orchestrator) Start(ctx context.Context, agentID string) error {
	a, err := o.deps.Store.LoadAgent(ctx, agentID)
	if err != nil {
		return orcherrors.Storage("load_agent", err)
	}

	p, err := o.deps.Probes.New(a.Kind, a.Config)
	if err != nil {
		return orcherrors.Config(err.Error())
	}

	rt := agent.New(a, agent.Deps{
		Store:    o.deps.Store,
		Probe:    p,
		Pipeline: o.deps.Pipeline,
		Breakers: o.deps.Breakers,
		Limiter:  o.deps.Limiter,
		Logger:   o.deps.Logger,
		Clock:    o.deps.Clock,
		RetryCfg: o.deps.RetryCfg,
	})

	o.mu.Lock()
	o.runtimes[agentID] = rt
	o.mu.Unlock()

	runCtx := o.runningContext()
	if err := rt.Start(runCtx); err != nil {
		o.mu.Lock()
		delete(o.runtimes, agentID)
		o.mu.Unlock()
		return err
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordAgentTransition("orchestrator", string(model.AgentStatusCreated), string(model.AgentStatusRunning))
	}
	return nil
}

func (o *Orchestrator) runningContext() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runCtx == nil {
		o.runCtx, o.runCancel = context.WithCancel(context.Background())
	}
	return o.runCtx
}

// Stop drives the named agent's runtime through its graceful shutdown.
func (o *Orchestrator) Stop(ctx context.Context, agentID string) error {
	o.mu.Lock()
	rt, ok := o.runtimes[agentID]
	if ok {
		delete(o.runtimes, agentID)
	}
	o.mu.Unlock()
	if !ok {
		return orcherrors.Config("orchestrator: agent not running: " + agentID)
	}
	return rt.Stop(ctx)
}

// Pause/Resume delegate to the agent's runtime.
func (o *Orchestrator) Pause(ctx context.Context, agentID string) error {
	rt, ok := o.runtime(agentID)
	if !ok {
		return orcherrors.Config("orchestrator: agent not running: " + agentID)
	}
	return rt.Pause(ctx)
}

func (o *Orchestrator) Resume(ctx context.Context, agentID string) error {
	rt, ok := o.runtime(agentID)
	if !ok {
		return orcherrors.Config("orchestrator: agent not running: " + agentID)
	}
	return rt.Resume(ctx)
}

func (o *Orchestrator) runtime(agentID string) (*agent.Runtime, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rt, ok := o.runtimes[agentID]
	return rt, ok
}

// OnStartup loads every non-terminal agent: RUNNING/DEGRADED/PAUSED agents
// are restarted (their runtime died with the process, so they are reset to
// CREATED before Start drives CREATED->STARTING->RUNNING again), STARTING
// ones (crashed mid-boot) reset to ERROR, and any task left RUNNING or
// ASSIGNED by the dead process is reconciled back to RETRY (spec §4.10, S4).
func (o *Orchestrator) OnStartup(ctx context.Context) error {
	agents, err := o.deps.Store.ListAgents(ctx, store.AgentFilter{})
	if err != nil {
		return orcherrors.Storage("list_agents", err)
	}

	for _, a := range agents {
		if a.Status.Terminal() {
			continue
		}
		switch a.Status {
		case model.AgentStatusRunning, model.AgentStatusDegraded, model.AgentStatusPaused:
			if err := o.deps.Store.CASAgentStatus(ctx, a.ID, a.Status, model.AgentStatusCreated); err != nil {
				if o.deps.Logger != nil {
					o.deps.Logger.Error(ctx, "orchestrator: reset recovered agent failed", err, map[string]any{"agent_id": a.ID})
				}
				continue
			}
			if err := o.Start(ctx, a.ID); err != nil && o.deps.Logger != nil {
				o.deps.Logger.Error(ctx, "orchestrator: restart on startup failed", err, map[string]any{"agent_id": a.ID})
			}
		case model.AgentStatusStarting:
			_ = o.deps.Store.CASAgentStatus(ctx, a.ID, model.AgentStatusStarting, model.AgentStatusError)
		}
	}

	if err := o.reconcileStaleTasks(ctx); err != nil {
		return err
	}
	return nil
}

// reconcileStaleTasks resets every task a dead process left RUNNING or
// ASSIGNED back to RETRY with a backoff-computed not_before, so it becomes
// claimable again once its owning agent restarts (spec §4.10, S4; invariant
// 4, "owned by exactly one Agent").
func (o *Orchestrator) reconcileStaleTasks(ctx context.Context) error {
	stale, err := o.deps.Store.ListStaleTasks(ctx)
	if err != nil {
		return orcherrors.Storage("list_stale_tasks", err)
	}

	for _, t := range stale {
		attempts := t.Attempts + 1
		notBefore := o.deps.Clock.Now().Add(resilience.Backoff(o.deps.RetryCfg, attempts))
		if err := o.deps.Store.ReconcileStaleTask(ctx, t.ID, attempts, notBefore); err != nil && o.deps.Logger != nil {
			o.deps.Logger.Error(ctx, "orchestrator: reconcile stale task failed", err, map[string]any{"task_id": t.ID})
		}
	}
	return nil
}

// Run starts the dispatch and health loops in background goroutines and
// returns; the loops run until ctx is cancelled or Shutdown is called.
func (o *Orchestrator) Run(ctx context.Context) {
	o.wg.Add(2)
	go o.dispatchLoop(ctx)
	go o.healthLoop(ctx)
}

func (o *Orchestrator) dispatchLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(DispatchTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.ensureAlive(ctx)
		}
	}
}

// ensureAlive restarts, with exponential backoff, any agent marked RUNNING
// in the Store whose runtime is no longer tracked (i.e. it crashed).
func (o *Orchestrator) ensureAlive(ctx context.Context) {
	agents, err := o.deps.Store.ListAgents(ctx, store.AgentFilter{Status: model.AgentStatusRunning})
	if err != nil {
		return
	}

	for _, a := range agents {
		if _, ok := o.runtime(a.ID); ok {
			continue
		}

		o.mu.Lock()
		attempt := o.restarts[a.ID]
		o.restarts[a.ID] = attempt + 1
		o.mu.Unlock()

		delay := resilience.Backoff(resilience.RetryConfig{Base: time.Second, Cap: restartBackoffCap, Jitter: 0.2}, attempt)
		time.Sleep(delay)

		if err := o.Start(ctx, a.ID); err != nil && o.deps.Logger != nil {
			o.deps.Logger.Error(ctx, "orchestrator: crash-restart failed", err, map[string]any{"agent_id": a.ID})
		}
	}
}

func (o *Orchestrator) healthLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(HealthTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.checkHeartbeats(ctx)
		}
	}
}

// checkHeartbeats drives RUNNING->DEGRADED->ERROR from heartbeat staleness
// (spec §4.10).
func (o *Orchestrator) checkHeartbeats(ctx context.Context) {
	now := o.deps.Clock.Now()

	agents, err := o.deps.Store.ListAgents(ctx, store.AgentFilter{})
	if err != nil {
		return
	}

	for _, a := range agents {
		if a.Status != model.AgentStatusRunning && a.Status != model.AgentStatusDegraded {
			continue
		}
		age := now.Sub(a.LastHeartbeatAt)
		if o.deps.Metrics != nil {
			o.deps.Metrics.SetHeartbeatAge("orchestrator", a.ID, age)
		}

		switch {
		case age >= errorAfter && a.Status == model.AgentStatusDegraded:
			_ = o.deps.Store.CASAgentStatus(ctx, a.ID, model.AgentStatusDegraded, model.AgentStatusError)
		case age >= degradedAfter && a.Status == model.AgentStatusRunning:
			_ = o.deps.Store.CASAgentStatus(ctx, a.ID, model.AgentStatusRunning, model.AgentStatusDegraded)
		case age < degradedAfter && a.Status == model.AgentStatusDegraded:
			_ = o.deps.Store.CASAgentStatus(ctx, a.ID, model.AgentStatusDegraded, model.AgentStatusRunning)
		}
	}
}

// Shutdown broadcasts stop to every tracked agent, then ends the dispatch
// and health loops (spec §4.10). The Store itself is closed by the caller,
// which owns its lifetime (e.g. a *sql.DB in cmd/orchestrator).
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	runtimes := make([]*agent.Runtime, 0, len(o.runtimes))
	for _, rt := range o.runtimes {
		runtimes = append(runtimes, rt)
	}
	o.runtimes = make(map[string]*agent.Runtime)
	cancel := o.runCancel
	o.mu.Unlock()

	var wg sync.WaitGroup
	for _, rt := range runtimes {
		wg.Add(1)
		go func(rt *agent.Runtime) {
			defer wg.Done()
			if err := rt.Stop(ctx); err != nil && o.deps.Logger != nil {
				o.deps.Logger.Error(ctx, "orchestrator: agent stop failed during shutdown", err, nil)
			}
		}(rt)
	}
	wg.Wait()

	if cancel != nil {
		cancel()
	}

	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}
