// Package agent implements AgentRuntime (spec §4.8): the per-agent pull
// loop that claims tasks, runs the assigned probe, and feeds results to the
// EvidencePipeline, built on the teacher's ticker-worker/stopCh/sync.Once
// pattern (infrastructure/service/base.go, adapted here to a single state
// machine instead of a generic worker list).
package agent

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	orcherrors "github.com/R3E-Network/compliance-orchestrator/infrastructure/errors"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/pipeline"
	"github.com/R3E-Network/compliance-orchestrator/internal/probe"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// heartbeatInterval and heartbeatJitter implement spec §4.8's "every 10s +-1s".
const (
	heartbeatInterval = 10 * time.Second
	heartbeatJitter   = 1 * time.Second
	// gracefulWindow is the default graceful-stop window (spec §4.8).
	gracefulWindow = 30 * time.Second
)

// Runtime drives one Agent's CREATED->...->STOPPED|TERMINATED lifecycle.
type Runtime struct {
	agent model.Agent

	store    store.Store
	probe    probe.Probe
	pipeline *pipeline.Pipeline
	breakers *breaker.Registry
	limiter  *ratelimit.Limiter
	logger   *logging.Logger
	clock    ids.Clock
	retryCfg resilience.RetryConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	mu      sync.Mutex
	metrics model.AgentMetrics

	// proc samples this process's CPU/RSS for the heartbeat. Nil (and
	// silently skipped) if gopsutil couldn't attach to the running pid.
	proc *process.Process
}

// Deps bundles a Runtime's collaborators.
type Deps struct {
	Store    store.Store
	Probe    probe.Probe
	Pipeline *pipeline.Pipeline
	Breakers *breaker.Registry
	Limiter  *ratelimit.Limiter
	Logger   *logging.Logger
	Clock    ids.Clock
	RetryCfg resilience.RetryConfig
}

// New constructs a Runtime for agent, which must already be persisted in
// CREATED state.
func New(a model.Agent, deps Deps) *Runtime {
	clock := deps.Clock
	if clock == nil {
		clock = ids.SystemClock{}
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Runtime{
		agent:    a,
		store:    deps.Store,
		probe:    deps.Probe,
		pipeline: deps.Pipeline,
		breakers: deps.Breakers,
		limiter:  deps.Limiter,
		logger:   deps.Logger,
		clock:    clock,
		retryCfg: deps.RetryCfg,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		proc:     proc,
	}
}

// Start transitions CREATED->STARTING->RUNNING and spawns the heartbeat and
// task-claim loops. ctx's lifetime should span the runtime's entire run;
// Stop is the intended way to end it early.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.transition(ctx, model.AgentStatusCreated, model.AgentStatusStarting); err != nil {
		return err
	}
	if err := r.transition(ctx, model.AgentStatusStarting, model.AgentStatusRunning); err != nil {
		_ = r.transition(ctx, model.AgentStatusStarting, model.AgentStatusError)
		return err
	}

	go r.heartbeatLoop(ctx)
	go r.taskLoop(ctx)
	return nil
}

// Pause CASes RUNNING->PAUSED.
func (r *Runtime) Pause(ctx context.Context) error {
	return r.transition(ctx, model.AgentStatusRunning, model.AgentStatusPaused)
}

// Resume CASes PAUSED->RUNNING.
func (r *Runtime) Resume(ctx context.Context) error {
	return r.transition(ctx, model.AgentStatusPaused, model.AgentStatusRunning)
}

// Stop signals both loops and waits up to the graceful window for them to
// drain in-flight work, then forces TERMINATED. Once the agent has reached a
// terminal state, a further Stop returns an IllegalTransition error.
func (r *Runtime) Stop(ctx context.Context) error {
	agent, err := r.store.LoadAgent(ctx, r.agent.ID)
	if err != nil {
		return orcherrors.Storage("load_agent", err)
	}
	if !model.CanTransition(agent.Status, model.AgentStatusStopping) {
		return orcherrors.IllegalTransition(r.agent.ID, string(agent.Status), string(model.AgentStatusStopping))
	}
	if err := r.store.CASAgentStatus(ctx, r.agent.ID, agent.Status, model.AgentStatusStopping); err != nil {
		return orcherrors.Storage("cas_agent_status", err)
	}

	r.stopOnce.Do(func() { close(r.stopCh) })

	select {
	case <-r.doneCh:
		return r.transition(ctx, model.AgentStatusStopping, model.AgentStatusStopped)
	case <-time.After(gracefulWindow):
		return r.transition(ctx, model.AgentStatusStopping, model.AgentStatusTerminated)
	}
}

func (r *Runtime) transition(ctx context.Context, from, to model.AgentStatus) error {
	if !model.CanTransition(from, to) {
		return orcherrors.IllegalTransition(r.agent.ID, string(from), string(to))
	}
	if err := r.store.CASAgentStatus(ctx, r.agent.ID, from, to); err != nil {
		return orcherrors.Storage("cas_agent_status", err)
	}
	if r.logger != nil {
		r.logger.LogAgentTransition(ctx, r.agent.ID, string(from), string(to))
	}
	return nil
}

// heartbeatLoop writes one row every ~10s with current metrics, until
// stopped (spec §4.8).
func (r *Runtime) heartbeatLoop(ctx context.Context) {
	for {
		interval := heartbeatInterval + jitter(heartbeatJitter)
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-time.After(interval):
			r.emitHeartbeat(ctx)
		}
	}
}

func (r *Runtime) emitHeartbeat(ctx context.Context) {
	agent, err := r.store.LoadAgent(ctx, r.agent.ID)
	if err != nil {
		return
	}

	r.sampleProcessMetrics()

	r.mu.Lock()
	agent.Metrics = r.metrics
	r.mu.Unlock()

	agent.LastHeartbeatAt = r.clock.Now()
	_ = r.store.PutAgent(ctx, agent)
}

// sampleProcessMetrics fills CPUPercent/RSSBytes with this process's current
// usage (spec §4.8's heartbeat metrics). Every agent runtime shares the same
// process, so this is a snapshot of the whole orchestrator, not a
// per-agent figure; probe-level work is already broken out via InFlight and
// LastLatencyMs.
func (r *Runtime) sampleProcessMetrics() {
	if r.proc == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cpu, err := r.proc.CPUPercent(); err == nil {
		r.metrics.CPUPercent = cpu
	}
	if mem, err := r.proc.MemoryInfo(); err == nil && mem != nil {
		r.metrics.RSSBytes = int64(mem.RSS)
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)*2)) - max
}
