package agent

import (
	"context"
	"errors"
	"time"

	orcherrors "github.com/R3E-Network/compliance-orchestrator/infrastructure/errors"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// claimPollInterval is the base sleep between empty claim attempts; a small
// jitter avoids every idle agent waking in lockstep.
const claimPollInterval = 2 * time.Second

// taskLoop repeatedly claims, runs, and completes tasks routed to this
// agent until stopped (spec §4.8). Signals doneCh on exit so Stop can
// observe a graceful drain.
func (r *Runtime) taskLoop(ctx context.Context) {
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		default:
		}

		if r.isPaused(ctx) {
			r.sleep(ctx, claimPollInterval)
			continue
		}

		task, err := r.store.ClaimNextTask(ctx, r.agent.ID, r.clock.Now())
		if errors.Is(err, store.ErrNotFound) {
			r.sleep(ctx, claimPollInterval+jitter(claimPollInterval/4))
			continue
		}
		if err != nil {
			r.sleep(ctx, claimPollInterval)
			continue
		}

		r.runTask(ctx, task)
	}
}

func (r *Runtime) isPaused(ctx context.Context) bool {
	agent, err := r.store.LoadAgent(ctx, r.agent.ID)
	if err != nil {
		return false
	}
	return agent.Status == model.AgentStatusPaused
}

func (r *Runtime) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-r.stopCh:
	case <-time.After(d):
	}
}

// runTask starts, executes, and terminates a single claimed task, updating
// in-memory metrics surfaced by the next heartbeat.
func (r *Runtime) runTask(ctx context.Context, task model.Task) {
	startedAt := r.clock.Now()
	if err := r.store.StartTask(ctx, task.ID, startedAt); err != nil {
		return
	}

	r.mu.Lock()
	r.metrics.InFlight++
	r.mu.Unlock()

	result, collectErr := r.execute(ctx, task)

	latency := r.clock.Now().Sub(startedAt)

	r.mu.Lock()
	r.metrics.InFlight--
	r.metrics.LastLatencyMs = latency.Milliseconds()
	if collectErr != nil {
		r.metrics.Errors++
	} else {
		r.metrics.Collected++
	}
	r.mu.Unlock()

	attempts := task.Attempts + 1

	if collectErr == nil {
		if err := r.store.CompleteTask(ctx, task.ID, result, "", attempts); err != nil && r.logger != nil {
			r.logger.Error(ctx, "complete_task failed", err, map[string]any{"task_id": task.ID})
		}
		if r.logger != nil {
			r.logger.LogTaskOutcome(ctx, task.ID, task.Kind, string(model.TaskStatusCompleted), attempts, nil)
		}
		return
	}

	if attempts >= task.MaxAttempts {
		if err := r.store.CompleteTask(ctx, task.ID, nil, collectErr.Error(), attempts); err != nil && r.logger != nil {
			r.logger.Error(ctx, "complete_task (failed) failed", err, map[string]any{"task_id": task.ID})
		}
		if r.logger != nil {
			r.logger.LogTaskOutcome(ctx, task.ID, task.Kind, string(model.TaskStatusFailed), attempts, collectErr)
		}
		return
	}

	notBefore := r.clock.Now().Add(resilience.Backoff(r.retryCfg, attempts-1))
	if err := r.store.RetryTask(ctx, task.ID, collectErr.Error(), attempts, notBefore); err != nil && r.logger != nil {
		r.logger.Error(ctx, "retry_task failed", err, map[string]any{"task_id": task.ID})
	}
	if r.logger != nil {
		r.logger.LogTaskOutcome(ctx, task.ID, task.Kind, string(model.TaskStatusRetry), attempts, collectErr)
	}
}

// execute resolves the task's cursor, runs the probe through the breaker and
// rate limiter, and hands each page of evidence to the pipeline.
func (r *Runtime) execute(ctx context.Context, task model.Task) (map[string]any, error) {
	if r.limiter != nil && !r.limiter.Allow(r.agent.TenantID, "api_call") {
		return nil, orcherrors.RateLimited(r.agent.TenantID, "api_call")
	}

	target := string(r.agent.Kind)
	var cb = noopBreaker
	if r.breakers != nil {
		cb = r.breakers.Get(r.agent.Kind, target).Execute
	}

	cursor, _ := task.Payload["cursor"].(string)
	collected := 0

	for {
		var (
			evidence []model.Evidence
			next     string
			done     bool
		)

		err := cb(ctx, func() error {
			var innerErr error
			evidence, next, done, innerErr = r.probe.Collect(ctx, cursor)
			return innerErr
		})
		if err != nil {
			return nil, err
		}

		for _, e := range evidence {
			if e.TenantID == "" {
				e.TenantID = r.agent.TenantID
			}
			if _, _, err := r.pipeline.Submit(ctx, e); err != nil && r.logger != nil {
				r.logger.Error(ctx, "pipeline submit failed", err, map[string]any{"agent_id": r.agent.ID})
			}
		}
		collected += len(evidence)
		cursor = next

		if done {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.stopCh:
			return nil, ctx.Err()
		default:
		}
	}

	return map[string]any{"collected": collected, "cursor": cursor}, nil
}

// noopBreaker runs fn directly, used when no breaker registry is wired
// (e.g. internal-only agents with nothing external to protect).
func noopBreaker(_ context.Context, fn func() error) error { return fn() }
