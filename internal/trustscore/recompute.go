package trustscore

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/logging"
	"github.com/R3E-Network/compliance-orchestrator/internal/bus"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// DebounceWindow is spec §4.11's minimum spacing between two recomputes of
// the same tenant's TrustScore.
const DebounceWindow = 10 * time.Second

// RecomputeTopic is the MessageBus routing key evidence.new notifications
// are published to (pipeline.EvidenceNewTopic).
const RecomputeTopic = model.AgentKindTrustScore

// Recomputer subscribes to evidence.new notifications and keeps each
// tenant's persisted TrustScore current, debounced per tenant: the first
// notification of a burst recomputes at once and the rest coalesce into one
// deferred recompute, not one per item.
type Recomputer struct {
	engine *Engine
	store  store.Store
	bus    bus.Bus
	logger *logging.Logger
	clock  ids.Clock

	mu       sync.Mutex
	lastRun  map[string]time.Time
	pending  map[string]bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRecomputer constructs a Recomputer. clock may be nil (defaults to the
// system clock).
func NewRecomputer(engine *Engine, s store.Store, b bus.Bus, logger *logging.Logger, clock ids.Clock) *Recomputer {
	if clock == nil {
		clock = ids.SystemClock{}
	}
	return &Recomputer{
		engine:  engine,
		store:   s,
		bus:     b,
		logger:  logger,
		clock:   clock,
		lastRun: make(map[string]time.Time),
		pending: make(map[string]bool),
		stopCh:  make(chan struct{}),
	}
}

// Start subscribes to RecomputeTopic and processes notifications until ctx
// is cancelled or Stop is called.
func (r *Recomputer) Start(ctx context.Context) error {
	msgs, err := r.bus.Subscribe(ctx, RecomputeTopic)
	if err != nil {
		return err
	}

	r.wg.Add(1)
	go r.loop(ctx, msgs)
	return nil
}

// Stop halts the subscriber loop and waits for it to exit.
func (r *Recomputer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Recomputer) loop(ctx context.Context, msgs <-chan bus.Message) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			r.handle(ctx, msg)
		}
	}
}

// handle debounces per tenant: if a recompute already ran for this tenant
// within DebounceWindow, the notification is coalesced into a single
// deferred recompute rather than dropped.
func (r *Recomputer) handle(ctx context.Context, msg bus.Message) {
	if msg.TenantID == "" {
		return
	}

	now := r.clock.Now()
	r.mu.Lock()
	last, seen := r.lastRun[msg.TenantID]
	due := !seen || now.Sub(last) >= DebounceWindow
	if !due {
		if !r.pending[msg.TenantID] {
			r.pending[msg.TenantID] = true
			delay := DebounceWindow - now.Sub(last)
			r.wg.Add(1)
			go r.deferredRecompute(ctx, msg.TenantID, delay)
		}
		r.mu.Unlock()
		return
	}
	r.lastRun[msg.TenantID] = now
	r.mu.Unlock()

	r.recompute(ctx, msg.TenantID)
}

func (r *Recomputer) deferredRecompute(ctx context.Context, tenantID string, delay time.Duration) {
	defer r.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-r.stopCh:
		return
	case <-ctx.Done():
		return
	}

	r.mu.Lock()
	r.pending[tenantID] = false
	r.lastRun[tenantID] = r.clock.Now()
	r.mu.Unlock()

	r.recompute(ctx, tenantID)
}

func (r *Recomputer) recompute(ctx context.Context, tenantID string) {
	evidence, err := r.store.GetTrustInputs(ctx, tenantID)
	if err != nil {
		if r.logger != nil {
			r.logger.Error(ctx, "trust score recompute: load inputs failed", err, map[string]any{"tenant_id": tenantID})
		}
		return
	}

	score := r.engine.Compute(tenantID, evidence, r.clock.Now())
	if err := r.store.PutTrustScore(ctx, score); err != nil {
		if r.logger != nil {
			r.logger.Error(ctx, "trust score recompute: persist failed", err, map[string]any{"tenant_id": tenantID})
		}
		return
	}

	if r.logger != nil {
		r.logger.Info(ctx, "trust score recomputed", map[string]any{
			"tenant_id": tenantID,
			"overall":   score.Overall,
			"grade":     string(score.Grade),
		})
	}
}
