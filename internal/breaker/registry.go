// Package breaker keys infrastructure/resilience.CircuitBreaker instances by
// the (agent_kind, target) pair spec §4.3 requires, lazily constructing one
// per pair the first time it is needed.
package breaker

import (
	"fmt"
	"sync"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// Registry hands out one CircuitBreaker per (agent_kind, target) pair.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
	cfg      resilience.Config
}

// NewRegistry constructs a Registry; every breaker it creates uses cfg.
func NewRegistry(cfg resilience.Config) *Registry {
	return &Registry{
		breakers: make(map[string]*resilience.CircuitBreaker),
		cfg:      cfg,
	}
}

func key(kind model.AgentKind, target string) string {
	return fmt.Sprintf("%s:%s", kind, target)
}

// Get returns the breaker for (kind, target), creating it on first use.
func (r *Registry) Get(kind model.AgentKind, target string) *resilience.CircuitBreaker {
	k := key(kind, target)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[k]; ok {
		return cb
	}
	cb := resilience.New(k, r.cfg)
	r.breakers[k] = cb
	return cb
}

// Snapshot returns the current state of every breaker created so far, keyed
// by "(agent_kind):(target)", for health/metrics reporting.
func (r *Registry) Snapshot() map[string]resilience.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]resilience.State, len(r.breakers))
	for k, cb := range r.breakers {
		out[k] = cb.State()
	}
	return out
}
