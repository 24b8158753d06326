// Package probe defines the CloudProbe contract (spec §4.5): pure I/O
// adapters that collect Evidence without ever writing to the Store or
// MessageBus directly, plus the static registry the Orchestrator consults
// before starting an agent.
package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// Probe is implemented once per cloud/kind (spec §4.5).
type Probe interface {
	// Collect returns a page of Evidence starting at cursor, the cursor to
	// resume from, and whether collection is done for this cycle. It must
	// respect ctx cancellation within 2x its own round-trip time.
	Collect(ctx context.Context, cursor string) (evidence []model.Evidence, nextCursor string, done bool, err error)
	// Healthcheck reports reachability without mutating any state.
	Healthcheck(ctx context.Context) (ok bool, latency time.Duration, detail string)
}

// Metadata is the registry's static description of a probe (spec §4.5).
type Metadata struct {
	Kind                 model.AgentKind
	EvidenceKinds        []string
	RequiredCredentials  []string
	DefaultCadence       time.Duration
	DefaultConcurrency   int
}

// Registration pairs a probe's static Metadata with its constructor.
type Registration struct {
	Metadata Metadata
	New      func(config map[string]any) (Probe, error)
}

// Registry holds one Registration per AgentKind. The Orchestrator refuses to
// start an agent whose kind is not registered (spec §4.5).
type Registry struct {
	mu   sync.RWMutex
	regs map[model.AgentKind]Registration
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[model.AgentKind]Registration)}
}

// Register adds or replaces the Registration for its Metadata.Kind.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[reg.Metadata.Kind] = reg
}

// Lookup returns the Registration for kind, or false if unregistered.
func (r *Registry) Lookup(kind model.AgentKind) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[kind]
	return reg, ok
}

// New validates config against the registered Metadata's required
// credentials and constructs a Probe for kind.
func (r *Registry) New(kind model.AgentKind, config map[string]any) (Probe, error) {
	reg, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("probe: agent kind %q is not registered", kind)
	}
	for _, field := range reg.Metadata.RequiredCredentials {
		if _, present := config[field]; !present {
			return nil, fmt.Errorf("probe: missing required credential field %q for kind %q", field, kind)
		}
	}
	return reg.New(config)
}

// Kinds returns every registered AgentKind.
func (r *Registry) Kinds() []model.AgentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.AgentKind, 0, len(r.regs))
	for k := range r.regs {
		out = append(out, k)
	}
	return out
}
