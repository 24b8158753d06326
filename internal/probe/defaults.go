package probe

import (
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// Dependencies bundles the shared infrastructure every reference probe
// constructor needs.
type Dependencies struct {
	Breaker *breaker.Registry
	Limiter *ratelimit.Limiter
	Store   store.Store
}

// DefaultRegistry builds a Registry pre-populated with every reference
// probe from SPEC_FULL §4.16: AWS, GCP, Azure, GitHub, Workspace, GDPR, and
// the internal TrustScore/Monitor/Observability agents.
func DefaultRegistry(deps Dependencies) *Registry {
	r := NewRegistry()

	r.Register(Registration{
		Metadata: AWSMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewAWSProbe(config, deps.Breaker, deps.Limiter)
		},
	})
	r.Register(Registration{
		Metadata: GCPMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewGCPProbe(config, deps.Breaker, deps.Limiter)
		},
	})
	r.Register(Registration{
		Metadata: AzureMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewAzureProbe(config, deps.Breaker, deps.Limiter)
		},
	})
	r.Register(Registration{
		Metadata: GitHubMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewGitHubProbe(config, deps.Breaker, deps.Limiter)
		},
	})
	r.Register(Registration{
		Metadata: WorkspaceMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewWorkspaceProbe(config, deps.Breaker, deps.Limiter)
		},
	})
	r.Register(Registration{
		Metadata: GDPRMetadata(),
		New:      NewGDPRProbe,
	})
	r.Register(Registration{
		Metadata: TrustScoreMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewTrustScoreProbe(config, deps.Store)
		},
	})
	r.Register(Registration{
		Metadata: MonitorMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewMonitorProbe(config, deps.Store)
		},
	})
	r.Register(Registration{
		Metadata: ObservabilityMetadata(),
		New: func(config map[string]any) (Probe, error) {
			return NewObservabilityProbe(config, deps.Store)
		},
	})

	return r
}
