package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store"
)

// TrustScoreMetadata is the registry entry for AgentKindTrustScore: an
// internal agent whose "probe" reads the Store instead of a network
// (SPEC_FULL §4.16), driving periodic trust-score recomputation.
func TrustScoreMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindTrustScore,
		EvidenceKinds:       []string{"trust_score_snapshot"},
		RequiredCredentials: []string{"tenant_id"},
		DefaultCadence:      15 * time.Minute,
		DefaultConcurrency:  1,
	}
}

// TrustScoreProbe reads GetTrustInputs and emits a single summary Evidence
// row recording that a recomputation is due; the actual scoring is
// internal/trustscore's responsibility, triggered by the EvidencePipeline.
type TrustScoreProbe struct {
	tenantID string
	store    store.Store
	clock    ids.Clock
}

// NewTrustScoreProbe builds a TrustScoreProbe.
func NewTrustScoreProbe(config map[string]any, s store.Store) (Probe, error) {
	tenantID, _ := config["tenant_id"].(string)
	if tenantID == "" {
		return nil, fmt.Errorf("trustscore probe: tenant_id is required")
	}
	return &TrustScoreProbe{tenantID: tenantID, store: s, clock: ids.SystemClock{}}, nil
}

func (p *TrustScoreProbe) Collect(ctx context.Context, cursor string) ([]model.Evidence, string, bool, error) {
	if cursor == "done" {
		return nil, "", true, nil
	}
	inputs, err := p.store.GetTrustInputs(ctx, p.tenantID)
	if err != nil {
		return nil, cursor, false, fmt.Errorf("trustscore probe: get trust inputs: %w", err)
	}
	e := model.Evidence{
		TenantID:    p.tenantID,
		Kind:        "trust_score_snapshot",
		Source:      model.AgentKindTrustScore,
		CollectedAt: p.clock.Now(),
		Data: model.EvidencePayload{Kind: "trust_score_snapshot", Payload: map[string]any{
			"evidence_count": len(inputs),
		}},
	}
	return []model.Evidence{e}, "done", true, nil
}

func (p *TrustScoreProbe) Healthcheck(ctx context.Context) (bool, time.Duration, string) {
	start := p.clock.Now()
	if _, err := p.store.GetTrustInputs(ctx, p.tenantID); err != nil {
		return false, p.clock.Now().Sub(start), err.Error()
	}
	return true, p.clock.Now().Sub(start), "store reachable"
}

// MonitorMetadata is the registry entry for AgentKindMonitor: inspects other
// agents' heartbeat freshness (SPEC_FULL §4.16), mirroring the Orchestrator's
// own health_loop but exposed as evidence for audit trails.
func MonitorMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindMonitor,
		EvidenceKinds:       []string{"agent_heartbeat_snapshot"},
		RequiredCredentials: []string{"tenant_id"},
		DefaultCadence:      30 * time.Second,
		DefaultConcurrency:  1,
	}
}

// MonitorProbe snapshots every agent's heartbeat age for a tenant.
type MonitorProbe struct {
	tenantID string
	store    store.Store
	clock    ids.Clock
}

// NewMonitorProbe builds a MonitorProbe.
func NewMonitorProbe(config map[string]any, s store.Store) (Probe, error) {
	tenantID, _ := config["tenant_id"].(string)
	if tenantID == "" {
		return nil, fmt.Errorf("monitor probe: tenant_id is required")
	}
	return &MonitorProbe{tenantID: tenantID, store: s, clock: ids.SystemClock{}}, nil
}

func (p *MonitorProbe) Collect(ctx context.Context, cursor string) ([]model.Evidence, string, bool, error) {
	if cursor == "done" {
		return nil, "", true, nil
	}
	agents, err := p.store.ListAgents(ctx, store.AgentFilter{TenantID: p.tenantID})
	if err != nil {
		return nil, cursor, false, fmt.Errorf("monitor probe: list agents: %w", err)
	}

	now := p.clock.Now()
	evidence := make([]model.Evidence, 0, len(agents))
	for _, a := range agents {
		ageSeconds := now.Sub(a.LastHeartbeatAt).Seconds()
		evidence = append(evidence, model.Evidence{
			TenantID:    p.tenantID,
			Kind:        "agent_heartbeat_snapshot",
			Source:      model.AgentKindMonitor,
			ResourceRef: a.ID,
			CollectedAt: now,
			Data: model.EvidencePayload{Kind: "agent_heartbeat_snapshot", Payload: map[string]any{
				"agent_status":        string(a.Status),
				"heartbeat_age_secs":  ageSeconds,
			}},
		})
	}
	return evidence, "done", true, nil
}

func (p *MonitorProbe) Healthcheck(ctx context.Context) (bool, time.Duration, string) {
	start := p.clock.Now()
	if _, err := p.store.ListAgents(ctx, store.AgentFilter{TenantID: p.tenantID}); err != nil {
		return false, p.clock.Now().Sub(start), err.Error()
	}
	return true, p.clock.Now().Sub(start), "store reachable"
}

// ObservabilityMetadata is the registry entry for AgentKindObservability:
// records the tenant's validated-evidence count from the Store as SLA
// evidence.
func ObservabilityMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindObservability,
		EvidenceKinds:       []string{"task_throughput_snapshot"},
		RequiredCredentials: []string{"tenant_id"},
		DefaultCadence:      5 * time.Minute,
		DefaultConcurrency:  1,
	}
}

// ObservabilityProbe emits one task_throughput_snapshot carrying the count of
// the tenant's validated evidence (Store.GetTrustInputs), used by the
// TrustScoreEngine's operations pillar.
type ObservabilityProbe struct {
	tenantID string
	store    store.Store
	clock    ids.Clock
}

// NewObservabilityProbe builds an ObservabilityProbe.
func NewObservabilityProbe(config map[string]any, s store.Store) (Probe, error) {
	tenantID, _ := config["tenant_id"].(string)
	if tenantID == "" {
		return nil, fmt.Errorf("observability probe: tenant_id is required")
	}
	return &ObservabilityProbe{tenantID: tenantID, store: s, clock: ids.SystemClock{}}, nil
}

func (p *ObservabilityProbe) Collect(ctx context.Context, cursor string) ([]model.Evidence, string, bool, error) {
	if cursor == "done" {
		return nil, "", true, nil
	}
	inputs, err := p.store.GetTrustInputs(ctx, p.tenantID)
	if err != nil {
		return nil, cursor, false, fmt.Errorf("observability probe: get trust inputs: %w", err)
	}

	e := model.Evidence{
		TenantID:    p.tenantID,
		Kind:        "task_throughput_snapshot",
		Source:      model.AgentKindObservability,
		CollectedAt: p.clock.Now(),
		Data: model.EvidencePayload{Kind: "task_throughput_snapshot", Payload: map[string]any{
			"validated_evidence_count": len(inputs),
		}},
	}
	return []model.Evidence{e}, "done", true, nil
}

func (p *ObservabilityProbe) Healthcheck(ctx context.Context) (bool, time.Duration, string) {
	start := p.clock.Now()
	if _, err := p.store.GetTrustInputs(ctx, p.tenantID); err != nil {
		return false, p.clock.Now().Sub(start), err.Error()
	}
	return true, p.clock.Now().Sub(start), "store reachable"
}

var (
	_ Probe = (*TrustScoreProbe)(nil)
	_ Probe = (*MonitorProbe)(nil)
	_ Probe = (*ObservabilityProbe)(nil)
)
