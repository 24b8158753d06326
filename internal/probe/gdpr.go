package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// GDPRMetadata is the registry entry for AgentKindGDPR.
func GDPRMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindGDPR,
		EvidenceKinds:       []string{"gdpr_ropa"},
		RequiredCredentials: []string{"processing_activities"},
		DefaultCadence:      24 * time.Hour,
		DefaultConcurrency:  1,
	}
}

// ProcessingActivity is one tenant-declared data-processing activity, the
// Go shape of original_source's DataProcessingActivity dataclass.
type ProcessingActivity struct {
	Name                string
	ProcessingPurpose    string
	LegalBasis           string
	DataCategories       []string
	RetentionPeriod      string
	CrossBorderTransfer  bool
}

// GDPRProbe is not a remote API probe: it synthesizes Records-of-Processing-
// Activities (Article 30) evidence from tenant-supplied configuration,
// grounded on GDPRComplianceAgent.py's generate_ropa_records (spec §3
// supplement, SPEC_FULL §4.16).
type GDPRProbe struct {
	tenantID   string
	activities []ProcessingActivity
	clock      ids.Clock
}

// NewGDPRProbe builds a GDPRProbe from config's declared processing
// activities.
func NewGDPRProbe(config map[string]any) (Probe, error) {
	raw, ok := config["processing_activities"].([]ProcessingActivity)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("gdpr probe: processing_activities must be a non-empty []ProcessingActivity")
	}
	tenantID, _ := config["tenant_id"].(string)
	return &GDPRProbe{tenantID: tenantID, activities: raw, clock: ids.SystemClock{}}, nil
}

// Collect emits one gdpr_ropa Evidence row per processing activity, done on
// the first call since the full set is always known (config-driven, not
// paginated over a remote API).
func (p *GDPRProbe) Collect(ctx context.Context, cursor string) ([]model.Evidence, string, bool, error) {
	if cursor == "done" {
		return nil, "", true, nil
	}
	select {
	case <-ctx.Done():
		return nil, cursor, false, ctx.Err()
	default:
	}

	crossBorderCount := 0
	evidence := make([]model.Evidence, 0, len(p.activities))
	for _, a := range p.activities {
		if a.CrossBorderTransfer {
			crossBorderCount++
		}
		evidence = append(evidence, model.Evidence{
			TenantID:    p.tenantID,
			Kind:        "gdpr_ropa",
			Source:      model.AgentKindGDPR,
			ResourceRef: a.Name,
			CollectedAt: p.clock.Now(),
			Frameworks:  []model.Framework{model.FrameworkGDPR},
			Data: model.EvidencePayload{Kind: "gdpr_ropa", Payload: map[string]any{
				"processing_purpose":   a.ProcessingPurpose,
				"legal_basis":          a.LegalBasis,
				"data_categories":      a.DataCategories,
				"retention_period":     a.RetentionPeriod,
				"cross_border_transfer": a.CrossBorderTransfer,
			}},
		})
	}

	return evidence, "done", true, nil
}

func (p *GDPRProbe) Healthcheck(_ context.Context) (bool, time.Duration, string) {
	return true, 0, fmt.Sprintf("%d processing activities configured", len(p.activities))
}

var _ Probe = (*GDPRProbe)(nil)
