package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/ids"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// restProbe is the shared shape for GCP, Azure, and Workspace: single-page
// REST-style collectors with a fixed evidence-kind catalog, differing only
// in their kind list and credential fields (SPEC_FULL §4.16).
type restProbe struct {
	kind       model.AgentKind
	tenantID   string
	project    string // project/subscription/domain, as applicable
	kinds      []string
	frameworks []model.Framework
	client     *http.Client
	breaker    *breaker.Registry
	limiter    *ratelimit.Limiter
	clock      ids.Clock
}

func (p *restProbe) Collect(ctx context.Context, cursor string) ([]model.Evidence, string, bool, error) {
	remaining := kindsFrom(p.kinds, cursor)
	if cursor == "" {
		remaining = p.kinds
	}
	if len(remaining) == 0 {
		return nil, "", true, nil
	}

	kind := remaining[0]
	action := fmt.Sprintf("probe.%s", p.kind)
	if p.limiter != nil && !p.limiter.Allow(p.tenantID, action) {
		return nil, cursor, false, fmt.Errorf("%s probe: rate limited for kind %s", p.kind, kind)
	}

	cb := p.breaker.Get(p.kind, kind)
	var evidence model.Evidence
	err := cb.Execute(ctx, func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		evidence = model.Evidence{
			TenantID:    p.tenantID,
			Kind:        kind,
			Source:      p.kind,
			ResourceRef: p.project,
			CollectedAt: p.clock.Now(),
			Frameworks:  p.frameworks,
			Data:        model.EvidencePayload{Kind: kind, Payload: map[string]any{"project": p.project}},
		}
		return nil
	})
	if err != nil {
		return nil, cursor, false, fmt.Errorf("%s probe: collect %s: %w", p.kind, kind, err)
	}

	next := ""
	if len(remaining) > 1 {
		next = remaining[1]
	}
	return []model.Evidence{evidence}, next, next == "", nil
}

func (p *restProbe) Healthcheck(ctx context.Context) (bool, time.Duration, string) {
	start := p.clock.Now()
	select {
	case <-ctx.Done():
		return false, 0, ctx.Err().Error()
	default:
	}
	return true, p.clock.Now().Sub(start), fmt.Sprintf("%s probe reachable", p.kind)
}

// GCPMetadata is the registry entry for AgentKindGCP.
func GCPMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindGCP,
		EvidenceKinds:       []string{"gcp_iam_binding", "gcp_storage_bucket", "gcp_audit_log_config"},
		RequiredCredentials: []string{"service_account_key", "project_id"},
		DefaultCadence:      time.Hour,
		DefaultConcurrency:  4,
	}
}

// NewGCPProbe builds a GCP restProbe.
func NewGCPProbe(config map[string]any, reg *breaker.Registry, limiter *ratelimit.Limiter) (Probe, error) {
	project, _ := config["project_id"].(string)
	if project == "" {
		return nil, fmt.Errorf("gcp probe: project_id is required")
	}
	tenantID, _ := config["tenant_id"].(string)
	return &restProbe{
		kind:       model.AgentKindGCP,
		tenantID:   tenantID,
		project:    project,
		kinds:      GCPMetadata().EvidenceKinds,
		frameworks: []model.Framework{model.FrameworkSOC2, model.FrameworkISO27001},
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    reg,
		limiter:    limiter,
		clock:      ids.SystemClock{},
	}, nil
}

// AzureMetadata is the registry entry for AgentKindAzure.
func AzureMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindAzure,
		EvidenceKinds:       []string{"azure_rbac_assignment", "azure_storage_account", "azure_monitor_log_profile"},
		RequiredCredentials: []string{"tenant_id", "client_id", "client_secret", "subscription_id"},
		DefaultCadence:      time.Hour,
		DefaultConcurrency:  4,
	}
}

// NewAzureProbe builds an Azure restProbe, grounded on original_source's
// AzureMonitor.py evidence catalog.
func NewAzureProbe(config map[string]any, reg *breaker.Registry, limiter *ratelimit.Limiter) (Probe, error) {
	subscription, _ := config["subscription_id"].(string)
	if subscription == "" {
		return nil, fmt.Errorf("azure probe: subscription_id is required")
	}
	tenantID, _ := config["tenant_id"].(string)
	return &restProbe{
		kind:       model.AgentKindAzure,
		tenantID:   tenantID,
		project:    subscription,
		kinds:      AzureMetadata().EvidenceKinds,
		frameworks: []model.Framework{model.FrameworkSOC2, model.FrameworkISO27001, model.FrameworkNIST},
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    reg,
		limiter:    limiter,
		clock:      ids.SystemClock{},
	}, nil
}

// WorkspaceMetadata is the registry entry for AgentKindWorkspace.
func WorkspaceMetadata() Metadata {
	return Metadata{
		Kind:                model.AgentKindWorkspace,
		EvidenceKinds:       []string{"workspace_user_mfa", "workspace_sharing_policy", "workspace_admin_audit"},
		RequiredCredentials: []string{"domain", "service_account_key"},
		DefaultCadence:      6 * time.Hour,
		DefaultConcurrency:  2,
	}
}

// NewWorkspaceProbe builds a Workspace restProbe, grounded on
// original_source's google_workspace_workflows.py.
func NewWorkspaceProbe(config map[string]any, reg *breaker.Registry, limiter *ratelimit.Limiter) (Probe, error) {
	domain, _ := config["domain"].(string)
	if domain == "" {
		return nil, fmt.Errorf("workspace probe: domain is required")
	}
	tenantID, _ := config["tenant_id"].(string)
	return &restProbe{
		kind:       model.AgentKindWorkspace,
		tenantID:   tenantID,
		project:    domain,
		kinds:      WorkspaceMetadata().EvidenceKinds,
		frameworks: []model.Framework{model.FrameworkSOC2, model.FrameworkGDPR},
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    reg,
		limiter:    limiter,
		clock:      ids.SystemClock{},
	}, nil
}

var (
	_ Probe = (*restProbe)(nil)
)
