package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/ratelimit"
	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/breaker"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
	"github.com/R3E-Network/compliance-orchestrator/internal/store/memorystore"
)

func testDeps() Dependencies {
	return Dependencies{
		Breaker: breaker.NewRegistry(resilience.DefaultConfig()),
		Limiter: ratelimit.New(nil),
		Store:   memorystore.New(),
	}
}

func TestRegistry_RefusesUnregisteredKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.New(model.AgentKindAWS, map[string]any{})
	require.Error(t, err)
}

func TestRegistry_RefusesMissingCredentials(t *testing.T) {
	r := DefaultRegistry(testDeps())
	_, err := r.New(model.AgentKindAWS, map[string]any{})
	require.Error(t, err)
}

func TestAWSProbe_CollectPagesThroughKinds(t *testing.T) {
	deps := testDeps()
	r := DefaultRegistry(deps)

	p, err := r.New(model.AgentKindAWS, map[string]any{
		"access_key_id": "x", "secret_access_key": "y", "region": "us-east-1", "tenant_id": "t-1",
	})
	require.NoError(t, err)

	ctx := context.Background()
	cursor := ""
	var kinds []string
	for {
		evidence, next, done, err := p.Collect(ctx, cursor)
		require.NoError(t, err)
		for _, e := range evidence {
			kinds = append(kinds, e.Kind)
		}
		if done {
			break
		}
		cursor = next
	}
	assert.ElementsMatch(t, awsEvidenceKinds, kinds)
}

func TestGitHubProbe_Pagination(t *testing.T) {
	deps := testDeps()
	r := DefaultRegistry(deps)

	p, err := r.New(model.AgentKindGitHub, map[string]any{
		"access_token": "x", "organization": "acme", "tenant_id": "t-1", "repo_count": 250,
	})
	require.NoError(t, err)

	ctx := context.Background()
	cursor := ""
	total := 0
	pages := 0
	for {
		evidence, next, done, err := p.Collect(ctx, cursor)
		require.NoError(t, err)
		total += len(evidence)
		pages++
		if done {
			break
		}
		cursor = next
		require.Less(t, pages, 10, "pagination should terminate")
	}
	assert.Equal(t, 250, total)
	assert.Equal(t, 3, pages) // 250 repos / 100 per page = 3 pages
}

func TestGDPRProbe_EmitsRopaPerActivity(t *testing.T) {
	activities := []ProcessingActivity{
		{Name: "payroll", ProcessingPurpose: "employment", LegalBasis: "contract", RetentionPeriod: "7 years"},
		{Name: "marketing", ProcessingPurpose: "marketing", LegalBasis: "consent", RetentionPeriod: "2 years", CrossBorderTransfer: true},
	}
	p, err := NewGDPRProbe(map[string]any{"tenant_id": "t-1", "processing_activities": activities})
	require.NoError(t, err)

	evidence, _, done, err := p.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, evidence, 2)
	assert.Equal(t, "gdpr_ropa", evidence[0].Kind)
	assert.True(t, evidence[1].Data.Payload["cross_border_transfer"].(bool))
}

func TestMonitorProbe_SnapshotsHeartbeats(t *testing.T) {
	deps := testDeps()
	ctx := context.Background()
	require.NoError(t, deps.Store.PutAgent(ctx, model.Agent{ID: "a-1", TenantID: "t-1", Status: model.AgentStatusRunning}))

	p, err := NewMonitorProbe(map[string]any{"tenant_id": "t-1"}, deps.Store)
	require.NoError(t, err)

	evidence, _, done, err := p.Collect(ctx, "")
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, evidence, 1)
	assert.Equal(t, "a-1", evidence[0].ResourceRef)
}
