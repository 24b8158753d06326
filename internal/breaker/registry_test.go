package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/infrastructure/resilience"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

func TestRegistry_GetReturnsSameInstanceForSamePair(t *testing.T) {
	r := NewRegistry(resilience.DefaultConfig())

	a := r.Get(model.AgentKindAWS, "iam")
	b := r.Get(model.AgentKindAWS, "iam")
	assert.Same(t, a, b)

	c := r.Get(model.AgentKindAWS, "s3")
	assert.NotSame(t, a, c)
}

func TestRegistry_OpensIndependentlyPerTarget(t *testing.T) {
	cfg := resilience.DefaultConfig()
	cfg.Threshold = 1
	r := NewRegistry(cfg)

	iam := r.Get(model.AgentKindAWS, "iam")
	s3 := r.Get(model.AgentKindAWS, "s3")

	err := iam.Execute(context.Background(), func() error { return errors.New("boom") })
	require.Error(t, err)

	assert.Equal(t, resilience.StateOpen, iam.State())
	assert.Equal(t, resilience.StateClosed, s3.State())
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(resilience.DefaultConfig())
	r.Get(model.AgentKindGCP, "compute")

	snap := r.Snapshot()
	assert.Contains(t, snap, "GCP:compute")
}
