package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestNewWithRegistry_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("orchestrator", reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestRecordAgentTransition(t *testing.T) {
	m := NewWithRegistry("orchestrator", prometheus.NewRegistry())
	m.RecordAgentTransition("orchestrator", "RUNNING", "DEGRADED")
	c := m.AgentStateTransitionsTotal.WithLabelValues("orchestrator", "RUNNING", "DEGRADED")
	require.Equal(t, float64(1), counterValue(t, c))
}

func TestRecordTaskOutcome(t *testing.T) {
	m := NewWithRegistry("orchestrator", prometheus.NewRegistry())
	m.RecordTaskOutcome("orchestrator", "aws", "completed", 2*time.Second)
	c := m.TaskAttemptsTotal.WithLabelValues("orchestrator", "completed")
	require.Equal(t, float64(1), counterValue(t, c))
}

func TestRecordEvidenceIngested_DedupLabel(t *testing.T) {
	m := NewWithRegistry("orchestrator", prometheus.NewRegistry())
	m.RecordEvidenceIngested("orchestrator", "t1", "aws_iam_policies", true)
	c := m.EvidenceIngestedTotal.WithLabelValues("orchestrator", "t1", "aws_iam_policies", "true")
	require.Equal(t, float64(1), counterValue(t, c))
}

func TestSetBreakerState(t *testing.T) {
	m := NewWithRegistry("orchestrator", prometheus.NewRegistry())
	m.SetBreakerState("orchestrator", "aws.s3", 2)
	g := m.BreakerState.WithLabelValues("orchestrator", "aws.s3")
	require.Equal(t, float64(2), gaugeValue(t, g))
}

func TestSetTrustScore(t *testing.T) {
	m := NewWithRegistry("orchestrator", prometheus.NewRegistry())
	m.SetTrustScore("orchestrator", "t1", 92.5)
	g := m.TrustScore.WithLabelValues("orchestrator", "t1")
	require.Equal(t, 92.5, gaugeValue(t, g))
}
