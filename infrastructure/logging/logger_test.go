package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsInvalidLevel(t *testing.T) {
	l := New("orchestrator", "not-a-level", "json")
	assert.Equal(t, "orchestrator", l.service)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestLogger_WithContext_PropagatesFields(t *testing.T) {
	l := New("orchestrator", "debug", "json")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithTenantID(ctx, "tenant-1")
	ctx = WithAgentID(ctx, "agent-1")

	l.WithContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "trace-1")
	assert.Contains(t, out, "tenant-1")
	assert.Contains(t, out, "agent-1")
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", GetTraceID(ctx))
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestTenantIDRoundTrip(t *testing.T) {
	ctx := WithTenantID(context.Background(), "tenant-9")
	assert.Equal(t, "tenant-9", GetTenantID(ctx))
}

func TestAgentIDRoundTrip(t *testing.T) {
	ctx := WithAgentID(context.Background(), "agent-9")
	assert.Equal(t, "agent-9", GetAgentID(ctx))
}

func TestNewTraceID_Unique(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	require.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestLogAgentTransition(t *testing.T) {
	l := New("orchestrator", "info", "json")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.LogAgentTransition(context.Background(), "agent-1", "RUNNING", "DEGRADED")

	out := buf.String()
	assert.Contains(t, out, "agent state transition")
	assert.Contains(t, out, "DEGRADED")
}

func TestLogEvidenceIngested(t *testing.T) {
	l := New("orchestrator", "info", "text")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.LogEvidenceIngested(context.Background(), "ev-1", "t1", "aws_iam_policies", true)

	out := buf.String()
	assert.Contains(t, out, "evidence ingested")
	assert.Contains(t, out, "duplicate=true")
}
