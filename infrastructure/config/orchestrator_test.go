package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1*time.Second, cfg.Scheduler.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.StarvationThreshold)
	assert.Equal(t, 10*time.Second, cfg.Agent.HeartbeatInterval)
	assert.Equal(t, 2, cfg.Agent.HeartbeatMissToDegraded)
	assert.Equal(t, 3, cfg.Task.MaxAttempts)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.RecoveryTimeout)
	assert.Equal(t, 8, cfg.Pipeline.OutboxMaxRetries)
	assert.Equal(t, 0.70, cfg.Trust.AutomationBonusThreshold)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ORCH_BREAKER_THRESHOLD", "9")
	t.Setenv("ORCH_TASK_MAX_ATTEMPTS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Breaker.Threshold)
	assert.Equal(t, 5, cfg.Task.MaxAttempts)
}

func TestLoad_LoadsProbeRegistryFromPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/probes.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
probes:
  AWS:
    enabled: true
    concurrency_cap: 7
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.ProbeRegistry)
	assert.Equal(t, 7, cfg.ProbeRegistry.GetSettings("AWS").ConcurrencyCap)
}
