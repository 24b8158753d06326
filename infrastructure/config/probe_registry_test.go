package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProbeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "probes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProbeRegistryConfigFromPath(t *testing.T) {
	dir := t.TempDir()
	path := writeProbeYAML(t, dir, `
probes:
  AWS:
    enabled: true
    evidence_kinds: ["aws_iam_policies"]
    required_credentials: ["access_key_id"]
    default_cadence: "1h"
    concurrency_cap: 4
`)

	cfg, err := LoadProbeRegistryConfigFromPath(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, cfg.IsEnabled("AWS"))
	assert.Equal(t, 4, cfg.GetSettings("AWS").ConcurrencyCap)
}

func TestLoadProbeRegistryConfigFromPath_MissingConcurrencyCap(t *testing.T) {
	dir := t.TempDir()
	path := writeProbeYAML(t, dir, `
probes:
  AWS:
    enabled: true
`)

	_, err := LoadProbeRegistryConfigFromPath(path)
	assert.Error(t, err)
}

func TestLoadProbeRegistryConfigFromPath_MissingFile(t *testing.T) {
	_, err := LoadProbeRegistryConfigFromPath("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadProbeRegistryConfigOrDefault_FallsBack(t *testing.T) {
	cfg := LoadProbeRegistryConfigOrDefault()
	require.NotNil(t, cfg)
	assert.True(t, cfg.IsEnabled("AWS"))
}

func TestDefaultProbeRegistryConfig_CoversAllAgentKinds(t *testing.T) {
	cfg := DefaultProbeRegistryConfig()
	for _, kind := range []string{"AWS", "GCP", "AZURE", "GITHUB", "WORKSPACE", "GDPR", "TRUST_SCORE", "MONITOR", "OBSERVABILITY"} {
		settings := cfg.GetSettings(kind)
		require.NotNilf(t, settings, "missing settings for %s", kind)
		assert.Greater(t, settings.ConcurrencyCap, 0)
	}
}
