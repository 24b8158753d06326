package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRegistry() *ProbeRegistryConfig {
	return &ProbeRegistryConfig{
		Probes: map[string]*ProbeSettings{
			"AWS":  {Enabled: true, ConcurrencyCap: 4},
			"GCP":  {Enabled: false, ConcurrencyCap: 2},
			"GDPR": {Enabled: true, ConcurrencyCap: 1},
		},
	}
}

func TestIsEnabled(t *testing.T) {
	cfg := sampleRegistry()
	assert.True(t, cfg.IsEnabled("AWS"))
	assert.False(t, cfg.IsEnabled("GCP"))
	assert.False(t, cfg.IsEnabled("MISSING"))
}

func TestIsEnabled_NilConfig(t *testing.T) {
	var cfg *ProbeRegistryConfig
	assert.False(t, cfg.IsEnabled("AWS"))
}

func TestGetSettings(t *testing.T) {
	cfg := sampleRegistry()
	assert.NotNil(t, cfg.GetSettings("AWS"))
	assert.Nil(t, cfg.GetSettings("MISSING"))
}

func TestEnabledKinds(t *testing.T) {
	cfg := sampleRegistry()
	enabled := cfg.EnabledKinds()
	assert.ElementsMatch(t, []string{"AWS", "GDPR"}, enabled)
}

func TestDisabledKinds(t *testing.T) {
	cfg := sampleRegistry()
	disabled := cfg.DisabledKinds()
	assert.ElementsMatch(t, []string{"GCP"}, disabled)
}
