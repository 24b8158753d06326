package config

// ProbeSettings holds the static configuration for one CloudProbe, keyed by
// agent kind in ProbeRegistryConfig.Probes. The orchestrator does not
// consult it: agent creation and start are checked against the probe.Registry
// metadata in internal/probe.
type ProbeSettings struct {
	// Enabled determines whether agents of this kind may be created.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// EvidenceKinds lists the evidence kinds this probe can produce.
	EvidenceKinds []string `yaml:"evidence_kinds" json:"evidence_kinds"`

	// RequiredCredentials lists the credential fields expected in an Agent's
	// config map for this probe kind. The orchestrator's credential check
	// uses probe.Metadata.RequiredCredentials, not this list.
	RequiredCredentials []string `yaml:"required_credentials" json:"required_credentials"`

	// DefaultCadence is the default recurring-job interval for this probe
	// when no explicit schedule override is configured.
	DefaultCadence string `yaml:"default_cadence" json:"default_cadence"`

	// ConcurrencyCap bounds the worker pool size dedicated to this probe.
	ConcurrencyCap int `yaml:"concurrency_cap" json:"concurrency_cap"`

	// Description is a human-readable description shown in diagnostics.
	Description string `yaml:"description" json:"description"`

	// Extra holds any additional probe-specific configuration.
	Extra map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// ProbeRegistryConfig holds the static configuration for every registered
// CloudProbe kind.
type ProbeRegistryConfig struct {
	Probes map[string]*ProbeSettings `yaml:"probes" json:"probes"`
}

// IsEnabled reports whether a probe kind is enabled in the configuration.
// Returns false if the kind is not found.
func (c *ProbeRegistryConfig) IsEnabled(kind string) bool {
	if c == nil || c.Probes == nil {
		return false
	}
	settings, ok := c.Probes[kind]
	if !ok {
		return false
	}
	return settings.Enabled
}

// GetSettings returns the settings for a probe kind, or nil if not found.
func (c *ProbeRegistryConfig) GetSettings(kind string) *ProbeSettings {
	if c == nil || c.Probes == nil {
		return nil
	}
	return c.Probes[kind]
}

// EnabledKinds returns the agent kinds enabled in the configuration.
func (c *ProbeRegistryConfig) EnabledKinds() []string {
	if c == nil || c.Probes == nil {
		return nil
	}
	var enabled []string
	for kind, settings := range c.Probes {
		if settings.Enabled {
			enabled = append(enabled, kind)
		}
	}
	return enabled
}

// DisabledKinds returns the agent kinds disabled in the configuration.
func (c *ProbeRegistryConfig) DisabledKinds() []string {
	if c == nil || c.Probes == nil {
		return nil
	}
	var disabled []string
	for kind, settings := range c.Probes {
		if !settings.Enabled {
			disabled = append(disabled, kind)
		}
	}
	return disabled
}
