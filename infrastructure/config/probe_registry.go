package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadProbeRegistryConfig loads the probe registry configuration from
// config/probes.yaml.
func LoadProbeRegistryConfig() (*ProbeRegistryConfig, error) {
	return LoadProbeRegistryConfigFromPath(filepath.Join("config", "probes.yaml"))
}

// LoadProbeRegistryConfigFromPath loads the probe registry configuration from
// a specific path.
func LoadProbeRegistryConfigFromPath(path string) (*ProbeRegistryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe registry config: %w", err)
	}

	var cfg ProbeRegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse probe registry config: %w", err)
	}

	for kind, settings := range cfg.Probes {
		if settings.ConcurrencyCap <= 0 {
			return nil, fmt.Errorf("probe %s: concurrency_cap must be positive", kind)
		}
	}

	return &cfg, nil
}

// LoadProbeRegistryConfigOrDefault loads the probe registry config, falling
// back to DefaultProbeRegistryConfig if the file is absent.
func LoadProbeRegistryConfigOrDefault() *ProbeRegistryConfig {
	cfg, err := LoadProbeRegistryConfig()
	if err != nil {
		return DefaultProbeRegistryConfig()
	}
	return cfg
}

// DefaultProbeRegistryConfig returns the built-in probe registry covering the
// reference CloudProbe implementations (spec §4.16).
func DefaultProbeRegistryConfig() *ProbeRegistryConfig {
	return &ProbeRegistryConfig{
		Probes: map[string]*ProbeSettings{
			"AWS": {
				Enabled:             true,
				EvidenceKinds:       []string{"aws_iam_policies", "aws_s3_buckets", "aws_cloudtrail"},
				RequiredCredentials: []string{"access_key_id", "secret_access_key", "region"},
				DefaultCadence:      "1h",
				ConcurrencyCap:      4,
				Description:         "AWS IAM/S3/CloudTrail evidence collector",
			},
			"GCP": {
				Enabled:             true,
				EvidenceKinds:       []string{"gcp_iam_policies", "gcp_storage_buckets"},
				RequiredCredentials: []string{"service_account_json", "project_id"},
				DefaultCadence:      "1h",
				ConcurrencyCap:      4,
				Description:         "GCP IAM/Storage evidence collector",
			},
			"AZURE": {
				Enabled:             true,
				EvidenceKinds:       []string{"azure_rbac_assignments", "azure_storage_accounts"},
				RequiredCredentials: []string{"tenant_id", "client_id", "client_secret"},
				DefaultCadence:      "1h",
				ConcurrencyCap:      4,
				Description:         "Azure RBAC/Storage evidence collector",
			},
			"GITHUB": {
				Enabled:             true,
				EvidenceKinds:       []string{"github_branch_protection", "github_org_members"},
				RequiredCredentials: []string{"installation_token", "org"},
				DefaultCadence:      "6h",
				ConcurrencyCap:      2,
				Description:         "GitHub org/repo evidence collector",
			},
			"WORKSPACE": {
				Enabled:             true,
				EvidenceKinds:       []string{"workspace_user_audit", "workspace_drive_sharing"},
				RequiredCredentials: []string{"domain", "admin_email"},
				DefaultCadence:      "6h",
				ConcurrencyCap:      2,
				Description:         "Google Workspace admin evidence collector",
			},
			"GDPR": {
				Enabled:             true,
				EvidenceKinds:       []string{"gdpr_ropa"},
				RequiredCredentials: []string{},
				DefaultCadence:      "24h",
				ConcurrencyCap:      1,
				Description:         "Records of Processing Activities synthesizer",
			},
			"TRUST_SCORE": {
				Enabled:             true,
				EvidenceKinds:       []string{},
				RequiredCredentials: []string{},
				DefaultCadence:      "10m",
				ConcurrencyCap:      1,
				Description:         "Internal trust score recomputation agent",
			},
			"MONITOR": {
				Enabled:             true,
				EvidenceKinds:       []string{},
				RequiredCredentials: []string{},
				DefaultCadence:      "30s",
				ConcurrencyCap:      1,
				Description:         "Internal heartbeat/SLA monitor agent",
			},
			"OBSERVABILITY": {
				Enabled:             true,
				EvidenceKinds:       []string{"observability_alert_rules"},
				RequiredCredentials: []string{"endpoint"},
				DefaultCadence:      "1h",
				ConcurrencyCap:      2,
				Description:         "Observability/alerting configuration evidence collector",
			},
		},
	}
}
