package compliance

import "github.com/R3E-Network/compliance-orchestrator/internal/model"

// DefaultRules returns the reference rule catalog exercising the evidence
// kinds the probe registry's reference implementations produce (SPEC_FULL
// §4.16), grounded on original_source's `_map_iam_to_controls` and
// `_calculate_compliance_score` style per-field checks.
func DefaultRules() []model.ComplianceRule {
	return []model.ComplianceRule{
		{
			ID:          "soc2-cc6.1-mfa",
			Framework:   model.FrameworkSOC2,
			ControlID:   "CC6.1",
			Severity:    model.SeverityHigh,
			AppliesTo:   []string{"aws_iam_policy"},
			Remediation: "Enforce MFA for all IAM users.",
			Check: func(e model.Evidence) (float64, []string) {
				ratio, _ := e.Data.Payload["mfa_enabled_ratio"].(float64)
				return ratio * 100, nil
			},
		},
		{
			ID:          "soc2-cc6.6-bucket-encryption",
			Framework:   model.FrameworkSOC2,
			ControlID:   "CC6.6",
			Severity:    model.SeverityCritical,
			AppliesTo:   []string{"aws_s3_bucket"},
			Remediation: "Enable default encryption on all S3 buckets.",
			Check: func(e model.Evidence) (float64, []string) {
				if enabled, _ := e.Data.Payload["encryption_enabled"].(bool); enabled {
					return 100, nil
				}
				return 0, []string{"bucket encryption disabled"}
			},
		},
		{
			ID:          "soc2-cc6.6-bucket-public-access",
			Framework:   model.FrameworkSOC2,
			ControlID:   "CC6.6",
			Severity:    model.SeverityCritical,
			AppliesTo:   []string{"aws_s3_bucket"},
			Remediation: "Block public access on all S3 buckets.",
			Check: func(e model.Evidence) (float64, []string) {
				if blocked, _ := e.Data.Payload["public_access_blocked"].(bool); blocked {
					return 100, nil
				}
				return 0, []string{"bucket allows public access"}
			},
		},
		{
			ID:          "iso27001-a12.4-cloudtrail",
			Framework:   model.FrameworkISO27001,
			ControlID:   "A.12.4",
			Severity:    model.SeverityHigh,
			AppliesTo:   []string{"aws_cloudtrail_config"},
			Remediation: "Enable multi-region CloudTrail with log file validation.",
			Check: func(e model.Evidence) (float64, []string) {
				multi, _ := e.Data.Payload["multi_region_enabled"].(bool)
				validated, _ := e.Data.Payload["log_file_validation"].(bool)
				switch {
				case multi && validated:
					return 100, nil
				case multi || validated:
					return 60, []string{"partial cloudtrail hardening"}
				default:
					return 0, []string{"cloudtrail not hardened"}
				}
			},
		},
		{
			ID:          "soc2-cc7.2-branch-protection",
			Framework:   model.FrameworkSOC2,
			ControlID:   "CC7.2",
			Severity:    model.SeverityMedium,
			AppliesTo:   []string{"github_repository"},
			Remediation: "Require branch protection on default branches.",
			Check: func(e model.Evidence) (float64, []string) {
				if protected, _ := e.Data.Payload["branch_protected"].(bool); protected {
					return 100, nil
				}
				return 20, []string{"default branch unprotected"}
			},
		},
		{
			ID:          "gdpr-art30-ropa-retention",
			Framework:   model.FrameworkGDPR,
			ControlID:   "Art.30",
			Severity:    model.SeverityMedium,
			AppliesTo:   []string{"gdpr_ropa"},
			Remediation: "Document a retention period for every processing activity.",
			Check: func(e model.Evidence) (float64, []string) {
				period, _ := e.Data.Payload["retention_period"].(string)
				if period == "" {
					return 0, []string{"missing retention period"}
				}
				return 100, nil
			},
		},
		{
			ID:          "gdpr-art44-cross-border",
			Framework:   model.FrameworkGDPR,
			ControlID:   "Art.44",
			Severity:    model.SeverityHigh,
			AppliesTo:   []string{"gdpr_ropa"},
			Remediation: "Document safeguards for cross-border data transfers.",
			Check: func(e model.Evidence) (float64, []string) {
				crossBorder, _ := e.Data.Payload["cross_border_transfer"].(bool)
				if !crossBorder {
					return 100, nil
				}
				// Cross-border transfers need an explicit legal basis on file.
				basis, _ := e.Data.Payload["legal_basis"].(string)
				if basis == "" {
					return 30, []string{"cross-border transfer lacks documented legal basis"}
				}
				return 80, nil
			},
		},
	}
}
