package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

func TestDefaultRules_S3EncryptionCheck(t *testing.T) {
	reg := NewRegistry(DefaultRules())
	eval := NewEvaluator(reg)

	compliant := model.Evidence{
		Kind: "aws_s3_bucket",
		Data: model.EvidencePayload{Payload: map[string]any{
			"encryption_enabled": true, "public_access_blocked": true,
		}},
	}
	status, risk, findings := eval.Evaluate(compliant)
	require.Len(t, findings, 2)
	assert.Equal(t, model.ComplianceCompliant, status)
	assert.Equal(t, model.RiskLow, risk)

	noncompliant := model.Evidence{
		Kind: "aws_s3_bucket",
		Data: model.EvidencePayload{Payload: map[string]any{
			"encryption_enabled": false, "public_access_blocked": false,
		}},
	}
	status, risk, _ = eval.Evaluate(noncompliant)
	assert.Equal(t, model.ComplianceNonCompliant, status)
	assert.Equal(t, model.RiskCritical, risk)
}

func TestDefaultRules_GDPRCrossBorderRequiresLegalBasis(t *testing.T) {
	reg := NewRegistry(DefaultRules())
	eval := NewEvaluator(reg)

	missingBasis := model.Evidence{
		Kind: "gdpr_ropa",
		Data: model.EvidencePayload{Payload: map[string]any{
			"retention_period": "2 years", "cross_border_transfer": true, "legal_basis": "",
		}},
	}
	_, _, findings := eval.Evaluate(missingBasis)
	require.Len(t, findings, 2)

	var crossBorderFinding model.Finding
	for _, f := range findings {
		if f.RuleID == "gdpr-art44-cross-border" {
			crossBorderFinding = f
		}
	}
	assert.Less(t, crossBorderFinding.Score, 80.0)
}
