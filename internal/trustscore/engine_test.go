package trustscore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/compliance-orchestrator/internal/compliance"
	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

func newEngine() *Engine {
	return New(NewRuleIndex(compliance.DefaultRules()))
}

func TestCompute_NoEvidenceYieldsZero(t *testing.T) {
	e := newEngine()
	score := e.Compute("t-1", nil, time.Now())
	assert.Equal(t, 0.0, score.Overall)
	assert.Equal(t, model.GradeD, score.Grade)
	assert.Equal(t, 0, score.EvidenceCount)
}

func compliantS3() model.Evidence {
	return model.Evidence{
		ID: "e-1", Kind: "aws_s3_bucket", Frameworks: []model.Framework{model.FrameworkSOC2},
		Findings: []model.Finding{
			{RuleID: "soc2-cc6.6-bucket-encryption", Score: 100},
			{RuleID: "soc2-cc6.6-bucket-public-access", Score: 100},
		},
		ComplianceStatus: model.ComplianceCompliant,
	}
}

func TestCompute_DeterministicForSameInput(t *testing.T) {
	e := newEngine()
	evidence := []model.Evidence{compliantS3()}

	first := e.Compute("t-1", evidence, time.Unix(0, 0))
	second := e.Compute("t-1", evidence, time.Unix(100, 0))

	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, first.ByPillar, second.ByPillar)
	assert.Equal(t, first.Points, second.Points)
}

func TestCompute_SecurityPillarScalesWithCoverage(t *testing.T) {
	e := newEngine()
	one := []model.Evidence{{ID: "e-1", Kind: "aws_iam_policy", Findings: []model.Finding{{RuleID: "soc2-cc6.1-mfa", Score: 100}}}}
	ten := make([]model.Evidence, 0, 10)
	for i := 0; i < 10; i++ {
		ten = append(ten, model.Evidence{ID: "e", Kind: "aws_iam_policy", Findings: []model.Finding{{RuleID: "soc2-cc6.1-mfa", Score: 100}}})
	}

	scoreOne := e.Compute("t-1", one, time.Now())
	scoreTen := e.Compute("t-1", ten, time.Now())

	assert.Less(t, scoreOne.ByPillar[model.PillarSecurity], scoreTen.ByPillar[model.PillarSecurity])
}

func TestCompute_AutomationRatioExcludesGDPR(t *testing.T) {
	e := newEngine()
	evidence := []model.Evidence{
		compliantS3(),
		{ID: "e-2", Kind: "gdpr_ropa", Frameworks: []model.Framework{model.FrameworkGDPR}},
	}
	score := e.Compute("t-1", evidence, time.Now())
	assert.Equal(t, 0.5, score.AutomationRatio)
}

func TestCompute_PointsRewardAutomatedSOC2Evidence(t *testing.T) {
	e := newEngine()
	score := e.Compute("t-1", []model.Evidence{compliantS3()}, time.Now())
	// base(configuration=20) * automated(3.0) * soc2(1.2) = 72; the
	// automation ratio is 1.0, so +50% (>80%) gives 108 and +5 per evidence
	// (>90%) gives 113.
	assert.Equal(t, 113, score.Points)
}

// TestCompute_HighAutomationTenantReachesGradeA covers S5: a tenant whose
// evidence set is 95% automated and fully covers the Security, Operations,
// and Governance pillars reaches overall >= 90, grade A or better, and a
// points total inflated by both the >80% and >90% automation bonuses.
func TestCompute_HighAutomationTenantReachesGradeA(t *testing.T) {
	e := newEngine()

	var evidence []model.Evidence
	for i := 0; i < 10; i++ {
		evidence = append(evidence, model.Evidence{
			ID: "sec", Kind: "aws_iam_policy", Frameworks: []model.Framework{model.FrameworkSOC2},
			ComplianceStatus: model.ComplianceCompliant,
		})
	}
	for i := 0; i < 8; i++ {
		evidence = append(evidence, model.Evidence{
			ID: "gov", Kind: "github_org_security", ComplianceStatus: model.ComplianceCompliant,
		})
	}
	evidence = append(evidence, model.Evidence{
		ID: "ops", Kind: "agent_heartbeat_snapshot", ComplianceStatus: model.ComplianceCompliant,
	})
	evidence = append(evidence, model.Evidence{
		ID: "manual", Kind: "gdpr_ropa", Frameworks: []model.Framework{model.FrameworkGDPR},
		ComplianceStatus: model.ComplianceCompliant,
	})

	score := e.Compute("t-1", evidence, time.Now())

	assert.Equal(t, 20, score.EvidenceCount)
	assert.Equal(t, 0.95, score.AutomationRatio)
	assert.GreaterOrEqual(t, score.Overall, 90.0)
	assert.True(t, score.Grade == model.GradeAPlus || score.Grade == model.GradeA,
		"expected grade A or better, got %s", score.Grade)

	// security(1.0*0.30) + operations(1.475*0.25) + governance(1.0*0.20), no
	// Findings so compliance is 0; *1.5 for automationRatio > 0.70, clamped
	// to 100.
	assert.Equal(t, 100.0, score.Overall)

	// (10*12*3*1.2 + 8*12*3 + 1*25*3 + 1*15*1*1.1) * 1.5 (>80%) + 5*20 (>90%)
	assert.Equal(t, 1317, score.Points)
}
