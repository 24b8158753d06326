package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

func scoreRule(id string, score float64) model.ComplianceRule {
	return model.ComplianceRule{
		ID:        id,
		AppliesTo: []string{"iam_policy"},
		Check: func(model.Evidence) (float64, []string) {
			return score, nil
		},
	}
}

func TestEvaluate_UnknownWhenNoRuleApplies(t *testing.T) {
	reg := NewRegistry(nil)
	eval := NewEvaluator(reg)

	status, risk, findings := eval.Evaluate(model.Evidence{Kind: "unregistered_kind"})
	assert.Equal(t, model.ComplianceUnknown, status)
	assert.Equal(t, model.RiskUnknown, risk)
	assert.Nil(t, findings)
}

func TestEvaluate_CompliantWhenAllRulesPass(t *testing.T) {
	reg := NewRegistry([]model.ComplianceRule{scoreRule("r1", 95), scoreRule("r2", 90)})
	eval := NewEvaluator(reg)

	status, risk, findings := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
	assert.Equal(t, model.ComplianceCompliant, status)
	assert.Equal(t, model.RiskLow, risk)
	assert.Len(t, findings, 2)
}

func TestEvaluate_NonCompliantWhenMajorityFail(t *testing.T) {
	reg := NewRegistry([]model.ComplianceRule{scoreRule("r1", 10), scoreRule("r2", 20), scoreRule("r3", 95)})
	eval := NewEvaluator(reg)

	status, _, _ := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
	assert.Equal(t, model.ComplianceNonCompliant, status)
}

func TestEvaluate_PartialWhenSplitEvenly(t *testing.T) {
	reg := NewRegistry([]model.ComplianceRule{scoreRule("r1", 10), scoreRule("r2", 95)})
	eval := NewEvaluator(reg)

	status, _, _ := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
	assert.Equal(t, model.CompliancePartial, status)
}

func TestEvaluate_RiskBanding(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Risk
	}{
		{95, model.RiskLow},
		{75, model.RiskMedium},
		{55, model.RiskHigh},
		{10, model.RiskCritical},
	}
	for _, c := range cases {
		reg := NewRegistry([]model.ComplianceRule{scoreRule("r1", c.score)})
		eval := NewEvaluator(reg)
		_, risk, _ := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
		assert.Equal(t, c.want, risk, "score %v", c.score)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	reg := NewRegistry([]model.ComplianceRule{scoreRule("r2", 50), scoreRule("r1", 90)})
	eval := NewEvaluator(reg)

	s1, r1, f1 := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
	s2, r2, f2 := eval.Evaluate(model.Evidence{Kind: "iam_policy"})
	assert.Equal(t, s1, s2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, f1, f2)
	assert.Equal(t, "r1", f1[0].RuleID) // stable sort by rule ID
}
