// Package compliance implements the ComplianceEvaluator (spec §4.6): a rule
// registry plus a pure evaluate(evidence) function. Deterministic by
// construction — no wall-clock, no randomness.
package compliance

import (
	"sort"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// Registry holds the ComplianceRule set, grouped by evidence kind for O(1)
// lookup during evaluation.
type Registry struct {
	byKind map[string][]model.ComplianceRule
}

// NewRegistry builds a Registry from rules.
func NewRegistry(rules []model.ComplianceRule) *Registry {
	r := &Registry{byKind: make(map[string][]model.ComplianceRule)}
	for _, rule := range rules {
		for _, kind := range rule.AppliesTo {
			r.byKind[kind] = append(r.byKind[kind], rule)
		}
	}
	for kind := range r.byKind {
		sort.Slice(r.byKind[kind], func(i, j int) bool { return r.byKind[kind][i].ID < r.byKind[kind][j].ID })
	}
	return r
}

// RulesFor returns the rules registered against evidenceKind, in stable
// (sorted-by-ID) order so Evaluate is deterministic regardless of
// registration order.
func (r *Registry) RulesFor(evidenceKind string) []model.ComplianceRule {
	return r.byKind[evidenceKind]
}

// Evaluator is the pure evaluate(evidence) function of spec §4.6.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator builds an Evaluator over registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// compliantThreshold is spec §4.6's per-rule pass/fail cutoff.
const compliantThreshold = 80.0

// Evaluate runs every rule registered for evidence.Kind and aggregates the
// per-rule findings into an overall status and risk rating (spec §4.6).
func (e *Evaluator) Evaluate(evidence model.Evidence) (model.ComplianceStatus, model.Risk, []model.Finding) {
	rules := e.registry.RulesFor(evidence.Kind)
	if len(rules) == 0 {
		return model.ComplianceUnknown, model.RiskUnknown, nil
	}

	findings := make([]model.Finding, 0, len(rules))
	var scoreSum float64
	compliantCount := 0

	for _, rule := range rules {
		score, messages := rule.Check(evidence)
		findings = append(findings, model.Finding{RuleID: rule.ID, Score: score, Messages: messages})
		scoreSum += score
		if score >= compliantThreshold {
			compliantCount++
		}
	}

	status := aggregateStatus(compliantCount, len(rules))
	risk := aggregateRisk(scoreSum / float64(len(rules)))
	return status, risk, findings
}

// aggregateStatus implements spec §4.6's overall-status rule: COMPLIANT if
// all rules pass, NON_COMPLIANT if a majority fail, otherwise PARTIAL.
func aggregateStatus(compliantCount, total int) model.ComplianceStatus {
	if compliantCount == total {
		return model.ComplianceCompliant
	}
	nonCompliant := total - compliantCount
	if nonCompliant > total/2 {
		return model.ComplianceNonCompliant
	}
	return model.CompliancePartial
}

// aggregateRisk implements spec §4.6's mean-score risk banding.
func aggregateRisk(meanScore float64) model.Risk {
	switch {
	case meanScore >= 90:
		return model.RiskLow
	case meanScore >= 70:
		return model.RiskMedium
	case meanScore >= 50:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}
