// Package trustscore implements the TrustScoreEngine (spec §4.11): a pure
// function of a tenant's validated evidence set producing a multi-pillar
// score, a points total, and a letter grade.
package trustscore

import (
	"time"

	"github.com/R3E-Network/compliance-orchestrator/internal/model"
)

// pillarWeights are spec §4.11's overall-score weights.
var pillarWeights = map[model.Pillar]float64{
	model.PillarSecurity:   0.30,
	model.PillarCompliance: 0.25,
	model.PillarOperations: 0.25,
	model.PillarGovernance: 0.20,
}

// frameworkTotals are the fixed total-control counts of spec §4.11.
var frameworkTotals = map[model.Framework]float64{
	model.FrameworkSOC2:     64,
	model.FrameworkISO27001: 114,
	model.FrameworkGDPR:     47,
	model.FrameworkHIPAA:    78,
}

// frameworkWeights are spec §4.11's per-framework compliance-pillar weights.
var frameworkWeights = map[model.Framework]float64{
	model.FrameworkSOC2:     1.0,
	model.FrameworkISO27001: 1.2,
	model.FrameworkGDPR:     0.8,
	model.FrameworkHIPAA:    1.1,
}

// pointMultipliers are spec §4.11's points-system per-framework multipliers.
var pointMultipliers = map[model.Framework]float64{
	model.FrameworkSOC2:     1.2,
	model.FrameworkISO27001: 1.3,
	model.FrameworkHIPAA:    1.4,
	model.FrameworkPCIDSS:   1.5,
	model.FrameworkGDPR:     1.1,
	model.FrameworkFedRAMP:  1.6,
}

// securityKinds are the evidence kinds whose control the Security pillar
// treats as {access_control, authentication, encryption, network_security,
// vulnerability_management, incident_response} (spec §4.11).
var securityKinds = map[string]bool{
	"aws_iam_policy": true, "aws_cloudtrail_config": true,
	"gcp_iam_binding": true, "gcp_audit_log_config": true,
	"azure_rbac_assignment": true, "azure_monitor_log_profile": true,
	"workspace_user_mfa": true, "workspace_admin_audit": true,
	"github_branch_protection": true, "github_secret_scanning": true, "github_dependabot_alert": true,
}

// operationsKinds are ops/SLA evidence produced by the Monitor and
// Observability internal agents (spec §4.11's Operations pillar).
var operationsKinds = map[string]bool{
	"agent_heartbeat_snapshot": true, "task_throughput_snapshot": true,
}

// governanceKinds are policy/RoPA-shaped evidence feeding the Governance
// pillar.
var governanceKinds = map[string]bool{
	"gdpr_ropa": true, "github_org_security": true, "workspace_sharing_policy": true,
}

// manualKinds are synthesized from tenant-supplied configuration rather than
// an automated collector (spec §4.11's automation_ratio).
var manualKinds = map[string]bool{
	"gdpr_ropa": true,
}

// artifactBase is spec §4.11's points-system base value per artifact type.
var artifactBase = map[string]float64{
	"screenshot": 10, "document": 15, "configuration": 20,
	"audit_log": 25, "policy": 12, "procedure": 8, "training": 5,
}

// kindArtifactType buckets each reference probe's evidence kind into the
// points system's artifact-type taxonomy.
var kindArtifactType = map[string]string{
	"aws_iam_policy": "policy", "gcp_iam_binding": "policy", "azure_rbac_assignment": "policy",
	"workspace_sharing_policy": "policy", "github_org_security": "policy",

	"aws_s3_bucket": "configuration", "gcp_storage_bucket": "configuration",
	"azure_storage_account": "configuration", "github_repository": "configuration",
	"github_branch_protection": "configuration",

	"aws_cloudtrail_config": "audit_log", "gcp_audit_log_config": "audit_log",
	"azure_monitor_log_profile": "audit_log", "workspace_admin_audit": "audit_log",
	"github_secret_scanning": "audit_log", "github_dependabot_alert": "audit_log",
	"task_throughput_snapshot": "audit_log", "agent_heartbeat_snapshot": "audit_log",
	"trust_score_snapshot": "audit_log",

	"gdpr_ropa": "document",
}

// RuleIndex resolves a Finding.RuleID to the ComplianceRule that produced
// it, so the engine can roll findings up to (framework, control) pairs.
type RuleIndex map[string]model.ComplianceRule

// NewRuleIndex builds a RuleIndex from a rule catalog (e.g.
// compliance.DefaultRules()).
func NewRuleIndex(rules []model.ComplianceRule) RuleIndex {
	idx := make(RuleIndex, len(rules))
	for _, r := range rules {
		idx[r.ID] = r
	}
	return idx
}

// Engine computes TrustScore from a tenant's evidence set.
type Engine struct {
	rules RuleIndex
}

// New constructs an Engine backed by rules for control/framework lookups.
func New(rules RuleIndex) *Engine {
	return &Engine{rules: rules}
}

// Compute is a pure function: the same evidence set always yields the same
// TrustScore (spec §8 idempotence law). computedAt is stamped as-is and
// never read by the computation itself.
func (e *Engine) Compute(tenantID string, evidence []model.Evidence, computedAt time.Time) model.TrustScore {
	automationRatio := e.automationRatio(evidence)

	byControl := e.controlScores(evidence)
	byFramework := e.frameworkPillarScores(byControl)

	security := e.securityPillar(evidence)
	compliance := e.compliancePillar(byFramework)
	operations := e.operationsPillar(evidence, automationRatio)
	governance := e.governancePillar(evidence)

	overall := 100 * (security*pillarWeights[model.PillarSecurity] +
		compliance*pillarWeights[model.PillarCompliance] +
		operations*pillarWeights[model.PillarOperations] +
		governance*pillarWeights[model.PillarGovernance])

	if automationRatio > 0.70 {
		overall *= 1.5
	}
	overall = clamp(overall, 0, 100)

	points := e.points(evidence, automationRatio)

	return model.TrustScore{
		TenantID: tenantID,
		Overall:  overall,
		ByPillar: map[model.Pillar]float64{
			model.PillarSecurity:   security,
			model.PillarCompliance: compliance,
			model.PillarOperations: operations,
			model.PillarGovernance: governance,
		},
		ByFramework:     scale100(byFramework),
		ByControl:       byControl,
		EvidenceCount:   len(evidence),
		AutomationRatio: automationRatio,
		Points:          points,
		Grade:           model.GradeForScore(overall),
		ComputedAt:      computedAt,
	}
}

func scale100(in map[model.Framework]float64) map[model.Framework]float64 {
	out := make(map[model.Framework]float64, len(in))
	for k, v := range in {
		out[k] = v * 100
	}
	return out
}

// quality reduces an Evidence row's Findings to a [0,1] quality score.
func quality(e model.Evidence) float64 {
	if len(e.Findings) == 0 {
		switch e.ComplianceStatus {
		case model.ComplianceCompliant:
			return 1
		case model.ComplianceNonCompliant:
			return 0
		default:
			return 0.5
		}
	}
	var sum float64
	for _, f := range e.Findings {
		sum += f.Score / 100
	}
	return sum / float64(len(e.Findings))
}

func (e *Engine) securityPillar(evidence []model.Evidence) float64 {
	var sum float64
	var count int
	for _, ev := range evidence {
		if !securityKinds[ev.Kind] {
			continue
		}
		sum += quality(ev)
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return mean * minOf(1, float64(count)/10)
}

func (e *Engine) operationsPillar(evidence []model.Evidence, automationRatio float64) float64 {
	var sum float64
	var count int
	for _, ev := range evidence {
		if !operationsKinds[ev.Kind] {
			continue
		}
		sum += quality(ev)
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return mean * (1 + automationRatio*0.5)
}

func (e *Engine) governancePillar(evidence []model.Evidence) float64 {
	var sum float64
	var count int
	for _, ev := range evidence {
		if !governanceKinds[ev.Kind] {
			continue
		}
		sum += quality(ev)
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	score := mean * minOf(1, float64(count)/8)
	return minOf(1, maxOf(0.3, score))
}

// controlScores rolls findings up to (framework, control) pairs.
func (e *Engine) controlScores(evidence []model.Evidence) map[string]model.ControlScore {
	out := make(map[string]model.ControlScore)
	for _, ev := range evidence {
		for _, f := range ev.Findings {
			rule, ok := e.rules[f.RuleID]
			if !ok {
				continue
			}
			key := string(rule.Framework) + ":" + rule.ControlID
			cs := out[key]
			cs.Score = (cs.Score*float64(len(cs.EvidenceRefs)) + f.Score) / float64(len(cs.EvidenceRefs)+1)
			cs.EvidenceRefs = append(cs.EvidenceRefs, ev.ID)
			cs.Status = statusFor(cs.Score)
			out[key] = cs
		}
	}
	return out
}

func statusFor(score float64) model.ComplianceStatus {
	if score >= 80 {
		return model.ComplianceCompliant
	}
	return model.ComplianceNonCompliant
}

// frameworkPillarScores computes completion*quality*weight per framework,
// keyed by framework, unscaled (completion and quality lie in [0,1], so a
// framework weight above 1.0 can lift the result above 1); the caller takes
// the mean across covered frameworks for the Compliance pillar.
func (e *Engine) frameworkPillarScores(byControl map[string]model.ControlScore) map[model.Framework]float64 {
	controls := make(map[model.Framework]map[string]float64)
	for key, cs := range byControl {
		fw, controlID := splitKey(key)
		if controls[fw] == nil {
			controls[fw] = make(map[string]float64)
		}
		controls[fw][controlID] = cs.Score
	}

	out := make(map[model.Framework]float64, len(controls))
	for fw, byCtl := range controls {
		total := frameworkTotals[fw]
		if total == 0 {
			total = float64(len(byCtl))
		}
		completion := minOf(1, float64(len(byCtl))/total)

		var sum float64
		for _, score := range byCtl {
			sum += score / 100
		}
		meanQuality := sum / float64(len(byCtl))

		weight := frameworkWeights[fw]
		if weight == 0 {
			weight = 1.0
		}
		out[fw] = completion * meanQuality * weight
	}
	return out
}

func (e *Engine) compliancePillar(byFramework map[model.Framework]float64) float64 {
	if len(byFramework) == 0 {
		return 0
	}
	var sum float64
	for _, v := range byFramework {
		sum += v
	}
	return sum / float64(len(byFramework))
}

func (e *Engine) automationRatio(evidence []model.Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var automated int
	for _, ev := range evidence {
		if !manualKinds[ev.Kind] {
			automated++
		}
	}
	return float64(automated) / float64(len(evidence))
}

// points computes the points system total of spec §4.11.
func (e *Engine) points(evidence []model.Evidence, automationRatio float64) int {
	const automatedMultiplier = 3.0

	var total float64
	for _, ev := range evidence {
		artifact := kindArtifactType[ev.Kind]
		base, ok := artifactBase[artifact]
		if !ok {
			base = artifactBase["configuration"]
		}

		m := automatedMultiplier
		if manualKinds[ev.Kind] {
			m = 1.0
		}

		fw := 1.0
		for _, f := range ev.Frameworks {
			if v, ok := pointMultipliers[f]; ok && v > fw {
				fw = v
			}
		}

		total += base * m * fw
	}

	if automationRatio > 0.80 {
		total += total * 0.5
	}
	if automationRatio > 0.90 {
		total += 5 * float64(len(evidence))
	}

	return int(total)
}

func splitKey(key string) (model.Framework, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return model.Framework(key[:i]), key[i+1:]
		}
	}
	return model.Framework(key), ""
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	return maxOf(lo, minOf(hi, v))
}
