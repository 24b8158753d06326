package model

// Severity is the remediation urgency of a ComplianceRule.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CheckFunc is a pure evaluation function: given an evidence payload, it
// returns a score in [0, 100] and optional human-readable messages. Checks
// must be deterministic — no wall-clock, no randomness (spec §4.6).
type CheckFunc func(e Evidence) (score float64, messages []string)

// ComplianceRule is a declarative check registered against one or more
// evidence kinds (spec §3).
type ComplianceRule struct {
	ID          string
	Framework   Framework
	ControlID   string
	Severity    Severity
	AppliesTo   []string // evidence kinds
	Check       CheckFunc
	Remediation string
}

// Applies reports whether the rule applies to the given evidence kind.
func (r ComplianceRule) Applies(evidenceKind string) bool {
	for _, k := range r.AppliesTo {
		if k == evidenceKind {
			return true
		}
	}
	return false
}
