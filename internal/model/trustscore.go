package model

import "time"

// Grade is the letter banding applied to TrustScore.Overall (spec §4.11).
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeAMin  Grade = "A-"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeBMin  Grade = "B-"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// Pillar is one of the four scoring dimensions of spec §4.11.
type Pillar string

const (
	PillarSecurity   Pillar = "security"
	PillarCompliance Pillar = "compliance"
	PillarOperations Pillar = "operations"
	PillarGovernance Pillar = "governance"
)

// ControlScore is the rolled-up result for one (framework, control) pair.
type ControlScore struct {
	Score        float64
	Status       ComplianceStatus
	EvidenceRefs []string
}

// TrustScore is the deterministic, multi-pillar score computed for a tenant
// (spec §3, §4.11). Recomputing it from the same evidence set must yield the
// same result (spec §8 idempotence law).
type TrustScore struct {
	TenantID        string
	Overall         float64
	ByPillar        map[Pillar]float64
	ByFramework     map[Framework]float64
	ByControl       map[string]ControlScore
	EvidenceCount   int
	AutomationRatio float64
	Points          int
	Grade           Grade
	ComputedAt      time.Time
}

// GradeForScore bands a 0-100 overall score into a Grade per spec §4.11:
// A+ >=95, A >=90, A- >=85, B+ >=80, B >=75, B- >=70, C+ >=65, C >=60, else D.
func GradeForScore(overall float64) Grade {
	switch {
	case overall >= 95:
		return GradeAPlus
	case overall >= 90:
		return GradeA
	case overall >= 85:
		return GradeAMin
	case overall >= 80:
		return GradeBPlus
	case overall >= 75:
		return GradeB
	case overall >= 70:
		return GradeBMin
	case overall >= 65:
		return GradeCPlus
	case overall >= 60:
		return GradeC
	default:
		return GradeD
	}
}
