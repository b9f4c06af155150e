// Package domain contains core business entities and types for non-muscle-invasive
// bladder cancer (NMIBC) risk stratification following the EAU guidelines.
//
// Reference: EAU Guidelines on Non-muscle-invasive Bladder Cancer (TaT1 and CIS), 2025.
package domain

import (
	"errors"
)

// TCategory represents the pathological T category of the resected tumour.
type TCategory string

const (
	TCategoryTa  TCategory = "Ta"
	TCategoryT1  TCategory = "T1"
	TCategoryTis TCategory = "Tis"
)

// Grade represents the WHO 2004/2016 histological grade.
type Grade string

const (
	GradeLow  Grade = "LG"
	GradeHigh Grade = "HG"
)

// RiskCategory represents the EAU NMIBC risk group.
// The string values match the keys of the protocol table.
type RiskCategory string

const (
	RiskLow          RiskCategory = "low"
	RiskIntermediate RiskCategory = "intermediate"
	RiskHigh         RiskCategory = "high"
	RiskVeryHigh     RiskCategory = "veryHigh"
)

// Validation errors for clinical input integrity
var (
	ErrInvalidTCategory     = errors.New("invalid T category")
	ErrInvalidGrade         = errors.New("invalid grade")
	ErrInvalidRiskCategory  = errors.New("invalid risk category")
	ErrFeatureUnavailable   = errors.New("feature unavailable")
	ErrMissingInductionDate = errors.New("induction date is missing")
)

// IsValid reports whether the T category is one of Ta, T1 or Tis.
func (t TCategory) IsValid() bool {
	switch t {
	case TCategoryTa, TCategoryT1, TCategoryTis:
		return true
	default:
		return false
	}
}

// String returns the string representation of the T category.
func (t TCategory) String() string {
	return string(t)
}

// IsValid reports whether the grade is LG or HG.
func (g Grade) IsValid() bool {
	switch g {
	case GradeLow, GradeHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the grade.
func (g Grade) String() string {
	return string(g)
}

// AllRiskCategories lists the risk categories ordered by ascending severity.
func AllRiskCategories() []RiskCategory {
	return []RiskCategory{RiskLow, RiskIntermediate, RiskHigh, RiskVeryHigh}
}

// IsValid validates that the RiskCategory is one of the four EAU risk groups.
func (r RiskCategory) IsValid() bool {
	switch r {
	case RiskLow, RiskIntermediate, RiskHigh, RiskVeryHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk category.
// Required for proper logging and audit trails.
func (r RiskCategory) String() string {
	return string(r)
}

// Severity orders the risk categories for reporting only; 0 for unknown values.
// Classification never consults it.
func (r RiskCategory) Severity() int {
	switch r {
	case RiskLow:
		return 1
	case RiskIntermediate:
		return 2
	case RiskHigh:
		return 3
	case RiskVeryHigh:
		return 4
	default:
		return 0
	}
}

// ParseRiskCategory accepts the canonical key as well as common spellings
// such as "very_high", "Very High" or "VERY-HIGH".
func ParseRiskCategory(s string) (RiskCategory, error) {
	switch normalizeToken(s) {
	case "low":
		return RiskLow, nil
	case "intermediate":
		return RiskIntermediate, nil
	case "high":
		return RiskHigh, nil
	case "veryhigh":
		return RiskVeryHigh, nil
	default:
		return "", ErrInvalidRiskCategory
	}
}

// LogFields returns structured logging fields for audit trails.
func (r RiskCategory) LogFields() map[string]any {
	return map[string]any{
		"risk_category": string(r),
		"severity":      r.Severity(),
		"is_valid":      r.IsValid(),
	}
}
