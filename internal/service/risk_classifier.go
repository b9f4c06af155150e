package service

import (
	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// EAURiskClassifier implements EAU 2025 NMIBC risk stratification.
// Tiers are evaluated in a fixed order and the first matching tier wins;
// later tiers assume that earlier ones did not match.
type EAURiskClassifier struct {
	logger *logrus.Logger
	tiers  []RiskTier
}

// RiskTier is one precedence level of the stratification table
type RiskTier struct {
	ID          domain.RuleID
	Category    domain.RiskCategory
	Description string
	Matches     func(f domain.ClinicalFindings, crfc int, grade domain.Grade) bool
}

// NewEAURiskClassifier creates a classifier with the EAU 2025 tiers
func NewEAURiskClassifier(logger *logrus.Logger) *EAURiskClassifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &EAURiskClassifier{
		logger: logger,
		tiers:  eauTiers(),
	}
}

// Classify returns the risk category for the findings. It is total and pure.
func (c *EAURiskClassifier) Classify(findings domain.ClinicalFindings) domain.RiskCategory {
	category, _ := c.ClassifyWithTrace(findings)
	return category
}

// ClassifyWithTrace returns the risk category together with the tier that produced it.
func (c *EAURiskClassifier) ClassifyWithTrace(findings domain.ClinicalFindings) (domain.RiskCategory, domain.RuleID) {
	crfc := findings.ClinicalRiskFactorCount()
	grade := findings.EffectiveGrade()

	for _, tier := range c.tiers {
		if tier.Matches(findings, crfc, grade) {
			c.logger.WithFields(logrus.Fields{
				"risk_category": tier.Category,
				"rule":          tier.ID,
				"crfc":          crfc,
			}).Debug("Risk tier matched")
			return tier.Category, tier.ID
		}
	}

	c.logger.WithField("crfc", crfc).Debug("No risk tier matched, defaulting to intermediate")
	return domain.RiskIntermediate, domain.RuleDefaultIntermediate
}

// Tiers returns the ordered tier list, excluding the implicit intermediate default.
func (c *EAURiskClassifier) Tiers() []RiskTier {
	return append([]RiskTier(nil), c.tiers...)
}

// TierDescription returns the human-readable description of a rule ID.
func (c *EAURiskClassifier) TierDescription(id domain.RuleID) string {
	for _, tier := range c.tiers {
		if tier.ID == id {
			return tier.Description
		}
	}
	if id == domain.RuleDefaultIntermediate {
		return "No very high, high or low risk criteria met"
	}
	return ""
}

func eauTiers() []RiskTier {
	return []RiskTier{
		{
			ID:          domain.RuleVeryHighOverride,
			Category:    domain.RiskVeryHigh,
			Description: "Lymphovascular invasion, variant histology or CIS of the prostatic urethra",
			Matches: func(f domain.ClinicalFindings, _ int, _ domain.Grade) bool {
				return f.HasVeryHighRiskFeature()
			},
		},
		{
			ID:          domain.RuleVeryHighTable,
			Category:    domain.RiskVeryHigh,
			Description: "Very high risk by T category, grade, CIS and clinical risk factor count",
			Matches:     matchesVeryHighTable,
		},
		{
			ID:          domain.RuleHighTable,
			Category:    domain.RiskHigh,
			Description: "High risk by T category, grade, CIS and clinical risk factor count",
			Matches:     matchesHighTable,
		},
		{
			ID:          domain.RuleLowCriteria,
			Category:    domain.RiskLow,
			Description: "Primary Ta LG without CIS, single tumour < 3 cm in a patient aged 70 or younger, or at most one clinical risk factor",
			Matches:     matchesLowCriteria,
		},
	}
}

func matchesVeryHighTable(f domain.ClinicalFindings, crfc int, grade domain.Grade) bool {
	if f.HasConcomitantCIS {
		if f.TCategory == domain.TCategoryTa && grade == domain.GradeHigh && crfc == 3 {
			return true
		}
		if f.TCategory == domain.TCategoryT1 && grade == domain.GradeHigh && crfc >= 1 {
			return true
		}
		return false
	}
	return f.TCategory == domain.TCategoryT1 && grade == domain.GradeHigh && crfc == 3
}

func matchesHighTable(f domain.ClinicalFindings, crfc int, grade domain.Grade) bool {
	if f.TCategory == domain.TCategoryTis || f.HasConcomitantCIS {
		return true
	}
	if f.TCategory == domain.TCategoryT1 && grade == domain.GradeHigh {
		return true
	}

	// CIS is known to be absent here
	switch {
	case f.TCategory == domain.TCategoryTa && grade == domain.GradeLow && crfc == 3:
		return true
	case f.TCategory == domain.TCategoryTa && grade == domain.GradeHigh && crfc >= 2:
		return true
	case f.TCategory == domain.TCategoryT1 && grade == domain.GradeLow && crfc >= 2:
		return true
	}
	return false
}

func matchesLowCriteria(f domain.ClinicalFindings, crfc int, grade domain.Grade) bool {
	if !f.IsPrimary || f.HasConcomitantCIS || f.TCategory != domain.TCategoryTa || grade != domain.GradeLow {
		return false
	}
	singleSmallYounger := !f.MultipleTumors && !f.TumorSize3cmOrMore && !f.AgeOver70
	return singleSmallYounger || crfc <= 1
}
