package domain

import (
	"fmt"
	"strings"
)

// ClinicalFindings holds the clinical and histopathological findings of one
// TURBT case. It is a value type; classification never mutates it.
type ClinicalFindings struct {
	// Clinical risk factors
	AgeOver70          bool `json:"age_over_70"`
	MultipleTumors     bool `json:"multiple_tumors"`
	TumorSize3cmOrMore bool `json:"tumor_size_3cm_or_more"`

	// Histopathology
	TCategory TCategory `json:"t_category"`
	Grade     Grade     `json:"grade,omitempty"` // ignored when TCategory is Tis
	IsPrimary bool      `json:"is_primary"`

	// Additional pathological factors
	HasConcomitantCIS       bool `json:"has_concomitant_cis"`
	HasLVI                  bool `json:"has_lvi"`
	HasVariantHistology     bool `json:"has_variant_histology"`
	HasProstaticUrethralCIS bool `json:"has_prostatic_urethral_cis"`
}

// EffectiveGrade returns the grade used for classification.
// Tis is a flat high-grade lesion, so its grade is always HG.
func (f ClinicalFindings) EffectiveGrade() Grade {
	if f.TCategory == TCategoryTis {
		return GradeHigh
	}
	return f.Grade
}

// ClinicalRiskFactorCount returns the number of clinical risk factors present
// (age over 70, multiple tumours, diameter of 3 cm or more).
func (f ClinicalFindings) ClinicalRiskFactorCount() int {
	count := 0
	for _, present := range []bool{f.AgeOver70, f.MultipleTumors, f.TumorSize3cmOrMore} {
		if present {
			count++
		}
	}
	return count
}

// HasVeryHighRiskFeature reports whether any finding forces the very high risk group.
func (f ClinicalFindings) HasVeryHighRiskFeature() bool {
	return f.HasLVI || f.HasVariantHistology || f.HasProstaticUrethralCIS
}

// Validate checks the enumerated fields. Grade is not checked for Tis.
func (f ClinicalFindings) Validate() error {
	if !f.TCategory.IsValid() {
		return NewSentinelValidationError(ErrInvalidTCategory, "t_category", "must be one of Ta, T1, Tis", string(f.TCategory))
	}
	if f.TCategory != TCategoryTis && !f.Grade.IsValid() {
		return NewSentinelValidationError(ErrInvalidGrade, "grade", "must be LG or HG", string(f.Grade))
	}
	return nil
}

// Signature returns a canonical key describing the finding combination.
// It carries no patient identifiers; identical findings yield identical signatures.
func (f ClinicalFindings) Signature() string {
	flag := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}

	parts := []string{
		f.TCategory.String(),
		f.EffectiveGrade().String(),
		"age" + flag(f.AgeOver70),
		"mult" + flag(f.MultipleTumors),
		"size" + flag(f.TumorSize3cmOrMore),
		"prim" + flag(f.IsPrimary),
		"cis" + flag(f.HasConcomitantCIS),
		"lvi" + flag(f.HasLVI),
		"var" + flag(f.HasVariantHistology),
		"pucis" + flag(f.HasProstaticUrethralCIS),
	}
	return strings.Join(parts, "|")
}

// Describe renders the findings as short English lines for case summaries.
func (f ClinicalFindings) Describe() []string {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	status := "recurrent"
	if f.IsPrimary {
		status = "primary"
	}

	return []string{
		fmt.Sprintf("T category: %s", f.TCategory),
		fmt.Sprintf("Grade: %s", f.EffectiveGrade()),
		fmt.Sprintf("Tumour status: %s", status),
		fmt.Sprintf("Age over 70: %s", yesNo(f.AgeOver70)),
		fmt.Sprintf("Multiple tumours: %s", yesNo(f.MultipleTumors)),
		fmt.Sprintf("Diameter >= 3 cm: %s", yesNo(f.TumorSize3cmOrMore)),
		fmt.Sprintf("Concomitant CIS: %s", yesNo(f.HasConcomitantCIS)),
		fmt.Sprintf("Lymphovascular invasion: %s", yesNo(f.HasLVI)),
		fmt.Sprintf("Variant histology: %s", yesNo(f.HasVariantHistology)),
		fmt.Sprintf("CIS of the prostatic urethra: %s", yesNo(f.HasProstaticUrethralCIS)),
	}
}
