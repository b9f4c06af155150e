package domain

import (
	"strings"
	"unicode"
)

// FindingsForm carries the raw answers of the findings questionnaire.
// Values may be given in Polish ("Tak"/"Nie", "Pierwotny"/"Nawrotowy") as the
// original form used, or in English.
type FindingsForm struct {
	Age         string `json:"age"`          // ">70" | "<=70" | yes/no
	TumorCount  string `json:"tumor_count"`  // "single" | "multiple" | yes/no
	TumorSize   string `json:"tumor_size"`   // "<3cm" | ">=3cm" | yes/no
	TCategory   string `json:"t_category"`   // Ta | T1 | Tis
	Grade       string `json:"grade"`        // LG | HG, ignored for Tis
	Status      string `json:"status"`       // primary | recurrent
	CIS         string `json:"cis"`          // yes/no
	LVI         string `json:"lvi"`          // yes/no
	Variant     string `json:"variant"`      // yes/no
	ProstaticUC string `json:"prostatic_uc"` // yes/no
}

// InputParser converts questionnaire answers into ClinicalFindings
type InputParser interface {
	ParseFindings(form FindingsForm) (ClinicalFindings, error)
}

// StandardInputParser implements InputParser for the Polish/English form vocabulary
type StandardInputParser struct{}

// NewStandardInputParser creates a new standard input parser
func NewStandardInputParser() InputParser {
	return &StandardInputParser{}
}

// ParseFindings validates every answer and builds the findings value.
// Grade is forced to HG when the T category is Tis.
func (p *StandardInputParser) ParseFindings(form FindingsForm) (ClinicalFindings, error) {
	var (
		f   ClinicalFindings
		err error
	)

	if f.AgeOver70, err = parseThreshold("age", form.Age, []string{">70", "over70", "above70"}, []string{"<=70", "=<70", "under70", "70orless"}); err != nil {
		return ClinicalFindings{}, err
	}
	if f.MultipleTumors, err = parseThreshold("tumor_count", form.TumorCount, []string{"multiple", "mnogie", "many"}, []string{"single", "pojedynczy", "solitary", "one"}); err != nil {
		return ClinicalFindings{}, err
	}
	if f.TumorSize3cmOrMore, err = parseThreshold("tumor_size", form.TumorSize, []string{">=3cm", "=>3cm", "3cmormore", "large"}, []string{"<3cm", "small"}); err != nil {
		return ClinicalFindings{}, err
	}

	if f.TCategory, err = ParseTCategory(form.TCategory); err != nil {
		return ClinicalFindings{}, err
	}

	if f.TCategory == TCategoryTis {
		f.Grade = GradeHigh
	} else if f.Grade, err = ParseGrade(form.Grade); err != nil {
		return ClinicalFindings{}, err
	}

	if normalizeToken(form.Status) == "" {
		return ClinicalFindings{}, NewValidationError("status", "must be primary or recurrent", form.Status)
	}
	if f.IsPrimary, err = parseThreshold("status", form.Status, []string{"primary", "pierwotny", "new"}, []string{"recurrent", "nawrotowy", "recurrence"}); err != nil {
		return ClinicalFindings{}, err
	}

	flags := []struct {
		field string
		value string
		dest  *bool
	}{
		{"cis", form.CIS, &f.HasConcomitantCIS},
		{"lvi", form.LVI, &f.HasLVI},
		{"variant", form.Variant, &f.HasVariantHistology},
		{"prostatic_uc", form.ProstaticUC, &f.HasProstaticUrethralCIS},
	}
	for _, flag := range flags {
		if *flag.dest, err = parseYesNo(flag.field, flag.value); err != nil {
			return ClinicalFindings{}, err
		}
	}

	return f, nil
}

// ParseTCategory parses Ta, T1 or Tis in any letter case.
func ParseTCategory(s string) (TCategory, error) {
	switch normalizeToken(s) {
	case "ta", "pta":
		return TCategoryTa, nil
	case "t1", "pt1":
		return TCategoryT1, nil
	case "tis", "ptis":
		return TCategoryTis, nil
	default:
		return "", NewSentinelValidationError(ErrInvalidTCategory, "t_category", "must be one of Ta, T1, Tis", s)
	}
}

// ParseGrade parses LG or HG, also accepting "low"/"high".
func ParseGrade(s string) (Grade, error) {
	switch normalizeToken(s) {
	case "lg", "low", "lowgrade":
		return GradeLow, nil
	case "hg", "high", "highgrade":
		return GradeHigh, nil
	default:
		return "", NewSentinelValidationError(ErrInvalidGrade, "grade", "must be LG or HG", s)
	}
}

// parseYesNo interprets an optional yes/no answer; empty means "no".
func parseYesNo(field, value string) (bool, error) {
	switch normalizeToken(value) {
	case "", "nie", "no", "n", "false", "0", "absent":
		return false, nil
	case "tak", "yes", "y", "true", "1", "present":
		return true, nil
	default:
		return false, NewValidationError(field, "must be yes or no", value)
	}
}

// parseThreshold accepts either a yes/no answer or one of the explicit
// category spellings. Empty means the factor is absent.
func parseThreshold(field, value string, positive, negative []string) (bool, error) {
	token := normalizeToken(value)
	for _, p := range positive {
		if token == normalizeToken(p) {
			return true, nil
		}
	}
	for _, n := range negative {
		if token == normalizeToken(n) {
			return false, nil
		}
	}
	return parseYesNo(field, value)
}

// normalizeToken lower-cases and drops whitespace, '_' and '-' so that
// "Very High", "very_high" and "VERY-HIGH" compare equal.
func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
