package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFindings_PolishForm(t *testing.T) {
	parser := NewStandardInputParser()

	findings, err := parser.ParseFindings(FindingsForm{
		Age:         "Tak",
		TumorCount:  "Nie",
		TumorSize:   "Tak",
		TCategory:   "T1",
		Grade:       "HG",
		Status:      "Nawrotowy",
		CIS:         "tak",
		LVI:         "nie",
		Variant:     "",
		ProstaticUC: "Nie",
	})

	require.NoError(t, err)
	assert.Equal(t, ClinicalFindings{
		AgeOver70:          true,
		MultipleTumors:     false,
		TumorSize3cmOrMore: true,
		TCategory:          TCategoryT1,
		Grade:              GradeHigh,
		IsPrimary:          false,
		HasConcomitantCIS:  true,
	}, findings)
}

func TestParseFindings_OriginalFormVocabulary(t *testing.T) {
	parser := NewStandardInputParser()

	findings, err := parser.ParseFindings(FindingsForm{
		Age:        "<=70",
		TumorCount: "single",
		TumorSize:  "<3cm",
		TCategory:  "Ta",
		Grade:      "LG",
		Status:     "Pierwotny",
	})

	require.NoError(t, err)
	assert.False(t, findings.AgeOver70)
	assert.False(t, findings.MultipleTumors)
	assert.False(t, findings.TumorSize3cmOrMore)
	assert.True(t, findings.IsPrimary)
	assert.Equal(t, 0, findings.ClinicalRiskFactorCount())

	findings, err = parser.ParseFindings(FindingsForm{
		Age:        ">70",
		TumorCount: "multiple",
		TumorSize:  ">=3cm",
		TCategory:  "ta",
		Grade:      "lg",
		Status:     "primary",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, findings.ClinicalRiskFactorCount())
}

func TestParseFindings_TisForcesHighGrade(t *testing.T) {
	parser := NewStandardInputParser()

	for _, grade := range []string{"", "LG", "not-a-grade"} {
		findings, err := parser.ParseFindings(FindingsForm{TCategory: "Tis", Grade: grade, Status: "primary"})
		require.NoError(t, err, "grade %q", grade)
		assert.Equal(t, GradeHigh, findings.Grade)
	}
}

func TestParseFindings_Errors(t *testing.T) {
	parser := NewStandardInputParser()

	tests := []struct {
		name  string
		form  FindingsForm
		field string
	}{
		{"unknown T category", FindingsForm{TCategory: "T2", Grade: "HG", Status: "primary"}, "t_category"},
		{"missing grade", FindingsForm{TCategory: "Ta", Status: "primary"}, "grade"},
		{"missing status", FindingsForm{TCategory: "Ta", Grade: "LG"}, "status"},
		{"bad flag", FindingsForm{TCategory: "Ta", Grade: "LG", Status: "primary", LVI: "maybe"}, "lvi"},
		{"bad age", FindingsForm{Age: "sixty", TCategory: "Ta", Grade: "LG", Status: "primary"}, "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseFindings(tt.form)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestParseGradeAndTCategory(t *testing.T) {
	g, err := ParseGrade("High")
	require.NoError(t, err)
	assert.Equal(t, GradeHigh, g)

	tc, err := ParseTCategory("pT1")
	require.NoError(t, err)
	assert.Equal(t, TCategoryT1, tc)

	_, err = ParseTCategory("T3")
	assert.Error(t, err)
}
