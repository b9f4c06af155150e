package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClinicalRiskFactorCount(t *testing.T) {
	tests := []struct {
		name     string
		findings ClinicalFindings
		expected int
	}{
		{"none", ClinicalFindings{}, 0},
		{"age only", ClinicalFindings{AgeOver70: true}, 1},
		{"multiple and size", ClinicalFindings{MultipleTumors: true, TumorSize3cmOrMore: true}, 2},
		{"all three", ClinicalFindings{AgeOver70: true, MultipleTumors: true, TumorSize3cmOrMore: true}, 3},
		{"other flags do not count", ClinicalFindings{HasLVI: true, HasConcomitantCIS: true, IsPrimary: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.findings.ClinicalRiskFactorCount())
		})
	}
}

func TestEffectiveGrade(t *testing.T) {
	assert.Equal(t, GradeHigh, ClinicalFindings{TCategory: TCategoryTis, Grade: GradeLow}.EffectiveGrade())
	assert.Equal(t, GradeHigh, ClinicalFindings{TCategory: TCategoryTis}.EffectiveGrade())
	assert.Equal(t, GradeLow, ClinicalFindings{TCategory: TCategoryTa, Grade: GradeLow}.EffectiveGrade())
	assert.Equal(t, GradeHigh, ClinicalFindings{TCategory: TCategoryT1, Grade: GradeHigh}.EffectiveGrade())
}

func TestClinicalFindingsValidate(t *testing.T) {
	t.Run("valid Ta LG", func(t *testing.T) {
		assert.NoError(t, ClinicalFindings{TCategory: TCategoryTa, Grade: GradeLow}.Validate())
	})

	t.Run("Tis ignores grade", func(t *testing.T) {
		assert.NoError(t, ClinicalFindings{TCategory: TCategoryTis, Grade: "garbage"}.Validate())
	})

	t.Run("unknown T category", func(t *testing.T) {
		err := ClinicalFindings{TCategory: "T2", Grade: GradeHigh}.Validate()
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "t_category", vErr.Field)
	})

	t.Run("missing grade", func(t *testing.T) {
		err := ClinicalFindings{TCategory: TCategoryT1}.Validate()
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "grade", vErr.Field)
	})
}

func TestSignature(t *testing.T) {
	a := ClinicalFindings{TCategory: TCategoryTis, Grade: GradeLow, IsPrimary: true}
	b := ClinicalFindings{TCategory: TCategoryTis, Grade: GradeHigh, IsPrimary: true}
	c := ClinicalFindings{TCategory: TCategoryTis, Grade: GradeHigh, IsPrimary: false}

	assert.Equal(t, a.Signature(), b.Signature(), "Tis signatures must not depend on the stored grade")
	assert.NotEqual(t, b.Signature(), c.Signature())
	assert.True(t, strings.HasPrefix(b.Signature(), "Tis|HG|"))
}

func TestDescribe(t *testing.T) {
	lines := ClinicalFindings{TCategory: TCategoryT1, Grade: GradeHigh, AgeOver70: true, IsPrimary: true}.Describe()

	assert.Contains(t, lines, "T category: T1")
	assert.Contains(t, lines, "Grade: HG")
	assert.Contains(t, lines, "Tumour status: primary")
	assert.Contains(t, lines, "Age over 70: yes")
	assert.Contains(t, lines, "Lymphovascular invasion: no")
}

func TestProtocolRecordClone(t *testing.T) {
	induction := "6 weekly instillations"
	original := ProtocolRecord{
		Category:                 RiskHigh,
		InductionDescription:     &induction,
		MaintenanceOffsetsMonths: []int{3, 6, 12},
	}

	clone := original.Clone()
	clone.MaintenanceOffsetsMonths[0] = 99
	*clone.InductionDescription = "changed"

	assert.Equal(t, []int{3, 6, 12}, original.MaintenanceOffsetsMonths)
	assert.Equal(t, "6 weekly instillations", *original.InductionDescription)

	empty := ProtocolRecord{Category: RiskLow}.Clone()
	assert.NotNil(t, empty.MaintenanceOffsetsMonths)
	assert.False(t, empty.HasMaintenanceSchedule())
	assert.Nil(t, empty.InductionDescription)

	noMaintenance := ProtocolRecord{Category: RiskLow, MaintenanceOffsetsMonths: []int{}}.Clone()
	require.NotNil(t, noMaintenance.MaintenanceOffsetsMonths)
	data, err := json.Marshal(noMaintenance.MaintenanceOffsetsMonths)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestScheduleEntryJSON(t *testing.T) {
	entry := ScheduleEntry{MonthOffset: 3, Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"month_offset":3,"date":"01.04.2025"}`, string(data))

	var decoded ScheduleEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.MonthOffset)
	assert.True(t, entry.Date.Equal(decoded.Date))

	assert.Error(t, json.Unmarshal([]byte(`{"month_offset":3,"date":"2025-04-01"}`), &decoded))
}

func TestParseMonthMode(t *testing.T) {
	mode, err := ParseMonthMode("")
	require.NoError(t, err)
	assert.Equal(t, ThirtyDayMonths, mode)

	mode, err = ParseMonthMode("thirty_day")
	require.NoError(t, err)
	assert.Equal(t, ThirtyDayMonths, mode)

	mode, err = ParseMonthMode("Calendar")
	require.NoError(t, err)
	assert.Equal(t, CalendarMonths, mode)

	_, err = ParseMonthMode("lunar")
	assert.Error(t, err)
}

func TestParseInductionDate(t *testing.T) {
	date, err := ParseInductionDate("")
	require.NoError(t, err)
	assert.Nil(t, date)

	date, err = ParseInductionDate("2025-01-01")
	require.NoError(t, err)
	require.NotNil(t, date)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *date)

	date, err = ParseInductionDate("15.03.2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *date)

	_, err = ParseInductionDate("03/15/2025")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "induction_date", vErr.Field)
}
