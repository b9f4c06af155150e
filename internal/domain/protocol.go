package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleDateLayout is the DD.MM.YYYY layout used for schedule dates.
const ScheduleDateLayout = "02.01.2006"

// ProtocolRecord is the fixed bundle of guideline text associated with one risk category.
type ProtocolRecord struct {
	Category                 RiskCategory `json:"category"`
	DisplayLabel             string       `json:"display_label"`
	StyleTag                 string       `json:"style_tag"`
	ShortRecommendation      string       `json:"short_recommendation"`
	TreatmentText            string       `json:"treatment_text"`
	InductionDescription     *string      `json:"induction_description"`
	MaintenanceOffsetsMonths []int        `json:"maintenance_offsets_months"`
	FollowUpText             string       `json:"follow_up_text"`
}

// HasMaintenanceSchedule reports whether the protocol defines maintenance cycles.
func (p ProtocolRecord) HasMaintenanceSchedule() bool {
	return len(p.MaintenanceOffsetsMonths) > 0
}

// Clone returns a deep copy so callers can never alias registry storage.
func (p ProtocolRecord) Clone() ProtocolRecord {
	clone := p
	if p.InductionDescription != nil {
		desc := *p.InductionDescription
		clone.InductionDescription = &desc
	}
	// never nil, so JSON always renders a list
	clone.MaintenanceOffsetsMonths = make([]int, len(p.MaintenanceOffsetsMonths))
	copy(clone.MaintenanceOffsetsMonths, p.MaintenanceOffsetsMonths)
	return clone
}

// MonthMode selects how a "month" offset is converted to a date.
type MonthMode string

const (
	// ThirtyDayMonths treats every month as exactly 30 days. Default.
	ThirtyDayMonths MonthMode = "thirty_day"
	// CalendarMonths adds true calendar months. Only used when explicitly requested.
	CalendarMonths MonthMode = "calendar"
)

// ParseMonthMode maps an optional request value to a MonthMode.
// An empty string selects ThirtyDayMonths.
func ParseMonthMode(s string) (MonthMode, error) {
	switch normalizeToken(s) {
	case "", "thirtyday", "30day", "30days", "days":
		return ThirtyDayMonths, nil
	case "calendar", "calendarmonths":
		return CalendarMonths, nil
	default:
		return "", NewValidationError("month_mode", "must be thirty_day or calendar", s)
	}
}

// ParseInductionDate accepts YYYY-MM-DD or DD.MM.YYYY. An empty string
// means the date was not supplied and returns nil without error.
func ParseInductionDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", ScheduleDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, NewValidationError("induction_date", "must be YYYY-MM-DD or DD.MM.YYYY", s)
}

// ScheduleEntry is one dated maintenance milestone.
type ScheduleEntry struct {
	MonthOffset int       `json:"month_offset"`
	Date        time.Time `json:"date"`
}

// FormattedDate returns the date in DD.MM.YYYY form.
func (e ScheduleEntry) FormattedDate() string {
	return e.Date.Format(ScheduleDateLayout)
}

// MarshalJSON renders the date as DD.MM.YYYY.
func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MonthOffset int    `json:"month_offset"`
		Date        string `json:"date"`
	}{
		MonthOffset: e.MonthOffset,
		Date:        e.FormattedDate(),
	})
}

// UnmarshalJSON accepts the DD.MM.YYYY form produced by MarshalJSON.
func (e *ScheduleEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		MonthOffset int    `json:"month_offset"`
		Date        string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(ScheduleDateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("invalid schedule date %q: %w", raw.Date, err)
	}
	e.MonthOffset = raw.MonthOffset
	e.Date = date
	return nil
}

// RuleID identifies the classification tier that produced a category.
type RuleID string

const (
	RuleVeryHighOverride    RuleID = "very_high_override"
	RuleVeryHighTable       RuleID = "very_high_table"
	RuleHighTable           RuleID = "high_table"
	RuleLowCriteria         RuleID = "low_criteria"
	RuleDefaultIntermediate RuleID = "default_intermediate"
)

// Evaluation is the outcome of classifying one case and looking up its protocol.
type Evaluation struct {
	Findings                ClinicalFindings `json:"findings"`
	ClinicalRiskFactorCount int              `json:"clinical_risk_factor_count"`
	Category                RiskCategory     `json:"category"`
	MatchedRule             RuleID           `json:"matched_rule"`
	Protocol                ProtocolRecord   `json:"protocol"`
	EvaluatedAt             time.Time        `json:"evaluated_at"`
}
