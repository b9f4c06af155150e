package service

import (
	"github.com/nmibc-risk-mcp/internal/domain"
)

// CaseInput is the transport-neutral description of one case. Exactly one of
// Findings or Form should be set; Findings wins when both are present.
type CaseInput struct {
	Findings      *domain.ClinicalFindings `json:"findings,omitempty"`
	Form          *domain.FindingsForm     `json:"form,omitempty"`
	InductionDate string                   `json:"induction_date,omitempty"` // YYYY-MM-DD or DD.MM.YYYY
	MonthMode     string                   `json:"month_mode,omitempty"`     // thirty_day (default) | calendar
}

// CaseResult bundles an evaluation with its schedule and printable summary.
type CaseResult struct {
	Evaluation *domain.Evaluation     `json:"evaluation"`
	Schedule   []domain.ScheduleEntry `json:"schedule,omitempty"`
	Summary    string                 `json:"summary"`
}

// EvaluateCase parses the input, evaluates it and builds the schedule when an
// induction date is given. Every input problem surfaces as a ValidationError.
func (s *EvaluationService) EvaluateCase(input CaseInput) (*CaseResult, error) {
	findings, err := s.findingsFrom(input)
	if err != nil {
		return nil, err
	}

	mode, err := domain.ParseMonthMode(input.MonthMode)
	if err != nil {
		return nil, err
	}
	inductionDate, err := domain.ParseInductionDate(input.InductionDate)
	if err != nil {
		return nil, err
	}

	evaluation, err := s.Evaluate(findings)
	if err != nil {
		return nil, err
	}

	schedule := s.Schedule(evaluation.Protocol, inductionDate, mode)
	return &CaseResult{
		Evaluation: evaluation,
		Schedule:   schedule,
		Summary:    BuildCaseSummary(evaluation, schedule),
	}, nil
}

func (s *EvaluationService) findingsFrom(input CaseInput) (domain.ClinicalFindings, error) {
	switch {
	case input.Findings != nil:
		return *input.Findings, nil
	case input.Form != nil:
		return s.parser.ParseFindings(*input.Form)
	default:
		return domain.ClinicalFindings{}, domain.NewValidationError("findings", "either findings or form is required", nil)
	}
}

// ScheduleInput asks for a maintenance schedule either for a risk category's
// protocol or for explicit month offsets.
type ScheduleInput struct {
	InductionDate string `json:"induction_date"`
	Category      string `json:"category,omitempty"`
	OffsetsMonths []int  `json:"offsets_months,omitempty"`
	MonthMode     string `json:"month_mode,omitempty"`
}

// ScheduleResult is the generated schedule with the inputs that produced it.
type ScheduleResult struct {
	Category      domain.RiskCategory    `json:"category,omitempty"`
	InductionDate string                 `json:"induction_date"`
	MonthMode     domain.MonthMode       `json:"month_mode"`
	Schedule      []domain.ScheduleEntry `json:"schedule"`
}

// BuildSchedule validates a schedule request. Unlike registry offsets,
// caller-supplied offsets must be non-negative.
func (s *EvaluationService) BuildSchedule(input ScheduleInput) (*ScheduleResult, error) {
	inductionDate, err := domain.ParseInductionDate(input.InductionDate)
	if err != nil {
		return nil, err
	}
	if inductionDate == nil {
		return nil, domain.NewSentinelValidationError(domain.ErrMissingInductionDate, "induction_date", "is required", input.InductionDate)
	}
	mode, err := domain.ParseMonthMode(input.MonthMode)
	if err != nil {
		return nil, err
	}

	result := &ScheduleResult{
		InductionDate: inductionDate.Format(domain.ScheduleDateLayout),
		MonthMode:     mode,
	}

	offsets := input.OffsetsMonths
	if input.Category != "" {
		category, err := domain.ParseRiskCategory(input.Category)
		if err != nil {
			return nil, domain.NewSentinelValidationError(domain.ErrInvalidRiskCategory, "category", "must be one of low, intermediate, high, veryHigh", input.Category)
		}
		protocol, err := s.protocols.Lookup(category)
		if err != nil {
			return nil, err
		}
		result.Category = category
		offsets = protocol.MaintenanceOffsetsMonths
	} else {
		for _, offset := range offsets {
			if offset < 0 {
				return nil, domain.NewValidationError("offsets_months", "offsets must not be negative", offset)
			}
		}
	}

	result.Schedule = s.scheduler.GenerateWithMode(*inductionDate, offsets, mode)
	if result.Schedule == nil {
		result.Schedule = []domain.ScheduleEntry{}
	}
	return result, nil
}
