package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/service"
)

// FindingsParams describes one TURBT case. Only t_category is mandatory;
// grade is ignored for Tis.
type FindingsParams struct {
	TCategory           string `json:"t_category" jsonschema:"pathological T category: Ta, T1 or Tis"`
	Grade               string `json:"grade,omitempty" jsonschema:"WHO grade: LG or HG (ignored for Tis)"`
	IsPrimary           bool   `json:"is_primary,omitempty" jsonschema:"true for a primary tumour, false for a recurrence"`
	AgeOver70           bool   `json:"age_over_70,omitempty" jsonschema:"patient older than 70 years"`
	MultipleTumors      bool   `json:"multiple_tumors,omitempty" jsonschema:"more than one papillary tumour"`
	TumorSize3cmOrMore  bool   `json:"tumor_size_3cm_or_more,omitempty" jsonschema:"largest tumour diameter of at least 3 cm"`
	ConcomitantCIS      bool   `json:"concomitant_cis,omitempty" jsonschema:"concomitant carcinoma in situ"`
	LVI                 bool   `json:"lvi,omitempty" jsonschema:"lymphovascular invasion"`
	VariantHistology    bool   `json:"variant_histology,omitempty" jsonschema:"variant or subtype histology"`
	ProstaticUrethraCIS bool   `json:"prostatic_urethra_cis,omitempty" jsonschema:"CIS in the prostatic urethra"`
}

// CaseParams is a case plus the optional BCG induction date
type CaseParams struct {
	Findings      FindingsParams `json:"findings"`
	InductionDate string         `json:"induction_date,omitempty" jsonschema:"BCG induction date as YYYY-MM-DD or DD.MM.YYYY"`
	MonthMode     string         `json:"month_mode,omitempty" jsonschema:"thirty_day (default) or calendar"`
}

// ProtocolParams selects one risk group
type ProtocolParams struct {
	Category string `json:"category" jsonschema:"risk group: low, intermediate, high or veryHigh"`
}

// ListProtocolsParams takes no arguments
type ListProtocolsParams struct{}

// ScheduleParams requests a maintenance schedule by risk group or explicit offsets
type ScheduleParams struct {
	InductionDate string `json:"induction_date" jsonschema:"BCG induction date as YYYY-MM-DD or DD.MM.YYYY"`
	Category      string `json:"category,omitempty" jsonschema:"risk group whose maintenance offsets are used"`
	OffsetsMonths []int  `json:"offsets_months,omitempty" jsonschema:"explicit month offsets, used when category is empty"`
	MonthMode     string `json:"month_mode,omitempty" jsonschema:"thirty_day (default) or calendar"`
}

// TurnParams is one earlier turn of the conversation
type TurnParams struct {
	Role string `json:"role" jsonschema:"user or assistant"`
	Text string `json:"text"`
}

// AskParams is a question about a case
type AskParams struct {
	Findings      FindingsParams `json:"findings"`
	InductionDate string         `json:"induction_date,omitempty" jsonschema:"BCG induction date as YYYY-MM-DD or DD.MM.YYYY"`
	MonthMode     string         `json:"month_mode,omitempty" jsonschema:"thirty_day (default) or calendar"`
	Question      string         `json:"question" jsonschema:"free-text question about the case"`
	History       []TurnParams   `json:"history,omitempty" jsonschema:"earlier turns, oldest first"`
}

func (p AskParams) caseParams() CaseParams {
	return CaseParams{Findings: p.Findings, InductionDate: p.InductionDate, MonthMode: p.MonthMode}
}

// toFindings converts tool arguments into domain findings, accepting the same
// spellings as the questionnaire parser.
func (p FindingsParams) toFindings() (domain.ClinicalFindings, error) {
	tCategory, err := domain.ParseTCategory(p.TCategory)
	if err != nil {
		return domain.ClinicalFindings{}, err
	}
	findings := domain.ClinicalFindings{
		AgeOver70:               p.AgeOver70,
		MultipleTumors:          p.MultipleTumors,
		TumorSize3cmOrMore:      p.TumorSize3cmOrMore,
		TCategory:               tCategory,
		IsPrimary:               p.IsPrimary,
		HasConcomitantCIS:       p.ConcomitantCIS,
		HasLVI:                  p.LVI,
		HasVariantHistology:     p.VariantHistology,
		HasProstaticUrethralCIS: p.ProstaticUrethraCIS,
	}
	if tCategory != domain.TCategoryTis {
		if findings.Grade, err = domain.ParseGrade(p.Grade); err != nil {
			return domain.ClinicalFindings{}, err
		}
	}
	return findings, nil
}

func (p CaseParams) toCaseInput() (service.CaseInput, error) {
	findings, err := p.Findings.toFindings()
	if err != nil {
		return service.CaseInput{}, err
	}
	return service.CaseInput{
		Findings:      &findings,
		InductionDate: p.InductionDate,
		MonthMode:     p.MonthMode,
	}, nil
}

func (p AskParams) history() ([]domain.ConversationTurn, error) {
	turns := make([]domain.ConversationTurn, 0, len(p.History))
	for _, turn := range p.History {
		role := domain.ConversationRole(strings.ToLower(strings.TrimSpace(turn.Role)))
		if role != domain.RoleUser && role != domain.RoleAssistant {
			return nil, domain.NewValidationError("history.role", "must be user or assistant", turn.Role)
		}
		turns = append(turns, domain.ConversationTurn{Role: role, Text: turn.Text})
	}
	return turns, nil
}

// evaluateCase runs the evaluation shared by all case-based tools
func (s *Server) evaluateCase(params CaseParams) (*service.CaseResult, error) {
	input, err := params.toCaseInput()
	if err != nil {
		return nil, err
	}
	return s.evaluator.EvaluateCase(input)
}

// handleClassifyRisk handles the classify_risk tool invocation
func (s *Server) handleClassifyRisk(ctx context.Context, req *mcp.CallToolRequest, params CaseParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "classify_risk").Info("Tool invoked")

	result, err := s.evaluateCase(params)
	if err != nil {
		return s.toolError("Classification failed", err)
	}
	return s.jsonResult(result.Summary, result)
}

// handleGetProtocol handles the get_protocol tool invocation
func (s *Server) handleGetProtocol(ctx context.Context, req *mcp.CallToolRequest, params ProtocolParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_protocol").Info("Tool invoked")

	category, err := domain.ParseRiskCategory(params.Category)
	if err != nil {
		return s.toolError("Unknown risk group", domain.NewValidationError("category", "must be one of low, intermediate, high, veryHigh", params.Category))
	}
	protocol, err := s.evaluator.Protocol(category)
	if err != nil {
		return s.toolError("Protocol lookup failed", err)
	}
	return s.jsonResult(fmt.Sprintf("EAU 2025 protocol for risk group %s", protocol.DisplayLabel), protocol)
}

// handleListProtocols handles the list_protocols tool invocation
func (s *Server) handleListProtocols(ctx context.Context, req *mcp.CallToolRequest, _ ListProtocolsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_protocols").Info("Tool invoked")

	protocols, err := s.evaluator.Protocols()
	if err != nil {
		return s.toolError("Protocol lookup failed", err)
	}
	return s.jsonResult(fmt.Sprintf("%d EAU 2025 risk groups", len(protocols)), protocols)
}

// handleGenerateSchedule handles the generate_schedule tool invocation
func (s *Server) handleGenerateSchedule(ctx context.Context, req *mcp.CallToolRequest, params ScheduleParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "generate_schedule").Info("Tool invoked")

	result, err := s.evaluator.BuildSchedule(service.ScheduleInput{
		InductionDate: params.InductionDate,
		Category:      params.Category,
		OffsetsMonths: params.OffsetsMonths,
		MonthMode:     params.MonthMode,
	})
	if err != nil {
		return s.toolError("Schedule generation failed", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "BCG maintenance schedule from %s (%s):", result.InductionDate, result.MonthMode)
	if len(result.Schedule) == 0 {
		b.WriteString(" no maintenance cycles")
	}
	for _, entry := range result.Schedule {
		fmt.Fprintf(&b, "\n- month %d: %s", entry.MonthOffset, entry.FormattedDate())
	}
	return s.jsonResult(b.String(), result)
}

// handleDraftPatientLetter handles the draft_patient_letter tool invocation.
// Collaborator failures are reported in the payload, never as tool errors.
func (s *Server) handleDraftPatientLetter(ctx context.Context, req *mcp.CallToolRequest, params CaseParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "draft_patient_letter").Info("Tool invoked")

	result, err := s.evaluateCase(params)
	if err != nil {
		return s.toolError("Classification failed", err)
	}
	reply := s.assistant.DraftLetter(ctx, result.Evaluation, result.Schedule)
	return s.assistantResult(result, reply)
}

// handleAskAssistant handles the ask_assistant tool invocation
func (s *Server) handleAskAssistant(ctx context.Context, req *mcp.CallToolRequest, params AskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "ask_assistant").Info("Tool invoked")

	history, err := params.history()
	if err != nil {
		return s.toolError("Invalid conversation history", err)
	}
	result, err := s.evaluateCase(params.caseParams())
	if err != nil {
		return s.toolError("Classification failed", err)
	}
	reply := s.assistant.Ask(ctx, result.Evaluation, result.Schedule, history, params.Question)
	return s.assistantResult(result, reply)
}

func (s *Server) assistantResult(result *service.CaseResult, reply service.AssistantReply) (*mcp.CallToolResult, any, error) {
	payload := struct {
		Case      *service.CaseResult    `json:"case"`
		Assistant service.AssistantReply `json:"assistant"`
	}{result, reply}

	headline := reply.Text
	if !reply.Available {
		headline = fmt.Sprintf("Assistant unavailable (%s). Evaluation:\n%s", reply.Error, result.Summary)
	}
	return s.jsonResult(headline, payload)
}

// jsonResult returns a human-readable headline followed by the JSON payload
func (s *Server) jsonResult(headline string, payload any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: headline},
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// toolError converts input problems into tool-level errors the model can read.
// Anything else is an internal fault and is returned as a protocol error.
func (s *Server) toolError(message string, err error) (*mcp.CallToolResult, any, error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, domain.ErrInvalidRiskCategory) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
			},
		}, nil, nil
	}

	s.logger.WithError(err).Error(message)
	return nil, nil, fmt.Errorf("%s: %w", strings.ToLower(message), err)
}
