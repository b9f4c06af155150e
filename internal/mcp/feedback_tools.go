package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/feedback"
)

// RecordFeedbackParams stores the clinician's risk group for a case
type RecordFeedbackParams struct {
	Findings          FindingsParams `json:"findings"`
	ClinicianCategory string         `json:"clinician_category" jsonschema:"risk group chosen by the clinician: low, intermediate, high or veryHigh"`
}

// ListFeedbackParams pages through stored feedback
type ListFeedbackParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum entries to return (default 20, max 200)"`
	Offset int `json:"offset,omitempty"`
}

// FeedbackStatsParams takes no arguments
type FeedbackStatsParams struct{}

// ExportFeedbackParams names the export file
type ExportFeedbackParams struct {
	Filename string `json:"filename,omitempty" jsonschema:"file name inside the export directory; defaults to a timestamped name"`
}

// ImportFeedbackParams points at a previous export
type ImportFeedbackParams struct {
	Path string `json:"path" jsonschema:"path of a JSON file produced by export_feedback"`
}

const (
	defaultFeedbackListLimit = 20
	maxFeedbackListLimit     = 200
)

// registerFeedbackTools registers feedback tools when a store is configured
func (s *Server) registerFeedbackTools() {
	if s.feedbackStore == nil {
		s.logger.Info("Feedback store disabled, feedback tools not registered")
		return
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_feedback",
		Description: "Record the risk group a clinician assigned to a case. Only the tumour feature combination is stored, never patient data. Re-recording the same combination overwrites the earlier verdict.",
	}, s.handleRecordFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_feedback",
		Description: "List recorded clinician feedback, newest first.",
	}, s.handleListFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feedback_stats",
		Description: "Agreement between suggested and clinician-assigned risk groups, per suggested group.",
	}, s.handleFeedbackStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_feedback",
		Description: "Export all feedback to a JSON file in the export directory.",
	}, s.handleExportFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "import_feedback",
		Description: "Import feedback from a JSON export. Combinations that already have feedback are skipped.",
	}, s.handleImportFeedback)

	s.logger.Debug("Registered feedback tools")
}

func (s *Server) handleRecordFeedback(ctx context.Context, req *mcp.CallToolRequest, params RecordFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "record_feedback").Info("Tool invoked")

	clinician, err := domain.ParseRiskCategory(params.ClinicianCategory)
	if err != nil {
		return s.toolError("Invalid clinician category", domain.NewValidationError("clinician_category", "must be one of low, intermediate, high, veryHigh", params.ClinicianCategory))
	}
	result, err := s.evaluateCase(CaseParams{Findings: params.Findings})
	if err != nil {
		return s.toolError("Classification failed", err)
	}
	fb, err := feedback.NewFeedback(result.Evaluation, clinician)
	if err != nil {
		return s.toolError("Invalid feedback", err)
	}
	if err := s.feedbackStore.Save(ctx, fb); err != nil {
		return s.toolError("Failed to save feedback", err)
	}

	verdict := "agrees with"
	if !fb.Agreed {
		verdict = "differs from"
	}
	headline := fmt.Sprintf("Feedback recorded: clinician group %s %s suggested group %s", fb.ClinicianCategory, verdict, fb.SuggestedCategory)
	return s.jsonResult(headline, fb)
}

func (s *Server) handleListFeedback(ctx context.Context, req *mcp.CallToolRequest, params ListFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_feedback").Info("Tool invoked")

	limit := params.Limit
	if limit <= 0 {
		limit = defaultFeedbackListLimit
	}
	if limit > maxFeedbackListLimit {
		limit = maxFeedbackListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := s.feedbackStore.List(ctx, limit, offset)
	if err != nil {
		return s.toolError("Failed to list feedback", err)
	}
	total, err := s.feedbackStore.Count(ctx)
	if err != nil {
		return s.toolError("Failed to count feedback", err)
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}
	return s.jsonResult(fmt.Sprintf("Showing %d of %d feedback entries", len(entries), total), entries)
}

func (s *Server) handleFeedbackStats(ctx context.Context, req *mcp.CallToolRequest, _ FeedbackStatsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "feedback_stats").Info("Tool invoked")

	stats, err := s.feedbackStore.Stats(ctx)
	if err != nil {
		return s.toolError("Failed to compute feedback stats", err)
	}

	var b strings.Builder
	b.WriteString("Agreement by suggested risk group:")
	if len(stats) == 0 {
		b.WriteString(" no feedback yet")
	}
	for _, st := range stats {
		fmt.Fprintf(&b, "\n- %s: %d/%d (%.0f%%)", st.Category, st.Agreed, st.Total, st.AgreementRate*100)
	}
	return s.jsonResult(b.String(), stats)
}

func (s *Server) handleExportFeedback(ctx context.Context, req *mcp.CallToolRequest, params ExportFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "export_feedback").Info("Tool invoked")

	name := params.Filename
	if name == "" {
		name = fmt.Sprintf("feedback-%s.json", time.Now().UTC().Format("20060102-150405"))
	}
	if filepath.Base(name) != name {
		return s.toolError("Invalid filename", domain.NewValidationError("filename", "must not contain directories", name))
	}

	path := filepath.Join(s.exportDir, name)
	file, err := os.Create(path)
	if err != nil {
		return s.toolError("Failed to create export file", err)
	}
	defer file.Close()

	if err := s.feedbackStore.ExportJSON(ctx, file); err != nil {
		return s.toolError("Failed to export feedback", err)
	}
	return s.jsonResult("Feedback exported to "+path, map[string]string{"path": path})
}

func (s *Server) handleImportFeedback(ctx context.Context, req *mcp.CallToolRequest, params ImportFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "import_feedback").Info("Tool invoked")

	if params.Path == "" {
		return s.toolError("Invalid path", domain.NewValidationError("path", "is required", params.Path))
	}
	file, err := os.Open(params.Path)
	if err != nil {
		return s.toolError("Failed to open import file", domain.NewValidationError("path", err.Error(), params.Path))
	}
	defer file.Close()

	imported, skipped, err := s.feedbackStore.ImportJSON(ctx, file)
	if err != nil {
		return s.toolError("Failed to import feedback", domain.NewValidationError("path", err.Error(), params.Path))
	}
	return s.jsonResult(
		fmt.Sprintf("Imported %d feedback entries, skipped %d", imported, skipped),
		map[string]int{"imported": imported, "skipped": skipped},
	)
}
