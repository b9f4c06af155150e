package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/feedback"
	"github.com/nmibc-risk-mcp/internal/middleware"
	"github.com/nmibc-risk-mcp/internal/service"
)

const (
	defaultFeedbackPageSize = 50
	maxFeedbackPageSize     = 500
)

// AssistantResponse pairs a case with the collaborator's answer
type AssistantResponse struct {
	Case      *service.CaseResult    `json:"case"`
	Assistant service.AssistantReply `json:"assistant"`
}

// AskRequest is a case plus a question and the caller-owned conversation so far
type AskRequest struct {
	service.CaseInput
	Question string                    `json:"question"`
	History  []domain.ConversationTurn `json:"history,omitempty"`
}

// FeedbackRequest records the clinician's risk group for a case
type FeedbackRequest struct {
	service.CaseInput
	ClinicianCategory string `json:"clinician_category"`
}

// handleHealth reports liveness plus the state of optional backends
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{
		"assistant": enabledState(s.deps.Assistant != nil && s.deps.Assistant.Enabled()),
		"feedback":  enabledState(s.deps.Feedback != nil),
	}

	if s.deps.Database != nil {
		if err := s.deps.Database.Health(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"version":   s.deps.Version,
		"checks":    checks,
	})
}

func enabledState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (s *Server) handleListProtocols(c *gin.Context) {
	protocols, err := s.deps.Evaluator.Protocols()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"protocols": protocols})
}

func (s *Server) handleGetProtocol(c *gin.Context) {
	category, err := domain.ParseRiskCategory(c.Param("category"))
	if err != nil {
		s.writeMCPError(c, http.StatusNotFound, domain.ErrNotFoundCode, "unknown risk category", c.Param("category"))
		return
	}
	protocol, err := s.deps.Evaluator.Protocol(category)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var input service.CaseInput
	if !s.bind(c, &input) {
		return
	}
	result, err := s.deps.Evaluator.EvaluateCase(input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSchedule(c *gin.Context) {
	var input service.ScheduleInput
	if !s.bind(c, &input) {
		return
	}
	result, err := s.deps.Evaluator.BuildSchedule(input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleDraftLetter never fails because of the collaborator; its failure is
// reported inside the assistant block next to a complete evaluation.
func (s *Server) handleDraftLetter(c *gin.Context) {
	var input service.CaseInput
	if !s.bind(c, &input) {
		return
	}
	result, err := s.deps.Evaluator.EvaluateCase(input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	reply := s.deps.Assistant.DraftLetter(c.Request.Context(), result.Evaluation, result.Schedule)
	s.writeAssistantResponse(c, result, reply)
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if !s.bind(c, &req) {
		return
	}
	result, err := s.deps.Evaluator.EvaluateCase(req.CaseInput)
	if err != nil {
		s.writeError(c, err)
		return
	}
	reply := s.deps.Assistant.Ask(c.Request.Context(), result.Evaluation, result.Schedule, req.History, req.Question)
	s.writeAssistantResponse(c, result, reply)
}

// writeAssistantResponse leaves the response unwritten once the request
// deadline has passed so the timeout middleware answers 504.
func (s *Server) writeAssistantResponse(c *gin.Context, result *service.CaseResult, reply service.AssistantReply) {
	if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		s.deps.Logger.WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).
			Warn("Request deadline exceeded while waiting for text generation")
		return
	}
	c.JSON(http.StatusOK, AssistantResponse{Case: result, Assistant: reply})
}

func (s *Server) requireFeedbackStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Feedback == nil {
			s.writeMCPError(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable, "feedback store is not configured", "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) handleRecordFeedback(c *gin.Context) {
	var req FeedbackRequest
	if !s.bind(c, &req) {
		return
	}
	clinician, err := domain.ParseRiskCategory(req.ClinicianCategory)
	if err != nil {
		s.writeError(c, domain.NewValidationError("clinician_category", "must be one of low, intermediate, high, veryHigh", req.ClinicianCategory))
		return
	}
	result, err := s.deps.Evaluator.EvaluateCase(req.CaseInput)
	if err != nil {
		s.writeError(c, err)
		return
	}
	fb, err := feedback.NewFeedback(result.Evaluation, clinician)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.deps.Feedback.Save(c.Request.Context(), fb); err != nil {
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to save feedback", err.Error())
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit := queryInt(c, "limit", defaultFeedbackPageSize)
	if limit <= 0 || limit > maxFeedbackPageSize {
		limit = defaultFeedbackPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	entries, err := s.deps.Feedback.List(ctx, limit, offset)
	if err != nil {
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list feedback", err.Error())
		return
	}
	total, err := s.deps.Feedback.Count(ctx)
	if err != nil {
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to count feedback", err.Error())
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	stats, err := s.deps.Feedback.Stats(c.Request.Context())
	if err != nil {
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to compute feedback stats", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="nmibc-feedback.json"`)
	c.Status(http.StatusOK)
	if err := s.deps.Feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.deps.Logger.WithError(err).Error("Feedback export failed")
	}
}

// bind decodes a JSON body and writes a 400 on failure
func (s *Server) bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		s.writeMCPError(c, http.StatusBadRequest, domain.ErrInvalidInput, "invalid JSON body", err.Error())
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses. A ConfigurationError is a
// defect on our side, never a client error.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		configErr     *domain.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		s.writeMCPError(c, http.StatusBadRequest, domain.ErrValidation, validationErr.Error(), validationErr.Field)
	case errors.As(err, &configErr):
		s.deps.Logger.WithError(err).Error("Protocol table inconsistency")
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrConfiguration, "internal configuration error", "")
	default:
		s.deps.Logger.WithError(err).Error("Request failed")
		s.writeMCPError(c, http.StatusInternalServerError, domain.ErrInternalServer, "internal server error", "")
	}
}

func (s *Server) writeMCPError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewMCPError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
