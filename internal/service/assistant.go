package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// AssistantReply is the outcome of one collaborator call. A failed call is
// reported here instead of failing the surrounding evaluation.
type AssistantReply struct {
	Available bool   `json:"available"`
	Provider  string `json:"provider,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AssistantService drafts patient letters and answers clinician questions
// through an injected text generator. It keeps no conversation state.
type AssistantService struct {
	logger    *logrus.Logger
	generator domain.TextGenerator
	language  string
}

// NewAssistantService creates an assistant. generator may be nil when no provider is configured.
func NewAssistantService(logger *logrus.Logger, generator domain.TextGenerator, language string) *AssistantService {
	if language == "" {
		language = "pl"
	}
	return &AssistantService{
		logger:    logger,
		generator: generator,
		language:  language,
	}
}

// Enabled reports whether a text generator is configured.
func (a *AssistantService) Enabled() bool {
	return a.generator != nil
}

// DraftLetter asks the collaborator for a plain-language letter explaining the
// evaluation to the patient.
func (a *AssistantService) DraftLetter(ctx context.Context, evaluation *domain.Evaluation, schedule []domain.ScheduleEntry) AssistantReply {
	req := domain.TextRequest{
		System:  a.systemPrompt(),
		Context: BuildCaseSummary(evaluation, schedule) + "\n" + a.letterInstruction(),
	}
	return a.call(ctx, "draft_letter", evaluation, req)
}

// Ask answers a free-text question about the evaluation. history is the
// caller-owned ordered log of earlier turns and is forwarded unchanged.
func (a *AssistantService) Ask(ctx context.Context, evaluation *domain.Evaluation, schedule []domain.ScheduleEntry, history []domain.ConversationTurn, question string) AssistantReply {
	question = strings.TrimSpace(question)
	if question == "" {
		return AssistantReply{Available: a.Enabled(), Error: "question must not be empty"}
	}
	req := domain.TextRequest{
		System:  a.systemPrompt(),
		Context: BuildCaseSummary(evaluation, schedule) + "\nQuestion: " + question,
		History: history,
	}
	return a.call(ctx, "ask", evaluation, req)
}

func (a *AssistantService) call(ctx context.Context, action string, evaluation *domain.Evaluation, req domain.TextRequest) AssistantReply {
	if a.generator == nil {
		return AssistantReply{Available: false, Error: domain.ErrFeatureUnavailable.Error()}
	}

	provider := a.generator.Name()
	fields := logrus.Fields{
		"action":        action,
		"provider":      provider,
		"risk_category": evaluation.Category,
		"history_turns": len(req.History),
	}

	text, err := a.generator.GenerateText(ctx, req)
	if err != nil {
		var failure *domain.CollaboratorFailure
		if !errors.As(err, &failure) {
			failure = domain.NewCollaboratorFailure(provider, err)
		}
		a.logger.WithFields(fields).WithError(failure).Warn("Text generation failed")
		return AssistantReply{
			Available: false,
			Provider:  provider,
			Error:     fmt.Sprintf("%s: %v", domain.ErrFeatureUnavailable, failure),
		}
	}

	a.logger.WithFields(fields).Debug("Text generation completed")
	return AssistantReply{
		Available: true,
		Provider:  provider,
		Text:      strings.TrimSpace(text),
	}
}

func (a *AssistantService) systemPrompt() string {
	return "You are a urology assistant supporting clinicians who treat non-muscle-invasive bladder cancer " +
		"according to the EAU 2025 guidelines. Base every answer on the case summary provided. " +
		"Do not change the risk group or the protocol. Answer in language: " + a.language + "."
}

func (a *AssistantService) letterInstruction() string {
	return "Write a short, plain-language letter to the patient explaining the risk group, " +
		"the planned treatment and the follow-up schedule. Avoid medical jargon and do not include any names."
}
