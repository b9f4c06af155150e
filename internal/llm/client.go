// Package llm contains the text-generation providers behind domain.TextGenerator
// together with the resilience and caching wrappers applied to them.
package llm

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/cache"
	"github.com/nmibc-risk-mcp/internal/domain"
)

// Supported provider names
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewProvider creates the raw provider client named by the configuration.
func NewProvider(cfg domain.AssistantConfig) (domain.TextGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderGemini:
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewTextGenerator builds the full collaborator stack: provider, circuit breaker
// and rate limiter, then an optional response cache. It returns nil without an
// error when no provider is configured.
func NewTextGenerator(cfg domain.AssistantConfig, logger *logrus.Logger, responses cache.Cache) (domain.TextGenerator, error) {
	if IsDisabled(cfg.Provider) {
		logger.Info("No text generation provider configured, assistant features disabled")
		return nil, nil
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	var generator domain.TextGenerator = NewResilientGenerator(provider, cfg, logger)
	if responses != nil {
		generator = NewCachedGenerator(generator, responses, logger)
	}

	logger.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"cached":   responses != nil,
	}).Info("Text generation provider configured")

	return generator, nil
}

// IsDisabled reports whether the provider setting means "no collaborator".
func IsDisabled(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderNone, "off", "disabled":
		return true
	}
	return false
}

// conversation returns the history followed by the current context as the final user turn.
func conversation(req domain.TextRequest) []domain.ConversationTurn {
	turns := make([]domain.ConversationTurn, 0, len(req.History)+1)
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return append(turns, domain.ConversationTurn{Role: domain.RoleUser, Text: req.Context})
}
