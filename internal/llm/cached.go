package llm

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/cache"
	"github.com/nmibc-risk-mcp/internal/domain"
)

// CachedGenerator serves repeated identical requests from a cache.
// Failed generations are never cached.
type CachedGenerator struct {
	next   domain.TextGenerator
	cache  cache.Cache
	logger *logrus.Logger
}

// NewCachedGenerator wraps next with a response cache
func NewCachedGenerator(next domain.TextGenerator, c cache.Cache, logger *logrus.Logger) *CachedGenerator {
	return &CachedGenerator{next: next, cache: c, logger: logger}
}

// Name returns the wrapped provider name.
func (g *CachedGenerator) Name() string {
	return g.next.Name()
}

// GenerateText returns a cached response when one exists, otherwise calls the provider.
func (g *CachedGenerator) GenerateText(ctx context.Context, req domain.TextRequest) (string, error) {
	key := requestKey(g.next.Name(), req)

	if text, ok, err := g.cache.Get(ctx, key); err != nil {
		g.logger.WithError(err).Warn("Failed to read text generation cache")
	} else if ok {
		g.logger.WithField("provider", g.next.Name()).Debug("Text generation served from cache")
		return text, nil
	}

	text, err := g.next.GenerateText(ctx, req)
	if err != nil {
		return "", err
	}

	if err := g.cache.Set(ctx, key, text, 0); err != nil {
		g.logger.WithError(err).Warn("Failed to write text generation cache")
	}
	return text, nil
}

func requestKey(provider string, req domain.TextRequest) string {
	parts := []string{provider, req.System, req.Context}
	for _, turn := range req.History {
		parts = append(parts, string(turn.Role), turn.Text)
	}
	return cache.Key("text", parts...)
}
