package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nmibc-risk-mcp/internal/domain"
)

// ResilientGenerator guards a provider with a rate limiter, a per-call timeout
// and a circuit breaker. It makes exactly one provider attempt per call and
// reports every failure as a *domain.CollaboratorFailure.
type ResilientGenerator struct {
	next    domain.TextGenerator
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logrus.Logger
}

// NewResilientGenerator wraps next using the assistant configuration
func NewResilientGenerator(next domain.TextGenerator, cfg domain.AssistantConfig, logger *logrus.Logger) *ResilientGenerator {
	cb := cfg.CircuitBreaker
	consecutive := cb.ConsecutiveFailures
	if consecutive == 0 {
		consecutive = 3
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cb.MaxRequests,
		Interval:    cb.Interval,
		Timeout:     cb.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutive
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("Text generation circuit breaker changed state")
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not a provider fault
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &ResilientGenerator{
		next:    next,
		breaker: breaker,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Name returns the wrapped provider name.
func (r *ResilientGenerator) Name() string {
	return r.next.Name()
}

// GenerateText performs a single guarded provider call.
func (r *ResilientGenerator) GenerateText(ctx context.Context, req domain.TextRequest) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", domain.NewCollaboratorFailure(r.Name(), fmt.Errorf("rate limit: %w", err))
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.GenerateText(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.NewCollaboratorFailure(r.Name(), fmt.Errorf("service unavailable (circuit breaker open): %w", err))
		}
		return "", domain.NewCollaboratorFailure(r.Name(), err)
	}

	return result.(string), nil
}

// State returns the circuit breaker state.
func (r *ResilientGenerator) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the circuit breaker counters.
func (r *ResilientGenerator) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}
