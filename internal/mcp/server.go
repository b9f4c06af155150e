// Package mcp exposes NMIBC risk classification, protocols, schedules and the
// optional writing assistant as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/cache"
	"github.com/nmibc-risk-mcp/internal/config"
	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/feedback"
	"github.com/nmibc-risk-mcp/internal/llm"
	"github.com/nmibc-risk-mcp/internal/service"
)

// ServerName is reported to MCP clients
const ServerName = "nmibc-risk-mcp"

// Version is set at build time via -ldflags
var Version = "v0.1.0"

// Server is a self-contained MCP server. It needs no external services:
// collaborator responses are cached in memory and feedback goes to SQLite.
type Server struct {
	config        *config.LiteConfig
	mcpServer     *mcp.Server
	evaluator     *service.EvaluationService
	assistant     *service.AssistantService
	feedbackStore feedback.Store
	cache         *cache.MemoryCache
	exportDir     string
	logger        *logrus.Logger

	generator    domain.TextGenerator
	generatorSet bool
	storeSet     bool
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithFeedbackStore sets a custom feedback store. nil disables feedback tools.
func WithFeedbackStore(store feedback.Store) ServerOption {
	return func(s *Server) error {
		s.feedbackStore = store
		s.storeSet = true
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithTextGenerator overrides the configured collaborator. nil disables it.
func WithTextGenerator(generator domain.TextGenerator) ServerOption {
	return func(s *Server) error {
		s.generator = generator
		s.generatorSet = true
		return nil
	}
}

// NewServer creates a new MCP server instance.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config:    cfg,
		logger:    config.NewLogger(cfg.LoggingConfig()),
		exportDir: cfg.ExportDir(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	memCache, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	server.cache = memCache

	if !server.generatorSet {
		generator, err := llm.NewTextGenerator(cfg.AssistantConfig(), server.logger, memCache)
		if err != nil {
			return nil, fmt.Errorf("failed to create text generator: %w", err)
		}
		server.generator = generator
	}

	if !server.storeSet {
		store, err := feedback.NewStore(cfg.FeedbackConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	server.evaluator = service.NewDefaultEvaluationService(server.logger)
	server.assistant = service.NewAssistantService(server.logger, server.generator, cfg.Language)

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: Version,
	}, nil)

	server.registerTools()
	server.registerFeedbackTools()
	server.registerPrompts()
	server.registerResources()

	server.logger.WithFields(logrus.Fields{
		"assistant": server.assistant.Enabled(),
		"feedback":  server.feedbackStore != nil,
		"transport": cfg.Transport,
	}).Info("MCP server initialized")
	return server, nil
}

// registerTools registers the classification tools with the MCP SDK
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_risk",
		Description: "Classify a non-muscle-invasive bladder tumour into an EAU 2025 risk group (low, intermediate, high, very high) and return the matching BCG protocol. With an induction date the maintenance schedule is included.",
	}, s.handleClassifyRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_protocol",
		Description: "Return the EAU 2025 recommendation, treatment, BCG schedule and follow-up for one risk group.",
	}, s.handleGetProtocol)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_protocols",
		Description: "Return the protocols of all four EAU 2025 risk groups, lowest risk first.",
	}, s.handleListProtocols)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "generate_schedule",
		Description: "Compute BCG maintenance dates from an induction date, either for a risk group or for explicit month offsets. Months are 30 days unless month_mode is calendar.",
	}, s.handleGenerateSchedule)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "draft_patient_letter",
		Description: "Classify a case and ask the configured language model for a plain-language patient letter. The evaluation is returned even when the model is unavailable.",
	}, s.handleDraftPatientLetter)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_assistant",
		Description: "Ask the configured language model a question about a classified case. Pass earlier turns in history to continue a conversation.",
	}, s.handleAskAssistant)

	s.logger.Debug("Registered classification tools")
}

// Start runs the server on the configured transport until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("transport", s.config.Transport).Info("Starting NMIBC risk MCP server")

	transport, err := newTransportRunner(s.config, s.logger)
	if err != nil {
		return err
	}
	if err := transport.run(ctx, s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	return nil
}

// FeedbackStore returns the feedback store, or nil when disabled.
func (s *Server) FeedbackStore() feedback.Store {
	return s.feedbackStore
}

// Cache returns the collaborator response cache.
func (s *Server) Cache() *cache.MemoryCache {
	return s.cache
}
