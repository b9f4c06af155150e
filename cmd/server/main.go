package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nmibc-risk-mcp/internal/api"
	"github.com/nmibc-risk-mcp/internal/cache"
	"github.com/nmibc-risk-mcp/internal/config"
	"github.com/nmibc-risk-mcp/internal/database"
	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/feedback"
	"github.com/nmibc-risk-mcp/internal/llm"
	"github.com/nmibc-risk-mcp/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager(os.Getenv("NMIBC_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting NMIBC risk API server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responses := openCache(cfg.Cache, logger)
	if responses != nil {
		defer responses.Close()
	}

	generator, err := llm.NewTextGenerator(cfg.Assistant, logger, responses)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure text generation provider")
	}

	store, db := openFeedback(ctx, cfg.Feedback, logger)
	if store != nil {
		defer store.Close()
	}

	deps := api.Dependencies{
		Logger:    logger,
		Evaluator: service.NewDefaultEvaluationService(logger),
		Assistant: service.NewAssistantService(logger, generator, cfg.Assistant.Language),
		Feedback:  store,
	}
	if db != nil {
		defer db.Close()
		deps.Database = db
	}

	server := api.NewServer(configManager, deps)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// openCache prefers Redis when a URL is configured and falls back to the in-process LRU.
func openCache(cfg domain.CacheConfig, logger *logrus.Logger) cache.Cache {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg)
		if err == nil {
			logger.Info("Using Redis response cache")
			return redisCache
		}
		logger.WithError(err).Warn("Redis unavailable, falling back to in-memory cache")
	}

	memCache, err := cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	if err != nil {
		logger.WithError(err).Warn("Response cache disabled")
		return nil
	}
	return memCache
}

// openFeedback opens the feedback store. The PostgreSQL backend is migrated
// first and gets a pooled connection for readiness checks.
func openFeedback(ctx context.Context, cfg domain.FeedbackConfig, logger *logrus.Logger) (feedback.Store, *database.DB) {
	var db *database.DB

	if cfg.Driver == "postgres" {
		if err := database.ApplyMigrations(ctx, cfg.DSN, cfg.MigrationsPath, logger); err != nil {
			logger.WithError(err).Fatal("Failed to apply feedback migrations")
		}

		var err error
		db, err = database.NewConnection(ctx, cfg.DSN, database.DefaultPoolConfig(), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to feedback database")
		}
	}

	store, err := feedback.NewStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	if store == nil {
		logger.Info("Feedback store disabled")
	}
	return store, db
}
