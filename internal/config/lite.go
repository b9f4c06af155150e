// Package config provides configuration management for the NMIBC risk servers.
// This file contains the lightweight, environment-only configuration used by
// the MCP server and the CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/llm"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir         string // Base directory for data files
	FeedbackEnabled bool   // Record clinician feedback in DataDir/feedback.db

	// Collaborator response cache
	CacheMaxItems int
	CacheTTL      time.Duration

	// Text generation
	LLMProvider string // none, anthropic, gemini
	LLMModel    string
	LLMAPIKey   string
	LLMTimeout  time.Duration
	Language    string

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".nmibc-risk")

	return &LiteConfig{
		DataDir:         dataDir,
		FeedbackEnabled: true,
		CacheMaxItems:   200,
		CacheTTL:        24 * time.Hour,
		LLMProvider:     llm.ProviderNone,
		LLMTimeout:      60 * time.Second,
		Language:        "pl",
		Transport:       "stdio",
		HTTPPort:        8080,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("NMIBC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NMIBC_FEEDBACK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FeedbackEnabled = b
		}
	}

	if v := os.Getenv("NMIBC_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("NMIBC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("NMIBC_LLM_PROVIDER"); v != "" {
		cfg.LLMProvider = v
	}
	cfg.LLMModel = os.Getenv("NMIBC_LLM_MODEL")
	cfg.LLMAPIKey = os.Getenv("NMIBC_LLM_API_KEY")
	if v := os.Getenv("NMIBC_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLMTimeout = d
		}
	}
	if v := os.Getenv("NMIBC_LANGUAGE"); v != "" {
		cfg.Language = v
	}

	if v := os.Getenv("NMIBC_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("NMIBC_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("NMIBC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NMIBC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AssistantConfig converts the lite settings into the collaborator configuration.
func (c *LiteConfig) AssistantConfig() domain.AssistantConfig {
	return domain.AssistantConfig{
		Provider:  c.LLMProvider,
		Model:     c.LLMModel,
		APIKey:    c.LLMAPIKey,
		Timeout:   c.LLMTimeout,
		RateLimit: 1,
		Burst:     3,
		Language:  c.Language,
		CircuitBreaker: domain.CircuitBreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 3,
		},
	}
}

// FeedbackConfig returns the SQLite feedback configuration, or a disabled one.
func (c *LiteConfig) FeedbackConfig() domain.FeedbackConfig {
	if !c.FeedbackEnabled {
		return domain.FeedbackConfig{Driver: "none"}
	}
	return domain.FeedbackConfig{Driver: "sqlite", DSN: c.FeedbackDBPath()}
}

// LoggingConfig returns the logging settings. stdio transports log to stderr
// so stdout stays reserved for protocol messages.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
