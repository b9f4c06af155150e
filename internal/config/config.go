package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nmibc-risk-mcp/internal/domain"
	"github.com/nmibc-risk-mcp/internal/llm"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. configFile is optional;
// when empty, config.yaml is searched in the usual locations.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nmibc-risk/")
	}

	// NMIBC_SERVER_PORT overrides server.port, etc.
	v.SetEnvPrefix("NMIBC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key needs a default so
// that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "75s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	// Assistant defaults
	v.SetDefault("assistant.provider", llm.ProviderNone)
	v.SetDefault("assistant.model", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.max_tokens", 1024)
	v.SetDefault("assistant.temperature", 0.3)
	v.SetDefault("assistant.timeout", "60s")
	v.SetDefault("assistant.rate_limit", 1.0)
	v.SetDefault("assistant.burst", 3)
	v.SetDefault("assistant.language", "pl")
	v.SetDefault("assistant.circuit_breaker.max_requests", 1)
	v.SetDefault("assistant.circuit_breaker.interval", "60s")
	v.SetDefault("assistant.circuit_breaker.timeout", "30s")
	v.SetDefault("assistant.circuit_breaker.consecutive_failures", 3)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 500)
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Feedback defaults
	v.SetDefault("feedback.driver", "none")
	v.SetDefault("feedback.dsn", "")
	v.SetDefault("feedback.migrations_path", "migrations")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "nmibc-risk-mcp")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.transport_type", "stdio")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetAssistantConfig returns text-generation configuration
func (m *Manager) GetAssistantConfig() *domain.AssistantConfig {
	return &m.config.Assistant
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetFeedbackConfig returns feedback store configuration
func (m *Manager) GetFeedbackConfig() *domain.FeedbackConfig {
	return &m.config.Feedback
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("TLS enabled but cert_file or key_file is missing")
	}

	if err := validateAssistant(config.Assistant); err != nil {
		return err
	}

	if config.Cache.Enabled && config.Cache.MaxItems <= 0 {
		return fmt.Errorf("cache max_items must be positive, got %d", config.Cache.MaxItems)
	}

	switch config.Feedback.Driver {
	case "", "none":
	case "sqlite", "postgres":
		if config.Feedback.DSN == "" {
			return fmt.Errorf("feedback DSN is required for driver %s", config.Feedback.Driver)
		}
	default:
		return fmt.Errorf("invalid feedback driver: %s", config.Feedback.Driver)
	}

	if _, err := ParseLogLevel(config.Logging.Level); err != nil {
		return err
	}

	return nil
}

func validateAssistant(cfg domain.AssistantConfig) error {
	if llm.IsDisabled(cfg.Provider) {
		return nil
	}
	switch strings.ToLower(cfg.Provider) {
	case llm.ProviderAnthropic, llm.ProviderGemini:
	default:
		return fmt.Errorf("invalid assistant provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("assistant API key is required for provider %s", cfg.Provider)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("assistant rate_limit must not be negative")
	}
	return nil
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
