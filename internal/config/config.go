package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/triage-risk-service/internal/domain"
)

// EnvPrefix is the prefix for environment overrides, e.g. TRIAGE_SERVER_PORT.
const EnvPrefix = "TRIAGE"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager backed by the global viper
// instance, so flags bound by the CLI are honoured.
func NewManager() (*Manager, error) {
	return NewManagerWithViper(viper.GetViper())
}

// NewManagerWithViper creates a configuration manager on an explicit viper instance.
func NewManagerWithViper(v *viper.Viper) (*Manager, error) {
	m := &Manager{v: v}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/triage-service/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment variables still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "medical_center")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Risk model defaults
	v.SetDefault("model.source", string(domain.ModelSourceBootstrap))
	v.SetDefault("model.path", "models/risk_model.json")
	v.SetDefault("model.remote_url", "http://localhost:8501")
	v.SetDefault("model.remote_timeout", "2s")
	v.SetDefault("model.remote_rate_limit", 50)
	v.SetDefault("model.cache_size", 1024)
	v.SetDefault("model.circuit_breaker.enabled", true)
	v.SetDefault("model.circuit_breaker.max_requests", 5)
	v.SetDefault("model.circuit_breaker.interval", "30s")
	v.SetDefault("model.circuit_breaker.timeout", "60s")
	v.SetDefault("model.circuit_breaker.min_requests", 3)
	v.SetDefault("model.circuit_breaker.failure_ratio", 0.6)

	v.SetDefault("duration_model.path", "")

	v.SetDefault("reference.tables_path", "")
	v.SetDefault("reference.weights_path", "")

	// Training defaults
	v.SetDefault("training.driver", "sqlite")
	v.SetDefault("training.sqlite_path", "data/training.db")
	v.SetDefault("training.database_url", "")
	v.SetDefault("training.retrain_threshold", 50)
	v.SetDefault("training.retrain_command", "triagectl training export --format csv --out data/training.csv")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.rate_burst", 200)
	v.SetDefault("security.request_timeout", "10s")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetModelConfig returns risk model configuration
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
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

	if !config.Model.Source.IsValid() {
		return fmt.Errorf("invalid model source: %s", config.Model.Source)
	}
	switch config.Model.Source {
	case domain.ModelSourceFile:
		if config.Model.Path == "" {
			return fmt.Errorf("model path is required when model source is file")
		}
	case domain.ModelSourceRemote:
		if config.Model.RemoteURL == "" {
			return fmt.Errorf("model remote URL is required when model source is remote")
		}
		if config.Model.RemoteRateLimit <= 0 {
			return fmt.Errorf("model remote rate limit must be positive")
		}
	}
	if ratio := config.Model.CircuitBreaker.FailureRatio; ratio <= 0 || ratio > 1 {
		return fmt.Errorf("invalid circuit breaker failure ratio: %v", ratio)
	}

	switch strings.ToLower(config.Training.Driver) {
	case "sqlite":
		if config.Training.SQLitePath == "" {
			return fmt.Errorf("training sqlite path is required")
		}
	case "postgres":
		if config.Training.DatabaseURL == "" && config.Database.Host == "" {
			return fmt.Errorf("training database URL or database host is required")
		}
	default:
		return fmt.Errorf("invalid training driver: %s", config.Training.Driver)
	}
	if config.Training.RetrainThreshold <= 0 {
		return fmt.Errorf("training retrain threshold must be positive")
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache is enabled")
	}

	if config.Security.RateLimit <= 0 {
		return fmt.Errorf("invalid rate limit: %d", config.Security.RateLimit)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
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
