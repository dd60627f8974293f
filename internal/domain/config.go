package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Model         ModelConfig         `mapstructure:"model"`
	DurationModel DurationModelConfig `mapstructure:"duration_model"`
	Reference     ReferenceConfig     `mapstructure:"reference"`
	Training      TrainingConfig      `mapstructure:"training"`
	Security      SecurityConfig      `mapstructure:"security"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents the optional redis prediction cache
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// ModelConfig represents risk model configuration
type ModelConfig struct {
	Source          ModelSource   `mapstructure:"source"`
	Path            string        `mapstructure:"path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	RemoteTimeout   time.Duration `mapstructure:"remote_timeout"`
	RemoteRateLimit int           `mapstructure:"remote_rate_limit"`
	CacheSize       int           `mapstructure:"cache_size"`
	CircuitBreaker  BreakerConfig `mapstructure:"circuit_breaker"`
}

// BreakerConfig represents circuit breaker settings around model calls
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// DurationModelConfig represents the optional trained duration model
type DurationModelConfig struct {
	Path string `mapstructure:"path"`
}

// ReferenceConfig points at reference table overrides. Empty paths use the
// embedded defaults.
type ReferenceConfig struct {
	TablesPath  string `mapstructure:"tables_path"`
	WeightsPath string `mapstructure:"weights_path"`
}

// TrainingConfig represents training sample storage
type TrainingConfig struct {
	Driver           string `mapstructure:"driver"` // "sqlite", "postgres"
	SQLitePath       string `mapstructure:"sqlite_path"`
	DatabaseURL      string `mapstructure:"database_url"`
	RetrainThreshold int    `mapstructure:"retrain_threshold"`
	RetrainCommand   string `mapstructure:"retrain_command"`
}

// SecurityConfig represents HTTP hardening settings
type SecurityConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimit      int           `mapstructure:"rate_limit"` // requests per second
	RateBurst      int           `mapstructure:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}
