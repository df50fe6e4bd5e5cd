// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.ragchat/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: completion model, embedder model, sampling parameters
//   - Budgets: token ceilings for completion, retrieved context, conversation
//   - Cache: semantic response cache enablement and similarity threshold
//   - Storage: PostgreSQL connection (see storage.go)
//   - Timeouts: per-collaborator call deadlines
//   - Tracing: OTLP trace exporter settings
//
// Validation lives in validation.go and uses sentinel errors so callers can
// check failure categories with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the completion model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopP indicates the nucleus sampling probability is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidTokenBudget indicates a token budget is out of range.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrInvalidCacheThreshold indicates the cache similarity threshold is out of range.
	ErrInvalidCacheThreshold = errors.New("invalid cache similarity threshold")

	// ErrInvalidTimeout indicates a collaborator timeout is non-positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModelName is the default completion model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel is the default embedder model.
	DefaultEmbedderModel = "text-embedding-004"

	// EmbeddingDimension is the vector dimensionality used by the schema.
	// Must match the dimension declared in db/migrations.
	EmbeddingDimension = 1536

	// DefaultCacheSimilarityThreshold is the minimum cosine similarity for
	// a response-cache hit.
	DefaultCacheSimilarityThreshold = 0.95
)

// Budgets holds the token ceilings enforced by the orchestration pipeline.
type Budgets struct {
	// MaxCompletionTokens caps the model's output length per request.
	MaxCompletionTokens int `mapstructure:"max_completion_tokens" json:"max_completion_tokens"`

	// MaxContextTokens caps retrieved RAG context included in a request.
	MaxContextTokens int `mapstructure:"max_context_tokens" json:"max_context_tokens"`

	// MaxConversationTokens caps prior conversation history included in a request.
	MaxConversationTokens int `mapstructure:"max_conversation_tokens" json:"max_conversation_tokens"`
}

// CacheConfig holds semantic response cache settings.
type CacheConfig struct {
	// Enabled controls the default cache behavior for requests that do not
	// specify one explicitly.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// SimilarityThreshold is the minimum cosine similarity for a hit.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`
}

// Timeouts bounds every external collaborator call. None of the backends
// bound their own latency, so a missing timeout means a stuck request.
type Timeouts struct {
	Completion  time.Duration `mapstructure:"completion" json:"completion"`
	Embedding   time.Duration `mapstructure:"embedding" json:"embedding"`
	Search      time.Duration `mapstructure:"search" json:"search"`
	Persistence time.Duration `mapstructure:"persistence" json:"persistence"`
}

// TracingConfig holds OTLP trace exporter settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	TopP          float32 `mapstructure:"top_p" json:"top_p"`

	// Token budgets
	Budgets Budgets `mapstructure:"budgets" json:"budgets"`

	// Response cache
	Cache CacheConfig `mapstructure:"cache" json:"cache"`

	// Collaborator timeouts
	Timeouts Timeouts `mapstructure:"timeouts" json:"timeouts"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ragchat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults. Sampling mirrors the completion backend's reference
	// configuration for grounded retail Q&A.
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("top_p", 0.7)

	// Token budgets
	v.SetDefault("budgets.max_completion_tokens", 1000)
	v.SetDefault("budgets.max_context_tokens", 1500)
	v.SetDefault("budgets.max_conversation_tokens", 1500)

	// Response cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.similarity_threshold", DefaultCacheSimilarityThreshold)

	// Collaborator timeouts
	v.SetDefault("timeouts.completion", "60s")
	v.SetDefault("timeouts.embedding", "15s")
	v.SetDefault("timeouts.search", "10s")
	v.SetDefault("timeouts.persistence", "5s")

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "ragchat")
	v.SetDefault("postgres_password", "ragchat_dev_password")
	v.SetDefault("postgres_db_name", "ragchat")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "ragchat")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Secrets never live in the config file checked into dotfiles.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("postgres_password", "RAGCHAT_POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres_host", "RAGCHAT_POSTGRES_HOST")
	_ = v.BindEnv("postgres_port", "RAGCHAT_POSTGRES_PORT")
}

// MarshalJSON masks sensitive fields when the config is logged or dumped.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // drop methods to avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
