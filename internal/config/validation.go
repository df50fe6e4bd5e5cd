package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// validSSLModes are the SSL modes accepted by PostgreSQL.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key is required for all completion and embedding calls.
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.TopP < 0.0 || c.TopP > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f", ErrInvalidTopP, c.TopP)
	}

	// Token budgets. Zero would silently disable a pipeline stage, so all
	// three must be positive.
	if c.Budgets.MaxCompletionTokens < 1 {
		return fmt.Errorf("%w: max_completion_tokens must be positive, got %d",
			ErrInvalidTokenBudget, c.Budgets.MaxCompletionTokens)
	}
	if c.Budgets.MaxContextTokens < 1 {
		return fmt.Errorf("%w: max_context_tokens must be positive, got %d",
			ErrInvalidTokenBudget, c.Budgets.MaxContextTokens)
	}
	if c.Budgets.MaxConversationTokens < 1 {
		return fmt.Errorf("%w: max_conversation_tokens must be positive, got %d",
			ErrInvalidTokenBudget, c.Budgets.MaxConversationTokens)
	}

	// Cache threshold is a cosine similarity, so (0, 1].
	if c.Cache.SimilarityThreshold <= 0.0 || c.Cache.SimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: must be in (0.0, 1.0], got %.3f",
			ErrInvalidCacheThreshold, c.Cache.SimilarityThreshold)
	}

	// Every collaborator call must be bounded.
	if c.Timeouts.Completion <= 0 {
		return fmt.Errorf("%w: timeouts.completion must be positive", ErrInvalidTimeout)
	}
	if c.Timeouts.Embedding <= 0 {
		return fmt.Errorf("%w: timeouts.embedding must be positive", ErrInvalidTimeout)
	}
	if c.Timeouts.Search <= 0 {
		return fmt.Errorf("%w: timeouts.search must be positive", ErrInvalidTimeout)
	}
	if c.Timeouts.Persistence <= 0 {
		return fmt.Errorf("%w: timeouts.persistence must be positive", ErrInvalidTimeout)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "ragchat_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"warning", "change postgres_password for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: must be one of %v, got %q",
			ErrInvalidPostgresSSLMode, validSSLModes, c.PostgresSSLMode)
	}

	return nil
}
