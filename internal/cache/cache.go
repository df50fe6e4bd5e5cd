// Package cache implements the semantic response cache: completed answers
// stored by prompt embedding and returned for sufficiently similar prompts
// without a model call.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/cosmicworks/ragchat/internal/log"
	"github.com/cosmicworks/ragchat/internal/sqlc"
)

// ErrInvalidThreshold indicates a similarity threshold outside (0, 1].
var ErrInvalidThreshold = errors.New("similarity threshold must be in (0, 1]")

// Querier defines the database operations Cache needs.
type Querier interface {
	InsertCacheEntry(ctx context.Context, arg sqlc.InsertCacheEntryParams) (sqlc.ResponseCache, error)
	SearchResponseCache(ctx context.Context, arg sqlc.SearchResponseCacheParams) ([]sqlc.SearchResponseCacheRow, error)
	ClearResponseCache(ctx context.Context) error
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache looks up and stores completions by prompt similarity.
//
// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	querier   Querier
	embedder  Embedder
	threshold float64
	logger    log.Logger
}

// New creates a Cache. threshold is the minimum cosine similarity for a hit.
func New(querier Querier, embedder Embedder, threshold float64, logger log.Logger) (*Cache, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Cache{
		querier:   querier,
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Lookup searches for a cached completion whose prompt is at least threshold
// similar to prompt. A miss is reported explicitly via the second return
// value, never as an empty completion.
func (c *Cache) Lookup(ctx context.Context, prompt string) (string, bool, error) {
	vec, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("embedding cache lookup: %w", err)
	}

	rows, err := c.querier.SearchResponseCache(ctx, sqlc.SearchResponseCacheParams{
		Embedding:     pgvector.NewVector(vec),
		MinSimilarity: c.threshold,
	})
	if err != nil {
		return "", false, fmt.Errorf("searching response cache: %w", err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}

	c.logger.Debug("cache hit", "similarity", rows[0].Similarity)
	return rows[0].Completion, true, nil
}

// Insert stores a prompt/completion pair keyed by the prompt's embedding.
func (c *Cache) Insert(ctx context.Context, prompt, completion string) error {
	vec, err := c.embedder.Embed(ctx, prompt)
	if err != nil {
		return fmt.Errorf("embedding cache entry: %w", err)
	}

	if _, err := c.querier.InsertCacheEntry(ctx, sqlc.InsertCacheEntryParams{
		Prompt:     prompt,
		Completion: completion,
		Embedding:  pgvector.NewVector(vec),
	}); err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}

	c.logger.Debug("cached completion", "prompt_length", len(prompt))
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.querier.ClearResponseCache(ctx); err != nil {
		return fmt.Errorf("clearing response cache: %w", err)
	}
	c.logger.Info("response cache cleared")
	return nil
}
