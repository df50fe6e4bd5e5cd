// Package knowledge manages the retrieval corpus: collection-scoped document
// storage and vector similarity search with a token-budget trim.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/cosmicworks/ragchat/internal/log"
	"github.com/cosmicworks/ragchat/internal/source"
	"github.com/cosmicworks/ragchat/internal/sqlc"
)

// defaultSearchLimit bounds how many candidate documents a vector search
// returns before the token trim.
const defaultSearchLimit = 10

// ErrEmptyContent indicates an attempt to store a document with no content.
var ErrEmptyContent = errors.New("document content cannot be empty")

// Querier defines the database operations Store needs.
type Querier interface {
	AddDocument(ctx context.Context, arg sqlc.AddDocumentParams) (sqlc.Document, error)
	SearchDocuments(ctx context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error)
}

// TokenCounter reports the token cost of a text.
type TokenCounter interface {
	Count(text string) int
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store manages knowledge documents with vector search on PostgreSQL +
// pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier  Querier
	embedder Embedder
	counter  TokenCounter
	logger   log.Logger
}

// NewStore creates a Store.
func NewStore(querier Querier, embedder Embedder, counter TokenCounter, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		querier:  querier,
		embedder: embedder,
		counter:  counter,
		logger:   logger,
	}
}

// Add embeds content and stores it in the named collection.
func (s *Store) Add(ctx context.Context, collection source.Collection, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embedding document: %w", err)
	}

	doc, err := s.querier.AddDocument(ctx, sqlc.AddDocumentParams{
		Collection: string(collection),
		Content:    content,
		Embedding:  pgvector.NewVector(vec),
	})
	if err != nil {
		return fmt.Errorf("storing document in %s: %w", collection, err)
	}

	s.logger.Debug("added document",
		"collection", collection,
		"id", doc.ID,
		"content_length", len(content),
	)
	return nil
}

// SearchContext runs a vector search over the collection and assembles the
// best matches into a newline-joined context string that fits within
// maxTokens.
//
// Documents are taken whole in descending similarity order; the first
// document that would push the total past the budget stops accumulation, so
// the result never contains a truncated document.
func (s *Store) SearchContext(ctx context.Context, collection source.Collection, embedding []float32, maxTokens int) (string, error) {
	rows, err := s.querier.SearchDocuments(ctx, sqlc.SearchDocumentsParams{
		Embedding:   pgvector.NewVector(embedding),
		Collection:  string(collection),
		ResultLimit: defaultSearchLimit,
	})
	if err != nil {
		return "", fmt.Errorf("searching %s: %w", collection, err)
	}

	var (
		sb     strings.Builder
		total  int
		picked int
	)
	for _, row := range rows {
		cost := s.counter.Count(row.Content)
		if total+cost > maxTokens {
			break
		}
		if picked > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(row.Content)
		total += cost
		picked++
	}

	s.logger.Debug("assembled retrieval context",
		"collection", collection,
		"candidates", len(rows),
		"picked", picked,
		"tokens", total,
	)
	return sb.String(), nil
}
