// Package session provides conversation session persistence on PostgreSQL
// with an in-process read-through cache.
//
// The Store talks to the database through a Querier interface; the Registry
// wraps a Store and keeps recently used sessions in memory, serializing
// access per session.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a conversation session (application-level type).
type Session struct {
	ID           uuid.UUID
	Name         string
	TokensUsed   int64
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is one prompt/completion exchange. Immutable once persisted.
// Token counts are recorded per exchange so history can be fit under a token
// budget without re-tokenizing on every turn.
type Message struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Prompt     string
	Completion string

	PromptTokens     int
	CompletionTokens int

	// SourceRequested is the caller's source request ("auto", "none", or a
	// collection name); SourceCollection the collection that actually
	// grounded the answer, empty when retrieval was skipped.
	SourceRequested  string
	SourceCollection string

	CacheEnabled bool
	CacheHit     bool

	SequenceNumber int
	CreatedAt      time.Time
}

// Tokens returns the total token count attributed to the exchange.
func (m *Message) Tokens() int {
	return m.PromptTokens + m.CompletionTokens
}

// Snapshot is a point-in-time copy of a session and its history, ordered by
// sequence number ascending.
type Snapshot struct {
	Session  *Session
	Messages []*Message
}
