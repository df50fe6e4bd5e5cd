package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosmicworks/ragchat/internal/log"
	"github.com/cosmicworks/ragchat/internal/sqlc"
)

// Querier defines the database operations Store needs for sessions and
// messages. Interfaces are defined by the consumer, not the provider, which
// keeps the Store testable against a mock.
type Querier interface {
	// Session operations
	CreateSession(ctx context.Context, name *string) (sqlc.Session, error)
	GetSession(ctx context.Context, id pgtype.UUID) (sqlc.Session, error)
	ListSessions(ctx context.Context, arg sqlc.ListSessionsParams) ([]sqlc.Session, error)
	DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error)
	LockSession(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error)
	UpdateSessionName(ctx context.Context, arg sqlc.UpdateSessionNameParams) (int64, error)
	UpdateSessionStats(ctx context.Context, arg sqlc.UpdateSessionStatsParams) error

	// Message operations
	AddMessage(ctx context.Context, arg sqlc.AddMessageParams) error
	GetMessages(ctx context.Context, arg sqlc.GetMessagesParams) ([]sqlc.SessionMessage, error)
	GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error)
}

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // transaction support; nil in unit tests
	logger  log.Logger
}

// NewStore creates a Store.
//
// pool may be nil when testing with a mock querier; AppendMessage then runs
// without a transaction.
func NewStore(querier Querier, pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// CreateSession creates a new conversation session. An empty name is stored
// as NULL.
func (s *Store) CreateSession(ctx context.Context, name string) (*Session, error) {
	var namePtr *string
	if name != "" {
		namePtr = &name
	}

	row, err := s.querier.CreateSession(ctx, namePtr)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := toSession(row)
	s.logger.Debug("created session", "id", sess.ID, "name", sess.Name)
	return sess, nil
}

// GetSession retrieves a session by ID. Returns ErrNotFound if the session
// does not exist.
func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	if sessionID == uuid.Nil {
		return nil, ErrNilID
	}
	row, err := s.querier.GetSession(ctx, uuidToPg(sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	return toSession(row), nil
}

// ListSessions lists sessions ordered by updated_at descending.
func (s *Store) ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error) {
	rows, err := s.querier.ListSessions(ctx, sqlc.ListSessionsParams{
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, toSession(row))
	}
	return sessions, nil
}

// DeleteSession deletes a session and all its messages (CASCADE). Returns
// ErrNotFound if the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return ErrNilID
	}
	affected, err := s.querier.DeleteSession(ctx, uuidToPg(sessionID))
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// RenameSession sets the session's name. Returns ErrNotFound if the session
// does not exist.
func (s *Store) RenameSession(ctx context.Context, sessionID uuid.UUID, name string) error {
	if sessionID == uuid.Nil {
		return ErrNilID
	}
	var namePtr *string
	if name != "" {
		namePtr = &name
	}

	affected, err := s.querier.UpdateSessionName(ctx, sqlc.UpdateSessionNameParams{
		Name:      namePtr,
		SessionID: uuidToPg(sessionID),
	})
	if err != nil {
		return fmt.Errorf("renaming session %s: %w", sessionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	s.logger.Debug("renamed session", "id", sessionID, "name", name)
	return nil
}

// GetMessages retrieves messages for a session ordered by sequence number
// ascending.
func (s *Store) GetMessages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Message, error) {
	if sessionID == uuid.Nil {
		return nil, ErrNilID
	}
	rows, err := s.querier.GetMessages(ctx, sqlc.GetMessagesParams{
		SessionID:    uuidToPg(sessionID),
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("getting messages for session %s: %w", sessionID, err)
	}

	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row))
	}
	return messages, nil
}

// AppendMessage appends one exchange to a session and updates the session's
// token and message counters in one atomic write. A non-nil name also renames
// the session in the same transaction.
//
// The sequence number is assigned from the current maximum while the session
// row is locked (SELECT ... FOR UPDATE), so concurrent appends to the same
// session cannot interleave.
//
// Returns ErrNotFound if the session does not exist.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, name *string, msg *Message) error {
	if sessionID == uuid.Nil {
		return ErrNilID
	}
	if msg == nil {
		return ErrEmptyExchange
	}

	// Without a pool (mock querier in tests) run the same steps without a
	// transaction.
	if s.pool == nil {
		return s.appendMessage(ctx, s.querier, sessionID, name, msg)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.appendMessage(ctx, sqlc.New(tx), sessionID, name, msg); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended message", "session_id", sessionID, "sequence", msg.SequenceNumber)
	return nil
}

func (s *Store) appendMessage(ctx context.Context, q Querier, sessionID uuid.UUID, name *string, msg *Message) error {
	pgID := uuidToPg(sessionID)

	if _, err := q.LockSession(ctx, pgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("locking session: %w", err)
	}

	maxSeq, err := q.GetMaxSequenceNumber(ctx, pgID)
	if err != nil {
		return fmt.Errorf("getting max sequence number: %w", err)
	}

	seq := maxSeq + 1
	if err := q.AddMessage(ctx, sqlc.AddMessageParams{
		SessionID:        pgID,
		Prompt:           msg.Prompt,
		Completion:       msg.Completion,
		PromptTokens:     int32(msg.PromptTokens),     // #nosec G115
		CompletionTokens: int32(msg.CompletionTokens), // #nosec G115
		SourceRequested:  msg.SourceRequested,
		SourceCollection: msg.SourceCollection,
		CacheEnabled:     msg.CacheEnabled,
		CacheHit:         msg.CacheHit,
		SequenceNumber:   seq,
	}); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	msg.SequenceNumber = int(seq)

	if err := q.UpdateSessionStats(ctx, sqlc.UpdateSessionStatsParams{
		Name:         name,
		TokensDelta:  int64(msg.Tokens()),
		MessageCount: seq,
		SessionID:    pgID,
	}); err != nil {
		return fmt.Errorf("updating session stats: %w", err)
	}

	return nil
}

func toSession(row sqlc.Session) *Session {
	sess := &Session{
		ID:           pgToUUID(row.ID),
		TokensUsed:   row.TokensUsed,
		MessageCount: int(row.MessageCount),
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if row.Name != nil {
		sess.Name = *row.Name
	}
	return sess
}

func toMessage(row sqlc.SessionMessage) *Message {
	return &Message{
		ID:               pgToUUID(row.ID),
		SessionID:        pgToUUID(row.SessionID),
		Prompt:           row.Prompt,
		Completion:       row.Completion,
		PromptTokens:     int(row.PromptTokens),
		CompletionTokens: int(row.CompletionTokens),
		SourceRequested:  row.SourceRequested,
		SourceCollection: row.SourceCollection,
		CacheEnabled:     row.CacheEnabled,
		CacheHit:         row.CacheHit,
		SequenceNumber:   int(row.SequenceNumber),
		CreatedAt:        row.CreatedAt.Time,
	}
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}
