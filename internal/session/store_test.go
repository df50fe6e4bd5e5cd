package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cosmicworks/ragchat/internal/sqlc"
)

// mockQuerier implements Querier for testing with error injection and call
// tracking.
type mockQuerier struct {
	// Error configuration
	createSessionErr error
	getSessionErr    error
	listSessionsErr  error
	deleteSessionErr error
	lockSessionErr   error
	renameErr        error
	updateStatsErr   error
	addMessageErr    error
	getMessagesErr   error
	getMaxSeqErr     error

	// Return values
	createSessionResult sqlc.Session
	getSessionResult    sqlc.Session
	listSessionsResult  []sqlc.Session
	deleteRowsAffected  int64
	renameRowsAffected  int64
	getMessagesResult   []sqlc.SessionMessage
	maxSeqResult        int32

	// Call tracking
	createSessionCalls int
	getSessionCalls    int
	deleteSessionCalls int
	lockSessionCalls   int
	renameCalls        int
	updateStatsCalls   int
	addMessageCalls    int
	getMessagesCalls   int
	getMaxSeqCalls     int

	lastCreateName       *string
	lastRename           sqlc.UpdateSessionNameParams
	lastDeleteID         pgtype.UUID
	lastUpdateStats      sqlc.UpdateSessionStatsParams
	lastAddMessageParams []sqlc.AddMessageParams
}

func (m *mockQuerier) CreateSession(ctx context.Context, name *string) (sqlc.Session, error) {
	m.createSessionCalls++
	m.lastCreateName = name
	if m.createSessionErr != nil {
		return sqlc.Session{}, m.createSessionErr
	}
	return m.createSessionResult, nil
}

func (m *mockQuerier) GetSession(ctx context.Context, id pgtype.UUID) (sqlc.Session, error) {
	m.getSessionCalls++
	if m.getSessionErr != nil {
		return sqlc.Session{}, m.getSessionErr
	}
	return m.getSessionResult, nil
}

func (m *mockQuerier) ListSessions(ctx context.Context, arg sqlc.ListSessionsParams) ([]sqlc.Session, error) {
	if m.listSessionsErr != nil {
		return nil, m.listSessionsErr
	}
	return m.listSessionsResult, nil
}

func (m *mockQuerier) DeleteSession(ctx context.Context, id pgtype.UUID) (int64, error) {
	m.deleteSessionCalls++
	m.lastDeleteID = id
	if m.deleteSessionErr != nil {
		return 0, m.deleteSessionErr
	}
	return m.deleteRowsAffected, nil
}

func (m *mockQuerier) LockSession(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	m.lockSessionCalls++
	if m.lockSessionErr != nil {
		return pgtype.UUID{}, m.lockSessionErr
	}
	return id, nil
}

func (m *mockQuerier) UpdateSessionName(ctx context.Context, arg sqlc.UpdateSessionNameParams) (int64, error) {
	m.renameCalls++
	m.lastRename = arg
	if m.renameErr != nil {
		return 0, m.renameErr
	}
	return m.renameRowsAffected, nil
}

func (m *mockQuerier) UpdateSessionStats(ctx context.Context, arg sqlc.UpdateSessionStatsParams) error {
	m.updateStatsCalls++
	m.lastUpdateStats = arg
	return m.updateStatsErr
}

func (m *mockQuerier) AddMessage(ctx context.Context, arg sqlc.AddMessageParams) error {
	m.addMessageCalls++
	m.lastAddMessageParams = append(m.lastAddMessageParams, arg)
	return m.addMessageErr
}

func (m *mockQuerier) GetMessages(ctx context.Context, arg sqlc.GetMessagesParams) ([]sqlc.SessionMessage, error) {
	m.getMessagesCalls++
	if m.getMessagesErr != nil {
		return nil, m.getMessagesErr
	}
	return m.getMessagesResult, nil
}

func (m *mockQuerier) GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	m.getMaxSeqCalls++
	if m.getMaxSeqErr != nil {
		return 0, m.getMaxSeqErr
	}
	return m.maxSeqResult, nil
}

func sqlcSession(id uuid.UUID, name string) sqlc.Session {
	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return sqlc.Session{
		ID:        uuidToPg(id),
		Name:      namePtr,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreCreateSession(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{createSessionResult: sqlcSession(id, "order questions")}
	store := NewStore(mock, nil, nil)

	sess, err := store.CreateSession(context.Background(), "order questions")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID != id {
		t.Errorf("ID = %s, want %s", sess.ID, id)
	}
	if sess.Name != "order questions" {
		t.Errorf("Name = %q", sess.Name)
	}
	if mock.lastCreateName == nil || *mock.lastCreateName != "order questions" {
		t.Error("name not passed through")
	}
}

func TestStoreCreateSessionEmptyNameIsNull(t *testing.T) {
	mock := &mockQuerier{createSessionResult: sqlcSession(uuid.New(), "")}
	store := NewStore(mock, nil, nil)

	if _, err := store.CreateSession(context.Background(), ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if mock.lastCreateName != nil {
		t.Errorf("empty name should be stored as NULL, got %q", *mock.lastCreateName)
	}
}

func TestStoreRejectsNilSessionID(t *testing.T) {
	mock := &mockQuerier{}
	store := NewStore(mock, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"GetSession", func() error { _, err := store.GetSession(ctx, uuid.Nil); return err }},
		{"DeleteSession", func() error { return store.DeleteSession(ctx, uuid.Nil) }},
		{"RenameSession", func() error { return store.RenameSession(ctx, uuid.Nil, "x") }},
		{"GetMessages", func() error { _, err := store.GetMessages(ctx, uuid.Nil, 10, 0); return err }},
		{"AppendMessage", func() error {
			return store.AppendMessage(ctx, uuid.Nil, nil, &Message{Prompt: "q", Completion: "a"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNilID) {
				t.Fatalf("error = %v, want ErrNilID", err)
			}
		})
	}

	// The zero id must be rejected before reaching the database.
	if mock.getSessionCalls+mock.deleteSessionCalls+mock.renameCalls+mock.getMessagesCalls+mock.addMessageCalls != 0 {
		t.Error("querier called with a nil session id")
	}
}

func TestStoreGetSessionNotFound(t *testing.T) {
	mock := &mockQuerier{getSessionErr: pgx.ErrNoRows}
	store := NewStore(mock, nil, nil)

	_, err := store.GetSession(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession error = %v, want ErrNotFound", err)
	}
}

func TestStoreDeleteSession(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		qErr     error
		wantErr  error
	}{
		{name: "deletes existing session", affected: 1},
		{name: "missing session", affected: 0, wantErr: ErrNotFound},
		{name: "database error", qErr: errors.New("connection reset"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockQuerier{deleteRowsAffected: tt.affected, deleteSessionErr: tt.qErr}
			store := NewStore(mock, nil, nil)

			err := store.DeleteSession(context.Background(), uuid.New())
			switch {
			case tt.qErr != nil:
				if err == nil {
					t.Fatal("expected error")
				}
				if errors.Is(err, ErrNotFound) {
					t.Error("database error must not masquerade as ErrNotFound")
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestStoreRenameSession(t *testing.T) {
	mock := &mockQuerier{renameRowsAffected: 1}
	store := NewStore(mock, nil, nil)

	if err := store.RenameSession(context.Background(), uuid.New(), "bike pricing"); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	if mock.lastRename.Name == nil || *mock.lastRename.Name != "bike pricing" {
		t.Error("name not passed through")
	}
}

func TestStoreRenameSessionMissing(t *testing.T) {
	mock := &mockQuerier{renameRowsAffected: 0}
	store := NewStore(mock, nil, nil)

	err := store.RenameSession(context.Background(), uuid.New(), "anything")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStoreAppendMessage(t *testing.T) {
	sessionID := uuid.New()
	mock := &mockQuerier{maxSeqResult: 4}
	store := NewStore(mock, nil, nil)

	msg := &Message{
		Prompt:           "what is the cheapest bike?",
		Completion:       "The Touring-1000.",
		PromptTokens:     12,
		CompletionTokens: 30,
		SourceRequested:  "auto",
		SourceCollection: "products",
		CacheEnabled:     true,
	}

	name := "bike pricing"
	if err := store.AppendMessage(context.Background(), sessionID, &name, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if mock.lockSessionCalls != 1 {
		t.Errorf("lock calls = %d, want 1", mock.lockSessionCalls)
	}
	if mock.addMessageCalls != 1 {
		t.Fatalf("add message calls = %d, want 1", mock.addMessageCalls)
	}

	// The sequence number continues from the current maximum.
	got := mock.lastAddMessageParams[0]
	if got.SequenceNumber != 5 {
		t.Errorf("sequence = %d, want 5", got.SequenceNumber)
	}
	if got.Prompt != "what is the cheapest bike?" || got.Completion != "The Touring-1000." {
		t.Errorf("exchange text not passed through: %+v", got)
	}
	if got.SourceRequested != "auto" || got.SourceCollection != "products" {
		t.Errorf("source metadata not passed through: %+v", got)
	}
	if !got.CacheEnabled || got.CacheHit {
		t.Errorf("cache metadata not passed through: %+v", got)
	}
	if msg.SequenceNumber != 5 {
		t.Errorf("message sequence = %d, want 5", msg.SequenceNumber)
	}

	// Session counters reflect the full exchange.
	if mock.lastUpdateStats.TokensDelta != 42 {
		t.Errorf("tokens delta = %d, want 42", mock.lastUpdateStats.TokensDelta)
	}
	if mock.lastUpdateStats.MessageCount != 5 {
		t.Errorf("message count = %d, want 5", mock.lastUpdateStats.MessageCount)
	}
	if mock.lastUpdateStats.Name == nil || *mock.lastUpdateStats.Name != "bike pricing" {
		t.Error("name not passed through to stats update")
	}
}

func TestStoreAppendMessageNil(t *testing.T) {
	store := NewStore(&mockQuerier{}, nil, nil)

	err := store.AppendMessage(context.Background(), uuid.New(), nil, nil)
	if !errors.Is(err, ErrEmptyExchange) {
		t.Fatalf("error = %v, want ErrEmptyExchange", err)
	}
}

func TestStoreAppendMessageMissingSession(t *testing.T) {
	mock := &mockQuerier{lockSessionErr: pgx.ErrNoRows}
	store := NewStore(mock, nil, nil)

	err := store.AppendMessage(context.Background(), uuid.New(), nil, &Message{
		Prompt: "hello", Completion: "hi there",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if mock.addMessageCalls != 0 {
		t.Errorf("no messages should be written, got %d calls", mock.addMessageCalls)
	}
}

func TestStoreAppendMessageInsertFailure(t *testing.T) {
	mock := &mockQuerier{addMessageErr: errors.New("insert failed")}
	store := NewStore(mock, nil, nil)

	err := store.AppendMessage(context.Background(), uuid.New(), nil, &Message{
		Prompt: "hello", Completion: "hi there",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.updateStatsCalls != 0 {
		t.Error("stats must not be updated after a failed insert")
	}
}
