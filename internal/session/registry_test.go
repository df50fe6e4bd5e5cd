package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cosmicworks/ragchat/internal/sqlc"
)

func newTestRegistry(mock *mockQuerier) *Registry {
	return NewRegistry(NewStore(mock, nil, nil), nil)
}

func TestRegistryGetReadsThroughOnce(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{
		getSessionResult: sqlcSession(id, "cached"),
		getMessagesResult: []sqlc.SessionMessage{
			{ID: uuidToPg(uuid.New()), SessionID: uuidToPg(id), Prompt: "hi", Completion: "hello", SequenceNumber: 1},
		},
	}
	reg := newTestRegistry(mock)

	snap, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Session.Name != "cached" {
		t.Errorf("Name = %q", snap.Session.Name)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(snap.Messages))
	}

	// Second read must be served from the cache.
	if _, err := reg.Get(context.Background(), id); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if mock.getSessionCalls != 1 {
		t.Errorf("GetSession calls = %d, want 1", mock.getSessionCalls)
	}
	if mock.getMessagesCalls != 1 {
		t.Errorf("GetMessages calls = %d, want 1", mock.getMessagesCalls)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	mock := &mockQuerier{getSessionErr: pgx.ErrNoRows}
	reg := newTestRegistry(mock)

	_, err := reg.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestRegistryAppendUpdatesCache(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{getSessionResult: sqlcSession(id, "")}
	reg := newTestRegistry(mock)

	err := reg.Append(context.Background(), id, nil, &Message{
		Prompt: "question", Completion: "answer",
		PromptTokens: 10, CompletionTokens: 25,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(snap.Messages))
	}
	if snap.Session.TokensUsed != 35 {
		t.Errorf("TokensUsed = %d, want 35", snap.Session.TokensUsed)
	}
	if snap.Session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", snap.Session.MessageCount)
	}

	// Cached history means no reload after the append.
	if mock.getMessagesCalls != 1 {
		t.Errorf("GetMessages calls = %d, want 1", mock.getMessagesCalls)
	}
}

func TestRegistryAppendRename(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{getSessionResult: sqlcSession(id, "")}
	reg := newTestRegistry(mock)

	name := "bike pricing"
	err := reg.Append(context.Background(), id, &name, &Message{
		Prompt: "q", Completion: "a", PromptTokens: 1,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Session.Name != "bike pricing" {
		t.Errorf("Name = %q, want %q", snap.Session.Name, "bike pricing")
	}
}

func TestRegistryDeleteThenGetNotFound(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{
		getSessionResult:   sqlcSession(id, "doomed"),
		deleteRowsAffected: 1,
	}
	reg := newTestRegistry(mock)

	// Prime the cache.
	if _, err := reg.Get(context.Background(), id); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := reg.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// A read after delete must go back to the database and report absence.
	mock.getSessionErr = pgx.ErrNoRows
	_, err := reg.Get(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestRegistryDeleteMissing(t *testing.T) {
	mock := &mockQuerier{deleteRowsAffected: 0}
	reg := newTestRegistry(mock)

	err := reg.Delete(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestRegistryConcurrentAppends(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{getSessionResult: sqlcSession(id, "")}
	reg := newTestRegistry(mock)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = reg.Append(context.Background(), id, nil, &Message{
				Prompt: "q", Completion: "a",
				PromptTokens: 1, CompletionTokens: 1,
			})
		}()
	}
	wg.Wait()

	snap, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(snap.Messages) != workers {
		t.Errorf("messages = %d, want %d", len(snap.Messages), workers)
	}
	if snap.Session.TokensUsed != workers*2 {
		t.Errorf("TokensUsed = %d, want %d", snap.Session.TokensUsed, workers*2)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	id := uuid.New()
	mock := &mockQuerier{getSessionResult: sqlcSession(id, "original")}
	reg := newTestRegistry(mock)

	snap, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.Session.Name = "mutated"

	again, err := reg.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Session.Name != "original" {
		t.Errorf("cache was mutated through a snapshot: %q", again.Session.Name)
	}
}
