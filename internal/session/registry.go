package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosmicworks/ragchat/internal/log"
)

// maxHistoryMessages bounds how many messages are loaded into the cache for
// a single session.
const maxHistoryMessages int32 = 1000

// Registry is an in-process read-through cache over a Store.
//
// Every session has its own lock, so operations on the same session are
// serialized while different sessions proceed concurrently. Reads hit the
// database only on first access; appends write through and update the cached
// copy in place.
type Registry struct {
	store  *Store
	logger log.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	mu       sync.Mutex
	loaded   bool
	session  *Session
	messages []*Message
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store *Store, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		entries: make(map[uuid.UUID]*entry),
	}
}

// acquire returns the entry for id, creating it if absent.
func (r *Registry) acquire(id uuid.UUID) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	return e
}

// evict removes the entry for id.
func (r *Registry) evict(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Create creates a new session and primes the cache with it.
func (r *Registry) Create(ctx context.Context, name string) (*Session, error) {
	sess, err := r.store.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}

	e := r.acquire(sess.ID)
	e.mu.Lock()
	e.session = sess
	e.messages = nil
	e.loaded = true
	e.mu.Unlock()

	return copySession(sess), nil
}

// List returns stored sessions ordered by most recent update. Listing always
// hits the database; the cache only tracks sessions touched by this process.
func (r *Registry) List(ctx context.Context, limit, offset int32) ([]*Session, error) {
	return r.store.ListSessions(ctx, limit, offset)
}

// Get returns a snapshot of the session and its history, loading from the
// database on first access. Returns ErrNotFound if the session does not
// exist.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	e := r.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.load(ctx, id, e); err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

// Append writes one exchange through to the database and updates the cached
// session in place. A non-nil name also renames the session. Returns
// ErrNotFound if the session does not exist.
func (r *Registry) Append(ctx context.Context, id uuid.UUID, name *string, msg *Message) error {
	e := r.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Load before writing so the cached history stays complete after the
	// append.
	if err := r.load(ctx, id, e); err != nil {
		return err
	}

	if err := r.store.AppendMessage(ctx, id, name, msg); err != nil {
		if errors.Is(err, ErrNotFound) {
			e.loaded = false
			r.evict(id)
		}
		return err
	}

	msg.SessionID = id
	e.messages = append(e.messages, msg)
	e.session.TokensUsed += int64(msg.Tokens())
	e.session.MessageCount = len(e.messages)
	e.session.UpdatedAt = time.Now()
	if name != nil {
		e.session.Name = *name
	}

	return nil
}

// Rename sets the session's name, writing through to the database. Returns
// ErrNotFound if the session does not exist.
func (r *Registry) Rename(ctx context.Context, id uuid.UUID, name string) error {
	e := r.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.store.RenameSession(ctx, id, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			e.loaded = false
			r.evict(id)
		}
		return err
	}

	if e.loaded {
		e.session.Name = name
		e.session.UpdatedAt = time.Now()
	}
	return nil
}

// Delete removes the session from the database and the cache. Returns
// ErrNotFound if the session does not exist.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	e := r.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	// The cached copy is stale either way.
	e.loaded = false
	r.evict(id)

	return r.store.DeleteSession(ctx, id)
}

// load populates e from the database if it has not been loaded yet.
// Caller must hold e.mu.
func (r *Registry) load(ctx context.Context, id uuid.UUID, e *entry) error {
	if e.loaded {
		return nil
	}

	sess, err := r.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.evict(id)
		}
		return err
	}

	messages, err := r.store.GetMessages(ctx, id, maxHistoryMessages, 0)
	if err != nil {
		return fmt.Errorf("loading history for session %s: %w", id, err)
	}

	e.session = sess
	e.messages = messages
	e.loaded = true
	r.logger.Debug("cached session", "id", id, "messages", len(messages))
	return nil
}

// snapshot returns a copy safe to hand to callers. Caller must hold e.mu.
func (e *entry) snapshot() *Snapshot {
	messages := make([]*Message, len(e.messages))
	copy(messages, e.messages)
	return &Snapshot{
		Session:  copySession(e.session),
		Messages: messages,
	}
}

func copySession(s *Session) *Session {
	c := *s
	return &c
}
