package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/cosmicworks/ragchat/internal/sqlc"
)

type mockQuerier struct {
	insertErr  error
	searchErr  error
	clearErr   error
	searchRows []sqlc.SearchResponseCacheRow

	insertCalls int
	searchCalls int
	clearCalls  int
	lastInsert  sqlc.InsertCacheEntryParams
	lastSearch  sqlc.SearchResponseCacheParams
}

func (m *mockQuerier) InsertCacheEntry(_ context.Context, arg sqlc.InsertCacheEntryParams) (sqlc.ResponseCache, error) {
	m.insertCalls++
	m.lastInsert = arg
	if m.insertErr != nil {
		return sqlc.ResponseCache{}, m.insertErr
	}
	return sqlc.ResponseCache{Prompt: arg.Prompt, Completion: arg.Completion}, nil
}

func (m *mockQuerier) SearchResponseCache(_ context.Context, arg sqlc.SearchResponseCacheParams) ([]sqlc.SearchResponseCacheRow, error) {
	m.searchCalls++
	m.lastSearch = arg
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRows, nil
}

func (m *mockQuerier) ClearResponseCache(context.Context) error {
	m.clearCalls++
	return m.clearErr
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func newTestCache(t *testing.T, mock *mockQuerier, emb *stubEmbedder) *Cache {
	t.Helper()
	c, err := New(mock, emb, 0.95, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewThresholdValidation(t *testing.T) {
	for _, threshold := range []float64{0, -0.5, 1.5} {
		if _, err := New(&mockQuerier{}, &stubEmbedder{}, threshold, nil); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: error = %v, want ErrInvalidThreshold", threshold, err)
		}
	}
	if _, err := New(&mockQuerier{}, &stubEmbedder{}, 1.0, nil); err != nil {
		t.Errorf("threshold 1.0 should be valid: %v", err)
	}
}

func TestLookupHit(t *testing.T) {
	mock := &mockQuerier{searchRows: []sqlc.SearchResponseCacheRow{
		{Completion: "The Touring-1000 costs $2,384.07.", Similarity: 0.97},
	}}
	c := newTestCache(t, mock, &stubEmbedder{vec: []float32{0.1}})

	completion, hit, err := c.Lookup(context.Background(), "how much is the touring bike?")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit")
	}
	if completion != "The Touring-1000 costs $2,384.07." {
		t.Errorf("completion = %q", completion)
	}
	if mock.lastSearch.MinSimilarity != 0.95 {
		t.Errorf("min similarity = %v, want 0.95", mock.lastSearch.MinSimilarity)
	}
}

func TestLookupMissIsExplicit(t *testing.T) {
	c := newTestCache(t, &mockQuerier{}, &stubEmbedder{vec: []float32{0.1}})

	completion, hit, err := c.Lookup(context.Background(), "something new")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if hit {
		t.Error("expected a miss")
	}
	if completion != "" {
		t.Errorf("completion = %q, want empty on miss", completion)
	}
}

func TestLookupEmbedderFailure(t *testing.T) {
	mock := &mockQuerier{}
	c := newTestCache(t, mock, &stubEmbedder{err: errors.New("quota exceeded")})

	_, hit, err := c.Lookup(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if hit {
		t.Error("a failed lookup must not report a hit")
	}
	if mock.searchCalls != 0 {
		t.Error("search must not run after embed failure")
	}
}

func TestInsert(t *testing.T) {
	mock := &mockQuerier{}
	c := newTestCache(t, mock, &stubEmbedder{vec: []float32{0.1}})

	if err := c.Insert(context.Background(), "prompt", "completion"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if mock.lastInsert.Prompt != "prompt" || mock.lastInsert.Completion != "completion" {
		t.Errorf("insert params = %+v", mock.lastInsert)
	}
}

func TestInsertFailure(t *testing.T) {
	mock := &mockQuerier{insertErr: errors.New("disk full")}
	c := newTestCache(t, mock, &stubEmbedder{vec: []float32{0.1}})

	if err := c.Insert(context.Background(), "prompt", "completion"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClear(t *testing.T) {
	mock := &mockQuerier{}
	c := newTestCache(t, mock, &stubEmbedder{})

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if mock.clearCalls != 1 {
		t.Errorf("clear calls = %d, want 1", mock.clearCalls)
	}
}
