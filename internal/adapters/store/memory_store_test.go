package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func newTestStore(t *testing.T, embedder core.Embedder, maxResults int) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(embedder, maxResults, time.Hour, zap.NewNop())
	t.Cleanup(s.Stop)
	return s
}

func (s *MemoryStore) expireAll(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries[key] {
		s.entries[key][i].expiresAt = time.Now().Add(-time.Minute)
	}
}

func TestMemoryStoreRetrieveNewestFirst(t *testing.T) {
	s := newTestStore(t, nil, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "first"))
	require.NoError(t, s.Store(ctx, "carol@acme.com", "second"))
	require.NoError(t, s.Store(ctx, "carol@acme.com", "third"))

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, got)
}

func TestMemoryStoreRetrieveUnknownKey(t *testing.T) {
	s := newTestStore(t, nil, 5)

	got, err := s.Retrieve(context.Background(), "nobody@acme.com")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreMaxResults(t *testing.T) {
	s := newTestStore(t, nil, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Store(ctx, "carol@acme.com", text))
	}

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, got)
}

func TestMemoryStoreKeysIsolated(t *testing.T) {
	s := newTestStore(t, nil, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "carol note"))
	require.NoError(t, s.Store(ctx, "user_preferences", "keep replies short"))

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol note"}, got)
}

func TestMemoryStoreExpiredEntriesFiltered(t *testing.T) {
	s := newTestStore(t, nil, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "stale"))
	s.expireAll("carol@acme.com")
	require.NoError(t, s.Store(ctx, "carol@acme.com", "fresh"))

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestMemoryStoreCleanup(t *testing.T) {
	s := newTestStore(t, nil, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "gone@acme.com", "stale"))
	s.expireAll("gone@acme.com")
	require.NoError(t, s.Store(ctx, "carol@acme.com", "fresh"))

	require.NoError(t, s.Cleanup(ctx))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.NotContains(t, s.entries, "gone@acme.com")
	assert.Len(t, s.entries["carol@acme.com"], 1)
}

func TestMemoryStoreSemanticRanking(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"carol@acme.com":   {1, 0},
		"intro call notes": {0.9, 0.1},
		"billing question": {0, 1},
	}}
	s := newTestStore(t, embedder, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "intro call notes"))
	require.NoError(t, s.Store(ctx, "carol@acme.com", "billing question"))

	// Recency alone would put the billing note first
	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"intro call notes", "billing question"}, got)
}

func TestMemoryStoreEmbedFailureFallsBack(t *testing.T) {
	s := newTestStore(t, &fakeEmbedder{err: errors.New("embed boom")}, 5)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "first"))
	require.NoError(t, s.Store(ctx, "carol@acme.com", "second"))

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, got)
}

func TestMemoryStoreRecordRun(t *testing.T) {
	s := newTestStore(t, nil, 5)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.RecordRun(ctx, &core.RunRecord{
		RunID:       "run-1",
		MessageID:   "msg-1",
		Outcome:     core.OutcomeDrafted,
		ModelUsed:   "fake-model",
		StartedAt:   now,
		CompletedAt: now,
	}))
	require.NoError(t, s.RecordRun(ctx, &core.RunRecord{RunID: "run-2", MessageID: "msg-2"}))

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.runs, 2)
	assert.Equal(t, "run-1", s.runs[0].RunID)
	assert.Equal(t, core.OutcomeDrafted, s.runs[0].Outcome)
}
