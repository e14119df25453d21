package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLiteTestStore(t *testing.T, embedder core.Embedder) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "context.db")
	s, err := NewSQLiteStore(path, embedder, 3, time.Hour, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func insertExpiredEntry(t *testing.T, s *SQLiteStore, key, content string) {
	t.Helper()
	past := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO context_entries (entry_key, content, embedding, created_at, expires_at)
		VALUES (?, ?, NULL, ?, ?)
	`, key, content, past, past)
	require.NoError(t, err)
}

func TestSQLiteStoreRetrieveNewestFirst(t *testing.T) {
	s := newSQLiteTestStore(t, nil)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, s.Store(ctx, "carol@acme.com", text))
	}

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"fourth", "third", "second"}, got)
}

func TestSQLiteStoreKeysIsolated(t *testing.T) {
	s := newSQLiteTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "carol note"))
	require.NoError(t, s.Store(ctx, "user_preferences", "keep replies short"))

	got, err := s.Retrieve(ctx, "user_preferences")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep replies short"}, got)
}

func TestSQLiteStoreExpiredEntriesFiltered(t *testing.T) {
	s := newSQLiteTestStore(t, nil)
	ctx := context.Background()

	insertExpiredEntry(t, s, "carol@acme.com", "stale")
	require.NoError(t, s.Store(ctx, "carol@acme.com", "fresh"))

	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestSQLiteStoreCleanup(t *testing.T) {
	s := newSQLiteTestStore(t, nil)
	ctx := context.Background()

	insertExpiredEntry(t, s, "gone@acme.com", "stale")
	require.NoError(t, s.Store(ctx, "carol@acme.com", "fresh"))

	require.NoError(t, s.Cleanup(ctx))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM context_entries`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreSemanticRanking(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"carol@acme.com":   {1, 0},
		"intro call notes": {0.9, 0.1},
		"billing question": {0, 1},
	}}
	s := newSQLiteTestStore(t, embedder)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "carol@acme.com", "intro call notes"))
	require.NoError(t, s.Store(ctx, "carol@acme.com", "billing question"))

	// Recency alone would put the billing note first
	got, err := s.Retrieve(ctx, "carol@acme.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"intro call notes", "billing question"}, got)
}

func TestSQLiteStoreRecordRunUpserts(t *testing.T) {
	s := newSQLiteTestStore(t, nil)
	ctx := context.Background()

	now := time.Now()
	rec := &core.RunRecord{
		RunID:       "run-1",
		MessageID:   "msg-1",
		Outcome:     core.OutcomeUpstreamServiceError,
		ModelUsed:   "fake-model",
		StartedAt:   now,
		CompletedAt: now,
	}
	require.NoError(t, s.RecordRun(ctx, rec))

	rec.Outcome = core.OutcomeDrafted
	require.NoError(t, s.RecordRun(ctx, rec))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM run_history`).Scan(&count))
	assert.Equal(t, 1, count)

	var outcome string
	require.NoError(t, s.db.QueryRow(`SELECT outcome FROM run_history WHERE run_id = ?`, "run-1").Scan(&outcome))
	assert.Equal(t, string(core.OutcomeDrafted), outcome)
}
