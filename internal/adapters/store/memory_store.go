package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// cleanupInterval is how often expired context entries are swept
const cleanupInterval = time.Hour

// memoryEntry is one stored context text
type memoryEntry struct {
	content   string
	embedding []float32
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the ContextStore
// interface, used for CLI runs and tests
type MemoryStore struct {
	entries    map[string][]memoryEntry
	runs       []*core.RunRecord
	mu         sync.RWMutex
	embedder   core.Embedder
	logger     *zap.Logger
	maxResults int
	retention  time.Duration
	stopCh     chan struct{}
}

// NewMemoryStore creates a new in-memory store. The embedder may be nil,
// in which case retrieval falls back to recency order.
func NewMemoryStore(embedder core.Embedder, maxResults int, retention time.Duration, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string][]memoryEntry),
		embedder:   embedder,
		logger:     logger,
		maxResults: maxResults,
		retention:  retention,
		stopCh:     make(chan struct{}),
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s
}

// Retrieve returns stored texts for the key, semantically ranked when an
// embedder is available, newest first otherwise
func (s *MemoryStore) Retrieve(ctx context.Context, key string) ([]string, error) {
	var query []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to embed retrieval key, falling back to recency", zap.Error(err))
		} else {
			query = v
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	stored := s.entries[key]
	live := make([]storedEntry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		e := stored[i]
		if now.After(e.expiresAt) {
			continue
		}
		live = append(live, storedEntry{content: e.content, embedding: e.embedding})
	}

	if query != nil {
		return topBySimilarity(query, live, s.maxResults), nil
	}

	if len(live) > s.maxResults {
		live = live[:s.maxResults]
	}
	out := make([]string, len(live))
	for i, e := range live {
		out[i] = e.content
	}
	return out, nil
}

// Store persists a text under the key
func (s *MemoryStore) Store(ctx context.Context, key string, text string) error {
	entry := memoryEntry{
		content:   text,
		expiresAt: time.Now().Add(s.retention),
	}
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("Failed to embed context entry, storing without embedding", zap.Error(err))
		} else {
			entry.embedding = v
		}
	}

	s.mu.Lock()
	s.entries[key] = append(s.entries[key], entry)
	s.mu.Unlock()
	return nil
}

// RecordRun appends a run to the audit log
func (s *MemoryStore) RecordRun(ctx context.Context, rec *core.RunRecord) error {
	s.mu.Lock()
	s.runs = append(s.runs, rec)
	s.mu.Unlock()
	return nil
}

// Cleanup removes expired entries
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, entries := range s.entries {
		kept := entries[:0]
		for _, e := range entries {
			if now.After(e.expiresAt) {
				expiredCount++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.entries, key)
		} else {
			s.entries[key] = kept
		}
	}

	s.logger.Debug("Cleaned up expired context entries", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up context store", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
