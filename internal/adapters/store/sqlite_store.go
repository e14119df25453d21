package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ContextStore interface
type SQLiteStore struct {
	db         *sql.DB
	embedder   core.Embedder
	logger     *zap.Logger
	maxResults int
	retention  time.Duration
	stopCh     chan struct{}
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, embedder core.Embedder, maxResults int, retention time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS context_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_key TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create context table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_context_key ON context_entries(entry_key, created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create context index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS run_history (
			run_id TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			model_used TEXT,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run history table: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		embedder:   embedder,
		logger:     logger,
		maxResults: maxResults,
		retention:  retention,
		stopCh:     make(chan struct{}),
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s, nil
}

// Retrieve returns stored texts for the key, semantically ranked when an
// embedder is available, newest first otherwise
func (s *SQLiteStore) Retrieve(ctx context.Context, key string) ([]string, error) {
	var query []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to embed retrieval key, falling back to recency", zap.Error(err))
		} else {
			query = v
		}
	}

	limit := s.maxResults
	if query != nil {
		limit = candidateWindow
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content, embedding
		FROM context_entries
		WHERE entry_key = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key, time.Now().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query context entries: %w", err)
	}
	defer rows.Close()

	var entries []storedEntry
	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan context entry: %w", err)
		}
		entries = append(entries, storedEntry{content: content, embedding: decodeVector(blob)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate context entries: %w", err)
	}

	if query != nil {
		return topBySimilarity(query, entries, s.maxResults), nil
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.content
	}
	return out, nil
}

// Store persists a text under the key
func (s *SQLiteStore) Store(ctx context.Context, key string, text string) error {
	var blob []byte
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("Failed to embed context entry, storing without embedding", zap.Error(err))
		} else {
			blob = encodeVector(v)
		}
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_entries (entry_key, content, embedding, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, text, blob, now.Format(time.RFC3339), now.Add(s.retention).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert context entry: %w", err)
	}

	return nil
}

// RecordRun appends a run to the audit log
func (s *SQLiteStore) RecordRun(ctx context.Context, rec *core.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_history (run_id, message_id, outcome, model_used, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.MessageID, string(rec.Outcome), rec.ModelUsed,
		rec.StartedAt.Format(time.RFC3339), rec.CompletedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

// Cleanup removes expired context entries and run records past the
// retention window
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	now := time.Now()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM context_entries
		WHERE expires_at <= ?
	`, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up expired context entries: %w", err)
	}

	// Run history follows the same retention window
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM run_history
		WHERE completed_at <= ?
	`, now.Add(-s.retention).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up old run records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired context entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *SQLiteStore) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database connection
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
