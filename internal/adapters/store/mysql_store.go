package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// mysqlTimeFormat is the literal format MySQL accepts for TIMESTAMP
// columns
const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLStore is a MySQL implementation of the ContextStore interface
type MySQLStore struct {
	db         *sql.DB
	embedder   core.Embedder
	logger     *zap.Logger
	maxResults int
	retention  time.Duration
	stopCh     chan struct{}
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, embedder core.Embedder, maxResults int, retention time.Duration, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS context_entries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			entry_key VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			embedding MEDIUMBLOB,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			INDEX idx_context_key (entry_key, created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create context table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS run_history (
			run_id VARCHAR(64) PRIMARY KEY,
			message_id VARCHAR(255) NOT NULL,
			outcome VARCHAR(64) NOT NULL,
			model_used VARCHAR(255),
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run history table: %w", err)
	}

	s := &MySQLStore{
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
func (s *MySQLStore) Retrieve(ctx context.Context, key string) ([]string, error) {
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
		WHERE entry_key = ? AND expires_at > NOW()
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key, limit)
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
func (s *MySQLStore) Store(ctx context.Context, key string, text string) error {
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
	`, key, text, blob, now.Format(mysqlTimeFormat), now.Add(s.retention).Format(mysqlTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert context entry: %w", err)
	}

	return nil
}

// RecordRun appends a run to the audit log
func (s *MySQLStore) RecordRun(ctx context.Context, rec *core.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_history (run_id, message_id, outcome, model_used, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			outcome = VALUES(outcome),
			completed_at = VALUES(completed_at)
	`, rec.RunID, rec.MessageID, string(rec.Outcome), rec.ModelUsed,
		rec.StartedAt.Format(mysqlTimeFormat), rec.CompletedAt.Format(mysqlTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

// Cleanup removes expired context entries and run records past the
// retention window
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM context_entries
		WHERE expires_at <= NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to clean up expired context entries: %w", err)
	}

	// Run history follows the same retention window
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM run_history
		WHERE completed_at <= ?
	`, time.Now().Add(-s.retention).Format(mysqlTimeFormat))
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
func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
