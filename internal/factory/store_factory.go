package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-mail-agent/internal/adapters/store"
	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates context stores based on configuration
type StoreFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	embedder core.Embedder
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger, embedder core.Embedder) *StoreFactory {
	return &StoreFactory{
		cfg:      cfg,
		logger:   logger,
		embedder: embedder,
	}
}

// CreateContextStore creates a context store based on the configuration
func (f *StoreFactory) CreateContextStore() (core.ContextStore, error) {
	storeType := f.cfg.GetString("store.type")
	retention, err := f.cfg.GetDuration("store.retention")
	if err != nil {
		return nil, fmt.Errorf("invalid store retention: %w", err)
	}
	maxResults := f.cfg.GetInt("store.max_results")

	switch storeType {
	case "memory":
		return store.NewMemoryStore(f.embedder, maxResults, retention, f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("store.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sqlitePath, f.embedder, maxResults, retention, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("store.mysql_dsn")
		return store.NewMySQLStore(mysqlDSN, f.embedder, maxResults, retention, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
