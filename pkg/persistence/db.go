// Package persistence provides the SQLite-backed store for crawled data.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"lolcrawler/pkg/logx"
)

// Store owns the single database connection. It is safe for concurrent use:
// the connection pool is capped at one connection, so writes serialize there.
type Store struct {
	db        *sql.DB
	sessionID string
	logger    *logx.Logger
}

// Open creates the parent directory if needed, opens the database with WAL
// mode and a busy timeout, and initializes the schema. The session id is
// stamped on api_calls audit rows written through this store.
func Open(dbPath, sessionID string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{
		db:        db,
		sessionID: sessionID,
		logger:    logx.NewLogger("persistence"),
	}
	store.logger.Info("database opened: %s (session: %s)", dbPath, sessionID)
	return store, nil
}

// SessionID returns the session id stamped on audit rows.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Close closes the underlying connection. Call during shutdown.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
