package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is the single-node scan history backend.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if needed) the SQLite history database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_history (
			id TEXT PRIMARY KEY,
			scanned_at TEXT NOT NULL,
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			body_length INTEGER NOT NULL,
			link_count INTEGER NOT NULL,
			header_score REAL NOT NULL,
			domain_score REAL NOT NULL,
			body_score REAL NOT NULL,
			intent_score REAL NOT NULL,
			adaptive_score REAL NOT NULL,
			link_score REAL NOT NULL,
			final_score REAL NOT NULL,
			verdict TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scan_history table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_scanned_at ON scan_history(scanned_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db, logger: logger}}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.close()
}
