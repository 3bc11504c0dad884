package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is the shared-deployment scan history backend.
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to the MySQL history database and ensures the
// schema exists.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_history (
			id VARCHAR(36) PRIMARY KEY,
			scanned_at VARCHAR(35) NOT NULL,
			sender VARCHAR(320) NOT NULL,
			subject TEXT NOT NULL,
			body_length INT NOT NULL,
			link_count INT NOT NULL,
			header_score DOUBLE NOT NULL,
			domain_score DOUBLE NOT NULL,
			body_score DOUBLE NOT NULL,
			intent_score DOUBLE NOT NULL,
			adaptive_score DOUBLE NOT NULL,
			link_score DOUBLE NOT NULL,
			final_score DOUBLE NOT NULL,
			verdict VARCHAR(16) NOT NULL,
			INDEX idx_scanned_at (scanned_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scan_history table: %w", err)
	}

	return &MySQLStore{sqlStore{db: db, logger: logger}}, nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.close()
}
