package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/history"
	"go.uber.org/zap"
)

// HistoryFactory creates scan history repositories based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryRepository creates a scan history repository based on the
// configuration
func (f *HistoryFactory) CreateHistoryRepository() (core.ScanHistoryRepository, error) {
	historyType := f.cfg.GetString("history.type")

	switch historyType {
	case "sqlite":
		sqlitePath := f.cfg.GetString("history.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return history.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		return history.NewMySQLStore(f.cfg.GetString("history.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported history type: %s", historyType)
	}
}
