package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/adapters/decisionlog"
	"github.com/mikey/llm-mail-router/internal/config"
	"github.com/mikey/llm-mail-router/internal/core"
)

// DecisionLogFactory creates decision logs based on configuration
type DecisionLogFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDecisionLogFactory creates a new decision log factory
func NewDecisionLogFactory(cfg *config.Config, logger *zap.Logger) *DecisionLogFactory {
	return &DecisionLogFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDecisionLog creates a decision log based on the configuration
func (f *DecisionLogFactory) CreateDecisionLog() (core.DecisionLog, error) {
	logType := f.cfg.GetString("decision_log.type")
	retention, err := f.cfg.GetDuration("decision_log.retention")
	if err != nil {
		return nil, fmt.Errorf("invalid decision log retention: %w", err)
	}
	cleanupFreq, err := f.cfg.GetDuration("decision_log.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid decision log cleanup frequency: %w", err)
	}

	switch logType {
	case "memory":
		return decisionlog.NewMemoryLog(f.logger, retention, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("decision_log.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return decisionlog.NewSQLiteLog(sqlitePath, f.logger, retention, cleanupFreq)
	case "mysql":
		mysqlDSN := f.cfg.GetString("decision_log.mysql_dsn")
		return decisionlog.NewMySQLLog(mysqlDSN, f.logger, retention, cleanupFreq)
	default:
		return nil, fmt.Errorf("unsupported decision log type: %s", logType)
	}
}
