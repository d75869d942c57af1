package decisionlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// MySQLLog is a MySQL implementation of the DecisionLog interface
type MySQLLog struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLLog creates a new MySQL decision log
func NewMySQLLog(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLLog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Verify the connection works before going any further
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL server: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS routing_decisions (
			message_id VARCHAR(255) PRIMARY KEY,
			tenant_id VARCHAR(255),
			category VARCHAR(255),
			recipient VARCHAR(255),
			reason VARCHAR(64),
			sla_deadline TIMESTAMP NULL,
			created_at TIMESTAMP NULL,
			INDEX idx_created_at (created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	log := &MySQLLog{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go log.startCleanupTask()

	return log, nil
}

// Record stores a decision record
func (l *MySQLLog) Record(ctx context.Context, rec *core.DecisionRecord) error {
	_, err := l.db.ExecContext(ctx, `
		REPLACE INTO routing_decisions
			(message_id, tenant_id, category, recipient, reason, sla_deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.MessageID, rec.TenantID, rec.Category, rec.Recipient, string(rec.Reason),
		rec.SLADeadline, rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}
	return nil
}

// Get retrieves a decision record by message id
func (l *MySQLLog) Get(ctx context.Context, messageID string) (*core.DecisionRecord, error) {
	var rec core.DecisionRecord
	var reason string

	err := l.db.QueryRowContext(ctx, `
		SELECT message_id, tenant_id, category, recipient, reason, sla_deadline, created_at
		FROM routing_decisions
		WHERE message_id = ?
	`, messageID).Scan(&rec.MessageID, &rec.TenantID, &rec.Category, &rec.Recipient,
		&reason, &rec.SLADeadline, &rec.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query decision record: %w", err)
	}

	rec.Reason = core.Reason(reason)
	return &rec, nil
}

// Cleanup removes records older than the retention window
func (l *MySQLLog) Cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-l.retention)

	result, err := l.db.ExecContext(ctx, `
		DELETE FROM routing_decisions
		WHERE created_at <= ?
	`, cutoff)

	if err != nil {
		return fmt.Errorf("failed to clean up expired records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		l.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		l.logger.Debug("Cleaned up expired decision records", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired records
func (l *MySQLLog) startCleanupTask() {
	ticker := time.NewTicker(l.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Cleanup(context.Background()); err != nil {
				l.logger.Error("Failed to clean up decision log", zap.Error(err))
			}
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (l *MySQLLog) Stop() {
	close(l.stopCh)
	if err := l.db.Close(); err != nil {
		l.logger.Error("Failed to close MySQL connection", zap.Error(err))
	}
}
