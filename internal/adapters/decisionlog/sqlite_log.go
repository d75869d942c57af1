package decisionlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// SQLiteLog is a SQLite implementation of the DecisionLog interface
type SQLiteLog struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteLog creates a new SQLite decision log
func NewSQLiteLog(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS routing_decisions (
			message_id TEXT PRIMARY KEY,
			tenant_id TEXT,
			category TEXT,
			recipient TEXT,
			reason TEXT,
			sla_deadline TIMESTAMP,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on created_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_created_at ON routing_decisions(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	log := &SQLiteLog{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go log.startCleanupTask()

	return log, nil
}

// Record stores a decision record
func (l *SQLiteLog) Record(ctx context.Context, rec *core.DecisionRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO routing_decisions
			(message_id, tenant_id, category, recipient, reason, sla_deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.MessageID, rec.TenantID, rec.Category, rec.Recipient, string(rec.Reason),
		rec.SLADeadline.Format(time.RFC3339), rec.CreatedAt.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}
	return nil
}

// Get retrieves a decision record by message id
func (l *SQLiteLog) Get(ctx context.Context, messageID string) (*core.DecisionRecord, error) {
	var rec core.DecisionRecord
	var reason, slaDeadline, createdAt string

	err := l.db.QueryRowContext(ctx, `
		SELECT message_id, tenant_id, category, recipient, reason, sla_deadline, created_at
		FROM routing_decisions
		WHERE message_id = ?
	`, messageID).Scan(&rec.MessageID, &rec.TenantID, &rec.Category, &rec.Recipient,
		&reason, &slaDeadline, &createdAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query decision record: %w", err)
	}

	rec.Reason = core.Reason(reason)
	if rec.SLADeadline, err = time.Parse(time.RFC3339, slaDeadline); err != nil {
		return nil, fmt.Errorf("failed to parse sla_deadline timestamp: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	return &rec, nil
}

// Cleanup removes records older than the retention window
func (l *SQLiteLog) Cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-l.retention).Format(time.RFC3339)

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
func (l *SQLiteLog) startCleanupTask() {
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
func (l *SQLiteLog) Stop() {
	close(l.stopCh)
	if err := l.db.Close(); err != nil {
		l.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
