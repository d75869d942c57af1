package decisionlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

// ErrNotFound is returned when a decision record is not found
var ErrNotFound = errors.New("decision record not found")

// MemoryLog is an in-memory implementation of the DecisionLog interface
type MemoryLog struct {
	records     map[string]*core.DecisionRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryLog creates a new in-memory decision log
func NewMemoryLog(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryLog {
	log := &MemoryLog{
		records:     make(map[string]*core.DecisionRecord),
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go log.startCleanupTask()

	return log
}

// Record stores a decision record
func (l *MemoryLog) Record(ctx context.Context, rec *core.DecisionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[rec.MessageID] = rec
	return nil
}

// Get retrieves a decision record by message id
func (l *MemoryLog) Get(ctx context.Context, messageID string) (*core.DecisionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Cleanup removes records older than the retention window
func (l *MemoryLog) Cleanup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.retention)
	expiredCount := 0

	for id, rec := range l.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(l.records, id)
			expiredCount++
		}
	}

	l.logger.Debug("Cleaned up expired decision records", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired records
func (l *MemoryLog) startCleanupTask() {
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

// Stop stops the background cleanup task
func (l *MemoryLog) Stop() {
	close(l.stopCh)
}
