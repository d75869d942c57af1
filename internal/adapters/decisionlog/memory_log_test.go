package decisionlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/core"
)

func testRecord(id string, createdAt time.Time) *core.DecisionRecord {
	return &core.DecisionRecord{
		MessageID:   id,
		TenantID:    "acme",
		Category:    "support",
		Recipient:   "support@acme.com",
		Reason:      core.ReasonCategoryDefault,
		SLADeadline: createdAt.Add(4 * time.Hour),
		CreatedAt:   createdAt,
	}
}

func TestMemoryLog_RecordAndGet(t *testing.T) {
	t.Parallel()

	log := NewMemoryLog(zap.NewNop(), time.Hour, time.Hour)
	defer log.Stop()

	ctx := context.Background()
	want := testRecord("msg-1", time.Now())
	if err := log.Record(ctx, want); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := log.Get(ctx, "msg-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Recipient != want.Recipient || got.Reason != want.Reason {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestMemoryLog_GetMissing(t *testing.T) {
	t.Parallel()

	log := NewMemoryLog(zap.NewNop(), time.Hour, time.Hour)
	defer log.Stop()

	_, err := log.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryLog_Cleanup(t *testing.T) {
	t.Parallel()

	log := NewMemoryLog(zap.NewNop(), time.Hour, time.Hour)
	defer log.Stop()

	ctx := context.Background()
	_ = log.Record(ctx, testRecord("fresh", time.Now()))
	_ = log.Record(ctx, testRecord("stale", time.Now().Add(-2*time.Hour)))

	if err := log.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if _, err := log.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh record expired: %v", err)
	}
	if _, err := log.Get(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale record survived cleanup: %v", err)
	}
}
