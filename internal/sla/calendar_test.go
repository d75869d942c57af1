package sla

import (
	"testing"
	"time"

	"github.com/mikey/llm-mail-router/internal/tenant"
)

func businessHours(t *testing.T) *tenant.BusinessHours {
	t.Helper()
	h := &tenant.BusinessHours{
		Timezone:  "UTC",
		Workdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		StartTime: "09:00",
		EndTime:   "17:00",
		Holidays:  []string{"2026-08-31"},
	}
	if err := h.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return h
}

func TestDeadline_CalendarTime(t *testing.T) {
	t.Parallel()

	h := businessHours(t)
	policy := tenant.SLAPolicy{Target: 4 * time.Hour}

	// Around-the-clock target: plain addition, even on Friday evening.
	received := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)
	if got := Deadline(received, policy, h); !got.Equal(want) {
		t.Errorf("Deadline() = %v, want %v", got, want)
	}
}

func TestDeadline_BusinessHoursOnly(t *testing.T) {
	t.Parallel()

	h := &tenant.BusinessHours{
		Timezone:  "UTC",
		Workdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	if err := h.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	policy := tenant.SLAPolicy{Target: 4 * time.Hour, BusinessHoursOnly: true}

	tests := []struct {
		name     string
		received time.Time
		want     time.Time
	}{
		{
			// One open hour Friday, three more Monday morning.
			"friday afternoon spills into monday",
			time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		},
		{
			"midweek stays same day",
			time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC),
		},
		{
			"before opening counts from open",
			time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 26, 13, 0, 0, 0, time.UTC),
		},
		{
			"saturday counts from monday open",
			time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Deadline(tt.received, policy, h); !got.Equal(tt.want) {
				t.Errorf("Deadline(%v) = %v, want %v", tt.received, got, tt.want)
			}
		})
	}
}

func TestDeadline_WeekendMultiplier(t *testing.T) {
	t.Parallel()

	h := businessHours(t)
	policy := tenant.SLAPolicy{Target: 4 * time.Hour, WeekendMultiplier: 2}

	// Saturday receipt doubles the target; the clock still runs on
	// calendar time because business_hours_only is off.
	received := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	want := received.Add(8 * time.Hour)
	if got := Deadline(received, policy, h); !got.Equal(want) {
		t.Errorf("Deadline() = %v, want %v", got, want)
	}

	// Weekday receipt is unaffected by the multiplier.
	received = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	want = received.Add(4 * time.Hour)
	if got := Deadline(received, policy, h); !got.Equal(want) {
		t.Errorf("Deadline() = %v, want %v", got, want)
	}
}

func TestDeadline_SkipsHoliday(t *testing.T) {
	t.Parallel()

	h := businessHours(t) // Monday 2026-08-31 is a holiday
	policy := tenant.SLAPolicy{Target: 4 * time.Hour, BusinessHoursOnly: true}

	// Friday 16:00 + 4h would land Monday, but Monday is closed, so the
	// remaining three hours run Tuesday.
	received := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)
	want := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if got := Deadline(received, policy, h); !got.Equal(want) {
		t.Errorf("Deadline() = %v, want %v", got, want)
	}
}

func TestFireAt(t *testing.T) {
	t.Parallel()

	h := businessHours(t)
	received := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	plain := tenant.SLAPolicy{Target: 24 * time.Hour}
	if got, want := FireAt(received, 2*time.Hour, plain, h), received.Add(2*time.Hour); !got.Equal(want) {
		t.Errorf("FireAt() = %v, want %v", got, want)
	}

	bounded := tenant.SLAPolicy{Target: 4 * time.Hour, BusinessHoursOnly: true}
	// 12:00 + 6h of open time: 5h left Wednesday, 1h Thursday morning.
	if got, want := FireAt(received, 6*time.Hour, bounded, h), time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("FireAt() = %v, want %v", got, want)
	}
}

func TestAddBusinessTime_MultiDay(t *testing.T) {
	t.Parallel()

	h := businessHours(t)

	// 20 open hours from Wednesday 09:00: 8h Wed, 8h Thu, 4h Fri.
	from := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC)
	if got := AddBusinessTime(from, 20*time.Hour, h); !got.Equal(want) {
		t.Errorf("AddBusinessTime() = %v, want %v", got, want)
	}
}
