package tenant

import (
	"testing"
	"time"
)

func compiledHours(t *testing.T) *BusinessHours {
	t.Helper()
	h := &BusinessHours{
		Timezone:  "UTC",
		Workdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		StartTime: "09:00",
		EndTime:   "17:00",
		Holidays:  []string{"2026-01-01"},
	}
	if err := h.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return h
}

func TestBusinessHours_Compile_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hours BusinessHours
	}{
		{"bad timezone", BusinessHours{Timezone: "Mars/Olympus", Workdays: []string{"monday"}, StartTime: "09:00", EndTime: "17:00"}},
		{"bad workday", BusinessHours{Workdays: []string{"funday"}, StartTime: "09:00", EndTime: "17:00"}},
		{"no workdays", BusinessHours{StartTime: "09:00", EndTime: "17:00"}},
		{"bad start", BusinessHours{Workdays: []string{"monday"}, StartTime: "9am", EndTime: "17:00"}},
		{"bad end", BusinessHours{Workdays: []string{"monday"}, StartTime: "09:00", EndTime: "25:00"}},
		{"end before start", BusinessHours{Workdays: []string{"monday"}, StartTime: "17:00", EndTime: "09:00"}},
		{"bad holiday", BusinessHours{Workdays: []string{"monday"}, StartTime: "09:00", EndTime: "17:00", Holidays: []string{"Jan 1"}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := tt.hours
			if err := h.Compile(); err == nil {
				t.Errorf("Compile() error = nil, want error")
			}
		})
	}
}

func TestBusinessHours_IsOpen(t *testing.T) {
	t.Parallel()

	h := compiledHours(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midday weekday", time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), true},
		{"exact open", time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC), true},
		{"exact close", time.Date(2026, 8, 26, 17, 0, 0, 0, time.UTC), false},
		{"before open", time.Date(2026, 8, 26, 8, 59, 0, 0, time.UTC), false},
		{"saturday", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), false},
		{"holiday", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := h.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestBusinessHours_IsWorkday_Holiday(t *testing.T) {
	t.Parallel()

	h := compiledHours(t)

	// 2026-01-01 is a Thursday but declared a holiday.
	if h.IsWorkday(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("IsWorkday(holiday) = true, want false")
	}
	if !h.IsWorkday(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("IsWorkday(Friday) = false, want true")
	}
}

func TestBusinessHours_NextOpen(t *testing.T) {
	t.Parallel()

	h := compiledHours(t)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			"already open",
			time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		},
		{
			"same day before open",
			time.Date(2026, 8, 26, 7, 30, 0, 0, time.UTC),
			time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		},
		{
			"friday evening rolls to monday",
			time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		},
		{
			"saturday rolls to monday",
			time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := h.NextOpen(tt.at); !got.Equal(tt.want) {
				t.Errorf("NextOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestBusinessHours_CloseAt(t *testing.T) {
	t.Parallel()

	h := compiledHours(t)

	at := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	want := time.Date(2026, 8, 26, 17, 0, 0, 0, time.UTC)
	if got := h.CloseAt(at); !got.Equal(want) {
		t.Errorf("CloseAt(%v) = %v, want %v", at, got, want)
	}
}

func TestBusinessHours_Timezone(t *testing.T) {
	t.Parallel()

	h := &BusinessHours{
		Timezone:  "America/New_York",
		Workdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	if err := h.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	// 16:00 UTC on a Wednesday is 12:00 in New York (EDT).
	at := time.Date(2026, 8, 26, 16, 0, 0, 0, time.UTC)
	if !h.IsOpen(at) {
		t.Errorf("IsOpen(%v) = false, want true", at)
	}
	// 02:00 UTC on Thursday is 22:00 Wednesday in New York.
	at = time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	if h.IsOpen(at) {
		t.Errorf("IsOpen(%v) = true, want false", at)
	}
}
