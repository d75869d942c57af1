package tenant

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BusinessHours is a tenant's open-hours calendar: timezone, workdays,
// daily window and holiday dates. Compile must be called (Validate does
// this) before any of the query methods.
type BusinessHours struct {
	Timezone  string   `mapstructure:"timezone"`
	Workdays  []string `mapstructure:"workdays"`
	StartTime string   `mapstructure:"start_time"`
	EndTime   string   `mapstructure:"end_time"`
	Holidays  []string `mapstructure:"holidays"`

	loc        *time.Location
	workdays   map[time.Weekday]bool
	startMins  int
	endMins    int
	holidaySet map[string]bool
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Compile resolves the timezone and parses workdays, window and
// holidays. It is idempotent.
func (h *BusinessHours) Compile() error {
	tz := h.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", h.Timezone, err)
	}
	h.loc = loc

	h.workdays = make(map[time.Weekday]bool, len(h.Workdays))
	for _, name := range h.Workdays {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("invalid workday %q", name)
		}
		h.workdays[day] = true
	}
	if len(h.workdays) == 0 {
		return fmt.Errorf("business hours declare no workdays")
	}

	h.startMins, err = parseClock(h.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time: %w", err)
	}
	h.endMins, err = parseClock(h.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end_time: %w", err)
	}
	if h.endMins <= h.startMins {
		return fmt.Errorf("end_time %q is not after start_time %q", h.EndTime, h.StartTime)
	}

	h.holidaySet = make(map[string]bool, len(h.Holidays))
	for _, d := range h.Holidays {
		if _, err := time.ParseInLocation("2006-01-02", d, loc); err != nil {
			return fmt.Errorf("invalid holiday date %q: %w", d, err)
		}
		h.holidaySet[d] = true
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hh*60 + mm, nil
}

// Location returns the tenant's resolved timezone.
func (h *BusinessHours) Location() *time.Location {
	return h.loc
}

// IsHoliday reports whether t falls on a configured holiday date.
func (h *BusinessHours) IsHoliday(t time.Time) bool {
	return h.holidaySet[t.In(h.loc).Format("2006-01-02")]
}

// IsWorkday reports whether t falls on a workday that is not a holiday.
func (h *BusinessHours) IsWorkday(t time.Time) bool {
	local := t.In(h.loc)
	return h.workdays[local.Weekday()] && !h.IsHoliday(local)
}

// IsOpen reports whether t is inside business hours.
func (h *BusinessHours) IsOpen(t time.Time) bool {
	if !h.IsWorkday(t) {
		return false
	}
	local := t.In(h.loc)
	mins := local.Hour()*60 + local.Minute()
	return mins >= h.startMins && mins < h.endMins
}

// NextOpen returns the earliest instant at or after t that is inside
// business hours.
func (h *BusinessHours) NextOpen(t time.Time) time.Time {
	local := t.In(h.loc)
	// Bounded scan; a year without a single open day means the calendar
	// is nonsense anyway.
	for i := 0; i < 370; i++ {
		if h.IsWorkday(local) {
			mins := local.Hour()*60 + local.Minute()
			if i == 0 && mins >= h.startMins && mins < h.endMins {
				return local
			}
			if i == 0 && mins < h.startMins {
				return h.dayStart(local)
			}
			if i > 0 {
				return h.dayStart(local)
			}
		}
		local = h.dayStart(local).AddDate(0, 0, 1)
	}
	return local
}

// CloseAt returns the close-of-business instant for t's day.
func (h *BusinessHours) CloseAt(t time.Time) time.Time {
	local := t.In(h.loc)
	return time.Date(local.Year(), local.Month(), local.Day(),
		h.endMins/60, h.endMins%60, 0, 0, h.loc)
}

func (h *BusinessHours) dayStart(t time.Time) time.Time {
	local := t.In(h.loc)
	return time.Date(local.Year(), local.Month(), local.Day(),
		h.startMins/60, h.startMins%60, 0, 0, h.loc)
}
