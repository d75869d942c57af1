// Package sla computes deadlines against tenant business-hours
// calendars and runs the escalation timer registry.
package sla

import (
	"time"

	"github.com/mikey/llm-mail-router/internal/tenant"
)

// Deadline computes the absolute SLA deadline for a message received
// at receivedAt under the category's policy. It is a pure function of
// its inputs so it can be tested without a live clock.
//
// The weekend multiplier stretches the target when the message arrives
// on a non-workday. With business_hours_only the clock only advances
// during open hours, so a 4h target received Friday 16:00 against a
// Mon-Fri 9-17 calendar lands Monday 12:00, not Saturday.
func Deadline(receivedAt time.Time, policy tenant.SLAPolicy, hours *tenant.BusinessHours) time.Time {
	target := policy.Target
	if policy.WeekendMultiplier > 1 && !hours.IsWorkday(receivedAt) {
		target = time.Duration(float64(target) * policy.WeekendMultiplier)
	}
	if !policy.BusinessHoursOnly {
		return receivedAt.Add(target)
	}
	return AddBusinessTime(receivedAt, target, hours)
}

// FireAt converts a relative escalation delay into an absolute instant
// using the same business-hours-aware math as Deadline.
func FireAt(receivedAt time.Time, after time.Duration, policy tenant.SLAPolicy, hours *tenant.BusinessHours) time.Time {
	if !policy.BusinessHoursOnly {
		return receivedAt.Add(after)
	}
	return AddBusinessTime(receivedAt, after, hours)
}

// AddBusinessTime advances from the given instant by d of open-hours
// time, skipping closed hours, non-workdays and holidays.
func AddBusinessTime(from time.Time, d time.Duration, hours *tenant.BusinessHours) time.Time {
	t := from.In(hours.Location())
	for d > 0 {
		if !hours.IsOpen(t) {
			t = hours.NextOpen(t)
		}
		closeAt := hours.CloseAt(t)
		span := closeAt.Sub(t)
		if span >= d {
			return t.Add(d)
		}
		d -= span
		t = closeAt
	}
	return t
}
