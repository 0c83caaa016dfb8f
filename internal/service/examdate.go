package service

import (
	"time"

	"certhub/backend/internal/model"
)

// ── exam date derivation ──
//
// The exam date is the chronologically latest class date plus a lead of
// calendar days, rolled forward off weekends (Saturday +2, Sunday +1).
// Pure and deterministic; class slots keep insertion order, so the latest
// date is found by sorting here, not by position.

// computeExamDate derives the exam date for a session's class slots.
// ok is false when the session has no class slots.
func computeExamDate(slots []model.ClassSlot, leadDays int) (date time.Time, ok bool) {
	if len(slots) == 0 {
		return time.Time{}, false
	}

	last := slots[0].Date
	for _, slot := range slots[1:] {
		if slot.Date.After(last) {
			last = slot.Date
		}
	}

	return rollForwardWeekend(truncateToDay(last).AddDate(0, 0, leadDays)), true
}

// rollForwardWeekend moves weekend dates to the following Monday.
func rollForwardWeekend(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}

// truncateToDay drops the time-of-day component, keeping UTC.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
