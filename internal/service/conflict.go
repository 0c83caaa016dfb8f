package service

import (
	"fmt"
	"time"
)

// ── interval conflict detection ──
//
// A slot is (calendar date, "HH:MM" start, duration in minutes). Two slots
// on different calendar days never conflict. On the same day the comparison
// uses half-open intervals: touching endpoints do not conflict. The check is
// symmetric by construction.

// parseClock converts "HH:MM" (24h) to minutes since midnight.
func parseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if len(s) != 5 || s[2] != ':' || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hh*60 + mm, nil
}

// sameCalendarDay reports whether two stamps fall on the same calendar date.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// slotsOverlap reports whether two slots conflict.
// Invalid clock strings count as non-overlapping; callers validate inputs
// before any conflict check runs.
func slotsOverlap(aDate time.Time, aStart string, aDuration int, bDate time.Time, bStart string, bDuration int) bool {
	if !sameCalendarDay(aDate, bDate) {
		return false
	}

	aS, errA := parseClock(aStart)
	bS, errB := parseClock(bStart)
	if errA != nil || errB != nil {
		return false
	}

	aE := aS + aDuration
	bE := bS + bDuration

	// half-open: a slot ending exactly when the other begins is no conflict
	return aS < bE && bS < aE
}

// combineDateTime builds the UTC stamp for a calendar date plus "HH:MM".
func combineDateTime(date time.Time, clock string) (time.Time, error) {
	minutes, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, time.UTC), nil
}

// SlotConflictError is a conflict rejection carrying the records the
// requested slot collides with, so callers can present them.
type SlotConflictError struct {
	Message   string
	Conflicts interface{}
}

// Error implements the error interface.
func (e *SlotConflictError) Error() string { return e.Message }
