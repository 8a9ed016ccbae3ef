package usercontext

import (
	"sync"
	"time"
)

// The coach reasons in one canonical time zone. Hours 00:00-04:00 belong
// to the previous "functional day" so a 2 AM meal counts against
// yesterday's totals.
const functionalDayOffsetHours = 4

var (
	cairoOnce sync.Once
	cairoLoc  *time.Location
)

func cairo() *time.Location {
	cairoOnce.Do(func() {
		loc, err := time.LoadLocation("Africa/Cairo")
		if err != nil {
			loc = time.FixedZone("EET", 2*60*60)
		}
		cairoLoc = loc
	})
	return cairoLoc
}

// Location returns the canonical time zone.
func Location() *time.Location {
	return cairo()
}

// Now returns the current wall time in the canonical zone.
func Now() time.Time {
	return time.Now().In(cairo())
}

// CurrentTimeString formats t for prompt injection: "2026-08-28 14:05 (Friday)".
func CurrentTimeString(t time.Time) string {
	return t.In(cairo()).Format("2006-01-02 15:04 (Monday)")
}

// FunctionalDate returns the YYYY-MM-DD functional day for t.
func FunctionalDate(t time.Time) string {
	t = t.In(cairo())
	if t.Hour() < functionalDayOffsetHours {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format("2006-01-02")
}

// LogTimestamp returns the timestamp a log entry created at t should
// carry. Late-night entries are clamped to 23:59:59 of the previous day.
func LogTimestamp(t time.Time) time.Time {
	t = t.In(cairo())
	if t.Hour() < functionalDayOffsetHours {
		y := t.AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 23, 59, 59, 0, cairo())
	}
	return t
}
