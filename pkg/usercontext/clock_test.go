package usercontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFunctionalDate(t *testing.T) {
	loc := cairo()

	afternoon := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-10", FunctionalDate(afternoon))

	lateNight := time.Date(2026, 3, 10, 1, 45, 0, 0, loc)
	assert.Equal(t, "2026-03-09", FunctionalDate(lateNight))

	boundary := time.Date(2026, 3, 10, 4, 0, 0, 0, loc)
	assert.Equal(t, "2026-03-10", FunctionalDate(boundary))

	justBefore := time.Date(2026, 3, 10, 3, 59, 59, 0, loc)
	assert.Equal(t, "2026-03-09", FunctionalDate(justBefore))
}

func TestLogTimestampClampsLateNight(t *testing.T) {
	loc := cairo()

	lateNight := time.Date(2026, 3, 10, 2, 15, 0, 0, loc)
	got := LogTimestamp(lateNight)
	assert.Equal(t, time.Date(2026, 3, 9, 23, 59, 59, 0, loc), got)

	morning := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	assert.Equal(t, morning, LogTimestamp(morning))
}

func TestCurrentTimeString(t *testing.T) {
	loc := cairo()
	ts := time.Date(2026, 3, 10, 14, 5, 0, 0, loc)
	assert.Equal(t, "2026-03-10 14:05 (Tuesday)", CurrentTimeString(ts))
}
