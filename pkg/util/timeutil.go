package util

import (
	"strings"
	"time"
)

// DateLayout is the bare calendar date format used by the points backend.
const DateLayout = "2006-01-02"

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseTimestamp reads either a full ISO-8601 datetime or a bare date.
// Bare dates are calendar days in loc (midnight local), not UTC instants,
// so that "2024-01-01" never renders as Dec 31 west of Greenwich.
// Datetimes without an offset are read in loc as well.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if len(trimmed) == len(DateLayout) {
		ts, err := time.ParseInLocation(DateLayout, trimmed, loc)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// CalendarDate formats ts as the calendar day it falls on in loc.
func CalendarDate(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(DateLayout)
}
