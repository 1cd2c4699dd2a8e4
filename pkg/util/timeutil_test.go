package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestampBareDateIsLocalCalendarDay(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ts, ok := ParseTimestamp("2024-01-01", newYork)
	require.True(t, ok)
	require.Equal(t, 2024, ts.Year())
	require.Equal(t, time.January, ts.Month())
	require.Equal(t, 1, ts.Day())
	require.Equal(t, 0, ts.Hour())
	require.Equal(t, "2024-01-01", CalendarDate(ts, newYork))
}

func TestParseTimestampZonedDatetime(t *testing.T) {
	ts, ok := ParseTimestamp("2024-03-05T10:30:00Z", time.UTC)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), ts)

	ts, ok = ParseTimestamp("2024-03-05T10:30:00.123456+08:00", time.UTC)
	require.True(t, ok)
	require.Equal(t, "2024-03-05", CalendarDate(ts, time.FixedZone("SGT", 8*60*60)))
}

func TestParseTimestampNaiveDatetimeUsesLocation(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	ts, ok := ParseTimestamp("2024-03-05T23:30:00", zone)
	require.True(t, ok)
	require.Equal(t, "2024-03-05", CalendarDate(ts, zone))
	require.Equal(t, "2024-03-06", CalendarDate(ts, time.UTC))
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2024-13-45"} {
		_, ok := ParseTimestamp(in, time.UTC)
		require.False(t, ok, in)
	}
}
