package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// AlignFromTo rounds the time range to boundaries for the timeframe.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	var d time.Duration
	switch tf {
	case "1m":
		d = time.Minute
	case "5m":
		d = 5 * time.Minute
	case "15m":
		d = 15 * time.Minute
	case "1h":
		d = time.Hour
	case "4h":
		d = 4 * time.Hour
	case "1d":
		d = 24 * time.Hour
	default:
		d = time.Minute
	}
	return from.Truncate(d), to.Truncate(d)
}

// NextDailyUTC returns the next occurrence of the given offset-from-midnight
// in UTC, strictly after now.
func NextDailyUTC(now time.Time, offset time.Duration) time.Time {
	day := now.UTC().Truncate(24 * time.Hour)
	next := day.Add(offset)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
