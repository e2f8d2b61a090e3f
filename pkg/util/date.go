package util

import (
	"time"
)

// ParseISODate parses a YYYY-MM-DD day, accepting RFC3339 timestamps as a
// fallback. The result is floored to UTC midnight. Returns (t, true) if any
// layout worked.
func ParseISODate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dayFloor(t), true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return dayFloor(t), true
	}
	return time.Time{}, false
}

// ParseISODateDefault parses a day or returns default if empty/invalid.
func ParseISODateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseISODate(s); ok {
		return t
	}
	return def
}

// FormatISODate renders t as YYYY-MM-DD in UTC.
func FormatISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func dayFloor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
