package util

import (
	"strconv"
	"time"
)

// ParseTime accepts RFC3339, RFC3339Nano and unix seconds or milliseconds.
// Results are UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return UnixAuto(ts), true
	}
	return time.Time{}, false
}

// UnixAuto reads ts as milliseconds when it is too large to be seconds.
func UnixAuto(ts int64) time.Time {
	if ts > 1e11 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
