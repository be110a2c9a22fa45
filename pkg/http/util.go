package http

import (
	"time"

	xutil "SignalForge/pkg/util"
)

// ParseBoolDefault parses string to bool or returns default if empty/invalid.
func ParseBoolDefault(s string, def bool) bool { return xutil.ParseBoolDefault(s, def) }

// ParseTime accepts RFC3339 and unix seconds or milliseconds.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }
