package logger

import (
	"strings"
	"time"
)

// Status maps an error into the canonical status attribute value.
func Status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// Took measures elapsed time since start.
func Took(start time.Time) time.Duration {
	return time.Since(start)
}

// RoundMS rounds a duration to whole milliseconds for stable log output.
func RoundMS(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins up to limit values and reports whether the list was truncated.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, ","), false
	}
	return strings.Join(values[:limit], ","), true
}
