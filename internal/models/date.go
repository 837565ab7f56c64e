package models

import (
	"fmt"
	"time"
)

// DateLayout is the only format receipt dates are stored in (%Y-%m-%d_%H:%M:%S).
const DateLayout = "2006-01-02_15:04:05"

// ParseDate parses a receipt date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match %s: %w", s, DateLayout, err)
	}
	return t, nil
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
