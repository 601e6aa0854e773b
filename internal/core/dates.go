package core

import (
	"fmt"
	"strings"
	"time"
)

// startDateLayouts are tried in order. The first integration sent a bare date,
// later ones send full ISO-8601 timestamps with or without an offset, with a
// "T" or a space between date and time.
var startDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseStartDate parses a booking start date. The returned time keeps the
// offset it was delivered with, so its calendar date is the local one.
func ParseStartDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidStartDate)
	}
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartDate, raw)
}

// ReportMonth parses raw and derives its month label. When loc is non-nil
// the timestamp is first converted into that zone.
func ReportMonth(raw string, loc *time.Location) (string, time.Time, error) {
	t, err := ParseStartDate(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	if loc != nil {
		t = t.In(loc)
	}
	return MonthLabel(t), t, nil
}
