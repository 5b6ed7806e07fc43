package dates

import (
	"errors"
	"fmt"
	"time"
)

// LayoutCompact is the canonical 8-digit date form used in portal
// requests and artifact filenames.
const LayoutCompact = "20060102"

// acceptedLayouts are the input forms the collector normalizes, in the
// order they are tried.
var acceptedLayouts = []string{
	LayoutCompact,
	"2006-01-02",
	"2006/01/02",
}

// ErrInvalidRange is returned when a requested range ends before it starts.
var ErrInvalidRange = errors.New("end date precedes start date")

// Normalize parses a date given in YYYYMMDD, YYYY-MM-DD or YYYY/MM/DD
// form and returns it as a calendar day at midnight UTC.
func Normalize(s string) (time.Time, error) {
	for _, layout := range acceptedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want YYYYMMDD, YYYY-MM-DD or YYYY/MM/DD)", s)
}

// Compact renders a day in the canonical 8-digit form.
func Compact(t time.Time) string {
	return t.Format(LayoutCompact)
}

// Yesterday returns the calendar day before now, at midnight UTC.
// It is the implicit collection target when no date is supplied.
func Yesterday(now time.Time) time.Time {
	y := now.UTC().AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of d's calendar month.
func MonthEnd(d time.Time) time.Time {
	firstOfNext := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
