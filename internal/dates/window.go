package dates

import (
	"fmt"
	"time"
)

// Window is an inclusive, contiguous sub-range of a collection range.
// The portal serves at most one calendar month per request, so windows
// never cross a month boundary. Immutable once produced.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s~%s", Compact(w.Start), Compact(w.End))
}

// Plan splits [start, end] into month-aligned windows: one window per
// calendar month touched by the range. The first and last windows may
// be partial months; interior windows are always full months. The
// windows are ordered, non-overlapping and cover the range exactly.
func Plan(start, end time.Time) ([]Window, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, Compact(start), Compact(end))
	}

	var windows []Window
	cur := start
	for !cur.After(end) {
		chunkEnd := MonthEnd(cur)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		windows = append(windows, Window{Start: cur, End: chunkEnd})
		cur = chunkEnd.AddDate(0, 0, 1)
	}
	return windows, nil
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
