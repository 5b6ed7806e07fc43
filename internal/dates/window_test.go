package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanSplitsAtMonthBoundaries(t *testing.T) {
	windows, err := Plan(day(2025, time.November, 1), day(2025, time.December, 1))
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, Window{day(2025, time.November, 1), day(2025, time.November, 30)}, windows[0])
	assert.Equal(t, Window{day(2025, time.December, 1), day(2025, time.December, 1)}, windows[1])
}

func TestPlanSingleDay(t *testing.T) {
	windows, err := Plan(day(2024, time.February, 29), day(2024, time.February, 29))
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, windows[0].Start, windows[0].End)
}

func TestPlanInteriorWindowsAreFullMonths(t *testing.T) {
	windows, err := Plan(day(2024, time.January, 15), day(2024, time.April, 10))
	require.NoError(t, err)
	require.Len(t, windows, 4)

	// Partial first and last, full months in between.
	assert.Equal(t, Window{day(2024, time.January, 15), day(2024, time.January, 31)}, windows[0])
	assert.Equal(t, Window{day(2024, time.February, 1), day(2024, time.February, 29)}, windows[1])
	assert.Equal(t, Window{day(2024, time.March, 1), day(2024, time.March, 31)}, windows[2])
	assert.Equal(t, Window{day(2024, time.April, 1), day(2024, time.April, 10)}, windows[3])
}

// Contiguity and exact coverage over a spread of ranges, including
// year boundaries and leap February.
func TestPlanCoversRangeExactly(t *testing.T) {
	ranges := []struct {
		start, end time.Time
	}{
		{day(2023, time.December, 25), day(2024, time.March, 3)},
		{day(2024, time.January, 1), day(2024, time.December, 31)},
		{day(2025, time.June, 30), day(2025, time.July, 1)},
		{day(2020, time.February, 1), day(2020, time.February, 29)},
	}

	for _, r := range ranges {
		windows, err := Plan(r.start, r.end)
		require.NoError(t, err)
		require.NotEmpty(t, windows)

		assert.Equal(t, r.start, windows[0].Start)
		assert.Equal(t, r.end, windows[len(windows)-1].End)

		for i, w := range windows {
			assert.False(t, w.End.Before(w.Start), "window %d inverted", i)
			assert.Equal(t, w.Start.Month(), w.End.Month(), "window %d crosses a month", i)
			if i > 0 {
				wantStart := windows[i-1].End.AddDate(0, 0, 1)
				assert.Equal(t, wantStart, w.Start, "gap or overlap before window %d", i)
			}
		}
	}
}

func TestPlanRejectsInvertedRange(t *testing.T) {
	_, err := Plan(day(2025, time.December, 1), day(2025, time.November, 1))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestWindowString(t *testing.T) {
	w := Window{day(2025, time.November, 1), day(2025, time.November, 30)}
	assert.Equal(t, "20251101~20251130", w.String())
}
