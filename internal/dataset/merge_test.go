package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hourlyTable(rows ...Record) *Table {
	return &Table{
		Columns: []string{ColDate, ColStation, ColHour, "generation_mwh"},
		Records: rows,
	}
}

func rec(d time.Time, station, hour, mwh string) Record {
	return Record{Date: d, Station: station, Hour: hour, Extra: map[string]string{"generation_mwh": mwh}}
}

func TestMergeIntoAbsentMaster(t *testing.T) {
	batch := hourlyTable(
		rec(obsDay(2024, 1, 1), "Busan", "1", "10.5"),
		rec(obsDay(2024, 1, 1), "Busan", "2", "11.0"),
	)

	merged, out := Merge(batch, nil)

	assert.Equal(t, 2, out.Added)
	assert.Equal(t, 0, out.Skipped)
	assert.Equal(t, 2, out.Total)
	assert.NoError(t, out.Warning)
	assert.Equal(t, batch.Columns, merged.Columns)
}

func TestMergeSkipsExistingKeys(t *testing.T) {
	master := hourlyTable(rec(obsDay(2024, 1, 1), "A", "1", "5.0"))
	batch := hourlyTable(
		rec(obsDay(2024, 1, 1), "A", "1", "9.9"), // same key, different value
		rec(obsDay(2024, 1, 1), "A", "2", "6.0"),
	)

	merged, out := Merge(batch, master)

	assert.Equal(t, 1, out.Added)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, []string{ColDate, ColStation, ColHour}, out.KeyColumns)

	// The existing value wins over the re-collected one.
	assert.Equal(t, "5.0", merged.Records[0].Extra["generation_mwh"])
}

func TestMergeIsIdempotent(t *testing.T) {
	batch := hourlyTable(
		rec(obsDay(2024, 1, 1), "A", "1", "1"),
		rec(obsDay(2024, 1, 2), "A", "1", "2"),
		rec(obsDay(2024, 1, 2), "B", "1", "3"),
	)

	first, out1 := Merge(batch, nil)
	require.Equal(t, 3, out1.Added)

	_, out2 := Merge(batch, first)
	assert.Equal(t, 0, out2.Added)
	assert.Equal(t, 3, out2.Skipped)
	assert.Equal(t, 3, out2.Total)
}

func TestMergeIsAdditiveForDisjointBatches(t *testing.T) {
	b1 := hourlyTable(
		rec(obsDay(2024, 1, 1), "A", "1", "1"),
		rec(obsDay(2024, 1, 1), "A", "2", "2"),
	)
	b2 := hourlyTable(
		rec(obsDay(2024, 1, 2), "A", "1", "3"),
		rec(obsDay(2024, 1, 2), "B", "1", "4"),
	)

	m1, _ := Merge(b1, nil)
	m2, out := Merge(b2, m1)

	assert.Equal(t, b1.Len()+b2.Len(), out.Total)
	assert.Equal(t, b1.Len()+b2.Len(), m2.Len())
}

func TestMergeFallsBackToTwoColumnKey(t *testing.T) {
	daily := func(rows ...Record) *Table {
		return &Table{Columns: []string{ColDate, ColStation, "temperature"}, Records: rows}
	}
	master := daily(Record{Date: obsDay(2024, 1, 1), Station: "A", Extra: map[string]string{"temperature": "3.2"}})
	batch := daily(
		Record{Date: obsDay(2024, 1, 1), Station: "A", Extra: map[string]string{"temperature": "3.5"}},
		Record{Date: obsDay(2024, 1, 2), Station: "A", Extra: map[string]string{"temperature": "4.1"}},
	)

	_, out := Merge(batch, master)

	assert.Equal(t, []string{ColDate, ColStation}, out.KeyColumns)
	assert.Equal(t, 1, out.Added)
	assert.Equal(t, 1, out.Skipped)
}

func TestMergeBypassesDedupWhenKeyColumnsMissing(t *testing.T) {
	noStation := func(rows ...Record) *Table {
		return &Table{Columns: []string{ColDate, "value"}, Records: rows}
	}
	master := noStation(Record{Date: obsDay(2024, 1, 1), Extra: map[string]string{"value": "1"}})
	batch := noStation(Record{Date: obsDay(2024, 1, 1), Extra: map[string]string{"value": "1"}})

	merged, out := Merge(batch, master)

	assert.ErrorIs(t, out.Warning, ErrKeyAmbiguity)
	assert.Nil(t, out.KeyColumns)
	assert.Equal(t, 1, out.Added)
	assert.Equal(t, 0, out.Skipped)
	assert.Equal(t, 2, merged.Len())
}

func TestMergeRestoresDateOrder(t *testing.T) {
	master := hourlyTable(
		rec(obsDay(2024, 1, 1), "A", "1", "1"),
		rec(obsDay(2024, 1, 3), "A", "1", "3"),
	)
	batch := hourlyTable(rec(obsDay(2024, 1, 2), "A", "1", "2"))

	merged, _ := Merge(batch, master)

	require.Equal(t, 3, merged.Len())
	for i := 1; i < merged.Len(); i++ {
		assert.False(t, merged.Records[i].Date.Before(merged.Records[i-1].Date),
			"dates out of order at index %d", i)
	}
}

func TestMergeSortIsStableForEqualDates(t *testing.T) {
	master := hourlyTable(
		rec(obsDay(2024, 1, 1), "A", "1", "a"),
		rec(obsDay(2024, 1, 1), "B", "1", "b"),
	)
	batch := hourlyTable(rec(obsDay(2024, 1, 1), "C", "1", "c"))

	merged, _ := Merge(batch, master)

	stations := []string{merged.Records[0].Station, merged.Records[1].Station, merged.Records[2].Station}
	assert.Equal(t, []string{"A", "B", "C"}, stations)
}

func TestMergeUnionsNewColumns(t *testing.T) {
	master := hourlyTable(rec(obsDay(2024, 1, 1), "A", "1", "1"))
	batch := &Table{
		Columns: []string{ColDate, ColStation, ColHour, "generation_mwh", "capacity_factor"},
		Records: []Record{{
			Date: obsDay(2024, 1, 2), Station: "A", Hour: "1",
			Extra: map[string]string{"generation_mwh": "2", "capacity_factor": "0.4"},
		}},
	}

	merged, _ := Merge(batch, master)

	assert.Equal(t, []string{ColDate, ColStation, ColHour, "generation_mwh", "capacity_factor"}, merged.Columns)
	// Pre-existing rows render the new column as empty.
	assert.Equal(t, "", merged.Records[0].value("capacity_factor"))
}
