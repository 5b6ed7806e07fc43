package dataset

import (
	"time"
)

// Canonical column names in collected CSVs. Any other column is passed
// through untouched via Record.Extra.
const (
	ColDate    = "date"
	ColStation = "station_name"
	ColHour    = "hour"
)

// Record is one parsed observation row. Date, Station and Hour are the
// columns that can participate in the identity key; everything else
// rides along in Extra keyed by column name.
type Record struct {
	Date    time.Time
	Station string
	Hour    string // sub-period within the day, "" when the column is absent
	Extra   map[string]string
}

// Table is an ordered collection of records together with the column
// order of the file it came from, so a rewrite preserves layout.
type Table struct {
	Columns []string
	Records []Record
}

// HasColumn reports whether the table's header carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// value renders the record's cell for the named column.
func (r Record) value(col string) string {
	switch col {
	case ColDate:
		return formatDate(r.Date)
	case ColStation:
		return r.Station
	case ColHour:
		return r.Hour
	default:
		return r.Extra[col]
	}
}

// mergeColumns returns base extended with any columns of extra that
// base lacks, keeping both relative orders.
func mergeColumns(base, extra []string) []string {
	out := make([]string, len(base))
	copy(out, base)
	seen := make(map[string]bool, len(base))
	for _, c := range base {
		seen[c] = true
	}
	for _, c := range extra {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}
