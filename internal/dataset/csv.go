package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FormatError reports a payload that was declared CSV but could not be
// parsed into rows. It is fatal for the payload (treated as an empty
// batch) but not for the surrounding run.
type FormatError struct {
	Source string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed csv payload from %s: %v", e.Source, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// dateLayouts are the timestamp forms seen in portal CSVs and in
// previously merged master tables, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// ReadCSV parses a CSV document into a Table. A leading UTF-8
// byte-order mark is tolerated. source names the payload's origin for
// diagnostics. The first row is the header; when a date column is
// present its values must parse as timestamps.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &FormatError{Source: source, Err: fmt.Errorf("missing header row: %w", err)}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}

	table := &Table{Columns: append([]string(nil), header...)}

	dateIdx, hasDate := cols[ColDate]
	stationIdx, hasStation := cols[ColStation]
	hourIdx, hasHour := cols[ColHour]

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Source: source, Err: err}
		}

		rec := Record{}
		for i, name := range header {
			if i >= len(row) {
				break
			}
			switch {
			case hasDate && i == dateIdx:
				ts, err := parseDate(row[i])
				if err != nil {
					return nil, &FormatError{Source: source, Err: fmt.Errorf("line %d: %w", line, err)}
				}
				rec.Date = ts
			case hasStation && i == stationIdx:
				rec.Station = row[i]
			case hasHour && i == hourIdx:
				rec.Hour = row[i]
			default:
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[name] = row[i]
			}
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// WriteCSV renders the table with a leading UTF-8 byte-order mark so
// non-ASCII station names survive a round trip through spreadsheet
// tools that expect it.
func WriteCSV(w io.Writer, t *Table) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			row[i] = rec.value(col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}
