package dataset

import (
	"errors"
	"sort"
	"strings"
)

// ErrKeyAmbiguity signals that the expected identity columns were not
// present in both tables, so duplicate filtering was bypassed. It is
// reported, not raised: the merge still proceeds.
var ErrKeyAmbiguity = errors.New("identity columns missing; duplicate filtering bypassed")

// Outcome summarizes one merge call.
type Outcome struct {
	Added   int
	Skipped int
	Total   int

	// KeyColumns records the identity key the merge deduplicated on,
	// empty when dedup was bypassed.
	KeyColumns []string

	// Warning carries ErrKeyAmbiguity when the fallback chain was
	// exhausted; nil otherwise.
	Warning error
}

// keyChain is the identity-key fallback chain, most specific first.
// The first candidate whose columns exist in both tables wins.
var keyChain = [][]string{
	{ColDate, ColStation, ColHour},
	{ColDate, ColStation},
}

// Merge folds batch into master. Rows whose identity key already
// exists in master are skipped — the existing value wins, so repeating
// a merge with the same batch adds nothing. The merged table is
// re-sorted ascending by date (stable, so same-timestamp rows keep
// their relative order). master may be nil: the batch then becomes the
// initial table.
func Merge(batch, master *Table) (*Table, Outcome) {
	if master == nil || master.Len() == 0 && len(master.Columns) == 0 {
		merged := &Table{
			Columns: append([]string(nil), batch.Columns...),
			Records: append([]Record(nil), batch.Records...),
		}
		sortByDate(merged)
		return merged, Outcome{Added: batch.Len(), Total: merged.Len()}
	}

	keyCols := resolveKey(batch, master)

	var fresh []Record
	var skipped int
	if keyCols == nil {
		fresh = batch.Records
	} else {
		seen := make(map[string]struct{}, master.Len())
		for _, rec := range master.Records {
			seen[identityKey(rec, keyCols)] = struct{}{}
		}
		for _, rec := range batch.Records {
			if _, dup := seen[identityKey(rec, keyCols)]; dup {
				skipped++
				continue
			}
			fresh = append(fresh, rec)
		}
	}

	merged := &Table{
		Columns: mergeColumns(master.Columns, batch.Columns),
		Records: make([]Record, 0, master.Len()+len(fresh)),
	}
	merged.Records = append(merged.Records, master.Records...)
	merged.Records = append(merged.Records, fresh...)
	sortByDate(merged)

	out := Outcome{
		Added:      len(fresh),
		Skipped:    skipped,
		Total:      merged.Len(),
		KeyColumns: keyCols,
	}
	if keyCols == nil {
		out.Warning = ErrKeyAmbiguity
	}
	return merged, out
}

// resolveKey walks the fallback chain and returns the first key whose
// columns are present in both tables, or nil when none is.
func resolveKey(batch, master *Table) []string {
	for _, cols := range keyChain {
		ok := true
		for _, c := range cols {
			if !batch.HasColumn(c) || !master.HasColumn(c) {
				ok = false
				break
			}
		}
		if ok {
			return cols
		}
	}
	return nil
}

func identityKey(rec Record, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = rec.value(c)
	}
	return strings.Join(parts, "\x1f")
}

func sortByDate(t *Table) {
	if !t.HasColumn(ColDate) {
		return
	}
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].Date.Before(t.Records[j].Date)
	})
}
