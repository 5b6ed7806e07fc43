package collect

import (
	"strings"

	"github.com/heejin-dev/pv-data-collection/internal/dates"
)

// Filters identify what to request from the portal. An empty value
// means unrestricted: the portal interprets a blank field as "all".
type Filters struct {
	PageIndex string // portal paging field, "1" in every observed capture
	OrgNo     string // plant code, e.g. "84S1"; "" = all plants
	HokiS     string // first unit number; "" = all
	HokiE     string // last unit number; "" = all
}

// Tag renders the filters as a filename component: "ALL" when fully
// unrestricted, otherwise the plant code (or "ALLORG") plus the unit
// range when one is set.
func (f Filters) Tag() string {
	if f.OrgNo == "" && f.HokiS == "" && f.HokiE == "" {
		return "ALL"
	}
	parts := []string{"ALLORG"}
	if f.OrgNo != "" {
		parts[0] = f.OrgNo
	}
	if f.HokiS != "" || f.HokiE != "" {
		hs, he := f.HokiS, f.HokiE
		if hs == "" {
			hs = "ALL"
		}
		if he == "" {
			he = "ALL"
		}
		parts = append(parts, "H"+hs+"-"+he)
	}
	return strings.Join(parts, "_")
}

// Parameters fully describe one window's request: the filter fields
// plus the date window. Two equal Parameters values request the same
// data; the fetcher does not deduplicate repeated calls.
type Parameters struct {
	Filters Filters
	Window  dates.Window
}

// Result is one window's raw fetch outcome, consumed immediately by
// classification and parsing; it is never persisted as-is.
type Result struct {
	Window      dates.Window
	Body        []byte
	ContentType string
}
