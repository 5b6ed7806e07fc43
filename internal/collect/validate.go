package collect

import (
	"strings"

	"github.com/heejin-dev/pv-data-collection/internal/common"
)

// Classify decides whether a fetch result is an acceptable tabular
// payload. The portal serves failures (login pages, error HTML) with a
// 200 status, so the declared content type is the only signal: anything
// not declaring CSV is rejected with a *ContentRejectedError carrying
// the window and a bounded body preview. Rejection is reported, not
// fatal; the caller logs it and continues with the next window.
func Classify(res Result) error {
	ct := strings.ToLower(res.ContentType)
	if common.HasAny(ct, "csv", "comma-separated-values") {
		return nil
	}

	preview := res.Body
	if len(preview) > previewBytes {
		preview = preview[:previewBytes]
	}
	return &ContentRejectedError{
		Window:      res.Window,
		ContentType: res.ContentType,
		Preview:     append([]byte(nil), preview...),
	}
}
