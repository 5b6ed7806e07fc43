package collect

import (
	"errors"
	"fmt"

	"github.com/heejin-dev/pv-data-collection/internal/dates"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// TransportError reports a network or session failure. It is fatal for
// the whole run: remaining windows are not attempted, because the
// portal session cannot be trusted after a failed exchange.
type TransportError struct {
	Phase  string // "priming" or "download"
	URL    string
	Status int // 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request to %s failed with status %d: %v", e.Phase, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s request to %s failed: %v", e.Phase, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// previewBytes bounds how much of a rejected body is kept for diagnostics.
const previewBytes = 300

// ContentRejectedError reports a window whose response declared the
// wrong format. Non-fatal: the run logs it and moves on.
type ContentRejectedError struct {
	Window      dates.Window
	ContentType string
	Preview     []byte
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("window %s: content type %q is not csv; body starts with %q",
		e.Window, e.ContentType, e.Preview)
}
