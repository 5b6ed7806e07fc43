package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/heejin-dev/pv-data-collection/internal/dates"
)

const (
	pagePath     = "/kosep/gv/nf/dt/nfdt21/main.do"
	downloadPath = "/kosep/gv/nf/dt/nfdt21/csvDown.do"

	userAgent = "Mozilla/5.0"

	primingTimeout  = 30 * time.Second
	downloadTimeout = 120 * time.Second
)

// Config bundles the portal coordinates and pacing policy for a Fetcher.
type Config struct {
	BaseURL string
	MenuCd  string

	// Pacing is the fixed pause between consecutive windows. It is
	// deliberately not adaptive: the portal's rate limit is
	// undocumented, and a constant 5 seconds is known to stay under it.
	Pacing time.Duration

	// Sleep is the suspension primitive used for pacing. Nil means
	// real sleeping; tests inject a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Fetcher owns one portal session for the duration of a run. The
// priming request of each window refreshes server-side session state
// that the download request depends on, so windows must be fetched
// strictly in sequence on the same Fetcher. A Fetcher is not safe for
// concurrent use.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher with a fresh cookie jar layered over
// the given client. The jar holds the portal's session continuity
// cookies across the priming/download request pairs.
func NewFetcher(cfg Config, client *http.Client) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("portal base url is not configured")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	sessioned := &http.Client{Jar: jar}
	if client != nil {
		c := *client
		c.Jar = jar
		sessioned = &c
	}

	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "koenergy-portal",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Fetcher{cfg: cfg, client: sessioned, circuit: cb}, nil
}

// Fetch runs the two-step protocol for one window: a priming GET whose
// body is discarded but whose cookies persist in the jar, then the
// form-encoded download POST with the priming URL as Referer. Any
// transport-level failure comes back as *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, p Parameters) (Result, error) {
	primingURL := f.pageURL(p)

	if err := f.prime(ctx, primingURL); err != nil {
		return Result{}, err
	}

	body, contentType, err := f.download(ctx, p, primingURL)
	if err != nil {
		return Result{}, err
	}

	return Result{Window: p.Window, Body: body, ContentType: contentType}, nil
}

// Pace suspends for the fixed inter-window interval, honoring ctx.
// Callers invoke it between windows, never after the last one.
func (f *Fetcher) Pace(ctx context.Context) error {
	if f.cfg.Pacing <= 0 {
		return nil
	}
	return f.cfg.Sleep(ctx, f.cfg.Pacing)
}

// pageURL builds the portal page address for the window. The download
// request presents it as Referer, mirroring a browser-driven export.
func (f *Fetcher) pageURL(p Parameters) string {
	values := url.Values{}
	values.Set("pageIndex", p.Filters.PageIndex)
	values.Set("menuCd", f.cfg.MenuCd)
	values.Set("xmlText", "")
	values.Set("strOrgNo", p.Filters.OrgNo)
	values.Set("strHokiS", p.Filters.HokiS)
	values.Set("strHokiE", p.Filters.HokiE)
	values.Set("strDateS", dates.Compact(p.Window.Start))
	values.Set("strDateE", dates.Compact(p.Window.End))
	return f.cfg.BaseURL + pagePath + "?" + values.Encode()
}

func (f *Fetcher) prime(ctx context.Context, primingURL string) error {
	ctx, cancel := context.WithTimeout(ctx, primingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, primingURL, nil)
	if err != nil {
		return &TransportError{Phase: "priming", URL: primingURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.do(req)
	if err != nil {
		return wrapTransport("priming", primingURL, err)
	}
	defer resp.Body.Close()

	// The page body carries nothing we need; drain it so the
	// connection can be reused for the download.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (f *Fetcher) download(ctx context.Context, p Parameters, primingURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("pageIndex", p.Filters.PageIndex)
	form.Set("menuCd", f.cfg.MenuCd)
	form.Set("xmlText", "")
	form.Set("strOrgNo", p.Filters.OrgNo)
	form.Set("strHokiS", p.Filters.HokiS)
	form.Set("strHokiE", p.Filters.HokiE)
	form.Set("strDateS", dates.Compact(p.Window.Start))
	form.Set("strDateE", dates.Compact(p.Window.End))
	form.Set("ptSignature", "")

	dlURL := f.cfg.BaseURL + downloadPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dlURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", &TransportError{Phase: "download", URL: dlURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", f.cfg.BaseURL)
	req.Header.Set("Referer", primingURL)
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.do(req)
	if err != nil {
		return nil, "", wrapTransport("download", dlURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Phase: "download", URL: dlURL, Err: err}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// do executes the request through the circuit breaker and classifies
// the transport-level status. There is no retry here: a failure aborts
// the run, and retrying is the outer caller's decision.
func (f *Fetcher) do(req *http.Request) (*http.Response, error) {
	result, err := f.circuit.Execute(func() (interface{}, error) {
		resp, execErr := f.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			drainAndClose(resp)
			return nil, statusErr(errRateLimited, resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			drainAndClose(resp)
			return nil, statusErr(errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drainAndClose(resp)
			return nil, statusErr(errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

type statusError struct {
	kind   error
	status int
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", e.kind, e.status) }
func (e *statusError) Unwrap() error { return e.kind }

func statusErr(kind error, status int) error {
	return &statusError{kind: kind, status: status}
}

func wrapTransport(phase, reqURL string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return &TransportError{Phase: phase, URL: reqURL, Status: se.status, Err: err}
	}
	return &TransportError{Phase: phase, URL: reqURL, Err: err}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
