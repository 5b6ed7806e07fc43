package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heejin-dev/pv-data-collection/internal/collect"
	"github.com/heejin-dev/pv-data-collection/internal/pipeline"
	"github.com/heejin-dev/pv-data-collection/internal/store"
)

type flakyFetcher struct {
	failures int // transport failures to serve before succeeding
	fetches  int
}

func (f *flakyFetcher) Fetch(ctx context.Context, p collect.Parameters) (collect.Result, error) {
	f.fetches++
	if f.fetches <= f.failures {
		return collect.Result{}, &collect.TransportError{Phase: "download", URL: "https://example.invalid", Status: 503}
	}
	return collect.Result{
		Window:      p.Window,
		ContentType: "text/csv",
		Body:        []byte("date,station_name,hour\n"),
	}, nil
}

func (f *flakyFetcher) Pace(ctx context.Context) error { return nil }

func newTestScheduler(t *testing.T, fetcher pipeline.Fetcher, retries int) (*Scheduler, *flakyFetcher) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(dir, filepath.Join(dir, "master.csv"), 0)
	require.NoError(t, err)

	ff := fetcher.(*flakyFetcher)
	svc := pipeline.NewService(st, nil, func() (pipeline.Fetcher, error) { return fetcher, nil })
	return New(svc, collect.Filters{PageIndex: "1"}, "01:30", retries, time.Millisecond), ff
}

func TestRunDailyRetriesTransportFailures(t *testing.T) {
	sched, fetcher := newTestScheduler(t, &flakyFetcher{failures: 2}, 3)

	sched.runDaily()

	// Two failed attempts, one successful one.
	assert.Equal(t, 3, fetcher.fetches)
}

func TestRunDailyStopsAfterRetryBudget(t *testing.T) {
	sched, fetcher := newTestScheduler(t, &flakyFetcher{failures: 100}, 2)

	sched.runDaily()

	// Initial attempt plus two retries.
	assert.Equal(t, 3, fetcher.fetches)
}
