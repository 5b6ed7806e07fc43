package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heejin-dev/pv-data-collection/internal/collect"
	"github.com/heejin-dev/pv-data-collection/internal/dataset"
	"github.com/heejin-dev/pv-data-collection/internal/dates"
	"github.com/heejin-dev/pv-data-collection/internal/store"
)

// ErrRunInProgress is returned when a run is requested while another
// one still holds the master table.
var ErrRunInProgress = errors.New("a collection run is already in progress")

// Fetcher is the slice of collect.Fetcher the pipeline needs. One
// Fetcher instance serves exactly one run.
type Fetcher interface {
	Fetch(ctx context.Context, p collect.Parameters) (collect.Result, error)
	Pace(ctx context.Context) error
}

// Notifier delivers run outcomes to a side channel (e.g. Slack).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Job describes one collection run: what to filter on and the
// inclusive date range to cover.
type Job struct {
	Filters collect.Filters
	Start   time.Time
	End     time.Time
}

// WindowReport records how a single window fared.
type WindowReport struct {
	Window     dates.Window
	Artifact   string `json:"artifact,omitempty"` // path of the saved raw file, "" when rejected
	Rejected   bool   `json:"rejected"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Added      int    `json:"added"`
	Skipped    int    `json:"skipped"`
}

// RunSummary is the observable outcome of one run.
type RunSummary struct {
	RunID      string          `json:"runId"`
	Filters    collect.Filters `json:"filters"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`

	Windows  []WindowReport `json:"windows"`
	Saved    int            `json:"saved"`
	Rejected int            `json:"rejected"`

	RowsAdded   int `json:"rowsAdded"`
	RowsSkipped int `json:"rowsSkipped"`
	RowsTotal   int `json:"rowsTotal"` // master table size after the run

	Err string `json:"error,omitempty"`
}

// Service orchestrates one run at a time: plan windows, fetch each,
// classify, persist the raw artifact, and fold parsed rows into the
// master table. Runs are serialized because the master table tolerates
// at most one writer.
type Service struct {
	store      store.Store
	notifier   Notifier
	newFetcher func() (Fetcher, error)

	runMu  sync.Mutex
	lastMu sync.RWMutex
	last   *RunSummary
}

// NewService creates a Service. newFetcher is called once per run so
// each run gets a fresh portal session.
func NewService(st store.Store, notifier Notifier, newFetcher func() (Fetcher, error)) *Service {
	return &Service{store: st, notifier: notifier, newFetcher: newFetcher}
}

// Run executes the job synchronously, blocking until any in-flight run
// finishes first.
func (s *Service) Run(ctx context.Context, job Job) (*RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.run(ctx, uuid.NewString(), job)
}

// TryStart launches the job in the background, returning its run ID,
// or ErrRunInProgress when another run holds the pipeline.
func (s *Service) TryStart(job Job) (string, error) {
	if !s.runMu.TryLock() {
		return "", ErrRunInProgress
	}
	runID := uuid.NewString()
	go func() {
		defer s.runMu.Unlock()
		if _, err := s.run(context.Background(), runID, job); err != nil {
			log.Printf("ERROR: run %s failed: %v", runID, err)
		}
	}()
	return runID, nil
}

// LastRun returns the most recently finished run's summary.
func (s *Service) LastRun() (*RunSummary, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil, false
	}
	cp := *s.last
	return &cp, true
}

func (s *Service) run(ctx context.Context, runID string, job Job) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     runID,
		Filters:   job.Filters,
		Start:     dates.Compact(job.Start),
		End:       dates.Compact(job.End),
		StartedAt: time.Now().UTC(),
	}

	windows, err := dates.Plan(job.Start, job.End)
	if err != nil {
		return s.finish(ctx, summary, err)
	}

	fetcher, err := s.newFetcher()
	if err != nil {
		return s.finish(ctx, summary, err)
	}

	log.Printf("INFO: run %s: %d window(s) for %s~%s tag=%s",
		runID, len(windows), summary.Start, summary.End, job.Filters.Tag())

	for i, w := range windows {
		if i > 0 {
			if err := fetcher.Pace(ctx); err != nil {
				return s.finish(ctx, summary, err)
			}
		}

		res, err := fetcher.Fetch(ctx, collect.Parameters{Filters: job.Filters, Window: w})
		if err != nil {
			// Transport failures are fatal: the session cannot be
			// trusted for the remaining windows.
			return s.finish(ctx, summary, err)
		}

		report := WindowReport{Window: w}

		if cerr := collect.Classify(res); cerr != nil {
			log.Printf("ERROR: run %s: window %s rejected: %v", runID, w, cerr)
			report.Rejected = true
			report.Diagnostic = cerr.Error()
			summary.Rejected++
			summary.Windows = append(summary.Windows, report)
			continue
		}

		artifact, err := s.store.SaveArtifact(job.Filters.Tag(), w, res.Body)
		if err != nil {
			return s.finish(ctx, summary, err)
		}
		report.Artifact = artifact
		summary.Saved++

		batch, err := dataset.ReadCSV(bytes.NewReader(res.Body), w.String())
		if err != nil {
			// Declared CSV but refused to parse. The raw artifact
			// stays on disk for diagnosis; the window contributes
			// no rows and the run continues.
			log.Printf("ERROR: run %s: window %s: %v", runID, w, err)
			report.Diagnostic = err.Error()
			summary.Windows = append(summary.Windows, report)
			continue
		}

		outcome, err := s.mergeBatch(batch)
		if err != nil {
			return s.finish(ctx, summary, err)
		}
		if outcome.Warning != nil {
			log.Printf("WARN: run %s: window %s: %v", runID, w, outcome.Warning)
			report.Diagnostic = outcome.Warning.Error()
		}

		report.Added = outcome.Added
		report.Skipped = outcome.Skipped
		summary.RowsAdded += outcome.Added
		summary.RowsSkipped += outcome.Skipped
		summary.RowsTotal = outcome.Total
		summary.Windows = append(summary.Windows, report)

		log.Printf("INFO: run %s: window %s: saved %s, rows added=%d skipped=%d total=%d",
			runID, w, artifact, outcome.Added, outcome.Skipped, outcome.Total)
	}

	return s.finish(ctx, summary, nil)
}

// mergeBatch folds one window's rows into the persisted master table.
func (s *Service) mergeBatch(batch *dataset.Table) (dataset.Outcome, error) {
	master, err := s.store.LoadMaster()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return dataset.Outcome{}, err
	}

	merged, outcome := dataset.Merge(batch, master)
	if err := s.store.SaveMaster(merged); err != nil {
		return dataset.Outcome{}, err
	}
	return outcome, nil
}

// finish closes out the summary, records it as the last run, and
// notifies the side channel. Notification failures are logged, never
// propagated.
func (s *Service) finish(ctx context.Context, summary *RunSummary, runErr error) (*RunSummary, error) {
	summary.FinishedAt = time.Now().UTC()
	if runErr != nil {
		summary.Err = runErr.Error()
	}

	s.lastMu.Lock()
	s.last = summary
	s.lastMu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, s.summaryText(summary)); err != nil {
			log.Printf("ERROR: run %s: notification failed: %v", summary.RunID, err)
		}
	}
	return summary, runErr
}

func (s *Service) summaryText(sum *RunSummary) string {
	if sum.Err != "" {
		return fmt.Sprintf("[PV collection FAILED]\n- range: %s~%s\n- error: %s", sum.Start, sum.End, sum.Err)
	}
	return fmt.Sprintf(
		"[PV collection complete]\n- range: %s~%s\n- windows: %d saved, %d rejected\n- rows: %d added, %d skipped, %d total\n- master: %s",
		sum.Start, sum.End, sum.Saved, sum.Rejected, sum.RowsAdded, sum.RowsSkipped, sum.RowsTotal, s.store.MasterPath())
}
