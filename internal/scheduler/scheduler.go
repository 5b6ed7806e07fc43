package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/heejin-dev/pv-data-collection/internal/collect"
	"github.com/heejin-dev/pv-data-collection/internal/dates"
	"github.com/heejin-dev/pv-data-collection/internal/pipeline"
)

// runTimeout bounds one whole collection run. A single-day target is a
// handful of windows at most, so half an hour is generous.
const runTimeout = 30 * time.Minute

// Scheduler triggers one collection run per day, targeting the
// previous calendar day. The fetcher layer never retries, so whole-run
// retry lives here: a failed run is reattempted a configured number of
// times with a fixed delay between attempts.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    *pipeline.Service
	filters    collect.Filters
	at         string // "HH:MM", UTC
	retries    int
	retryDelay time.Duration
}

// New creates a Scheduler.
func New(service *pipeline.Service, filters collect.Filters, at string, retries int, retryDelay time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		service:    service,
		filters:    filters,
		at:         at,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.at).Do(s.runDaily)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: daily collection at %s UTC", s.at)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// runDaily collects yesterday's data, retrying the whole run on
// failure. Invalid-range errors are never retried; nothing about them
// changes between attempts.
func (s *Scheduler) runDaily() {
	target := dates.Yesterday(time.Now())
	job := pipeline.Job{Filters: s.filters, Start: target, End: target}

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		_, err := s.service.Run(ctx, job)
		cancel()

		if err == nil {
			log.Printf("INFO: scheduler: collected %s", dates.Compact(target))
			return
		}
		log.Printf("ERROR: scheduler: collection of %s failed (attempt %d/%d): %v",
			dates.Compact(target), attempt+1, s.retries+1, err)

		if errors.Is(err, dates.ErrInvalidRange) || attempt >= s.retries {
			return
		}
		time.Sleep(s.retryDelay)
	}
}
