// Package scheduler arms recurring daily UTC triggers and dispatches jobs,
// isolating the trigger mechanism from job failures.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/newspulse/internal/logger"
)

// Job is one scheduled unit of work. A returned error is reported through
// the error listener; it never interrupts the trigger mechanism.
type Job func(ctx context.Context) error

// ErrorListener receives job execution errors at the dispatch boundary.
type ErrorListener func(jobID string, err error)

// MissedListener receives fires whose dispatch was delayed past the misfire
// grace window (e.g. the process was asleep). A missed fire is a distinct
// event, not an error.
type MissedListener func(jobID string, delay time.Duration)

const (
	defaultJitter       = 30 * time.Second
	defaultMisfireGrace = 5 * time.Minute
)

type Scheduler struct {
	cron         *cron.Cron
	jitter       time.Duration
	misfireGrace time.Duration
	onError      ErrorListener
	onMissed     MissedListener

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	id     cron.EntryID
	hour   int
	minute int
}

func New(onError ErrorListener, onMissed MissedListener) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		jitter:       defaultJitter,
		misfireGrace: defaultMisfireGrace,
		onError:      onError,
		onMissed:     onMissed,
		entries:      make(map[string]entry),
	}
}

// Schedule arms a recurring daily trigger at the given UTC hour/minute.
// Re-registering an existing jobID replaces the old trigger, so the job
// table has exactly one entry per id.
func (s *Scheduler) Schedule(jobID string, hour, minute int, job Job) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid time for job %s: %02d:%02d", jobID, hour, minute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[jobID]; ok {
		s.cron.Remove(existing.id)
		logger.Debug("replacing existing job", "job_id", jobID)
	}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(spec, s.dispatch(jobID, hour, minute, job))
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobID, err)
	}
	s.entries[jobID] = entry{id: id, hour: hour, minute: minute}

	logger.Info("scheduled job", "job_id", jobID, "time", fmt.Sprintf("%02d:%02d UTC", hour, minute))
	return nil
}

// dispatch wraps a job with misfire detection, jitter, and panic/error
// containment.
func (s *Scheduler) dispatch(jobID string, hour, minute int, job Job) func() {
	return func() {
		if delay := fireDelay(time.Now().UTC(), hour, minute); delay > s.misfireGrace {
			logger.Warn("job missed its execution time", "job_id", jobID, "delay", delay)
			if s.onMissed != nil {
				s.onMissed(jobID, delay)
			}
			return
		}

		if s.jitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(s.jitter))))
		}

		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("job panicked: %v", r)
				logger.Error("job raised an error", "job_id", jobID, "error", err)
				if s.onError != nil {
					s.onError(jobID, err)
				}
			}
		}()

		if err := job(context.Background()); err != nil {
			logger.Error("job raised an error", "job_id", jobID, "error", err)
			if s.onError != nil {
				s.onError(jobID, err)
			}
		}
	}
}

// fireDelay reports how far past the most recent hh:mm occurrence now is.
func fireDelay(now time.Time, hour, minute int) time.Duration {
	fired := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if fired.After(now) {
		fired = fired.AddDate(0, 0, -1)
	}
	return now.Sub(fired)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started", "jobs", s.JobCount())
}

// Shutdown removes all jobs before halting the trigger mechanism, so no
// trigger can fire during teardown, then waits for in-flight executions to
// finish their current step.
func (s *Scheduler) Shutdown() {
	s.RemoveAll()
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler shutdown complete")
}

func (s *Scheduler) Remove(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[jobID]; ok {
		s.cron.Remove(existing.id)
		delete(s.entries, jobID)
	}
}

func (s *Scheduler) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		s.cron.Remove(e.id)
		delete(s.entries, id)
	}
	logger.Info("all jobs removed")
}

func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Report returns a formatted listing of all armed jobs for the operator
// channel.
func (s *Scheduler) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return "No jobs scheduled"
	}

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Scheduled jobs:\n")
	for _, id := range ids {
		e := s.entries[id]
		next := s.cron.Entry(e.id).Next
		b.WriteString(fmt.Sprintf("%s at %02d:%02d UTC (next run %s)\n", id, e.hour, e.minute, next.Format("2006-01-02 15:04:05 UTC")))
	}
	return strings.TrimRight(b.String(), "\n")
}
