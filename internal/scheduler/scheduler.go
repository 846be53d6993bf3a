// Package scheduler runs named jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks. Jobs receive a context derived from the
// one passed to Start and are never run concurrently with themselves.
type Scheduler struct {
	cron     *cron.Cron
	log      *slog.Logger
	timeout  time.Duration
	timezone *time.Location

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]cron.EntryID
}

// New creates a scheduler in the given timezone. timeout bounds each job
// run; zero means no limit.
func New(timezone string, timeout time.Duration, log *slog.Logger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "Local"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scheduler")

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:     c,
		log:      log,
		timeout:  timeout,
		timezone: loc,
		ctx:      context.Background(),
		jobs:     make(map[string]cron.EntryID),
	}, nil
}

// AddJob adds a job with a cron schedule. Standard five-field specs and
// descriptors such as "@every 1h" or "@daily" are accepted.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(s.parent(), name, job); err != nil {
			s.log.Error("job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.Info("job added", "job", name, "schedule", schedule)
	return nil
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Info("job removed", "job", name)
	}
}

// Start begins running scheduled jobs. Cancelling ctx cancels running
// jobs; call Stop to halt the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.log.Info("scheduler starting", "timezone", s.timezone.String())
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// RunNow immediately executes a job outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	return s.run(ctx, name, job)
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info("job starting", "job", name)
	start := time.Now()
	if err := job(ctx); err != nil {
		return err
	}
	s.log.Info("job completed", "job", name, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Scheduler) parent() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		infos = append(infos, JobInfo{
			Name:    name,
			NextRun: entry.Next,
			LastRun: entry.Prev,
		})
	}
	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
