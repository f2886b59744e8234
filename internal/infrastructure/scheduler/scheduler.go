// Package scheduler runs the periodic background jobs of the server.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the body of a job
type Task func(ctx context.Context) error

// Job is a task run on a fixed interval
type Job struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Timeout    time.Duration // zero means one interval
	Task       Task
}

// JobStats is the run history of a job
type JobStats struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastRunAt    *time.Time    `json:"last_run_at,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
}

type entry struct {
	job     Job
	runMu   sync.Mutex // serializes runs of the same job
	statsMu sync.Mutex
	stats   JobStats
}

// Scheduler runs each job in its own goroutine. Runs of one job never overlap.
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*entry
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]*entry),
	}
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Task == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = &entry{job: job, stats: JobStats{Name: job.Name, Interval: job.Interval}}
	return nil
}

// Start launches every job loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the loops and waits for running jobs, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs a job synchronously, outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(ctx, e)
}

// Stats returns the run history of every job, sorted by name
func (s *Scheduler) Stats() []JobStats {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]JobStats, len(entries))
	for i, e := range entries {
		e.statsMu.Lock()
		out[i] = e.stats
		e.statsMu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) runLoop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	if e.job.RunOnStart {
		_ = s.run(ctx, e)
	}

	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.run(ctx, e)
		}
	}
}

// run executes one job with a timeout and records the outcome. Panics count as failures.
func (s *Scheduler) run(ctx context.Context, e *entry) (err error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	timeout := e.job.Timeout
	if timeout <= 0 {
		timeout = e.job.Interval
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.job.Name, r)
		}
		elapsed := time.Since(start)
		e.statsMu.Lock()
		e.stats.Runs++
		e.stats.LastRunAt = &start
		e.stats.LastDuration = elapsed
		e.stats.LastError = ""
		if err != nil {
			e.stats.Failures++
			e.stats.LastError = err.Error()
		}
		e.statsMu.Unlock()

		if err != nil {
			s.logger.Error("Scheduled job failed",
				zap.String("job", e.job.Name),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
			return
		}
		s.logger.Debug("Scheduled job finished",
			zap.String("job", e.job.Name),
			zap.Duration("duration", elapsed),
		)
	}()

	return e.job.Task(runCtx)
}
