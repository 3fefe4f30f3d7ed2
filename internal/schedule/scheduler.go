// Package schedule runs recurring news digests: each job answers a saved
// query on its schedule and mails the resulting report.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Scheduler manages all digest jobs.
type Scheduler struct {
	jobs     map[string]*Job
	runners  map[string]*JobRunner
	executor Executor
	logger   *slog.Logger
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates an empty scheduler.
func NewScheduler(executor Executor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:     make(map[string]*Job),
		runners:  make(map[string]*JobRunner),
		executor: executor,
		logger:   logger.With("component", "scheduler"),
	}
}

// LoadJobs loads jobs, skipping invalid ones with a warning.
func (s *Scheduler) LoadJobs(jobs []*Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			s.logger.Warn("invalid digest job, skipping", "job", job.ID, "error", err)
			continue
		}
		s.jobs[job.ID] = job
	}
	s.logger.Info("digest jobs loaded", "count", len(s.jobs))
}

// Start launches a runner for every enabled job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	for id, job := range s.jobs {
		if !job.Enabled {
			s.logger.Debug("skipping disabled job", "job", id)
			continue
		}
		runner := NewJobRunner(job, s.executor, s.logger)
		s.runners[id] = runner
		go runner.Start(s.ctx)
	}

	s.logger.Info("scheduler started", "active_jobs", len(s.runners))
}

// Stop stops all runners and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	for id, runner := range s.runners {
		runner.Stop()
		s.logger.Debug("stopped digest runner", "job", id)
	}
	s.runners = make(map[string]*JobRunner)
	s.logger.Info("scheduler stopped")
}

// AddJob registers a job, starting its runner when the scheduler is
// running and the job is enabled.
func (s *Scheduler) AddJob(job *Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}
	s.jobs[job.ID] = job

	if s.ctx != nil && job.Enabled {
		runner := NewJobRunner(job, s.executor, s.logger)
		s.runners[job.ID] = runner
		go runner.Start(s.ctx)
	}
	return nil
}

// RemoveJob unregisters a job and stops its runner.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if runner, exists := s.runners[id]; exists {
		runner.Stop()
		delete(s.runners, id)
	}
	delete(s.jobs, id)
	return nil
}

// GetJob returns a copy of a job by ID.
func (s *Scheduler) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job.Clone(), nil
}

// ListJobs returns copies of all registered jobs.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	return jobs
}

// RunJobNow triggers a digest immediately, bypassing its schedule.
func (s *Scheduler) RunJobNow(ctx context.Context, id string) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	runner := NewJobRunner(job, s.executor, s.logger)
	runner.runOnce(ctx)
	if job.State.LastError != "" {
		return fmt.Errorf("digest failed: %s", job.State.LastError)
	}
	return nil
}
