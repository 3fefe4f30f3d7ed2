package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Executor runs a digest query and mails its report.
type Executor interface {
	// RunQuery answers the digest query and returns the answer text and
	// the report artifact path (empty when no report was produced).
	RunQuery(ctx context.Context, query string) (answer, reportPath string, err error)
	// EmailReport sends the digest answer to the recipient, attaching the
	// report when reportPath is non-empty.
	EmailReport(ctx context.Context, to, subject, body, reportPath string) error
}

// JobRunner executes a single digest job on its schedule.
type JobRunner struct {
	job      *Job
	logger   *slog.Logger
	executor Executor
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewJobRunner creates a runner for one job.
func NewJobRunner(job *Job, executor Executor, log *slog.Logger) *JobRunner {
	if log == nil {
		log = slog.Default()
	}
	return &JobRunner{
		job:      job,
		executor: executor,
		logger:   log.With("job", job.ID),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins executing the job on schedule. It blocks until ctx is
// cancelled or Stop is called.
func (r *JobRunner) Start(ctx context.Context) {
	defer close(r.doneCh)

	if !r.job.Enabled {
		r.logger.Debug("job disabled, not starting")
		return
	}

	nextRun, err := r.job.NextRun(time.Now())
	if err != nil {
		r.logger.Error("failed to calculate next run", "error", err)
		return
	}
	r.job.State.NextRunAt = nextRun

	r.logger.Info("digest runner started", "next_run", nextRun.Format(time.RFC3339))

	var tickerDuration time.Duration
	switch r.job.Schedule.Kind {
	case "interval":
		tickerDuration = time.Duration(r.job.Schedule.IntervalMs) * time.Millisecond
	case "cron", "at":
		// Check every minute for cron/at schedules
		tickerDuration = 1 * time.Minute
	}

	ticker := time.NewTicker(tickerDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("digest runner stopped (context cancelled)")
			return
		case <-r.stopCh:
			r.logger.Info("digest runner stopped")
			return
		case now := <-ticker.C:
			shouldRun := r.job.Schedule.Kind == "interval" ||
				now.After(r.job.State.NextRunAt) || now.Equal(r.job.State.NextRunAt)
			if !shouldRun {
				continue
			}

			r.runOnce(ctx)

			nextRun, err := r.job.NextRun(time.Now())
			if err != nil {
				r.logger.Error("failed to calculate next run", "error", err)
			} else {
				r.job.State.NextRunAt = nextRun
			}
		}
	}
}

// Stop stops the runner and waits for it to finish.
func (r *JobRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// runOnce executes the digest once and updates job state.
func (r *JobRunner) runOnce(ctx context.Context) {
	start := time.Now()
	r.logger.Info("running digest", "query", r.job.Query)

	err := r.execute(ctx)
	duration := time.Since(start)

	r.job.State.LastRunAt = time.Now()
	r.job.State.LastDuration = duration
	r.job.State.RunCount++

	if err != nil {
		r.job.State.ErrorCount++
		r.job.State.LastError = err.Error()
		r.logger.Error("digest failed",
			"error", err,
			"duration", duration,
			"error_count", r.job.State.ErrorCount)
	} else {
		r.job.State.LastError = ""
		r.logger.Info("digest completed",
			"duration", duration,
			"run_count", r.job.State.RunCount)
	}
}

func (r *JobRunner) execute(ctx context.Context) error {
	answer, reportPath, err := r.executor.RunQuery(ctx, r.job.Query)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	if r.job.EmailTo == "" {
		return nil
	}

	subject := fmt.Sprintf("News digest: %s", r.job.Name)
	if err := r.executor.EmailReport(ctx, r.job.EmailTo, subject, answer, reportPath); err != nil {
		return fmt.Errorf("email report: %w", err)
	}
	return nil
}
