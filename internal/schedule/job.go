package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled news digest: a query run on a schedule whose report
// is mailed out.
type Job struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Query    string         `json:"query"`
	EmailTo  string         `json:"emailTo,omitempty"`
	Schedule ScheduleConfig `json:"schedule"`
	Enabled  bool           `json:"enabled"`
	State    JobState       `json:"state"`
}

// ScheduleConfig defines when a digest runs
type ScheduleConfig struct {
	Kind       string `json:"kind"` // "interval", "cron", "at"
	IntervalMs int64  `json:"intervalMs,omitempty"`
	Expr       string `json:"expr,omitempty"` // cron expression
	Time       string `json:"time,omitempty"` // "HH:MM" for daily
	Timezone   string `json:"timezone,omitempty"`
}

// JobState tracks digest execution state
type JobState struct {
	LastRunAt    time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt    time.Time     `json:"nextRunAt,omitempty"`
	RunCount     int64         `json:"runCount"`
	ErrorCount   int64         `json:"errorCount"`
	LastError    string        `json:"lastError,omitempty"`
	LastDuration time.Duration `json:"lastDuration,omitempty"`
}

// Validate checks the job configuration.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID required")
	}
	if j.Name == "" {
		return fmt.Errorf("job name required")
	}
	if j.Query == "" {
		return fmt.Errorf("job query required")
	}

	switch j.Schedule.Kind {
	case "interval":
		if j.Schedule.IntervalMs <= 0 {
			return fmt.Errorf("intervalMs must be positive")
		}
	case "cron":
		if j.Schedule.Expr == "" {
			return fmt.Errorf("cron expression required")
		}
		if _, err := cron.ParseStandard(j.Schedule.Expr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	case "at":
		if j.Schedule.Time == "" {
			return fmt.Errorf("time required for 'at' schedule")
		}
		if _, err := time.Parse("15:04", j.Schedule.Time); err != nil {
			return fmt.Errorf("invalid time format (use HH:MM): %w", err)
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s (use interval, cron, or at)", j.Schedule.Kind)
	}

	return nil
}

// NextRun calculates the next run time after from.
func (j *Job) NextRun(from time.Time) (time.Time, error) {
	switch j.Schedule.Kind {
	case "interval":
		return from.Add(time.Duration(j.Schedule.IntervalMs) * time.Millisecond), nil

	case "cron":
		schedule, err := cron.ParseStandard(j.Schedule.Expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron: %w", err)
		}
		return schedule.Next(from), nil

	case "at":
		t, err := time.Parse("15:04", j.Schedule.Time)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time: %w", err)
		}

		loc := time.Local
		if j.Schedule.Timezone != "" {
			loc, err = time.LoadLocation(j.Schedule.Timezone)
			if err != nil {
				return time.Time{}, fmt.Errorf("load timezone: %w", err)
			}
		}

		next := time.Date(from.Year(), from.Month(), from.Day(),
			t.Hour(), t.Minute(), 0, 0, loc)
		if next.Before(from) || next.Equal(from) {
			next = next.Add(24 * time.Hour)
		}
		return next, nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule kind: %s", j.Schedule.Kind)
	}
}

// Clone creates a deep copy of the job.
func (j *Job) Clone() *Job {
	data, _ := json.Marshal(j)
	var clone Job
	json.Unmarshal(data, &clone)
	return &clone
}
