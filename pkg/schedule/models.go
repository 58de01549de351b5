package schedule

import (
	"time"
)

// Schedule represents a recurring capture configuration
type Schedule struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	CronExpr      string     `json:"cron_expr"`
	Interval      int64      `json:"interval_ms"`
	Duration      int64      `json:"duration_s"`
	Label         string     `json:"label"`
	Enabled       bool       `json:"enabled"`
	LastSessionID *int64     `json:"last_session_id"`
	LastRunTime   *time.Time `json:"last_run_time"`
	NextRunTime   *time.Time `json:"next_run_time"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ScheduleFilter represents filters for querying schedules
type ScheduleFilter struct {
	Enabled *bool
	Limit   int
	Offset  int
}

// SampleInterval returns the capture interval for runs of this schedule
func (s *Schedule) SampleInterval() time.Duration {
	return time.Duration(s.Interval) * time.Millisecond
}

// CaptureDuration returns how long each run of this schedule records
func (s *Schedule) CaptureDuration() time.Duration {
	return time.Duration(s.Duration) * time.Second
}

// IsOverdue returns true if the schedule is overdue for execution
func (s *Schedule) IsOverdue() bool {
	if !s.Enabled || s.NextRunTime == nil {
		return false
	}
	return time.Now().After(*s.NextRunTime)
}

// ShouldRun returns true if the schedule should run now
func (s *Schedule) ShouldRun() bool {
	if !s.Enabled {
		return false
	}

	// If never run, should run
	if s.LastRunTime == nil {
		return true
	}

	// If next run time is set and passed, should run
	if s.NextRunTime != nil && time.Now().After(*s.NextRunTime) {
		return true
	}

	return false
}
