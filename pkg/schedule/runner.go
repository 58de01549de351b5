package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ryzenmon/ryzenmon/pkg/capture"
	"github.com/ryzenmon/ryzenmon/pkg/db"
)

// Runner manages scheduled capture sessions
type Runner struct {
	cron     *cron.Cron
	store    *Store
	recorder *capture.Recorder
	jobs     map[int64]cron.EntryID
	mu       sync.RWMutex
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRunner creates a new schedule runner
func NewRunner(database *db.DB, recorder *capture.Recorder, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		cron:     cron.New(cron.WithParser(cronParser())),
		store:    NewStore(database),
		recorder: recorder,
		jobs:     make(map[int64]cron.EntryID),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler
func (r *Runner) Start() error {
	r.logger.Println("Starting scheduler...")

	// Load all enabled schedules
	enabled := true
	schedules, err := r.store.List(ScheduleFilter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	// Register each schedule
	for _, schedule := range schedules {
		if err := r.registerSchedule(schedule); err != nil {
			r.logger.Printf("Failed to register schedule %s: %v", schedule.Name, err)
		}
	}

	// Start cron scheduler
	r.cron.Start()

	r.logger.Printf("Scheduler started with %d active schedules", len(r.jobs))
	return nil
}

// Stop stops the scheduler and waits for running captures to finish
func (r *Runner) Stop() {
	r.logger.Println("Stopping scheduler...")

	// Cancel context so running captures wind down
	r.cancel()

	// Stop cron scheduler
	ctx := r.cron.Stop()

	// Wait for running jobs to complete
	select {
	case <-ctx.Done():
		r.logger.Println("All jobs completed")
	case <-time.After(5 * time.Minute):
		r.logger.Println("Timeout waiting for jobs to complete")
	}

	r.logger.Println("Scheduler stopped")
}

// RegisterSchedule adds a schedule to the runner
func (r *Runner) RegisterSchedule(scheduleID int64) error {
	schedule, err := r.store.Get(scheduleID)
	if err != nil {
		return err
	}

	return r.registerSchedule(schedule)
}

// UnregisterSchedule removes a schedule from the runner
func (r *Runner) UnregisterSchedule(scheduleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entryID, exists := r.jobs[scheduleID]; exists {
		r.cron.Remove(entryID)
		delete(r.jobs, scheduleID)
		r.logger.Printf("Unregistered schedule ID %d", scheduleID)
	}

	return nil
}

// RefreshSchedule updates a schedule in the runner
func (r *Runner) RefreshSchedule(scheduleID int64) error {
	// Unregister existing job
	if err := r.UnregisterSchedule(scheduleID); err != nil {
		return err
	}

	// Re-register if enabled
	schedule, err := r.store.Get(scheduleID)
	if err != nil {
		return err
	}

	if schedule.Enabled {
		return r.registerSchedule(schedule)
	}

	return nil
}

// registerSchedule registers a schedule with the cron scheduler
func (r *Runner) registerSchedule(schedule *Schedule) error {
	if !schedule.Enabled {
		return nil
	}

	// Create job function
	job := r.createJob(schedule)

	// Add to cron
	entryID, err := r.cron.AddFunc(schedule.CronExpr, job)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	// Track job
	r.mu.Lock()
	r.jobs[schedule.ID] = entryID
	r.mu.Unlock()

	r.logger.Printf("Registered schedule '%s' (ID: %d) with cron expression: %s",
		schedule.Name, schedule.ID, schedule.CronExpr)

	return nil
}

// createJob creates a job function for a schedule
func (r *Runner) createJob(schedule *Schedule) func() {
	return func() {
		// Check context
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		r.logger.Printf("Executing scheduled capture: %s", schedule.Name)

		// Run in goroutine to not block scheduler
		go func() {
			if err := r.executeSchedule(schedule); err != nil {
				r.logger.Printf("Failed to execute schedule %s: %v", schedule.Name, err)
			}
		}()
	}
}

// executeSchedule runs one capture session for a schedule
func (r *Runner) executeSchedule(schedule *Schedule) error {
	// Recover from panics
	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("Panic in schedule %s: %v", schedule.Name, p)
		}
	}()

	label := schedule.Label
	if label == "" {
		label = schedule.Name
	}

	startTime := time.Now()
	session, err := r.recorder.Run(r.ctx, capture.Config{
		Label:    label,
		Interval: schedule.SampleInterval(),
		Duration: schedule.CaptureDuration(),
	})
	if err != nil {
		if session != nil {
			// Keep the link to the partial session
			if updateErr := r.store.UpdateLastRun(schedule.ID, session.ID); updateErr != nil {
				r.logger.Printf("Failed to update schedule last run: %v", updateErr)
			}
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	// Update schedule's last run info
	if err := r.store.UpdateLastRun(schedule.ID, session.ID); err != nil {
		r.logger.Printf("Failed to update schedule last run: %v", err)
	}

	r.logger.Printf("Completed session %d for schedule %s (%d samples, duration: %s)",
		session.ID, schedule.Name, session.SampleCount, time.Since(startTime))

	return nil
}

// CheckDue runs any overdue schedules immediately
func (r *Runner) CheckDue() error {
	schedules, err := r.store.GetDue()
	if err != nil {
		return fmt.Errorf("failed to get due schedules: %w", err)
	}

	for _, schedule := range schedules {
		r.logger.Printf("Running overdue schedule: %s", schedule.Name)
		go func(s *Schedule) {
			if err := r.executeSchedule(s); err != nil {
				r.logger.Printf("Failed to execute overdue schedule %s: %v", s.Name, err)
			}
		}(schedule)
	}

	return nil
}

// ListJobs returns information about all scheduled jobs
func (r *Runner) ListJobs() []cron.Entry {
	return r.cron.Entries()
}
