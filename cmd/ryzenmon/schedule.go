package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/capture"
	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/ryzenmon/ryzenmon/pkg/schedule"
	"github.com/spf13/cobra"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage capture schedules",
		Long:  "Create, manage, and run scheduled telemetry captures",
	}

	cmd.AddCommand(scheduleAddCmd())
	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleRemoveCmd())
	cmd.AddCommand(scheduleEnableCmd())
	cmd.AddCommand(scheduleDisableCmd())
	cmd.AddCommand(scheduleStartCmd())
	cmd.AddCommand(scheduleShowCmd())

	return cmd
}

func scheduleAddCmd() *cobra.Command {
	var (
		name        string
		description string
		cronExpr    string
		interval    time.Duration
		duration    time.Duration
		label       string
		enabled     bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new schedule",
		Long: `Add a new capture schedule with cron-style timing.

Cron expression format:
  ┌───────────── minute (0 - 59)
  │ ┌───────────── hour (0 - 23)
  │ │ ┌───────────── day of month (1 - 31)
  │ │ │ ┌───────────── month (1 - 12)
  │ │ │ │ ┌───────────── day of week (0 - 6) (Sunday to Saturday)
  │ │ │ │ │
  * * * * *

Examples:
  # Capture 5 minutes of telemetry every hour
  ryzenmon schedule add --name "Hourly" --cron "0 * * * *" --duration 5m

  # Capture a daily high-resolution session at 2 AM
  ryzenmon schedule add --name "Nightly" --cron "0 2 * * *" --interval 250ms --duration 15m

  # Capture every Monday at 3:30 AM with a label
  ryzenmon schedule add --name "Weekly" --cron "30 3 * * 1" --duration 10m --label baseline`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Validate inputs
			if name == "" {
				return fmt.Errorf("schedule name is required")
			}
			if cronExpr == "" {
				return fmt.Errorf("cron expression is required")
			}

			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Create schedule store
			store := schedule.NewStore(database)

			// Create schedule
			sched := &schedule.Schedule{
				Name:        name,
				Description: description,
				CronExpr:    cronExpr,
				Interval:    interval.Milliseconds(),
				Duration:    int64(duration.Seconds()),
				Label:       label,
				Enabled:     enabled,
			}

			if err := store.Create(sched); err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}

			fmt.Printf("Created schedule '%s' (ID: %d)\n", sched.Name, sched.ID)
			fmt.Printf("Cron: %s\n", sched.CronExpr)
			fmt.Printf("Capture: %s every %s\n", sched.CaptureDuration(), sched.SampleInterval())
			if sched.NextRunTime != nil {
				fmt.Printf("Next run: %s\n", sched.NextRunTime.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Schedule name (required)")
	cmd.Flags().StringVarP(&description, "desc", "d", "", "Schedule description")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (required)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", capture.DefaultInterval, "Sampling interval")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Minute, "Capture duration per run")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Session label for captured sessions")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Enable schedule immediately")

	if err := cmd.MarkFlagRequired("name"); err != nil {
		// Log the error but don't fail - this is a development-time check
		fmt.Fprintf(os.Stderr, "Warning: failed to mark flag 'name' as required: %v\n", err)
	}
	if err := cmd.MarkFlagRequired("cron"); err != nil {
		// Log the error but don't fail - this is a development-time check
		fmt.Fprintf(os.Stderr, "Warning: failed to mark flag 'cron' as required: %v\n", err)
	}

	return cmd
}

func scheduleListCmd() *cobra.Command {
	var (
		all      bool
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		Long: `List all configured schedules.

Examples:
  # List enabled schedules
  ryzenmon schedule list

  # List all schedules
  ryzenmon schedule list --all`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Create schedule store
			store := schedule.NewStore(database)

			// Build filter
			filter := schedule.ScheduleFilter{}
			if !all && !disabled {
				enabled := true
				filter.Enabled = &enabled
			} else if disabled {
				enabled := false
				filter.Enabled = &enabled
			}

			// List schedules
			schedules, err := store.List(filter)
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			if len(schedules) == 0 {
				fmt.Println("No schedules found")
				return nil
			}

			// Display schedules
			fmt.Printf("%-4s %-20s %-20s %-10s %-8s %-20s\n",
				"ID", "Name", "Cron", "Duration", "Enabled", "Next Run")
			fmt.Println(strings.Repeat("-", 90))

			for _, sched := range schedules {
				nextRun := "N/A"
				if sched.NextRunTime != nil {
					if sched.IsOverdue() {
						nextRun = fmt.Sprintf("%s (overdue)", sched.NextRunTime.Format("2006-01-02 15:04"))
					} else {
						nextRun = sched.NextRunTime.Format("2006-01-02 15:04")
					}
				}

				fmt.Printf("%-4d %-20s %-20s %-10s %-8v %-20s\n",
					sched.ID,
					truncate(sched.Name, 20),
					sched.CronExpr,
					sched.CaptureDuration(),
					sched.Enabled,
					nextRun,
				)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Show all schedules")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Show only disabled schedules")

	return cmd
}

func scheduleRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [id|name]",
		Short: "Remove a schedule",
		Long: `Remove a schedule by ID or name.

Examples:
  ryzenmon schedule remove 1
  ryzenmon schedule remove "Nightly"`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Create schedule store
			store := schedule.NewStore(database)

			// Find schedule
			sched, err := findSchedule(store, args[0])
			if err != nil {
				return err
			}

			// Confirm deletion
			fmt.Printf("Delete schedule '%s' (ID: %d)? [y/N] ", sched.Name, sched.ID)
			var confirm string
			if _, err := fmt.Scanln(&confirm); err != nil {
				// Treat any error as a "no" response
				confirm = "n"
			}
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Cancelled")
				return nil
			}

			// Delete schedule
			if err := store.Delete(sched.ID); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}

			fmt.Printf("Deleted schedule '%s'\n", sched.Name)
			return nil
		},
	}

	return cmd
}

func scheduleEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable [id|name]",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return toggleSchedule(args[0], true)
		},
	}
}

func scheduleDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [id|name]",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return toggleSchedule(args[0], false)
		},
	}
}

func toggleSchedule(identifier string, enable bool) error {
	// Open database
	dbPath := getDBPath()
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Create schedule store
	store := schedule.NewStore(database)

	// Find schedule
	sched, err := findSchedule(store, identifier)
	if err != nil {
		return err
	}

	// Toggle state
	if enable {
		if err := store.Enable(sched.ID); err != nil {
			return fmt.Errorf("failed to enable schedule: %w", err)
		}
		fmt.Printf("Enabled schedule '%s'\n", sched.Name)
	} else {
		if err := store.Disable(sched.ID); err != nil {
			return fmt.Errorf("failed to disable schedule: %w", err)
		}
		fmt.Printf("Disabled schedule '%s'\n", sched.Name)
	}

	return nil
}

func findSchedule(store *schedule.Store, identifier string) (*schedule.Schedule, error) {
	if id, err := parseInt64(identifier); err == nil {
		sched, err := store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("schedule with ID %d not found", id)
		}
		return sched, nil
	}

	sched, err := store.GetByName(identifier)
	if err != nil {
		return nil, fmt.Errorf("schedule '%s' not found", identifier)
	}
	return sched, nil
}

func scheduleStartCmd() *cobra.Command {
	var (
		checkInterval time.Duration
		logFile       string
	)

	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Start the scheduler daemon",
		Long: `Start the scheduler daemon to run captures automatically.

The scheduler will:
- Load all enabled schedules
- Record sessions according to their cron expressions
- Save samples to the database
- Continue running until interrupted

Examples:
  # Start scheduler in foreground
  ryzenmon schedule start

  # Start with custom check interval
  ryzenmon schedule start --check-interval 30s

  # Start with log file
  ryzenmon schedule start --log scheduler.log`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup logging
			logger := log.New(os.Stdout, "[scheduler] ", log.LstdFlags)
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- logFile is a user-specified log file path
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer func() { _ = f.Close() }()
				logger = log.New(f, "[scheduler] ", log.LstdFlags)
			}

			mon, err := openMonitor()
			if err != nil {
				return fmt.Errorf("failed to open monitor: %w", err)
			}
			defer func() { _ = mon.Close() }()

			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Create and start runner
			recorder := capture.NewRecorder(mon, database, logger)
			runner := schedule.NewRunner(database, recorder, logger)
			if err := runner.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			// Setup signal handling
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			// Run check for overdue schedules periodically
			ticker := time.NewTicker(checkInterval)
			defer ticker.Stop()

			fmt.Println("Scheduler started. Press Ctrl+C to stop.")
			logger.Println("Scheduler daemon started")

			// Main loop
			for {
				select {
				case <-sigChan:
					logger.Println("Received shutdown signal")
					runner.Stop()
					return nil

				case <-ticker.C:
					if err := runner.CheckDue(); err != nil {
						logger.Printf("Error checking due schedules: %v", err)
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&checkInterval, "check-interval", 60*time.Second, "Interval to check for overdue schedules")
	cmd.Flags().StringVar(&logFile, "log", "", "Log file path (default: stdout)")

	return cmd
}

func scheduleShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id|name]",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Create schedule store
			store := schedule.NewStore(database)

			// Find schedule
			sched, err := findSchedule(store, args[0])
			if err != nil {
				return err
			}

			// Display details
			fmt.Printf("Schedule: %s (ID: %d)\n", sched.Name, sched.ID)
			if sched.Description != "" {
				fmt.Printf("Description: %s\n", sched.Description)
			}
			fmt.Printf("Cron Expression: %s\n", sched.CronExpr)
			fmt.Printf("Sample Interval: %s\n", sched.SampleInterval())
			fmt.Printf("Capture Duration: %s\n", sched.CaptureDuration())
			if sched.Label != "" {
				fmt.Printf("Session Label: %s\n", sched.Label)
			}
			fmt.Printf("Enabled: %v\n", sched.Enabled)
			fmt.Printf("Created: %s\n", sched.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Updated: %s\n", sched.UpdatedAt.Format("2006-01-02 15:04:05"))

			if sched.LastRunTime != nil {
				fmt.Printf("\nLast Run: %s\n", sched.LastRunTime.Format("2006-01-02 15:04:05"))
				if sched.LastSessionID != nil {
					fmt.Printf("Last Session ID: %d\n", *sched.LastSessionID)
				}
			} else {
				fmt.Printf("\nLast Run: Never\n")
			}

			if sched.NextRunTime != nil {
				fmt.Printf("Next Run: %s", sched.NextRunTime.Format("2006-01-02 15:04:05"))
				if sched.IsOverdue() {
					fmt.Printf(" (OVERDUE)")
				}
				fmt.Println()
			}

			return nil
		},
	}

	return cmd
}
