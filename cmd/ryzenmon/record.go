package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/capture"
	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/spf13/cobra"
)

func recordCmd() *cobra.Command {
	var (
		label    string
		interval time.Duration
		duration time.Duration
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a telemetry session",
		Long: `Record telemetry samples into the session database.

The session ends when the duration elapses or on Ctrl+C.

Examples:
  # Record until interrupted, one sample per second
  ryzenmon record

  # Record a labeled 10 minute session at 500ms
  ryzenmon record --label "gaming" --interval 500ms --duration 10m`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup logging
			logger := log.New(os.Stdout, "[record] ", log.LstdFlags)
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- logFile is a user-specified log file path
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer func() { _ = f.Close() }()
				logger = log.New(f, "[record] ", log.LstdFlags)
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

			// Cancel the recording context on Ctrl+C
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				logger.Println("Received shutdown signal")
				cancel()
			}()

			recorder := capture.NewRecorder(mon, database, logger)
			session, err := recorder.Run(ctx, capture.Config{
				Label:    label,
				Interval: interval,
				Duration: duration,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Recorded session %d with %d samples\n", session.ID, session.SampleCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Session label")
	cmd.Flags().DurationVarP(&interval, "interval", "i", capture.DefaultInterval, "Sampling interval")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Recording duration (0 = until interrupted)")
	cmd.Flags().StringVar(&logFile, "log", "", "Log file path (default: stdout)")

	return cmd
}
