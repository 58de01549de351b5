package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/spf13/cobra"
)

// Helper command to list sessions
func listCmd() *cobra.Command {
	var (
		listLabel  string
		listLimit  int
		listActive bool
		listSince  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions",
		Long: `List recorded sessions from the database.

Examples:
  # List all sessions
  ryzenmon list

  # List sessions with a specific label
  ryzenmon list --label gaming

  # List sessions still recording
  ryzenmon list --active

  # List sessions from the last 24 hours
  ryzenmon list --since 24h`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Build filter
			filter := db.SessionFilter{
				Label: listLabel,
				Limit: listLimit,
			}

			if listActive {
				active := true
				filter.Active = &active
			}

			if listSince != "" {
				duration, err := parseSince(listSince)
				if err != nil {
					return fmt.Errorf("invalid duration: %w", err)
				}
				sinceTime := time.Now().Add(-duration)
				filter.StartTime = &sinceTime
			}

			// Get sessions
			sessions, err := database.ListSessions(filter)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions found")
				return nil
			}

			// Display sessions
			fmt.Printf("%-6s %-20s %-20s %-20s %-10s %-8s\n",
				"ID", "Label", "Start Time", "End Time", "Duration", "Samples")
			fmt.Println(strings.Repeat("-", 90))

			for _, session := range sessions {
				endTime := "recording"
				duration := "-"

				if session.EndTime != nil {
					endTime = session.EndTime.Format("2006-01-02 15:04:05")
					duration = formatDuration(session.Duration())
				}

				fmt.Printf("%-6d %-20s %-20s %-20s %-10s %-8d\n",
					session.ID,
					truncate(session.Label, 20),
					session.StartTime.Format("2006-01-02 15:04:05"),
					endTime,
					duration,
					session.SampleCount,
				)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&listLabel, "label", "l", "", "Filter by session label")
	cmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of sessions to show")
	cmd.Flags().BoolVar(&listActive, "active", false, "Show only sessions still recording")
	cmd.Flags().StringVar(&listSince, "since", "", "Show sessions since duration (e.g., 24h, 7d)")

	return cmd
}

// Helper command to show session details
func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show detailed session information",
		Long: `Show detailed information and aggregates for a recorded session.

Examples:
  ryzenmon show 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Parse session ID
			sessionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}

			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Get session
			session, err := database.GetSession(sessionID)
			if err != nil {
				return fmt.Errorf("session %d not found", sessionID)
			}

			// Get aggregates
			stats, err := database.SessionStats(sessionID)
			if err != nil {
				return fmt.Errorf("failed to get session stats: %w", err)
			}

			// Display session information
			fmt.Printf("Session ID: %d\n", session.ID)
			if session.Label != "" {
				fmt.Printf("Label: %s\n", session.Label)
			}
			fmt.Printf("CPU: %s (%s)\n", session.CPUName, session.Codename)
			fmt.Printf("PM Table Version: %#x\n", session.PMTableVersion)
			fmt.Printf("Start Time: %s\n", session.StartTime.Format("2006-01-02 15:04:05"))

			if session.EndTime != nil {
				fmt.Printf("End Time: %s\n", session.EndTime.Format("2006-01-02 15:04:05"))
				fmt.Printf("Duration: %.2f seconds\n", session.Duration().Seconds())
			} else {
				fmt.Printf("End Time: (still recording)\n")
			}

			fmt.Printf("Sample Interval: %s\n", time.Duration(session.Interval)*time.Millisecond)
			fmt.Printf("Samples: %d\n", stats.SampleCount)

			if stats.SampleCount > 0 {
				fmt.Printf("\nAggregates:\n")
				fmt.Printf("  %-16s %8s %8s %8s\n", "", "Min", "Max", "Avg")
				fmt.Printf("  %-16s %8.2f %8.2f %8.2f W\n", "Socket Power",
					stats.MinSocketPower, stats.MaxSocketPower, stats.AvgSocketPower)
				fmt.Printf("  %-16s %8.2f %8.2f %8.2f W\n", "Package Power",
					stats.MinPackagePower, stats.MaxPackagePower, stats.AvgPackagePower)
				fmt.Printf("  %-16s %8.2f %8.2f %8.2f C\n", "Peak Temp",
					stats.MinPeakTemp, stats.MaxPeakTemp, stats.AvgPeakTemp)
				fmt.Printf("  %-16s %8s %8.0f %8.0f MHz\n", "Peak Freq",
					"-", stats.MaxPeakFreq, stats.AvgPeakFreq)
				fmt.Printf("  %-16s %8s %8s %8.4f V\n", "Avg Voltage",
					"-", "-", stats.AvgVoltage)
			}

			return nil
		},
	}

	return cmd
}

// Helper command to delete a session
func deleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session and its samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sessionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}

			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			session, err := database.GetSession(sessionID)
			if err != nil {
				return fmt.Errorf("session %d not found", sessionID)
			}

			// Confirm deletion
			if !force {
				fmt.Printf("Delete session %d (%d samples)? [y/N] ", session.ID, session.SampleCount)
				var confirm string
				if _, err := fmt.Scanln(&confirm); err != nil {
					// Treat any error as a "no" response
					confirm = "n"
				}
				if !strings.EqualFold(confirm, "y") {
					fmt.Println("Cancelled")
					return nil
				}
			}

			if err := database.DeleteSession(sessionID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}

			fmt.Printf("Deleted session %d\n", sessionID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func parseSince(s string) (time.Duration, error) {
	// Handle simple formats like "24h", "7d"
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Try standard duration parsing
	return time.ParseDuration(s)
}
