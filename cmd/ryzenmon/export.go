package main

import (
	"fmt"
	"os"

	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/spf13/cobra"
)

var (
	exportSessionID int64
	exportOutput    string
	exportAll       bool
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded sessions",
		Long:  "Export recorded telemetry sessions in various formats",
	}

	cmd.AddCommand(exportCSVCmd())
	cmd.AddCommand(exportJSONCmd())

	return cmd
}

func exportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Export samples to CSV format",
		Long: `Export session samples to CSV format.

Examples:
  # Export specific session to file
  ryzenmon export csv --session 42 --out session.csv

  # Export specific session to stdout
  ryzenmon export csv --session 42

  # Export all sessions
  ryzenmon export csv --all --out all-sessions.csv`,
		RunE: runExportCSV,
	}

	cmd.Flags().Int64Var(&exportSessionID, "session", 0, "Session ID to export")
	cmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&exportAll, "all", false, "Export all sessions")

	return cmd
}

func exportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "json",
		Short: "Export a session to JSON format",
		Long: `Export a session with its full readings to JSON format.

Examples:
  # Export specific session to file
  ryzenmon export json --session 42 --out session.json

  # Export specific session to stdout
  ryzenmon export json --session 42`,
		RunE: runExportJSON,
	}

	cmd.Flags().Int64Var(&exportSessionID, "session", 0, "Session ID to export")
	cmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExportCSV(_ *cobra.Command, _ []string) error {
	// Validate flags
	if !exportAll && exportSessionID == 0 {
		return fmt.Errorf("either --session or --all must be specified")
	}

	// Open database
	dbPath := getDBPath()
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Prepare output writer
	var out *os.File
	if exportOutput == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(exportOutput) // #nosec G304 -- exportOutput is a user-specified output file path from command line flag
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = out.Close() }()
	}

	// Export data
	if exportAll {
		if err := database.ExportAllCSV(out); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
		if exportOutput != "" {
			fmt.Printf("Exported all sessions to %s\n", exportOutput)
		}
	} else {
		// Check if session exists
		if _, err := database.GetSession(exportSessionID); err != nil {
			return fmt.Errorf("session %d not found", exportSessionID)
		}

		if err := database.ExportCSV(out, exportSessionID); err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
		if exportOutput != "" {
			fmt.Printf("Exported session %d to %s\n", exportSessionID, exportOutput)
		}
	}

	return nil
}

func runExportJSON(_ *cobra.Command, _ []string) error {
	// Validate flags
	if exportSessionID == 0 {
		return fmt.Errorf("--session must be specified")
	}

	// Open database
	dbPath := getDBPath()
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Check if session exists
	if _, err := database.GetSession(exportSessionID); err != nil {
		return fmt.Errorf("session %d not found", exportSessionID)
	}

	// Prepare output writer
	var out *os.File
	if exportOutput == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(exportOutput) // #nosec G304 -- exportOutput is a user-specified output file path from command line flag
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = out.Close() }()
	}

	// Export data
	if err := database.ExportJSON(out, exportSessionID); err != nil {
		return fmt.Errorf("failed to export JSON: %w", err)
	}

	if exportOutput != "" {
		fmt.Printf("Exported session %d to %s\n", exportSessionID, exportOutput)
	}

	return nil
}
