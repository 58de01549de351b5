package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/ryzenmon/ryzenmon/pkg/report"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate session reports",
		Long:  "Generate HTML and PDF reports from recorded sessions",
	}

	cmd.AddCommand(reportGenerateCmd())

	return cmd
}

func reportGenerateCmd() *cobra.Command {
	var (
		format    string
		output    string
		sessionID int64
		latest    bool
		label     string
		landscape bool
		pageSize  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report",
		Long: `Generate an HTML or PDF report from a recorded session.

Examples:
  # Generate HTML report for latest session
  ryzenmon report generate --latest

  # Generate PDF report for specific session
  ryzenmon report generate --session 42 --format pdf --output report.pdf

  # Generate report for the latest session with a label
  ryzenmon report generate --latest --label gaming

  # Generate landscape PDF with custom page size
  ryzenmon report generate --session 10 --format pdf --landscape --page-size A4`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Validate inputs
			if !latest && sessionID == 0 {
				return fmt.Errorf("either --latest or --session must be specified")
			}

			if format != "html" && format != "pdf" {
				return fmt.Errorf("format must be either 'html' or 'pdf'")
			}

			// Open database
			dbPath := getDBPath()
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// Find session ID
			if latest {
				sessions, err := database.ListSessions(db.SessionFilter{
					Label: label,
					Limit: 1,
				})
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				if len(sessions) == 0 {
					return fmt.Errorf("no sessions found")
				}
				sessionID = sessions[0].ID
			}

			// Verify session exists
			session, err := database.GetSession(sessionID)
			if err != nil {
				return fmt.Errorf("session %d not found", sessionID)
			}

			// Create report generator
			generator := report.NewGenerator(database)

			// Generate output filename if not specified
			if output == "" {
				timestamp := time.Now().Format("20060102_150405")
				output = fmt.Sprintf("ryzenmon_report_%d_%s.%s", sessionID, timestamp, format)
			}

			// Generate report
			switch format {
			case "html":
				html, err := generator.GenerateHTML(sessionID)
				if err != nil {
					return fmt.Errorf("failed to generate HTML report: %w", err)
				}

				// Write to file
				if err := os.WriteFile(output, []byte(html), 0o600); err != nil {
					return fmt.Errorf("failed to write HTML file: %w", err)
				}

			case "pdf":
				// Prepare PDF options
				options := report.DefaultPDFOptions()
				options.Landscape = landscape

				// Parse page size
				if pageSize != "" {
					switch strings.ToUpper(pageSize) {
					case "A4":
						options.PaperWidth = 8.27
						options.PaperHeight = 11.69
					case "A3":
						options.PaperWidth = 11.69
						options.PaperHeight = 16.54
					case "LETTER":
						// Default is already Letter
					case "LEGAL":
						options.PaperWidth = 8.5
						options.PaperHeight = 14.0
					default:
						return fmt.Errorf("unsupported page size: %s", pageSize)
					}
				}

				// Generate PDF
				if err := generator.GeneratePDF(sessionID, output, &options); err != nil {
					return fmt.Errorf("failed to generate PDF report: %w", err)
				}
			}

			// Get absolute path for display
			absPath, _ := filepath.Abs(output)

			fmt.Printf("Generated %s report for session #%d\n", strings.ToUpper(format), sessionID)
			fmt.Printf("CPU: %s (%s)\n", session.CPUName, session.Codename)
			fmt.Printf("Date: %s\n", session.StartTime.Format("2006-01-02 15:04:05"))
			fmt.Printf("Output: %s\n", absPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "html", "Output format (html or pdf)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().Int64Var(&sessionID, "session", 0, "Session ID to generate report for")
	cmd.Flags().BoolVar(&latest, "latest", false, "Use latest session")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Filter by label when using --latest")
	cmd.Flags().BoolVar(&landscape, "landscape", false, "Generate PDF in landscape mode")
	cmd.Flags().StringVar(&pageSize, "page-size", "LETTER", "PDF page size (A3, A4, LETTER, LEGAL)")

	return cmd
}
