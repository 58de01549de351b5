package main

import (
	"fmt"
	"os"

	"github.com/ryzenmon/ryzenmon/internal/version"
	"github.com/spf13/cobra"
)

// Build variables set by ldflags
var (
	buildVersion string
	buildCommit  string
	buildTime    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ryzenmon",
		Short: "AMD Ryzen SMU telemetry monitor",
		Long: `ryzenmon reads live telemetry from the AMD SMU power-management table
via the ryzen_smu kernel driver: per-core frequency, power, voltage and
residency, package power limits, memory clocks and more.

Readings can be printed once, watched live, recorded into sessions,
exported, rendered as reports, captured on a schedule, or served to
remote clients over mTLS.`,
		Version: version.GetVersion(buildVersion, buildCommit, buildTime),
	}

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(certCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.GetDetailedVersion(buildVersion, buildCommit, buildTime))
		},
	}
}
