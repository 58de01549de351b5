package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		interval  time.Duration
		showCores bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch live telemetry",
		Long: `Continuously read the PM table and print one summary line per sample
until interrupted.

Examples:
  # One sample per second
  ryzenmon watch

  # Faster sampling with the per-core table
  ryzenmon watch --interval 250ms --cores`,
		RunE: func(_ *cobra.Command, _ []string) error {
			mon, err := openMonitor()
			if err != nil {
				return fmt.Errorf("failed to open monitor: %w", err)
			}
			defer func() { _ = mon.Close() }()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			reading := &monitor.Reading{Cores: make([]monitor.CoreData, mon.TotalCores())}

			if !showCores {
				fmt.Printf("%-9s %-10s %-10s %-9s %-10s %-10s\n",
					"Time", "Socket W", "Package W", "Temp C", "Freq MHz", "Voltage V")
			}

			failures := 0
			for {
				if _, err := mon.Read(reading); err != nil {
					failures++
					fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
					if failures >= 10 {
						return fmt.Errorf("giving up after %d consecutive read failures: %w", failures, err)
					}
				} else {
					failures = 0
					if showCores {
						fmt.Printf("--- %s ---\n", reading.Timestamp.Format("15:04:05"))
						printCores(reading)
						fmt.Println()
					} else {
						fmt.Printf("%-9s %-10s %-10s %-9s %-10s %-10s\n",
							reading.Timestamp.Format("15:04:05"),
							metricString(reading.Power.SocketPower, "%.2f"),
							metricString(reading.Power.PackagePower, "%.2f"),
							metricString(reading.Stats.PeakCoreTemp, "%.1f"),
							metricString(reading.Stats.PeakCoreFrequency, "%.0f"),
							metricString(reading.Stats.AvgCoreVoltage, "%.4f"),
						)
					}
				}

				select {
				case <-sigChan:
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Sampling interval")
	cmd.Flags().BoolVar(&showCores, "cores", false, "Show the per-core table each sample")

	return cmd
}
