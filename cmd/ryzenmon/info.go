package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func infoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show processor and driver information",
		Long: `Show static information about the processor, the SMU firmware and the
kernel driver.

Examples:
  # Human-readable summary
  ryzenmon info

  # Machine-readable output
  ryzenmon info --json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			mon, err := openMonitor()
			if err != nil {
				return fmt.Errorf("failed to open monitor: %w", err)
			}
			defer func() { _ = mon.Close() }()

			info, err := mon.SystemInfo()
			if err != nil {
				return fmt.Errorf("failed to read system info: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Printf("CPU:               %s\n", info.CPUName)
			fmt.Printf("Codename:          %s\n", info.Codename)
			fmt.Printf("Cores:             %d (%d enabled)\n", info.Cores, info.EnabledCores)
			fmt.Printf("Topology:          %d CCD(s), %d CCX(s), %d core(s) per CCX\n",
				info.CCDs, info.CCXs, info.CoresPerCCX)
			fmt.Printf("SMU Firmware:      %s\n", info.SMUFWVersion)
			fmt.Printf("Driver:            %s (interface v%d)\n", info.DriverVersion, info.InterfaceVersion)
			fmt.Printf("PM Table Version:  %#x\n", info.PMTableVersion)

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
