package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
	"github.com/spf13/cobra"
)

func readCmd() *cobra.Command {
	var (
		jsonOutput bool
		showCores  bool
		showPower  bool
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Take one telemetry snapshot",
		Long: `Read the PM table once and print the decoded telemetry.

Examples:
  # Summary view
  ryzenmon read

  # Include the per-core table
  ryzenmon read --cores

  # Include the per-rail power breakdown
  ryzenmon read --power

  # Full snapshot as JSON
  ryzenmon read --json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			mon, err := openMonitor()
			if err != nil {
				return fmt.Errorf("failed to open monitor: %w", err)
			}
			defer func() { _ = mon.Close() }()

			reading := &monitor.Reading{Cores: make([]monitor.CoreData, mon.TotalCores())}
			if _, err := mon.Read(reading); err != nil {
				return fmt.Errorf("failed to read telemetry: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reading)
			}

			printSummary(reading)
			if showCores {
				fmt.Println()
				printCores(reading)
			}
			if showPower {
				fmt.Println()
				printPower(reading)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the full snapshot as JSON")
	cmd.Flags().BoolVar(&showCores, "cores", false, "Show the per-core table")
	cmd.Flags().BoolVar(&showPower, "power", false, "Show the per-rail power breakdown")

	return cmd
}

func printSummary(reading *monitor.Reading) {
	c := &reading.Constraints
	s := &reading.Stats
	p := &reading.Power
	m := &reading.Memory

	fmt.Println("Package")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  Socket Power:     %s W\n", metricString(p.SocketPower, "%.2f"))
	fmt.Printf("  Package Power:    %s W\n", metricString(p.PackagePower, "%.2f"))
	fmt.Printf("  Peak Core Temp:   %s C\n", metricString(s.PeakCoreTemp, "%.1f"))
	fmt.Printf("  Peak Core Freq:   %s MHz\n", metricString(s.PeakCoreFrequency, "%.0f"))
	fmt.Printf("  Avg Core Voltage: %s V\n", metricString(s.AvgCoreVoltage, "%.4f"))
	fmt.Printf("  Package C6:       %s %%\n", metricString(s.PackageCC6, "%.2f"))

	fmt.Println("\nLimits")
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("  PPT:  %s / %s W\n", metricString(c.PPTValue, "%.2f"), metricString(c.PPTLimit, "%.0f"))
	fmt.Printf("  TDC:  %s / %s A\n", metricString(c.TDCValue, "%.2f"), metricString(c.TDCLimit, "%.0f"))
	fmt.Printf("  EDC:  %s / %s A\n", metricString(c.EDCValue, "%.2f"), metricString(c.EDCLimit, "%.0f"))
	fmt.Printf("  THM:  %s / %s C\n", metricString(c.THMValue, "%.2f"), metricString(c.THMLimit, "%.0f"))
	fmt.Printf("  FIT:  %s / %s\n", metricString(c.FITValue, "%.0f"), metricString(c.FITLimit, "%.0f"))

	fmt.Println("\nMemory")
	fmt.Println(strings.Repeat("-", 60))
	coupled := "decoupled"
	if m.CoupledMode {
		coupled = "coupled"
	}
	fmt.Printf("  FCLK: %s MHz, UCLK: %s MHz, MEMCLK: %s MHz (%s)\n",
		metricString(m.FCLKFreq, "%.0f"),
		metricString(m.UCLKFreq, "%.0f"),
		metricString(m.MEMCLKFreq, "%.0f"),
		coupled)

	if reading.Graphics.Supported {
		g := &reading.Graphics
		fmt.Println("\nGraphics")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  Freq: %s MHz, Temp: %s C, Busy: %s %%, Voltage: %s V\n",
			metricString(g.GfxFreq, "%.0f"),
			metricString(g.GfxTemp, "%.1f"),
			metricString(g.GfxBusy, "%.1f"),
			metricString(g.GfxVoltage, "%.4f"))
	}
}

func printCores(reading *monitor.Reading) {
	fmt.Printf("%-5s %-9s %-8s %-8s %-7s %-7s %-7s %-7s %s\n",
		"Core", "Freq MHz", "Power W", "Volt V", "Temp C", "C0 %", "CC1 %", "CC6 %", "State")
	fmt.Println(strings.Repeat("-", 76))

	for i := range reading.Cores {
		core := &reading.Cores[i]

		state := "active"
		switch {
		case core.Disabled:
			state = "disabled"
		case core.Sleeping:
			state = "sleeping"
		}

		fmt.Printf("%-5d %-9s %-8s %-8s %-7s %-7s %-7s %-7s %s\n",
			core.CoreNum,
			metricString(core.Frequency, "%.0f"),
			metricString(core.Power, "%.3f"),
			metricString(core.Voltage, "%.4f"),
			metricString(core.Temp, "%.1f"),
			metricString(core.C0, "%.1f"),
			metricString(core.CC1, "%.1f"),
			metricString(core.CC6, "%.1f"),
			state,
		)
	}
}

func printPower(reading *monitor.Reading) {
	p := &reading.Power

	rows := []struct {
		name  string
		value monitor.Metric
	}{
		{"Total Core Power", p.TotalCorePower},
		{"VDDCR CPU Power", p.VDDCRCPUPower},
		{"VDDCR SoC Power", p.VDDCRSoCPower},
		{"GMI2 VDDG Power", p.GMI2VDDGPower},
		{"L3 Logic Power", p.L3LogicPower},
		{"L3 VDDM Power", p.L3VDDMPower},
		{"VDDIO Mem Power", p.VDDIOMemPower},
		{"DDR VDDP Power", p.DDRVDDPPower},
		{"DDR Phy Power", p.DDRPhyPower},
		{"VDD18 Power", p.VDD18Power},
		{"IO USB Power", p.IOUSBPower},
		{"IO Display Power", p.IODisplayPower},
		{"Socket Power", p.SocketPower},
		{"Package Power", p.PackagePower},
	}

	fmt.Println("Power Rails")
	fmt.Println(strings.Repeat("-", 60))
	for _, row := range rows {
		if !row.value.Valid() {
			continue
		}
		fmt.Printf("  %-20s %8.3f W\n", row.name, float64(row.value))
	}
}
