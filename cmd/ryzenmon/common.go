package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// getDBPath returns the path to the session database file
func getDBPath() string {
	// Check environment variable first
	if dbPath := os.Getenv("RYZENMON_DB_PATH"); dbPath != "" {
		return dbPath
	}

	// Default to user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory
		return "ryzenmon.db"
	}

	// Create .ryzenmon directory if it doesn't exist
	stateDir := filepath.Join(homeDir, ".ryzenmon")
	if err := os.MkdirAll(stateDir, 0o755); err == nil {
		return filepath.Join(stateDir, "ryzenmon.db")
	}

	// Fallback to current directory
	return "ryzenmon.db"
}

// openMonitor acquires the telemetry handle with the CLI's root overrides
func openMonitor() (*monitor.Monitor, error) {
	opts := []monitor.Option{}
	if root := os.Getenv("RYZENMON_SYSFS_ROOT"); root != "" {
		opts = append(opts, monitor.WithSysfsRoot(root))
	}
	if root := os.Getenv("RYZENMON_CPU_ROOT"); root != "" {
		opts = append(opts, monitor.WithCPURoot(root))
	}
	return monitor.New(opts...)
}

// metricString formats a metric for display, or "n/a" when absent
func metricString(m monitor.Metric, format string) string {
	if !m.Valid() {
		return "n/a"
	}
	return fmt.Sprintf(format, float64(m))
}

// Helper functions
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func parseInt64(s string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
