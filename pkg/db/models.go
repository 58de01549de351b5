package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// Session represents one recording session
type Session struct {
	ID             int64      `json:"id"`
	Label          string     `json:"label"`
	CPUName        string     `json:"cpu_name"`
	Codename       string     `json:"codename"`
	PMTableVersion uint32     `json:"pm_table_version"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Interval       int64      `json:"interval_ms"`
	SampleCount    int64      `json:"sample_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Sample represents one telemetry snapshot within a session. The headline
// metrics are stored in their own columns so SQL can aggregate them; the
// full reading is kept as JSON alongside.
type Sample struct {
	ID           int64          `json:"id"`
	SessionID    int64          `json:"session_id"`
	CapturedAt   time.Time      `json:"captured_at"`
	SocketPower  monitor.Metric `json:"socket_power"`
	PackagePower monitor.Metric `json:"package_power"`
	PeakTemp     monitor.Metric `json:"peak_temp"`
	PeakFreq     monitor.Metric `json:"peak_freq"`
	AvgVoltage   monitor.Metric `json:"avg_voltage"`
	Reading      ReadingData    `json:"reading"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ReadingData stores a full telemetry reading as JSON in SQLite
type ReadingData struct {
	*monitor.Reading
}

// Value implements the driver.Valuer interface
func (r ReadingData) Value() (driver.Value, error) {
	if r.Reading == nil {
		return nil, nil
	}
	return json.Marshal(r.Reading)
}

// Scan implements the sql.Scanner interface
func (r *ReadingData) Scan(value interface{}) error {
	if value == nil {
		r.Reading = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into ReadingData", value)
	}

	r.Reading = &monitor.Reading{}
	return json.Unmarshal(data, r.Reading)
}

// Active reports whether the session is still being recorded
func (s *Session) Active() bool {
	return s.EndTime == nil
}

// Duration returns the duration of the session
func (s *Session) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SessionFilter represents filters for querying sessions
type SessionFilter struct {
	Label     string
	StartTime *time.Time
	EndTime   *time.Time
	Active    *bool
	Limit     int
	Offset    int
}

// SessionStats holds aggregates computed over a session's samples
type SessionStats struct {
	SampleCount     int64   `json:"sample_count"`
	MinSocketPower  float64 `json:"min_socket_power"`
	MaxSocketPower  float64 `json:"max_socket_power"`
	AvgSocketPower  float64 `json:"avg_socket_power"`
	MinPackagePower float64 `json:"min_package_power"`
	MaxPackagePower float64 `json:"max_package_power"`
	AvgPackagePower float64 `json:"avg_package_power"`
	MinPeakTemp     float64 `json:"min_peak_temp"`
	MaxPeakTemp     float64 `json:"max_peak_temp"`
	AvgPeakTemp     float64 `json:"avg_peak_temp"`
	MaxPeakFreq     float64 `json:"max_peak_freq"`
	AvgPeakFreq     float64 `json:"avg_peak_freq"`
	AvgVoltage      float64 `json:"avg_voltage"`
}

// ExportFormat represents the format for exporting data
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)
