package db

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

func sampleRow(session *Session, sample *Sample) []string {
	return []string{
		strconv.FormatInt(session.ID, 10),
		session.Label,
		sample.CapturedAt.Format("2006-01-02 15:04:05.000"),
		metricCell(sample.SocketPower),
		metricCell(sample.PackagePower),
		metricCell(sample.PeakTemp),
		metricCell(sample.PeakFreq),
		metricCell(sample.AvgVoltage),
	}
}

var exportHeaders = []string{
	"Session ID", "Label", "Captured At", "Socket Power (W)",
	"Package Power (W)", "Peak Temp (C)", "Peak Freq (MHz)", "Avg Voltage (V)",
}

// ExportCSV exports one session's samples to CSV format
func (db *DB) ExportCSV(w io.Writer, sessionID int64) error {
	session, err := db.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	samples, err := db.GetSamples(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get samples: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, sample := range samples {
		if err := csvWriter.Write(sampleRow(session, sample)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

// ExportJSON exports one session with its full readings to JSON format
func (db *DB) ExportJSON(w io.Writer, sessionID int64) error {
	session, err := db.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	samples, err := db.GetSamples(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get samples: %w", err)
	}

	export := struct {
		Session *Session  `json:"session"`
		Samples []*Sample `json:"samples"`
	}{
		Session: session,
		Samples: samples,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// ExportAllCSV exports every session's samples to CSV format
func (db *DB) ExportAllCSV(w io.Writer) error {
	sessions, err := db.ListSessions(SessionFilter{})
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(exportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, session := range sessions {
		samples, err := db.GetSamples(session.ID)
		if err != nil {
			return fmt.Errorf("failed to get samples for session %d: %w", session.ID, err)
		}

		for _, sample := range samples {
			if err := csvWriter.Write(sampleRow(session, sample)); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	return nil
}

// metricCell renders an absent metric as an empty CSV cell
func metricCell(m monitor.Metric) string {
	if !m.Valid() {
		return ""
	}
	return strconv.FormatFloat(float64(m), 'f', 4, 64)
}
