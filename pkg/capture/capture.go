// Package capture records telemetry readings into the session store at a
// fixed interval.
package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// DefaultInterval is the sampling interval used when none is configured.
const DefaultInterval = time.Second

// maxConsecutiveFailures aborts a session when the hardware stops
// answering rather than recording an endless run of gaps.
const maxConsecutiveFailures = 10

// Source produces telemetry readings. *monitor.Monitor is the production
// implementation.
type Source interface {
	SystemInfo() (monitor.SystemData, error)
	TotalCores() int
	Read(*monitor.Reading) (int, error)
}

// Store persists recording sessions. *db.DB is the production
// implementation.
type Store interface {
	CreateSession(label string, info monitor.SystemData, interval time.Duration) (*db.Session, error)
	InsertSample(sessionID int64, reading *monitor.Reading) error
	EndSession(id int64, endTime time.Time, sampleCount int64) error
}

// Config controls one recording session.
type Config struct {
	// Label tags the session in the store.
	Label string

	// Interval between samples. Defaults to DefaultInterval.
	Interval time.Duration

	// Duration bounds the session. Zero records until the context is
	// cancelled.
	Duration time.Duration
}

// Recorder drives a sampling loop against a telemetry source.
type Recorder struct {
	source Source
	store  Store
	logger *log.Logger
}

// NewRecorder creates a recorder. A nil logger falls back to the default.
func NewRecorder(source Source, store Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		source: source,
		store:  store,
		logger: logger,
	}
}

// Run records one session and returns it with the final sample count. The
// first sample is taken immediately; the session ends when the configured
// duration elapses, the context is cancelled, or the source fails
// repeatedly.
func (r *Recorder) Run(ctx context.Context, cfg Config) (*db.Session, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	info, err := r.source.SystemInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read system info: %w", err)
	}

	session, err := r.store.CreateSession(cfg.Label, info, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Printf("Recording session %d (%s) every %s", session.ID, info.CPUName, interval)

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	reading := &monitor.Reading{Cores: make([]monitor.CoreData, r.source.TotalCores())}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var samples int64
	failures := 0
	for {
		if _, err := r.source.Read(reading); err != nil {
			failures++
			r.logger.Printf("Sample failed (%d/%d): %v", failures, maxConsecutiveFailures, err)
			if failures >= maxConsecutiveFailures {
				r.finish(session, samples)
				return session, fmt.Errorf("aborting session %d after %d consecutive read failures: %w",
					session.ID, failures, err)
			}
		} else {
			failures = 0
			if err := r.store.InsertSample(session.ID, reading); err != nil {
				r.finish(session, samples)
				return session, fmt.Errorf("failed to store sample: %w", err)
			}
			samples++
		}

		select {
		case <-ctx.Done():
			r.finish(session, samples)
			r.logger.Printf("Session %d finished with %d samples", session.ID, samples)
			return session, nil
		case <-ticker.C:
		}
	}
}

func (r *Recorder) finish(session *db.Session, samples int64) {
	end := time.Now()
	session.EndTime = &end
	session.SampleCount = samples
	if err := r.store.EndSession(session.ID, end, samples); err != nil {
		r.logger.Printf("Failed to close session %d: %v", session.ID, err)
	}
}
