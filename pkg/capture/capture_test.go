package capture

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/db"
	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

type fakeSource struct {
	reads   int
	readErr error
}

func (f *fakeSource) SystemInfo() (monitor.SystemData, error) {
	return monitor.SystemData{CPUName: "AMD Ryzen Test", Cores: 8}, nil
}

func (f *fakeSource) TotalCores() int { return 8 }

func (f *fakeSource) Read(out *monitor.Reading) (int, error) {
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	out.Timestamp = time.Now()
	out.TotalCores = 8
	out.Power.SocketPower = monitor.Metric(float64(80 + f.reads))
	return len(out.Cores), nil
}

type fakeStore struct {
	session  *db.Session
	inserted int
	ended    bool
	endCount int64
}

func (f *fakeStore) CreateSession(label string, info monitor.SystemData, interval time.Duration) (*db.Session, error) {
	f.session = &db.Session{ID: 1, Label: label, CPUName: info.CPUName, StartTime: time.Now(), Interval: interval.Milliseconds()}
	return f.session, nil
}

func (f *fakeStore) InsertSample(sessionID int64, reading *monitor.Reading) error {
	f.inserted++
	return nil
}

func (f *fakeStore) EndSession(id int64, endTime time.Time, sampleCount int64) error {
	f.ended = true
	f.endCount = sampleCount
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunRecordsUntilDurationElapses(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{}
	recorder := NewRecorder(source, store, quietLogger())

	session, err := recorder.Run(context.Background(), Config{
		Label:    "stress",
		Interval: 10 * time.Millisecond,
		Duration: 105 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if session.Label != "stress" {
		t.Errorf("session label = %q", session.Label)
	}
	if !store.ended {
		t.Error("session was not closed")
	}
	// The first sample is immediate, then roughly one per tick.
	if store.inserted < 5 {
		t.Errorf("inserted %d samples, want at least 5", store.inserted)
	}
	if store.endCount != int64(store.inserted) {
		t.Errorf("final sample count %d != inserted %d", store.endCount, store.inserted)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{}
	recorder := NewRecorder(source, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := recorder.Run(ctx, Config{Interval: time.Hour}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// The immediate first sample lands even on a cancelled context.
	if store.inserted != 1 {
		t.Errorf("inserted %d samples, want 1", store.inserted)
	}
	if !store.ended {
		t.Error("session was not closed")
	}
}

func TestRunAbortsAfterRepeatedReadFailures(t *testing.T) {
	source := &fakeSource{readErr: errors.New("pm_table: read failed")}
	store := &fakeStore{}
	recorder := NewRecorder(source, store, quietLogger())

	_, err := recorder.Run(context.Background(), Config{Interval: time.Millisecond})
	if err == nil {
		t.Fatal("Run() with failing source: expected error")
	}
	if source.reads != maxConsecutiveFailures {
		t.Errorf("source read %d times, want %d", source.reads, maxConsecutiveFailures)
	}
	if store.inserted != 0 {
		t.Errorf("inserted %d samples, want 0", store.inserted)
	}
	if !store.ended {
		t.Error("session was not closed after abort")
	}
}
