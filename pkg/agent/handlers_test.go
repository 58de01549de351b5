package agent

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

type fakeTelemetry struct {
	readErr error
}

func (f *fakeTelemetry) SystemInfo() (monitor.SystemData, error) {
	return monitor.SystemData{
		CPUName:        "AMD Ryzen 9 5900X 12-Core Processor",
		Codename:       "Vermeer",
		PMTableVersion: 0x380904,
		Cores:          16,
		EnabledCores:   12,
	}, nil
}

func (f *fakeTelemetry) TotalCores() int { return 16 }

func (f *fakeTelemetry) Read(out *monitor.Reading) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	out.Timestamp = time.Now()
	out.TotalCores = 16
	out.Power.SocketPower = 117.5
	for i := range out.Cores {
		out.Cores[i].CoreNum = i
		out.Cores[i].Frequency = 4200
	}
	return len(out.Cores), nil
}

func testServer(t *testing.T, source Telemetry) *Server {
	t.Helper()
	return &Server{
		logger:  log.New(io.Discard, "", 0),
		source:  source,
		reading: &monitor.Reading{Cores: make([]monitor.CoreData, source.TotalCores())},
	}
}

func TestSysinfoHandler(t *testing.T) {
	server := testServer(t, &fakeTelemetry{})

	req, err := http.NewRequest("GET", "/sysinfo", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(server.sysinfoHandler).ServeHTTP(rr, req)

	// Check status code
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	// Check content type
	expected := "application/json"
	if ct := rr.Header().Get("Content-Type"); ct != expected {
		t.Errorf("handler returned wrong content type: got %v want %v",
			ct, expected)
	}

	// Parse response
	var info SysInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	// Validate response
	if info.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}

	if info.Processor.Codename != "Vermeer" {
		t.Errorf("processor codename = %q, want Vermeer", info.Processor.Codename)
	}

	if info.Processor.EnabledCores != 12 {
		t.Errorf("enabled cores = %d, want 12", info.Processor.EnabledCores)
	}
}

func TestSysinfoHandlerMethods(t *testing.T) {
	server := testServer(t, &fakeTelemetry{})

	tests := []struct {
		method     string
		wantStatus int
	}{
		{"GET", http.StatusOK},
		{"POST", http.StatusMethodNotAllowed},
		{"PUT", http.StatusMethodNotAllowed},
		{"DELETE", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, "/sysinfo", nil)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()
			http.HandlerFunc(server.sysinfoHandler).ServeHTTP(rr, req)

			if status := rr.Code; status != tt.wantStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.wantStatus)
			}
		})
	}
}

func TestTelemetryHandler(t *testing.T) {
	server := testServer(t, &fakeTelemetry{})

	req, err := http.NewRequest("GET", "/telemetry", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(server.telemetryHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	var reading monitor.Reading
	if err := json.Unmarshal(rr.Body.Bytes(), &reading); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if reading.Timestamp.IsZero() {
		t.Error("timestamp is zero")
	}

	if reading.TotalCores != 16 {
		t.Errorf("total cores = %d, want 16", reading.TotalCores)
	}

	if got := float64(reading.Power.SocketPower); got != 117.5 {
		t.Errorf("socket power = %v, want 117.5", got)
	}
}

func TestTelemetryHandlerReadFailure(t *testing.T) {
	server := testServer(t, &fakeTelemetry{readErr: errors.New("pm_table: read failed")})

	req, err := http.NewRequest("GET", "/telemetry", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(server.telemetryHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusServiceUnavailable {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(healthHandler).ServeHTTP(rr, req)

	// Check status code
	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	// Check content type
	expected := "text/plain"
	if ct := rr.Header().Get("Content-Type"); ct != expected {
		t.Errorf("handler returned wrong content type: got %v want %v",
			ct, expected)
	}

	// Check body
	expectedBody := "OK\n"
	if body := rr.Body.String(); body != expectedBody {
		t.Errorf("handler returned unexpected body: got %v want %v",
			body, expectedBody)
	}
}

func TestResponseWriter(t *testing.T) {
	// Test the responseWriter wrapper
	original := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: original, statusCode: http.StatusOK}

	// Test default status code
	if wrapped.statusCode != http.StatusOK {
		t.Errorf("default status code wrong: got %v want %v",
			wrapped.statusCode, http.StatusOK)
	}

	// Test WriteHeader
	wrapped.WriteHeader(http.StatusNotFound)
	if wrapped.statusCode != http.StatusNotFound {
		t.Errorf("status code not updated: got %v want %v",
			wrapped.statusCode, http.StatusNotFound)
	}

	// Verify it was passed through
	if original.Code != http.StatusNotFound {
		t.Errorf("status code not passed through: got %v want %v",
			original.Code, http.StatusNotFound)
	}
}
