package agent

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ryzenmon/ryzenmon/pkg/monitor"
)

// SysInfo combines processor identity with host facts
type SysInfo struct {
	Timestamp time.Time          `json:"timestamp"`
	Host      HostInfo           `json:"host"`
	Memory    MemoryInfo         `json:"memory"`
	Processor monitor.SystemData `json:"processor"`
}

// HostInfo contains host information
type HostInfo struct {
	Hostname        string `json:"hostname"`
	Uptime          uint64 `json:"uptime"`
	BootTime        uint64 `json:"boot_time"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Architecture    string `json:"architecture"`
}

// MemoryInfo contains memory information
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	Free        uint64  `json:"free"`
}

// sysinfoHandler returns processor identity and host facts as JSON
func (s *Server) sysinfoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	processor, err := s.source.SystemInfo()
	if err != nil {
		http.Error(w, "Failed to read system info", http.StatusInternalServerError)
		return
	}

	info := SysInfo{
		Timestamp: time.Now(),
		Processor: processor,
	}

	// Get host info
	if hostInfo, err := host.Info(); err == nil {
		info.Host = HostInfo{
			Hostname:        hostInfo.Hostname,
			Uptime:          hostInfo.Uptime,
			BootTime:        hostInfo.BootTime,
			OS:              hostInfo.OS,
			Platform:        hostInfo.Platform,
			PlatformVersion: hostInfo.PlatformVersion,
			KernelVersion:   hostInfo.KernelVersion,
			Architecture:    runtime.GOARCH,
		}
	}

	// Get memory info
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.Memory = MemoryInfo{
			Total:       vmStat.Total,
			Available:   vmStat.Available,
			Used:        vmStat.Used,
			UsedPercent: vmStat.UsedPercent,
			Free:        vmStat.Free,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// telemetryHandler returns one live reading as JSON
func (s *Server) telemetryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	_, err := s.source.Read(s.reading)
	if err != nil {
		s.mu.Unlock()
		s.logger.Printf("Telemetry read failed: %v", err)
		http.Error(w, "Failed to read telemetry", http.StatusServiceUnavailable)
		return
	}

	// Encode while holding the lock; the reading buffer is shared.
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(s.reading)
	s.mu.Unlock()

	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
