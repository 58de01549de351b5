package sysinfo

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// writeCPUTree builds a fake /sys/devices/system/cpu tree. coreIDs maps
// logical CPU number to physical core ID; offline lists logical CPUs that
// are present but offline.
func writeCPUTree(t *testing.T, coreIDs map[int]int, offline map[int]bool) string {
	t.Helper()
	root := t.TempDir()
	for cpuNum, coreID := range coreIDs {
		dir := filepath.Join(root, "cpu"+strconv.Itoa(cpuNum), "topology")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "core_id"), []byte(strconv.Itoa(coreID)+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if cpuNum != 0 {
			online := "1"
			if offline[cpuNum] {
				online = "0"
			}
			if err := os.WriteFile(filepath.Join(root, "cpu"+strconv.Itoa(cpuNum), "online"), []byte(online+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func TestReadTopologyFullyEnabled(t *testing.T) {
	// 6 physical cores with SMT: logical CPUs 0-5 and 6-11 share cores 0-5.
	coreIDs := make(map[int]int)
	for i := 0; i < 6; i++ {
		coreIDs[i] = i
		coreIDs[i+6] = i
	}
	root := writeCPUTree(t, coreIDs, nil)

	topo, err := ReadTopology(2, 8, WithCPURoot(root))
	if err != nil {
		t.Fatalf("ReadTopology() error: %v", err)
	}

	if topo.EnabledCores != 6 {
		t.Errorf("EnabledCores = %d, want 6", topo.EnabledCores)
	}
	if topo.Cores != 8 {
		t.Errorf("Cores = %d, want 8", topo.Cores)
	}
	// Slots 6 and 7 are fused off.
	if topo.CoreDisableMap != 0b11000000 {
		t.Errorf("CoreDisableMap = %#b, want 0b11000000", topo.CoreDisableMap)
	}
	if topo.Disabled(0) || !topo.Disabled(6) {
		t.Error("Disabled() does not match the disable map")
	}
}

func TestReadTopologySkipsOfflineCPUs(t *testing.T) {
	coreIDs := map[int]int{0: 0, 1: 1, 2: 2, 3: 3}
	root := writeCPUTree(t, coreIDs, map[int]bool{3: true})

	topo, err := ReadTopology(1, 4, WithCPURoot(root))
	if err != nil {
		t.Fatal(err)
	}
	if topo.EnabledCores != 3 {
		t.Errorf("EnabledCores = %d, want 3", topo.EnabledCores)
	}
	if !topo.Disabled(3) {
		t.Error("offline core 3 should be reported disabled")
	}
}

func TestReadTopologyMissingTree(t *testing.T) {
	if _, err := ReadTopology(3, 16, WithCPURoot(filepath.Join(t.TempDir(), "missing"))); err == nil {
		t.Error("ReadTopology() with missing tree: expected error")
	}
}

func TestDeriveTopologyGrouping(t *testing.T) {
	tests := []struct {
		name        string
		zen         int
		maxCores    int
		disableMap  uint32
		wantEnabled int
		wantCCDs    int
		wantCCXs    int
		wantPerCCX  int
	}{
		{"vermeer 16 core", 3, 16, 0, 16, 2, 2, 8},
		{"vermeer 12 core", 3, 16, 0xC0C0, 12, 2, 2, 8},
		{"matisse 16 core", 2, 16, 0, 16, 2, 4, 4},
		{"matisse partially fused", 2, 8, 0b11001000, 5, 1, 2, 4},
		{"cezanne 8 core", 3, 8, 0, 8, 1, 1, 8},
		{"picasso 4 core", 1, 4, 0, 4, 1, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := DeriveTopology(tt.zen, tt.maxCores, tt.disableMap)
			if topo.EnabledCores != tt.wantEnabled {
				t.Errorf("EnabledCores = %d, want %d", topo.EnabledCores, tt.wantEnabled)
			}
			if topo.CCDs != tt.wantCCDs {
				t.Errorf("CCDs = %d, want %d", topo.CCDs, tt.wantCCDs)
			}
			if topo.CCXs != tt.wantCCXs {
				t.Errorf("CCXs = %d, want %d", topo.CCXs, tt.wantCCXs)
			}
			if topo.CoresPerCCX != tt.wantPerCCX {
				t.Errorf("CoresPerCCX = %d, want %d", topo.CoresPerCCX, tt.wantPerCCX)
			}
		})
	}
}
