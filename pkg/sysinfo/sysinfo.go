// Package sysinfo derives processor identity and core topology for the
// telemetry reader.
//
// The PM table reports telemetry for every fused core slot, including cores
// the factory disabled. Which slots are live is read from the kernel's CPU
// topology tree; the chiplet arithmetic (CCD/CCX grouping) follows from the
// Zen generation of the decoded table.
package sysinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultCPURoot is the kernel CPU topology tree.
const DefaultCPURoot = "/sys/devices/system/cpu"

// Topology describes the processor's core layout.
type Topology struct {
	// Cores is the number of fused core slots (disabled cores included).
	Cores int
	// EnabledCores is the number of live physical cores.
	EnabledCores int
	// CCDs, CCXs and CoresPerCCX describe the chiplet grouping.
	CCDs        int
	CCXs        int
	CoresPerCCX int
	// CoreDisableMap has bit i set when core slot i is fused off.
	CoreDisableMap uint32
}

// Disabled reports whether core slot i is fused off.
func (t *Topology) Disabled(i int) bool {
	return t.CoreDisableMap>>uint(i)&1 == 1
}

// Option configures topology reading.
type Option func(*options)

type options struct {
	cpuRoot string
}

// WithCPURoot overrides the CPU topology tree root. Used by tests.
func WithCPURoot(root string) Option {
	return func(o *options) { o.cpuRoot = root }
}

// CPUName returns the processor's marketing name.
func CPUName() (string, error) {
	info, err := cpu.Info()
	if err != nil {
		return "", fmt.Errorf("failed to read CPU info: %w", err)
	}
	if len(info) == 0 {
		return "", fmt.Errorf("no CPU info available")
	}
	return strings.TrimSpace(info[0].ModelName), nil
}

// ReadTopology builds the core topology for a processor whose PM table
// carries maxCores core slots of the given Zen generation.
func ReadTopology(zenVersion, maxCores int, opts ...Option) (*Topology, error) {
	o := options{cpuRoot: DefaultCPURoot}
	for _, opt := range opts {
		opt(&o)
	}

	coreIDs, err := onlineCoreIDs(o.cpuRoot)
	if err != nil {
		return nil, err
	}

	topo := &Topology{
		Cores:        maxCores,
		EnabledCores: len(coreIDs),
	}
	for i := 0; i < maxCores && i < 32; i++ {
		if !coreIDs[i] {
			topo.CoreDisableMap |= 1 << uint(i)
		}
	}

	fillGrouping(topo, zenVersion)
	return topo, nil
}

// DeriveTopology builds a topology from an explicit disable map, without
// touching the system. Used when the caller already knows the fuse state.
func DeriveTopology(zenVersion, maxCores int, disableMap uint32) *Topology {
	topo := &Topology{
		Cores:          maxCores,
		CoreDisableMap: disableMap,
	}
	for i := 0; i < maxCores && i < 32; i++ {
		if disableMap>>uint(i)&1 == 0 {
			topo.EnabledCores++
		}
	}
	fillGrouping(topo, zenVersion)
	return topo
}

// fillGrouping computes the chiplet arithmetic. Zen 1/2 pack four cores
// per CCX and two CCX per CCD; Zen 3 merged each CCD into a single
// eight-core CCX.
func fillGrouping(topo *Topology, zenVersion int) {
	ccxPerCCD := 2
	topo.CoresPerCCX = 4
	if zenVersion >= 3 {
		ccxPerCCD = 1
		topo.CoresPerCCX = 8
	}

	topo.CCXs = topo.Cores / topo.CoresPerCCX
	if topo.CCXs < 1 {
		topo.CCXs = 1
	}
	topo.CCDs = topo.CCXs / ccxPerCCD
	if topo.CCDs < 1 {
		topo.CCDs = 1
	}
}

// onlineCoreIDs returns the set of physical core IDs with at least one
// online logical CPU.
func onlineCoreIDs(cpuRoot string) (map[int]bool, error) {
	entries, err := os.ReadDir(cpuRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read CPU topology tree: %w", err)
	}

	coreIDs := make(map[int]bool)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "cpu") {
			continue
		}
		if _, err := strconv.Atoi(name[3:]); err != nil {
			continue
		}

		cpuDir := filepath.Join(cpuRoot, name)
		if !cpuOnline(cpuDir) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(cpuDir, "topology", "core_id")) // #nosec G304 -- path is rooted at the kernel topology tree
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		coreIDs[id] = true
	}

	if len(coreIDs) == 0 {
		return nil, fmt.Errorf("no online cores found under %s", cpuRoot)
	}
	return coreIDs, nil
}

// cpuOnline reports whether a logical CPU is online. cpu0 has no online
// attribute and is always online.
func cpuOnline(cpuDir string) bool {
	data, err := os.ReadFile(filepath.Join(cpuDir, "online")) // #nosec G304 -- path is rooted at the kernel topology tree
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(data)) == "1"
}
