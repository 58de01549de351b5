// Package monitor reads live SMU telemetry and flattens it into plain data
// structs for CLI, recording and remote consumers.
//
// A Monitor is an explicit handle: construction acquires the SMU driver and
// resolves the PM-table layout, Close releases the driver. The package never
// logs and never retries; every failure is reported through the returned
// error and retry policy belongs to the caller. A Monitor is not safe for
// concurrent use.
package monitor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/pmtable"
	"github.com/ryzenmon/ryzenmon/pkg/smu"
	"github.com/ryzenmon/ryzenmon/pkg/sysinfo"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed
	// Monitor.
	ErrClosed = errors.New("monitor: closed")

	// ErrUnknownTableVersion indicates the SMU reports a PM-table format
	// this build cannot decode. Retrying cannot succeed.
	ErrUnknownTableVersion = errors.New("monitor: unknown PM table version")

	// ErrReadFailed wraps a transient hardware read failure. Callers may
	// retry at their own pace.
	ErrReadFailed = errors.New("monitor: PM table read failed")
)

// Cores reporting less than this C0 residency are flagged sleeping.
const sleepC0Threshold = 6.0

// deepSleepVoltage is the effective core voltage in the CC6 sleep state.
const deepSleepVoltage = 0.2

// smuClient is the slice of the SMU driver interface the monitor uses.
// pkg/smu provides the real implementation; tests substitute fakes.
type smuClient interface {
	DriverVersion() string
	FirmwareVersion() string
	InterfaceVersion() int
	Codename() smu.Codename
	PMTableVersion() uint32
	PMTableSize() int
	PMTableSupported() bool
	ReadPMTable([]byte) error
	Close() error
}

// Monitor is a handle to the telemetry stack.
type Monitor struct {
	smu    smuClient
	layout *pmtable.Layout
	topo   *sysinfo.Topology

	cpuName string
	buf     []byte
	closed  bool
}

// Option configures Monitor construction.
type Option func(*config)

type config struct {
	sysfsRoot string
	cpuRoot   string

	// test seams
	client  smuClient
	topo    *sysinfo.Topology
	cpuName string
}

// WithSysfsRoot overrides the SMU driver sysfs root.
func WithSysfsRoot(root string) Option {
	return func(c *config) { c.sysfsRoot = root }
}

// WithCPURoot overrides the kernel CPU topology root.
func WithCPURoot(root string) Option {
	return func(c *config) { c.cpuRoot = root }
}

func withClient(client smuClient) Option {
	return func(c *config) { c.client = client }
}

func withTopology(topo *sysinfo.Topology) Option {
	return func(c *config) { c.topo = topo }
}

func withCPUName(name string) Option {
	return func(c *config) { c.cpuName = name }
}

// New acquires the SMU driver and prepares the monitor. On any failure the
// driver handle is released before returning. The scratch buffer for PM
// table snapshots is allocated once here, so Read performs no allocation.
func New(opts ...Option) (*Monitor, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	client := cfg.client
	if client == nil {
		smuOpts := []smu.Option{}
		if cfg.sysfsRoot != "" {
			smuOpts = append(smuOpts, smu.WithSysfsRoot(cfg.sysfsRoot))
		}
		var err error
		client, err = smu.Open(smuOpts...)
		if err != nil {
			return nil, err
		}
	}

	if !client.PMTableSupported() {
		_ = client.Close()
		return nil, smu.ErrPMTableUnsupported
	}

	layout, ok := pmtable.LayoutFor(client.PMTableVersion())
	if !ok {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %#x", ErrUnknownTableVersion, client.PMTableVersion())
	}

	topo := cfg.topo
	if topo == nil {
		var err error
		sysOpts := []sysinfo.Option{}
		if cfg.cpuRoot != "" {
			sysOpts = append(sysOpts, sysinfo.WithCPURoot(cfg.cpuRoot))
		}
		topo, err = sysinfo.ReadTopology(layout.ZenVersion, layout.MaxCores, sysOpts...)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to read core topology: %w", err)
		}
	}

	cpuName := cfg.cpuName
	if cpuName == "" {
		// Best effort: telemetry still works without the marketing name.
		cpuName, _ = sysinfo.CPUName()
	}

	size := client.PMTableSize()
	if size < layout.MinSize() {
		size = layout.MinSize()
	}

	return &Monitor{
		smu:     client,
		layout:  layout,
		topo:    topo,
		cpuName: cpuName,
		buf:     make([]byte, size),
	}, nil
}

// Close releases the SMU driver handle. It is idempotent.
func (m *Monitor) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.smu.Close()
}

// TableVersion returns the PM-table format tag in use.
func (m *Monitor) TableVersion() uint32 {
	return m.layout.Version
}

// TotalCores returns the number of core slots the PM table carries.
func (m *Monitor) TotalCores() int {
	return m.layout.MaxCores
}

// SystemInfo returns processor identity and topology.
func (m *Monitor) SystemInfo() (SystemData, error) {
	if m.closed {
		return SystemData{}, ErrClosed
	}
	return SystemData{
		CPUName:          m.cpuName,
		Codename:         m.smu.Codename().String(),
		SMUFWVersion:     m.smu.FirmwareVersion(),
		DriverVersion:    m.smu.DriverVersion(),
		InterfaceVersion: m.smu.InterfaceVersion(),
		PMTableVersion:   m.layout.Version,
		Cores:            m.topo.Cores,
		CCDs:             m.topo.CCDs,
		CCXs:             m.topo.CCXs,
		CoresPerCCX:      m.topo.CoresPerCCX,
		EnabledCores:     m.topo.EnabledCores,
	}, nil
}

// Read takes one telemetry snapshot and fills the caller-owned Reading.
// At most len(out.Cores) core entries are written; the return value is the
// number written and out.TotalCores reports the true slot count. Aggregate
// statistics always cover every enabled core slot, truncated or not.
func (m *Monitor) Read(out *Reading) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}

	if err := m.smu.ReadPMTable(m.buf); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	table, err := m.layout.Decode(m.buf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	out.Timestamp = time.Now()
	out.TotalCores = m.layout.MaxCores

	written, totalUsage := m.fillCores(table, out)
	m.fillConstraints(table, out, totalUsage)
	m.fillMemory(table, out)
	m.fillPower(table, out)
	m.fillGraphics(table, out)

	return written, nil
}

// averageVoltage corrects the VRM telemetry voltage for time the whole
// package spent in C6, where the rail reads the deep-sleep floor instead
// of the running voltage. Tables without a package C6 counter report the
// telemetry voltage as-is.
func averageVoltage(table *pmtable.Table) float64 {
	telemetry := float64(table.Value(pmtable.FieldCPUTelemetryVoltage))
	if !table.Has(pmtable.FieldPC6) {
		return telemetry
	}
	packageSleep := float64(table.Value(pmtable.FieldPC6)) / 100
	return (telemetry - deepSleepVoltage*packageSleep) / (1 - packageSleep)
}

func (m *Monitor) fillCores(table *pmtable.Table, out *Reading) (written int, totalUsage float64) {
	avgVoltage := averageVoltage(table)

	var (
		peakFreq, peakTemp, peakVoltage float64
		totalVoltage, totalPower        float64
		totalCC6                        float64
	)

	for i := 0; i < m.layout.MaxCores; i++ {
		disabled := m.topo.Disabled(i)

		freq := float64(table.CoreValue(pmtable.CoreFreqEff, i)) * 1000
		power := float64(table.CoreValue(pmtable.CorePower, i))
		temp := float64(table.CoreValue(pmtable.CoreTemp, i))
		c0 := float64(table.CoreValue(pmtable.CoreC0, i))
		cc1 := float64(table.CoreValue(pmtable.CoreCC1, i))
		cc6 := float64(table.CoreValue(pmtable.CoreCC6, i))

		// A sleeping core's rail reads the package average; interpolate
		// towards the deep-sleep floor by its own C6 residency.
		coreSleep := cc6 / 100
		voltage := (1-coreSleep)*avgVoltage + deepSleepVoltage*coreSleep

		if i < len(out.Cores) {
			out.Cores[i] = CoreData{
				CoreNum:   i,
				Frequency: Metric(freq),
				Power:     Metric(power),
				Voltage:   Metric(voltage),
				Temp:      Metric(temp),
				C0:        Metric(c0),
				CC1:       Metric(cc1),
				CC6:       Metric(cc6),
				Disabled:  disabled,
				Sleeping:  c0 < sleepC0Threshold,
			}
			written++
		}

		if disabled {
			continue
		}
		if freq > peakFreq {
			peakFreq = freq
		}
		if temp > peakTemp {
			peakTemp = temp
		}
		if voltage > peakVoltage {
			peakVoltage = voltage
		}
		totalVoltage += voltage
		totalPower += power
		totalUsage += c0
		totalCC6 += cc6
	}

	enabled := m.topo.EnabledCores
	stats := &out.Stats
	stats.PeakCoreFrequency = Metric(peakFreq)
	stats.PeakCoreTemp = Metric(peakTemp)
	stats.PeakCoreVoltage = Metric(peakVoltage)
	stats.AvgCoreVoltage = Metric(totalVoltage / float64(enabled))
	stats.AvgCoreCC6 = Metric(totalCC6 / float64(enabled))
	stats.TotalCorePower = Metric(totalPower)
	stats.PeakCoreVoltageSMU = Metric(table.Value(pmtable.FieldCPUTelemetryVoltage))
	if table.Has(pmtable.FieldPC6) {
		stats.PackageCC6 = Metric(table.Value(pmtable.FieldPC6))
	} else {
		stats.PackageCC6 = Metric(math.NaN())
	}

	out.Power.TotalCorePower = stats.TotalCorePower

	return written, totalUsage
}

func (m *Monitor) fillConstraints(table *pmtable.Table, out *Reading, totalUsage float64) {
	c := &out.Constraints

	// The raw EDC reading floors at the sustainable current; scale it by
	// average core utilization and never report below the TDC reading.
	edc := float64(table.Value(pmtable.FieldEDCValue)) *
		(totalUsage / float64(m.topo.Cores) / 100)
	if tdc := float64(table.Value(pmtable.FieldTDCValue)); edc < tdc {
		edc = tdc
	}

	c.PeakTemp = Metric(table.Value(pmtable.FieldPeakTemp))
	c.SoCTemp = Metric(table.Value(pmtable.FieldSoCTemp))
	c.GfxTemp = Metric(table.Value(pmtable.FieldGfxTemp))
	c.VIDValue = Metric(table.Value(pmtable.FieldVIDValue))
	c.VIDLimit = Metric(table.Value(pmtable.FieldVIDLimit))
	c.PPTValue = Metric(table.Value(pmtable.FieldPPTValue))
	c.PPTLimit = Metric(table.Value(pmtable.FieldPPTLimit))
	c.PPTAPUValue = Metric(table.Value(pmtable.FieldPPTValueAPU))
	c.PPTAPULimit = Metric(table.Value(pmtable.FieldPPTLimitAPU))
	c.TDCValue = Metric(table.Value(pmtable.FieldTDCValue))
	c.TDCLimit = Metric(table.Value(pmtable.FieldTDCLimit))
	c.TDCActual = Metric(table.Value(pmtable.FieldTDCActual))
	c.TDCSoCValue = Metric(table.Value(pmtable.FieldTDCValueSoC))
	c.TDCSoCLimit = Metric(table.Value(pmtable.FieldTDCLimitSoC))
	c.EDCValue = Metric(edc)
	c.EDCLimit = Metric(table.Value(pmtable.FieldEDCLimit))
	c.EDCSoCValue = Metric(table.Value(pmtable.FieldEDCValueSoC))
	c.EDCSoCLimit = Metric(table.Value(pmtable.FieldEDCLimitSoC))
	c.THMValue = Metric(table.Value(pmtable.FieldTHMValue))
	c.THMLimit = Metric(table.Value(pmtable.FieldTHMLimit))
	c.THMSoCValue = Metric(table.Value(pmtable.FieldTHMValueSoC))
	c.THMSoCLimit = Metric(table.Value(pmtable.FieldTHMLimitSoC))
	c.THMGfxValue = Metric(table.Value(pmtable.FieldTHMValueGfx))
	c.THMGfxLimit = Metric(table.Value(pmtable.FieldTHMLimitGfx))
	c.FITValue = Metric(table.Value(pmtable.FieldFITValue))
	c.FITLimit = Metric(table.Value(pmtable.FieldFITLimit))
}

func (m *Monitor) fillMemory(table *pmtable.Table, out *Reading) {
	mem := &out.Memory
	mem.FCLKFreq = Metric(table.Value(pmtable.FieldFCLKFreq))
	mem.FCLKFreqEff = Metric(table.Value(pmtable.FieldFCLKFreqEff))
	mem.UCLKFreq = Metric(table.Value(pmtable.FieldUCLKFreq))
	mem.MEMCLKFreq = Metric(table.Value(pmtable.FieldMEMCLKFreq))
	mem.VVDDM = Metric(table.Value(pmtable.FieldVVDDM))
	mem.VVDDP = Metric(table.Value(pmtable.FieldVVDDP))
	mem.VVDDG = Metric(table.Value(pmtable.FieldVVDDG))
	mem.VVDDGIOD = Metric(table.Value(pmtable.FieldVVDDGIOD))
	mem.VVDDGCCD = Metric(table.Value(pmtable.FieldVVDDGCCD))
	mem.CoupledMode = mem.UCLKFreq.Valid() && mem.UCLKFreq == mem.MEMCLKFreq
}

func (m *Monitor) fillPower(table *pmtable.Table, out *Reading) {
	p := &out.Power
	p.VDDCRSoCPower = Metric(table.Value(pmtable.FieldVDDCRSoCPower))
	p.IOVDDCRSoCPower = Metric(table.Value(pmtable.FieldIOVDDCRSoCPower))
	p.GMI2VDDGPower = Metric(table.Value(pmtable.FieldGMI2VDDGPower))
	p.ROCPower = Metric(table.Value(pmtable.FieldROCPower))

	// Missing L3 slots contribute zero to the sums, not NaN.
	var l3Logic, l3VDDM float64
	for i := 0; i < m.layout.MaxL3; i++ {
		l3Logic += zeroIfNaN(float64(table.L3Value(pmtable.L3LogicPower, i)))
		l3VDDM += zeroIfNaN(float64(table.L3Value(pmtable.L3VDDMPower, i)))
	}
	p.L3LogicPower = Metric(l3Logic)
	p.L3VDDMPower = Metric(l3VDDM)

	p.VDDIOMemPower = Metric(table.Value(pmtable.FieldVDDIOMemPower))
	p.IODVDDIOMemPower = Metric(table.Value(pmtable.FieldIODVDDIOMemPower))
	p.DDRVDDPPower = Metric(table.Value(pmtable.FieldDDRVDDPPower))
	p.DDRPhyPower = Metric(table.Value(pmtable.FieldDDRPhyPower))
	p.VDD18Power = Metric(table.Value(pmtable.FieldVDD18Power))
	p.IODisplayPower = Metric(table.Value(pmtable.FieldIODisplayPower))
	p.IOUSBPower = Metric(table.Value(pmtable.FieldIOUSBPower))
	p.SocketPower = Metric(table.Value(pmtable.FieldSocketPower))
	p.PackagePower = Metric(table.Value(pmtable.FieldPackagePower))
	p.VDDCRCPUPower = Metric(table.Value(pmtable.FieldVDDCRCPUPower))
	p.SoCTelemetryVoltage = Metric(table.Value(pmtable.FieldSoCTelemetryVoltage))
	p.SoCTelemetryCurrent = Metric(table.Value(pmtable.FieldSoCTelemetryCurrent))
	p.SoCTelemetryPower = Metric(table.Value(pmtable.FieldSoCTelemetryPower))
	p.CPUTelemetryVoltage = Metric(table.Value(pmtable.FieldCPUTelemetryVoltage))
	p.CPUTelemetryCurrent = Metric(table.Value(pmtable.FieldCPUTelemetryCurrent))
	p.CPUTelemetryPower = Metric(table.Value(pmtable.FieldCPUTelemetryPower))
}

func (m *Monitor) fillGraphics(table *pmtable.Table, out *Reading) {
	if !m.layout.HasGraphics {
		out.Graphics = GraphicsData{}
		return
	}
	g := &out.Graphics
	g.Supported = true
	g.GfxVoltage = Metric(table.Value(pmtable.FieldGfxVoltage))
	g.ROCPower = Metric(table.Value(pmtable.FieldROCPower))
	g.GfxTemp = Metric(table.Value(pmtable.FieldGfxTemp))
	g.GfxFreq = Metric(table.Value(pmtable.FieldGfxFreq))
	g.GfxFreqEff = Metric(table.Value(pmtable.FieldGfxFreqEff))
	g.GfxBusy = Metric(table.Value(pmtable.FieldGfxBusy))
	g.GfxEDCLimit = Metric(table.Value(pmtable.FieldGfxEDCLimit))
	g.GfxEDCResidency = Metric(table.Value(pmtable.FieldGfxEDCResidency))
	g.DisplayCount = Metric(table.Value(pmtable.FieldDisplayCount))
	g.FPS = Metric(table.Value(pmtable.FieldFPS))
	g.DGPUPower = Metric(table.Value(pmtable.FieldDGPUPower))
	g.DGPUFreqTarget = Metric(table.Value(pmtable.FieldDGPUFreqTarget))
	g.DGPUGfxBusy = Metric(table.Value(pmtable.FieldDGPUGfxBusy))
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
