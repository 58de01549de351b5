package monitor

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/ryzenmon/ryzenmon/pkg/pmtable"
	"github.com/ryzenmon/ryzenmon/pkg/smu"
	"github.com/ryzenmon/ryzenmon/pkg/sysinfo"
)

type fakeSMU struct {
	version uint32
	table   []byte
	readErr error
	closed  bool
}

func (f *fakeSMU) DriverVersion() string   { return "0.19" }
func (f *fakeSMU) FirmwareVersion() string { return "56.46.54" }
func (f *fakeSMU) InterfaceVersion() int   { return 11 }
func (f *fakeSMU) Codename() smu.Codename  { return smu.CodenameVermeer }
func (f *fakeSMU) PMTableVersion() uint32  { return f.version }
func (f *fakeSMU) PMTableSize() int        { return len(f.table) }
func (f *fakeSMU) PMTableSupported() bool  { return len(f.table) > 0 }
func (f *fakeSMU) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSMU) ReadPMTable(buf []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	copy(buf, f.table)
	return nil
}

func setField(t *testing.T, l *pmtable.Layout, buf []byte, f pmtable.Field, v float32) {
	t.Helper()
	off, ok := l.Offset(f)
	if !ok {
		t.Fatalf("layout %#x does not carry field %q", l.Version, f)
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func setCore(t *testing.T, l *pmtable.Layout, buf []byte, f pmtable.CoreField, i int, v float32) {
	t.Helper()
	off, ok := l.CoreOffset(f, i)
	if !ok {
		t.Fatalf("layout %#x does not carry core field %q[%d]", l.Version, f, i)
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

// newFake builds a monitor over a synthetic PM table with every core awake
// at moderate load, so individual tests only adjust what they assert on.
func newFake(t *testing.T, l *pmtable.Layout, disableMap uint32, edit func(buf []byte)) (*Monitor, *fakeSMU) {
	t.Helper()

	buf := make([]byte, l.MinSize())
	setField(t, l, buf, pmtable.FieldCPUTelemetryVoltage, 1.2)
	for i := 0; i < l.MaxCores; i++ {
		setCore(t, l, buf, pmtable.CoreC0, i, 50)
		setCore(t, l, buf, pmtable.CoreFreqEff, i, 4.0)
		setCore(t, l, buf, pmtable.CoreTemp, i, 60)
		setCore(t, l, buf, pmtable.CorePower, i, 5)
	}
	if edit != nil {
		edit(buf)
	}

	fake := &fakeSMU{version: l.Version, table: buf}
	m, err := New(
		withClient(fake),
		withTopology(sysinfo.DeriveTopology(l.ZenVersion, l.MaxCores, disableMap)),
		withCPUName("AMD Ryzen Test"),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, fake
}

func readInto(t *testing.T, m *Monitor, cores int) (*Reading, int) {
	t.Helper()
	out := &Reading{Cores: make([]CoreData, cores)}
	n, err := m.Read(out)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	return out, n
}

func TestNewRejectsUnknownTableVersion(t *testing.T) {
	fake := &fakeSMU{version: 0xdeadbeef, table: make([]byte, 4096)}
	_, err := New(withClient(fake))
	if !errors.Is(err, ErrUnknownTableVersion) {
		t.Fatalf("New() error = %v, want ErrUnknownTableVersion", err)
	}
	if !fake.closed {
		t.Error("driver handle not released after failed construction")
	}
}

func TestNewRejectsUnsupportedPMTable(t *testing.T) {
	fake := &fakeSMU{version: 0x380904}
	_, err := New(withClient(fake))
	if !errors.Is(err, smu.ErrPMTableUnsupported) {
		t.Fatalf("New() error = %v, want ErrPMTableUnsupported", err)
	}
	if !fake.closed {
		t.Error("driver handle not released after failed construction")
	}
}

func TestCloseIsIdempotentAndFailsFurtherUse(t *testing.T) {
	m, fake := newFake(t, pmtable.LayoutVermeer, 0, nil)

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if !fake.closed {
		t.Error("driver handle not released")
	}

	if _, err := m.Read(&Reading{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close = %v, want ErrClosed", err)
	}
	if _, err := m.SystemInfo(); !errors.Is(err, ErrClosed) {
		t.Errorf("SystemInfo() after Close = %v, want ErrClosed", err)
	}
}

func TestReadFailurePropagates(t *testing.T) {
	m, fake := newFake(t, pmtable.LayoutVermeer, 0, nil)
	fake.readErr = errors.New("pm_table: read failed")

	if _, err := m.Read(&Reading{}); !errors.Is(err, ErrReadFailed) {
		t.Errorf("Read() = %v, want ErrReadFailed", err)
	}
}

func TestSystemInfo(t *testing.T) {
	m, _ := newFake(t, pmtable.LayoutVermeer, 0xC0C0, nil)

	info, err := m.SystemInfo()
	if err != nil {
		t.Fatalf("SystemInfo() error: %v", err)
	}
	if info.CPUName != "AMD Ryzen Test" {
		t.Errorf("CPUName = %q", info.CPUName)
	}
	if info.Codename != "Vermeer" {
		t.Errorf("Codename = %q, want Vermeer", info.Codename)
	}
	if info.PMTableVersion != 0x380904 {
		t.Errorf("PMTableVersion = %#x", info.PMTableVersion)
	}
	if info.Cores != 16 || info.EnabledCores != 12 {
		t.Errorf("Cores = %d EnabledCores = %d, want 16/12", info.Cores, info.EnabledCores)
	}
	if info.CCDs != 2 || info.CoresPerCCX != 8 {
		t.Errorf("CCDs = %d CoresPerCCX = %d, want 2/8", info.CCDs, info.CoresPerCCX)
	}
}

func TestReadTruncatesToCallerStorage(t *testing.T) {
	m, _ := newFake(t, pmtable.LayoutVermeer, 0, nil)

	out, n := readInto(t, m, 4)
	if n != 4 {
		t.Errorf("Read() wrote %d cores, want 4", n)
	}
	if out.TotalCores != 16 {
		t.Errorf("TotalCores = %d, want 16", out.TotalCores)
	}
	for i, c := range out.Cores {
		if c.CoreNum != i {
			t.Errorf("Cores[%d].CoreNum = %d", i, c.CoreNum)
		}
	}

	// With enough storage every slot is written.
	out, n = readInto(t, m, 32)
	if n != 16 {
		t.Errorf("Read() wrote %d cores, want 16", n)
	}
	_ = out
}

func TestSleepingThresholdBoundary(t *testing.T) {
	l := pmtable.LayoutVermeer
	m, _ := newFake(t, l, 0, func(buf []byte) {
		setCore(t, l, buf, pmtable.CoreC0, 0, 5.999)
		setCore(t, l, buf, pmtable.CoreC0, 1, 6.0)
		setCore(t, l, buf, pmtable.CoreC0, 2, 0)
	})

	out, _ := readInto(t, m, 16)
	if !out.Cores[0].Sleeping {
		t.Error("core at 5.999% C0 should be sleeping")
	}
	if out.Cores[1].Sleeping {
		t.Error("core at exactly 6% C0 should not be sleeping")
	}
	if !out.Cores[2].Sleeping {
		t.Error("idle core should be sleeping")
	}
}

func TestDisabledCoresExcludedFromAggregates(t *testing.T) {
	l := pmtable.LayoutVermeer
	// Slot 15 is fused off but its table slot carries a garbage outlier.
	m, _ := newFake(t, l, 1<<15, func(buf []byte) {
		setCore(t, l, buf, pmtable.CoreTemp, 15, 999)
		setCore(t, l, buf, pmtable.CoreFreqEff, 15, 9.9)
		setCore(t, l, buf, pmtable.CoreTemp, 3, 72.5)
	})

	out, _ := readInto(t, m, 16)
	if !out.Cores[15].Disabled {
		t.Error("fused-off core not flagged disabled")
	}
	if got := float64(out.Stats.PeakCoreTemp); got != 72.5 {
		t.Errorf("PeakCoreTemp = %v, want 72.5 (disabled outlier excluded)", got)
	}
	if got := float64(out.Stats.PeakCoreFrequency); got != 4000 {
		t.Errorf("PeakCoreFrequency = %v, want 4000", got)
	}
	// Total power covers the 15 enabled cores only.
	if got := float64(out.Stats.TotalCorePower); math.Abs(got-75) > 1e-9 {
		t.Errorf("TotalCorePower = %v, want 75", got)
	}
}

func TestEffectiveEDCFloorsAtTDC(t *testing.T) {
	l := pmtable.LayoutCezanne
	m, _ := newFake(t, l, 0, func(buf []byte) {
		// 8 cores at 50% C0: scaled EDC = 40 * 0.5 = 20, floored at TDC 60.
		setField(t, l, buf, pmtable.FieldEDCValue, 40)
		setField(t, l, buf, pmtable.FieldTDCValue, 60)
	})

	out, _ := readInto(t, m, 8)
	if got := float64(out.Constraints.EDCValue); got != 60 {
		t.Errorf("EDCValue = %v, want 60 (TDC floor)", got)
	}
}

func TestEffectiveEDCScalesWithUsage(t *testing.T) {
	l := pmtable.LayoutCezanne
	m, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldEDCValue, 200)
		setField(t, l, buf, pmtable.FieldTDCValue, 60)
	})

	out, _ := readInto(t, m, 8)
	// 50% average utilization scales the 200 A reading to 100 A.
	if got := float64(out.Constraints.EDCValue); math.Abs(got-100) > 1e-6 {
		t.Errorf("EDCValue = %v, want 100", got)
	}
}

func TestVoltageSleepCorrection(t *testing.T) {
	l := pmtable.LayoutVermeer
	m, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldCPUTelemetryVoltage, 1.0)
		setField(t, l, buf, pmtable.FieldPC6, 50)
		setCore(t, l, buf, pmtable.CoreCC6, 0, 0)
		setCore(t, l, buf, pmtable.CoreCC6, 1, 100)
	})

	out, _ := readInto(t, m, 16)

	// Package average corrected for 50% C6: (1.0 - 0.2*0.5) / 0.5 = 1.8.
	awake := float64(out.Cores[0].Voltage)
	if math.Abs(awake-1.8) > 1e-6 {
		t.Errorf("awake core voltage = %v, want 1.8", awake)
	}
	// A fully sleeping core reads the deep-sleep floor.
	asleep := float64(out.Cores[1].Voltage)
	if math.Abs(asleep-0.2) > 1e-6 {
		t.Errorf("sleeping core voltage = %v, want 0.2", asleep)
	}
}

func TestVoltageWithoutPackageC6Counter(t *testing.T) {
	l := pmtable.LayoutPicasso
	m, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldCPUTelemetryVoltage, 1.1)
	})

	out, _ := readInto(t, m, 4)
	// No pc6 counter: the telemetry voltage is used uncorrected.
	if got := float64(out.Cores[0].Voltage); math.Abs(got-1.1) > 1e-6 {
		t.Errorf("core voltage = %v, want 1.1", got)
	}
	if out.Stats.PackageCC6.Valid() {
		t.Error("PackageCC6 should be absent on tables without a pc6 counter")
	}
}

func TestMemoryCoupledMode(t *testing.T) {
	l := pmtable.LayoutVermeer
	m, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldUCLKFreq, 1800)
		setField(t, l, buf, pmtable.FieldMEMCLKFreq, 1800)
	})
	out, _ := readInto(t, m, 16)
	if !out.Memory.CoupledMode {
		t.Error("UCLK == MEMCLK should report coupled mode")
	}

	m2, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldUCLKFreq, 900)
		setField(t, l, buf, pmtable.FieldMEMCLKFreq, 1800)
	})
	out2, _ := readInto(t, m2, 16)
	if out2.Memory.CoupledMode {
		t.Error("UCLK != MEMCLK should not report coupled mode")
	}
}

func TestGraphicsGatedByGeneration(t *testing.T) {
	m, _ := newFake(t, pmtable.LayoutVermeer, 0, nil)
	out, _ := readInto(t, m, 16)
	if out.Graphics.Supported {
		t.Error("chiplet part should not report graphics")
	}

	l := pmtable.LayoutCezanne
	apu, _ := newFake(t, l, 0, func(buf []byte) {
		setField(t, l, buf, pmtable.FieldGfxFreq, 2100)
		setField(t, l, buf, pmtable.FieldGfxBusy, 33)
	})
	out2, _ := readInto(t, apu, 8)
	if !out2.Graphics.Supported {
		t.Fatal("APU part should report graphics")
	}
	if got := float64(out2.Graphics.GfxFreq); got != 2100 {
		t.Errorf("GfxFreq = %v, want 2100", got)
	}
	if got := float64(out2.Graphics.GfxBusy); got != 33 {
		t.Errorf("GfxBusy = %v, want 33", got)
	}
}

func TestMetricJSONNullRoundtrip(t *testing.T) {
	m := Metric(math.NaN())
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("MarshalJSON(NaN) = %s, want null", data)
	}

	var back Metric
	if err := back.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatal(err)
	}
	if back.Valid() {
		t.Error("null should unmarshal to an invalid metric")
	}

	if err := back.UnmarshalJSON([]byte("4.25")); err != nil {
		t.Fatal(err)
	}
	if float64(back) != 4.25 {
		t.Errorf("UnmarshalJSON(4.25) = %v", float64(back))
	}
}
