// Package pmtable decodes SMU PM-table telemetry snapshots.
//
// A PM table is a flat little-endian float32 array whose layout varies by
// hardware generation. Each supported generation is described by a Layout
// mapping named fields to byte offsets; decoding overlays a Layout on a raw
// snapshot without copying. Fields a generation does not carry read as NaN,
// matching the optional-field convention of the upstream tables.
package pmtable

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Field names a scalar telemetry value.
type Field string

// Scalar fields. Not every layout carries every field.
const (
	FieldPPTLimit    Field = "ppt_limit"
	FieldPPTValue    Field = "ppt_value"
	FieldPPTLimitAPU Field = "ppt_limit_apu"
	FieldPPTValueAPU Field = "ppt_value_apu"
	FieldTDCLimit    Field = "tdc_limit"
	FieldTDCValue    Field = "tdc_value"
	FieldTDCActual   Field = "tdc_actual"
	FieldTDCLimitSoC Field = "tdc_limit_soc"
	FieldTDCValueSoC Field = "tdc_value_soc"
	FieldEDCLimit    Field = "edc_limit"
	FieldEDCValue    Field = "edc_value"
	FieldEDCLimitSoC Field = "edc_limit_soc"
	FieldEDCValueSoC Field = "edc_value_soc"
	FieldTHMLimit    Field = "thm_limit"
	FieldTHMValue    Field = "thm_value"
	FieldTHMLimitSoC Field = "thm_limit_soc"
	FieldTHMValueSoC Field = "thm_value_soc"
	FieldTHMLimitGfx Field = "thm_limit_gfx"
	FieldTHMValueGfx Field = "thm_value_gfx"
	FieldFITLimit    Field = "fit_limit"
	FieldFITValue    Field = "fit_value"
	FieldVIDLimit    Field = "vid_limit"
	FieldVIDValue    Field = "vid_value"

	FieldPeakTemp Field = "peak_temp"
	FieldSoCTemp  Field = "soc_temp"
	FieldGfxTemp  Field = "gfx_temp"

	FieldVDDCRCPUPower    Field = "vddcr_cpu_power"
	FieldVDDCRSoCPower    Field = "vddcr_soc_power"
	FieldIOVDDCRSoCPower  Field = "io_vddcr_soc_power"
	FieldGMI2VDDGPower    Field = "gmi2_vddg_power"
	FieldROCPower         Field = "roc_power"
	FieldVDDIOMemPower    Field = "vddio_mem_power"
	FieldIODVDDIOMemPower Field = "iod_vddio_mem_power"
	FieldDDRVDDPPower     Field = "ddr_vddp_power"
	FieldDDRPhyPower      Field = "ddr_phy_power"
	FieldVDD18Power       Field = "vdd18_power"
	FieldIODisplayPower   Field = "io_display_power"
	FieldIOUSBPower       Field = "io_usb_power"
	FieldSocketPower      Field = "socket_power"
	FieldPackagePower     Field = "package_power"

	FieldCPUTelemetryVoltage Field = "cpu_telemetry_voltage"
	FieldCPUTelemetryCurrent Field = "cpu_telemetry_current"
	FieldCPUTelemetryPower   Field = "cpu_telemetry_power"
	FieldSoCTelemetryVoltage Field = "soc_telemetry_voltage"
	FieldSoCTelemetryCurrent Field = "soc_telemetry_current"
	FieldSoCTelemetryPower   Field = "soc_telemetry_power"

	FieldFCLKFreq    Field = "fclk_freq"
	FieldFCLKFreqEff Field = "fclk_freq_eff"
	FieldUCLKFreq    Field = "uclk_freq"
	FieldMEMCLKFreq  Field = "memclk_freq"
	FieldVVDDM       Field = "v_vddm"
	FieldVVDDP       Field = "v_vddp"
	FieldVVDDG       Field = "v_vddg"
	FieldVVDDGIOD    Field = "v_vddg_iod"
	FieldVVDDGCCD    Field = "v_vddg_ccd"

	FieldPC6 Field = "pc6"

	FieldGfxVoltage      Field = "gfx_voltage"
	FieldGfxFreq         Field = "gfx_freq"
	FieldGfxFreqEff      Field = "gfx_freq_eff"
	FieldGfxBusy         Field = "gfx_busy"
	FieldGfxEDCLimit     Field = "gfx_edc_limit"
	FieldGfxEDCResidency Field = "gfx_edc_residency"
	FieldDisplayCount    Field = "display_count"
	FieldFPS             Field = "fps"
	FieldDGPUPower       Field = "dgpu_power"
	FieldDGPUFreqTarget  Field = "dgpu_freq_target"
	FieldDGPUGfxBusy     Field = "dgpu_gfx_busy"
)

// CoreField names a per-core telemetry array. Entries for core i live at
// the array's base offset plus 4*i.
type CoreField string

const (
	CorePower   CoreField = "core_power"
	CoreTemp    CoreField = "core_temp"
	CoreFreq    CoreField = "core_freq"
	CoreFreqEff CoreField = "core_freq_eff"
	CoreC0      CoreField = "core_c0"
	CoreCC1     CoreField = "core_cc1"
	CoreCC6     CoreField = "core_cc6"
)

// L3Field names a per-L3-complex telemetry array.
type L3Field string

const (
	L3LogicPower L3Field = "l3_logic_power"
	L3VDDMPower  L3Field = "l3_vddm_power"
)

// Layout describes one PM-table generation.
type Layout struct {
	// Version is the table-version tag reported by the SMU.
	Version uint32
	// ZenVersion is the core microarchitecture generation (1..3).
	ZenVersion int
	// MaxCores is the number of core slots the table carries, fused
	// (disabled) cores included.
	MaxCores int
	// MaxL3 is the number of L3 complex slots.
	MaxL3 int
	// HasGraphics reports whether the table carries iGPU telemetry.
	HasGraphics bool

	fields     map[Field]int
	coreFields map[CoreField]int
	l3Fields   map[L3Field]int

	minSize int
}

// layouts is the registry of supported table versions.
var layouts = map[uint32]*Layout{}

func register(l *Layout) *Layout {
	l.minSize = computeMinSize(l)
	layouts[l.Version] = l
	return l
}

func computeMinSize(l *Layout) int {
	size := 0
	for _, off := range l.fields {
		if end := off + 4; end > size {
			size = end
		}
	}
	for _, base := range l.coreFields {
		if end := base + 4*l.MaxCores; end > size {
			size = end
		}
	}
	for _, base := range l.l3Fields {
		if end := base + 4*l.MaxL3; end > size {
			size = end
		}
	}
	return size
}

// LayoutFor returns the layout for a table-version tag.
func LayoutFor(version uint32) (*Layout, bool) {
	l, ok := layouts[version]
	return l, ok
}

// SupportedVersions lists the registered table-version tags.
func SupportedVersions() []uint32 {
	versions := make([]uint32, 0, len(layouts))
	for v := range layouts {
		versions = append(versions, v)
	}
	return versions
}

// Has reports whether the layout carries a scalar field.
func (l *Layout) Has(f Field) bool {
	_, ok := l.fields[f]
	return ok
}

// MinSize returns the smallest snapshot length this layout can decode.
func (l *Layout) MinSize() int {
	return l.minSize
}

// Offset returns the byte offset of a scalar field within a snapshot.
func (l *Layout) Offset(f Field) (int, bool) {
	off, ok := l.fields[f]
	return off, ok
}

// CoreOffset returns the byte offset of a per-core field for core i.
func (l *Layout) CoreOffset(f CoreField, i int) (int, bool) {
	base, ok := l.coreFields[f]
	if !ok || i < 0 || i >= l.MaxCores {
		return 0, false
	}
	return base + 4*i, true
}

// L3Offset returns the byte offset of a per-L3 field for complex i.
func (l *Layout) L3Offset(f L3Field, i int) (int, bool) {
	base, ok := l.l3Fields[f]
	if !ok || i < 0 || i >= l.MaxL3 {
		return 0, false
	}
	return base + 4*i, true
}

// Decode overlays the layout on a raw snapshot. The Table references buf
// directly; the caller must not mutate buf while reading the table.
func (l *Layout) Decode(buf []byte) (*Table, error) {
	if len(buf) < l.minSize {
		return nil, fmt.Errorf("pmtable: snapshot too small for version %#x: %d < %d",
			l.Version, len(buf), l.minSize)
	}
	return &Table{layout: l, buf: buf}, nil
}

// Table is a decoded PM-table snapshot.
type Table struct {
	layout *Layout
	buf    []byte
}

// Layout returns the layout the table was decoded with.
func (t *Table) Layout() *Layout {
	return t.layout
}

var nan32 = float32(math.NaN())

// Value returns a scalar field, or NaN if the layout does not carry it.
func (t *Table) Value(f Field) float32 {
	off, ok := t.layout.fields[f]
	if !ok {
		return nan32
	}
	return t.at(off)
}

// Has reports whether the table carries a scalar field.
func (t *Table) Has(f Field) bool {
	return t.layout.Has(f)
}

// CoreValue returns a per-core field for core i, or NaN if the layout does
// not carry the array or i is out of range.
func (t *Table) CoreValue(f CoreField, i int) float32 {
	base, ok := t.layout.coreFields[f]
	if !ok || i < 0 || i >= t.layout.MaxCores {
		return nan32
	}
	return t.at(base + 4*i)
}

// L3Value returns a per-L3 field for complex i, or NaN if absent.
func (t *Table) L3Value(f L3Field, i int) float32 {
	base, ok := t.layout.l3Fields[f]
	if !ok || i < 0 || i >= t.layout.MaxL3 {
		return nan32
	}
	return t.at(base + 4*i)
}

func (t *Table) at(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(t.buf[off:]))
}
