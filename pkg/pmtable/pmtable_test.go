package pmtable

import (
	"encoding/binary"
	"math"
	"testing"
)

// snapshot builds a zeroed buffer sized for a layout with selected scalar
// and per-core fields populated.
func snapshot(t *testing.T, l *Layout, scalars map[Field]float32, cores map[CoreField][]float32) []byte {
	t.Helper()
	buf := make([]byte, l.MinSize())
	for f, v := range scalars {
		off, ok := l.fields[f]
		if !ok {
			t.Fatalf("layout %#x does not carry field %q", l.Version, f)
		}
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	for f, values := range cores {
		base, ok := l.coreFields[f]
		if !ok {
			t.Fatalf("layout %#x does not carry core field %q", l.Version, f)
		}
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[base+4*i:], math.Float32bits(v))
		}
	}
	return buf
}

func TestLayoutForKnownVersions(t *testing.T) {
	versions := []uint32{0x240803, 0x240903, 0x380804, 0x380805, 0x380904, 0x380905, 0x400005}
	for _, v := range versions {
		l, ok := LayoutFor(v)
		if !ok {
			t.Errorf("LayoutFor(%#x): not registered", v)
			continue
		}
		if l.Version != v {
			t.Errorf("LayoutFor(%#x).Version = %#x", v, l.Version)
		}
		if l.MinSize() == 0 {
			t.Errorf("LayoutFor(%#x).MinSize() = 0", v)
		}
	}
}

func TestLayoutForUnknownVersion(t *testing.T) {
	if _, ok := LayoutFor(0xdeadbeef); ok {
		t.Error("LayoutFor(0xdeadbeef): expected not registered")
	}
}

func TestDecodeRejectsShortSnapshot(t *testing.T) {
	l := LayoutVermeer
	if _, err := l.Decode(make([]byte, l.MinSize()-1)); err == nil {
		t.Error("Decode() with short buffer: expected error")
	}
}

func TestScalarValues(t *testing.T) {
	l := LayoutVermeer
	buf := snapshot(t, l, map[Field]float32{
		FieldPPTValue:     88.5,
		FieldPPTLimit:     142,
		FieldSocketPower:  117.25,
		FieldFCLKFreq:     1800,
		FieldPC6:          42.5,
		FieldPackagePower: 110,
	}, nil)

	table, err := l.Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	tests := []struct {
		field Field
		want  float32
	}{
		{FieldPPTValue, 88.5},
		{FieldPPTLimit, 142},
		{FieldSocketPower, 117.25},
		{FieldFCLKFreq, 1800},
		{FieldPC6, 42.5},
		{FieldPackagePower, 110},
	}
	for _, tt := range tests {
		if got := table.Value(tt.field); got != tt.want {
			t.Errorf("Value(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestAbsentFieldsReadNaN(t *testing.T) {
	// V_VDDG IOD/CCD rails only exist in the revised desktop tables.
	table, err := LayoutVermeer.Decode(make([]byte, LayoutVermeer.MinSize()))
	if err != nil {
		t.Fatal(err)
	}
	if v := table.Value(FieldVVDDGIOD); !math.IsNaN(float64(v)) {
		t.Errorf("Value(v_vddg_iod) on %#x = %v, want NaN", LayoutVermeer.Version, v)
	}

	table2, err := LayoutVermeer2.Decode(make([]byte, LayoutVermeer2.MinSize()))
	if err != nil {
		t.Fatal(err)
	}
	if v := table2.Value(FieldVVDDGIOD); math.IsNaN(float64(v)) {
		t.Errorf("Value(v_vddg_iod) on %#x = NaN, want present", LayoutVermeer2.Version)
	}

	// First-generation APU tables carry no package C6 counter.
	apu, err := LayoutPicasso.Decode(make([]byte, LayoutPicasso.MinSize()))
	if err != nil {
		t.Fatal(err)
	}
	if apu.Has(FieldPC6) {
		t.Error("Picasso table should not carry pc6")
	}
	if v := apu.Value(FieldPC6); !math.IsNaN(float64(v)) {
		t.Errorf("Value(pc6) on Picasso = %v, want NaN", v)
	}
}

func TestCoreValues(t *testing.T) {
	l := LayoutCezanne
	freqs := []float32{4.4, 4.2, 0, 3.9, 4.0, 4.1, 4.3, 4.5}
	buf := snapshot(t, l, nil, map[CoreField][]float32{
		CoreFreqEff: freqs,
	})

	table, err := l.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}

	for i, want := range freqs {
		if got := table.CoreValue(CoreFreqEff, i); got != want {
			t.Errorf("CoreValue(core_freq_eff, %d) = %v, want %v", i, got, want)
		}
	}

	// Out-of-range core slots read NaN rather than adjacent memory.
	if v := table.CoreValue(CoreFreqEff, l.MaxCores); !math.IsNaN(float64(v)) {
		t.Errorf("CoreValue out of range = %v, want NaN", v)
	}
	if v := table.CoreValue(CoreFreqEff, -1); !math.IsNaN(float64(v)) {
		t.Errorf("CoreValue(-1) = %v, want NaN", v)
	}
}

func TestL3Values(t *testing.T) {
	l := LayoutVermeer
	buf := make([]byte, l.MinSize())
	binary.LittleEndian.PutUint32(buf[l.l3Fields[L3LogicPower]:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(buf[l.l3Fields[L3LogicPower]+4:], math.Float32bits(2.5))

	table, err := l.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.L3Value(L3LogicPower, 0); got != 1.5 {
		t.Errorf("L3Value(0) = %v, want 1.5", got)
	}
	if got := table.L3Value(L3LogicPower, 1); got != 2.5 {
		t.Errorf("L3Value(1) = %v, want 2.5", got)
	}
	if v := table.L3Value(L3LogicPower, 2); !math.IsNaN(float64(v)) {
		t.Errorf("L3Value(2) = %v, want NaN", v)
	}
}

func TestGenerationMetadata(t *testing.T) {
	tests := []struct {
		layout      *Layout
		zen         int
		maxCores    int
		hasGraphics bool
	}{
		{LayoutRavenRidge, 1, 4, true},
		{LayoutPicasso, 1, 4, true},
		{LayoutMatisse, 2, 16, false},
		{LayoutVermeer, 3, 16, false},
		{LayoutCezanne, 3, 8, true},
	}

	for _, tt := range tests {
		if tt.layout.ZenVersion != tt.zen {
			t.Errorf("%#x: ZenVersion = %d, want %d", tt.layout.Version, tt.layout.ZenVersion, tt.zen)
		}
		if tt.layout.MaxCores != tt.maxCores {
			t.Errorf("%#x: MaxCores = %d, want %d", tt.layout.Version, tt.layout.MaxCores, tt.maxCores)
		}
		if tt.layout.HasGraphics != tt.hasGraphics {
			t.Errorf("%#x: HasGraphics = %v, want %v", tt.layout.Version, tt.layout.HasGraphics, tt.hasGraphics)
		}
	}
}
