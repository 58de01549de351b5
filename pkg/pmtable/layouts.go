package pmtable

// Supported table versions, one per hardware generation revision.
var (
	// Raven Ridge (Zen APU) and Picasso (Zen+ APU).
	LayoutRavenRidge = register(apuLayout(0x240803, 1))
	LayoutPicasso    = register(apuLayout(0x240903, 1))

	// Matisse (Zen 2 desktop), two table revisions.
	LayoutMatisse  = register(desktopLayout(0x380804, 2, false))
	LayoutMatisse2 = register(desktopLayout(0x380805, 2, true))

	// Vermeer (Zen 3 desktop), two table revisions.
	LayoutVermeer  = register(desktopLayout(0x380904, 3, false))
	LayoutVermeer2 = register(desktopLayout(0x380905, 3, true))

	// Cezanne (Zen 3 APU).
	LayoutCezanne = register(cezanneLayout(0x400005))
)

// limitsBlock is the value/limit prefix shared by every table generation.
func limitsBlock() map[Field]int {
	return map[Field]int{
		FieldPPTLimit: 0x000,
		FieldPPTValue: 0x004,
		FieldTDCLimit: 0x008,
		FieldTDCValue: 0x00C,
		FieldTHMLimit: 0x010,
		FieldTHMValue: 0x014,
		FieldFITLimit: 0x018,
		FieldFITValue: 0x01C,
		FieldEDCLimit: 0x020,
		FieldEDCValue: 0x024,
		FieldVIDLimit: 0x028,
		FieldVIDValue: 0x02C,
	}
}

// desktopLayout describes the Matisse/Vermeer chiplet tables: 16 core
// slots across two CCDs, no integrated graphics. Later table revisions
// (splitVDDG) split V_VDDG into IOD and CCD rails.
func desktopLayout(version uint32, zen int, splitVDDG bool) *Layout {
	fields := limitsBlock()

	// SoC current/thermal block.
	fields[FieldTDCValueSoC] = 0x030
	fields[FieldTDCLimitSoC] = 0x034
	fields[FieldEDCValueSoC] = 0x038
	fields[FieldEDCLimitSoC] = 0x03C
	fields[FieldTHMValueSoC] = 0x040
	fields[FieldTHMLimitSoC] = 0x044
	fields[FieldTDCActual] = 0x048
	fields[FieldPeakTemp] = 0x04C
	fields[FieldSoCTemp] = 0x050

	// Rail power block.
	fields[FieldVDDCRCPUPower] = 0x060
	fields[FieldVDDCRSoCPower] = 0x064
	fields[FieldIOVDDCRSoCPower] = 0x068
	fields[FieldGMI2VDDGPower] = 0x06C
	fields[FieldVDDIOMemPower] = 0x070
	fields[FieldIODVDDIOMemPower] = 0x074
	fields[FieldDDRVDDPPower] = 0x078
	fields[FieldDDRPhyPower] = 0x07C
	fields[FieldVDD18Power] = 0x080
	fields[FieldIODisplayPower] = 0x084
	fields[FieldIOUSBPower] = 0x088
	fields[FieldSocketPower] = 0x08C
	fields[FieldPackagePower] = 0x090

	// VRM telemetry.
	fields[FieldCPUTelemetryVoltage] = 0x0A0
	fields[FieldCPUTelemetryCurrent] = 0x0A4
	fields[FieldCPUTelemetryPower] = 0x0A8
	fields[FieldSoCTelemetryVoltage] = 0x0AC
	fields[FieldSoCTelemetryCurrent] = 0x0B0
	fields[FieldSoCTelemetryPower] = 0x0B4

	// Fabric and memory clocks.
	fields[FieldFCLKFreq] = 0x0C0
	fields[FieldFCLKFreqEff] = 0x0C4
	fields[FieldUCLKFreq] = 0x0C8
	fields[FieldMEMCLKFreq] = 0x0CC
	fields[FieldVVDDM] = 0x0D0
	fields[FieldVVDDP] = 0x0D4
	fields[FieldVVDDG] = 0x0D8
	if splitVDDG {
		fields[FieldVVDDGIOD] = 0x0DC
		fields[FieldVVDDGCCD] = 0x0E0
	}

	fields[FieldPC6] = 0x0F0

	return &Layout{
		Version:    version,
		ZenVersion: zen,
		MaxCores:   16,
		MaxL3:      2,
		fields:     fields,
		l3Fields: map[L3Field]int{
			L3LogicPower: 0x100,
			L3VDDMPower:  0x108,
		},
		coreFields: map[CoreField]int{
			CorePower:   0x200,
			CoreTemp:    0x240,
			CoreFreq:    0x280,
			CoreFreqEff: 0x2C0,
			CoreC0:      0x300,
			CoreCC1:     0x340,
			CoreCC6:     0x380,
		},
	}
}

// cezanneLayout describes the Cezanne monolithic APU table: 8 core slots,
// one L3 complex, integrated graphics, and a separate APU power envelope.
func cezanneLayout(version uint32) *Layout {
	fields := limitsBlock()

	fields[FieldPPTValueAPU] = 0x030
	fields[FieldPPTLimitAPU] = 0x034
	fields[FieldTDCValueSoC] = 0x038
	fields[FieldTDCLimitSoC] = 0x03C
	fields[FieldEDCValueSoC] = 0x040
	fields[FieldEDCLimitSoC] = 0x044
	fields[FieldTHMValueSoC] = 0x048
	fields[FieldTHMLimitSoC] = 0x04C
	fields[FieldTHMValueGfx] = 0x050
	fields[FieldTHMLimitGfx] = 0x054
	fields[FieldTDCActual] = 0x058
	fields[FieldPeakTemp] = 0x05C
	fields[FieldSoCTemp] = 0x060
	fields[FieldGfxTemp] = 0x064

	fields[FieldVDDCRCPUPower] = 0x070
	fields[FieldVDDCRSoCPower] = 0x074
	fields[FieldVDDIOMemPower] = 0x078
	fields[FieldDDRVDDPPower] = 0x07C
	fields[FieldDDRPhyPower] = 0x080
	fields[FieldVDD18Power] = 0x084
	fields[FieldIODisplayPower] = 0x088
	fields[FieldIOUSBPower] = 0x08C
	fields[FieldROCPower] = 0x090
	fields[FieldSocketPower] = 0x094
	fields[FieldPackagePower] = 0x098

	fields[FieldCPUTelemetryVoltage] = 0x0A0
	fields[FieldCPUTelemetryCurrent] = 0x0A4
	fields[FieldCPUTelemetryPower] = 0x0A8
	fields[FieldSoCTelemetryVoltage] = 0x0AC
	fields[FieldSoCTelemetryCurrent] = 0x0B0
	fields[FieldSoCTelemetryPower] = 0x0B4

	fields[FieldFCLKFreq] = 0x0C0
	fields[FieldFCLKFreqEff] = 0x0C4
	fields[FieldUCLKFreq] = 0x0C8
	fields[FieldMEMCLKFreq] = 0x0CC
	fields[FieldVVDDM] = 0x0D0
	fields[FieldVVDDP] = 0x0D4

	fields[FieldPC6] = 0x0F0

	fields[FieldGfxVoltage] = 0x120
	fields[FieldGfxFreq] = 0x124
	fields[FieldGfxFreqEff] = 0x128
	fields[FieldGfxBusy] = 0x12C
	fields[FieldGfxEDCLimit] = 0x130
	fields[FieldGfxEDCResidency] = 0x134
	fields[FieldDisplayCount] = 0x138
	fields[FieldFPS] = 0x13C
	fields[FieldDGPUPower] = 0x140
	fields[FieldDGPUFreqTarget] = 0x144
	fields[FieldDGPUGfxBusy] = 0x148

	return &Layout{
		Version:     version,
		ZenVersion:  3,
		MaxCores:    8,
		MaxL3:       1,
		HasGraphics: true,
		fields:      fields,
		l3Fields: map[L3Field]int{
			L3LogicPower: 0x160,
			L3VDDMPower:  0x164,
		},
		coreFields: map[CoreField]int{
			CorePower:   0x200,
			CoreTemp:    0x220,
			CoreFreq:    0x240,
			CoreFreqEff: 0x260,
			CoreC0:      0x280,
			CoreCC1:     0x2A0,
			CoreCC6:     0x2C0,
		},
	}
}

// apuLayout describes the first-generation APU tables (Raven Ridge and
// Picasso): 4 core slots, one L3 complex, integrated graphics. These
// tables predate the per-rail power breakdown of the newer generations.
func apuLayout(version uint32, zen int) *Layout {
	fields := limitsBlock()

	fields[FieldTDCValueSoC] = 0x030
	fields[FieldTDCLimitSoC] = 0x034
	fields[FieldEDCValueSoC] = 0x038
	fields[FieldEDCLimitSoC] = 0x03C
	fields[FieldTHMValueSoC] = 0x040
	fields[FieldTHMLimitSoC] = 0x044
	fields[FieldTHMValueGfx] = 0x048
	fields[FieldTHMLimitGfx] = 0x04C
	fields[FieldPeakTemp] = 0x050
	fields[FieldSoCTemp] = 0x054
	fields[FieldGfxTemp] = 0x058

	fields[FieldVDDCRCPUPower] = 0x060
	fields[FieldVDDCRSoCPower] = 0x064
	fields[FieldROCPower] = 0x068
	fields[FieldSocketPower] = 0x06C
	fields[FieldPackagePower] = 0x070

	fields[FieldCPUTelemetryVoltage] = 0x080
	fields[FieldCPUTelemetryCurrent] = 0x084
	fields[FieldCPUTelemetryPower] = 0x088
	fields[FieldSoCTelemetryVoltage] = 0x08C
	fields[FieldSoCTelemetryCurrent] = 0x090
	fields[FieldSoCTelemetryPower] = 0x094

	fields[FieldFCLKFreq] = 0x0A0
	fields[FieldUCLKFreq] = 0x0A4
	fields[FieldMEMCLKFreq] = 0x0A8
	fields[FieldVVDDM] = 0x0AC
	fields[FieldVVDDP] = 0x0B0

	fields[FieldGfxVoltage] = 0x0C0
	fields[FieldGfxFreq] = 0x0C4
	fields[FieldGfxFreqEff] = 0x0C8
	fields[FieldGfxBusy] = 0x0CC
	fields[FieldDisplayCount] = 0x0D0
	fields[FieldFPS] = 0x0D4

	return &Layout{
		Version:     version,
		ZenVersion:  zen,
		MaxCores:    4,
		MaxL3:       1,
		HasGraphics: true,
		fields:      fields,
		l3Fields: map[L3Field]int{
			L3LogicPower: 0x0E0,
			L3VDDMPower:  0x0E4,
		},
		coreFields: map[CoreField]int{
			CorePower:   0x100,
			CoreTemp:    0x110,
			CoreFreq:    0x120,
			CoreFreqEff: 0x130,
			CoreC0:      0x140,
			CoreCC1:     0x150,
			CoreCC6:     0x160,
		},
	}
}
