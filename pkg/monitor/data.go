package monitor

import (
	"math"
	"strconv"
	"time"
)

// Metric is a telemetry value. Values the hardware generation does not
// report are NaN; Metric marshals those as JSON null so readings survive
// serialization to the agent and the recording store.
type Metric float64

// Valid reports whether the metric was present in the PM table.
func (m Metric) Valid() bool {
	return !math.IsNaN(float64(m))
}

// MarshalJSON renders absent values as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON accepts null for absent values.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// SystemData identifies the processor and its topology. Populated once per
// SystemInfo call; immutable after return.
type SystemData struct {
	CPUName          string `json:"cpu_name"`
	Codename         string `json:"codename"`
	SMUFWVersion     string `json:"smu_fw_version"`
	DriverVersion    string `json:"driver_version"`
	InterfaceVersion int    `json:"if_version"`
	PMTableVersion   uint32 `json:"pm_table_version"`
	Cores            int    `json:"cores"`
	CCDs             int    `json:"ccds"`
	CCXs             int    `json:"ccxs"`
	CoresPerCCX      int    `json:"cores_per_ccx"`
	EnabledCores     int    `json:"enabled_cores"`
}

// CoreData carries one core slot's telemetry.
type CoreData struct {
	CoreNum   int    `json:"core_num"`
	Frequency Metric `json:"frequency_mhz"`
	Power     Metric `json:"power_w"`
	Voltage   Metric `json:"voltage_v"`
	Temp      Metric `json:"temp_c"`
	C0        Metric `json:"c0_pct"`
	CC1       Metric `json:"cc1_pct"`
	CC6       Metric `json:"cc6_pct"`
	Disabled  bool   `json:"disabled"`
	Sleeping  bool   `json:"sleeping"`
}

// ConstraintsData carries the power, current and thermal value/limit pairs.
// The EDC value is the utilization-corrected effective value, never below
// the TDC reading.
type ConstraintsData struct {
	PeakTemp    Metric `json:"peak_temp"`
	SoCTemp     Metric `json:"soc_temp"`
	GfxTemp     Metric `json:"gfx_temp"`
	VIDValue    Metric `json:"vid_value"`
	VIDLimit    Metric `json:"vid_limit"`
	PPTValue    Metric `json:"ppt_value"`
	PPTLimit    Metric `json:"ppt_limit"`
	PPTAPUValue Metric `json:"ppt_apu_value"`
	PPTAPULimit Metric `json:"ppt_apu_limit"`
	TDCValue    Metric `json:"tdc_value"`
	TDCLimit    Metric `json:"tdc_limit"`
	TDCActual   Metric `json:"tdc_actual"`
	TDCSoCValue Metric `json:"tdc_soc_value"`
	TDCSoCLimit Metric `json:"tdc_soc_limit"`
	EDCValue    Metric `json:"edc_value"`
	EDCLimit    Metric `json:"edc_limit"`
	EDCSoCValue Metric `json:"edc_soc_value"`
	EDCSoCLimit Metric `json:"edc_soc_limit"`
	THMValue    Metric `json:"thm_value"`
	THMLimit    Metric `json:"thm_limit"`
	THMSoCValue Metric `json:"thm_soc_value"`
	THMSoCLimit Metric `json:"thm_soc_limit"`
	THMGfxValue Metric `json:"thm_gfx_value"`
	THMGfxLimit Metric `json:"thm_gfx_limit"`
	FITValue    Metric `json:"fit_value"`
	FITLimit    Metric `json:"fit_limit"`
}

// MemoryData carries fabric and memory-controller telemetry.
type MemoryData struct {
	FCLKFreq    Metric `json:"fclk_freq"`
	FCLKFreqEff Metric `json:"fclk_freq_eff"`
	UCLKFreq    Metric `json:"uclk_freq"`
	MEMCLKFreq  Metric `json:"memclk_freq"`
	VVDDM       Metric `json:"v_vddm"`
	VVDDP       Metric `json:"v_vddp"`
	VVDDG       Metric `json:"v_vddg"`
	VVDDGIOD    Metric `json:"v_vddg_iod"`
	VVDDGCCD    Metric `json:"v_vddg_ccd"`
	CoupledMode bool   `json:"coupled_mode"`
}

// PowerData carries the per-rail power breakdown.
type PowerData struct {
	TotalCorePower      Metric `json:"total_core_power"`
	VDDCRSoCPower       Metric `json:"vddcr_soc_power"`
	IOVDDCRSoCPower     Metric `json:"io_vddcr_soc_power"`
	GMI2VDDGPower       Metric `json:"gmi2_vddg_power"`
	ROCPower            Metric `json:"roc_power"`
	L3LogicPower        Metric `json:"l3_logic_power"`
	L3VDDMPower         Metric `json:"l3_vddm_power"`
	VDDIOMemPower       Metric `json:"vddio_mem_power"`
	IODVDDIOMemPower    Metric `json:"iod_vddio_mem_power"`
	DDRVDDPPower        Metric `json:"ddr_vddp_power"`
	DDRPhyPower         Metric `json:"ddr_phy_power"`
	VDD18Power          Metric `json:"vdd18_power"`
	IODisplayPower      Metric `json:"io_display_power"`
	IOUSBPower          Metric `json:"io_usb_power"`
	SocketPower         Metric `json:"socket_power"`
	PackagePower        Metric `json:"package_power"`
	VDDCRCPUPower       Metric `json:"vddcr_cpu_power"`
	SoCTelemetryVoltage Metric `json:"soc_telemetry_voltage"`
	SoCTelemetryCurrent Metric `json:"soc_telemetry_current"`
	SoCTelemetryPower   Metric `json:"soc_telemetry_power"`
	CPUTelemetryVoltage Metric `json:"cpu_telemetry_voltage"`
	CPUTelemetryCurrent Metric `json:"cpu_telemetry_current"`
	CPUTelemetryPower   Metric `json:"cpu_telemetry_power"`
}

// GraphicsData carries iGPU telemetry on APU generations. Supported is
// false on chiplet parts without graphics; the metric fields are then
// zero values.
type GraphicsData struct {
	Supported       bool   `json:"supported"`
	GfxVoltage      Metric `json:"gfx_voltage"`
	ROCPower        Metric `json:"roc_power"`
	GfxTemp         Metric `json:"gfx_temp"`
	GfxFreq         Metric `json:"gfx_freq"`
	GfxFreqEff      Metric `json:"gfx_freq_eff"`
	GfxBusy         Metric `json:"gfx_busy"`
	GfxEDCLimit     Metric `json:"gfx_edc_limit"`
	GfxEDCResidency Metric `json:"gfx_edc_residency"`
	DisplayCount    Metric `json:"display_count"`
	FPS             Metric `json:"fps"`
	DGPUPower       Metric `json:"dgpu_power"`
	DGPUFreqTarget  Metric `json:"dgpu_freq_target"`
	DGPUGfxBusy     Metric `json:"dgpu_gfx_busy"`
}

// CalculatedStats carries values derived across cores. Peaks and averages
// cover enabled cores only.
type CalculatedStats struct {
	PeakCoreFrequency  Metric `json:"peak_core_frequency"`
	PeakCoreTemp       Metric `json:"peak_core_temp"`
	PeakCoreVoltage    Metric `json:"peak_core_voltage"`
	AvgCoreVoltage     Metric `json:"avg_core_voltage"`
	AvgCoreCC6         Metric `json:"avg_core_cc6"`
	TotalCorePower     Metric `json:"total_core_power"`
	PeakCoreVoltageSMU Metric `json:"peak_core_voltage_smu"`
	PackageCC6         Metric `json:"package_cc6"`
}

// Reading is one telemetry snapshot. The caller owns all storage: Cores
// capacity bounds how many core entries Read fills, and TotalCores reports
// how many core slots the hardware has so truncation is detectable.
type Reading struct {
	Timestamp   time.Time       `json:"timestamp"`
	Cores       []CoreData      `json:"cores"`
	TotalCores  int             `json:"total_cores"`
	Constraints ConstraintsData `json:"constraints"`
	Memory      MemoryData      `json:"memory"`
	Power       PowerData       `json:"power"`
	Graphics    GraphicsData    `json:"graphics"`
	Stats       CalculatedStats `json:"stats"`
}
