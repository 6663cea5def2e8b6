// internal/meter/types.go
package meter

import "time"

// Multipliers scale raw register words into engineering units.
type Multipliers struct {
	Power     float64 `json:"power" yaml:"power"`
	PF        float64 `json:"pf" yaml:"pf"`
	Current   float64 `json:"current" yaml:"current"`
	Voltage   float64 `json:"voltage" yaml:"voltage"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
}

// SystemTotals are the meter-wide measurements from the system block.
type SystemTotals struct {
	EnergyKWh           float64 `json:"energy_kwh"`
	PowerKW             float64 `json:"power_kw"`
	DemandKWMax         float64 `json:"demand_kw_max"`
	DemandKWNow         float64 `json:"demand_kw_now"`
	PowerKWMax          float64 `json:"power_kw_max"`
	PowerKWMin          float64 `json:"power_kw_min"`
	ReactiveEnergyKVArh float64 `json:"reactive_energy_kvarh"`
	ReactivePowerKVAr   float64 `json:"reactive_power_kvar"`
	ApparentEnergyKVAh  float64 `json:"apparent_energy_kvah"`
	ApparentPowerKVA    float64 `json:"apparent_power_kva"`
	DisplacementPF      float64 `json:"displacement_pf"`
	ApparentPF          float64 `json:"apparent_pf"`
	CurrentAvg          float64 `json:"current_avg"`
	VoltageLLAvg        float64 `json:"voltage_ll_avg"`
	VoltageLNAvg        float64 `json:"voltage_ln_avg"`
}

// LineVoltages are the phase-to-phase voltages.
type LineVoltages struct {
	L1L2 float64 `json:"l1_l2"`
	L2L3 float64 `json:"l2_l3"`
	L1L3 float64 `json:"l1_l3"`
}

// PhaseReading is one phase of a detailed reading.
type PhaseReading struct {
	EnergyKWh           float64 `json:"energy_kwh"`
	PowerKW             float64 `json:"power_kw"`
	ReactiveEnergyKVArh float64 `json:"reactive_energy_kvarh"`
	ReactivePowerKVAr   float64 `json:"reactive_power_kvar"`
	ApparentEnergyKVAh  float64 `json:"apparent_energy_kvah"`
	ApparentPowerKVA    float64 `json:"apparent_power_kva"`
	DisplacementPF      float64 `json:"displacement_pf"`
	ApparentPF          float64 `json:"apparent_pf"`
	Current             float64 `json:"current"`
	VoltageLN           float64 `json:"voltage_ln"`
}

// RawValues are the unscaled register words kept for diagnostics and for
// frequency rescue when the scaled value is implausible.
type RawValues struct {
	Frequency uint16 `json:"frequency"`
	VoltageLL uint16 `json:"voltage_ll"`
	VoltageLN uint16 `json:"voltage_ln"`
	Current   uint16 `json:"current"`
	Power     uint16 `json:"power"`
	PF        uint16 `json:"pf"`
	Scalar    int    `json:"data_scalar"`
}

// Reading is one scaled snapshot of the meter. Basic readings fill the
// system block only; detailed readings also carry per-phase data.
type Reading struct {
	Timestamp   time.Time   `json:"timestamp"`
	Detailed    bool        `json:"detailed"`
	Scalar      int         `json:"data_scalar"`
	Multipliers Multipliers `json:"multipliers"`

	System    SystemTotals `json:"system"`
	Voltages  LineVoltages `json:"voltages"`
	Frequency float64      `json:"frequency"`

	Phase1 *PhaseReading `json:"phase_1,omitempty"`
	Phase2 *PhaseReading `json:"phase_2,omitempty"`
	Phase3 *PhaseReading `json:"phase_3,omitempty"`

	TimeSinceReset  uint32 `json:"time_since_reset,omitempty"`
	DataTickCounter uint16 `json:"data_tick_counter,omitempty"`

	Raw RawValues `json:"raw_values"`
}
