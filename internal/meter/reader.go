// internal/meter/reader.go
package meter

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Client is the typed register access the reader needs. Register numbers
// are conventional 4xxxx form; translation happens below this interface.
type Client interface {
	ReadHoldingRegisters(register int, count uint16) ([]uint16, error)
}

// Options configure scaling behavior.
type Options struct {
	DefaultScalar   int
	OverrideScaling bool
	OverrideFactors map[string]float64
}

// Reader turns register blocks into typed telemetry. It caches the meter's
// data scalar after the first successful read. Not safe for concurrent use;
// the poller owns it.
type Reader struct {
	client Client
	opts   Options
	scalar int // -1 until read
}

func NewReader(client Client, opts Options) *Reader {
	return &Reader{client: client, opts: opts, scalar: -1}
}

// DataScalar reads the DATA_SCALAR register, caching the result.
func (r *Reader) DataScalar() (int, error) {
	if r.scalar >= 0 {
		return r.scalar, nil
	}

	regs, err := r.client.ReadHoldingRegisters(RegDataScalar, 1)
	if err != nil {
		return 0, fmt.Errorf("meter: read data scalar: %w", err)
	}
	if len(regs) < 1 {
		return 0, errors.New("meter: empty data scalar response")
	}

	r.scalar = int(regs[0])
	return r.scalar, nil
}

// TestConnection verifies the meter answers, trying the data scalar
// register first and the tick counter as a fallback.
func (r *Reader) TestConnection() error {
	if _, err := r.DataScalar(); err == nil {
		return nil
	}

	if _, err := r.client.ReadHoldingRegisters(RegDataTickCounter, 1); err != nil {
		return fmt.Errorf("meter: connection test failed: %w", err)
	}
	return nil
}

func (r *Reader) multipliers() Multipliers {
	scalar, err := r.DataScalar()
	if err != nil {
		scalar = r.opts.DefaultScalar
		r.scalar = scalar
		log.Printf("meter: using default scalar %d: %v", scalar, err)
	}

	m := MultipliersForScalar(scalar)
	if r.opts.OverrideScaling {
		m = OverrideMultipliers(r.opts.OverrideFactors, m)
	}
	return m
}

// word32 joins an LSW/MSW register pair into a 32-bit value.
func word32(lsw, msw uint16) float64 {
	return float64(uint32(msw)<<16 | uint32(lsw))
}

// ReadBasic reads the 22-register system block and scales it.
func (r *Reader) ReadBasic() (*Reading, error) {
	m := r.multipliers()

	regs, err := r.client.ReadHoldingRegisters(RegEnergyKWhLSW, 22)
	if err != nil {
		return nil, fmt.Errorf("meter: read basic block: %w", err)
	}
	if len(regs) < 22 {
		return nil, fmt.Errorf("meter: basic block short: %d of 22 registers", len(regs))
	}

	rd := &Reading{
		Timestamp:   time.Now(),
		Scalar:      r.scalar,
		Multipliers: m,
		System: SystemTotals{
			EnergyKWh:           word32(regs[0], regs[1]) * m.Power,
			PowerKW:             float64(regs[2]) * m.Power,
			ReactivePowerKVAr:   float64(regs[9]) * m.Power,
			ApparentPowerKVA:    float64(regs[12]) * m.Power,
			DisplacementPF:      float64(regs[13]) * m.PF,
			CurrentAvg:          float64(regs[15]) * m.Current,
			VoltageLLAvg:        float64(regs[16]) * m.Voltage,
			VoltageLNAvg:        float64(regs[17]) * m.Voltage,
		},
		Frequency: float64(regs[21]) * m.Frequency,
		Raw: RawValues{
			Frequency: regs[21],
			VoltageLL: regs[16],
			VoltageLN: regs[17],
			Current:   regs[15],
			Power:     regs[2],
			PF:        regs[13],
			Scalar:    r.scalar,
		},
	}

	clampImplausible(rd)
	return rd, nil
}

// ReadDetailed reads the full 64-register block including per-phase data.
func (r *Reader) ReadDetailed() (*Reading, error) {
	m := r.multipliers()

	regs, err := r.client.ReadHoldingRegisters(RegEnergyKWhLSW, 64)
	if err != nil {
		return nil, fmt.Errorf("meter: read detailed block: %w", err)
	}
	if len(regs) < 64 {
		return nil, fmt.Errorf("meter: detailed block short: %d of 64 registers", len(regs))
	}

	rd := &Reading{
		Timestamp:   time.Now(),
		Detailed:    true,
		Scalar:      r.scalar,
		Multipliers: m,
		System: SystemTotals{
			EnergyKWh:           word32(regs[0], regs[1]) * m.Power,
			PowerKW:             float64(regs[2]) * m.Power,
			DemandKWMax:         float64(regs[3]) * m.Power,
			DemandKWNow:         float64(regs[4]) * m.Power,
			PowerKWMax:          float64(regs[5]) * m.Power,
			PowerKWMin:          float64(regs[6]) * m.Power,
			ReactiveEnergyKVArh: word32(regs[7], regs[8]) * m.Power,
			ReactivePowerKVAr:   float64(regs[9]) * m.Power,
			ApparentEnergyKVAh:  word32(regs[10], regs[11]) * m.Power,
			ApparentPowerKVA:    float64(regs[12]) * m.Power,
			DisplacementPF:      float64(regs[13]) * m.PF,
			ApparentPF:          float64(regs[14]) * m.PF,
			CurrentAvg:          float64(regs[15]) * m.Current,
			VoltageLLAvg:        float64(regs[16]) * m.Voltage,
			VoltageLNAvg:        float64(regs[17]) * m.Voltage,
		},
		Voltages: LineVoltages{
			L1L2: float64(regs[18]) * m.Voltage,
			L2L3: float64(regs[19]) * m.Voltage,
			L1L3: float64(regs[20]) * m.Voltage,
		},
		Frequency: float64(regs[21]) * m.Frequency,
		Phase1: &PhaseReading{
			EnergyKWh:           word32(regs[22], regs[23]) * m.Power,
			PowerKW:             float64(regs[28]) * m.Power,
			ReactiveEnergyKVArh: word32(regs[31], regs[32]) * m.Power,
			ReactivePowerKVAr:   float64(regs[37]) * m.Power,
			ApparentEnergyKVAh:  word32(regs[40], regs[41]) * m.Power,
			ApparentPowerKVA:    float64(regs[46]) * m.Power,
			DisplacementPF:      float64(regs[49]) * m.PF,
			ApparentPF:          float64(regs[52]) * m.PF,
			Current:             float64(regs[55]) * m.Current,
			VoltageLN:           float64(regs[58]) * m.Voltage,
		},
		Phase2: &PhaseReading{
			EnergyKWh:           word32(regs[24], regs[25]) * m.Power,
			PowerKW:             float64(regs[29]) * m.Power,
			ReactiveEnergyKVArh: word32(regs[33], regs[34]) * m.Power,
			ReactivePowerKVAr:   float64(regs[38]) * m.Power,
			ApparentEnergyKVAh:  word32(regs[42], regs[43]) * m.Power,
			ApparentPowerKVA:    float64(regs[47]) * m.Power,
			DisplacementPF:      float64(regs[50]) * m.PF,
			ApparentPF:          float64(regs[53]) * m.PF,
			Current:             float64(regs[56]) * m.Current,
			VoltageLN:           float64(regs[59]) * m.Voltage,
		},
		Phase3: &PhaseReading{
			EnergyKWh:           word32(regs[26], regs[27]) * m.Power,
			PowerKW:             float64(regs[30]) * m.Power,
			ReactiveEnergyKVArh: word32(regs[35], regs[36]) * m.Power,
			ReactivePowerKVAr:   float64(regs[39]) * m.Power,
			ApparentEnergyKVAh:  word32(regs[44], regs[45]) * m.Power,
			ApparentPowerKVA:    float64(regs[48]) * m.Power,
			DisplacementPF:      float64(regs[51]) * m.PF,
			ApparentPF:          float64(regs[54]) * m.PF,
			Current:             float64(regs[57]) * m.Current,
			VoltageLN:           float64(regs[60]) * m.Voltage,
		},
		TimeSinceReset:  uint32(regs[62])<<16 | uint32(regs[61]),
		DataTickCounter: regs[63],
		Raw: RawValues{
			Frequency: regs[21],
			VoltageLL: regs[16],
			VoltageLN: regs[17],
			Current:   regs[15],
			Power:     regs[2],
			PF:        regs[13],
			Scalar:    r.scalar,
		},
	}

	clampImplausible(rd)
	return rd, nil
}
