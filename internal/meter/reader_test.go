// internal/meter/reader_test.go
package meter

import (
	"errors"
	"testing"
)

// fakeClient answers register reads from a sparse map keyed by register
// number. Unmapped blocks return zeros; registers in failOn fail.
type fakeClient struct {
	regs   map[int]uint16
	failOn map[int]bool
	calls  int
}

func (f *fakeClient) ReadHoldingRegisters(register int, count uint16) ([]uint16, error) {
	f.calls++
	if f.failOn[register] {
		return nil, errors.New("fake read failure")
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = f.regs[register+i]
	}
	return out, nil
}

func TestDataScalar_Cached(t *testing.T) {
	fc := &fakeClient{regs: map[int]uint16{RegDataScalar: 3}}
	r := NewReader(fc, Options{})

	s, err := r.DataScalar()
	if err != nil {
		t.Fatalf("DataScalar err=%v", err)
	}
	if s != 3 {
		t.Fatalf("scalar = %d, want 3", s)
	}

	before := fc.calls
	if _, err := r.DataScalar(); err != nil {
		t.Fatalf("second DataScalar err=%v", err)
	}
	if fc.calls != before {
		t.Fatal("cached scalar must not hit the client again")
	}
}

func TestTestConnection_FallbackRegister(t *testing.T) {
	fc := &fakeClient{
		regs:   map[int]uint16{RegDataTickCounter: 7},
		failOn: map[int]bool{RegDataScalar: true},
	}
	r := NewReader(fc, Options{})

	if err := r.TestConnection(); err != nil {
		t.Fatalf("TestConnection err=%v", err)
	}
}

func TestTestConnection_Failure(t *testing.T) {
	fc := &fakeClient{
		failOn: map[int]bool{RegDataScalar: true, RegDataTickCounter: true},
	}
	r := NewReader(fc, Options{})

	if err := r.TestConnection(); err == nil {
		t.Fatal("expected connection test failure")
	}
}

func TestReadBasic_Scaling(t *testing.T) {
	fc := &fakeClient{regs: map[int]uint16{
		RegDataScalar:   3, // power 0.1, current 0.1, voltage 0.1, pf 0.01, freq 0.005
		RegEnergyKWhLSW: 0x1000,
		RegEnergyKWhMSW: 0x0002,
		RegPowerKW:      520,
		RegDisplacementPF: 95,
		RegCurrentAvg:   631,
		RegVoltageLLAvg: 4805,
		RegVoltageLNAvg: 2774,
		RegFrequency:    12000,
	}}
	r := NewReader(fc, Options{})

	rd, err := r.ReadBasic()
	if err != nil {
		t.Fatalf("ReadBasic err=%v", err)
	}

	wantEnergy := float64(uint32(2)<<16|0x1000) * 0.1
	if rd.System.EnergyKWh != wantEnergy {
		t.Errorf("energy = %v, want %v", rd.System.EnergyKWh, wantEnergy)
	}
	if rd.System.PowerKW != 52.0 {
		t.Errorf("power = %v, want 52.0", rd.System.PowerKW)
	}
	if rd.System.CurrentAvg != 63.1 {
		t.Errorf("current = %v, want 63.1", rd.System.CurrentAvg)
	}
	if rd.System.VoltageLLAvg != 480.5 {
		t.Errorf("voltage L-L = %v, want 480.5", rd.System.VoltageLLAvg)
	}
	if rd.Frequency != 60.0 {
		t.Errorf("frequency = %v, want 60.0", rd.Frequency)
	}
	if rd.Detailed {
		t.Error("basic reading flagged detailed")
	}
	if rd.Raw.Power != 520 || rd.Raw.Scalar != 3 {
		t.Errorf("raw values = %+v", rd.Raw)
	}
}

func TestReadDetailed_Phases(t *testing.T) {
	fc := &fakeClient{regs: map[int]uint16{
		RegDataScalar:     4, // all power/current/voltage at 1.0
		RegEnergyKWhL1LSW: 100,
		RegFrequency:      12000,
		44001 + 28:        17,   // phase 1 power
		44001 + 58:        277,  // phase 1 voltage L-N
		44001 + 63:        42,   // tick counter
		44001 + 61:        500,  // time since reset LSW
	}}
	r := NewReader(fc, Options{})

	rd, err := r.ReadDetailed()
	if err != nil {
		t.Fatalf("ReadDetailed err=%v", err)
	}

	if !rd.Detailed || rd.Phase1 == nil || rd.Phase2 == nil || rd.Phase3 == nil {
		t.Fatal("detailed reading must carry all three phases")
	}
	if rd.Phase1.EnergyKWh != 100 {
		t.Errorf("phase 1 energy = %v, want 100", rd.Phase1.EnergyKWh)
	}
	if rd.Phase1.PowerKW != 17 {
		t.Errorf("phase 1 power = %v, want 17", rd.Phase1.PowerKW)
	}
	if rd.Phase1.VoltageLN != 277 {
		t.Errorf("phase 1 voltage = %v, want 277", rd.Phase1.VoltageLN)
	}
	if rd.DataTickCounter != 42 {
		t.Errorf("tick counter = %d, want 42", rd.DataTickCounter)
	}
	if rd.TimeSinceReset != 500 {
		t.Errorf("time since reset = %d, want 500", rd.TimeSinceReset)
	}
}

func TestReadBasic_DefaultScalarOnFailure(t *testing.T) {
	fc := &fakeClient{
		regs:   map[int]uint16{RegPowerKW: 100},
		failOn: map[int]bool{RegDataScalar: true},
	}
	r := NewReader(fc, Options{DefaultScalar: 3})

	rd, err := r.ReadBasic()
	if err != nil {
		t.Fatalf("ReadBasic err=%v", err)
	}
	if rd.Scalar != 3 {
		t.Fatalf("scalar = %d, want default 3", rd.Scalar)
	}
	if rd.System.PowerKW != 10.0 {
		t.Fatalf("power = %v, want 10.0 under scalar 3", rd.System.PowerKW)
	}
}

func TestReadBasic_OverrideScaling(t *testing.T) {
	fc := &fakeClient{regs: map[int]uint16{
		RegDataScalar: 4,
		RegPowerKW:    100,
	}}
	r := NewReader(fc, Options{
		OverrideScaling: true,
		OverrideFactors: map[string]float64{"power": 0.5},
	})

	rd, err := r.ReadBasic()
	if err != nil {
		t.Fatalf("ReadBasic err=%v", err)
	}
	if rd.System.PowerKW != 50.0 {
		t.Fatalf("power = %v, want 50.0 with override", rd.System.PowerKW)
	}
}

func TestMultipliersForScalar(t *testing.T) {
	if m := MultipliersForScalar(3); m.Power != 0.1 || m.Frequency != 0.005 {
		t.Errorf("scalar 3 = %+v", m)
	}
	if m := MultipliersForScalar(15); m.Power != 0.1 || m.Current != 0.1 {
		t.Errorf("scalar 15 = %+v", m)
	}
	// >= 6 clamps to the scalar 6 row
	if m := MultipliersForScalar(9); m.Power != 100.0 {
		t.Errorf("scalar 9 = %+v, want scalar 6 row", m)
	}
}

func TestClampImplausible(t *testing.T) {
	rd := &Reading{
		System: SystemTotals{PowerKW: 123456, EnergyKWh: 2e9},
		Phase1: &PhaseReading{PowerKW: 6000},
		Raw:    RawValues{Frequency: 12000},
	}
	rd.Frequency = 600 // implausible; raw 12000 rescued via /200

	clampImplausible(rd)

	if rd.System.PowerKW != 12345.6 {
		t.Errorf("system power = %v, want 12345.6", rd.System.PowerKW)
	}
	if rd.System.EnergyKWh != 2e7 {
		t.Errorf("energy = %v, want 2e7", rd.System.EnergyKWh)
	}
	if rd.Phase1.PowerKW != 600 {
		t.Errorf("phase power = %v, want 600", rd.Phase1.PowerKW)
	}
	if rd.Frequency != 60 {
		t.Errorf("frequency = %v, want 60", rd.Frequency)
	}
}
