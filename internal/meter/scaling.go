// internal/meter/scaling.go
package meter

// scalarTable maps the DATA_SCALAR register value to unit multipliers,
// per table D-1 of the meter manual.
var scalarTable = map[int]Multipliers{
	0: {Power: 0.00001, PF: 0.01, Current: 0.01, Voltage: 0.1},
	1: {Power: 0.001, PF: 0.01, Current: 0.1, Voltage: 0.1},
	2: {Power: 0.01, PF: 0.01, Current: 0.1, Voltage: 0.1},
	3: {Power: 0.1, PF: 0.01, Current: 0.1, Voltage: 0.1},
	4: {Power: 1.0, PF: 0.01, Current: 1.0, Voltage: 1.0},
	5: {Power: 10.0, PF: 0.01, Current: 1.0, Voltage: 1.0},
	6: {Power: 100.0, PF: 0.01, Current: 1.0, Voltage: 1.0},
}

// MultipliersForScalar resolves the DATA_SCALAR register value into unit
// multipliers. Scalar 15 is a special case observed in the field; other
// values at or above 6 clamp to the scalar 6 row.
func MultipliersForScalar(scalar int) Multipliers {
	if scalar == 15 {
		return Multipliers{Power: 0.1, PF: 0.01, Current: 0.1, Voltage: 0.1, Frequency: 0.005}
	}

	if scalar >= 6 {
		scalar = 6
	}

	if m, ok := scalarTable[scalar]; ok {
		// The table has no frequency column; 0.005 puts the raw word
		// in the expected 50/60 Hz range.
		m.Frequency = 0.005
		return m
	}

	return Multipliers{Power: 1.0, PF: 0.01, Current: 1.0, Voltage: 1.0, Frequency: 0.01}
}

// OverrideMultipliers builds multipliers from manual config factors,
// falling back to the given defaults for keys not present.
func OverrideMultipliers(factors map[string]float64, def Multipliers) Multipliers {
	m := def
	if v, ok := factors["power"]; ok {
		m.Power = v
	}
	if v, ok := factors["pf"]; ok {
		m.PF = v
	}
	if v, ok := factors["current"]; ok {
		m.Current = v
	}
	if v, ok := factors["voltage"]; ok {
		m.Voltage = v
	}
	if v, ok := factors["frequency"]; ok {
		m.Frequency = v
	}
	return m
}
