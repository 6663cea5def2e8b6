// internal/meter/filter.go
package meter

// Hard plausibility ceilings. Values beyond these are treated as scaling
// artifacts and knocked back down rather than surfaced to the dashboard.
const (
	maxSystemPowerKW = 10000
	maxPhasePowerKW  = 5000
	maxEnergyKWh     = 1e9
	minFrequencyHz   = 45
	maxFrequencyHz   = 65
)

// clampImplausible fixes readings that are off by a decade or two, which
// happens when the meter's scalar register disagrees with its actual
// output. Mutates rd in place.
func clampImplausible(rd *Reading) {
	if rd.System.PowerKW > maxSystemPowerKW {
		rd.System.PowerKW /= 10
	}
	if rd.System.EnergyKWh > maxEnergyKWh {
		rd.System.EnergyKWh /= 100
	}

	for _, ph := range []*PhaseReading{rd.Phase1, rd.Phase2, rd.Phase3} {
		if ph == nil {
			continue
		}
		if ph.PowerKW > maxPhasePowerKW {
			ph.PowerKW /= 10
		}
		if ph.EnergyKWh > maxEnergyKWh {
			ph.EnergyKWh /= 100
		}
	}

	if rd.Frequency < minFrequencyHz || rd.Frequency > maxFrequencyHz {
		raw := float64(rd.Raw.Frequency)
		switch {
		case raw > 550 && raw < 650:
			rd.Frequency = raw / 10
		case raw > 5500 && raw < 6500:
			rd.Frequency = raw / 100
		case raw > 10000:
			rd.Frequency = raw / 200
		}
	}
}
