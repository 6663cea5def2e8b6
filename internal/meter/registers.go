// internal/meter/registers.go
package meter

import "fmt"

// Register numbers from the meter documentation, conventional 4xxxx form.
// The codec translates these to wire addresses at frame time.
const (
	RegEnergyKWhLSW = 44001
	RegEnergyKWhMSW = 44002
	RegPowerKW      = 44003
	RegDemandKWMax  = 44004
	RegDemandKWNow  = 44005
	RegPowerKWMax   = 44006
	RegPowerKWMin   = 44007

	RegReactiveEnergyKVArhLSW = 44008
	RegReactiveEnergyKVArhMSW = 44009
	RegReactivePowerKVAr      = 44010
	RegApparentEnergyKVAhLSW  = 44011
	RegApparentEnergyKVAhMSW  = 44012
	RegApparentPowerKVA       = 44013

	RegDisplacementPF = 44014
	RegApparentPF     = 44015
	RegCurrentAvg     = 44016
	RegVoltageLLAvg   = 44017
	RegVoltageLNAvg   = 44018

	RegVoltageL1L2 = 44019
	RegVoltageL2L3 = 44020
	RegVoltageL1L3 = 44021
	RegFrequency   = 44022

	RegEnergyKWhL1LSW = 44023
	RegEnergyKWhL1MSW = 44024
	RegEnergyKWhL2LSW = 44025
	RegEnergyKWhL2MSW = 44026
	RegEnergyKWhL3LSW = 44027
	RegEnergyKWhL3MSW = 44028

	RegDataTickCounter  = 44064
	RegDataScalar       = 44602
	RegDemandWindowSize = 44603
)

var registerNames = map[int]string{
	RegEnergyKWhLSW:           "ENERGY_KWH_LSW",
	RegEnergyKWhMSW:           "ENERGY_KWH_MSW",
	RegPowerKW:                "POWER_KW",
	RegDemandKWMax:            "DEMAND_KW_MAX",
	RegDemandKWNow:            "DEMAND_KW_NOW",
	RegPowerKWMax:             "POWER_KW_MAX",
	RegPowerKWMin:             "POWER_KW_MIN",
	RegReactiveEnergyKVArhLSW: "REACTIVE_ENERGY_KVARH_LSW",
	RegReactiveEnergyKVArhMSW: "REACTIVE_ENERGY_KVARH_MSW",
	RegReactivePowerKVAr:      "REACTIVE_POWER_KVAR",
	RegApparentEnergyKVAhLSW:  "APPARENT_ENERGY_KVAH_LSW",
	RegApparentEnergyKVAhMSW:  "APPARENT_ENERGY_KVAH_MSW",
	RegApparentPowerKVA:       "APPARENT_POWER_KVA",
	RegDisplacementPF:         "DISPLACEMENT_PF",
	RegApparentPF:             "APPARENT_PF",
	RegCurrentAvg:             "CURRENT_AVG",
	RegVoltageLLAvg:           "VOLTAGE_LL_AVG",
	RegVoltageLNAvg:           "VOLTAGE_LN_AVG",
	RegVoltageL1L2:            "VOLTAGE_L1_L2",
	RegVoltageL2L3:            "VOLTAGE_L2_L3",
	RegVoltageL1L3:            "VOLTAGE_L1_L3",
	RegFrequency:              "FREQUENCY",
	RegEnergyKWhL1LSW:         "ENERGY_KWH_L1_LSW",
	RegEnergyKWhL1MSW:         "ENERGY_KWH_L1_MSW",
	RegEnergyKWhL2LSW:         "ENERGY_KWH_L2_LSW",
	RegEnergyKWhL2MSW:         "ENERGY_KWH_L2_MSW",
	RegEnergyKWhL3LSW:         "ENERGY_KWH_L3_LSW",
	RegEnergyKWhL3MSW:         "ENERGY_KWH_L3_MSW",
	RegDataTickCounter:        "DATA_TICK_COUNTER",
	RegDataScalar:             "DATA_SCALAR",
	RegDemandWindowSize:       "DEMAND_WINDOW_SIZE",
}

// RegisterName returns the documented name of a register.
func RegisterName(register int) string {
	if name, ok := registerNames[register]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_%d", register)
}

// RegisterGroup returns the registers in a named group: BASIC, ENERGY,
// POWER, SYSTEM, PHASE_1, PHASE_2 or PHASE_3. Unknown groups are empty.
func RegisterGroup(name string) []int {
	switch name {
	case "BASIC", "basic":
		return []int{RegPowerKW, RegCurrentAvg, RegVoltageLLAvg, RegVoltageLNAvg, RegFrequency, RegDisplacementPF}
	case "ENERGY", "energy":
		return []int{
			RegEnergyKWhLSW, RegEnergyKWhMSW,
			RegReactiveEnergyKVArhLSW, RegReactiveEnergyKVArhMSW,
			RegApparentEnergyKVAhLSW, RegApparentEnergyKVAhMSW,
		}
	case "POWER", "power":
		return []int{RegPowerKW, RegReactivePowerKVAr, RegApparentPowerKVA}
	case "SYSTEM", "system":
		return registerRange(44001, 44022)
	case "PHASE_1", "phase_1":
		return registerRange(44023, 44030)
	case "PHASE_2", "phase_2":
		return registerRange(44031, 44039)
	case "PHASE_3", "phase_3":
		return registerRange(44040, 44049)
	}
	return nil
}

func registerRange(first, last int) []int {
	out := make([]int, 0, last-first+1)
	for r := first; r <= last; r++ {
		out = append(out, r)
	}
	return out
}
