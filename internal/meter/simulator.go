// internal/meter/simulator.go
package meter

import (
	"context"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	mbserver "github.com/hootrhino/mbserver"
	"github.com/hootrhino/mbserver/store"
)

// simRegisterSpace covers the whole meter map: the system/phase block at
// wire 4000-4063 plus the scalar at wire 4601.
const simRegisterSpace = 4700

// Simulator is an in-process Modbus TCP slave that behaves like a power
// meter, for running the full stack without hardware. Register values
// follow a slow sine-modulated load curve with jitter.
type Simulator struct {
	server *mbserver.Server
	addr   string

	start  time.Time
	energy float64 // accumulated kWh, scalar-3 units
}

// NewSimulator creates a simulator that will listen on addr (host:port)
// and answer as slave 1.
func NewSimulator(addr string) *Simulator {
	srv := mbserver.NewServer(store.NewInMemoryStore(), 1)
	srv.SetErrorHandler(func(err error) {
		log.Printf("simulator: modbus server error: %v", err)
	})
	srv.SetLogger(os.Stdout)

	return &Simulator{
		server: srv,
		addr:   addr,
		start:  time.Now(),
		energy: 1000000,
	}
}

// Start populates the register map and begins serving.
func (s *Simulator) Start() error {
	if err := s.server.SetHoldingRegisters(s.generate()); err != nil {
		return err
	}
	return s.server.Start(s.addr)
}

// Run regenerates register values once per second until ctx is done,
// then stops the server.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.server.Stop()
			return
		case <-ticker.C:
			if err := s.server.SetHoldingRegisters(s.generate()); err != nil {
				log.Printf("simulator: register update failed: %v", err)
			}
		}
	}
}

// generate builds the full holding-register image. All raw words are
// consistent with scalar 3 (power/current/voltage x0.1, pf x0.01,
// frequency x0.005).
func (s *Simulator) generate() []uint16 {
	regs := make([]uint16, simRegisterSpace)

	elapsed := time.Since(s.start).Seconds()

	// Load swings around 50 kW on a ten-minute cycle.
	powerKW := 50 + 15*math.Sin(elapsed*2*math.Pi/600) + rand.Float64()*2
	s.energy += powerKW / 3600 // one tick per second

	pf := 0.92 + rand.Float64()*0.04
	reactiveKVAr := powerKW * math.Tan(math.Acos(pf))
	apparentKVA := powerKW / pf
	voltageLL := 480 + rand.Float64()*4 - 2
	voltageLN := voltageLL / math.Sqrt(3)
	current := apparentKVA * 1000 / (voltageLL * math.Sqrt(3))
	frequency := 60 + rand.Float64()*0.04 - 0.02

	put := func(register int, v float64) {
		wire := register - 40001
		regs[wire] = uint16(int64(v) & 0xFFFF)
	}
	put32 := func(lswRegister int, v float64) {
		raw := uint32(v)
		regs[lswRegister-40001] = uint16(raw & 0xFFFF)
		regs[lswRegister-40001+1] = uint16(raw >> 16)
	}

	put32(RegEnergyKWhLSW, s.energy*10)
	put(RegPowerKW, powerKW*10)
	put(RegDemandKWMax, 72*10)
	put(RegDemandKWNow, powerKW*10)
	put(RegPowerKWMax, 78*10)
	put(RegPowerKWMin, 31*10)
	put32(RegReactiveEnergyKVArhLSW, s.energy*0.3*10)
	put(RegReactivePowerKVAr, reactiveKVAr*10)
	put32(RegApparentEnergyKVAhLSW, s.energy*1.05*10)
	put(RegApparentPowerKVA, apparentKVA*10)
	put(RegDisplacementPF, pf*100)
	put(RegApparentPF, pf*100)
	put(RegCurrentAvg, current*10)
	put(RegVoltageLLAvg, voltageLL*10)
	put(RegVoltageLNAvg, voltageLN*10)
	put(RegVoltageL1L2, voltageLL*10)
	put(RegVoltageL2L3, (voltageLL+1)*10)
	put(RegVoltageL1L3, (voltageLL-1)*10)
	put(RegFrequency, frequency/0.005)

	// Per-phase blocks: roughly a third of the system values each.
	for phase := 0; phase < 3; phase++ {
		skew := 1 + 0.03*float64(phase-1)
		put32(RegEnergyKWhL1LSW+2*phase, s.energy/3*skew*10)
		put(44029+phase, powerKW/3*skew*10)           // phase power
		put32(44032+2*phase, s.energy*0.1*skew*10)    // phase reactive energy
		put(44038+phase, reactiveKVAr/3*skew*10)      // phase reactive power
		put32(44041+2*phase, s.energy*0.35*skew*10)   // phase apparent energy
		put(44047+phase, apparentKVA/3*skew*10)       // phase apparent power
		put(44050+phase, pf*100)                      // phase displacement pf
		put(44053+phase, pf*100)                      // phase apparent pf
		put(44056+phase, current/3*skew*10)           // phase current
		put(44059+phase, voltageLN*10)                // phase voltage L-N
	}

	put32(44062, elapsed) // time since reset
	put(RegDataTickCounter, elapsed)
	put(RegDataScalar, 3)
	put(RegDemandWindowSize, 15)

	return regs
}
