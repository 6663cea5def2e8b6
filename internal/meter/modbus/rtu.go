// internal/meter/modbus/rtu.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/serial"

	pmb "github.com/InfinityNT/power-meter-monitor-nologin/internal/modbus"
)

// RTUConfig describes the serial link to the meter.
type RTUConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int

	Device  uint8
	Timeout time.Duration
	Retries int
}

// RTUTransport speaks Modbus RTU directly over a serial port, framing
// requests and decoding responses with the codec. One request in flight
// at a time; the mutex also serializes diagnostic raw exchanges against
// the poller's typed reads.
type RTUTransport struct {
	mu   sync.Mutex
	port serial.Port
	cfg  RTUConfig
}

func NewRTUTransport(cfg RTUConfig) (*RTUTransport, error) {
	if cfg.Port == "" {
		return nil, errors.New("modbus rtu: port required")
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("modbus rtu: open %s: %w", cfg.Port, err)
	}

	return &RTUTransport{port: port, cfg: cfg}, nil
}

func (t *RTUTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// ---- Transport interface ----

func (t *RTUTransport) ReadHoldingRegisters(register int, count uint16) ([]uint16, error) {
	return t.readRegisters(pmb.ReadHoldingRegisters, register, count)
}

func (t *RTUTransport) ReadInputRegisters(register int, count uint16) ([]uint16, error) {
	return t.readRegisters(pmb.ReadInputRegisters, register, count)
}

func (t *RTUTransport) WriteSingleRegister(register int, value uint16) error {
	cmd, err := pmb.BuildRequest(t.cfg.Device, pmb.WriteSingleRegister, register, 1, []uint16{value})
	if err != nil {
		return err
	}

	resp, err := t.Exchange(cmd.FrameBytes)
	if err != nil {
		return err
	}
	if !pmb.VerifyCRC(resp) {
		return fmt.Errorf("modbus rtu: write confirmation CRC invalid")
	}

	dec, err := pmb.Decode(resp, pmb.DecodeContext{Function: pmb.WriteSingleRegister})
	if err != nil {
		return err
	}
	ws, ok := dec.(pmb.WriteSingleResponse)
	if !ok {
		return fmt.Errorf("modbus rtu: unexpected write confirmation %T", dec)
	}
	if ws.Address != cmd.WireAddress || ws.Value != value {
		return fmt.Errorf("modbus rtu: write echo mismatch: addr=%d value=%d", ws.Address, ws.Value)
	}
	return nil
}

// Exchange sends frame and reads the device's reply, sized from the
// request. Partial reads end at the serial timeout; exception responses
// are recognized early so a short error reply does not wait out the
// full expected length.
func (t *RTUTransport) Exchange(frame []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, errors.New("modbus rtu: transport closed")
	}

	if _, err := t.port.Write(frame); err != nil {
		return nil, fmt.Errorf("modbus rtu: write: %w", err)
	}

	expected := pmb.ExpectedResponseLength(frame)
	buf := make([]byte, expected)
	n := 0
	for n < expected {
		m, err := t.port.Read(buf[n:])
		n += m
		if n >= 5 && buf[1]&0x80 != 0 {
			// exception response: address + function + code + crc
			break
		}
		if err != nil {
			if n > 0 {
				break
			}
			return nil, fmt.Errorf("modbus rtu: read: %w", err)
		}
	}

	return buf[:n], nil
}

func (t *RTUTransport) readRegisters(fn pmb.FunctionCode, register int, count uint16) ([]uint16, error) {
	cmd, err := pmb.BuildRequest(t.cfg.Device, fn, register, count, nil)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= t.cfg.Retries; attempt++ {
		resp, err := t.Exchange(cmd.FrameBytes)
		if err != nil {
			lastErr = err
			continue
		}
		if !pmb.VerifyCRC(resp) {
			lastErr = fmt.Errorf("modbus rtu: response CRC invalid")
			continue
		}

		dec, err := pmb.Decode(resp, pmb.DecodeContext{
			Function:     fn,
			StartAddress: cmd.OriginalAddress,
		})
		if err != nil {
			var exc *pmb.ExceptionError
			if errors.As(err, &exc) {
				// the device answered; retrying will not change its mind
				return nil, err
			}
			lastErr = err
			continue
		}

		rr, ok := dec.(pmb.ReadRegistersResponse)
		if !ok {
			lastErr = fmt.Errorf("modbus rtu: unexpected response %T", dec)
			continue
		}

		out := make([]uint16, len(rr.Registers))
		for i, rv := range rr.Registers {
			out[i] = rv.Value
		}
		return out, nil
	}

	return nil, lastErr
}
