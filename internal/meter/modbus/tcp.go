// internal/meter/modbus/tcp.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gm "github.com/goburrow/modbus"

	pmb "github.com/InfinityNT/power-meter-monitor-nologin/internal/modbus"
)

// TCPConfig describes a Modbus TCP connection (simulator or gateway).
type TCPConfig struct {
	Endpoint string
	Device   uint8
	Timeout  time.Duration
}

// TCPTransport adapts the meter contract onto a Modbus TCP connection.
// Raw RTU frames from the diagnostic panel are bridged: parsed and CRC
// checked locally, executed as typed TCP requests, and the RTU response
// the device would have produced is synthesized from the result.
type TCPTransport struct {
	mu      sync.Mutex
	handler *gm.TCPClientHandler
	client  gm.Client
}

func NewTCPTransport(cfg TCPConfig) (*TCPTransport, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus tcp: endpoint required")
	}

	h := gm.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.Device

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus tcp: connect %s: %w", cfg.Endpoint, err)
	}

	return &TCPTransport{handler: h, client: gm.NewClient(h)}, nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handler == nil {
		return nil
	}
	return t.handler.Close()
}

// ---- Transport interface ----

func (t *TCPTransport) ReadHoldingRegisters(register int, count uint16) ([]uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := t.client.ReadHoldingRegisters(pmb.WireAddress(register), count)
	if err != nil {
		return nil, mapClientError(err)
	}
	return unpackWords(data), nil
}

func (t *TCPTransport) ReadInputRegisters(register int, count uint16) ([]uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := t.client.ReadInputRegisters(pmb.WireAddress(register), count)
	if err != nil {
		return nil, mapClientError(err)
	}
	return unpackWords(data), nil
}

func (t *TCPTransport) WriteSingleRegister(register int, value uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.client.WriteSingleRegister(pmb.WireAddress(register), value)
	return mapClientError(err)
}

func (t *TCPTransport) writeMultipleRegisters(wire uint16, values []uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.client.WriteMultipleRegisters(wire, uint16(len(values)), packWords(values))
	return mapClientError(err)
}

// Exchange bridges a raw RTU frame onto the TCP connection. Wire
// addresses below the 40001 threshold pass through the conventional
// translation unchanged, so the typed methods can be reused directly.
func (t *TCPTransport) Exchange(frame []byte) ([]byte, error) {
	if len(frame) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", pmb.ErrMalformedResponse, len(frame))
	}
	if !pmb.VerifyCRC(frame) {
		return nil, errors.New("modbus tcp: request frame CRC invalid")
	}

	device := frame[0]
	fn := pmb.FunctionCode(frame[1])
	wire := int(frame[2])<<8 | int(frame[3])

	switch fn {
	case pmb.ReadHoldingRegisters, pmb.ReadInputRegisters:
		if len(frame) < 8 {
			return nil, errors.New("modbus tcp: short read request")
		}
		count := uint16(frame[4])<<8 | uint16(frame[5])

		var regs []uint16
		var err error
		if fn == pmb.ReadHoldingRegisters {
			regs, err = t.ReadHoldingRegisters(wire, count)
		} else {
			regs, err = t.ReadInputRegisters(wire, count)
		}
		if err != nil {
			return exceptionFrame(device, fn, err)
		}

		resp := make([]byte, 0, 5+2*len(regs))
		resp = append(resp, device, byte(fn), byte(len(regs)*2))
		resp = append(resp, packWords(regs)...)
		return pmb.AppendCRC(resp), nil

	case pmb.WriteSingleRegister:
		if len(frame) < 8 {
			return nil, errors.New("modbus tcp: short write request")
		}
		value := uint16(frame[4])<<8 | uint16(frame[5])

		if err := t.WriteSingleRegister(wire, value); err != nil {
			return exceptionFrame(device, fn, err)
		}
		// confirmation echoes the request
		echo := make([]byte, len(frame))
		copy(echo, frame)
		return echo, nil

	case pmb.WriteMultipleRegisters:
		if len(frame) < 9 {
			return nil, errors.New("modbus tcp: short write request")
		}
		count := int(frame[4])<<8 | int(frame[5])
		byteCount := int(frame[6])
		if byteCount != 2*count || len(frame) < 9+byteCount {
			return nil, errors.New("modbus tcp: write request length mismatch")
		}
		values := unpackWords(frame[7 : 7+byteCount])

		if err := t.writeMultipleRegisters(uint16(wire), values); err != nil {
			return exceptionFrame(device, fn, err)
		}

		resp := []byte{device, byte(fn), frame[2], frame[3], frame[4], frame[5]}
		return pmb.AppendCRC(resp), nil
	}

	return nil, fmt.Errorf("modbus tcp: cannot bridge function %d", uint8(fn))
}

// exceptionFrame turns a device exception back into the RTU error frame
// the diagnostic panel expects. Transport errors stay errors.
func exceptionFrame(device uint8, fn pmb.FunctionCode, err error) ([]byte, error) {
	var exc *pmb.ExceptionError
	if errors.As(err, &exc) {
		return pmb.AppendCRC([]byte{device, byte(fn) | 0x80, exc.Code}), nil
	}
	return nil, err
}

// mapClientError normalizes goburrow's exception type into the codec's,
// so callers have a single error taxonomy.
func mapClientError(err error) error {
	if err == nil {
		return nil
	}
	var me *gm.ModbusError
	if errors.As(err, &me) {
		return &pmb.ExceptionError{Function: me.FunctionCode | 0x80, Code: me.ExceptionCode}
	}
	return err
}
