// internal/meter/modbus/transport.go
package modbus

import (
	"fmt"
	"time"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/config"
)

// Transport is typed register access to the meter plus raw RTU frame
// exchange for the diagnostic panel. Register parameters are conventional
// 4xxxx numbers; implementations translate before hitting the wire.
// Implementations serialize access internally.
type Transport interface {
	ReadHoldingRegisters(register int, count uint16) ([]uint16, error)
	ReadInputRegisters(register int, count uint16) ([]uint16, error)
	WriteSingleRegister(register int, value uint16) error

	// Exchange sends a pre-built RTU frame and returns the raw response.
	Exchange(frame []byte) ([]byte, error)

	Close() error
}

// New builds the transport selected by config: an RTU serial link to real
// hardware, or a Modbus TCP connection (simulator, gateways).
func New(src config.SourceConfig, ser config.SerialConfig) (Transport, error) {
	timeout := time.Duration(src.TimeoutMs) * time.Millisecond

	switch src.Mode {
	case "serial":
		return NewRTUTransport(RTUConfig{
			Port:     ser.Port,
			BaudRate: ser.BaudRate,
			DataBits: ser.DataBits,
			Parity:   ser.Parity,
			StopBits: ser.StopBits,
			Device:   src.DeviceAddress,
			Timeout:  timeout,
			Retries:  src.Retries,
		})
	case "tcp":
		return NewTCPTransport(TCPConfig{
			Endpoint: src.Endpoint,
			Device:   src.DeviceAddress,
			Timeout:  timeout,
		})
	}

	return nil, fmt.Errorf("transport: unknown source mode %q", src.Mode)
}

// unpackWords converts big-endian register payload bytes to words.
func unpackWords(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

// packWords converts words to big-endian payload bytes.
func packWords(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
