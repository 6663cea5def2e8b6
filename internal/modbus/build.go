// internal/modbus/build.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFunction is returned by BuildRequest for function codes
// other than 3, 4, 6 and 16.
var ErrUnsupportedFunction = errors.New("modbus: unsupported function code")

// Command is a wire-ready Modbus RTU request plus the display metadata the
// diagnostic panel shows alongside it. All hex strings are uppercase and
// derived from the same byte sequence.
type Command struct {
	FrameBytes []byte

	OriginalAddress int    // register address as supplied by the caller
	WireAddress     uint16 // zero-based address actually transmitted

	HexAddress  string // "0x" + 4 hex digits of WireAddress
	HighByteHex string // 2 hex digits
	LowByteHex  string // 2 hex digits

	HexFrameSpaced string // "01 03 00 00 ..."
	HexFrameConcat string // "01030000..." (transport query parameter form)
}

// WireAddress translates a conventional 4xxxx register number to the
// zero-based address transmitted on the wire. Values below 40001 are
// already wire-form and pass through unchanged. Oversized inputs truncate
// to 16 bits; out-of-range values are the caller's problem, never a panic.
func WireAddress(register int) uint16 {
	if register >= 40001 {
		register -= 40001
	}
	return uint16(register & 0xFFFF)
}

// BuildRequest assembles a Modbus RTU request frame.
//
// For reads (3/4) count is the number of registers requested, 1-125 by
// protocol. For write single (6) the value is values[0], or zero when values
// is empty; count is ignored as a value source. For write multiple (16)
// count registers are written, 1-123 by protocol, drawn from values with
// missing entries defaulting to zero.
//
// Range validation of device, register and count is the caller's contract;
// the builder masks instead of rejecting, matching wire byte semantics.
func BuildRequest(device uint8, fn FunctionCode, register int, count uint16, values []uint16) (Command, error) {
	if !fn.Supported() {
		return Command{}, fmt.Errorf("%w: %d", ErrUnsupportedFunction, uint8(fn))
	}

	wire := WireAddress(register)

	frame := make([]byte, 0, 9+2*int(count))
	frame = append(frame, device, byte(fn), byte(wire>>8), byte(wire&0xFF))

	switch fn {
	case ReadHoldingRegisters, ReadInputRegisters:
		frame = append(frame, byte(count>>8), byte(count&0xFF))

	case WriteSingleRegister:
		var v uint16
		if len(values) > 0 {
			v = values[0]
		}
		frame = append(frame, byte(v>>8), byte(v&0xFF))

	case WriteMultipleRegisters:
		// Resolve the optionally-absent, optionally-short values up front
		// into exactly count entries so byte emission has one shape.
		full := make([]uint16, count)
		copy(full, values)

		frame = append(frame, byte(count>>8), byte(count&0xFF), byte(int(count)*2&0xFF))
		for _, v := range full {
			frame = append(frame, byte(v>>8), byte(v&0xFF))
		}
	}

	frame = AppendCRC(frame)

	return Command{
		FrameBytes:      frame,
		OriginalAddress: register,
		WireAddress:     wire,
		HexAddress:      fmt.Sprintf("0x%04X", wire),
		HighByteHex:     fmt.Sprintf("%02X", byte(wire>>8)),
		LowByteHex:      fmt.Sprintf("%02X", byte(wire&0xFF)),
		HexFrameSpaced:  hexJoin(frame, " "),
		HexFrameConcat:  hexJoin(frame, ""),
	}, nil
}

func hexJoin(frame []byte, sep string) string {
	var b strings.Builder
	b.Grow(len(frame) * (2 + len(sep)))
	for i, by := range frame {
		if i > 0 {
			b.WriteString(sep)
		}
		fmt.Fprintf(&b, "%02X", by)
	}
	return b.String()
}
