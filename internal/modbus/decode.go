// internal/modbus/decode.go
package modbus

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response is too short or its
// length fields disagree with the actual byte sequence.
var ErrMalformedResponse = errors.New("modbus: malformed response")

// ExceptionError is a device-reported Modbus exception: the echoed function
// code has its high bit set and the next byte carries the exception code.
// The code is decoded but not interpreted beyond attaching the standard text.
type ExceptionError struct {
	Function uint8 // function code as echoed, high bit set
	Code     uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: device exception %d (%s)", e.Code, ExceptionMessage(e.Code))
}

// ModbusCode exposes the exception code for generic error-code extraction.
func (e *ExceptionError) ModbusCode() uint16 { return uint16(e.Code) }

// ExceptionMessage returns the standard text for a Modbus exception code.
func ExceptionMessage(code uint8) string {
	switch code {
	case 1:
		return "Illegal Function"
	case 2:
		return "Illegal Data Address"
	case 3:
		return "Illegal Data Value"
	case 4:
		return "Slave Device Failure"
	case 5:
		return "Acknowledge"
	case 6:
		return "Slave Device Busy"
	case 8:
		return "Memory Parity Error"
	case 10:
		return "Gateway Path Unavailable"
	case 11:
		return "Gateway Target Device Failed to Respond"
	}
	return "Unknown Error"
}

// DecodeContext carries request parameters the response frame does not echo.
// Read responses (3/4) contain no register address, so the caller must
// supply the original request's starting register for display numbering.
type DecodeContext struct {
	Function     FunctionCode
	StartAddress int // starting register of the request, read functions only
}

// DecodedResponse is one of ReadRegistersResponse, WriteSingleResponse,
// WriteMultipleResponse or UnknownFunctionResponse.
type DecodedResponse interface {
	isDecodedResponse()
}

// RegisterValue is one decoded register with its display number.
type RegisterValue struct {
	Register int    `json:"register"`
	Value    uint16 `json:"value"`
}

// ReadRegistersResponse is the decoded form of a function 3/4 response.
type ReadRegistersResponse struct {
	Device    uint8
	Function  FunctionCode
	ByteCount int
	Registers []RegisterValue
}

// WriteSingleResponse is the decoded confirmation of a function 6 request.
type WriteSingleResponse struct {
	Device  uint8
	Address uint16
	Value   uint16
}

// WriteMultipleResponse is the decoded confirmation of a function 16 request.
type WriteMultipleResponse struct {
	Device  uint8
	Address uint16
	Count   uint16
}

// UnknownFunctionResponse carries a response whose function code is not one
// of the four supported values. Not an error: callers may still want to
// display the raw bytes.
type UnknownFunctionResponse struct {
	Device   uint8
	Function uint8
	Raw      []byte
}

func (ReadRegistersResponse) isDecodedResponse()   {}
func (WriteSingleResponse) isDecodedResponse()     {}
func (WriteMultipleResponse) isDecodedResponse()   {}
func (UnknownFunctionResponse) isDecodedResponse() {}

// Decode parses a raw Modbus RTU response byte sequence. It never mutates
// resp and never reads out of bounds; structural inconsistencies surface as
// ErrMalformedResponse and device exceptions as *ExceptionError. Trailing
// bytes (the frame CRC) are tolerated.
func Decode(resp []byte, ctx DecodeContext) (DecodedResponse, error) {
	if len(resp) < 3 {
		return nil, fmt.Errorf("%w: %d bytes, need at least 3", ErrMalformedResponse, len(resp))
	}

	device := resp[0]
	fn := resp[1]

	if fn&exceptionBit != 0 {
		return nil, &ExceptionError{Function: fn, Code: resp[2]}
	}

	switch FunctionCode(fn) {
	case ReadHoldingRegisters, ReadInputRegisters:
		byteCount := int(resp[2])
		if byteCount%2 != 0 {
			return nil, fmt.Errorf("%w: odd byte count %d", ErrMalformedResponse, byteCount)
		}
		if len(resp) < 3+byteCount {
			return nil, fmt.Errorf("%w: byte count %d exceeds %d remaining bytes",
				ErrMalformedResponse, byteCount, len(resp)-3)
		}

		n := byteCount / 2
		regs := make([]RegisterValue, n)
		for i := 0; i < n; i++ {
			regs[i] = RegisterValue{
				Register: ctx.StartAddress + i,
				Value:    uint16(resp[3+2*i])<<8 | uint16(resp[4+2*i]),
			}
		}
		return ReadRegistersResponse{
			Device:    device,
			Function:  FunctionCode(fn),
			ByteCount: byteCount,
			Registers: regs,
		}, nil

	case WriteSingleRegister:
		if len(resp) < 6 {
			return nil, fmt.Errorf("%w: write single confirmation needs 6 bytes, got %d",
				ErrMalformedResponse, len(resp))
		}
		return WriteSingleResponse{
			Device:  device,
			Address: uint16(resp[2])<<8 | uint16(resp[3]),
			Value:   uint16(resp[4])<<8 | uint16(resp[5]),
		}, nil

	case WriteMultipleRegisters:
		if len(resp) < 6 {
			return nil, fmt.Errorf("%w: write multiple confirmation needs 6 bytes, got %d",
				ErrMalformedResponse, len(resp))
		}
		return WriteMultipleResponse{
			Device:  device,
			Address: uint16(resp[2])<<8 | uint16(resp[3]),
			Count:   uint16(resp[4])<<8 | uint16(resp[5]),
		}, nil
	}

	raw := make([]byte, len(resp))
	copy(raw, resp)
	return UnknownFunctionResponse{Device: device, Function: fn, Raw: raw}, nil
}
