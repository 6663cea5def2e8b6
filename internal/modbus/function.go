// internal/modbus/function.go
package modbus

import "fmt"

// FunctionCode is a Modbus function code. Only the four codes the meter
// speaks are supported for request building; anything else decodes as an
// unknown function on the receive path.
type FunctionCode uint8

const (
	ReadHoldingRegisters   FunctionCode = 3
	ReadInputRegisters     FunctionCode = 4
	WriteSingleRegister    FunctionCode = 6
	WriteMultipleRegisters FunctionCode = 16
)

// Supported reports whether requests with this function code can be built.
func (f FunctionCode) Supported() bool {
	switch f {
	case ReadHoldingRegisters, ReadInputRegisters, WriteSingleRegister, WriteMultipleRegisters:
		return true
	}
	return false
}

func (f FunctionCode) String() string {
	switch f {
	case ReadHoldingRegisters:
		return "Read Holding Registers"
	case ReadInputRegisters:
		return "Read Input Registers"
	case WriteSingleRegister:
		return "Write Single Register"
	case WriteMultipleRegisters:
		return "Write Multiple Registers"
	}
	return fmt.Sprintf("Function %d", uint8(f))
}

// exceptionBit is set on the function code of a device exception response.
const exceptionBit = 0x80
