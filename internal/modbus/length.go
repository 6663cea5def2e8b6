// internal/modbus/length.go
package modbus

// maxRTUFrame is the RTU frame size ceiling, used as the fallback read
// length when the request is too short or unknown to size precisely.
const maxRTUFrame = 256

// ExpectedResponseLength returns how many bytes the device will send in
// reply to the given request frame, CRC included.
func ExpectedResponseLength(frame []byte) int {
	if len(frame) < 2 {
		return maxRTUFrame
	}

	switch FunctionCode(frame[1]) {
	case ReadHoldingRegisters, ReadInputRegisters:
		// address(1) + function(1) + byte count(1) + data(2n) + crc(2)
		if len(frame) >= 6 {
			count := int(frame[4])<<8 | int(frame[5])
			return 5 + 2*count
		}
	case WriteSingleRegister:
		// echo of the request
		return 8
	case WriteMultipleRegisters:
		// address(1) + function(1) + start(2) + count(2) + crc(2)
		return 8
	}

	return maxRTUFrame
}

// VerifyCRC reports whether the trailing two bytes of frame are the correct
// CRC of everything before them.
func VerifyCRC(frame []byte) bool {
	if len(frame) < 4 {
		return false
	}
	crc := CRC16(frame[:len(frame)-2])
	return frame[len(frame)-2] == byte(crc&0xFF) && frame[len(frame)-1] == byte(crc>>8)
}
