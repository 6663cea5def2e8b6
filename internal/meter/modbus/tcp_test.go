// internal/meter/modbus/tcp_test.go
package modbus

import (
	"bytes"
	"errors"
	"testing"

	gm "github.com/goburrow/modbus"

	pmb "github.com/InfinityNT/power-meter-monitor-nologin/internal/modbus"
)

// fakeClient overrides the goburrow methods the bridge uses; the embedded
// interface panics on anything unexpected.
type fakeClient struct {
	gm.Client

	holding map[uint16]uint16
	written map[uint16]uint16
	failErr error
}

func (f *fakeClient) ReadHoldingRegisters(addr, qty uint16) ([]byte, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]byte, 0, 2*qty)
	for i := uint16(0); i < qty; i++ {
		v := f.holding[addr+i]
		out = append(out, byte(v>>8), byte(v))
	}
	return out, nil
}

func (f *fakeClient) WriteSingleRegister(addr, value uint16) ([]byte, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.written[addr] = value
	return nil, nil
}

func (f *fakeClient) WriteMultipleRegisters(addr, qty uint16, value []byte) ([]byte, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	for i, v := range unpackWords(value) {
		f.written[addr+uint16(i)] = v
	}
	return nil, nil
}

func bridged(f *fakeClient) *TCPTransport {
	return &TCPTransport{client: f}
}

func TestTCPReadHolding_ConventionalTranslation(t *testing.T) {
	f := &fakeClient{holding: map[uint16]uint16{4000: 520, 4001: 777}}
	tr := bridged(f)

	regs, err := tr.ReadHoldingRegisters(44001, 2)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters err=%v", err)
	}
	if len(regs) != 2 || regs[0] != 520 || regs[1] != 777 {
		t.Fatalf("regs = %v, want [520 777]", regs)
	}
}

func TestTCPExchange_ReadBridging(t *testing.T) {
	f := &fakeClient{holding: map[uint16]uint16{0: 42, 1: 43}}
	tr := bridged(f)

	cmd, err := pmb.BuildRequest(1, pmb.ReadHoldingRegisters, 0, 2, nil)
	if err != nil {
		t.Fatalf("BuildRequest err=%v", err)
	}

	resp, err := tr.Exchange(cmd.FrameBytes)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}

	want := pmb.AppendCRC([]byte{0x01, 0x03, 0x04, 0x00, 0x2A, 0x00, 0x2B})
	if !bytes.Equal(resp, want) {
		t.Fatalf("resp = % X, want % X", resp, want)
	}

	// and the synthesized frame decodes cleanly
	dec, err := pmb.Decode(resp, pmb.DecodeContext{Function: pmb.ReadHoldingRegisters})
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	rr := dec.(pmb.ReadRegistersResponse)
	if rr.Registers[0].Value != 42 || rr.Registers[1].Value != 43 {
		t.Fatalf("decoded registers = %+v", rr.Registers)
	}
}

func TestTCPExchange_WriteSingleEcho(t *testing.T) {
	f := &fakeClient{written: map[uint16]uint16{}}
	tr := bridged(f)

	cmd, err := pmb.BuildRequest(1, pmb.WriteSingleRegister, 44003, 1, []uint16{99})
	if err != nil {
		t.Fatalf("BuildRequest err=%v", err)
	}

	resp, err := tr.Exchange(cmd.FrameBytes)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}
	if !bytes.Equal(resp, cmd.FrameBytes) {
		t.Fatalf("write confirmation must echo the request")
	}
	if f.written[4002] != 99 {
		t.Fatalf("written = %v, want 99 at wire 4002", f.written)
	}
}

func TestTCPExchange_WriteMultiple(t *testing.T) {
	f := &fakeClient{written: map[uint16]uint16{}}
	tr := bridged(f)

	cmd, err := pmb.BuildRequest(1, pmb.WriteMultipleRegisters, 40001, 2, []uint16{7, 8})
	if err != nil {
		t.Fatalf("BuildRequest err=%v", err)
	}

	resp, err := tr.Exchange(cmd.FrameBytes)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}

	want := pmb.AppendCRC([]byte{0x01, 0x10, 0x00, 0x00, 0x00, 0x02})
	if !bytes.Equal(resp, want) {
		t.Fatalf("resp = % X, want % X", resp, want)
	}
	if f.written[0] != 7 || f.written[1] != 8 {
		t.Fatalf("written = %v", f.written)
	}
}

func TestTCPExchange_ExceptionSynthesis(t *testing.T) {
	f := &fakeClient{failErr: &gm.ModbusError{FunctionCode: 0x83, ExceptionCode: 2}}
	tr := bridged(f)

	cmd, err := pmb.BuildRequest(1, pmb.ReadHoldingRegisters, 0, 1, nil)
	if err != nil {
		t.Fatalf("BuildRequest err=%v", err)
	}

	resp, err := tr.Exchange(cmd.FrameBytes)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}

	want := pmb.AppendCRC([]byte{0x01, 0x83, 0x02})
	if !bytes.Equal(resp, want) {
		t.Fatalf("resp = % X, want % X", resp, want)
	}

	// decoding the synthesized frame yields the device exception
	_, err = pmb.Decode(resp, pmb.DecodeContext{Function: pmb.ReadHoldingRegisters})
	var exc *pmb.ExceptionError
	if !errors.As(err, &exc) || exc.Code != 2 {
		t.Fatalf("decode err=%v, want exception code 2", err)
	}
}

func TestTCPExchange_RejectsBadCRC(t *testing.T) {
	tr := bridged(&fakeClient{})

	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	if _, err := tr.Exchange(frame); err == nil {
		t.Fatal("expected CRC rejection")
	}
}

func TestMapClientError(t *testing.T) {
	err := mapClientError(&gm.ModbusError{FunctionCode: 0x83, ExceptionCode: 4})
	var exc *pmb.ExceptionError
	if !errors.As(err, &exc) || exc.Code != 4 {
		t.Fatalf("err=%v, want exception code 4", err)
	}

	plain := errors.New("socket closed")
	if got := mapClientError(plain); got != plain {
		t.Fatalf("plain errors must pass through, got %v", got)
	}
}
