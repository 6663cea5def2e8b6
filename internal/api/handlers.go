// internal/api/handlers.go
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/history"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/modbus"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/status"
)

const maxReadCount = 125

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	reading := s.latest.Get()
	if reading == nil {
		writeError(w, http.StatusServiceUnavailable, "no reading available yet")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	register, err := strconv.Atoi(r.PathValue("register"))
	if err != nil || register < 0 {
		writeError(w, http.StatusBadRequest, "register must be a non-negative integer")
		return
	}

	cmd, err := modbus.BuildRequest(s.device, modbus.ReadHoldingRegisters, register, 1, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	values, err := s.exchanger.ReadHoldingRegisters(register, 1)
	if err != nil {
		writeExchangeError(w, err)
		return
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadGateway, "empty response from device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"register":     register,
		"name":         meter.RegisterName(register),
		"wire_address": cmd.WireAddress,
		"hex_address":  cmd.HexAddress,
		"high_byte":    cmd.HighByteHex,
		"low_byte":     cmd.LowByteHex,
		"value":        values[0],
		"timestamp":    time.Now().UTC(),
	})
}

func (s *Server) handleReadRegisters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := strconv.Atoi(q.Get("start"))
	if err != nil || start < 0 {
		writeError(w, http.StatusBadRequest, "start must be a non-negative integer")
		return
	}

	count := 1
	if v := q.Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count < 1 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
	}
	if count > maxReadCount {
		count = maxReadCount
	}

	values, err := s.exchanger.ReadHoldingRegisters(start, uint16(count))
	if err != nil {
		writeExchangeError(w, err)
		return
	}

	registers := make([]map[string]any, len(values))
	for i, v := range values {
		registers[i] = map[string]any{
			"register": start + i,
			"name":     meter.RegisterName(start + i),
			"value":    v,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start":     start,
		"count":     count,
		"registers": registers,
		"timestamp": time.Now().UTC(),
	})
}

// handleModbusCommand sends a caller-supplied raw RTU frame and returns
// both the raw exchange and a decoded view of the response.
func (s *Server) handleModbusCommand(w http.ResponseWriter, r *http.Request) {
	raw := strings.ReplaceAll(r.URL.Query().Get("command"), " ", "")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "command parameter required")
		return
	}

	frame, err := hex.DecodeString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "command is not valid hex")
		return
	}
	if len(frame) < 4 {
		writeError(w, http.StatusBadRequest, "command frame too short")
		return
	}

	resp, err := s.exchanger.Exchange(frame)
	if err != nil {
		writeExchangeError(w, err)
		return
	}

	result := map[string]any{
		"id":        uuid.NewString(),
		"command":   frameView(frame),
		"response":  frameView(resp),
		"timestamp": time.Now().UTC(),
	}
	result["parsed"] = parseResponse(resp, frame)

	writeJSON(w, http.StatusOK, result)
}

func frameView(frame []byte) map[string]any {
	bytes := make([]int, len(frame))
	for i, b := range frame {
		bytes[i] = int(b)
	}
	return map[string]any{
		"bytes":  bytes,
		"hex":    hexSpaced(frame),
		"length": len(frame),
	}
}

func hexSpaced(frame []byte) string {
	parts := make([]string, len(frame))
	for i, b := range frame {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, " ")
}

// parseResponse decodes a response against the request frame that produced
// it. Decode failures become part of the view rather than HTTP errors: the
// diagnostic panel wants to show what came back either way.
func parseResponse(resp, request []byte) map[string]any {
	ctx := modbus.DecodeContext{
		Function:     modbus.FunctionCode(request[1]),
		StartAddress: int(request[2])<<8 | int(request[3]),
	}

	dec, err := modbus.Decode(resp, ctx)
	if err != nil {
		var exc *modbus.ExceptionError
		if errors.As(err, &exc) {
			return map[string]any{
				"type":    "exception",
				"code":    exc.Code,
				"message": modbus.ExceptionMessage(exc.Code),
			}
		}
		return map[string]any{
			"type":  "malformed",
			"error": err.Error(),
		}
	}

	switch v := dec.(type) {
	case modbus.ReadRegistersResponse:
		return map[string]any{
			"type":       "read_registers",
			"device":     v.Device,
			"function":   uint8(v.Function),
			"byte_count": v.ByteCount,
			"registers":  v.Registers,
		}
	case modbus.WriteSingleResponse:
		return map[string]any{
			"type":    "write_single",
			"device":  v.Device,
			"address": v.Address,
			"value":   v.Value,
		}
	case modbus.WriteMultipleResponse:
		return map[string]any{
			"type":    "write_multiple",
			"device":  v.Device,
			"address": v.Address,
			"count":   v.Count,
		}
	case modbus.UnknownFunctionResponse:
		return map[string]any{
			"type":     "unknown_function",
			"device":   v.Device,
			"function": v.Function,
			"raw":      hexSpaced(v.Raw),
		}
	}
	return map[string]any{"type": "unknown"}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()

	body := map[string]any{
		"status":           status.HealthName(snap.Health),
		"health_code":      snap.Health,
		"last_error_code":  snap.LastErrorCode,
		"last_error":       snap.LastError,
		"seconds_in_error": snap.SecondsInError,
	}
	if !snap.LastGoodPoll.IsZero() {
		body["last_good_poll"] = snap.LastGoodPoll.UTC()
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.store.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []history.Row{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(rows),
		"readings": rows,
	})
}

// writeExchangeError maps transport failures: device exceptions carry
// their Modbus code, everything else is a gateway failure.
func writeExchangeError(w http.ResponseWriter, err error) {
	var exc *modbus.ExceptionError
	if errors.As(err, &exc) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   exc.Error(),
			"code":    exc.Code,
			"message": modbus.ExceptionMessage(exc.Code),
		})
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
