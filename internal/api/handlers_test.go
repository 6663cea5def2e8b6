// internal/api/handlers_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/history"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/modbus"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/status"
)

type fakeExchanger struct {
	regs map[int]uint16
	err  error

	lastFrame []byte
	response  []byte
}

func (f *fakeExchanger) ReadHoldingRegisters(register int, count uint16) ([]uint16, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = f.regs[register+i]
	}
	return out, nil
}

func (f *fakeExchanger) Exchange(frame []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastFrame = frame
	return f.response, nil
}

func testServer(ex *fakeExchanger, store *history.Store) *Server {
	latest := &meter.Latest{}
	latest.Set(&meter.Reading{
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Scalar:    3,
		Frequency: 60.0,
		System:    meter.SystemTotals{PowerKW: 52.5},
	})
	return NewServer(latest, ex, status.NewTracker(), store, NewMetrics(), 1)
}

func get(t *testing.T, h http.Handler, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: invalid JSON %q: %v", url, rec.Body.String(), err)
	}
	return rec, body
}

func TestHandlePower(t *testing.T) {
	h := testServer(&fakeExchanger{}, nil).Handler()

	rec, body := get(t, h, "/api/power")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
	sys := body["system"].(map[string]any)
	if sys["power_kw"].(float64) != 52.5 {
		t.Fatalf("power_kw = %v", sys["power_kw"])
	}
}

func TestHandlePower_NoReading(t *testing.T) {
	srv := NewServer(&meter.Latest{}, &fakeExchanger{}, status.NewTracker(), nil, NewMetrics(), 1)

	rec, _ := get(t, srv.Handler(), "/api/power")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRegister(t *testing.T) {
	ex := &fakeExchanger{regs: map[int]uint16{44001: 520}}
	h := testServer(ex, nil).Handler()

	rec, body := get(t, h, "/api/register/44001")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	if body["value"].(float64) != 520 {
		t.Fatalf("value = %v", body["value"])
	}
	if body["wire_address"].(float64) != 4000 {
		t.Fatalf("wire_address = %v", body["wire_address"])
	}
	if body["hex_address"].(string) != "0x0FA0" {
		t.Fatalf("hex_address = %v", body["hex_address"])
	}
	if body["name"].(string) != meter.RegisterName(44001) {
		t.Fatalf("name = %v", body["name"])
	}
}

func TestHandleRegister_BadInput(t *testing.T) {
	h := testServer(&fakeExchanger{}, nil).Handler()
	rec, _ := get(t, h, "/api/register/abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReadRegisters_ClampsCount(t *testing.T) {
	ex := &fakeExchanger{regs: map[int]uint16{}}
	h := testServer(ex, nil).Handler()

	rec, body := get(t, h, "/api/read_registers?start=44001&count=500")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["count"].(float64) != 125 {
		t.Fatalf("count = %v, want clamp to 125", body["count"])
	}
	if n := len(body["registers"].([]any)); n != 125 {
		t.Fatalf("registers = %d", n)
	}
}

func TestHandleModbusCommand(t *testing.T) {
	resp := modbus.AppendCRC([]byte{0x01, 0x03, 0x02, 0x02, 0x08})
	ex := &fakeExchanger{response: resp}
	h := testServer(ex, nil).Handler()

	rec, body := get(t, h, "/api/modbus_command?command=01%2003%200F%20A0%2000%2001%20A7%200A")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	if body["id"].(string) == "" {
		t.Fatal("missing exchange id")
	}
	if len(ex.lastFrame) != 8 {
		t.Fatalf("frame sent = % X", ex.lastFrame)
	}

	parsed := body["parsed"].(map[string]any)
	if parsed["type"].(string) != "read_registers" {
		t.Fatalf("parsed = %v", parsed)
	}
	regs := parsed["registers"].([]any)
	first := regs[0].(map[string]any)
	if first["value"].(float64) != 520 {
		t.Fatalf("decoded value = %v", first["value"])
	}
	// display numbering starts at the request's wire address
	if first["register"].(float64) != 4000 {
		t.Fatalf("decoded register = %v", first["register"])
	}

	cmdView := body["command"].(map[string]any)
	if !strings.HasPrefix(cmdView["hex"].(string), "01 03 0F A0") {
		t.Fatalf("command hex = %v", cmdView["hex"])
	}
}

func TestHandleModbusCommand_ExceptionParsed(t *testing.T) {
	ex := &fakeExchanger{response: modbus.AppendCRC([]byte{0x01, 0x83, 0x02})}
	h := testServer(ex, nil).Handler()

	rec, body := get(t, h, "/api/modbus_command?command=010300000001840A")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	parsed := body["parsed"].(map[string]any)
	if parsed["type"].(string) != "exception" {
		t.Fatalf("parsed = %v", parsed)
	}
	if parsed["message"].(string) != "Illegal Data Address" {
		t.Fatalf("message = %v", parsed["message"])
	}
}

func TestHandleModbusCommand_BadHex(t *testing.T) {
	h := testServer(&fakeExchanger{}, nil).Handler()
	rec, _ := get(t, h, "/api/modbus_command?command=zz")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(&fakeExchanger{}, nil)
	srv.tracker.Observe(nil)

	rec, body := get(t, srv.Handler(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"].(string) != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
	if _, ok := body["last_good_poll"]; !ok {
		t.Fatal("missing last_good_poll")
	}
}

func TestHandleHistory(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history open err=%v", err)
	}
	defer store.Close()

	if err := store.Append(&meter.Reading{
		Timestamp: time.Now(),
		System:    meter.SystemTotals{PowerKW: 49.0},
	}); err != nil {
		t.Fatalf("append err=%v", err)
	}

	h := testServer(&fakeExchanger{}, store).Handler()
	rec, body := get(t, h, "/api/history?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v", body["count"])
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	h := testServer(&fakeExchanger{}, nil).Handler()
	rec, _ := get(t, h, "/api/history")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(&fakeExchanger{}, nil)
	srv.metrics.SetHealth(status.HealthOK)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "powermeter_health 1") {
		t.Fatalf("metrics output missing health gauge:\n%s", rec.Body.String())
	}
}

func TestWebHandler_RootRedirect(t *testing.T) {
	h := WebHandler(t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/monitor.html" {
		t.Fatalf("Location = %q", loc)
	}
}
