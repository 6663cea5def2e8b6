// internal/api/server.go
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/InfinityNT/power-meter-monitor-nologin/internal/history"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/meter"
	"github.com/InfinityNT/power-meter-monitor-nologin/internal/status"
)

// Exchanger is the slice of the transport the API needs: typed reads for
// the register endpoints and raw frame exchange for the diagnostic panel.
type Exchanger interface {
	ReadHoldingRegisters(register int, count uint16) ([]uint16, error)
	Exchange(frame []byte) ([]byte, error)
}

// Server owns the API handler and its collaborators.
type Server struct {
	latest    *meter.Latest
	exchanger Exchanger
	tracker   *status.Tracker
	store     *history.Store // nil when history is disabled
	metrics   *Metrics
	device    uint8
}

func NewServer(latest *meter.Latest, ex Exchanger, tr *status.Tracker, store *history.Store, m *Metrics, device uint8) *Server {
	return &Server{
		latest:    latest,
		exchanger: ex,
		tracker:   tr,
		store:     store,
		metrics:   m,
		device:    device,
	}
}

// Handler builds the API mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/power", s.handlePower)
	mux.HandleFunc("GET /api/register/{register}", s.handleRegister)
	mux.HandleFunc("GET /api/read_registers", s.handleReadRegisters)
	mux.HandleFunc("GET /api/modbus_command", s.handleModbusCommand)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return mux
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts
// down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown (%s): %v", addr, err)
		}
		return nil
	}
}
