// internal/exporter/server.go
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/telemetry"
)

// Server exposes /metrics, /healthz and /api/v1/status.
type Server struct {
	listen    string
	router    *mux.Router
	collector *Collector
	gatherer  prometheus.Gatherer
	device    string
	log       zerolog.Logger
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Device  string             `json:"device"`
	UnitID  uint8              `json:"unit_id"`
	At      *time.Time         `json:"at,omitempty"`
	Status  status.Snapshot    `json:"status"`
	Reading *telemetry.Reading `json:"reading,omitempty"`
	Tuple   []float64          `json:"tuple,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func NewServer(listen, device string, c *Collector, g prometheus.Gatherer, log zerolog.Logger) *Server {
	s := &Server{
		listen:    listen,
		router:    mux.NewRouter(),
		collector: c,
		gatherer:  g,
		device:    device,
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("listen", s.listen).Msg("http server started")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("exporter: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info().Msg("http server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("exporter: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("exporter: %w", err)
	}
	return nil
}

// handleHealth reports 503 while the device is in error.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, snap := s.collector.Last()
	if snap.Health == status.HealthError {
		http.Error(w, "device error", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatus returns the last sample; ?refresh=1 samples first.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var (
		res  telemetry.Result
		snap status.Snapshot
	)
	if r.URL.Query().Get("refresh") == "1" {
		res, snap = s.collector.Sample()
	} else {
		res, snap = s.collector.Last()
	}

	body := StatusResponse{
		Device: s.device,
		UnitID: s.collector.src.UnitID(),
		Status: snap,
	}
	if !res.At.IsZero() {
		at := res.At
		body.At = &at
	}
	switch {
	case res.Err != nil:
		body.Error = res.Err.Error()
	case !res.At.IsZero():
		reading := res.Reading
		body.Reading = &reading
		body.Tuple = reading.Tuple()
	}

	s.writeJSON(w, body, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}
