package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/assessment"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observation"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Assessor is the engine surface exposed over HTTP. *assessment.Engine
// satisfies it.
type Assessor interface {
	Assess(ctx context.Context, req assessment.Request) (assessment.Report, error)
	Forecast(ctx context.Context, req assessment.WeatherRequest) (observation.WeatherResult, error)
	Satellite(ctx context.Context, req assessment.SatelliteRequest) (observation.SatelliteResult, error)
	Strategy() domain.Strategy
}

// Server exposes the assessment API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	engine     Assessor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes, /healthz, /readyz,
// and /metrics.
func NewServer(addr string, engine Assessor, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: engine,
		logger: logger,
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodPost)
	api.HandleFunc("/satellite", s.handleSatellite).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", sharedobs.ReadinessHandler(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req assessment.Request
	if !s.decode(w, r, &req) {
		return
	}
	report, err := s.engine.Assess(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req assessment.WeatherRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.engine.Forecast(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bundle := res.Bundle
	bundle.Source = res.Source
	sharedobs.WriteJSON(w, http.StatusOK, bundle)
}

type satelliteResponse struct {
	Location domain.Coordinate          `json:"location"`
	Indices  domain.SatelliteObservation `json:"indices"`
	Source   domain.DataSource          `json:"source"`
}

func (s *Server) handleSatellite(w http.ResponseWriter, r *http.Request) {
	var req assessment.SatelliteRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.engine.Satellite(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, satelliteResponse{
		Location: domain.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Indices:  res.Observation,
		Source:   res.Source,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"strategy": string(s.engine.Strategy()),
	})
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid JSON body: %v", err),
		})
		return false
	}
	return true
}

// writeError maps validation failures to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
