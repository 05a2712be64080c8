// Package api exposes scans over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/momentum/internal/api/handler"
	"github.com/newthinker/momentum/internal/api/job"
	"github.com/newthinker/momentum/internal/api/middleware"
	"github.com/newthinker/momentum/internal/api/response"
	"github.com/newthinker/momentum/internal/metrics"
	"github.com/newthinker/momentum/internal/signal"
	"github.com/newthinker/momentum/internal/storage/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies are the collaborators the handlers use.
type Dependencies struct {
	Scanner     handler.Scanner
	Reports     report.Store
	Jobs        *job.Store
	Engine      *signal.Engine
	BuyingPower decimal.Decimal
	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *metrics.Registry
}

// Server is the HTTP front of the scanner
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Scanner == nil || deps.Reports == nil {
		return nil, fmt.Errorf("api: scanner and report store are required")
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	s := &Server{logger: logger, mux: http.NewServeMux()}
	s.routes(cfg, deps)

	var h http.Handler = s.mux
	h = middleware.APIKeyAuth(cfg.APIKey, "/api/health", cfg.MetricsPath)(h)
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config, deps Dependencies) {
	scans := handler.NewScansHandler(deps.Scanner, deps.Reports, deps.Jobs, s.logger)
	assess := handler.NewAssessHandler(deps.Engine, deps.BuyingPower)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/scan/latest", scans.Latest)
	s.mux.HandleFunc("POST /api/scan", scans.Trigger)
	s.mux.HandleFunc("GET /api/scans", scans.List)
	s.mux.HandleFunc("GET /api/scans/{id}", scans.Get)
	s.mux.HandleFunc("GET /api/jobs/{id}", scans.Job)
	s.mux.HandleFunc("POST /api/assess", assess.Assess)

	if deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
