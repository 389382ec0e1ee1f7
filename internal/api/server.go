// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/stockanalyzer/internal/api/handler/api"
	"github.com/newthinker/stockanalyzer/internal/api/job"
	"github.com/newthinker/stockanalyzer/internal/api/middleware"
	"github.com/newthinker/stockanalyzer/internal/api/response"
	"github.com/newthinker/stockanalyzer/internal/app"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/api/health"

// Server represents the HTTP server of the backtest service
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies holds the services the handlers call into.
type Dependencies struct {
	App      *app.App
	Jobs     *job.Store
	Metrics  *metrics.Registry // nil disables metrics
	Defaults backtest.Params

	// BaseContext bounds background jobs. Defaults to context.Background.
	BaseContext context.Context
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if deps.Jobs == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}

	s := &Server{
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes(cfg, deps)

	// Outermost first: logging, metrics, auth, routes
	var h http.Handler = s.mux
	h = middleware.APIKeyAuth(cfg.APIKey, healthPath)(h)
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	var jobMetrics apihandler.JobMetrics
	if deps.Metrics != nil {
		jobMetrics = deps.Metrics
	}

	backtests := apihandler.NewBacktestHandler(deps.App, deps.Defaults)
	stocks := apihandler.NewStocksHandler(deps.BaseContext, deps.Jobs, deps.App.History(), jobMetrics, s.logger)
	jobs := apihandler.NewJobsHandler(deps.Jobs)

	s.mux.HandleFunc("GET "+healthPath, s.handleHealth)

	s.mux.HandleFunc("POST /api/backtest/{symbol}", backtests.Run)
	s.mux.HandleFunc("GET /api/backtests/{id}", backtests.Get)

	s.mux.HandleFunc("POST /api/stocks/import", stocks.Import)
	s.mux.HandleFunc("POST /api/stocks/history", stocks.History)
	s.mux.HandleFunc("GET /api/jobs/{id}", jobs.GetStatus)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
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
