// Package server provides the HTTP server and routing for the portfolio optimizer.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/aristath/quantum-portfolio/internal/events"
	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aristath/quantum-portfolio/internal/modules/runs"
	"github.com/aristath/quantum-portfolio/pkg/logger"
)

// defaultRequestTimeout bounds API requests when no timeout is configured.
const defaultRequestTimeout = 60 * time.Second

// Optimizer runs and records one optimization
type Optimizer interface {
	Run(ctx context.Context, assets []string, opts runs.RunOptions) (*pipeline.Report, error)
}

// RunStore reads the run history
type RunStore interface {
	Get(id string) (*runs.Record, error)
	List(limit int) ([]runs.Record, error)
}

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	Port           int
	DevMode        bool
	Version        string
	RequestTimeout time.Duration // optimize requests run up to the pipeline timeout
	Optimizer      Optimizer
	Runs           RunStore
	Prices         domain.PriceHistoryProvider
	Bus            *events.Bus
	Database       HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       Config
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       logger.Component(cfg.Log, "server"),
		cfg:       cfg,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// No read or write deadline on the connection: websocket subscribers
	// outlive both, and API routes are bounded by the timeout middleware.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5, "application/json"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Websocket stream stays outside the request timeout
		r.Get("/events/ws", s.handleEventsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Route("/portfolios", func(r chi.Router) {
				r.Post("/optimize", s.handleOptimize)
				r.Get("/history/{symbol}", s.handlePriceHistory)
			})

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Get("/{id}", s.handleGetRun)
			})

			r.Get("/system/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
