// Package web provides the HTTP server and JSON handlers for stop lookups.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/stopload/internal/config"
	"github.com/JonMunkholm/stopload/internal/core"
	mw "github.com/JonMunkholm/stopload/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StopFinder is the read side of the stops table. Satisfied by *core.Store.
type StopFinder interface {
	GetStop(ctx context.Context, id string) (core.Stop, error)
	FindByCode(ctx context.Context, code string, limit int) ([]core.Stop, error)
	FindByName(ctx context.Context, prefix string, limit int) ([]core.Stop, error)
	Nearest(ctx context.Context, lat, lon float64) (core.NearestStop, error)
	Count(ctx context.Context) (int64, error)
}

// Pinger reports database reachability. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PredictionSource fetches upcoming arrivals. Satisfied by *core.PredictionClient.
type PredictionSource interface {
	Predictions(ctx context.Context, routeTag, stopID string) ([]core.Prediction, error)
}

// MetricsExporter is what the server needs from *metrics.Metrics.
type MetricsExporter interface {
	mw.RequestObserver
	Handler() http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics instruments every request and serves m at path.
func WithMetrics(m MetricsExporter, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsPath = path
	}
}

// WithPredictions enables GET /api/predictions backed by p.
func WithPredictions(p PredictionSource) Option {
	return func(s *Server) {
		s.predictions = p
	}
}

// Server is the HTTP server for the stops lookup API.
type Server struct {
	stops  StopFinder
	db     Pinger
	cfg    config.ServerConfig
	router *chi.Mux
	server *http.Server

	metrics     MetricsExporter
	metricsPath string
	predictions PredictionSource
}

// NewServer creates a new Server instance.
func NewServer(stops StopFinder, db Pinger, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		stops:  stops,
		db:     db,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.TrustedProxies))
	if s.metrics != nil {
		s.router.Use(mw.Metrics(s.metrics))
	}
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle(s.metricsPath, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.APIKeys))

		r.Get("/stops", s.handleListStops)
		r.Get("/stops/count", s.handleCountStops)
		r.Get("/stops/nearest", s.handleNearestStop)
		r.Get("/stops/{stopID}", s.handleGetStop)

		if s.predictions != nil {
			r.Get("/predictions", s.handlePredictions)
		}
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondBadRequest(w, r, http.StatusNotFound, "route not found")
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
