// Package server exposes the de-identification engine over HTTP: scan
// submission, run retrieval, preset inspection, metrics, and the event
// WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/deidscan/deidscan/internal/cache"
	"github.com/deidscan/deidscan/internal/config"
	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/observability"
	"github.com/deidscan/deidscan/internal/pii"
	"github.com/deidscan/deidscan/internal/store"
	"github.com/deidscan/deidscan/internal/websocket"
)

// Server is the HTTP front end of the scan service.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	baseLog  *logger.Logger
	registry *pii.Registry
	metrics  *observability.Metrics
	router   *mux.Router
	server   *http.Server
	wsHub    *websocket.Hub
	limiter  *rateLimiter

	// Optional backends; nil when disabled in config.
	runCache *cache.RunCache
	runStore *store.Store
}

// Options carries the optional backends wired in by main.
type Options struct {
	RunCache *cache.RunCache
	RunStore *store.Store
}

// New creates the server and wires its routes.
func New(cfg *config.Config, log *logger.Logger, opts Options) (*Server, error) {
	router := mux.NewRouter()

	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		baseLog:  log,
		registry: pii.NewRegistry(),
		metrics:  observability.New(),
		router:   router,
		wsHub:    websocket.NewHub(log),
		runCache: opts.RunCache,
		runStore: opts.RunStore,
	}

	if cfg.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.RateLimit)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	if s.limiter != nil {
		api.Use(s.rateLimitMiddleware)
	}

	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/report", s.handleRunReport).Methods("GET")
}

// Start starts the HTTP server and the WebSocket hub.
func (s *Server) Start() error {
	s.logger.Info("Starting scan server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("cache", s.runCache != nil),
		zap.Bool("store", s.runStore != nil),
		zap.Bool("rate_limit", s.limiter != nil),
	)

	if s.config.WebSocket.Enabled {
		go s.wsHub.Run()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scan server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket hands the connection to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// Hub returns the WebSocket hub for broadcasting events.
func (s *Server) Hub() *websocket.Hub {
	return s.wsHub
}
