package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinhantha/kutt/internal/service"
)

// Server represents the HTTP server
type Server struct {
	handler *Handler
	server  *http.Server
	port    string
	logger  *slog.Logger
}

// NewRouter wires the handlers onto a router wrapped in the logging and metrics middleware
func NewRouter(handler *Handler, logger *slog.Logger, verbose bool) http.Handler {
	router := mux.NewRouter()

	// API endpoints
	router.HandleFunc("/api/links", handler.ListLinks).Methods(http.MethodGet)
	router.HandleFunc("/api/links", handler.CreateLink).Methods(http.MethodPost)
	router.HandleFunc("/api/links/batch-delete", handler.BatchDeleteLinks).Methods(http.MethodPost)
	router.HandleFunc("/api/links/{id:[0-9]+}", handler.UpdateLink).Methods(http.MethodPatch)
	router.HandleFunc("/api/links/{id:[0-9]+}", handler.DeleteLink).Methods(http.MethodDelete)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)

	// Redirect endpoint (catch-all)
	router.HandleFunc("/{address}", handler.Redirect).Methods(http.MethodGet, http.MethodHead)

	// Logging is outermost so it sees the final status
	var finalHandler http.Handler = router
	finalHandler = MetricsMiddleware(finalHandler)
	finalHandler = NewLoggingMiddleware(logger, verbose).Middleware(finalHandler)
	return finalHandler
}

// NewServer creates a new HTTP server
func NewServer(resolver service.Resolver, port, defaultDomain string, verbose bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(resolver, defaultDomain, logger)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler, logger, verbose),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		server:  server,
		port:    port,
		logger:  logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Handler returns the server handler (useful for testing)
func (s *Server) Handler() *Handler {
	return s.handler
}
