// Package api provides the HTTP API server and handlers for the Inkwell
// reading library.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkwellapp/inkwell-server/internal/http/response"
	"github.com/inkwellapp/inkwell-server/internal/ratelimit"
	"github.com/inkwellapp/inkwell-server/internal/service"
	"github.com/inkwellapp/inkwell-server/internal/sse"
)

// DefaultMaxUploadSize bounds document uploads when no limit is configured.
const DefaultMaxUploadSize = 256 << 20

// Server holds dependencies for HTTP handlers.
type Server struct {
	service       *service.Service
	sseHandler    *sse.Handler
	router        *chi.Mux
	uploadLimiter *ratelimit.KeyedRateLimiter
	logger        *slog.Logger
	maxUploadSize int64
}

// NewServer creates a new HTTP server with all routes configured. The
// SSE handler is optional; without it the events route is not mounted.
func NewServer(svc *service.Service, maxUploadSize int64, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	s := &Server{
		service:       svc,
		sseHandler:    sseHandler,
		router:        chi.NewRouter(),
		uploadLimiter: ratelimit.New(uploadRPS, uploadBurst),
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/library", s.handleListDocuments)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.With(s.limitUploads).Post("/", s.handleUploadDocument)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)
				r.Get("/chapters/{index}", s.handleGetChapter)
				r.Get("/images/{name}", s.handleGetImage)

				r.Route("/progress", func(r chi.Router) {
					r.Get("/", s.handleGetProgress)
					r.Put("/", s.handleSetProgress)
					r.Delete("/", s.handleClearProgress)
				})
			})
		})

		r.Get("/search", s.handleSearch)

		if s.sseHandler != nil {
			r.Get("/events", s.sseHandler.ServeHTTP)
		}
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
