// Package api provides the HTTP server: HTML views, the typed JSON API and
// the raw streaming and image endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quicksafe/quicksafe-server/internal/config"
	"github.com/quicksafe/quicksafe-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	cfg       *config.Config
	views     *views
	validator *validation.Validator
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}

	s := &Server{
		services:  services,
		cfg:       cfg,
		views:     v,
		validator: validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("QuickSafe API", "1.0.0")
	humaConfig.Info.Description = "Anonymous location safety reporting."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the typed API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(clientIP)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// HTML views.
	s.router.Get("/", s.handleHome)
	s.router.Get("/report", s.handleReport)
	s.router.Get("/report/{locationId}", s.handleReport)
	s.router.Get("/poster", s.handlePoster)
	s.router.Get("/poster/{locationId}", s.handlePoster)

	// Typed JSON API.
	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerSessionRoutes()
	s.registerFxRoutes()

	// Streams and images bypass the JSON envelope.
	s.router.With(middleware.NoCache).Get("/api/v1/sessions/{id}/events", s.services.Events.ServeHTTP)
	s.router.Get("/api/v1/fx/field.png", s.handleFieldFrame)
	s.router.Post("/api/v1/fx/trail.png", s.handleTrailFrame)
	s.router.Get("/api/v1/fx/ambient.png", s.handleAmbientFrame)
}
