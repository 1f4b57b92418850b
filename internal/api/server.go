package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/carprice-engine/internal/config"
	"github.com/terra-clan/carprice-engine/internal/pricing"
)

// maxBodyBytes caps request bodies; one record is a few hundred bytes
const maxBodyBytes = 64 << 10

// Server represents the HTTP server: the form page and the JSON API
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	pricing pricing.Service
	page    *template.Template
}

// NewServer creates a new server over a ready pricing service
func NewServer(cfg config.ServerConfig, svc pricing.Service) *Server {
	s := &Server{
		config:  cfg,
		pricing: svc,
		page:    pageTemplate,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Form page
	r.Get("/", s.handleForm)
	r.Post("/", s.handleSubmitForm)

	// Health checks
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", s.handleGetSchema)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handleListCatalog)
			r.Get("/{field}", s.handleGetCatalogField)
		})

		r.Post("/predictions", s.handleCreatePrediction)
		r.Post("/encode", s.handleEncode)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
