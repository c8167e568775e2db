// Package api serves the collected reference cards over HTTP: the
// interactive dashboard, a JSON card feed, and export endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/refmap/internal/collect"
	"github.com/dgallion1/refmap/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP viewer for one collection result.
type Server struct {
	router chi.Router
	result *collect.Result
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the viewer server.
func NewServer(result *collect.Result, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		result: result,
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Viewer endpoints; authenticated only when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/", s.handleDashboard)
		r.Get("/api/cards", s.handleCards)
		r.Get("/export.md", s.handleExportMarkdown)
		r.Get("/preview", s.handlePreview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
