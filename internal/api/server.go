package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docpage/internal/config"
	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/pipeline"
	"github.com/dgallion1/docpage/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP front end for documentation pages.
type Server struct {
	router chi.Router
	stages *pipeline.Stages
	stats  *content.Stats
	page   view.Page
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. ctx bounds the rate
// limiter's background cleanup. stats may be nil.
func NewServer(ctx context.Context, stages *pipeline.Stages, stats *content.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		stages: stages,
		stats:  stats,
		page:   view.Page{SiteTitle: cfg.SiteTitle, PageClass: cfg.PageClass},
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes(ctx)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes(ctx context.Context) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitRPS > 0 {
			r.Use(RateLimitMiddleware(ctx, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.cfg.RateLimitIPs, s.log))
		}

		r.Get("/docs/*", s.handleDocPage)
		r.Get("/api/documents/*", s.handleDocument)
		r.Get("/api/stats/fetch", s.handleFetchStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
