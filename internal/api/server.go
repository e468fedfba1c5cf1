package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dgallion1/brewsync/internal/config"
	"github.com/dgallion1/brewsync/internal/pipeline"
	"github.com/dgallion1/brewsync/internal/sourcebook"
	"github.com/dgallion1/brewsync/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Server is the HTTP API server for brewsync.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        store.Store
	stats        *sourcebook.Stats
	verifier     *Verifier
	validate     *validator.Validate
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. verifier may be nil when
// only API key auth is configured.
func NewServer(orch *pipeline.Orchestrator, st store.Store, stats *sourcebook.Stats, verifier *Verifier, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		stats:        stats,
		verifier:     verifier,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          log,
		cfg:          cfg,
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

	auth := AuthConfig{APIKey: s.cfg.APIKey, Verifier: s.verifier}
	if s.cfg.AuthBackendURL != "" {
		auth.LoginURL = strings.TrimRight(s.cfg.AuthBackendURL, "/") + "/admin/login"
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(auth, s.log))

		r.Post("/api/brews/sync", s.handleSync)
		r.Post("/api/brews/{shareID}/changed", s.handleChanged)
		r.Get("/api/brews/{shareID}/status", s.handleStatus)
		r.Post("/api/render", s.handleRender)
		r.Get("/api/stats/sync", s.handleSyncStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
