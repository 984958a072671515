package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/todmy/style-analyzer/internal/auth"
	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/consolidation"
	"github.com/todmy/style-analyzer/internal/feedback"
	"github.com/todmy/style-analyzer/internal/metrics"
	"github.com/todmy/style-analyzer/internal/session"
	"github.com/todmy/style-analyzer/internal/validation"
)

type Server struct {
	router       *chi.Mux
	cfg          config.Config
	pipeline     *validation.Pipeline
	consolidator *consolidation.Consolidator
	sessions     *session.Cache
	authService  auth.Service
	feedback     feedback.Store
	sink         *metrics.Sink
	logger       *slog.Logger
}

func NewServer(
	cfg config.Config,
	pipeline *validation.Pipeline,
	consolidator *consolidation.Consolidator,
	sessions *session.Cache,
	authService auth.Service,
	feedbackStore feedback.Store,
	sink *metrics.Sink,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:       r,
		cfg:          cfg,
		pipeline:     pipeline,
		consolidator: consolidator,
		sessions:     sessions,
		authService:  authService,
		feedback:     feedbackStore,
		sink:         sink,
		logger:       logger,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	if s.cfg.Flags.MetricsExporter {
		s.router.Handle("/metrics", s.sink.Handler())
	}

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Post("/analyze", s.handleAnalyze)
				r.Get("/errors", s.handleGetErrors)

				r.Route("/filters", func(r chi.Router) {
					r.Get("/", s.handleGetFilterState)
					r.Post("/toggle", s.handleToggleFilter)
					r.Post("/preset", s.handleApplyPreset)
					r.Post("/reset", s.handleResetFilters)
				})
			})

			r.Post("/feedback", s.handleSubmitFeedback)
			r.Get("/feedback/summary", s.handleFeedbackSummary)
		})
	})
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the handler tree for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
