package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cvaas/quest-engine/internal/config"
	"github.com/cvaas/quest-engine/internal/events"
	"github.com/cvaas/quest-engine/internal/health"
	"github.com/cvaas/quest-engine/internal/models"
	"github.com/cvaas/quest-engine/internal/quest"
)

// Uploader stores submission attachments
type Uploader interface {
	Upload(ctx context.Context, userID, name, contentType string, size int64, body io.Reader) (*models.FileRef, error)
}

// Deps are the collaborators the HTTP API is built on
type Deps struct {
	Quests   *quest.Service
	Hub      *events.Hub
	Health   *health.Registry
	Uploader Uploader // nil disables attachments

	MaxUploadBytes int64
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	quests         *quest.Service
	hub            *events.Hub
	health         *health.Registry
	uploader       Uploader
	maxUploadBytes int64
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, deps Deps) *Server {
	s := &Server{
		config:         cfg,
		quests:         deps.Quests,
		hub:            deps.Hub,
		health:         deps.Health,
		uploader:       deps.Uploader,
		maxUploadBytes: deps.MaxUploadBytes,
		authMiddleware: NewAuthMiddleware(auth),
	}
	if s.health == nil {
		s.health = health.NewRegistry(0)
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 25 << 20
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

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Long-lived stream, not bounded by the request timeout
		r.With(s.authMiddleware.RequirePermission("submissions:read")).Get("/events/ws", s.handleEventsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			perm := s.authMiddleware.RequirePermission

			r.Route("/quests", func(r chi.Router) {
				r.With(perm("quests:read")).Get("/", s.handleListQuests)
				r.With(perm("quests:write")).Post("/", s.handleCreateQuest)

				r.Route("/{id}", func(r chi.Router) {
					r.With(perm("quests:read")).Get("/", s.handleGetQuest)
					r.With(perm("quests:write")).Patch("/", s.handleUpdateQuest)
					r.With(perm("quests:write")).Post("/activate", s.handleSetQuestActive(true))
					r.With(perm("quests:write")).Post("/deactivate", s.handleSetQuestActive(false))
					r.With(perm("submissions:read")).Get("/eligibility", s.handleEligibility)
					r.With(perm("submissions:write")).Post("/submissions", s.handleSubmit)
				})
			})

			r.Route("/submissions", func(r chi.Router) {
				r.With(perm("submissions:read")).Get("/mine", s.handleListMySubmissions)
				r.With(perm("submissions:read")).Get("/{id}", s.handleGetSubmission)
				r.With(perm("reviews:write")).Post("/{id}/review", s.handleReview)
			})
			r.With(perm("reviews:write")).Get("/reviews/queue", s.handleReviewQueue)

			r.With(perm("badges:read")).Get("/badges/mine", s.handleListMyBadges)
			r.With(perm("badges:write")).Patch("/badges/{id}/display", s.handleUpdateBadgeDisplay)
			r.With(perm("badges:read")).Get("/users/{id}/badges", s.handleListUserBadges)

			r.With(perm("leaderboard:read")).Get("/leaderboard", s.handleLeaderboard)

			r.With(perm("attachments:write")).Post("/attachments", s.handleUploadAttachment)
		})
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
