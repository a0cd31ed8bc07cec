// Package server provides the HTTP API for the meeting assistant.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/minutes/internal/config"
	"github.com/hyperjump/minutes/internal/dedup"
	"github.com/hyperjump/minutes/internal/meetings"
	"github.com/hyperjump/minutes/internal/rag"
	"github.com/hyperjump/minutes/internal/storage"
)

// UserHeader carries the caller identity. Authentication happens in front of this server.
const UserHeader = "X-User-ID"

// Server is the HTTP server for the meeting assistant API.
type Server struct {
	rag      *rag.Service
	meetings *meetings.Processor
	storage  storage.Storage
	webhooks *dedup.Set
	config   *config.Config
	logger   *zap.Logger
	router   chi.Router
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ragSvc *rag.Service,
	proc *meetings.Processor,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		rag:      ragSvc,
		meetings: proc,
		storage:  store,
		config:   cfg,
		logger:   logger,
		webhooks: dedup.New(
			time.Duration(cfg.Webhook.DedupTTLSeconds)*time.Second,
			cfg.Webhook.DedupCapacity,
		),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/webhooks/transcript", s.handleTranscriptWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/meetings", s.handleCreateMeeting)
			r.Get("/meetings", s.handleListMeetings)
			r.Get("/meetings/{id}", s.handleGetMeeting)
			r.Delete("/meetings/{id}", s.handleDeleteMeeting)
			r.Get("/meetings/{id}/action-items.xlsx", s.handleActionItemsExport)
			r.Post("/rag/process", s.handleProcess)
			r.Post("/rag/chat-meeting", s.handleChatMeeting)
			r.Post("/rag/chat-all", s.handleChatAll)
			r.Get("/search", s.handleSearch)
		})
	})
	s.router = r
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type ctxKey struct{}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			s.respondError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
