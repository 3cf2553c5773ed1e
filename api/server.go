package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"newsrag/chat"
	"newsrag/repository"
)

// Server exposes the HTTP surface: session lifecycle, history, health
// and the websocket chat endpoint.
type Server struct {
	store        *chat.Store
	orchestrator *chat.Orchestrator
	hub          *chat.Hub
	vectors      repository.NewsVectorRepo
	logger       *zap.Logger
	port         int
}

func NewServer(
	store *chat.Store,
	orchestrator *chat.Orchestrator,
	hub *chat.Hub,
	vectors repository.NewsVectorRepo,
	logger *zap.Logger,
	port int,
) *Server {
	return &Server{
		store:        store,
		orchestrator: orchestrator,
		hub:          hub,
		vectors:      vectors,
		logger:       logger,
		port:         port,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/session", s.CreateSessionHandler)
	mux.HandleFunc("GET /chat/history/{sessionId}", s.HistoryHandler)
	mux.HandleFunc("DELETE /chat/session/{sessionId}", s.ClearSessionHandler)
	mux.HandleFunc("GET /ws", s.WebsocketHandler)
	mux.HandleFunc("GET /health", s.HealthHandler)
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.Int("port", s.port))
	return http.ListenAndServe(":"+strconv.Itoa(s.port), s.Routes())
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("Health check: store unreachable", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.vectors.Count(ctx); err != nil {
		s.logger.Error("Health check: index unreachable", zap.Error(err))
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
