package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"newsrag/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type historyResponse struct {
	Message []chat.Turn `json:"message"`
}

type inboundMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, createSessionResponse{SessionID: uuid.NewString()})
}

func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	turns, err := s.store.ReadAll(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("Failed to read history",
			zap.String("session_id", sessionID),
			zap.Error(err))
		http.Error(w, "failed to fetch chat history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Message: turns})
}

func (s *Server) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		s.logger.Error("Failed to clear session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		http.Error(w, "failed to clear session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session cleared successfully"})
}

// WebsocketHandler joins the connection to its session group and feeds
// inbound chat messages to the orchestrator until the peer disconnects.
func (s *Server) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	conn := chat.NewConn(ws)
	s.hub.Join(sessionID, conn)
	defer func() {
		s.hub.Leave(sessionID, conn)
		conn.Close()
	}()

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Websocket read error",
					zap.String("session_id", sessionID),
					zap.Error(err))
			}
			return
		}
		if msg.Event != "chat_message" || msg.Message == "" {
			continue
		}
		s.orchestrator.SendMessage(sessionID, msg.Message)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
