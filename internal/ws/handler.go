package ws

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/glyscope/glyscope/internal/auth"
)

// Handler provides the WebSocket endpoint for real-time run updates.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler. tokens may be nil, in which
// case the stream is served unauthenticated.
func NewHandler(tokens *auth.TokenService, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		logger: logger,
	}
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/runs", h.handleRunStream)
}

// handleRunStream upgrades the connection and streams run events.
func (h *Handler) handleRunStream(w http.ResponseWriter, r *http.Request) {
	user := ""
	if h.tokens != nil {
		// Browser WS API can't set headers, so the token rides a query
		// parameter.
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.ValidateAccessToken(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		user = claims.Username
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		user:   user,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// RunStarted announces a new analysis run to all clients.
func (h *Handler) RunStarted(runID string, readings, subjects int) {
	h.hub.Broadcast(Message{
		Type:      MessageRunStarted,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Data:      RunStartedData{Readings: readings, Subjects: subjects},
	})
}

// RunProgress reports per-subject completion during a run.
func (h *Handler) RunProgress(runID string, done, total int) {
	h.hub.Broadcast(Message{
		Type:      MessageRunProgress,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Data:      RunProgressData{SubjectsDone: done, SubjectsTotal: total},
	})
}

// RunCompleted announces a finished run.
func (h *Handler) RunCompleted(runID string, episodes int) {
	h.hub.Broadcast(Message{
		Type:      MessageRunCompleted,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Data: RunCompletedData{
			Episodes: episodes,
			EndedAt:  time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RunError announces a failed run.
func (h *Handler) RunError(runID, errMsg string) {
	h.hub.Broadcast(Message{
		Type:      MessageRunError,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Data:      RunErrorData{Error: errMsg},
	})
}
