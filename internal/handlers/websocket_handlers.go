package handlers

import (
	"net/http"

	"github.com/mohammedbilalns/LogIt-sub002/internal/auth"
	ws "github.com/mohammedbilalns/LogIt-sub002/internal/websocket"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	gateway     *ws.Gateway
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, gateway *ws.Gateway) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		gateway:     gateway,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket authenticates the session credential and binds a new
// connection. The same JWT the REST surface uses is presented here, no
// separate signaling token.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.ResolveUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	h.gateway.Connect(conn, user)
}
