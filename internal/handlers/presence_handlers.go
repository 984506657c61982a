package handlers

import (
	"net/http"

	"github.com/mohammedbilalns/LogIt-sub002/internal/auth"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/presence"
)

// PresenceHandlers serves point-in-time presence snapshots derived from
// the live connection set. Live transitions arrive over the WebSocket as
// user_online/user_offline; this endpoint answers the initial render.
type PresenceHandlers struct {
	presence    *presence.Store
	authService *auth.Service
}

func NewPresenceHandlers(presence *presence.Store, authService *auth.Service) *PresenceHandlers {
	return &PresenceHandlers{
		presence:    presence,
		authService: authService,
	}
}

func (h *PresenceHandlers) GetPresence(w http.ResponseWriter, r *http.Request, userID string) {
	if _, err := userFromRequest(h.authService, r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, &models.Presence{
		UserID:   userID,
		IsOnline: h.presence.IsOnline(userID),
		LastSeen: h.presence.LastSeen(userID),
	})
}
