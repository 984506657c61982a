package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/auth"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/services"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"
)

// ChatHandlers is the REST command surface that triggers realtime
// fan-out: persist the mutation through the chat service, which then
// hands it to the event router.
type ChatHandlers struct {
	chatService *services.ChatService
	authService *auth.Service
}

func NewChatHandlers(chatService *services.ChatService, authService *auth.Service) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		authService: authService,
	}
}

type createChatRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
	IsGroup   bool     `json:"isGroup"`
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	MediaURL  string `json:"mediaUrl"`
	ClientRef string `json:"clientRef"`
}

type renameChatRequest struct {
	Name string `json:"name"`
}

type addParticipantRequest struct {
	UserID string `json:"userId"`
}

func (h *ChatHandlers) CreateChat(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	chat, err := h.chatService.CreateChat(r.Context(), user.ID, req.Name, req.MemberIDs, req.IsGroup)
	if err != nil {
		logger.Error("Create chat error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandlers) SendMessage(w http.ResponseWriter, r *http.Request, chatID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), user.ID, chatID, req.Content, req.MediaURL, req.ClientRef)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandlers) History(w http.ResponseWriter, r *http.Request, chatID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var before time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		before, err = time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid before timestamp", http.StatusBadRequest)
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.chatService.History(r.Context(), user.ID, chatID, before, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandlers) RenameChat(w http.ResponseWriter, r *http.Request, chatID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req renameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.chatService.RenameChat(r.Context(), user.ID, chatID, req.Name); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) AddParticipant(w http.ResponseWriter, r *http.Request, chatID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req addParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.chatService.AddParticipant(r.Context(), user.ID, chatID, req.UserID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) RemoveParticipant(w http.ResponseWriter, r *http.Request, chatID, userID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.chatService.RemoveParticipant(r.Context(), user.ID, chatID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) LeaveChat(w http.ResponseWriter, r *http.Request, chatID string) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.chatService.LeaveChat(r.Context(), user.ID, chatID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) getUserFromToken(r *http.Request) (*models.User, error) {
	return userFromRequest(h.authService, r)
}

func userFromRequest(authService *auth.Service, r *http.Request) (*models.User, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, fmt.Errorf("missing bearer token")
	}
	return authService.ResolveUserFromToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
}

func (h *ChatHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotParticipant), errors.Is(err, services.ErrNotAdmin):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrNotGroupChat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("Chat handler error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
