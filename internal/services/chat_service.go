package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/database"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/rooms"
	"github.com/mohammedbilalns/LogIt-sub002/internal/router"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"
)

var (
	// ErrNotParticipant rejects a mutation from a user who is not an
	// active participant of the chat. A message from a just-removed
	// user is refused here, at the persistence boundary, not merely
	// left undelivered.
	ErrNotParticipant = errors.New("not an active participant of this chat")

	// ErrNotAdmin rejects a group-management action from a non-admin.
	ErrNotAdmin = errors.New("admin role required")

	ErrEmptyMessage = errors.New("message has no content")
	ErrNotGroupChat = errors.New("not a group chat")
)

// Evictor removes a user's live connections from a chat's room.
// Implemented by the connection gateway.
type Evictor interface {
	ForceLeaveUser(chatID, userID string)
}

// Store is the slice of persistence the chat service needs.
type Store interface {
	database.ChatRepository
	database.MessageRepository
}

// ChatService is the command boundary between the data layer and the
// realtime core: every mutation is persisted first, then handed to the
// router for fan-out to live subscribers.
type ChatService struct {
	db      Store
	router  *router.Router
	rooms   *rooms.Registry
	evictor Evictor
}

func NewChatService(db Store, router *router.Router, rooms *rooms.Registry, evictor Evictor) *ChatService {
	return &ChatService{
		db:      db,
		router:  router,
		rooms:   rooms,
		evictor: evictor,
	}
}

// SendMessage persists a message and fans it out to the chat's live
// subscribers. The sender's client_ref is echoed on the saved copy so
// the sender can reconcile its optimistic render.
func (s *ChatService) SendMessage(ctx context.Context, senderID, chatID, content, mediaURL, clientRef string) (*models.Message, error) {
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.requireActive(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	saved, err := s.db.AppendMessage(ctx, &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		MediaURL:  mediaURL,
		ClientRef: clientRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	s.router.PublishToChat(chatID, models.EventNewMessage, saved)
	return saved, nil
}

// CreateChat persists a chat with its initial participants and pushes it
// directly to every member's live connections, before anyone has joined
// the room.
func (s *ChatService) CreateChat(ctx context.Context, creatorID, name string, memberIDs []string, isGroup bool) (*models.Chat, error) {
	members := memberIDs
	found := false
	for _, id := range members {
		if id == creatorID {
			found = true
			break
		}
	}
	if !found {
		members = append([]string{creatorID}, members...)
	}
	if len(members) < 2 {
		return nil, fmt.Errorf("a chat needs at least two participants")
	}

	chat, err := s.db.CreateChat(ctx, &models.Chat{
		Name:      name,
		IsGroup:   isGroup,
		CreatorID: creatorID,
	}, members)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	event := models.EventNewChat
	if isGroup {
		event = models.EventNewGroupChat
	}
	for _, memberID := range members {
		s.router.PublishToUser(memberID, event, chat)
	}
	return chat, nil
}

// RenameChat persists a group rename and notifies the room.
func (s *ChatService) RenameChat(ctx context.Context, actorID, chatID, name string) error {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}
	if !chat.IsGroup {
		return ErrNotGroupChat
	}
	if err := s.requireAdmin(ctx, chatID, actorID); err != nil {
		return err
	}
	if err := s.db.RenameChat(ctx, chatID, name); err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}

	s.router.PublishToChat(chatID, models.EventChatRenamed, models.ChatRenamedPayload{
		ChatID: chatID,
		Name:   name,
	})
	return nil
}

// AddParticipant invites a user into a group chat. The invited user gets
// the chat pushed directly; the room gets a membership notice.
func (s *ChatService) AddParticipant(ctx context.Context, actorID, chatID, userID string) error {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}
	if !chat.IsGroup {
		return ErrNotGroupChat
	}
	if err := s.requireAdmin(ctx, chatID, actorID); err != nil {
		return err
	}
	if err := s.db.AddParticipant(ctx, chatID, userID, models.RoleMember); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	s.refreshMembers(ctx, chatID)

	s.router.PublishToChat(chatID, models.EventParticipantAdded, models.ParticipantAddedPayload{
		ChatID:      chatID,
		AddedUserID: userID,
		AddedBy:     actorID,
	})
	s.router.PublishToUser(userID, models.EventNewGroupChat, chat)
	return nil
}

// RemoveParticipant removes a user from a group chat. The removed user's
// live connections are evicted from the room before the removal notice
// is published, so no further chat events reach them. Rejoining needs a
// fresh invite.
func (s *ChatService) RemoveParticipant(ctx context.Context, actorID, chatID, userID string) error {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}
	if !chat.IsGroup {
		return ErrNotGroupChat
	}
	if err := s.requireAdmin(ctx, chatID, actorID); err != nil {
		return err
	}
	if err := s.requireActive(ctx, chatID, userID); err != nil {
		return err
	}

	now := time.Now()
	if err := s.db.SetParticipantRole(ctx, chatID, userID, models.RoleRemovedUser, &now); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.evictor.ForceLeaveUser(chatID, userID)
	s.refreshMembers(ctx, chatID)

	s.router.PublishToChat(chatID, models.EventParticipantRemoved, models.ParticipantRemovedPayload{
		ChatID:        chatID,
		RemovedUserID: userID,
		RemovedBy:     actorID,
	})
	s.router.PublishToUser(userID, models.EventUserRemovedFromGroup, models.GroupNoticePayload{
		ChatID:  chatID,
		Message: fmt.Sprintf("You were removed from %s", chat.Name),
	})
	return nil
}

// LeaveChat records a voluntary exit from a group chat and evicts the
// user's live connections from the room.
func (s *ChatService) LeaveChat(ctx context.Context, userID, chatID string) error {
	chat, err := s.db.GetChatByID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat not found: %w", err)
	}
	if !chat.IsGroup {
		return ErrNotGroupChat
	}
	if err := s.requireActive(ctx, chatID, userID); err != nil {
		return err
	}

	now := time.Now()
	if err := s.db.SetParticipantRole(ctx, chatID, userID, models.RoleLeftUser, &now); err != nil {
		return fmt.Errorf("failed to leave chat: %w", err)
	}

	s.evictor.ForceLeaveUser(chatID, userID)
	s.refreshMembers(ctx, chatID)

	s.router.PublishToChat(chatID, models.EventParticipantLeft, models.ParticipantLeftPayload{
		ChatID:     chatID,
		LeftUserID: userID,
	})
	s.router.PublishToUser(userID, models.EventUserLeftGroup, models.GroupNoticePayload{
		ChatID:  chatID,
		Message: fmt.Sprintf("You left %s", chat.Name),
	})
	return nil
}

// History returns a page of messages, oldest first. Removed and left
// participants may still fetch history; only live delivery stops for
// them.
func (s *ChatService) History(ctx context.Context, userID, chatID string, before time.Time, limit int) ([]*models.Message, error) {
	if _, err := s.db.GetParticipant(ctx, chatID, userID); err != nil {
		return nil, ErrNotParticipant
	}
	if before.IsZero() {
		before = time.Now()
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.db.ListMessages(ctx, chatID, before, limit)
}

func (s *ChatService) requireActive(ctx context.Context, chatID, userID string) error {
	p, err := s.db.GetParticipant(ctx, chatID, userID)
	if err != nil || !p.Role.Active() {
		return ErrNotParticipant
	}
	return nil
}

func (s *ChatService) requireAdmin(ctx context.Context, chatID, userID string) error {
	p, err := s.db.GetParticipant(ctx, chatID, userID)
	if err != nil || !p.Role.Active() {
		return ErrNotParticipant
	}
	if p.Role != models.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// refreshMembers re-mirrors the persisted participant set into the room
// registry after a membership change.
func (s *ChatService) refreshMembers(ctx context.Context, chatID string) {
	participants, err := s.db.GetParticipants(ctx, chatID)
	if err != nil {
		logger.Error("Refreshing members of chat %s: %v", chatID, err)
		return
	}
	var active []string
	for _, p := range participants {
		if p.Role.Active() {
			active = append(active, p.UserID)
		}
	}
	s.rooms.SetMembers(chatID, active)
}
