package database

import (
	"context"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserContacts returns the ids of users sharing at least one chat
	// with the given user. Used for presence fan-out.
	GetUserContacts(ctx context.Context, userID string) ([]string, error)
}

type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat, memberIDs []string) (*models.Chat, error)
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	RenameChat(ctx context.Context, chatID, name string) error
	GetParticipants(ctx context.Context, chatID string) ([]*models.ChatParticipant, error)
	GetParticipant(ctx context.Context, chatID, userID string) (*models.ChatParticipant, error)
	AddParticipant(ctx context.Context, chatID, userID string, role models.ParticipantRole) error
	SetParticipantRole(ctx context.Context, chatID, userID string, role models.ParticipantRole, leftAt *time.Time) error
}

type MessageRepository interface {
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	// ListMessages returns up to limit messages created before the given
	// instant, oldest first.
	ListMessages(ctx context.Context, chatID string, before time.Time, limit int) ([]*models.Message, error)
	MarkSeen(ctx context.Context, messageID, userID string) error
}

type CallLogRepository interface {
	// RecordCallLog upserts a snapshot of the session keyed by call id.
	RecordCallLog(ctx context.Context, session *models.CallSession) error
}

type Database interface {
	UserRepository
	ChatRepository
	MessageRepository
	CallLogRepository
	Close() error
}
