package models

import "time"

type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ParticipantRole string

const (
	RoleAdmin       ParticipantRole = "admin"
	RoleMember      ParticipantRole = "member"
	RoleRemovedUser ParticipantRole = "removed-user"
	RoleLeftUser    ParticipantRole = "left-user"
)

// Active reports whether the participant still belongs to the chat.
// Removed and left participants keep their row for history access but
// need a fresh invite to rejoin.
func (r ParticipantRole) Active() bool {
	return r == RoleAdmin || r == RoleMember
}

type ChatParticipant struct {
	ID       string          `json:"id"`
	ChatID   string          `json:"chat_id"`
	UserID   string          `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
	LeftAt   *time.Time      `json:"left_at,omitempty"`
}

// Message is immutable once created except for seen-by and deleted-for
// additions.
type Message struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	MediaURL   string    `json:"media_url,omitempty"`
	ClientRef  string    `json:"client_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	SeenBy     []string  `json:"seen_by,omitempty"`
	DeletedFor []string  `json:"deleted_for,omitempty"`
}
