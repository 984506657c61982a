package models

import "encoding/json"

// Client -> server events.
const (
	EventIdentify      = "identify"
	EventJoinChatRoom  = "join_chat_room"
	EventLeaveChatRoom = "leave_chat_room"
	EventStartCall     = "start_call"
	EventAcceptCall    = "accept_call"
	EventRejectCall    = "reject_call"
	EventEndCall       = "end_call"
	EventMarkSeen      = "mark_seen"
)

// Server -> client events.
const (
	EventNewMessage           = "new_message"
	EventNewChat              = "new_chat"
	EventNewGroupChat         = "new_group_chat"
	EventChatRenamed          = "chat_renamed"
	EventMessageSeen          = "message_seen"
	EventUserOnline           = "user_online"
	EventUserOffline          = "user_offline"
	EventParticipantAdded     = "participant_added"
	EventParticipantRemoved   = "participant_removed"
	EventParticipantLeft      = "participant_left"
	EventUserRemovedFromGroup = "user_removed_from_group"
	EventUserLeftGroup        = "user_left_group"
	EventForceLeaveChatRoom   = "force_leave_chat_room"
	EventIncomingCall         = "incoming_call"
	EventCallAccepted         = "call_accepted"
	EventCallRejected         = "call_rejected"
	EventCallEnded            = "call_ended"
	EventCallMissed           = "call_missed"
	EventCallBusy             = "call_busy"
	EventError                = "error"
)

// Error codes carried in error frames.
const (
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeStateConflict = "state_conflict"
	ErrCodeBadRequest    = "bad_request"
)

// ClientFrame is one inbound message on a connection. Data is decoded per
// event type.
type ClientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerFrame is one outbound message to a connection.
type ServerFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type IdentifyPayload struct {
	UserID string `json:"userId"`
}

type RoomPayload struct {
	ChatID string `json:"chatId"`
}

type MarkSeenPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

type StartCallPayload struct {
	CallID   string   `json:"callId"`
	CalleeID string   `json:"calleeId"`
	ChatID   string   `json:"chatId"`
	Type     CallType `json:"type"`
}

type CallRefPayload struct {
	CallID string `json:"callId"`
}

type IncomingCallPayload struct {
	CallID     string   `json:"callId"`
	FromUserID string   `json:"fromUserId"`
	FromName   string   `json:"fromName"`
	Type       CallType `json:"type"`
	ChatID     string   `json:"chatId"`
}

type CallEndedPayload struct {
	CallID  string `json:"callId"`
	EndedBy string `json:"endedBy"`
	// Duration in seconds; zero when the call never went active.
	Duration int `json:"duration"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

type ChatRenamedPayload struct {
	ChatID string `json:"chatId"`
	Name   string `json:"name"`
}

type MessageSeenPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type ParticipantAddedPayload struct {
	ChatID      string `json:"chatId"`
	AddedUserID string `json:"addedUserId"`
	AddedBy     string `json:"addedBy"`
}

type ParticipantRemovedPayload struct {
	ChatID        string `json:"chatId"`
	RemovedUserID string `json:"removedUserId"`
	RemovedBy     string `json:"removedBy"`
}

type ParticipantLeftPayload struct {
	ChatID     string `json:"chatId"`
	LeftUserID string `json:"leftUserId"`
}

type GroupNoticePayload struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type ForceLeavePayload struct {
	ChatID string `json:"chatId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
