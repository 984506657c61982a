package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mohammedbilalns/LogIt-sub002/internal/call"
	"github.com/mohammedbilalns/LogIt-sub002/internal/config"
	"github.com/mohammedbilalns/LogIt-sub002/internal/metrics"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/presence"
	"github.com/mohammedbilalns/LogIt-sub002/internal/rooms"
	"github.com/mohammedbilalns/LogIt-sub002/internal/router"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ChatStore is the slice of persistence the gateway needs: participant
// checks on room join and seen-by updates.
type ChatStore interface {
	GetParticipant(ctx context.Context, chatID, userID string) (*models.ChatParticipant, error)
	MarkSeen(ctx context.Context, messageID, userID string) error
}

// CallCoordinator is the signaling state machine the gateway forwards
// call events to.
type CallCoordinator interface {
	StartCall(ctx context.Context, callerID string, p models.StartCallPayload) (*models.CallSession, error)
	Accept(ctx context.Context, actorID, callID string) (*models.CallSession, error)
	Reject(ctx context.Context, actorID, callID string) (*models.CallSession, error)
	End(ctx context.Context, actorID, callID string) (*models.CallSession, error)
	HandleUserOffline(userID string)
}

// Gateway owns the lifecycle of every live connection: registration with
// the presence store, room subscriptions, inbound frame dispatch and
// teardown. A transport error on one connection tears down that
// connection only; sibling connections of the same user and other room
// subscribers are unaffected.
type Gateway struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	presence *presence.Store
	rooms    *rooms.Registry
	db       ChatStore
	cfg      config.RealtimeConfig

	// Set after construction: the router's sink is the gateway itself.
	router *router.Router
	calls  CallCoordinator
}

func NewGateway(presence *presence.Store, rooms *rooms.Registry, db ChatStore, cfg config.RealtimeConfig) *Gateway {
	return &Gateway{
		conns:    make(map[string]*Connection),
		presence: presence,
		rooms:    rooms,
		db:       db,
		cfg:      cfg,
	}
}

func (gw *Gateway) SetRouter(r *router.Router) {
	gw.router = r
}

func (gw *Gateway) SetCallCoordinator(c CallCoordinator) {
	gw.calls = c
}

// Connect registers an authenticated transport connection and starts its
// pumps. If this is the user's first live connection every peer sharing
// a chat with the user is told the user came online.
func (gw *Gateway) Connect(sock *websocket.Conn, user *models.User) *Connection {
	c := newConnection(sock, user.ID, gw, gw.cfg.SendBuffer)
	gw.bind(c)

	go c.writePump()
	go c.readPump()

	logger.Info("Connection %s opened for user %s", c.id, user.ID)
	return c
}

// bind registers the connection with the gateway and presence store.
func (gw *Gateway) bind(c *Connection) {
	gw.mu.Lock()
	gw.conns[c.id] = c
	gw.mu.Unlock()

	first := gw.presence.Add(c.userID, c.id)
	metrics.ActiveConnections.Inc()

	if first {
		gw.router.PublishPresence(context.Background(), c.userID, true)
	}
}

// Disconnect tears down one connection: room subscriptions, presence,
// transport. If it was the user's last connection, peers get
// user_offline and any call the user is a party to resolves per the
// disconnect rules. Idempotent.
func (gw *Gateway) Disconnect(connID string) {
	gw.mu.Lock()
	c, ok := gw.conns[connID]
	if ok {
		delete(gw.conns, connID)
	}
	gw.mu.Unlock()
	if !ok {
		return
	}

	gw.rooms.LeaveAll(connID)
	last := gw.presence.Remove(c.userID, connID)
	c.close()
	metrics.ActiveConnections.Dec()
	logger.Info("Connection %s closed for user %s", connID, c.userID)

	if last {
		gw.router.PublishPresence(context.Background(), c.userID, false)
		gw.calls.HandleUserOffline(c.userID)
	}
}

// Push implements router.Sink. An enqueue failure marks the connection
// dead and triggers its disconnect path; it is never retried.
func (gw *Gateway) Push(connID string, frame *models.ServerFrame) error {
	gw.mu.RLock()
	c, ok := gw.conns[connID]
	gw.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}

	if err := c.Enqueue(frame); err != nil {
		go gw.Disconnect(connID)
		return err
	}
	return nil
}

// JoinRoom subscribes a connection to a chat's room. Joining a chat the
// user is not an active participant of fails. Idempotent.
func (gw *Gateway) JoinRoom(ctx context.Context, c *Connection, chatID string) error {
	p, err := gw.db.GetParticipant(ctx, chatID, c.userID)
	if err != nil || !p.Role.Active() {
		return ErrNotParticipant
	}

	gw.rooms.Join(chatID, c.id, c.userID)
	return nil
}

// LeaveRoom unsubscribes a connection from a chat's room. Idempotent.
func (gw *Gateway) LeaveRoom(c *Connection, chatID string) {
	gw.rooms.Leave(chatID, c.id)
}

// ForceLeaveUser evicts every live connection of a user from a chat's
// room without client acknowledgment, then tells each connection so the
// client updates its local state. Used when a user is removed from or
// leaves a group.
func (gw *Gateway) ForceLeaveUser(chatID, userID string) {
	evicted := gw.rooms.Evict(chatID, userID)
	frame := &models.ServerFrame{
		Event: models.EventForceLeaveChatRoom,
		Data:  models.ForceLeavePayload{ChatID: chatID},
	}
	for _, connID := range evicted {
		if err := gw.Push(connID, frame); err != nil {
			logger.Debug("Force-leave notice dropped for connection %s: %v", connID, err)
		}
	}
}

// ConnectionCount reports the number of live connections.
func (gw *Gateway) ConnectionCount() int {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return len(gw.conns)
}

// dispatch routes one inbound frame. Errors are answered on the
// originating connection only and never crash the gateway.
func (gw *Gateway) dispatch(ctx context.Context, c *Connection, frame *models.ClientFrame) {
	switch frame.Event {
	case models.EventIdentify:
		var p models.IdentifyPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed identify payload")
			return
		}
		// Presence is bound at the handshake; identify only confirms it.
		if p.UserID != "" && p.UserID != c.userID {
			gw.sendError(c, models.ErrCodeForbidden, "identity does not match connection")
		}

	case models.EventJoinChatRoom:
		var p models.RoomPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed room payload")
			return
		}
		if err := gw.JoinRoom(ctx, c, p.ChatID); err != nil {
			gw.sendError(c, models.ErrCodeForbidden, "not a participant of this chat")
		}

	case models.EventLeaveChatRoom:
		var p models.RoomPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed room payload")
			return
		}
		gw.LeaveRoom(c, p.ChatID)

	case models.EventMarkSeen:
		var p models.MarkSeenPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" || p.MessageID == "" {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed mark_seen payload")
			return
		}
		gw.handleMarkSeen(ctx, c, p)

	case models.EventStartCall:
		var p models.StartCallPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed start_call payload")
			return
		}
		if p.CallID == "" {
			p.CallID = uuid.NewString()
		}
		gw.handleStartCall(ctx, c, p)

	case models.EventAcceptCall, models.EventRejectCall, models.EventEndCall:
		var p models.CallRefPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.CallID == "" {
			gw.sendError(c, models.ErrCodeBadRequest, "malformed call payload")
			return
		}
		gw.handleCallTransition(ctx, c, frame.Event, p.CallID)

	default:
		gw.sendError(c, models.ErrCodeBadRequest, "unknown event: "+frame.Event)
	}
}

func (gw *Gateway) handleMarkSeen(ctx context.Context, c *Connection, p models.MarkSeenPayload) {
	participant, err := gw.db.GetParticipant(ctx, p.ChatID, c.userID)
	if err != nil || !participant.Role.Active() {
		gw.sendError(c, models.ErrCodeForbidden, "not a participant of this chat")
		return
	}
	if err := gw.db.MarkSeen(ctx, p.MessageID, c.userID); err != nil {
		logger.Error("Marking message %s seen by %s: %v", p.MessageID, c.userID, err)
		return
	}
	gw.router.PublishToChat(p.ChatID, models.EventMessageSeen, models.MessageSeenPayload{
		ChatID:    p.ChatID,
		MessageID: p.MessageID,
		UserID:    c.userID,
	})
}

func (gw *Gateway) handleStartCall(ctx context.Context, c *Connection, p models.StartCallPayload) {
	if _, err := gw.calls.StartCall(ctx, c.userID, p); err != nil {
		gw.sendCallError(c, p.CallID, err)
	}
}

func (gw *Gateway) handleCallTransition(ctx context.Context, c *Connection, event, callID string) {
	var err error
	switch event {
	case models.EventAcceptCall:
		_, err = gw.calls.Accept(ctx, c.userID, callID)
	case models.EventRejectCall:
		_, err = gw.calls.Reject(ctx, c.userID, callID)
	case models.EventEndCall:
		_, err = gw.calls.End(ctx, c.userID, callID)
	}
	if err != nil {
		gw.sendCallError(c, callID, err)
	}
}

// sendCallError answers a failed signaling event on the actor's
// connection only. Phase violations are a conflict notice, not an error:
// the other party never hears about them.
func (gw *Gateway) sendCallError(c *Connection, callID string, err error) {
	switch {
	case errors.Is(err, call.ErrCalleeBusy):
		frame := &models.ServerFrame{
			Event: models.EventCallBusy,
			Data:  models.CallRefPayload{CallID: callID},
		}
		if pushErr := c.Enqueue(frame); pushErr != nil {
			go gw.Disconnect(c.id)
		}
	case errors.Is(err, call.ErrStateConflict), errors.Is(err, call.ErrUnknownCall), errors.Is(err, call.ErrCallerBusy):
		gw.sendError(c, models.ErrCodeStateConflict, err.Error())
	case errors.Is(err, call.ErrNotCallee), errors.Is(err, call.ErrNotParty):
		gw.sendError(c, models.ErrCodeForbidden, err.Error())
	default:
		gw.sendError(c, models.ErrCodeBadRequest, err.Error())
	}
}

func (gw *Gateway) sendError(c *Connection, code, message string) {
	frame := &models.ServerFrame{
		Event: models.EventError,
		Data:  models.ErrorPayload{Code: code, Message: message},
	}
	if err := c.Enqueue(frame); err != nil {
		go gw.Disconnect(c.id)
	}
}
