package router

import (
	"context"
	"sync"

	"github.com/mohammedbilalns/LogIt-sub002/internal/metrics"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/presence"
	"github.com/mohammedbilalns/LogIt-sub002/internal/rooms"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"
)

// Sink delivers one frame to one connection. Push failures mean the
// connection is dead; the sink owns its teardown, the router never
// retries.
type Sink interface {
	Push(connID string, frame *models.ServerFrame) error
}

// ContactSource resolves the users sharing a chat with a given user, for
// presence fan-out.
type ContactSource interface {
	GetUserContacts(ctx context.Context, userID string) ([]string, error)
}

// CallPartySource lists the users on the other side of a user's live
// call sessions. A call peer need not share a chat with the user, so
// presence fan-out must cover both sets.
type CallPartySource interface {
	Counterparts(userID string) []string
}

// Router fans validated chat mutations out to the connections subscribed
// to the affected room, and pushes direct events to all connections of a
// target user. Delivery is best-effort and at-most-once per connection.
type Router struct {
	rooms    *rooms.Registry
	presence *presence.Store
	contacts ContactSource
	sink     Sink

	// Set after construction: the call coordinator consumes the router
	// as its publisher.
	callParties CallPartySource

	// Per-chat sequence locks: events for one chat reach every
	// subscriber in publish order, unrelated chats never queue behind
	// each other. Entries are refcounted and pruned once the last
	// publisher releases, so idle chats hold no lock state.
	mu      sync.Mutex
	chatSeq map[string]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func New(rooms *rooms.Registry, presence *presence.Store, contacts ContactSource, sink Sink) *Router {
	return &Router{
		rooms:    rooms,
		presence: presence,
		contacts: contacts,
		sink:     sink,
		chatSeq:  make(map[string]*chatLock),
	}
}

func (r *Router) lockChat(chatID string) *chatLock {
	r.mu.Lock()
	lock, ok := r.chatSeq[chatID]
	if !ok {
		lock = &chatLock{}
		r.chatSeq[chatID] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (r *Router) unlockChat(chatID string, lock *chatLock) {
	lock.mu.Unlock()

	r.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(r.chatSeq, chatID)
	}
	r.mu.Unlock()
}

// PublishToChat delivers an event to every connection subscribed to the
// chat's room. A failed delivery to one subscriber never aborts the rest.
func (r *Router) PublishToChat(chatID, event string, data interface{}) {
	lock := r.lockChat(chatID)
	defer r.unlockChat(chatID, lock)

	frame := &models.ServerFrame{Event: event, Data: data}
	for _, connID := range r.rooms.Connections(chatID) {
		r.push(connID, frame)
	}
}

// PublishToUser delivers an event to every live connection of the user,
// bypassing room membership. Used for direct events such as new private
// chat creation, before the recipient has joined the room.
func (r *Router) PublishToUser(userID, event string, data interface{}) {
	frame := &models.ServerFrame{Event: event, Data: data}
	for _, connID := range r.presence.Connections(userID) {
		r.push(connID, frame)
	}
}

func (r *Router) SetCallParties(parties CallPartySource) {
	r.callParties = parties
}

// PublishPresence notifies every peer of the user that the user came
// online or went offline: users sharing a chat plus the other party of
// any live call session.
func (r *Router) PublishPresence(ctx context.Context, userID string, online bool) {
	contactIDs, err := r.contacts.GetUserContacts(ctx, userID)
	if err != nil {
		logger.Error("Presence fan-out: resolving contacts of %s: %v", userID, err)
		return
	}
	peers := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		peers[id] = struct{}{}
	}
	if r.callParties != nil {
		for _, id := range r.callParties.Counterparts(userID) {
			peers[id] = struct{}{}
		}
	}

	event := models.EventUserOffline
	if online {
		event = models.EventUserOnline
	}
	payload := models.PresencePayload{UserID: userID}
	for peerID := range peers {
		r.PublishToUser(peerID, event, payload)
	}
}

func (r *Router) push(connID string, frame *models.ServerFrame) {
	if err := r.sink.Push(connID, frame); err != nil {
		metrics.SendFailures.Inc()
		logger.Debug("Dropped %s for connection %s: %v", frame.Event, connID, err)
		return
	}
	metrics.EventsDelivered.WithLabelValues(frame.Event).Inc()
}
