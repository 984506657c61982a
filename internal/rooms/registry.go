package rooms

import "sync"

// room is the live subscription set for one chat. Each room carries its
// own lock so fan-out to one chat never blocks behind another.
type room struct {
	mu      sync.RWMutex
	conns   map[string]string // connection id -> user id
	members map[string]struct{}
}

func newRoom() *room {
	return &room{
		conns:   make(map[string]string),
		members: make(map[string]struct{}),
	}
}

func (r *room) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns) == 0 && len(r.members) == 0
}

// Registry maps chat ids to their live subscription sets. A connection
// may subscribe to many rooms; a room with zero subscribers is fine,
// messages are still persisted, just not live-delivered.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]map[string]struct{} // connection id -> chat ids
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes a connection to a chat. Idempotent.
func (reg *Registry) Join(chatID, connID, userID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[chatID]
	if !ok {
		rm = newRoom()
		reg.rooms[chatID] = rm
	}
	chats, ok := reg.byConn[connID]
	if !ok {
		chats = make(map[string]struct{})
		reg.byConn[connID] = chats
	}
	chats[chatID] = struct{}{}

	rm.mu.Lock()
	rm.conns[connID] = userID
	rm.mu.Unlock()
}

// Leave unsubscribes a connection from a chat. Idempotent.
func (reg *Registry) Leave(chatID, connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.leaveLocked(chatID, connID)
}

// leaveLocked requires reg.mu held for writing.
func (reg *Registry) leaveLocked(chatID, connID string) {
	if chats, ok := reg.byConn[connID]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(reg.byConn, connID)
		}
	}
	rm, ok := reg.rooms[chatID]
	if !ok {
		return
	}
	rm.mu.Lock()
	delete(rm.conns, connID)
	rm.mu.Unlock()
	if rm.empty() {
		delete(reg.rooms, chatID)
	}
}

// LeaveAll unsubscribes a connection from every room it joined and
// returns the chat ids it left. Called on disconnect.
func (reg *Registry) LeaveAll(connID string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	chats := reg.byConn[connID]
	left := make([]string, 0, len(chats))
	for chatID := range chats {
		left = append(left, chatID)
	}
	for _, chatID := range left {
		reg.leaveLocked(chatID, connID)
	}
	return left
}

// Connections returns the connection ids currently subscribed to a chat.
func (reg *Registry) Connections(chatID string) []string {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ids := make([]string, 0, len(rm.conns))
	for id := range rm.conns {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionsOfUser returns the subscribed connection ids bound to one
// user within a chat.
func (reg *Registry) ConnectionsOfUser(chatID, userID string) []string {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	var ids []string
	for id, uid := range rm.conns {
		if uid == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Evict removes every connection of a user from a chat and returns the
// removed connection ids. Server-initiated, no client acknowledgment.
func (reg *Registry) Evict(chatID, userID string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[chatID]
	if !ok {
		return nil
	}

	rm.mu.Lock()
	var evicted []string
	for id, uid := range rm.conns {
		if uid == userID {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		delete(rm.conns, id)
	}
	delete(rm.members, userID)
	rm.mu.Unlock()

	for _, id := range evicted {
		if chats, ok := reg.byConn[id]; ok {
			delete(chats, chatID)
			if len(chats) == 0 {
				delete(reg.byConn, id)
			}
		}
	}
	if rm.empty() {
		delete(reg.rooms, chatID)
	}
	return evicted
}

// SetMembers replaces the mirrored participant set for a chat. Refreshed
// from persistence on membership-change events.
func (reg *Registry) SetMembers(chatID string, userIDs []string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[chatID]
	if !ok {
		rm = newRoom()
		reg.rooms[chatID] = rm
	}

	members := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		members[id] = struct{}{}
	}

	rm.mu.Lock()
	rm.members = members
	empty := len(rm.conns) == 0 && len(rm.members) == 0
	rm.mu.Unlock()
	if empty {
		delete(reg.rooms, chatID)
	}
}

// IsMember reports whether the user is in the mirrored participant set.
func (reg *Registry) IsMember(chatID, userID string) bool {
	reg.mu.RLock()
	rm, ok := reg.rooms[chatID]
	reg.mu.RUnlock()
	if !ok {
		return false
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok = rm.members[userID]
	return ok
}
