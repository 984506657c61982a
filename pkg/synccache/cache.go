// Package synccache keeps a client's view of chat history consistent
// while messages arrive over two paths at once: paginated history
// fetches and live pushes. It deduplicates by message id, keeps creation
// order per chat, and reconciles optimistically rendered sends with
// their server-confirmed copies.
package synccache

import (
	"sort"
	"sync"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
)

type chatState struct {
	byID       map[string]*models.Message
	order      []*models.Message // sorted by created-at, id tiebreak
	pending    map[string]*models.Message
	subscribed bool
	removed    bool
}

type Cache struct {
	mu    sync.Mutex
	chats map[string]*chatState
}

func New() *Cache {
	return &Cache{chats: make(map[string]*chatState)}
}

func (c *Cache) chat(chatID string) *chatState {
	st, ok := c.chats[chatID]
	if !ok {
		st = &chatState{
			byID:    make(map[string]*models.Message),
			pending: make(map[string]*models.Message),
		}
		c.chats[chatID] = st
	}
	return st
}

// Subscribe marks the chat as live-subscribed (the client joined its
// room).
func (c *Cache) Subscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.chat(chatID)
	st.subscribed = true
	st.removed = false
}

func (c *Cache) Subscribed(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.chats[chatID]
	return ok && st.subscribed
}

// Removed reports whether the client was removed from (or left) the
// chat.
func (c *Cache) Removed(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.chats[chatID]
	return ok && st.removed
}

// MergePage merges a fetched history page. Messages already delivered
// live are skipped, a message id never appears twice.
func (c *Cache) MergePage(chatID string, msgs []*models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.chat(chatID)
	for _, msg := range msgs {
		st.insert(msg)
	}
}

// ApplyLive merges one live-pushed message. The push may arrive before
// or after the page containing the same message is fetched.
func (c *Cache) ApplyLive(chatID string, msg *models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chat(chatID).insert(msg)
}

// AddPending renders an outgoing message optimistically, keyed by the
// client-side ref, until the server-confirmed copy arrives.
func (c *Cache) AddPending(chatID string, msg *models.Message) {
	if msg.ClientRef == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chat(chatID).pending[msg.ClientRef] = msg
}

// ForceLeave drops the chat from the live subscription set and marks it
// removed. Message history stays readable.
func (c *Cache) ForceLeave(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.chat(chatID)
	st.subscribed = false
	st.removed = true
}

// Messages returns the chat's messages in creation order, confirmed
// first for equal timestamps, with unconfirmed optimistic sends at their
// chronological position.
func (c *Cache) Messages(chatID string) []*models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.chats[chatID]
	if !ok {
		return nil
	}

	out := make([]*models.Message, 0, len(st.order)+len(st.pending))
	out = append(out, st.order...)
	for _, msg := range st.pending {
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		// Pending sends have no server id yet and sort after confirmed
		// messages of the same instant.
		if (out[i].ID == "") != (out[j].ID == "") {
			return out[j].ID == ""
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// insert adds a server message, reconciling any pending optimistic copy
// with the same client ref so the sender never sees a duplicate.
func (st *chatState) insert(msg *models.Message) {
	if msg.ClientRef != "" {
		delete(st.pending, msg.ClientRef)
	}
	if _, ok := st.byID[msg.ID]; ok {
		return
	}
	st.byID[msg.ID] = msg

	i := sort.Search(len(st.order), func(i int) bool {
		if !st.order[i].CreatedAt.Equal(msg.CreatedAt) {
			return st.order[i].CreatedAt.After(msg.CreatedAt)
		}
		return st.order[i].ID > msg.ID
	})
	st.order = append(st.order, nil)
	copy(st.order[i+1:], st.order[i:])
	st.order[i] = msg
}
