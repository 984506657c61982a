package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/internal/presence"
	"github.com/mohammedbilalns/LogIt-sub002/internal/rooms"
)

// captureSink records pushed frames per connection and can be told to
// fail for specific connections.
type captureSink struct {
	mu     sync.Mutex
	frames map[string][]*models.ServerFrame
	broken map[string]bool
}

func newCaptureSink() *captureSink {
	return &captureSink{
		frames: make(map[string][]*models.ServerFrame),
		broken: make(map[string]bool),
	}
}

func (s *captureSink) Push(connID string, frame *models.ServerFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[connID] {
		return errors.New("connection gone")
	}
	s.frames[connID] = append(s.frames[connID], frame)
	return nil
}

func (s *captureSink) events(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.frames[connID] {
		out = append(out, f.Event)
	}
	return out
}

type staticContacts struct {
	contacts map[string][]string
	err      error
}

func (c *staticContacts) GetUserContacts(ctx context.Context, userID string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.contacts[userID], nil
}

func newTestRouter(contacts *staticContacts) (*Router, *rooms.Registry, *presence.Store, *captureSink) {
	reg := rooms.NewRegistry()
	pres := presence.NewStore()
	sink := newCaptureSink()
	if contacts == nil {
		contacts = &staticContacts{}
	}
	return New(reg, pres, contacts, sink), reg, pres, sink
}

func TestPublishToChatReachesSubscribersOnly(t *testing.T) {
	r, reg, _, sink := newTestRouter(nil)
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u2")
	reg.Join("chat2", "c3", "u3")

	r.PublishToChat("chat1", models.EventNewMessage, nil)

	assert.Equal(t, []string{models.EventNewMessage}, sink.events("c1"))
	assert.Equal(t, []string{models.EventNewMessage}, sink.events("c2"))
	assert.Empty(t, sink.events("c3"))
}

func TestPublishToChatWithNoSubscribersIsSilent(t *testing.T) {
	r, _, _, sink := newTestRouter(nil)

	r.PublishToChat("empty-chat", models.EventNewMessage, nil)

	assert.Empty(t, sink.frames)
}

func TestFailedDeliveryDoesNotAbortFanOut(t *testing.T) {
	r, reg, _, sink := newTestRouter(nil)
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u2")
	reg.Join("chat1", "c3", "u3")
	sink.broken["c2"] = true

	r.PublishToChat("chat1", models.EventNewMessage, nil)

	assert.Len(t, sink.events("c1"), 1)
	assert.Empty(t, sink.events("c2"))
	assert.Len(t, sink.events("c3"), 1)
}

func TestPublishToUserHitsEveryConnection(t *testing.T) {
	r, _, pres, sink := newTestRouter(nil)
	pres.Add("u1", "c1")
	pres.Add("u1", "c2")
	pres.Add("u2", "c3")

	r.PublishToUser("u1", models.EventNewChat, nil)

	assert.Len(t, sink.events("c1"), 1)
	assert.Len(t, sink.events("c2"), 1)
	assert.Empty(t, sink.events("c3"))
}

func TestPublishPresenceNotifiesContacts(t *testing.T) {
	contacts := &staticContacts{contacts: map[string][]string{
		"u1": {"u2", "u3"},
	}}
	r, _, pres, sink := newTestRouter(contacts)
	pres.Add("u2", "c2")
	// u3 has no live connections, nothing to deliver.

	r.PublishPresence(context.Background(), "u1", true)
	assert.Equal(t, []string{models.EventUserOnline}, sink.events("c2"))

	r.PublishPresence(context.Background(), "u1", false)
	assert.Equal(t, []string{models.EventUserOnline, models.EventUserOffline}, sink.events("c2"))
}

func TestPublishPresenceSurvivesContactLookupFailure(t *testing.T) {
	contacts := &staticContacts{err: errors.New("db down")}
	r, _, pres, sink := newTestRouter(contacts)
	pres.Add("u2", "c2")

	r.PublishPresence(context.Background(), "u1", true)

	assert.Empty(t, sink.events("c2"))
}

type staticCallParties struct {
	parties map[string][]string
}

func (s staticCallParties) Counterparts(userID string) []string {
	return s.parties[userID]
}

func TestPublishPresenceReachesLiveCallCounterpart(t *testing.T) {
	// A call peer without any shared chat still hears presence
	// transitions.
	r, _, pres, sink := newTestRouter(nil)
	r.SetCallParties(staticCallParties{parties: map[string][]string{
		"u1": {"u9"},
	}})
	pres.Add("u9", "c9")

	r.PublishPresence(context.Background(), "u1", false)

	assert.Equal(t, []string{models.EventUserOffline}, sink.events("c9"))
}

func TestPublishPresenceDeduplicatesContactAndCallParty(t *testing.T) {
	contacts := &staticContacts{contacts: map[string][]string{
		"u1": {"u2"},
	}}
	r, _, pres, sink := newTestRouter(contacts)
	r.SetCallParties(staticCallParties{parties: map[string][]string{
		"u1": {"u2"},
	}})
	pres.Add("u2", "c2")

	r.PublishPresence(context.Background(), "u1", true)

	assert.Equal(t, []string{models.EventUserOnline}, sink.events("c2"))
}

func TestChatEventsKeepPublishOrderAcrossSubscribers(t *testing.T) {
	r, reg, _, sink := newTestRouter(nil)
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat1", "c2", "u2")

	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.PublishToChat("chat1", fmt.Sprintf("ev-%d-%d", w, i), nil)
			}
		}(w)
	}
	wg.Wait()

	first := sink.events("c1")
	second := sink.events("c2")
	require.Len(t, first, 2*perWorker)
	// Per-chat sequencing: both subscribers observed the same order.
	assert.Equal(t, first, second)
}

func TestChatLocksPrunedWhenIdle(t *testing.T) {
	r, reg, _, _ := newTestRouter(nil)
	reg.Join("chat1", "c1", "u1")
	reg.Join("chat2", "c2", "u2")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.PublishToChat("chat1", models.EventNewMessage, nil)
				r.PublishToChat("chat2", models.EventNewMessage, nil)
			}
		}()
	}
	wg.Wait()

	// No publisher in flight, no lock state retained.
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Empty(t, r.chatSeq)
}
