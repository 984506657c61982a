package call

import (
	"context"
	"sync"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/database"
	"github.com/mohammedbilalns/LogIt-sub002/internal/metrics"
	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"
)

// Publisher relays a signaling event to every live connection of a user.
type Publisher interface {
	PublishToUser(userID, event string, data interface{})
}

// PresenceView answers whether a user holds at least one live connection.
type PresenceView interface {
	IsOnline(userID string) bool
}

// UserSource resolves caller display names for incoming-call payloads.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Coordinator runs one state machine per call session and relays
// signaling events between the two parties through their live
// connections. Calls are between specific users, not chat subscribers,
// so relay goes through presence, never through room membership.
//
// Transitions for one session are serialized by the session's own lock:
// when Accept and Reject race on a Ringing session exactly one wins, the
// loser gets ErrStateConflict.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[string]*session
	byUser   map[string]map[string]struct{} // user id -> live call ids

	publisher   Publisher
	logs        database.CallLogRepository
	users       UserSource
	presence    PresenceView
	ringTimeout time.Duration
	now         func() time.Time
}

type session struct {
	mu    sync.Mutex
	state models.CallSession
	timer *time.Timer
}

func NewCoordinator(publisher Publisher, logs database.CallLogRepository, users UserSource, presence PresenceView, ringTimeout time.Duration) *Coordinator {
	return &Coordinator{
		sessions:    make(map[string]*session),
		byUser:      make(map[string]map[string]struct{}),
		publisher:   publisher,
		logs:        logs,
		users:       users,
		presence:    presence,
		ringTimeout: ringTimeout,
		now:         time.Now,
	}
}

// StartCall validates a start-call signal and either rings the callee,
// resolves to missed (callee has no live connection), or refuses with a
// busy signal. Re-entrant start for the same caller+callee pair while
// already ringing returns the existing session.
func (c *Coordinator) StartCall(ctx context.Context, callerID string, p models.StartCallPayload) (*models.CallSession, error) {
	if p.CallID == "" || p.CalleeID == "" {
		return nil, ErrUnknownCall
	}
	if p.CalleeID == callerID {
		return nil, ErrSelfCall
	}
	if p.Type != models.CallTypeAudio && p.Type != models.CallTypeVideo {
		return nil, ErrBadCallType
	}

	c.mu.Lock()
	if existing := c.ringingPairLocked(callerID, p.CalleeID); existing != nil {
		state := existing.snapshot()
		c.mu.Unlock()
		return &state, nil
	}
	if c.userLiveLocked(p.CalleeID) {
		c.mu.Unlock()
		return nil, ErrCalleeBusy
	}
	if c.userLiveLocked(callerID) {
		c.mu.Unlock()
		return nil, ErrCallerBusy
	}

	s := &session{state: models.CallSession{
		ID:        p.CallID,
		CallerID:  callerID,
		CalleeID:  p.CalleeID,
		ChatID:    p.ChatID,
		Type:      p.Type,
		Phase:     models.PhaseRinging,
		StartedAt: c.now(),
	}}

	if !c.presence.IsOnline(p.CalleeID) {
		// No live connection to ring: record the attempt as missed
		// instead of silently dropping it.
		now := c.now()
		s.state.Phase = models.PhaseMissed
		s.state.EndedAt = &now
		c.mu.Unlock()

		state := s.state
		c.persist(ctx, &state)
		metrics.Calls.WithLabelValues(string(models.PhaseMissed)).Inc()
		c.publisher.PublishToUser(callerID, models.EventCallMissed, models.CallRefPayload{CallID: state.ID})
		return &state, nil
	}

	c.sessions[s.state.ID] = s
	c.indexLocked(callerID, s.state.ID)
	c.indexLocked(p.CalleeID, s.state.ID)
	c.mu.Unlock()

	state := s.snapshot()
	c.persist(ctx, &state)

	fromName := ""
	if caller, err := c.users.GetUserByID(ctx, callerID); err == nil {
		fromName = caller.Name
	} else {
		logger.Warn("Resolving caller name for %s: %v", callerID, err)
	}

	c.publisher.PublishToUser(p.CalleeID, models.EventIncomingCall, models.IncomingCallPayload{
		CallID:     state.ID,
		FromUserID: callerID,
		FromName:   fromName,
		Type:       state.Type,
		ChatID:     state.ChatID,
	})

	callID := state.ID
	s.mu.Lock()
	if s.state.Phase == models.PhaseRinging {
		s.timer = time.AfterFunc(c.ringTimeout, func() { c.ringTimedOut(callID) })
	}
	s.mu.Unlock()

	return &state, nil
}

// Accept transitions a ringing session to active. Only the addressed
// callee may accept.
func (c *Coordinator) Accept(ctx context.Context, actorID, callID string) (*models.CallSession, error) {
	s, err := c.lookup(callID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.Phase != models.PhaseRinging {
		s.mu.Unlock()
		return nil, ErrStateConflict
	}
	if actorID != s.state.CalleeID {
		s.mu.Unlock()
		return nil, ErrNotCallee
	}
	now := c.now()
	s.state.Phase = models.PhaseActive
	s.state.AcceptedAt = &now
	s.stopTimerLocked()
	state := s.state
	s.mu.Unlock()

	c.persist(ctx, &state)
	payload := models.CallRefPayload{CallID: state.ID}
	c.publisher.PublishToUser(state.CallerID, models.EventCallAccepted, payload)
	c.publisher.PublishToUser(state.CalleeID, models.EventCallAccepted, payload)
	return &state, nil
}

// Reject terminates a ringing session. Only the addressed callee may
// reject.
func (c *Coordinator) Reject(ctx context.Context, actorID, callID string) (*models.CallSession, error) {
	s, err := c.lookup(callID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.Phase != models.PhaseRinging {
		s.mu.Unlock()
		return nil, ErrStateConflict
	}
	if actorID != s.state.CalleeID {
		s.mu.Unlock()
		return nil, ErrNotCallee
	}
	state := c.terminateLocked(s, models.PhaseRejected, actorID)
	s.mu.Unlock()

	c.finish(ctx, &state)
	payload := models.CallRefPayload{CallID: state.ID}
	c.publisher.PublishToUser(state.CallerID, models.EventCallRejected, payload)
	c.publisher.PublishToUser(state.CalleeID, models.EventCallRejected, payload)
	return &state, nil
}

// End terminates a session from either party. A caller hanging up while
// the session is still ringing cancels it; ending an active session
// records the call duration.
func (c *Coordinator) End(ctx context.Context, actorID, callID string) (*models.CallSession, error) {
	s, err := c.lookup(callID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if actorID != s.state.CallerID && actorID != s.state.CalleeID {
		s.mu.Unlock()
		return nil, ErrNotParty
	}

	var state models.CallSession
	switch s.state.Phase {
	case models.PhaseRinging:
		phase := models.PhaseRejected
		if actorID == s.state.CallerID {
			phase = models.PhaseCancelled
		}
		state = c.terminateLocked(s, phase, actorID)
	case models.PhaseActive:
		state = c.terminateLocked(s, models.PhaseEnded, actorID)
	default:
		s.mu.Unlock()
		return nil, ErrStateConflict
	}
	s.mu.Unlock()

	c.finish(ctx, &state)
	payload := models.CallEndedPayload{CallID: state.ID, EndedBy: actorID, Duration: state.Duration}
	c.publisher.PublishToUser(state.CallerID, models.EventCallEnded, payload)
	c.publisher.PublishToUser(state.CalleeID, models.EventCallEnded, payload)
	return &state, nil
}

// HandleUserOffline applies the disconnect equivalences for every live
// session the user is a party to: a ringing callee going offline means
// missed, a ringing caller going offline cancels, an active session ends.
func (c *Coordinator) HandleUserOffline(userID string) {
	c.mu.Lock()
	var affected []*session
	for callID := range c.byUser[userID] {
		if s, ok := c.sessions[callID]; ok {
			affected = append(affected, s)
		}
	}
	c.mu.Unlock()

	ctx := context.Background()
	for _, s := range affected {
		s.mu.Lock()
		var state models.CallSession
		ended := false
		switch s.state.Phase {
		case models.PhaseRinging:
			if userID == s.state.CalleeID {
				state = c.terminateLocked(s, models.PhaseMissed, "")
			} else {
				state = c.terminateLocked(s, models.PhaseCancelled, userID)
			}
		case models.PhaseActive:
			state = c.terminateLocked(s, models.PhaseEnded, userID)
			ended = true
		default:
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		c.finish(ctx, &state)
		other := state.CallerID
		if userID == state.CallerID {
			other = state.CalleeID
		}
		if ended {
			c.publisher.PublishToUser(other, models.EventCallEnded, models.CallEndedPayload{
				CallID: state.ID, EndedBy: userID, Duration: state.Duration,
			})
		} else if state.Phase == models.PhaseMissed {
			c.publisher.PublishToUser(state.CallerID, models.EventCallMissed, models.CallRefPayload{CallID: state.ID})
		} else {
			c.publisher.PublishToUser(other, models.EventCallEnded, models.CallEndedPayload{
				CallID: state.ID, EndedBy: userID,
			})
		}
	}
}

// Counterparts returns the other party of every live session the user
// is a party to. Feeds the presence fan-out: a call peer must hear
// online/offline transitions even without a shared chat.
func (c *Coordinator) Counterparts(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var others []string
	for callID := range c.byUser[userID] {
		s, ok := c.sessions[callID]
		if !ok {
			continue
		}
		s.mu.Lock()
		other := s.state.CallerID
		if other == userID {
			other = s.state.CalleeID
		}
		s.mu.Unlock()
		others = append(others, other)
	}
	return others
}

// LiveSessions reports the number of sessions not yet terminal.
func (c *Coordinator) LiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Coordinator) ringTimedOut(callID string) {
	s, err := c.lookup(callID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.state.Phase != models.PhaseRinging {
		s.mu.Unlock()
		return
	}
	state := c.terminateLocked(s, models.PhaseMissed, "")
	s.mu.Unlock()

	ctx := context.Background()
	c.finish(ctx, &state)
	payload := models.CallRefPayload{CallID: state.ID}
	c.publisher.PublishToUser(state.CallerID, models.EventCallMissed, payload)
	c.publisher.PublishToUser(state.CalleeID, models.EventCallMissed, payload)
}

// terminateLocked moves the session to a terminal phase. Requires s.mu
// held; removal from the live maps happens afterwards in finish.
func (c *Coordinator) terminateLocked(s *session, phase models.CallPhase, endedBy string) models.CallSession {
	now := c.now()
	s.state.Phase = phase
	s.state.EndedAt = &now
	s.state.EndedBy = endedBy
	if s.state.AcceptedAt != nil {
		s.state.Duration = int(now.Sub(*s.state.AcceptedAt).Seconds())
	}
	s.stopTimerLocked()
	return s.state
}

// finish persists the terminal snapshot and discards the session from
// live state.
func (c *Coordinator) finish(ctx context.Context, state *models.CallSession) {
	c.persist(ctx, state)
	metrics.Calls.WithLabelValues(string(state.Phase)).Inc()

	c.mu.Lock()
	delete(c.sessions, state.ID)
	c.unindexLocked(state.CallerID, state.ID)
	c.unindexLocked(state.CalleeID, state.ID)
	c.mu.Unlock()
}

func (c *Coordinator) persist(ctx context.Context, state *models.CallSession) {
	if err := c.logs.RecordCallLog(ctx, state); err != nil {
		logger.Error("Recording call log %s (%s): %v", state.ID, state.Phase, err)
	}
}

func (c *Coordinator) lookup(callID string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[callID]
	if !ok {
		return nil, ErrUnknownCall
	}
	return s, nil
}

// ringingPairLocked finds an existing ringing session for the exact
// caller+callee pair. Requires c.mu held.
func (c *Coordinator) ringingPairLocked(callerID, calleeID string) *session {
	for callID := range c.byUser[callerID] {
		s, ok := c.sessions[callID]
		if !ok {
			continue
		}
		s.mu.Lock()
		match := s.state.Phase == models.PhaseRinging &&
			s.state.CallerID == callerID && s.state.CalleeID == calleeID
		s.mu.Unlock()
		if match {
			return s
		}
	}
	return nil
}

// userLiveLocked reports whether the user is party to any live session.
// Requires c.mu held.
func (c *Coordinator) userLiveLocked(userID string) bool {
	return len(c.byUser[userID]) > 0
}

func (c *Coordinator) indexLocked(userID, callID string) {
	set, ok := c.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		c.byUser[userID] = set
	}
	set[callID] = struct{}{}
}

func (c *Coordinator) unindexLocked(userID, callID string) {
	if set, ok := c.byUser[userID]; ok {
		delete(set, callID)
		if len(set) == 0 {
			delete(c.byUser, userID)
		}
	}
}

func (s *session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *session) snapshot() models.CallSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
