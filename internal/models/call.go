package models

import "time"

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// CallPhase is the lifecycle state of a call session. Values are part of
// the persisted call log, keep them stable.
type CallPhase string

const (
	PhaseRinging   CallPhase = "ringing"
	PhaseActive    CallPhase = "active"
	PhaseEnded     CallPhase = "ended"
	PhaseRejected  CallPhase = "rejected"
	PhaseMissed    CallPhase = "missed"
	PhaseCancelled CallPhase = "cancelled"
)

// Terminal reports whether the phase ends the session. A terminal session
// is persisted as a call log and discarded from live state.
func (p CallPhase) Terminal() bool {
	switch p {
	case PhaseEnded, PhaseRejected, PhaseMissed, PhaseCancelled:
		return true
	}
	return false
}

// CallSession is the in-memory state of one call negotiation. The ID is
// client-generated (timestamp+random composite) so the caller can
// correlate signaling before the first server response.
type CallSession struct {
	ID         string     `json:"id"`
	CallerID   string     `json:"caller_id"`
	CalleeID   string     `json:"callee_id"`
	ChatID     string     `json:"chat_id"`
	Type       CallType   `json:"type"`
	Phase      CallPhase  `json:"phase"`
	StartedAt  time.Time  `json:"started_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	EndedBy    string     `json:"ended_by,omitempty"`
	// Duration in seconds, measured from accept to end.
	Duration int `json:"duration,omitempty"`
}
