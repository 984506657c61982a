package call

import "errors"

var (
	// ErrUnknownCall means the session id refers to no live session,
	// typically because it already reached a terminal phase.
	ErrUnknownCall = errors.New("unknown call session")

	// ErrStateConflict means the signaling event is invalid for the
	// session's current phase. Surfaced to the actor only, never to the
	// other party.
	ErrStateConflict = errors.New("call state conflict")

	// ErrCalleeBusy means the callee already has a ringing or active
	// session. The caller gets a busy signal instead of a new ring.
	ErrCalleeBusy = errors.New("callee busy")

	// ErrCallerBusy means the caller is already in a live session.
	ErrCallerBusy = errors.New("caller already in a call")

	// ErrNotParty means the actor is neither caller nor callee of the
	// session.
	ErrNotParty = errors.New("not a party to this call")

	// ErrNotCallee means someone other than the addressed callee tried
	// to answer.
	ErrNotCallee = errors.New("only the addressed callee may answer")

	ErrSelfCall    = errors.New("cannot call yourself")
	ErrBadCallType = errors.New("call type must be audio or video")
)
