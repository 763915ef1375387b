package session

import "errors"

// Session table errors
var (
	// ErrNoSlot indicates the session table is at capacity. This is a hard
	// resource limit; the peer is expected to announce again later.
	ErrNoSlot = errors.New("no free session slot")

	// ErrSessionExists indicates a session for the (peer, generation) pair
	// already exists
	ErrSessionExists = errors.New("session already exists")

	// ErrStaleHandle indicates a handle whose slot was freed or reused
	ErrStaleHandle = errors.New("stale session handle")

	// ErrAlreadyBound indicates a device is already bound to the session
	ErrAlreadyBound = errors.New("device already bound")
)

// State machine errors
var (
	// ErrInvalidTransition indicates a state change the state machine forbids
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Manager errors
var (
	// ErrNilSender indicates the manager was created without a frame sender
	ErrNilSender = errors.New("frame sender cannot be nil")
)
