package session

// State is the protocol state of a session.
type State uint32

const (
	// StateUnbound is the state of a freshly allocated slot
	StateUnbound State = iota
	// StateAnnounced indicates the peer's Announce was observed
	StateAnnounced
	// StateAwaitingHandshakeResponse indicates HandshakeRequest was issued
	StateAwaitingHandshakeResponse
	// StateActive indicates the handshake completed and a device is bound
	StateActive
	// StateClosed is terminal; the slot is freed
	StateClosed
)

// String returns the log name of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateAnnounced:
		return "announced"
	case StateAwaitingHandshakeResponse:
		return "awaiting_handshake_response"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the state machine allows moving from s to
// next. Closed is reachable from every other state and has no exits.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateUnbound:
		return next == StateAnnounced || next == StateClosed
	case StateAnnounced:
		return next == StateAwaitingHandshakeResponse || next == StateClosed
	case StateAwaitingHandshakeResponse:
		return next == StateActive || next == StateClosed
	case StateActive:
		return next == StateClosed
	default:
		return false
	}
}

// Reason records why a session was destroyed.
type Reason string

const (
	// ReasonClose is an explicit Close received from the peer
	ReasonClose Reason = "close"
	// ReasonTimeout indicates no traffic within the timeout interval
	ReasonTimeout Reason = "timeout"
	// ReasonHandshakeFailed indicates the device could not be created
	ReasonHandshakeFailed Reason = "handshake_failed"
	// ReasonShutdown indicates the local driver is stopping
	ReasonShutdown Reason = "shutdown"
)
