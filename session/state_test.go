package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []State{StateUnbound, StateAnnounced, StateAwaitingHandshakeResponse, StateActive, StateClosed}

func TestClosedReachableFromEveryState(t *testing.T) {
	for _, s := range allStates[:len(allStates)-1] {
		assert.True(t, s.CanTransition(StateClosed), "%s -> closed", s)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for _, next := range allStates {
		assert.False(t, StateClosed.CanTransition(next), "closed -> %s", next)
	}
}

func TestHandshakePath(t *testing.T) {
	path := []State{StateUnbound, StateAnnounced, StateAwaitingHandshakeResponse, StateActive}
	for i := 0; i+1 < len(path); i++ {
		assert.True(t, path[i].CanTransition(path[i+1]), "%s -> %s", path[i], path[i+1])
	}
	assert.False(t, StateUnbound.CanTransition(StateActive))
	assert.False(t, StateAnnounced.CanTransition(StateActive))
	assert.False(t, StateActive.CanTransition(StateAwaitingHandshakeResponse))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_handshake_response", StateAwaitingHandshakeResponse.String())
	assert.Equal(t, "unknown", State(42).String())
}
