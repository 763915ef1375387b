package transport

import (
	"time"

	"github.com/opd-ai/ccoaudio/interfaces"
)

// readTimeout bounds each blocking receive so the receive loop notices
// Close promptly.
const readTimeout = 100 * time.Millisecond

var (
	_ interfaces.ILinkTransport = (*RawTransport)(nil)
	_ interfaces.ILinkTransport = (*MemoryTransport)(nil)
)
