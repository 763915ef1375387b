package protocol

import (
	"net"
	"time"
)

// Magic is the first 32 bits of the MD5 hash of "cuoc cho am".
const Magic uint32 = 0x83f8ddef

// HeaderSize is the size of the fixed header preceding every payload.
const HeaderSize = 6

// PCM geometry carried by a PcmData message. These are protocol constants
// shared with the peer firmware.
const (
	ChannelsPerPacket = 2
	SamplesPerChannel = 192
	SampleSize        = 3

	// ChannelBlockSize is the number of bytes of one channel in one period.
	ChannelBlockSize = SamplesPerChannel * SampleSize

	// SequenceSize is the size of the PcmData sequence number.
	SequenceSize = 4

	// PeriodDataSize is the size of all channel blocks of one period.
	PeriodDataSize = ChannelsPerPacket * ChannelBlockSize
)

// Payload sizes, excluding the header, for each message type.
const (
	SessionControlPayloadSize = 1
	PcmControlPayloadSize     = 1
	PcmDataPayloadSize        = SequenceSize + PeriodDataSize
)

// Liveness timing. Both values are fixed by the protocol and never negotiated.
const (
	HeartbeatInterval = 1 * time.Second
	TimeoutInterval   = 3 * HeartbeatInterval
)

// BroadcastAddr is the destination of Announce frames.
var BroadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MsgType identifies the message family carried by a frame.
type MsgType uint8

const (
	MsgSessionControl MsgType = 0
	MsgPcmControl     MsgType = 1
	MsgPcmData        MsgType = 2
)

// String returns the metrics/log label of the message type.
func (t MsgType) String() string {
	switch t {
	case MsgSessionControl:
		return "session_control"
	case MsgPcmControl:
		return "pcm_control"
	case MsgPcmData:
		return "pcm_data"
	default:
		return "unknown"
	}
}

// payloadSize returns the exact payload size prescribed for t.
func (t MsgType) payloadSize() (int, bool) {
	switch t {
	case MsgSessionControl:
		return SessionControlPayloadSize, true
	case MsgPcmControl:
		return PcmControlPayloadSize, true
	case MsgPcmData:
		return PcmDataPayloadSize, true
	default:
		return 0, false
	}
}

// SessionControlType is the sub-type of a SessionControl message.
type SessionControlType uint8

const (
	Announce          SessionControlType = 0
	HandshakeRequest  SessionControlType = 1
	HandshakeResponse SessionControlType = 2
	Heartbeat         SessionControlType = 3
	Close             SessionControlType = 4
)

// Valid reports whether k is one of the five known sub-types.
func (k SessionControlType) Valid() bool {
	return k <= Close
}

func (k SessionControlType) String() string {
	switch k {
	case Announce:
		return "announce"
	case HandshakeRequest:
		return "handshake_request"
	case HandshakeResponse:
		return "handshake_response"
	case Heartbeat:
		return "heartbeat"
	case Close:
		return "close"
	default:
		return "invalid"
	}
}

// StreamMask is the stream-activity bitmask carried by PcmControl.
type StreamMask uint8

const (
	MaskCapture  StreamMask = 1 << 0
	MaskPlayback StreamMask = 1 << 1

	// MaskAll marks both streams active.
	MaskAll = MaskCapture | MaskPlayback
)

// CaptureActive reports whether bit0 is set.
func (m StreamMask) CaptureActive() bool { return m&MaskCapture != 0 }

// PlaybackActive reports whether bit1 is set.
func (m StreamMask) PlaybackActive() bool { return m&MaskPlayback != 0 }
