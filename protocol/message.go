package protocol

import "fmt"

// Message is the decoded, type-specific payload of a frame.
type Message interface {
	// Type returns the message family written to the header.
	Type() MsgType

	// appendPayload appends the wire form of the payload to b.
	appendPayload(b []byte) ([]byte, error)
}

// SessionControl drives session discovery, handshake, liveness and teardown.
type SessionControl struct {
	Kind SessionControlType
}

// Type implements Message.
func (SessionControl) Type() MsgType { return MsgSessionControl }

func (m SessionControl) appendPayload(b []byte) ([]byte, error) {
	if !m.Kind.Valid() {
		return nil, fmt.Errorf("%w: session control sub-type %d", ErrInvalidMessage, m.Kind)
	}
	return append(b, byte(m.Kind)), nil
}

// PcmControl reports which streams the peer considers active.
type PcmControl struct {
	Mask StreamMask
}

// Type implements Message.
func (PcmControl) Type() MsgType { return MsgPcmControl }

func (m PcmControl) appendPayload(b []byte) ([]byte, error) {
	return append(b, byte(m.Mask)), nil
}

// PcmData carries one period of audio: a sequence number and one
// ChannelBlockSize block per channel, channel 0 first.
type PcmData struct {
	Sequence uint32
	Data     []byte
}

// Type implements Message.
func (PcmData) Type() MsgType { return MsgPcmData }

// Channel returns the sample block of channel ch. It returns nil when ch is
// out of range or Data has the wrong size.
func (m PcmData) Channel(ch int) []byte {
	if ch < 0 || ch >= ChannelsPerPacket || len(m.Data) != PeriodDataSize {
		return nil
	}
	return m.Data[ch*ChannelBlockSize : (ch+1)*ChannelBlockSize]
}

func (m PcmData) appendPayload(b []byte) ([]byte, error) {
	if len(m.Data) != PeriodDataSize {
		return nil, fmt.Errorf("%w: pcm data is %d bytes, want %d", ErrInvalidMessage, len(m.Data), PeriodDataSize)
	}
	b = append(b,
		byte(m.Sequence>>24), byte(m.Sequence>>16), byte(m.Sequence>>8), byte(m.Sequence))
	return append(b, m.Data...), nil
}
