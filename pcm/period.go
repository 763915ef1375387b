package pcm

import "github.com/opd-ai/ccoaudio/protocol"

// Period is one packet's worth of audio: one fixed-size slice per channel.
// Playback periods fill up through writes; capture periods arrive full and
// drain through reads.
type Period struct {
	Sequence uint32

	data []byte
	// fill is the per-channel write offset (playback) or read offset
	// (capture) within the channel's slice.
	fill [protocol.ChannelsPerPacket]int
}

func newPeriod(seq uint32) *Period {
	return &Period{Sequence: seq, data: make([]byte, protocol.PeriodDataSize)}
}

// channel returns the backing slice of channel ch.
func (p *Period) channel(ch int) []byte {
	return p.data[ch*protocol.ChannelBlockSize : (ch+1)*protocol.ChannelBlockSize]
}

// complete reports whether every channel's offset reached the block size.
func (p *Period) complete() bool {
	for _, f := range p.fill {
		if f != protocol.ChannelBlockSize {
			return false
		}
	}
	return true
}

// Fill returns the offset of channel ch.
func (p *Period) Fill(ch int) int {
	if ch < 0 || ch >= protocol.ChannelsPerPacket {
		return 0
	}
	return p.fill[ch]
}

// Message returns the period as a PcmData message sharing no memory with p.
func (p *Period) Message() protocol.PcmData {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	return protocol.PcmData{Sequence: p.Sequence, Data: data}
}
