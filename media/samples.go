package media

import (
	"errors"

	"github.com/opd-ai/ccoaudio/protocol"
)

// BytesPerSample is the packed sample size exchanged with the peer.
const BytesPerSample = protocol.SampleSize

// Channels is the channel count of every card.
const Channels = protocol.ChannelsPerPacket

// ErrFormat indicates a media file the card cannot play or record.
var ErrFormat = errors.New("unsupported media format")

// int24 limits.
const (
	maxInt24 = 1<<23 - 1
	minInt24 = -1 << 23
)

// putInt24 stores v as packed 24-bit little-endian, clamping to range.
func putInt24(b []byte, v int) {
	if v > maxInt24 {
		v = maxInt24
	} else if v < minInt24 {
		v = minInt24
	}
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// int24 reads a packed 24-bit little-endian sample.
func int24(b []byte) int {
	return int(int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16)
}

// scaleTo24 converts a sample of bitDepth bits to 24 bits.
func scaleTo24(v, bitDepth int) int {
	switch {
	case bitDepth < 24:
		return v << (24 - bitDepth)
	case bitDepth > 24:
		return v >> (bitDepth - 24)
	default:
		return v
	}
}

// splitChannels packs interleaved stereo samples into one block per
// channel. Missing samples are written as silence.
func splitChannels(interleaved []int, frames int) [Channels][]byte {
	var blocks [Channels][]byte
	for ch := range blocks {
		blocks[ch] = make([]byte, frames*BytesPerSample)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < Channels; ch++ {
			idx := i*Channels + ch
			if idx >= len(interleaved) {
				return blocks
			}
			putInt24(blocks[ch][i*BytesPerSample:], interleaved[idx])
		}
	}
	return blocks
}

// interleaveBlocks merges per-channel packed blocks into packed interleaved
// frames. Blocks are truncated to the shortest.
func interleaveBlocks(blocks [Channels][]byte) []byte {
	frames := len(blocks[0]) / BytesPerSample
	for _, b := range blocks[1:] {
		if n := len(b) / BytesPerSample; n < frames {
			frames = n
		}
	}
	out := make([]byte, frames*Channels*BytesPerSample)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < Channels; ch++ {
			copy(out[(i*Channels+ch)*BytesPerSample:], blocks[ch][i*BytesPerSample:(i+1)*BytesPerSample])
		}
	}
	return out
}

// deinterleaveBytes splits packed interleaved frames into per-channel blocks.
func deinterleaveBytes(frames []byte) [Channels][]byte {
	n := len(frames) / (Channels * BytesPerSample)
	var blocks [Channels][]byte
	for ch := range blocks {
		blocks[ch] = make([]byte, n*BytesPerSample)
	}
	for i := 0; i < n; i++ {
		for ch := 0; ch < Channels; ch++ {
			src := (i*Channels + ch) * BytesPerSample
			copy(blocks[ch][i*BytesPerSample:], frames[src:src+BytesPerSample])
		}
	}
	return blocks
}
