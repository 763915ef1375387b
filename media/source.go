package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pion/opus"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"github.com/sirupsen/logrus"
)

// Source produces playback audio: interleaved stereo samples scaled to
// 24 bits at the card's sample rate.
type Source interface {
	// Read fills buf and returns the number of samples written. It returns
	// io.EOF once the source is exhausted.
	Read(buf []int) (int, error)
	Close() error
}

// OpenSource opens path as a WAV or Ogg/Opus source, chosen by content.
func OpenSource(path string, sampleRate int) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return newWAVSource(f, sampleRate)
	case "OggS":
		return newOpusSource(f, sampleRate)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s is neither WAV nor Ogg", ErrFormat, path)
	}
}

// WAVSource reads PCM from a WAV file. Mono input is duplicated to both
// channels; channels beyond the second are ignored.
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	channels int
	bitDepth int
	buf      *audio.IntBuffer
}

func newWAVSource(f *os.File, sampleRate int) (*WAVSource, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: invalid WAV file", ErrFormat)
	}
	if int(decoder.SampleRate) != sampleRate {
		f.Close()
		return nil, fmt.Errorf("%w: WAV sample rate %d, card runs at %d", ErrFormat, decoder.SampleRate, sampleRate)
	}
	if decoder.NumChans < 1 {
		f.Close()
		return nil, fmt.Errorf("%w: WAV has no channels", ErrFormat)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "newWAVSource",
		"file":        f.Name(),
		"sample_rate": decoder.SampleRate,
		"bit_depth":   decoder.BitDepth,
		"channels":    decoder.NumChans,
	}).Debug("Opened WAV source")

	return &WAVSource{
		file:     f,
		decoder:  decoder,
		channels: int(decoder.NumChans),
		bitDepth: int(decoder.BitDepth),
		buf: &audio.IntBuffer{
			Format: &audio.Format{SampleRate: sampleRate, NumChannels: int(decoder.NumChans)},
		},
	}, nil
}

// Read implements Source.
func (s *WAVSource) Read(buf []int) (int, error) {
	frames := len(buf) / Channels
	want := frames * s.channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	got := n / s.channels
	for i := 0; i < got; i++ {
		frame := s.buf.Data[i*s.channels:]
		left := scaleTo24(frame[0], s.bitDepth)
		right := left
		if s.channels > 1 {
			right = scaleTo24(frame[1], s.bitDepth)
		}
		buf[i*Channels] = left
		buf[i*Channels+1] = right
	}
	return got * Channels, nil
}

// Close implements Source.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// opusRate is the rate pion/opus decodes to.
const opusRate = 48000

// OpusSource decodes an Ogg/Opus file with one Opus packet per page.
type OpusSource struct {
	file     *os.File
	reader   *oggreader.OggReader
	decoder  opus.Decoder
	channels int
	pcm      []byte
	pending  []int
}

func newOpusSource(f *os.File, sampleRate int) (*OpusSource, error) {
	if sampleRate != opusRate {
		f.Close()
		return nil, fmt.Errorf("%w: Opus decodes at %d Hz, card runs at %d", ErrFormat, opusRate, sampleRate)
	}
	reader, header, err := oggreader.NewWith(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "newOpusSource",
		"file":     f.Name(),
		"channels": header.Channels,
	}).Debug("Opened Ogg/Opus source")

	return &OpusSource{
		file:     f,
		reader:   reader,
		decoder:  opus.NewDecoder(),
		channels: int(header.Channels),
		pcm:      make([]byte, maxOpusFrameSamples*2*2),
	}, nil
}

// Read implements Source.
func (s *OpusSource) Read(buf []int) (int, error) {
	for len(s.pending) < len(buf) {
		if err := s.decodeNext(); err != nil {
			if errors.Is(err, io.EOF) && len(s.pending) > 0 {
				break
			}
			return 0, err
		}
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// decodeNext decodes the next audio page into pending.
func (s *OpusSource) decodeNext() error {
	for {
		page, _, err := s.reader.ParseNextPage()
		if err != nil {
			return err
		}
		if len(page) == 0 || isOpusTags(page) {
			continue
		}

		_, stereo, err := s.decoder.Decode(page, s.pcm)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "OpusSource.decodeNext",
				"size":     len(page),
				"error":    err.Error(),
			}).Debug("Skipping undecodable Opus packet")
			continue
		}

		channels := 1
		if stereo {
			channels = 2
		}
		samples := opusFrameSamples(page) * channels
		if limit := len(s.pcm) / 2; samples > limit {
			samples = limit
		}
		for i := 0; i+channels <= samples; i += channels {
			left := int(int16(uint16(s.pcm[2*i]) | uint16(s.pcm[2*i+1])<<8))
			right := left
			if channels == 2 {
				right = int(int16(uint16(s.pcm[2*i+2]) | uint16(s.pcm[2*i+3])<<8))
			}
			s.pending = append(s.pending, scaleTo24(left, 16), scaleTo24(right, 16))
		}
		return nil
	}
}

// Close implements Source.
func (s *OpusSource) Close() error {
	return s.file.Close()
}

func isOpusTags(page []byte) bool {
	return len(page) >= 8 && string(page[:8]) == "OpusTags"
}

// maxOpusFrameSamples is 120ms at 48kHz.
const maxOpusFrameSamples = 5760

// opusFrameSamples returns the per-channel sample count at 48kHz of an Opus
// packet, read from its TOC byte.
func opusFrameSamples(packet []byte) int {
	if len(packet) == 0 {
		return 0
	}
	toc := packet[0]
	config := int(toc >> 3)

	var perFrame int
	switch {
	case config < 12: // SILK: 10, 20, 40, 60 ms
		perFrame = []int{480, 960, 1920, 2880}[config&3]
	case config < 16: // hybrid: 10, 20 ms
		perFrame = []int{480, 960}[config&1]
	default: // CELT: 2.5, 5, 10, 20 ms
		perFrame = []int{120, 240, 480, 960}[config&3]
	}

	frames := 1
	switch toc & 3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) < 2 {
			return 0
		}
		frames = int(packet[1] & 0x3f)
	}
	if n := perFrame * frames; n < maxOpusFrameSamples {
		return n
	}
	return maxOpusFrameSamples
}
