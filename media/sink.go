package media

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
)

const (
	// sinkBufferSeconds of audio are staged between the clock and the file.
	sinkBufferSeconds = 2
	sinkFlushInterval = 50 * time.Millisecond
	wavFormatPCM      = 1
)

// WAVSink records capture audio to a 24-bit stereo WAV file. Write is
// called from the clock context and never blocks; a writer goroutine
// drains the staging ring buffer into the encoder.
type WAVSink struct {
	file    *os.File
	encoder *wav.Encoder
	ring    *ringbuffer.RingBuffer
	rate    int

	dropped atomic.Uint64
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	err     error
}

// NewWAVSink creates path and starts the writer goroutine.
func NewWAVSink(path string, sampleRate int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	frameBytes := Channels * BytesPerSample
	s := &WAVSink{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, 24, Channels, wavFormatPCM),
		ring:    ringbuffer.New(sampleRate * sinkBufferSeconds * frameBytes),
		rate:    sampleRate,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()

	logrus.WithFields(logrus.Fields{
		"function":    "NewWAVSink",
		"file":        path,
		"sample_rate": sampleRate,
	}).Debug("Opened WAV sink")
	return s, nil
}

// Write stages packed interleaved 24-bit frames. Frames that do not fit
// are dropped whole.
func (s *WAVSink) Write(frames []byte) {
	if len(frames) == 0 {
		return
	}
	if s.ring.Free() < len(frames) {
		s.dropped.Add(1)
		return
	}
	if _, err := s.ring.Write(frames); err != nil {
		s.dropped.Add(1)
	}
}

// Dropped returns the number of writes lost to a full staging buffer.
func (s *WAVSink) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *WAVSink) run() {
	defer close(s.done)
	ticker := time.NewTicker(sinkFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush encodes every complete frame staged so far.
func (s *WAVSink) flush() {
	frameBytes := Channels * BytesPerSample
	n := s.ring.Length() / frameBytes * frameBytes
	if n == 0 {
		return
	}
	raw := make([]byte, n)
	got, err := s.ring.Read(raw)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return
	}
	raw = raw[:got/frameBytes*frameBytes]

	data := make([]int, len(raw)/BytesPerSample)
	for i := range data {
		data[i] = int24(raw[i*BytesPerSample:])
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: s.rate, NumChannels: Channels},
		SourceBitDepth: 24,
	}
	if err := s.encoder.Write(buf); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WAVSink.flush",
			"file":     s.file.Name(),
			"error":    err.Error(),
		}).Warn("Capture write failed")
	}
}

// Close flushes staged audio, finalizes the WAV header and closes the file.
func (s *WAVSink) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.err = errors.Join(s.encoder.Close(), s.file.Close())
	})
	return s.err
}
