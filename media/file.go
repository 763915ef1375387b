package media

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/pcm"
	"github.com/sirupsen/logrus"
)

// FileFramework creates cards that play a file to the peer and record the
// peer's capture stream to a WAV file. Both are paced by the card's
// software clock: one period moves per period-elapsed notification.
type FileFramework struct {
	// PlaybackFile is a WAV or Ogg/Opus file sent to the peer. Empty sends
	// nothing.
	PlaybackFile string
	// CaptureFile receives the peer's audio. Each card records to its own
	// file, named after the card. Empty records nothing.
	CaptureFile string
}

var _ interfaces.IAudioFramework = (*FileFramework)(nil)

// CreateCard implements interfaces.IAudioFramework. It opens the card's
// files and starts both stream clocks.
func (f *FileFramework) CreateCard(cfg interfaces.CardConfig, endpoint interfaces.ISampleEndpoint) (interfaces.ICard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Channels != Channels || cfg.SampleSize != BytesPerSample {
		return nil, fmt.Errorf("%w: %d channels of %d bytes", ErrFormat, cfg.Channels, cfg.SampleSize)
	}

	c := &fileCard{
		name:     cfg.Name,
		endpoint: endpoint,
		frames:   cfg.PeriodFrames,
		block:    make([]byte, cfg.PeriodBytes()),
		samples:  make([]int, cfg.PeriodFrames*Channels),
	}
	if f.PlaybackFile != "" {
		src, err := OpenSource(f.PlaybackFile, cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("open playback source: %w", err)
		}
		c.source = src
	}
	if f.CaptureFile != "" {
		sink, err := NewWAVSink(cardFileName(f.CaptureFile, cfg.Name), cfg.SampleRate)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.sink = sink
	}

	for _, dir := range []interfaces.StreamDirection{interfaces.Playback, interfaces.Capture} {
		if err := endpoint.Trigger(dir, true); err != nil {
			c.Close()
			return nil, fmt.Errorf("start %s clock: %w", dir, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "FileFramework.CreateCard",
		"card":     cfg.Name,
		"peer":     cfg.Peer.String(),
		"playback": f.PlaybackFile,
		"capture":  f.CaptureFile,
	}).Info("File card created")
	return c, nil
}

// cardFileName inserts the card name before the extension of path.
func cardFileName(path, card string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + card + ext
}

type fileCard struct {
	name     string
	endpoint interfaces.ISampleEndpoint
	frames   int

	mu      sync.Mutex
	source  Source
	sink    *WAVSink
	block   []byte
	samples []int
	closed  bool
}

// PeriodElapsed implements interfaces.ICard.
func (c *fileCard) PeriodElapsed(dir interfaces.StreamDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch dir {
	case interfaces.Playback:
		c.playPeriod()
	case interfaces.Capture:
		c.recordPeriod()
	}
}

// playPeriod writes one period from the source. After the source ends
// silence is sent, so the peer keeps receiving a steady stream.
func (c *fileCard) playPeriod() {
	for i := range c.samples {
		c.samples[i] = 0
	}
	if c.source != nil {
		filled := 0
		for filled < len(c.samples) {
			n, err := c.source.Read(c.samples[filled:])
			filled += n
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logrus.WithFields(logrus.Fields{
						"function": "fileCard.playPeriod",
						"card":     c.name,
						"error":    err.Error(),
					}).Warn("Playback source failed, switching to silence")
				}
				c.source.Close()
				c.source = nil
				break
			}
		}
	}

	blocks := splitChannels(c.samples, c.frames)
	for ch, b := range blocks {
		if err := c.endpoint.WriteSamples(ch, b); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "fileCard.playPeriod",
				"card":     c.name,
				"channel":  ch,
				"error":    err.Error(),
			}).Debug("Playback write failed")
		}
	}
}

// recordPeriod moves one captured period, if one is available, to the sink.
func (c *fileCard) recordPeriod() {
	var blocks [Channels][]byte
	for ch := range blocks {
		n, err := c.endpoint.ReadSamples(ch, c.block)
		if err != nil {
			if !errors.Is(err, pcm.ErrNoData) {
				logrus.WithFields(logrus.Fields{
					"function": "fileCard.recordPeriod",
					"card":     c.name,
					"channel":  ch,
					"error":    err.Error(),
				}).Debug("Capture read failed")
			}
			return
		}
		blocks[ch] = append([]byte(nil), c.block[:n]...)
	}
	if c.sink != nil {
		c.sink.Write(interleaveBlocks(blocks))
	}
}

// Close implements interfaces.ICard.
func (c *fileCard) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.source != nil {
		errs = append(errs, c.source.Close())
	}
	if c.sink != nil {
		errs = append(errs, c.sink.Close())
	}
	logrus.WithFields(logrus.Fields{
		"function": "fileCard.Close",
		"card":     c.name,
	}).Debug("File card closed")
	return errors.Join(errs...)
}
