package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/pcm"
	"github.com/sirupsen/logrus"
)

// MalgoFramework bridges each card to a duplex sound-card device: host
// input is played to the peer and the peer's capture stream is played on
// the host output.
type MalgoFramework struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

var _ interfaces.IAudioFramework = (*MalgoFramework)(nil)

// NewMalgoFramework initializes the audio backend.
func NewMalgoFramework() (*MalgoFramework, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logrus.WithFields(logrus.Fields{
			"function": "malgo",
		}).Debug(message)
	})
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}
	return &MalgoFramework{ctx: ctx}, nil
}

// CreateCard implements interfaces.IAudioFramework.
func (f *MalgoFramework) CreateCard(cfg interfaces.CardConfig, endpoint interfaces.ISampleEndpoint) (interfaces.ICard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Channels != Channels || cfg.SampleSize != BytesPerSample {
		return nil, fmt.Errorf("%w: %d channels of %d bytes", ErrFormat, cfg.Channels, cfg.SampleSize)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx == nil {
		return nil, errors.New("audio framework closed")
	}

	c := &malgoCard{name: cfg.Name, endpoint: endpoint}
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS24
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Playback.Format = malgo.FormatS24
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(f.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onFrames,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize sound device: %w", err)
	}
	c.device = dev

	for _, dir := range []interfaces.StreamDirection{interfaces.Playback, interfaces.Capture} {
		if err := endpoint.Trigger(dir, true); err != nil {
			dev.Uninit()
			return nil, fmt.Errorf("start %s clock: %w", dir, err)
		}
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("start sound device: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "MalgoFramework.CreateCard",
		"card":        cfg.Name,
		"peer":        cfg.Peer.String(),
		"sample_rate": cfg.SampleRate,
	}).Info("Sound card bridge started")
	return c, nil
}

// Close releases the audio backend. Cards must be closed first.
func (f *MalgoFramework) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx == nil {
		return nil
	}
	err := f.ctx.Uninit()
	f.ctx.Free()
	f.ctx = nil
	return err
}

type malgoCard struct {
	name     string
	endpoint interfaces.ISampleEndpoint
	device   *malgo.Device
	once     sync.Once
}

// onFrames runs on the audio thread: input frames go to the peer, the
// output buffer is filled from the peer's capture stream.
func (c *malgoCard) onFrames(output, input []byte, frameCount uint32) {
	if len(input) > 0 {
		blocks := deinterleaveBytes(input)
		for ch, b := range blocks {
			if err := c.endpoint.WriteSamples(ch, b); err != nil {
				return
			}
		}
	}

	if len(output) == 0 {
		return
	}
	want := int(frameCount) * BytesPerSample
	var blocks [Channels][]byte
	for ch := range blocks {
		blocks[ch] = make([]byte, want)
		n, err := c.endpoint.ReadSamples(ch, blocks[ch])
		if err != nil && !errors.Is(err, pcm.ErrNoData) {
			logrus.WithFields(logrus.Fields{
				"function": "malgoCard.onFrames",
				"card":     c.name,
				"error":    err.Error(),
			}).Trace("Capture read failed")
		}
		// Underflow plays silence.
		for i := n; i < want; i++ {
			blocks[ch][i] = 0
		}
	}
	copy(output, interleaveBlocks(blocks))
}

// PeriodElapsed implements interfaces.ICard. The sound device runs on its
// own clock, so notifications need no action.
func (c *malgoCard) PeriodElapsed(interfaces.StreamDirection) {}

// Close implements interfaces.ICard.
func (c *malgoCard) Close() error {
	var err error
	c.once.Do(func() {
		err = c.device.Stop()
		c.device.Uninit()
		logrus.WithFields(logrus.Fields{
			"function": "malgoCard.Close",
			"card":     c.name,
		}).Debug("Sound card bridge stopped")
	})
	return err
}

// DeviceInfo describes a sound device.
type DeviceInfo struct {
	Kind      string
	Name      string
	ID        string
	IsDefault bool
}

// ListDevices returns the playback and capture devices of the default
// audio backend.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var out []DeviceInfo
	for _, kind := range []struct {
		name string
		typ  malgo.DeviceType
	}{{"playback", malgo.Playback}, {"capture", malgo.Capture}} {
		infos, err := ctx.Devices(kind.typ)
		if err != nil {
			return nil, fmt.Errorf("list %s devices: %w", kind.name, err)
		}
		for _, info := range infos {
			out = append(out, DeviceInfo{
				Kind:      kind.name,
				Name:      info.Name(),
				ID:        info.ID.String(),
				IsDefault: info.IsDefault == 1,
			})
		}
	}
	return out, nil
}
