package pcm

import (
	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	// SampleRate is the nominal rate in frames per second.
	SampleRate int
	// BufferPeriods is the size of the emulated ring buffer in periods.
	BufferPeriods int
	// MaxQueued caps the period queue, see EngineConfig.
	MaxQueued int
	// Hz is the clock tick rate; zero selects clock.DefaultHz.
	Hz int
	// TimeProvider drives the clock; nil selects the package default.
	TimeProvider clock.TimeProvider
	// OnElapsed receives period-boundary notifications.
	OnElapsed clock.ElapsedFunc
	// OnOverflow is passed to the engine.
	OnOverflow func()
}

// Stream couples the period queue of one direction with its software
// clock. Prepare, Trigger and Position are serialized by the timer lock.
type Stream struct {
	dir    interfaces.StreamDirection
	engine *Engine
	timer  clock.Timer
	params clock.Params
}

// NewStream creates a stream and prepares its clock.
func NewStream(dir interfaces.StreamDirection, cfg StreamConfig) (*Stream, error) {
	params := clock.Params{
		Rate:         cfg.SampleRate,
		PeriodFrames: protocol.SamplesPerChannel,
		BufferFrames: cfg.BufferPeriods * protocol.SamplesPerChannel,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Stream{
		dir:    dir,
		engine: NewEngine(dir, EngineConfig{MaxQueued: cfg.MaxQueued, OnOverflow: cfg.OnOverflow}),
		timer:  clock.NewSystemTimer(cfg.TimeProvider, cfg.Hz, cfg.OnElapsed),
		params: params,
	}
	if err := s.timer.Prepare(params); err != nil {
		return nil, err
	}
	return s, nil
}

// Direction returns the stream direction.
func (s *Stream) Direction() interfaces.StreamDirection {
	return s.dir
}

// Engine returns the stream's period queue.
func (s *Stream) Engine() *Engine {
	return s.engine
}

// Prepare drops queued periods and rewinds the clock. The stream must be
// stopped.
func (s *Stream) Prepare() error {
	if err := s.timer.Prepare(s.params); err != nil {
		return err
	}
	s.engine.Reset()
	return nil
}

// Trigger starts or stops the stream clock.
func (s *Stream) Trigger(start bool) error {
	logrus.WithFields(logrus.Fields{
		"function":  "Stream.Trigger",
		"direction": s.dir.String(),
		"start":     start,
	}).Debug("Stream trigger")
	if start {
		return s.timer.Start()
	}
	return s.timer.Stop()
}

// Position returns the clock's frame position within the buffer.
func (s *Stream) Position() int {
	return s.timer.Position()
}

// Close stops the clock and drops queued periods.
func (s *Stream) Close() error {
	err := s.timer.Close()
	s.engine.Close()
	return err
}
