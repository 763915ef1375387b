package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/device"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultTick is the pause between manager iterations.
const DefaultTick = 100 * time.Millisecond

// FrameSender transmits a protocol message to a peer.
type FrameSender interface {
	SendMessage(dst net.HardwareAddr, generation uint8, msg protocol.Message) error
}

// ControlMessage is a session-control frame waiting for the Manager.
type ControlMessage struct {
	Peer       net.HardwareAddr
	Generation uint8
	Kind       protocol.SessionControlType
	Received   time.Time
}

// DeviceTemplate holds the device settings shared by all sessions.
type DeviceTemplate struct {
	SampleRate    int
	BufferPeriods int
	MaxQueued     int
	ClockHz       int
}

// Config configures a Manager.
type Config struct {
	// Capacity is the number of session slots.
	Capacity int
	// Tick is the pause between iterations of Run.
	Tick time.Duration
	// QueueSize is the control queue capacity.
	QueueSize int
	// Framework creates cards for bound devices; nil binds devices
	// without a card.
	Framework interfaces.IAudioFramework
	// Device is applied to every device created on handshake.
	Device DeviceTemplate
	// TimeProvider supplies timestamps and drives device clocks.
	TimeProvider clock.TimeProvider
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// Manager owns every session state transition. It consumes the control
// queue, drives the handshake, emits heartbeats and detects timeouts.
type Manager struct {
	table     *Table
	queue     chan ControlMessage
	sender    FrameSender
	framework interfaces.IAudioFramework
	devTmpl   DeviceTemplate
	tick      time.Duration
	tp        clock.TimeProvider
	metrics   *metrics.Recorder
	dropLog   rate.Sometimes
}

// NewManager creates a Manager with an empty session table.
func NewManager(sender FrameSender, cfg Config) (*Manager, error) {
	if sender == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewManager",
			"error":    ErrNilSender.Error(),
		}).Error("Sender validation failed")
		return nil, ErrNilSender
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = limits.ControlQueueCapacity
	}

	m := &Manager{
		table:     NewTable(cfg.Capacity, cfg.Metrics),
		queue:     make(chan ControlMessage, cfg.QueueSize),
		sender:    sender,
		framework: cfg.Framework,
		devTmpl:   cfg.Device,
		tick:      cfg.Tick,
		tp:        clock.Default(cfg.TimeProvider),
		metrics:   cfg.Metrics,
		dropLog:   rate.Sometimes{Interval: time.Second},
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewManager",
		"capacity":   m.table.Capacity(),
		"tick":       m.tick,
		"queue_size": cfg.QueueSize,
	}).Debug("Session manager configured")
	return m, nil
}

// Table returns the session table.
func (m *Manager) Table() *Table {
	return m.table
}

// Enqueue hands a control message to the Manager without blocking. It
// returns false and drops the message when the queue is full.
func (m *Manager) Enqueue(msg ControlMessage) bool {
	select {
	case m.queue <- msg:
		return true
	default:
		m.metrics.FrameDropped("control_queue_full")
		m.dropLog.Do(func() {
			logrus.WithFields(logrus.Fields{
				"function":   "Manager.Enqueue",
				"peer":       msg.Peer.String(),
				"generation": msg.Generation,
				"kind":       msg.Kind.String(),
			}).Debug("Control queue full, dropping frame")
		})
		return false
	}
}

// Run calls Iterate every tick until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "Manager.Run",
	}).Debug("Session manager started")

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		m.Iterate()
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"function": "Manager.Run",
			}).Debug("Session manager stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Iterate performs one manager iteration: it processes the control
// messages queued at entry, then sweeps for timeouts, then for due
// heartbeats. An explicit Close queued before a timeout therefore wins.
func (m *Manager) Iterate() {
	// The Manager is the only consumer, so the messages counted here are
	// all still queued.
	for pending := len(m.queue); pending > 0; pending-- {
		m.handleControl(<-m.queue)
	}
	now := m.tp.Now()
	m.sweepTimeouts(now)
	m.sweepHeartbeats(now)
}

// handleControl applies one session-control message.
func (m *Manager) handleControl(msg ControlMessage) {
	s, ok := m.table.Find(msg.Peer, msg.Generation)
	if !ok {
		if msg.Kind != protocol.Announce {
			logrus.WithFields(logrus.Fields{
				"function":   "handleControl",
				"peer":       msg.Peer.String(),
				"generation": msg.Generation,
				"kind":       msg.Kind.String(),
			}).Debug("Control message for unknown session ignored")
			return
		}
		m.announce(msg)
		return
	}

	s.TouchRecv(msg.Received)
	switch msg.Kind {
	case protocol.Announce:
		if s.State() == StateAwaitingHandshakeResponse {
			m.send(s, protocol.SessionControl{Kind: protocol.HandshakeRequest})
		}
	case protocol.HandshakeResponse:
		if s.State() != StateAwaitingHandshakeResponse {
			logrus.WithFields(logrus.Fields{
				"function": "handleControl",
				"session":  s.String(),
				"state":    s.State().String(),
			}).Debug("Unexpected handshake response ignored")
			return
		}
		m.bind(s)
	case protocol.Close:
		m.destroy(s, ReasonClose)
	case protocol.Heartbeat, protocol.HandshakeRequest:
		// Liveness only.
	}
}

// announce creates the session of a newly observed peer generation and
// starts the handshake.
func (m *Manager) announce(msg ControlMessage) {
	s, err := m.table.Create(msg.Peer, msg.Generation, msg.Received)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "announce",
			"peer":       msg.Peer.String(),
			"generation": msg.Generation,
			"capacity":   m.table.Capacity(),
			"error":      err.Error(),
		}).Error("Cannot create session")
		return
	}
	if err := s.transition(StateAnnounced); err != nil {
		m.destroy(s, ReasonHandshakeFailed)
		return
	}
	if err := s.transition(StateAwaitingHandshakeResponse); err != nil {
		m.destroy(s, ReasonHandshakeFailed)
		return
	}
	m.send(s, protocol.SessionControl{Kind: protocol.HandshakeRequest})
}

// bind creates and binds the session's device. On failure the peer gets a
// Close and the session is destroyed, so no Active session lacks a device.
func (m *Manager) bind(s *Session) {
	dev, err := device.New(m.framework, device.Config{
		Name:          fmt.Sprintf("cco%d", s.handle.Slot()),
		Peer:          s.peer,
		Generation:    s.generation,
		SampleRate:    m.devTmpl.SampleRate,
		BufferPeriods: m.devTmpl.BufferPeriods,
		MaxQueued:     m.devTmpl.MaxQueued,
		ClockHz:       m.devTmpl.ClockHz,
		TimeProvider:  m.tp,
		Metrics:       m.metrics,
	})
	if err == nil {
		if err = m.table.Bind(s.handle, dev); err != nil {
			dev.Close()
		}
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "bind",
			"session":  s.String(),
			"trace_id": s.traceID.String(),
			"error":    err.Error(),
		}).Error("Device creation failed, closing session")
		m.send(s, protocol.SessionControl{Kind: protocol.Close})
		m.destroy(s, ReasonHandshakeFailed)
		return
	}
	if err := s.transition(StateActive); err != nil {
		m.destroy(s, ReasonHandshakeFailed)
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "bind",
		"session":  s.String(),
		"device":   dev.Name(),
		"trace_id": s.traceID.String(),
	}).Info("Session active")
}

// sweepTimeouts destroys every session whose peer has been silent for
// longer than the timeout interval.
func (m *Manager) sweepTimeouts(now time.Time) {
	m.table.ForEach(func(s *Session) bool {
		if age := now.Sub(s.LastRecv()); age > protocol.TimeoutInterval {
			logrus.WithFields(logrus.Fields{
				"function": "sweepTimeouts",
				"session":  s.String(),
				"state":    s.State().String(),
				"silence":  age,
			}).Warn("Session timed out")
			m.destroy(s, ReasonTimeout)
		}
		return true
	})
}

// sweepHeartbeats sends a Heartbeat to every Active session, and repeats
// the HandshakeRequest of every session still waiting for a response,
// once the last successful send is older than the heartbeat interval.
func (m *Manager) sweepHeartbeats(now time.Time) {
	m.table.ForEach(func(s *Session) bool {
		if now.Sub(s.LastSend()) <= protocol.HeartbeatInterval {
			return true
		}
		switch s.State() {
		case StateActive:
			m.send(s, protocol.SessionControl{Kind: protocol.Heartbeat})
		case StateAwaitingHandshakeResponse:
			m.send(s, protocol.SessionControl{Kind: protocol.HandshakeRequest})
		}
		return true
	})
}

// CloseAll sends Close to every peer and destroys every session.
func (m *Manager) CloseAll() {
	m.table.ForEach(func(s *Session) bool {
		m.send(s, protocol.SessionControl{Kind: protocol.Close})
		m.destroy(s, ReasonShutdown)
		return true
	})
}

// send transmits msg to the session's peer. Only a successful send
// refreshes the last-send timestamp, so a failed heartbeat is retried on
// the next sweep.
func (m *Manager) send(s *Session, msg protocol.Message) {
	if err := m.sender.SendMessage(s.peer, s.generation, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.send",
			"session":  s.String(),
			"type":     msg.Type().String(),
			"error":    err.Error(),
		}).Warn("Send failed")
		return
	}
	s.TouchSend(m.tp.Now())
}

func (m *Manager) destroy(s *Session, reason Reason) {
	if err := m.table.Destroy(s.handle, reason); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.destroy",
			"session":  s.String(),
			"error":    err.Error(),
		}).Debug("Session already destroyed")
	}
}
