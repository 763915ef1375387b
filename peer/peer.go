// Package peer emulates the remote audio endpoint in software. It speaks
// the peer side of the protocol: it announces itself, answers the host's
// handshake, sends heartbeats and a steady stream of capture periods, and
// counts the playback periods it receives.
package peer

import (
	"context"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
)

// Config configures a simulated peer.
type Config struct {
	// Generation is announced in every frame.
	Generation uint8
	// SampleRate paces the capture periods sent to the host.
	SampleRate int
	// ToneHz is the frequency of the generated tone; zero sends silence.
	ToneHz float64
}

// Peer is a software peer attached to a link.
type Peer struct {
	link   interfaces.ILinkTransport
	cfg    Config
	period time.Duration

	mu   sync.Mutex
	host net.HardwareAddr
	seq  uint32

	phase    float64
	received atomic.Uint64
	sent     atomic.Uint64
}

// New creates a peer on link and registers its receive handler.
func New(link interfaces.ILinkTransport, cfg Config) *Peer {
	if cfg.SampleRate <= 0 || cfg.SampleRate > limits.MaxSampleRate {
		cfg.SampleRate = 48000
	}
	p := &Peer{
		link:   link,
		cfg:    cfg,
		period: time.Duration(protocol.SamplesPerChannel) * time.Second / time.Duration(cfg.SampleRate),
	}
	link.SetReceiver(p.handleFrame)
	return p
}

// Connected reports whether the host completed the handshake.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host != nil
}

// Received returns the number of playback periods received from the host.
func (p *Peer) Received() uint64 {
	return p.received.Load()
}

// Sent returns the number of capture periods sent to the host.
func (p *Peer) Sent() uint64 {
	return p.sent.Load()
}

func (p *Peer) handleFrame(raw []byte) {
	frame, err := protocol.DecodeFrame(raw)
	if err != nil || frame.Generation != p.cfg.Generation {
		return
	}
	switch msg := frame.Message.(type) {
	case protocol.SessionControl:
		switch msg.Kind {
		case protocol.HandshakeRequest:
			p.mu.Lock()
			p.host = frame.Src
			p.mu.Unlock()
			p.send(frame.Src, protocol.SessionControl{Kind: protocol.HandshakeResponse})
			logrus.WithFields(logrus.Fields{
				"function":   "Peer.handleFrame",
				"host":       frame.Src.String(),
				"generation": p.cfg.Generation,
			}).Info("Simulated peer connected")
		case protocol.Close:
			p.mu.Lock()
			p.host = nil
			p.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"function": "Peer.handleFrame",
				"host":     frame.Src.String(),
			}).Info("Simulated peer disconnected by host")
		}
	case protocol.PcmData:
		p.received.Add(1)
	}
}

// Run announces the peer and, once connected, streams capture periods and
// heartbeats until ctx is cancelled. It then sends Close to the host.
func (p *Peer) Run(ctx context.Context) error {
	heartbeat := time.NewTicker(protocol.HeartbeatInterval)
	defer heartbeat.Stop()
	periods := time.NewTicker(p.period)
	defer periods.Stop()

	p.beat()
	for {
		select {
		case <-ctx.Done():
			if host := p.hostAddr(); host != nil {
				p.send(host, protocol.SessionControl{Kind: protocol.Close})
			}
			return nil
		case <-heartbeat.C:
			p.beat()
		case <-periods.C:
			if host := p.hostAddr(); host != nil {
				p.sendPeriod(host)
			}
		}
	}
}

// beat announces while unconnected and sends a heartbeat afterwards.
func (p *Peer) beat() {
	if host := p.hostAddr(); host != nil {
		p.send(host, protocol.SessionControl{Kind: protocol.Heartbeat})
		return
	}
	p.send(protocol.BroadcastAddr, protocol.SessionControl{Kind: protocol.Announce})
}

func (p *Peer) hostAddr() net.HardwareAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host
}

func (p *Peer) sendPeriod(host net.HardwareAddr) {
	p.mu.Lock()
	seq := p.seq
	p.seq++
	p.mu.Unlock()

	data := make([]byte, protocol.PeriodDataSize)
	step := 2 * math.Pi * p.cfg.ToneHz / float64(p.cfg.SampleRate)
	for i := 0; i < protocol.SamplesPerChannel; i++ {
		v := int32(math.Sin(p.phase) * 0.25 * (1 << 23))
		p.phase = math.Mod(p.phase+step, 2*math.Pi)
		for ch := 0; ch < protocol.ChannelsPerPacket; ch++ {
			off := ch*protocol.ChannelBlockSize + i*protocol.SampleSize
			data[off] = byte(v)
			data[off+1] = byte(v >> 8)
			data[off+2] = byte(v >> 16)
		}
	}
	if p.send(host, protocol.PcmData{Sequence: seq, Data: data}) {
		p.sent.Add(1)
	}
}

func (p *Peer) send(dst net.HardwareAddr, msg protocol.Message) bool {
	frame, err := protocol.EncodeFrame(dst, p.link.HardwareAddr(), p.cfg.Generation, msg)
	if err != nil {
		return false
	}
	if err := p.link.Send(frame); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Peer.send",
			"type":     msg.Type().String(),
			"error":    err.Error(),
		}).Debug("Simulated peer send failed")
		return false
	}
	return true
}
