package driver

import (
	"context"
	"errors"
	"time"

	"github.com/opd-ai/ccoaudio/device"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/pcm"
	"github.com/opd-ai/ccoaudio/session"
	"github.com/sirupsen/logrus"
)

// runPeriodWorker transmits ready playback periods until ctx is cancelled.
func (d *Driver) runPeriodWorker(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "runPeriodWorker",
	}).Debug("Period worker started")

	idle := time.NewTimer(d.poll)
	defer idle.Stop()
	for {
		if ctx.Err() != nil {
			break
		}
		if d.transmitPeriods() > 0 {
			continue
		}
		idle.Reset(d.poll)
		select {
		case <-ctx.Done():
		case <-idle.C:
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "runPeriodWorker",
	}).Debug("Period worker stopped")
	return nil
}

// transmitPeriods makes one pass over the active sessions and sends at most
// one ready playback period for each. It returns the number of periods sent.
// No lock is held while sending.
func (d *Driver) transmitPeriods() int {
	sent := 0
	var queuedPlayback, queuedCapture int

	for _, s := range d.manager.Table().Snapshot() {
		if s.State() != session.StateActive {
			continue
		}
		dev := s.Device()
		if dev == nil {
			continue
		}
		if d.transmitOne(s, dev) {
			sent++
		}
		queuedPlayback += dev.Queued(interfaces.Playback)
		queuedCapture += dev.Queued(interfaces.Capture)
	}

	d.metrics.SetPeriodsQueued(interfaces.Playback.String(), queuedPlayback)
	d.metrics.SetPeriodsQueued(interfaces.Capture.String(), queuedCapture)
	return sent
}

func (d *Driver) transmitOne(s *session.Session, dev *device.Device) bool {
	msg, err := dev.NextPlaybackPeriod()
	switch {
	case err == nil:
	case errors.Is(err, pcm.ErrNoData):
		return false
	case errors.Is(err, device.ErrStreamInactive):
		// The period was discarded; the peer is not listening.
		return false
	default:
		logrus.WithFields(logrus.Fields{
			"function": "transmitOne",
			"session":  s.String(),
			"error":    err.Error(),
		}).Debug("Playback period unavailable")
		return false
	}

	if err := d.SendMessage(s.Peer(), s.Generation(), msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "transmitOne",
			"session":  s.String(),
			"seq":      msg.Sequence,
			"error":    err.Error(),
		}).Warn("Playback period lost")
		return false
	}
	s.TouchSend(d.tp.Now())
	return true
}
