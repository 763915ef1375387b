package driver

import (
	"errors"

	"github.com/opd-ai/ccoaudio/device"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/opd-ai/ccoaudio/session"
	"github.com/sirupsen/logrus"
)

// Drop reasons for valid frames the classifier cannot route.
const (
	dropUnknownSession = "unknown_session"
	dropNoDevice       = "no_device"
	dropInactive       = "stream_inactive"
	dropCaptureError   = "capture_error"
)

// handleFrame is the receive classifier. It runs in the transport's receive
// context and never blocks: session control goes to the manager's queue,
// PCM control and data are applied to the session's device directly.
func (d *Driver) handleFrame(raw []byte) {
	frame, err := protocol.DecodeFrame(raw)
	if err != nil {
		reason := protocol.DropReason(err)
		d.metrics.FrameDropped(reason)
		d.dropLog.Do(func() {
			logrus.WithFields(logrus.Fields{
				"function": "handleFrame",
				"size":     len(raw),
				"reason":   reason,
				"error":    err.Error(),
			}).Debug("Invalid frame dropped")
		})
		return
	}
	d.metrics.FrameReceived(frame.Message.Type().String())
	now := d.tp.Now()

	switch msg := frame.Message.(type) {
	case protocol.SessionControl:
		d.manager.Enqueue(session.ControlMessage{
			Peer:       frame.Src,
			Generation: frame.Generation,
			Kind:       msg.Kind,
			Received:   now,
		})
		return
	case protocol.PcmControl:
		s, dev := d.lookup(frame)
		if s == nil {
			return
		}
		s.TouchRecv(now)
		if dev == nil {
			d.drop(frame, dropNoDevice, nil)
			return
		}
		dev.SetActivity(msg.Mask)
	case protocol.PcmData:
		s, dev := d.lookup(frame)
		if s == nil {
			return
		}
		s.TouchRecv(now)
		if dev == nil {
			d.drop(frame, dropNoDevice, nil)
			return
		}
		if err := dev.AcceptCapture(msg); err != nil {
			if errors.Is(err, device.ErrStreamInactive) {
				d.drop(frame, dropInactive, nil)
				return
			}
			d.drop(frame, dropCaptureError, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"function": "handleFrame",
			"device":   dev.Name(),
			"seq":      msg.Sequence,
		}).Trace("Capture period accepted")
	}
}

// lookup finds the session a PCM frame belongs to. A frame from an unknown
// peer generation is dropped.
func (d *Driver) lookup(frame protocol.Frame) (*session.Session, *device.Device) {
	s, ok := d.manager.Table().Find(frame.Src, frame.Generation)
	if !ok {
		d.drop(frame, dropUnknownSession, nil)
		return nil, nil
	}
	if s.State() != session.StateActive {
		return s, nil
	}
	return s, s.Device()
}

func (d *Driver) drop(frame protocol.Frame, reason string, err error) {
	d.metrics.FrameDropped(reason)
	d.dropLog.Do(func() {
		fields := logrus.Fields{
			"function":   "handleFrame",
			"peer":       frame.Src.String(),
			"generation": frame.Generation,
			"type":       frame.Message.Type().String(),
			"reason":     reason,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logrus.WithFields(fields).Debug("Frame dropped")
	})
}
