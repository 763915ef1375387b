package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/ccoaudio/clock"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/opd-ai/ccoaudio/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is how long the period worker sleeps after a pass
// that sent nothing.
const DefaultPollInterval = time.Millisecond

var (
	// ErrNilLink indicates the driver was configured without a link
	ErrNilLink = errors.New("link transport is required")

	// ErrAlreadyStarted indicates Start was called twice
	ErrAlreadyStarted = errors.New("driver already started")

	// ErrNotStarted indicates Stop was called before Start
	ErrNotStarted = errors.New("driver not started")
)

// Config configures a Driver.
type Config struct {
	// Link carries frames to and from the peers.
	Link interfaces.ILinkTransport
	// Session configures the session manager. Its TimeProvider and Metrics
	// default to the driver's.
	Session session.Config
	// PollInterval is the period worker's idle sleep.
	PollInterval time.Duration
	// TimeProvider stamps received frames.
	TimeProvider clock.TimeProvider
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// Driver owns the link transport for its lifetime.
type Driver struct {
	link    interfaces.ILinkTransport
	manager *session.Manager
	tp      clock.TimeProvider
	metrics *metrics.Recorder
	poll    time.Duration
	dropLog rate.Sometimes

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New creates a driver. It does not touch the link until Start.
func New(cfg Config) (*Driver, error) {
	if cfg.Link == nil {
		return nil, ErrNilLink
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	tp := clock.Default(cfg.TimeProvider)
	if cfg.Session.TimeProvider == nil {
		cfg.Session.TimeProvider = tp
	}
	if cfg.Session.Metrics == nil {
		cfg.Session.Metrics = cfg.Metrics
	}

	d := &Driver{
		link:    cfg.Link,
		tp:      tp,
		metrics: cfg.Metrics,
		poll:    cfg.PollInterval,
		dropLog: rate.Sometimes{Interval: time.Second},
	}
	manager, err := session.NewManager(d, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}
	d.manager = manager
	return d, nil
}

// Manager returns the session manager.
func (d *Driver) Manager() *session.Manager {
	return d.manager
}

// HardwareAddr returns the local link address.
func (d *Driver) HardwareAddr() net.HardwareAddr {
	return d.link.HardwareAddr()
}

// SendMessage encodes msg and transmits it from the local link address.
// It implements session.FrameSender.
func (d *Driver) SendMessage(dst net.HardwareAddr, generation uint8, msg protocol.Message) error {
	frame, err := protocol.EncodeFrame(dst, d.link.HardwareAddr(), generation, msg)
	if err != nil {
		return err
	}
	err = d.link.Send(frame)
	d.metrics.FrameSent(msg.Type().String(), err)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type(), dst, err)
	}
	logrus.WithFields(logrus.Fields{
		"function":   "Driver.SendMessage",
		"peer":       dst.String(),
		"generation": generation,
		"type":       msg.Type().String(),
	}).Trace("Frame sent")
	return nil
}

// Start registers the receive classifier and launches the session manager
// and period transport workers. They run until ctx is cancelled or Stop
// is called.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	d.group = g

	d.link.SetReceiver(d.handleFrame)
	g.Go(func() error { return d.manager.Run(gctx) })
	g.Go(func() error { return d.runPeriodWorker(gctx) })

	logrus.WithFields(logrus.Fields{
		"function": "Driver.Start",
		"hwaddr":   d.link.HardwareAddr().String(),
		"poll":     d.poll,
	}).Info("Driver started")
	return nil
}

// Wait blocks until both workers have returned.
func (d *Driver) Wait() error {
	d.mu.Lock()
	g := d.group
	d.mu.Unlock()
	if g == nil {
		return ErrNotStarted
	}
	return g.Wait()
}

// Stop detaches from the link, stops the workers, sends Close to every live
// peer and closes the link. It is safe to call more than once.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return ErrNotStarted
	}
	if d.stopped {
		return nil
	}
	d.stopped = true

	d.link.SetReceiver(nil)
	d.cancel()
	werr := d.group.Wait()
	d.manager.CloseAll()
	lerr := d.link.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Driver.Stop",
		"hwaddr":   d.link.HardwareAddr().String(),
	}).Info("Driver stopped")
	return errors.Join(werr, lerr)
}
