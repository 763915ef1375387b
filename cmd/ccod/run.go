package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/ccoaudio/config"
	"github.com/opd-ai/ccoaudio/driver"
	"github.com/opd-ai/ccoaudio/factory"
	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/media"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/opd-ai/ccoaudio/peer"
	"github.com/opd-ai/ccoaudio/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func runCommand(settings func() *config.Settings) *cobra.Command {
	var toneHz float64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve the audio link until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, settings(), toneHz)
		},
	}
	cmd.Flags().Float64Var(&toneHz, "peer-tone", 440, "Tone sent by the simulated peer in simulation mode")
	return cmd
}

// serve wires the daemon from settings and blocks until ctx is done or a
// component fails.
func serve(ctx context.Context, s *config.Settings, toneHz float64) (err error) {
	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	lf := factory.NewLinkFactory(nil)
	lc := s.LinkConfig()
	if err := lf.UpdateConfig(&lc); err != nil {
		return err
	}
	link, err := lf.CreateLink()
	if err != nil {
		return fmt.Errorf("open link: %w", err)
	}

	framework, closeFramework, err := openFramework(s)
	if err != nil {
		_ = link.Close()
		return err
	}
	defer closeFramework()

	d, err := driver.New(driver.Config{
		Link: link,
		Session: session.Config{
			Capacity:  s.Session.Capacity,
			Tick:      s.Session.Tick,
			QueueSize: s.Session.ControlQueue,
			Framework: framework,
			Device: session.DeviceTemplate{
				SampleRate:    s.PCM.SampleRate,
				BufferPeriods: s.PCM.BufferPeriods,
				MaxQueued:     s.PCM.MaxQueuedPeriods,
				ClockHz:       s.PCM.ClockHz,
			},
		},
		PollInterval: s.PCM.PollInterval,
		Metrics:      recorder,
	})
	if err != nil {
		_ = link.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := d.Start(gctx); err != nil {
		_ = link.Close()
		return err
	}
	defer func() {
		err = errors.Join(err, d.Stop())
	}()

	g.Go(d.Wait)

	if lf.IsUsingSimulation() {
		peerLink, err := lf.Segment().Attach(nil)
		if err != nil {
			return fmt.Errorf("attach simulated peer: %w", err)
		}
		p := peer.New(peerLink, peer.Config{SampleRate: s.PCM.SampleRate, ToneHz: toneHz})
		g.Go(func() error {
			defer peerLink.Close()
			return p.Run(gctx)
		})
	}

	if s.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              s.Metrics.Listen,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":  "serve",
		"mode":      s.Link.Mode,
		"interface": s.Link.Interface,
		"address":   d.HardwareAddr().String(),
		"media":     s.Media.Backend,
		"metrics":   s.Metrics.Listen,
	}).Info("ccod running")

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "serve",
	}).Info("ccod shutting down")
	return err
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// openFramework returns the configured audio framework, which is nil for
// the none backend, and a function releasing it.
func openFramework(s *config.Settings) (interfaces.IAudioFramework, func(), error) {
	switch s.Media.Backend {
	case config.MediaFile:
		return &media.FileFramework{
			PlaybackFile: s.Media.PlaybackFile,
			CaptureFile:  s.Media.CaptureFile,
		}, func() {}, nil
	case config.MediaMalgo:
		mf, err := media.NewMalgoFramework()
		if err != nil {
			return nil, nil, err
		}
		return mf, func() {
			if err := mf.Close(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "openFramework",
					"error":    err.Error(),
				}).Warn("Failed to close audio framework")
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}
