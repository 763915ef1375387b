// Package metrics provides Prometheus metrics for the Ethernet audio link.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder contains the Prometheus metrics of the link, session and period
// layers. Every method is safe to call on a nil *Recorder, so components
// run unchanged without metrics.
type Recorder struct {
	framesReceived  *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	framesSent      *prometheus.CounterVec
	sendErrors      *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	sessionsClosed  *prometheus.CounterVec
	periodsQueued   *prometheus.GaugeVec
	periodOverflows *prometheus.CounterVec
	periodElapsed   *prometheus.CounterVec
}

// NewRecorder creates the metrics and registers them on registry.
func NewRecorder(registry prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{}
	r.initMetrics()
	if err := registry.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) initMetrics() {
	r.framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_frames_received_total",
			Help: "Total number of valid frames received",
		},
		[]string{"type"}, // session_control, pcm_control, pcm_data
	)
	r.framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_frames_dropped_total",
			Help: "Total number of received frames dropped before or during routing",
		},
		[]string{"reason"},
	)
	r.framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_frames_sent_total",
			Help: "Total number of frames transmitted",
		},
		[]string{"type"},
	)
	r.sendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_send_errors_total",
			Help: "Total number of frames the link layer failed to transmit",
		},
		[]string{"type"},
	)
	r.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ccoaudio_sessions_active",
			Help: "Number of sessions holding a table slot",
		},
	)
	r.sessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_sessions_closed_total",
			Help: "Total number of destroyed sessions",
		},
		[]string{"reason"}, // close, timeout, handshake_failed, shutdown
	)
	r.periodsQueued = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ccoaudio_periods_queued",
			Help: "Number of periods queued across all devices",
		},
		[]string{"direction"},
	)
	r.periodOverflows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_period_overflows_total",
			Help: "Total number of periods dropped because a queue was full",
		},
		[]string{"direction"},
	)
	r.periodElapsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccoaudio_period_elapsed_total",
			Help: "Total number of period boundaries reported by the software clock",
		},
		[]string{"direction"},
	)
}

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	r.framesReceived.Describe(ch)
	r.framesDropped.Describe(ch)
	r.framesSent.Describe(ch)
	r.sendErrors.Describe(ch)
	r.sessionsActive.Describe(ch)
	r.sessionsClosed.Describe(ch)
	r.periodsQueued.Describe(ch)
	r.periodOverflows.Describe(ch)
	r.periodElapsed.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.framesReceived.Collect(ch)
	r.framesDropped.Collect(ch)
	r.framesSent.Collect(ch)
	r.sendErrors.Collect(ch)
	r.sessionsActive.Collect(ch)
	r.sessionsClosed.Collect(ch)
	r.periodsQueued.Collect(ch)
	r.periodOverflows.Collect(ch)
	r.periodElapsed.Collect(ch)
}

// FrameReceived counts a valid frame of msgType.
func (r *Recorder) FrameReceived(msgType string) {
	if r == nil {
		return
	}
	r.framesReceived.WithLabelValues(msgType).Inc()
}

// FrameDropped counts a dropped frame.
func (r *Recorder) FrameDropped(reason string) {
	if r == nil {
		return
	}
	r.framesDropped.WithLabelValues(reason).Inc()
}

// FrameSent records the outcome of one transmission.
func (r *Recorder) FrameSent(msgType string, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.sendErrors.WithLabelValues(msgType).Inc()
		return
	}
	r.framesSent.WithLabelValues(msgType).Inc()
}

// SessionCreated increments the active session gauge.
func (r *Recorder) SessionCreated() {
	if r == nil {
		return
	}
	r.sessionsActive.Inc()
}

// SessionClosed decrements the active session gauge and counts the reason.
func (r *Recorder) SessionClosed(reason string) {
	if r == nil {
		return
	}
	r.sessionsActive.Dec()
	r.sessionsClosed.WithLabelValues(reason).Inc()
}

// SetPeriodsQueued sets the queued period gauge of a direction.
func (r *Recorder) SetPeriodsQueued(direction string, n int) {
	if r == nil {
		return
	}
	r.periodsQueued.WithLabelValues(direction).Set(float64(n))
}

// PeriodOverflow counts one period dropped on a full queue.
func (r *Recorder) PeriodOverflow(direction string) {
	if r == nil {
		return
	}
	r.periodOverflows.WithLabelValues(direction).Inc()
}

// PeriodElapsed counts period boundaries reported by a stream clock.
func (r *Recorder) PeriodElapsed(direction string, n int) {
	if r == nil {
		return
	}
	r.periodElapsed.WithLabelValues(direction).Add(float64(n))
}
