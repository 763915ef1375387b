package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	r, err := NewRecorder(registry)
	require.NoError(t, err)

	r.FrameReceived("pcm_data")
	r.FrameReceived("pcm_data")
	r.FrameDropped("magic")
	r.FrameSent("session_control", nil)
	r.FrameSent("session_control", errors.New("link down"))
	r.PeriodOverflow("playback")
	r.PeriodElapsed("capture", 3)
	r.SetPeriodsQueued("playback", 5)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.framesReceived.WithLabelValues("pcm_data")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.framesDropped.WithLabelValues("magic")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.framesSent.WithLabelValues("session_control")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.sendErrors.WithLabelValues("session_control")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.periodOverflows.WithLabelValues("playback")))
	assert.Equal(t, float64(3), testutil.ToFloat64(r.periodElapsed.WithLabelValues("capture")))
	assert.Equal(t, float64(5), testutil.ToFloat64(r.periodsQueued.WithLabelValues("playback")))
}

func TestRecorderSessions(t *testing.T) {
	r, err := NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	r.SessionCreated()
	r.SessionCreated()
	r.SessionClosed("timeout")

	assert.Equal(t, float64(1), testutil.ToFloat64(r.sessionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.sessionsClosed.WithLabelValues("timeout")))
}

func TestRecorderRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewRecorder(registry)
	require.NoError(t, err)
	_, err = NewRecorder(registry)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.FrameReceived("pcm_data")
		r.FrameDropped("short")
		r.FrameSent("pcm_data", nil)
		r.SessionCreated()
		r.SessionClosed("close")
		r.SetPeriodsQueued("capture", 1)
		r.PeriodOverflow("capture")
		r.PeriodElapsed("playback", 1)
	})
}
