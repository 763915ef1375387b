package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/ccoaudio/config"
	"github.com/opd-ai/ccoaudio/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ccod.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	root := RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", writeConfig(t, "log:\n  level: warn\n"), "version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "ccod dev\n", out.String())
}

func TestRootRejectsInvalidFlag(t *testing.T) {
	root := RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", writeConfig(t, ""), "--mode", "carrier-pigeon", "version"})

	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	v := config.New()
	root := newRootCommand(v)
	root.AddCommand(&cobra.Command{
		Use:  "probe",
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	})
	path := writeConfig(t, "link:\n  mode: raw\n  interface: eth7\nlog:\n  level: debug\n")
	root.SetArgs([]string{"--config", path, "--interface", "enp3s0", "--log-level", "error", "probe"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "enp3s0", v.GetString("link.interface"))
	assert.Equal(t, "error", v.GetString("log.level"))
	assert.Equal(t, "raw", v.GetString("link.mode"))
}

func TestServeSimulation(t *testing.T) {
	cfg := writeConfig(t, "link:\n  mode: simulation\nsession:\n  tick: 5ms\nlog:\n  level: error\n")
	v := config.New()
	v.SetConfigFile(cfg)
	s, err := config.Load(v)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NoError(t, serve(ctx, s, 440))
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(registry)
	require.NoError(t, err)
	rec.SessionCreated()

	srv := httptest.NewServer(metricsHandler(registry))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(body.String(), "ccoaudio_"), "metrics body: %s", body.String())
}
