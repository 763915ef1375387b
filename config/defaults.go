package config

import (
	"time"

	"github.com/opd-ai/ccoaudio/limits"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("link.interface", "eth0")
	v.SetDefault("link.mode", "raw")

	v.SetDefault("session.capacity", limits.DefaultSessionCapacity)
	v.SetDefault("session.tick", 100*time.Millisecond)
	v.SetDefault("session.control_queue", limits.ControlQueueCapacity)

	v.SetDefault("pcm.poll_interval", time.Millisecond)
	v.SetDefault("pcm.sample_rate", 48000)
	v.SetDefault("pcm.buffer_periods", 8)
	v.SetDefault("pcm.clock_hz", 1000)
	v.SetDefault("pcm.max_queued_periods", limits.DefaultMaxQueuedPeriods)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.listen", "")

	v.SetDefault("media.backend", MediaNone)
	v.SetDefault("media.playback_file", "")
	v.SetDefault("media.capture_file", "")
}
