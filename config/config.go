// Package config loads ccod settings from defaults, a YAML file and CCOD_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/limits"
	"github.com/opd-ai/ccoaudio/protocol"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CCOD_LINK_INTERFACE.
const EnvPrefix = "CCOD"

// Media backends.
const (
	MediaNone  = "none"
	MediaFile  = "file"
	MediaMalgo = "malgo"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Settings is the complete ccod configuration.
type Settings struct {
	Link struct {
		Interface string `mapstructure:"interface"`
		Mode      string `mapstructure:"mode"` // raw or simulation
	} `mapstructure:"link"`

	Session struct {
		Capacity     int           `mapstructure:"capacity"`
		Tick         time.Duration `mapstructure:"tick"`
		ControlQueue int           `mapstructure:"control_queue"`
	} `mapstructure:"session"`

	PCM struct {
		PollInterval     time.Duration `mapstructure:"poll_interval"`
		SampleRate       int           `mapstructure:"sample_rate"`
		BufferPeriods    int           `mapstructure:"buffer_periods"`
		ClockHz          int           `mapstructure:"clock_hz"`
		MaxQueuedPeriods int           `mapstructure:"max_queued_periods"`
	} `mapstructure:"pcm"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // text or json
	} `mapstructure:"log"`

	Metrics struct {
		Listen string `mapstructure:"listen"` // empty disables the endpoint
	} `mapstructure:"metrics"`

	Media struct {
		Backend      string `mapstructure:"backend"`
		PlaybackFile string `mapstructure:"playback_file"`
		CaptureFile  string `mapstructure:"capture_file"`
	} `mapstructure:"media"`
}

// New returns a viper instance with defaults, search paths and environment
// bindings registered. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("ccod")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "ccod"))
	}
	v.AddConfigPath("/etc/ccod")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and decodes and validates the
// settings. A missing config file is not an error; an explicit path set
// with v.SetConfigFile must exist.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "config.Load",
		}).Debug("No config file found, using defaults and environment")
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "config.Load",
			"file":     v.ConfigFileUsed(),
		}).Info("Loaded config file")
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LinkConfig returns the link transport configuration.
func (s *Settings) LinkConfig() interfaces.LinkConfig {
	return interfaces.LinkConfig{
		Mode:      interfaces.LinkMode(s.Link.Mode),
		Interface: s.Link.Interface,
	}
}

// Validate checks every setting against its bounds.
func (s *Settings) Validate() error {
	var errs []error
	check := func(key string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err))
		}
	}

	lc := s.LinkConfig()
	check("link", lc.Validate())
	check("session.capacity", limits.ValidateSessionCapacity(s.Session.Capacity))
	check("session.tick", positive(s.Session.Tick))
	if s.Session.ControlQueue < 1 {
		check("session.control_queue", fmt.Errorf("%d is below 1", s.Session.ControlQueue))
	}
	check("pcm.poll_interval", positive(s.PCM.PollInterval))
	check("pcm.max_queued_periods", limits.ValidateQueueDepth(s.PCM.MaxQueuedPeriods))

	card := interfaces.CardConfig{
		Name:          "validate",
		Channels:      protocol.ChannelsPerPacket,
		SampleRate:    s.PCM.SampleRate,
		SampleSize:    protocol.SampleSize,
		PeriodFrames:  protocol.SamplesPerChannel,
		BufferPeriods: s.PCM.BufferPeriods,
	}
	check("pcm", card.Validate())
	check("pcm.clock_hz", limits.ValidateClockHz(s.PCM.ClockHz))

	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		check("log.level", err)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		check("log.format", fmt.Errorf("%q is not text or json", s.Log.Format))
	}

	switch s.Media.Backend {
	case MediaNone, MediaMalgo:
	case MediaFile:
		if s.Media.PlaybackFile == "" && s.Media.CaptureFile == "" {
			check("media", errors.New("file backend needs playback_file or capture_file"))
		}
	default:
		check("media.backend", fmt.Errorf("%q is not none, file or malgo", s.Media.Backend))
	}

	return errors.Join(errs...)
}

func positive(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s is not positive", d)
	}
	return nil
}

// ConfigureLogging applies the log settings to the standard logrus logger.
func ConfigureLogging(s *Settings) error {
	level, err := logrus.ParseLevel(s.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	logrus.SetLevel(level)

	switch s.Log.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
