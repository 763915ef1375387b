package factory

import (
	"fmt"
	"sync"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/transport"
	"github.com/sirupsen/logrus"
)

// DefaultInterface is the interface used by raw mode when none is configured.
const DefaultInterface = "eth0"

// LinkFactory creates link transports based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type LinkFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.LinkConfig
	segment       *transport.Segment
}

// NewLinkFactory creates a factory defaulting to raw mode on
// DefaultInterface. Simulation links attach to segment; a nil segment
// creates a private one.
func NewLinkFactory(segment *transport.Segment) *LinkFactory {
	if segment == nil {
		segment = transport.NewSegment()
	}
	f := &LinkFactory{
		defaultConfig: &interfaces.LinkConfig{
			Mode:      interfaces.LinkModeRaw,
			Interface: DefaultInterface,
		},
		segment: segment,
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewLinkFactory",
		"mode":      f.defaultConfig.Mode,
		"interface": f.defaultConfig.Interface,
	}).Debug("Created link factory")
	return f
}

// Segment returns the segment simulation links attach to.
func (f *LinkFactory) Segment() *transport.Segment {
	return f.segment
}

// CreateLink creates a link transport from the factory's current configuration.
func (f *LinkFactory) CreateLink() (interfaces.ILinkTransport, error) {
	return f.CreateLinkWithConfig(nil)
}

// CreateLinkWithConfig creates a link transport with custom configuration.
// A nil config uses the factory default.
func (f *LinkFactory) CreateLinkWithConfig(config *interfaces.LinkConfig) (interfaces.ILinkTransport, error) {
	if config == nil {
		config = f.GetCurrentConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("link config: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "CreateLinkWithConfig",
		"mode":      config.Mode,
		"interface": config.Interface,
	}).Info("Creating link transport")

	if config.Mode == interfaces.LinkModeSimulation {
		logrus.WithFields(logrus.Fields{
			"function": "CreateLinkWithConfig",
			"type":     "simulation",
		}).Warn("Using simulated link; no frames reach the network")

		link, err := f.segment.Attach(nil)
		if err != nil {
			return nil, fmt.Errorf("attach to simulated segment: %w", err)
		}
		return link, nil
	}

	link, err := transport.NewRawTransport(config.Interface)
	if err != nil {
		return nil, fmt.Errorf("open raw link on %s: %w", config.Interface, err)
	}
	return link, nil
}

// SwitchToSimulation switches the default configuration to the simulated segment
func (f *LinkFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToSimulation",
		"previous": f.defaultConfig.Mode,
	}).Info("Switching factory to simulation mode")

	f.defaultConfig.Mode = interfaces.LinkModeSimulation
}

// SwitchToRaw switches the default configuration to raw sockets on ifname.
// An empty ifname keeps the configured interface.
func (f *LinkFactory) SwitchToRaw(ifname string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "SwitchToRaw",
		"previous":  f.defaultConfig.Mode,
		"interface": ifname,
	}).Info("Switching factory to raw mode")

	f.defaultConfig.Mode = interfaces.LinkModeRaw
	if ifname != "" {
		f.defaultConfig.Interface = ifname
	}
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *LinkFactory) GetCurrentConfig() *interfaces.LinkConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := *f.defaultConfig
	return &c
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *LinkFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.Mode == interfaces.LinkModeSimulation
}

// UpdateConfig validates config and makes it the factory default.
func (f *LinkFactory) UpdateConfig(config *interfaces.LinkConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("link config: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "UpdateConfig",
		"old_mode":      f.defaultConfig.Mode,
		"new_mode":      config.Mode,
		"old_interface": f.defaultConfig.Interface,
		"new_interface": config.Interface,
	}).Info("Updating factory configuration")

	c := *config
	f.defaultConfig = &c
	return nil
}
