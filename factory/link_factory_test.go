package factory

import (
	"runtime"
	"testing"

	"github.com/opd-ai/ccoaudio/interfaces"
	"github.com/opd-ai/ccoaudio/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLinkFactoryDefaults(t *testing.T) {
	f := NewLinkFactory(nil)
	require.NotNil(t, f.Segment())

	cfg := f.GetCurrentConfig()
	assert.Equal(t, interfaces.LinkModeRaw, cfg.Mode)
	assert.Equal(t, DefaultInterface, cfg.Interface)
	assert.False(t, f.IsUsingSimulation())
}

func TestCreateSimulationLinksShareSegment(t *testing.T) {
	seg := transport.NewSegment()
	f := NewLinkFactory(seg)
	f.SwitchToSimulation()
	assert.True(t, f.IsUsingSimulation())

	a, err := f.CreateLink()
	require.NoError(t, err)
	defer a.Close()
	b, err := f.CreateLink()
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, 2, seg.Endpoints())
	assert.NotEqual(t, a.HardwareAddr().String(), b.HardwareAddr().String())
}

func TestCreateLinkRejectsInvalidConfig(t *testing.T) {
	f := NewLinkFactory(nil)

	_, err := f.CreateLinkWithConfig(&interfaces.LinkConfig{Mode: "carrier-pigeon"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLinkMode)

	_, err = f.CreateLinkWithConfig(&interfaces.LinkConfig{Mode: interfaces.LinkModeRaw})
	assert.ErrorIs(t, err, interfaces.ErrMissingInterface)
}

func TestCreateRawLinkFailsOnMissingInterface(t *testing.T) {
	f := NewLinkFactory(nil)
	f.SwitchToRaw("does-not-exist0")

	_, err := f.CreateLink()
	require.Error(t, err)
	if runtime.GOOS != "linux" {
		assert.ErrorIs(t, err, transport.ErrUnsupported)
	}
}

func TestSwitchToRawKeepsInterface(t *testing.T) {
	f := NewLinkFactory(nil)
	require.NoError(t, f.UpdateConfig(&interfaces.LinkConfig{Mode: interfaces.LinkModeRaw, Interface: "enp3s0"}))
	f.SwitchToSimulation()
	f.SwitchToRaw("")

	cfg := f.GetCurrentConfig()
	assert.Equal(t, interfaces.LinkModeRaw, cfg.Mode)
	assert.Equal(t, "enp3s0", cfg.Interface)
}

func TestUpdateConfig(t *testing.T) {
	f := NewLinkFactory(nil)

	assert.Error(t, f.UpdateConfig(nil))
	assert.ErrorIs(t, f.UpdateConfig(&interfaces.LinkConfig{Mode: ""}), interfaces.ErrInvalidLinkMode)

	in := &interfaces.LinkConfig{Mode: interfaces.LinkModeSimulation}
	require.NoError(t, f.UpdateConfig(in))
	in.Mode = interfaces.LinkModeRaw
	assert.True(t, f.IsUsingSimulation(), "factory keeps its own copy")

	got := f.GetCurrentConfig()
	got.Mode = interfaces.LinkModeRaw
	assert.True(t, f.IsUsingSimulation(), "callers get a copy")
}
