// Package factory creates link transports from configuration.
//
// The factory decouples the driver from the concrete link: in raw mode it
// opens an AF_PACKET socket on the configured interface, in simulation mode
// it attaches a new endpoint to an in-process Ethernet segment. The same
// driver code runs against both.
//
// # Usage
//
//	f := factory.NewLinkFactory(nil)
//	if err := f.UpdateConfig(&interfaces.LinkConfig{
//	    Mode:      interfaces.LinkModeRaw,
//	    Interface: "enp3s0",
//	}); err != nil {
//	    return err
//	}
//	link, err := f.CreateLink()
//
// Tests and simulation share one segment between the driver and a software
// peer:
//
//	seg := transport.NewSegment()
//	f := factory.NewLinkFactory(seg)
//	f.SwitchToSimulation()
//	hostLink, _ := f.CreateLink()
//	peerLink, _ := seg.Attach(nil)
//
// # Thread Safety
//
// LinkFactory is safe for concurrent use. GetCurrentConfig returns a copy.
package factory
