// Package interfaces defines the collaborator contracts of the Ethernet
// audio link: the network layer underneath the core and the audio framework
// on top of it.
//
// # Network Layer
//
// [ILinkTransport] transmits complete link-layer frames and hands received
// frames to one [FrameHandler]. The handler runs in the receive context, so
// it must classify and route the frame without blocking:
//
//	link.SetReceiver(func(frame []byte) {
//	    f, err := protocol.DecodeFrame(frame)
//	    if err != nil {
//	        return // malformed frames are dropped
//	    }
//	    route(f)
//	})
//
// [LinkConfig] selects the implementation created by the factory package:
//   - LinkModeRaw: a raw packet socket on a named interface (Linux only)
//   - LinkModeSimulation: an in-process Ethernet segment for tests
//
// # Audio Framework
//
// Once a session completes its handshake the core asks an [IAudioFramework]
// for an [ICard] and hands it an [ISampleEndpoint]. From then on the
// framework writes playback samples and reads capture samples through the
// endpoint, and the core reports period boundaries through
// [ICard.PeriodElapsed]:
//
//	card, err := framework.CreateCard(cfg, endpoint)
//	if err != nil {
//	    // the handshake is answered with Close
//	}
//
// # Thread Safety
//
// Endpoint methods are called from framework goroutines while the core's
// own workers drain the same streams; implementations guard their state
// per stream. PeriodElapsed is called from the clock context.
package interfaces
