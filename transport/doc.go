// Package transport moves raw 802.3 frames between the driver and the
// link. Two implementations satisfy interfaces.ILinkTransport:
//
//   - RawTransport binds an AF_PACKET socket to one Linux interface. The
//     socket only sees frames the kernel classifies as 802.2, which is
//     every frame carrying a length field instead of an EtherType. Frames
//     the host itself sent are skipped. Opening it requires CAP_NET_RAW.
//
//   - MemoryTransport is an endpoint on a simulated Segment. It is used by
//     the tests and by simulation mode, where a software peer and the
//     driver share one process.
//
// # Usage
//
//	link, err := transport.NewRawTransport("eth0")
//	if err != nil {
//	    return err
//	}
//	defer link.Close()
//	link.SetReceiver(func(frame []byte) {
//	    // frame is only valid for the duration of the call
//	})
//
// Simulated segment:
//
//	seg := transport.NewSegment()
//	peer, _ := seg.Attach(nil)
//	host, _ := seg.Attach(nil)
//
// # Delivery
//
// Receive handlers run on the transport's own goroutine, one frame at a
// time. Handlers must not block for long: a MemoryTransport drops frames
// once its inbox of DefaultInboxSize frames is full, and a RawTransport
// leaves them to the kernel socket buffer.
//
// Send validates the frame size against the limits package before
// transmitting. Sending after Close returns ErrClosed.
package transport
