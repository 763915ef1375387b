// Package limits provides centralized size and capacity constants and
// validation functions for the Ethernet audio link.
//
// # Frame Size Hierarchy
//
//   - LinkHeaderSize (14 bytes): destination, source and the 802.3
//     type/length field.
//   - MinFrameSize (60 bytes): shorter frames are zero-padded on transmit.
//     Receivers rely on the declared length, never on the captured size.
//   - MaxFrameSize (1514 bytes): link header plus the 1500-byte MTU. The
//     largest protocol frame (PCM data, 1162 bytes of payload) fits with
//     room to spare.
//   - ReceiveBufferSize (2048 bytes): the receive buffer used by raw sockets.
//
// # Capacities
//
//   - ControlQueueCapacity (8): session-control frames waiting for the
//     session manager. The receive path never blocks; overflow drops.
//   - DefaultSessionCapacity (8): session slots, one per remote endpoint
//     generation.
//   - DefaultMaxQueuedPeriods (64): per-direction period queue cap.
//
// # Validation Functions
//
//	if err := limits.ValidateFrameSize(frame); err != nil {
//	    return err
//	}
//
// All validation errors wrap one of the package sentinels, so callers can
// classify them with errors.Is:
//
//	if errors.Is(err, limits.ErrFrameTooLarge) {
//	    // handle oversized frame
//	}
package limits
