// Package protocol implements the wire format spoken between the host and an
// FPGA audio endpoint over a raw Ethernet segment.
//
// Every frame is an IEEE 802.3 frame whose type/length field carries the
// length of the payload that follows the link header. The payload starts
// with a fixed 6-byte header:
//
//	offset 0: magic         (4 bytes, big-endian, always Magic)
//	offset 4: generation id (1 byte, peer boot cycle)
//	offset 5: message type  (1 byte)
//	offset 6: payload       (size fixed by the message type)
//
// Three message families exist:
//
//   - [SessionControl]: one sub-type byte (announce, handshake, heartbeat, close)
//   - [PcmControl]: one stream-activity bitmask byte
//   - [PcmData]: a 4-byte sequence number followed by one sample block per channel
//
// # Validation
//
// [Unmarshal] and [DecodeFrame] are total: for every input they either return
// a structurally valid message whose payload length matches its type exactly,
// or an error that satisfies errors.Is(err, ErrInvalidFrame). They never
// panic and have no side effects. Callers drop invalid frames silently; the
// protocol has no error reporting towards the peer.
//
//	frame, err := protocol.DecodeFrame(raw)
//	if err != nil {
//	    return // drop
//	}
//	switch msg := frame.Message.(type) {
//	case protocol.SessionControl:
//	    ...
//	}
//
// # Encoding
//
//	raw, err := protocol.EncodeFrame(peer, local, generation,
//	    protocol.SessionControl{Kind: protocol.HandshakeRequest})
package protocol
