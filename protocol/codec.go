package protocol

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Packet is a decoded payload: the header's generation id and the message.
type Packet struct {
	Generation uint8
	Message    Message
}

// Frame is a decoded link-layer frame.
type Frame struct {
	Src        net.HardwareAddr
	Dst        net.HardwareAddr
	Generation uint8
	Message    Message
}

// Marshal encodes the header and payload for msg. The result is the bytes
// that follow the link header.
func Marshal(generation uint8, msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	size, ok := msg.Type().payloadSize()
	if !ok {
		return nil, fmt.Errorf("%w: message type %d", ErrInvalidMessage, msg.Type())
	}
	b := make([]byte, HeaderSize, HeaderSize+size)
	binary.BigEndian.PutUint32(b[0:4], Magic)
	b[4] = generation
	b[5] = byte(msg.Type())
	return msg.appendPayload(b)
}

// Unmarshal validates and decodes the bytes following the link header.
//
// Checks run in order: length against the header size, magic, exact payload
// length for the declared type, and finally the session-control sub-type.
// The returned message never aliases b.
func Unmarshal(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, invalid(ReasonShort, "%d bytes", len(b))
	}
	if magic := binary.BigEndian.Uint32(b[0:4]); magic != Magic {
		return Packet{}, invalid(ReasonMagic, "0x%08x", magic)
	}
	generation := b[4]
	msgType := MsgType(b[5])
	payload := b[HeaderSize:]

	want, ok := msgType.payloadSize()
	if !ok {
		return Packet{}, invalid(ReasonMsgType, "%d", b[5])
	}
	if len(payload) != want {
		return Packet{}, invalid(ReasonLength, "%s payload is %d bytes, want %d", msgType, len(payload), want)
	}

	var msg Message
	switch msgType {
	case MsgSessionControl:
		kind := SessionControlType(payload[0])
		if !kind.Valid() {
			return Packet{}, invalid(ReasonSessionCtl, "%d", payload[0])
		}
		msg = SessionControl{Kind: kind}
	case MsgPcmControl:
		msg = PcmControl{Mask: StreamMask(payload[0])}
	case MsgPcmData:
		data := make([]byte, PeriodDataSize)
		copy(data, payload[SequenceSize:])
		msg = PcmData{
			Sequence: binary.BigEndian.Uint32(payload[:SequenceSize]),
			Data:     data,
		}
	}
	return Packet{Generation: generation, Message: msg}, nil
}

// EncodeFrame builds a complete 802.3 frame from src to dst carrying msg.
// The type/length field holds the payload length; gopacket pads the frame to
// the Ethernet minimum.
func EncodeFrame(dst, src net.HardwareAddr, generation uint8, msg Message) ([]byte, error) {
	payload, err := Marshal(generation, msg)
	if err != nil {
		return nil, err
	}
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       dst,
		EthernetType: layers.EthernetTypeLLC,
		Length:       uint16(len(payload)),
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return buf.Bytes(), nil
}

// DecodeFrame validates and decodes a complete link-layer frame.
//
// The link type/length field is the declared payload length: it must be a
// length (not an EtherType), at least HeaderSize, and covered by the
// captured bytes. Ethernet padding past the declared length is ignored.
func DecodeFrame(raw []byte) (Frame, error) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return Frame{}, invalid(ReasonLinkHeader, "%v", err)
	}
	if eth.EthernetType != layers.EthernetTypeLLC {
		return Frame{}, invalid(ReasonLinkHeader, "ethertype %s is not a length field", eth.EthernetType)
	}
	declared := int(eth.Length)
	if declared < HeaderSize {
		return Frame{}, invalid(ReasonShort, "declared length %d", declared)
	}
	if len(eth.Payload) < declared {
		return Frame{}, invalid(ReasonTruncated, "have %d of %d bytes", len(eth.Payload), declared)
	}
	pkt, err := Unmarshal(eth.Payload[:declared])
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Src:        cloneAddr(eth.SrcMAC),
		Dst:        cloneAddr(eth.DstMAC),
		Generation: pkt.Generation,
		Message:    pkt.Message,
	}, nil
}

func cloneAddr(a net.HardwareAddr) net.HardwareAddr {
	out := make(net.HardwareAddr, len(a))
	copy(out, a)
	return out
}
