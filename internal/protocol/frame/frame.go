// Package frame implements the sway IPC framing codec: a 6-byte magic
// marker, a 4-byte little-endian payload length, a 4-byte little-endian
// message kind, then the raw payload. Decoding is buffer-in/frame-out so
// it needs no socket and serves both the single-reply path and the event
// stream identically.
package frame

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/efosmark/swayipc/internal/protocol"
)

// Magic is the protocol marker every frame starts with.
var Magic = [6]byte{'i', '3', '-', 'i', 'p', 'c'}

const (
	// HeaderLen is magic + payload length + message kind.
	HeaderLen = 14

	// MaxPayload is the largest payload the length field can carry.
	MaxPayload = math.MaxUint32
)

// Frame is one complete wire message. Payload is opaque UTF-8 text
// (conventionally JSON); the codec never parses it.
type Frame struct {
	Kind    protocol.MessageKind
	Payload []byte
}

// Encode serializes a frame. Fails only when the payload exceeds the
// 32-bit length field.
func Encode(kind protocol.MessageKind, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxPayload {
		return nil, protocol.ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf[0:6], Magic[:])
	binary.LittleEndian.PutUint32(buf[6:10], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[10:14], uint32(kind))
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// Decode extracts the first complete frame from buf.
//
// Returns (frame, consumed, nil) when buf holds a whole frame, and
// (zero, 0, nil) when it holds only a partial one; partial input is a
// normal condition because frames arrive in arbitrary read-sized chunks.
// Any byte contradicting the magic marker at offset 0 is
// protocol.ErrBadMagic, even before 6 bytes have arrived.
func Decode(buf []byte) (Frame, int, error) {
	prefix := min(len(buf), len(Magic))
	if !bytes.Equal(buf[:prefix], Magic[:prefix]) {
		return Frame{}, 0, protocol.ErrBadMagic
	}
	if len(buf) < HeaderLen {
		return Frame{}, 0, nil
	}
	length := binary.LittleEndian.Uint32(buf[6:10])
	kind := protocol.MessageKind(binary.LittleEndian.Uint32(buf[10:14]))
	total := uint64(HeaderLen) + uint64(length)
	if uint64(len(buf)) < total {
		return Frame{}, 0, nil
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderLen:total])
	return Frame{Kind: kind, Payload: payload}, int(total), nil
}
