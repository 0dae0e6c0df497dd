// Package wire implements the SerialIO framing: the fixed-header byte
// layout of one message and the Message value carried through the rest of
// the library.
package wire

import (
	"encoding/binary"
	"sync/atomic"
)

// Type identifies what a Message carries.
type Type uint8

const (
	// TypeRequest is an outbound call expecting a Reply or Error in return.
	TypeRequest Type = 0x00
	// TypePing is a liveness probe; the peer answers with an empty Reply.
	TypePing Type = 0x01
	// TypeReply answers a Request or Ping with the same id.
	TypeReply Type = 0xFE
	// TypeError answers a Request with the same id, payload is the error text.
	TypeError Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case TypeRequest:
		return "REQUEST"
	case TypePing:
		return "PING"
	case TypeReply:
		return "REPLY"
	case TypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StartSequence is the 4-byte magic marking the start of a frame.
const StartSequence uint32 = 0xF000000F

// HeaderSize is the number of bytes preceding the payload: start sequence
// (4) + length (4) + id (2) + type (1).
const HeaderSize = 11

const (
	offStart   = 0
	offLength  = 4
	offID      = 8
	offType    = 10
	offPayload = HeaderSize
)

// Message is an immutable view over a framed buffer. The buffer is owned by
// the Message for the duration of downstream handling; callers must not
// reuse it after constructing a Message from it.
type Message struct {
	raw []byte
}

// NewMessage allocates a fresh framed buffer for payload/typ/id and returns
// a Message view over it.
func NewMessage(payload []byte, typ Type, id uint16) Message {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[offStart:], StartSequence)
	binary.BigEndian.PutUint32(buf[offLength:], uint32(len(payload)))
	binary.BigEndian.PutUint16(buf[offID:], id)
	buf[offType] = byte(typ)
	copy(buf[offPayload:], payload)
	return Message{raw: buf}
}

// FromRaw wraps an already-framed buffer of exactly HeaderSize+Length bytes.
// It does not validate the start sequence; callers that parsed the buffer
// off the wire have already located it.
func FromRaw(buf []byte) Message {
	return Message{raw: buf}
}

// ID returns the transaction id header field.
func (m Message) ID() uint16 {
	return binary.BigEndian.Uint16(m.raw[offID:])
}

// Type returns the message type header field.
func (m Message) Type() Type {
	return Type(m.raw[offType])
}

// Length returns the payload length header field.
func (m Message) Length() uint32 {
	return binary.BigEndian.Uint32(m.raw[offLength:])
}

// Payload returns the payload slice. It aliases the underlying buffer.
func (m Message) Payload() []byte {
	return m.raw[offPayload:]
}

// PayloadString returns Payload as a string.
func (m Message) PayloadString() string {
	return string(m.Payload())
}

// Raw returns the full framed buffer, header and payload, as written to
// the transport.
func (m Message) Raw() []byte {
	return m.raw
}

// Size returns the total framed size: HeaderSize + Length.
func (m Message) Size() int {
	return len(m.raw)
}

// idCounter is the process-wide monotonic id allocator, wrapping mod 2^16.
var idCounter uint32

// NextID returns the next id in the monotonic sequence, wrapping mod 2^16.
// It is safe for concurrent use.
func NextID() uint16 {
	return uint16(atomic.AddUint32(&idCounter, 1) - 1)
}
