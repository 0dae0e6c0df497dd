package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	msg := NewMessage([]byte("this is a test message"), TypeRequest, 42)

	require.Equal(t, uint16(42), msg.ID())
	require.Equal(t, TypeRequest, msg.Type())
	require.Equal(t, uint32(len("this is a test message")), msg.Length())
	require.Equal(t, "this is a test message", msg.PayloadString())
	require.Equal(t, HeaderSize+len("this is a test message"), msg.Size())
}

func TestParseOfCreateIsIdentity(t *testing.T) {
	created := NewMessage([]byte("round trip payload"), TypeReply, 7)

	var got Message
	p := NewParser()
	p.OnMessage(func(m Message) { got = m })
	p.Feed(created.Raw())

	require.Equal(t, created.ID(), got.ID())
	require.Equal(t, created.Type(), got.Type())
	require.Equal(t, created.Payload(), got.Payload())
}

func TestNextIDWraps(t *testing.T) {
	idCounter = 0xFFFFFFFF // force the uint32 counter to wrap the uint16 view
	first := NextID()
	second := NextID()
	require.Equal(t, uint16(0xFFFF), first)
	require.Equal(t, uint16(0), second)
}
