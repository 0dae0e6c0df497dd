package serialio

import (
	"testing"

	"github.com/clint-tools/serialio/transport"
	"github.com/stretchr/testify/require"
)

// chunkCountingPort counts how many Write calls it receives, to verify
// sendInParts actually splits large buffers instead of writing them whole.
type chunkCountingPort struct {
	*transport.FakePort
	writes int
}

func (c *chunkCountingPort) Write(p []byte) (int, error) {
	c.writes++
	return c.FakePort.Write(p)
}

func TestSendInPartsChunksLargePayloads(t *testing.T) {
	fake := transport.NewFakePort("chunked")
	port := &chunkCountingPort{FakePort: fake}
	eng := NewEngine(port, WithChunkSize(4))

	payload := make([]byte, 23) // header(11) + 23 = 34 bytes, chunk size 4 -> 9 writes
	for i := range payload {
		payload[i] = byte('a' + i%5)
	}

	require.NoError(t, eng.SendReply(payload, 1))
	require.Equal(t, 9, port.writes)

	sent := fake.TakeSent()
	require.Equal(t, payload, sent[len(sent)-len(payload):])
}
