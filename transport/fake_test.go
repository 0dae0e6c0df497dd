package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakePortOpenClose(t *testing.T) {
	p := NewFakePort("mock")
	var openErr error
	var closed bool
	p.SetEvents(Events{
		OnOpen:  func(err error) { openErr = err },
		OnClose: func(err error) { closed = true },
	})

	require.NoError(t, p.Open())
	require.NoError(t, openErr)
	require.True(t, p.IsOpen())

	require.NoError(t, p.Close())
	require.True(t, closed)
	require.False(t, p.IsOpen())
}

func TestFakePortOpenErr(t *testing.T) {
	p := NewFakePort("missing")
	p.OpenErr = errors.New("boom")
	require.Error(t, p.Open())
	require.False(t, p.IsOpen())
}

func TestFakePortConnectRelaysWrites(t *testing.T) {
	a := NewFakePort("a")
	b := NewFakePort("b")
	Connect(a, b)

	var received []byte
	b.SetEvents(Events{OnData: func(chunk []byte) { received = append(received, chunk...) }})

	_, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), received)
	require.Equal(t, []byte("hello"), a.TakeSent())
}

func TestFakePortDropNextWrite(t *testing.T) {
	a := NewFakePort("a")
	b := NewFakePort("b")
	Connect(a, b)
	a.DropNextWrite = true

	var received []byte
	b.SetEvents(Events{OnData: func(chunk []byte) { received = append(received, chunk...) }})

	n, err := a.Write([]byte("lost"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Empty(t, received)
	require.Empty(t, a.TakeSent())
}
