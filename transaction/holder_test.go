package transaction

import (
	"errors"
	"testing"
	"time"

	"github.com/clint-tools/serialio/wire"
	"github.com/stretchr/testify/require"
)

func TestAddResolve(t *testing.T) {
	h := NewHolder()
	txn := h.Add(1, time.Second)

	reply := wire.NewMessage([]byte("this is a test reply"), wire.TypeReply, 1)
	h.Resolve(1, reply)

	msg, err := txn.Await()
	require.NoError(t, err)
	require.Equal(t, uint16(1), msg.ID())
	require.Equal(t, "this is a test reply", msg.PayloadString())
	require.Equal(t, 0, h.Len())
}

func TestAddReject(t *testing.T) {
	h := NewHolder()
	txn := h.Add(2, time.Second)

	h.Reject(2, &RemoteError{ID: 2, Message: "this is an error"})

	_, err := txn.Await()
	require.Error(t, err)
	require.Equal(t, "this is an error", err.Error())
}

func TestTimeoutFiresExactlyOnce(t *testing.T) {
	h := NewHolder()
	txn := h.Add(3, 10*time.Millisecond)

	_, err := txn.Await()
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	require.Equal(t, "timeout reached", err.Error())

	// A resolve arriving after the timeout must be a no-op: the entry is
	// already gone and the transaction's outcome already settled.
	h.Resolve(3, wire.NewMessage(nil, wire.TypeReply, 3))
	_, err2 := txn.Await()
	require.Error(t, err2)
	require.Equal(t, err, err2)
}

func TestRemoveCancelsTimer(t *testing.T) {
	h := NewHolder()
	h.Add(4, 5*time.Millisecond)
	removed, ok := h.Remove(4)
	require.True(t, ok)
	require.Equal(t, uint16(4), removed.ID)
	// Remove has already stopped the timer, so stopping it again reports
	// false; a timer still pending would report true.
	require.False(t, removed.timer.Stop())

	// The table stays empty once the timer's deadline has passed.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, h.Len())
}

func TestResolveUnknownIDIsNoop(t *testing.T) {
	h := NewHolder()
	require.NotPanics(t, func() {
		h.Resolve(99, wire.NewMessage(nil, wire.TypeReply, 99))
	})
}
