package portlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListNeverErrors(t *testing.T) {
	ports, err := List()
	require.NoError(t, err)
	// The sandbox this runs in typically has no serial devices; List must
	// still return a nil/empty slice rather than failing.
	require.True(t, ports == nil || len(ports) >= 0)
}

func TestErrNoneFoundMessage(t *testing.T) {
	require.Equal(t, "no serial ports found", ErrNoneFoundMessage())
}
