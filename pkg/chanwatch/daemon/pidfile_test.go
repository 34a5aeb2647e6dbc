package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile(t *testing.T) {
	t.Cleanup(func() { RemovePID() })

	t.Run("write then read round-trips", func(t *testing.T) {
		require.NoError(t, WritePID(12345))

		pid, err := ReadPID()
		require.NoError(t, err)
		assert.Equal(t, 12345, pid)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, WritePID(12345))
		require.NoError(t, RemovePID())
		require.NoError(t, RemovePID())

		_, err := ReadPID()
		assert.Error(t, err)
	})
}

func TestIsRunning(t *testing.T) {
	t.Run("own process is running", func(t *testing.T) {
		assert.True(t, IsRunning(os.Getpid()))
	})

	t.Run("nonsense pids are not", func(t *testing.T) {
		assert.False(t, IsRunning(0))
		assert.False(t, IsRunning(-1))
	})
}

func TestStop(t *testing.T) {
	t.Cleanup(func() { RemovePID() })

	t.Run("fails without a pid file", func(t *testing.T) {
		RemovePID()
		_, err := Stop()
		assert.Error(t, err)
	})

	t.Run("cleans up a stale pid file", func(t *testing.T) {
		// A pid that is almost certainly not alive.
		require.NoError(t, WritePID(1 << 22))

		_, err := Stop()
		assert.Error(t, err)

		_, err = ReadPID()
		assert.Error(t, err, "stale pid file should have been removed")
	})
}
