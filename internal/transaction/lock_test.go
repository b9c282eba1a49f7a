package transaction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock(t *testing.T) {
	ctx := context.Background()

	t.Run("creates lock file with metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "root", "provision.lock")

		lock, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		defer lock.Release()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), fmt.Sprintf("pid=%d", os.Getpid()))
		assert.Equal(t, path, lock.Path())
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")

		lock1, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		defer lock1.Release()

		_, err = AcquireLock(ctx, path)
		assert.ErrorIs(t, err, ErrLockExists)
	})

	t.Run("release allows reacquire", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")

		lock1, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		require.NoError(t, lock1.Release())
		require.NoError(t, lock1.Release(), "double release must be harmless")

		lock2, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		require.NoError(t, lock2.Release())
	})

	t.Run("takes over old lock without owner", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")
		require.NoError(t, os.WriteFile(path, []byte("timestamp=2025-01-01T00:00:00Z\n"), 0o600))
		old := time.Now().Add(-2 * StaleLockThreshold)
		require.NoError(t, os.Chtimes(path, old, old))

		lock, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		require.NoError(t, lock.Release())
	})

	t.Run("keeps fresh lock without owner", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")
		require.NoError(t, os.WriteFile(path, []byte("pid=abc\n"), 0o600))

		_, err := AcquireLock(ctx, path)
		assert.ErrorIs(t, err, ErrLockExists)
	})

	t.Run("keeps old lock of live process", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("pid=%d\n", os.Getppid())), 0o600))
		old := time.Now().Add(-2 * StaleLockThreshold)
		require.NoError(t, os.Chtimes(path, old, old))

		_, err := AcquireLock(ctx, path)
		assert.ErrorIs(t, err, ErrLockExists)
	})

	t.Run("takes over lock of exited process", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("pid=%d\n", exitedPID(t))), 0o600))

		lock, err := AcquireLock(ctx, path)
		require.NoError(t, err)
		require.NoError(t, lock.Release())
	})

	t.Run("keeps lock of live process", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "provision.lock")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0o600))

		_, err := AcquireLock(ctx, path)
		assert.ErrorIs(t, err, ErrLockExists)
	})
}

func TestReadLockPID(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		content string
		want    int
		ok      bool
	}{
		{"pid=42\ntimestamp=2025-01-01T00:00:00Z\n", 42, true},
		{"timestamp=2025-01-01T00:00:00Z\n", 0, false},
		{"pid=abc\n", 0, false},
		{"pid=-3\n", -3, false},
	}

	for i, tt := range tests {
		path := filepath.Join(dir, fmt.Sprintf("lock%d", i))
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

		pid, ok := readLockPID(path)
		assert.Equal(t, tt.ok, ok, tt.content)
		if tt.ok {
			assert.Equal(t, tt.want, pid)
		}
	}
}

// exitedPID runs a short-lived child and returns its pid once reaped.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	require.NoError(t, cmd.Run())
	return cmd.ProcessState.Pid()
}
