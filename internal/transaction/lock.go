// Package transaction guards a provisioning root against concurrent runs and
// journals the state of each provisioning step so an interrupted run can be
// diagnosed afterwards.
package transaction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

const (
	// StaleLockThreshold is the maximum age of a lock with no readable owner.
	StaleLockThreshold = 30 * time.Minute
)

var (
	ErrLockExists = errors.New("provision lock exists: another provisioning run may be in progress")
)

// Lock represents a held lock file.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates path exclusively with O_CREATE|O_EXCL. An existing lock
// is taken over when the process that wrote it is gone, or, when its owner
// cannot be read, once it is older than StaleLockThreshold.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(ctx, path) {
			return nil, ErrLockExists
		}
		_ = os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock data: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

// isLockStale reports whether the lock at path can be taken over. A lock
// whose writer is still running is never stale. Age only decides when the
// owner cannot be determined.
func isLockStale(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if pid, ok := readLockPID(path); ok {
		if pid == os.Getpid() {
			return false
		}
		alive, err := gopsprocess.PidExistsWithContext(ctx, int32(pid))
		if err == nil {
			return !alive
		}
	}
	return time.Since(info.ModTime()) > StaleLockThreshold
}

func readLockPID(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "pid="); ok {
			pid, err := strconv.Atoi(strings.TrimSpace(v))
			return pid, err == nil && pid > 0
		}
	}
	return 0, false
}
