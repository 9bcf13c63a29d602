package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// FileLock implements domain.Locker with flock(2) on a fixed path.
// The lock belongs to the open file description, so the kernel drops it
// when the process exits for any reason.
type FileLock struct {
	path           string
	processManager domain.ProcessManager
}

// NewFileLock creates a lock on path. pm is used only to name the holder
// in error messages and may be nil.
func NewFileLock(path string, pm domain.ProcessManager) *FileLock {
	return &FileLock{path: path, processManager: pm}
}

// GetPath returns the lock file path.
func (l *FileLock) GetPath() string {
	return l.path
}

// TryLock takes the lock without waiting.
func (l *FileLock) TryLock(operation string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil && !os.IsPermission(err) {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	// The lock directory is world-writable; never follow a link planted
	// at the lock path.
	writable := true
	lockFile, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|unix.O_NOFOLLOW, 0644)
	if err != nil {
		// Unprivileged callers (status, dry-run) can still lock a root-owned
		// file through a read-only descriptor.
		writable = false
		lockFile, err = os.OpenFile(l.path, os.O_RDONLY|unix.O_NOFOLLOW, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to open lock file: %w", err)
		}
	}

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		holder := l.describeHolder(lockFile)
		lockFile.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if holder != "" {
				return nil, fmt.Errorf("%w (held by %s)", domain.ErrConcurrentOperation, holder)
			}
			return nil, domain.ErrConcurrentOperation
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if writable {
		l.recordHolder(lockFile, operation)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		_ = unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		lockFile.Close()
	}, nil
}

// recordHolder writes "<pid> <operation>" for diagnostics. The kernel
// lock, not this content, decides ownership.
func (l *FileLock) recordHolder(f *os.File, operation string) {
	if err := f.Truncate(0); err != nil {
		return
	}
	_, _ = f.WriteAt([]byte(fmt.Sprintf("%d %s\n", os.Getpid(), operation)), 0)
}

func (l *FileLock) describeHolder(f *os.File) string {
	buf := make([]byte, 128)
	n, _ := f.ReadAt(buf, 0)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) == 0 {
		return ""
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return ""
	}

	desc := fmt.Sprintf("pid %d", pid)
	if len(fields) > 1 {
		desc += ", " + fields[1]
	}
	if l.processManager != nil {
		if name, err := l.processManager.NameOf(pid); err == nil {
			desc = name + " " + desc
		}
	}
	return desc
}

// Ensure FileLock implements domain.Locker.
var _ domain.Locker = (*FileLock)(nil)
