// Package transaction serializes writers of a shared cache entry across
// processes with advisory lock files.
package transaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
	// PollInterval is how often a waiting AcquireLock retries.
	PollInterval = 100 * time.Millisecond
)

// heartbeatInterval is how often a held lock's mtime is refreshed. It stays
// well below StaleLockThreshold so a live holder never looks stale.
var heartbeatInterval = StaleLockThreshold / 4

var (
	ErrLockExists = errors.New("lock exists: another process is populating this cache entry")
	ErrLockLost   = errors.New("lock file was taken over by another process")
)

// Lock represents an acquired lock file. While held, a background heartbeat
// keeps its modification time fresh.
type Lock struct {
	path  string
	file  *os.File
	token []byte

	stop chan struct{}
	done sync.WaitGroup
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// LockPath returns the lock file path for name in dir.
func LockPath(dir, name string) string {
	return filepath.Join(dir, name+".lock")
}

// TryLock attempts to acquire dir/<name>.lock once. Uses O_CREATE|O_EXCL for
// atomic lock creation. A lock older than StaleLockThreshold is removed and
// the attempt retried once; a live lock yields ErrLockExists.
func TryLock(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := LockPath(dir, name)

	// Try to create lock file exclusively
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		// Lock exists - check if it's stale
		if isStale, _ := isLockStale(lockPath); !isStale {
			return nil, ErrLockExists
		}
		// Remove stale lock and retry once
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	// Write lock metadata (PID, timestamp and ownership token)
	token := "token=" + uuid.NewString() + "\n"
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n%s", os.Getpid(), time.Now().UTC().Format(time.RFC3339), token)
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	l := &Lock{
		path:  lockPath,
		file:  file,
		token: []byte(token),
		stop:  make(chan struct{}),
	}
	l.done.Add(1)
	go l.heartbeat(heartbeatInterval)
	return l, nil
}

// heartbeat touches the lock file until Release, or until the file no longer
// belongs to this lock.
func (l *Lock) heartbeat(interval time.Duration) {
	defer l.done.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !l.owned() {
				return
			}
			now := time.Now()
			_ = os.Chtimes(l.path, now, now)
		}
	}
}

// owned reports whether the lock file still carries this lock's token.
func (l *Lock) owned() bool {
	data, err := os.ReadFile(l.path)
	return err == nil && bytes.Contains(data, l.token)
}

// AcquireLock waits until dir/<name>.lock can be taken, polling every
// PollInterval. It gives up only when ctx is done.
func AcquireLock(ctx context.Context, dir, name string) (*Lock, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("wait for lock %s: %w", LockPath(dir, name), err)
		}

		lock, err := TryLock(dir, name)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockExists) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for lock %s: %w", LockPath(dir, name), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release stops the heartbeat and removes the lock file. A lock file that
// another process has since taken over is left in place and ErrLockLost is
// returned.
func (l *Lock) Release() error {
	if l.stop != nil {
		close(l.stop)
		l.done.Wait()
		l.stop = nil
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		owned := l.owned()
		path := l.path
		l.path = ""
		if !owned {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("release %s: %w", path, ErrLockLost)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}
