package task

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const lockFileName = "session.lock"

// ErrSessionActive is returned by Acquire when a live process holds the lock.
var ErrSessionActive = errors.New("another arbitra session is active")

// SessionLock guards the data directory so only one interactive session
// edits tasks at a time. The lock file holds the owner's PID; locks left
// by dead processes are reclaimed.
type SessionLock struct {
	path string
}

// NewSessionLock creates a lock manager for the given data directory.
func NewSessionLock(dataDir string) *SessionLock {
	return &SessionLock{path: filepath.Join(dataDir, lockFileName)}
}

// Acquire takes the lock, reclaiming it once if the holder is gone.
func (l *SessionLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	err := l.create()
	if err == nil || !os.IsExist(err) {
		return err
	}

	pid, live, err := l.holder()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if live {
		return fmt.Errorf("%w (PID %d)", ErrSessionActive, pid)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock file: %w", err)
	}

	if err := l.create(); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: lock taken during retry", ErrSessionActive)
		}
		return err
	}
	return nil
}

// Release removes the lock file. Releasing an absent lock is not an error.
func (l *SessionLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// IsLocked reports whether a live process holds the lock.
func (l *SessionLock) IsLocked() (bool, error) {
	_, live, err := l.holder()
	if os.IsNotExist(err) {
		return false, nil
	}
	return live, err
}

// create writes our PID into a new lock file. It returns the raw
// os.OpenFile error so callers can test os.IsExist.
func (l *SessionLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
	f.Close()
	if writeErr != nil {
		os.Remove(l.path)
		return fmt.Errorf("failed to write lock file: %w", writeErr)
	}
	return nil
}

// holder reads the lock file. An unparseable PID counts as a dead holder.
func (l *SessionLock) holder() (pid int, live bool, err error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, err
		}
		return 0, false, fmt.Errorf("failed to read lock file: %w", err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr != nil {
		return 0, false, nil
	}
	return pid, processExists(pid), nil
}

// processExists sends signal 0, which checks for the process without
// delivering anything.
func processExists(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
