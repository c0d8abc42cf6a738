package task

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestSessionLock_Acquire_Success(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".arbitra")

	lock := NewSessionLock(dir)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		t.Fatalf("failed to parse PID from lock file: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("lock file PID mismatch: got %d, want %d", pid, os.Getpid())
	}
}

func TestSessionLock_Acquire_AlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, lockFileName)
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatalf("failed to create lock file: %v", err)
	}

	err := NewSessionLock(dir).Acquire()
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestSessionLock_Acquire_ReclaimsStaleLock(t *testing.T) {
	tests := map[string]string{
		"dead pid":    "99999999",
		"invalid pid": "not-a-pid",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			lockPath := filepath.Join(dir, lockFileName)
			if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			if err := NewSessionLock(dir).Acquire(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			data, _ := os.ReadFile(lockPath)
			if string(data) != strconv.Itoa(os.Getpid()) {
				t.Errorf("expected lock to hold our PID, got %q", data)
			}
		})
	}
}

func TestSessionLock_ReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	lock := NewSessionLock(dir)
	if err := lock.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
}

func TestSessionLock_IsLocked(t *testing.T) {
	dir := t.TempDir()
	lock := NewSessionLock(dir)

	locked, err := lock.IsLocked()
	if err != nil || locked {
		t.Fatalf("IsLocked() = %v, %v; want false, nil", locked, err)
	}

	if err := lock.Acquire(); err != nil {
		t.Fatal(err)
	}
	locked, err = lock.IsLocked()
	if err != nil || !locked {
		t.Fatalf("IsLocked() = %v, %v; want true, nil", locked, err)
	}
}
