package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorrupt marks persisted state that exists but cannot be decoded.
// Store treats it as an empty mapping.
var ErrCorrupt = errors.New("persisted task state is corrupt")

// Backend is the durable home of the ticker-to-tasks mapping.
type Backend interface {
	Load(ctx context.Context) (map[string][]Task, error)
	Save(ctx context.Context, tasks map[string][]Task) error
}

// decodeMapping parses persisted state, reporting malformed input as ErrCorrupt.
func decodeMapping(data []byte) (map[string][]Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string][]Task{}, nil
	}
	var tasks map[string][]Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if tasks == nil {
		tasks = map[string][]Task{}
	}
	return tasks, nil
}

// FileBackend stores the mapping as a single JSON file.
type FileBackend struct {
	path string

	mu          sync.Mutex
	lastWritten []byte
}

// NewFileBackend creates a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file path the backend reads and writes.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the mapping. A missing file is an empty mapping.
func (b *FileBackend) Load(ctx context.Context) (map[string][]Task, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]Task{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	b.mu.Lock()
	b.lastWritten = data
	b.mu.Unlock()

	return decodeMapping(data)
}

// Save atomically writes the mapping using a temp file + rename.
func (b *FileBackend) Save(ctx context.Context, tasks map[string][]Task) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", b.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	b.mu.Lock()
	b.lastWritten = data
	b.mu.Unlock()
	return nil
}

// ChangedExternally reports whether the file on disk differs from what this
// backend last read or wrote.
func (b *FileBackend) ChangedExternally() (bool, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.lastWritten != nil, nil
		}
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return !bytes.Equal(data, b.lastWritten), nil
}

// MemoryBackend keeps the encoded mapping in memory. It encodes on every save
// so round-trips behave like the file backend.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
	// SaveErr, when set, is returned by Save without storing anything.
	SaveErr error
	saves   int
}

// NewMemoryBackend creates a backend preloaded with raw persisted bytes.
func NewMemoryBackend(raw []byte) *MemoryBackend {
	return &MemoryBackend{data: raw}
}

// Load implements Backend.
func (b *MemoryBackend) Load(ctx context.Context) (map[string][]Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return decodeMapping(b.data)
}

// Save implements Backend.
func (b *MemoryBackend) Save(ctx context.Context, tasks map[string][]Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SaveErr != nil {
		return b.SaveErr
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	b.data = data
	b.saves++
	return nil
}

// Raw returns the last saved encoding.
func (b *MemoryBackend) Raw() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// Saves returns how many successful saves have happened.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
