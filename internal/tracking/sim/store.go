package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/spatial-anchors/internal/tracking"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go AnchorStore

const lockRetryDelay = 10 * time.Millisecond

// AnchorStore persists anchors across sessions
type AnchorStore interface {
	// Load returns every stored anchor. A store that was never written is empty.
	Load(ctx context.Context) ([]tracking.Anchor, error)

	// Put stores an anchor, replacing one with the same ID
	Put(ctx context.Context, anchor tracking.Anchor) error

	// Remove forgets an anchor. Removing an unknown anchor is a no-op.
	Remove(ctx context.Context, id string) error
}

type storeFile struct {
	Anchors []tracking.Anchor `yaml:"anchors"`
}

// fileStore keeps anchors in a YAML file guarded by an advisory file lock,
// so concurrent simulator processes sharing the file do not lose writes
type fileStore struct {
	path string

	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore creates a store backed by the YAML file at path
func NewFileStore(path string) AnchorStore {
	return &fileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (f *fileStore) Load(ctx context.Context) ([]tracking.Anchor, error) {
	var anchors []tracking.Anchor
	err := f.withLock(ctx, func() error {
		file, err := f.read()
		if err != nil {
			return err
		}
		anchors = file.Anchors
		return nil
	})
	return anchors, err
}

func (f *fileStore) Put(ctx context.Context, anchor tracking.Anchor) error {
	return f.withLock(ctx, func() error {
		file, err := f.read()
		if err != nil {
			return err
		}
		replaced := false
		for i := range file.Anchors {
			if file.Anchors[i].ID == anchor.ID {
				file.Anchors[i] = anchor
				replaced = true
			}
		}
		if !replaced {
			file.Anchors = append(file.Anchors, anchor)
		}
		return f.write(file)
	})
}

func (f *fileStore) Remove(ctx context.Context, id string) error {
	return f.withLock(ctx, func() error {
		file, err := f.read()
		if err != nil {
			return err
		}
		kept := file.Anchors[:0]
		for _, a := range file.Anchors {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(file.Anchors) {
			return nil
		}
		file.Anchors = kept
		return f.write(file)
	})
}

func (f *fileStore) withLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create anchor store directory: %w", err)
	}

	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock anchor store: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock anchor store %s", f.path)
	}
	defer func() {
		_ = f.lock.Unlock()
	}()

	return fn()
}

func (f *fileStore) read() (*storeFile, error) {
	// #nosec G304 -- path comes from the simulator configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &storeFile{}, nil
		}
		return nil, fmt.Errorf("failed to read anchor store: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse anchor store %s: %w", f.path, err)
	}
	return &file, nil
}

func (f *fileStore) write(file *storeFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal anchor store: %w", err)
	}

	// Write to a temporary file first for an atomic replace
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary anchor store: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename anchor store: %w", err)
	}
	return nil
}

// memoryStore is an AnchorStore that lives as long as the process
type memoryStore struct {
	mu      sync.Mutex
	anchors []tracking.Anchor
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore(anchors ...tracking.Anchor) AnchorStore {
	return &memoryStore{anchors: append([]tracking.Anchor(nil), anchors...)}
}

func (m *memoryStore) Load(context.Context) ([]tracking.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tracking.Anchor(nil), m.anchors...), nil
}

func (m *memoryStore) Put(_ context.Context, anchor tracking.Anchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.anchors {
		if m.anchors[i].ID == anchor.ID {
			m.anchors[i] = anchor
			return nil
		}
	}
	m.anchors = append(m.anchors, anchor)
	return nil
}

func (m *memoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.anchors {
		if m.anchors[i].ID == id {
			m.anchors = append(m.anchors[:i], m.anchors[i+1:]...)
			return nil
		}
	}
	return nil
}
