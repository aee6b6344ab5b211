package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
)

// Store is a flat, byte-addressed non-volatile image kept in a file.
// Writes stay in memory until Commit. Begin must precede any access.
type Store struct {
	mu     sync.Mutex
	path   string
	image  []byte
	dirty  bool
	opened bool
}

// NewStore creates a store backed by the file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Begin loads the image, sized to size bytes. A missing file yields a zeroed
// image; a shorter file is zero-padded.
func (s *Store) Begin(size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size <= 0 {
		return deverrors.NewStorageError("begin", fmt.Errorf("invalid size %d", size), 0)
	}

	image := make([]byte, size)
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		copy(image, data)
	case os.IsNotExist(err):
		logger.LogDebug("💾 No storage image at %s, starting blank", s.path)
	default:
		return deverrors.NewStorageError("begin", err, 0)
	}

	s.image = image
	s.dirty = false
	s.opened = true
	return nil
}

// Size returns the image size, 0 when closed
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.image)
}

// Read returns the byte at addr
func (s *Store) Read(addr int) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("read", addr, 1); err != nil {
		return 0, err
	}
	return s.image[addr], nil
}

// Write sets the byte at addr
func (s *Store) Write(addr int, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("write", addr, 1); err != nil {
		return err
	}
	if s.image[addr] != value {
		s.image[addr] = value
		s.dirty = true
	}
	return nil
}

// GetString reads a NUL-terminated string from a slot of the given size
func (s *Store) GetString(addr, slot int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("get string", addr, slot); err != nil {
		return "", err
	}
	raw := s.image[addr : addr+slot]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

// PutString writes value into a slot, NUL-terminated and zero-padded.
// Values longer than slot-1 bytes are rejected.
func (s *Store) PutString(addr, slot int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("put string", addr, slot); err != nil {
		return err
	}
	if len(value) > slot-1 {
		return deverrors.NewStorageError("put string", fmt.Errorf("value of %d bytes exceeds slot of %d", len(value), slot), addr)
	}

	buf := make([]byte, slot)
	copy(buf, value)
	if !bytes.Equal(s.image[addr:addr+slot], buf) {
		copy(s.image[addr:addr+slot], buf)
		s.dirty = true
	}
	return nil
}

// Reset zeroes every cell and commits
func (s *Store) Reset() error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return deverrors.NewStorageError("reset", fmt.Errorf("store not open"), 0)
	}
	for i := range s.image {
		s.image[i] = 0
	}
	s.dirty = true
	s.mu.Unlock()

	return s.Commit()
}

// Commit persists pending writes atomically
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return deverrors.NewStorageError("commit", fmt.Errorf("store not open"), 0)
	}
	if !s.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return deverrors.NewStorageError("commit", err, 0)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, s.image, 0600); err != nil {
		return deverrors.NewStorageError("commit", err, 0)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return deverrors.NewStorageError("commit", err, 0)
	}

	s.dirty = false
	logger.LogTrace("💾 Storage committed (%d bytes)", len(s.image))
	return nil
}

// End commits and releases the image
func (s *Store) End() error {
	if err := s.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.opened = false
	return nil
}

func (s *Store) check(op string, addr, n int) error {
	if !s.opened {
		return deverrors.NewStorageError(op, fmt.Errorf("store not open"), addr)
	}
	if addr < 0 || n < 0 || addr+n > len(s.image) {
		return deverrors.NewStorageError(op, fmt.Errorf("address out of range (size %d)", len(s.image)), addr)
	}
	return nil
}
