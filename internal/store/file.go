package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// FileStore keeps every key in a single JSON document on disk, mirroring how
// browser local storage holds string values per origin. Each write rewrites
// the whole document through a temp file and rename, so a crash leaves
// either the old or the new document, never a torn one.
type FileStore struct {
	mu     sync.Mutex
	path   string
	items  map[string]string
	logger *zap.Logger
	closed bool
}

// NewFileStore opens (or lazily creates) the state file at path. A missing
// file starts empty. A file that cannot be parsed is logged and treated as
// empty; it is replaced on the next write.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &FileStore{
		path:   path,
		items:  make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	if len(data) == 0 {
		return s, nil
	}
	if err := sonic.Unmarshal(data, &s.items); err != nil {
		logger.Warn("State file is corrupted, starting from empty state",
			zap.String("path", path),
			zap.Error(err))
		s.items = make(map[string]string)
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	prev, had := s.items[key]
	s.items[key] = string(value)
	if err := s.flush(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	prev, had := s.items[key]
	if !had {
		return nil
	}
	delete(s.items, key)
	if err := s.flush(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// flush writes the document atomically. Must be called with s.mu held.
func (s *FileStore) flush() error {
	data, err := sonic.ConfigStd.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hooksend-state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
