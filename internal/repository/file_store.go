package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// FileStore keeps each document and list in its own JSON file under dir.
// Writes go to a temp file that is renamed over the target, so readers see
// either the old or the new content, never a torn write.
type FileStore struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ domrepo.DocumentStore = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileStore) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) read(name string) ([]byte, error) {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	return b, err
}

func (s *FileStore) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func (s *FileStore) LoadDocument(_ context.Context, key string, dest any) error {
	l := s.lock(key)
	l.Lock()
	b, err := s.read(key)
	l.Unlock()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrConfigCorrupt, key, err)
	}
	return nil
}

func (s *FileStore) SaveDocument(_ context.Context, key string, value any) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", key, err)
	}
	l := s.lock(key)
	l.Lock()
	defer l.Unlock()
	if err := s.write(key, b); err != nil {
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) AppendCapped(_ context.Context, list string, entry any, limit int) error {
	l := s.lock(list)
	l.Lock()
	defer l.Unlock()

	raw, err := s.read(list)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("file store: read %s: %w", list, err)
	}
	next, err := appendCapped(raw, entry, limit)
	if err != nil {
		return fmt.Errorf("file store: %s: %w", list, err)
	}
	if err := s.write(list, next); err != nil {
		return fmt.Errorf("file store: write %s: %w", list, err)
	}
	return nil
}

func (s *FileStore) LoadList(_ context.Context, list string, dest any) error {
	l := s.lock(list)
	l.Lock()
	raw, err := s.read(list)
	l.Unlock()
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("file store: read %s: %w", list, err)
	}
	return decodeList(raw, dest)
}

func (s *FileStore) Close() error { return nil }
