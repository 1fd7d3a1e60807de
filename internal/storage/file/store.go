package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"review_proxy/internal/adapters/observability"
)

// Store keeps each document as <dir>/<key>.json. Writes go through a temp file
// and a rename so readers never see a half-written document.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store { return &Store{dir: dir} }

// Writable reports whether dir exists (or can be created) and accepts writes.
func Writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".json")
}

func (s *Store) Get(_ context.Context, key string, dst any) (bool, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		observability.ObserveStore("file", "get", "absent")
		return false, nil
	}
	if err != nil {
		observability.ObserveStore("file", "get", "error")
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	observability.ObserveStore("file", "get", "ok")
	return true, nil
}

func (s *Store) Put(_ context.Context, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		observability.ObserveStore("file", "put", "error")
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, filepath.Base(key)+".*.tmp")
	if err != nil {
		observability.ObserveStore("file", "put", "error")
		return fmt.Errorf("write %s: %w", key, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		observability.ObserveStore("file", "put", "error")
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		observability.ObserveStore("file", "put", "error")
		return fmt.Errorf("replace %s: %w", key, err)
	}
	observability.ObserveStore("file", "put", "ok")
	return nil
}
