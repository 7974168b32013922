package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sweetpotato0/ragdeck/auth"
	errorskg "github.com/sweetpotato0/ragdeck/errors"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

// File keeps the session in a JSON file readable only by its owner.
// Writes go through a temporary file and a rename.
type File struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFile creates a store backed by path. The file need not exist.
func NewFile(path string) *File {
	return &File{path: path, logger: logging.WithComponent("auth.file")}
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

// Load reads the session file.
func (f *File) Load(ctx context.Context) (auth.Persisted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() (auth.Persisted, error) {
	var p auth.Persisted
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, errorskg.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return p, errorskg.ErrNotFound
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode session file %s: %w", f.path, err)
	}
	return p, nil
}

// Save writes the session file.
func (f *File) Save(ctx context.Context, p auth.Persisted) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (f *File) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Watch calls fn with the file's contents whenever another writer changes
// it, and with an empty session when it is removed. The directory is
// watched rather than the file so atomic replacements are seen.
func (f *File) Watch(ctx context.Context, fn func(auth.Persisted)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch session file: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch session dir: %w", err)
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
					fn(auth.Persisted{})
				}
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				f.mu.Lock()
				p, err := f.read()
				f.mu.Unlock()
				if errors.Is(err, errorskg.ErrNotFound) {
					continue
				}
				if err != nil {
					f.logger.Warn("reload session file failed", "path", f.path, "error", err)
					continue
				}
				fn(p)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("session watcher error", "error", err)
		}
	}
}
