// Package file stores each key as a JSON file in a data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"flowfunds/internal/log"
	"flowfunds/internal/storage"
)

const (
	fileExt = ".json"
	tmpExt  = ".tmp"

	// Events for a key within this window of our own write are ours.
	selfWriteWindow = 500 * time.Millisecond
	debounce        = 100 * time.Millisecond
)

type Store struct {
	dir    string
	logger *log.Logger

	mu         sync.Mutex
	selfWrites map[string]time.Time
	closed     bool
}

// New creates dir if needed and returns a store rooted there.
func New(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		dir:        dir,
		logger:     logger.WithComponent(log.ComponentStorage),
		selfWrites: map[string]time.Time{},
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// FileName maps a key to its file name, e.g. flowfunds:settings to
// flowfunds-settings.json.
func FileName(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			return r
		}
		return '-'
	}, key)
	return safe + fileExt
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, FileName(key))
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return b, true, nil
}

// Set writes value to a temporary file and renames it over the target, so a
// reader never sees a partial document.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, FileName(key)+"-*"+tmpExt)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	s.markSelfWrite(FileName(key))
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		s.markSelfWrite(FileName(k))
		if err := os.Remove(s.path(k)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) markSelfWrite(name string) {
	s.mu.Lock()
	s.selfWrites[name] = time.Now()
	s.mu.Unlock()
}

func (s *Store) isSelfWrite(name string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.selfWrites[name]
	return ok && at.Sub(w) < selfWriteWindow
}

// Watch reports changes another process makes to the tracker documents. It
// blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(key string)) error {
	return s.WatchKeys(ctx, []string{storage.KeyTransactions, storage.KeySettings}, onChange)
}

// WatchKeys is Watch restricted to keys; events for other files are ignored.
func (s *Store) WatchKeys(ctx context.Context, keys []string, onChange func(key string)) error {
	byName := make(map[string]string, len(keys))
	for _, k := range keys {
		byName[FileName(k)] = k
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.logger.InfoContext(ctx, "Watching data directory", "dir", s.dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			key, ok := byName[name]
			if !ok {
				continue
			}
			now := time.Now()
			if s.isSelfWrite(name, now) {
				continue
			}
			pending[key] = now

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "Watcher error", log.FieldError, err)

		case now := <-ticker.C:
			for key, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, key)
				s.logger.InfoContext(ctx, "External change detected", log.FieldKey, key)
				onChange(key)
			}
		}
	}
}
