// Package file implements the durable key-value store as one JSON file per
// key in a directory. Every write is atomic (temp file, fsync, rename), so a
// crash never leaves a half-written quote collection behind.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const (
	// tempFilePrefix marks in-progress writes.
	tempFilePrefix = ".quotebook-tmp-"

	healthCheckName = "quote-store"

	filePerm = 0o644
)

// validKey keeps keys usable as file names.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store is a ports.KeyValueStore writing <dir>/<key>.json.
type Store struct {
	dir string
	mu  sync.RWMutex
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// Open prepares dir for use, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, domain.NewUnavailableError(healthCheckName, err.Error())
	}

	return data, nil
}

// Set atomically replaces the file for key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(path, value, filePerm); err != nil {
		return domain.NewUnavailableError(healthCheckName, err.Error())
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return healthCheckName
}

// Check verifies the directory still exists and accepts writes.
func (s *Store) Check(_ context.Context) error {
	probe, err := os.CreateTemp(s.dir, tempFilePrefix+"probe-*")
	if err != nil {
		return fmt.Errorf("store directory not writable: %w", err)
	}

	name := probe.Name()
	_ = probe.Close()

	return os.Remove(name)
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", domain.NewValidationErrorWithValue("key", "must be alphanumeric, dash or underscore", key)
	}

	return filepath.Join(s.dir, key+".json"), nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", filename, err)
	}

	return nil
}
