// Package file persists every key of a kv.Medium in a single JSON file that
// is replaced atomically on each write. A file that cannot be decoded is
// reported by reads; the next write moves it aside to <path>.corrupt and
// starts from an empty set of keys.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/kv"
)

// CorruptSuffix is appended to a data file that could not be decoded when it
// is moved aside.
const CorruptSuffix = ".corrupt"

var errCorrupt = errors.New("file: corrupt data file")

// Store is a file-backed medium. Writes go to a temporary file in the same
// directory which is synced and renamed over the target.
type Store struct {
	path   string
	perm   os.FileMode
	logger *slog.Logger
	mu     sync.Mutex
}

var (
	_ kv.Medium  = (*Store)(nil)
	_ kv.Batcher = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithPerm sets the permission bits of the data file. Defaults to 0600.
func WithPerm(perm os.FileMode) Option {
	return func(s *Store) {
		s.perm = perm
	}
}

// WithLogger reports data files that were moved aside.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a store writing to path. The parent directory is created on
// first write.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("file: path is required")
	}
	s := &Store{path: path, perm: 0o600, logger: logging.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Path returns the data file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, []kv.Entry{{Key: key, Value: value}})
}

func (s *Store) SetMany(ctx context.Context, entries []kv.Entry) error {
	return s.update(ctx, func(values map[string]string) {
		for _, e := range entries {
			values[e.Key] = e.Value
		}
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.update(ctx, func(values map[string]string) {
		for _, key := range keys {
			delete(values, key)
		}
	})
}

func (s *Store) update(ctx context.Context, mutate func(map[string]string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if errors.Is(err, errCorrupt) {
		if values, err = s.quarantine(err); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}
	mutate(values)
	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("file: encode: %w", err)
	}
	return s.writeAtomic(payload)
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", s.path, err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errCorrupt, s.path, err)
	}
	return values, nil
}

// quarantine renames an undecodable data file so writes can start over.
func (s *Store) quarantine(cause error) (map[string]string, error) {
	target := s.path + CorruptSuffix
	if err := os.Rename(s.path, target); err != nil {
		return nil, fmt.Errorf("file: move corrupt file aside: %w", err)
	}
	s.logger.Warn("file: corrupt data file moved aside", "path", s.path, "moved_to", target, "error", cause)
	return map[string]string{}, nil
}

func (s *Store) writeAtomic(payload []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, s.perm)

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file: close: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("file: replace: %w", err)
	}
	_ = syncDir(dir)
	return nil
}

// syncDir fsyncs the parent directory so the rename survives a crash.
// Failures are ignored by callers; some platforms do not support it.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
