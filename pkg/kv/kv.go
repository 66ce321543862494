// Package kv defines the string key/value medium form documents are
// persisted in. Subpackages provide in-memory, file, Redis, SQLite,
// PostgreSQL and Firestore implementations.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Medium is a string key/value store. Implementations must be safe for
// concurrent use and Set must replace the value atomically.
type Medium interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Batcher is implemented by media that can write several keys in one atomic
// step.
type Batcher interface {
	SetMany(ctx context.Context, entries []Entry) error
}

// Closer is implemented by media that hold connections or handles.
type Closer interface {
	Close() error
}

// Entry is a single key/value pair.
type Entry struct {
	Key   string
	Value string
}

// SetAll writes entries atomically when the medium supports batches and in
// order otherwise.
func SetAll(ctx context.Context, m Medium, entries ...Entry) error {
	if b, ok := m.(Batcher); ok {
		return b.SetMany(ctx, entries)
	}
	for _, e := range entries {
		if err := m.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the medium when it holds resources.
func Close(m Medium) error {
	if c, ok := m.(Closer); ok {
		return c.Close()
	}
	return nil
}
