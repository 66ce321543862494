// Package kvtest holds a behavioural suite every kv.Medium implementation
// must pass.
package kvtest

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/kv"
)

// Run exercises get/set/delete and batch semantics against m. Keys are
// prefixed with prefix so shared backends do not collide between runs.
func Run(t *testing.T, m kv.Medium, prefix string) {
	t.Helper()
	ctx := context.Background()
	a, b := prefix+"a", prefix+"b"
	t.Cleanup(func() { _ = m.Delete(context.Background(), a, b) })

	if _, err := m.Get(ctx, a); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("get missing: expected ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, a, `{"x":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := m.Get(ctx, a); err != nil || got != `{"x":1}` {
		t.Fatalf("get = %q, %v", got, err)
	}

	if err := m.Set(ctx, a, "replaced"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := m.Get(ctx, a); got != "replaced" {
		t.Fatalf("overwrite not visible: %q", got)
	}

	if err := kv.SetAll(ctx, m, kv.Entry{Key: a, Value: "one"}, kv.Entry{Key: b, Value: "two"}); err != nil {
		t.Fatalf("set all: %v", err)
	}
	for key, want := range map[string]string{a: "one", b: "two"} {
		if got, err := m.Get(ctx, key); err != nil || got != want {
			t.Fatalf("get %s = %q, %v", key, got, err)
		}
	}

	if err := m.Delete(ctx, a, b); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, key := range []string{a, b} {
		if _, err := m.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("get %s after delete: %v", key, err)
		}
	}
	if err := m.Delete(ctx, a); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}
