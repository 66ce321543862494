package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/kv"
	"github.com/goliatone/go-formbuilder/pkg/kv/kvtest"
)

func TestStore(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nested", "data.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	kvtest.Run(t, s, "test:")
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	first, _ := New(path)
	if err := first.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	second, _ := New(path)
	if got, err := second.Get(context.Background(), "k"); err != nil || got != "v" {
		t.Fatalf("get after reopen = %q, %v", got, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestCorruptFileIsMovedAsideOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _ := New(path)
	ctx := context.Background()
	if _, err := s.Get(ctx, "k"); err == nil || errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set after corruption: %v", err)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("get = %q, %v", got, err)
	}
	old, err := os.ReadFile(path + CorruptSuffix)
	if err != nil || string(old) != "{not json" {
		t.Fatalf("corrupt copy = %q, %v", old, err)
	}
	if err := s.Set(ctx, "k2", "v2"); err != nil {
		t.Fatalf("second set: %v", err)
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error")
	}
}
