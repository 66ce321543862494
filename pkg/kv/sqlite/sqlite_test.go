package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/kv/kvtest"
)

func TestStore(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "forms.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	kvtest.Run(t, s, "test:")
}
