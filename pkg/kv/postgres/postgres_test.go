package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/kv/kvtest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("FORMBUILDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FORMBUILDER_TEST_POSTGRES_DSN not set")
	}
	s, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	kvtest.Run(t, s, "formbuilder-test:")
}
