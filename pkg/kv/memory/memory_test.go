package memory

import (
	"testing"

	"github.com/goliatone/go-formbuilder/pkg/kv/kvtest"
)

func TestStore(t *testing.T) {
	kvtest.Run(t, New(), "test:")
}
