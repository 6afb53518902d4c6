package sqlitebackend

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/backend/conformance"
)

func TestSQLiteBackendConformance(t *testing.T) {
	s, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	conformance.Run(t, s)
}
