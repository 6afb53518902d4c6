package doltbackend

import (
	"context"
	"testing"

	doltcontainer "github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/typegraph/tgcore/internal/backend/conformance"
)

// TestDoltBackendConformance exercises the shared conformance suite
// against a dolt sql-server started in a disposable container via the
// dolt testcontainers module. It is skipped in -short runs since it
// needs a container runtime, the same opt-out beads applies to its
// own testcontainers-backed dolt server tests.
func TestDoltBackendConformance(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a container runtime; skipped with -short")
	}
	ctx := context.Background()

	doltC, err := doltcontainer.Run(ctx, "dolthub/dolt-sql-server:1.40.9", doltcontainer.WithDatabase("typegraph"))
	if err != nil {
		t.Fatalf("start dolt container: %v", err)
	}
	t.Cleanup(func() { _ = doltC.Terminate(ctx) })

	dsn, err := doltC.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	store, err := Open(ctx, Config{ServerDSN: dsn, Database: "typegraph"})
	if err != nil {
		t.Fatalf("open dolt backend: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	conformance.Run(t, store)
}
