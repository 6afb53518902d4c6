package sqlitebackend

import (
	"context"
	"testing"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndGetNodeRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	err := s.InsertNode(ctx, "g1", backend.NodeRow{
		ID: "p1", Kind: "Person", Properties: map[string]any{"name": "Ada"},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert node: %v", err)
	}

	got, err := s.GetNode(ctx, "g1", "Person", "p1")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got.Properties["name"] != "Ada" {
		t.Fatalf("expected name Ada, got %v", got.Properties)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetNode(context.Background(), "g1", "Person", "missing")
	if err == nil {
		t.Fatalf("expected error for missing node")
	}
}

func TestSoftDeleteExcludesFromFindByDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = s.InsertNode(ctx, "g1", backend.NodeRow{ID: "p1", Kind: "Person", CreatedAt: now, UpdatedAt: now})
	if err := s.DeleteNode(ctx, "g1", "Person", "p1", now); err != nil {
		t.Fatalf("delete node: %v", err)
	}

	rows, err := s.FindNodesByKind(ctx, "g1", "Person", backend.NodeFilter{})
	if err != nil {
		t.Fatalf("find nodes: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected soft-deleted node excluded by default, got %d rows", len(rows))
	}

	rows, err = s.FindNodesByKind(ctx, "g1", "Person", backend.NodeFilter{IncludeTombstones: true})
	if err != nil {
		t.Fatalf("find nodes with tombstones: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row including tombstones, got %d", len(rows))
	}
}

func TestUniquenessIndexRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertUnique(ctx, "g1", "Person", "byEmail", "a@example.com", "p1"); err != nil {
		t.Fatalf("insert unique: %v", err)
	}
	nodeID, found, err := s.CheckUnique(ctx, "g1", "Person", "byEmail", "a@example.com")
	if err != nil {
		t.Fatalf("check unique: %v", err)
	}
	if !found || nodeID != "p1" {
		t.Fatalf("expected to find p1, got %q found=%v", nodeID, found)
	}

	if err := s.DeleteUnique(ctx, "g1", "Person", "byEmail", "a@example.com"); err != nil {
		t.Fatalf("delete unique: %v", err)
	}
	_, found, err = s.CheckUnique(ctx, "g1", "Person", "byEmail", "a@example.com")
	if err != nil {
		t.Fatalf("check unique after delete: %v", err)
	}
	if found {
		t.Fatalf("expected no match after delete")
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	wantErr := context.Canceled
	err := s.Transaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		if err := tx.InsertNode(ctx, "g1", backend.NodeRow{ID: "p1", Kind: "Person", CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected transaction to propagate fn's error, got %v", err)
	}

	if _, err := s.GetNode(ctx, "g1", "Person", "p1"); err == nil {
		t.Fatalf("expected rollback to discard the insert")
	}
}

func TestSchemaVersionActivePointerFlip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertSchema(ctx, backend.SchemaVersionRow{GraphID: "g1", Version: 1, Hash: "h1", Document: []byte("{}"), IsActive: true, GeneratedAt: "t1"}); err != nil {
		t.Fatalf("insert schema v1: %v", err)
	}
	if err := s.InsertSchema(ctx, backend.SchemaVersionRow{GraphID: "g1", Version: 2, Hash: "h2", Document: []byte("{}"), IsActive: false, GeneratedAt: "t2"}); err != nil {
		t.Fatalf("insert schema v2: %v", err)
	}
	if err := s.SetActiveSchema(ctx, "g1", 2); err != nil {
		t.Fatalf("set active schema: %v", err)
	}

	active, err := s.GetActiveSchema(ctx, "g1")
	if err != nil {
		t.Fatalf("get active schema: %v", err)
	}
	if active.Version != 2 {
		t.Fatalf("expected active version 2, got %d", active.Version)
	}
}
