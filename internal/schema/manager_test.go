package schema

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/hooks"
	"github.com/typegraph/tgcore/internal/ontology"
)

type memStore struct {
	byVersion map[int]*StoredSchema
	active    int
}

func newMemStore() *memStore { return &memStore{byVersion: map[int]*StoredSchema{}} }

func (m *memStore) GetActiveSchema(ctx context.Context, graphID string) (*StoredSchema, error) {
	if m.active == 0 {
		return nil, nil
	}
	return m.byVersion[m.active], nil
}

func (m *memStore) GetSchemaVersion(ctx context.Context, graphID string, version int) (*StoredSchema, error) {
	return m.byVersion[version], nil
}

func (m *memStore) InsertSchema(ctx context.Context, s *StoredSchema) error {
	cp := *s
	m.byVersion[s.Version] = &cp
	return nil
}

func (m *memStore) SetActiveSchema(ctx context.Context, graphID string, version int) error {
	m.active = version
	return nil
}

func TestEnsureSchemaInitializesWhenNoneActive(t *testing.T) {
	store := newMemStore()
	g := graphWith("Person")
	c := ontology.Build(nil, core.BuiltinMetaEdges)

	res, err := EnsureSchema(context.Background(), store, g, c, EnsureOptions{GeneratedAt: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusInitialized || res.Version != 1 {
		t.Fatalf("expected initialized v1, got %+v", res)
	}
}

func TestEnsureSchemaUnchangedWhenHashMatches(t *testing.T) {
	store := newMemStore()
	g := graphWith("Person")
	c := ontology.Build(nil, core.BuiltinMetaEdges)

	if _, err := EnsureSchema(context.Background(), store, g, c, EnsureOptions{GeneratedAt: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := EnsureSchema(context.Background(), store, g, c, EnsureOptions{GeneratedAt: "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusUnchanged {
		t.Fatalf("expected unchanged, got %+v", res)
	}
}

func TestEnsureSchemaAutoMigratesSafeChange(t *testing.T) {
	store := newMemStore()
	c := ontology.Build(nil, core.BuiltinMetaEdges)

	g1 := graphWith("Person")
	if _, err := EnsureSchema(context.Background(), store, g1, c, EnsureOptions{GeneratedAt: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g2 := graphWith("Person", "Company")
	var sawBefore, sawAfter bool
	h := hooks.Hooks{
		OnBeforeMigrate: func(ctx context.Context, graphID string, from, to int) { sawBefore = true },
		OnAfterMigrate:  func(ctx context.Context, graphID string, from, to int) { sawAfter = true },
	}
	res, err := EnsureSchema(context.Background(), store, g2, c, EnsureOptions{GeneratedAt: "t2", AutoMigrate: true, Hooks: h})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusMigrated || res.Version != 2 {
		t.Fatalf("expected migrated v2, got %+v", res)
	}
	if !sawBefore || !sawAfter {
		t.Fatalf("expected before/after migrate hooks to fire")
	}
}

func TestEnsureSchemaPendingWithoutAutoMigrate(t *testing.T) {
	store := newMemStore()
	c := ontology.Build(nil, core.BuiltinMetaEdges)

	g1 := graphWith("Person")
	if _, err := EnsureSchema(context.Background(), store, g1, c, EnsureOptions{GeneratedAt: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g2 := graphWith("Person", "Company")
	res, err := EnsureSchema(context.Background(), store, g2, c, EnsureOptions{GeneratedAt: "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("expected pending, got %+v", res)
	}
}

func TestRollbackSchemaToUnknownVersionFails(t *testing.T) {
	store := newMemStore()
	g := graphWith("Person")
	c := ontology.Build(nil, core.BuiltinMetaEdges)
	if _, err := EnsureSchema(context.Background(), store, g, c, EnsureOptions{GeneratedAt: "t1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := RollbackSchema(context.Background(), store, g.ID, 99); err == nil {
		t.Fatalf("expected error rolling back to nonexistent version")
	}
}
