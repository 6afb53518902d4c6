package pipeline

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/errs"
)

func TestBulkInsertNodesStopsAtFirstError(t *testing.T) {
	p := newTestPipeline(t)
	err := p.BulkInsertNodes(context.Background(), []CreateNodeInput{
		{Kind: "Person", Props: map[string]any{"email": "ada@example.com"}},
		{Kind: "Person", Props: map[string]any{"email": "ADA@EXAMPLE.COM"}},
		{Kind: "Person", Props: map[string]any{"email": "grace@example.com"}},
	})
	if !errs.IsKind(err, errs.Uniqueness) {
		t.Fatalf("expected a uniqueness error on the second item, got %v", err)
	}

	rows, _ := p.Backend.FindNodesByKind(context.Background(), p.GraphID, "Person", backend.NodeFilter{})
	if len(rows) != 1 {
		t.Fatalf("expected exactly the first item to have been inserted, got %d rows", len(rows))
	}
}

func TestBulkCreateNodesReturnsPerItemResults(t *testing.T) {
	p := newTestPipeline(t)
	nodes, errsOut := p.BulkCreateNodes(context.Background(), []CreateNodeInput{
		{Kind: "Person", Props: map[string]any{"email": "ada@example.com"}},
		{Kind: "Person", Props: map[string]any{"email": "ADA@EXAMPLE.COM"}},
		{Kind: "Person", Props: map[string]any{"email": "grace@example.com"}},
	})
	if errsOut[0] != nil || nodes[0] == nil {
		t.Fatalf("expected item 0 to succeed, got %v", errsOut[0])
	}
	if !errs.IsKind(errsOut[1], errs.Uniqueness) {
		t.Fatalf("expected item 1 to conflict, got %v", errsOut[1])
	}
	if errsOut[2] != nil || nodes[2] == nil {
		t.Fatalf("expected item 2 to succeed, got %v", errsOut[2])
	}
}

func TestBulkUpsertNodesBucketsCreateAndUpdate(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})

	out, err := p.BulkUpsertNodes(context.Background(), "Company", []CreateNodeInput{
		{ID: existing.ID, Props: map[string]any{"name": "Acme Corp"}},
		{ID: "new-co", Props: map[string]any{"name": "Globex"}},
	})
	if err != nil {
		t.Fatalf("bulk upsert: %v", err)
	}
	if out[0].Properties["name"] != "Acme Corp" {
		t.Fatalf("expected existing row updated, got %+v", out[0])
	}
	if out[1].ID != "new-co" {
		t.Fatalf("expected new row created with the given id, got %+v", out[1])
	}
}

func TestBulkUpsertNodesResurrectsTombstoned(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})
	if err := p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Company", ID: existing.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	out, err := p.BulkUpsertNodes(context.Background(), "Company", []CreateNodeInput{
		{ID: existing.ID, Props: map[string]any{"name": "Acme"}},
	})
	if err != nil {
		t.Fatalf("bulk upsert: %v", err)
	}
	if out[0].DeletedAt != nil {
		t.Fatalf("expected tombstone cleared, got %+v", out[0])
	}
}

func TestBulkCreateEdgesSharesCacheAcrossBatch(t *testing.T) {
	p := newTestPipeline(t)
	person, company := mustCreatePersonAndCompany(t, p)
	other := mustCreateNode(t, p, "Company", map[string]any{"name": "Globex"})

	edges, errsOut := p.BulkCreateEdges(context.Background(), []CreateEdgeInput{
		{Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID},
		{Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: other.ID},
	})
	if errsOut[0] != nil || edges[0] == nil {
		t.Fatalf("expected first edge to succeed, got %v", errsOut[0])
	}
	if !errs.IsKind(errsOut[1], errs.Cardinality) {
		t.Fatalf("expected the second item to collide on oneActive within the same batch, got %v", errsOut[1])
	}
}
