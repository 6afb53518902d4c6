package pipeline

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/errs"
)

func TestCreateNodeAssignsIDAndProps(t *testing.T) {
	p := newTestPipeline(t)
	n := mustCreateNode(t, p, "Person", map[string]any{"email": "Ada@Example.com"})
	if n.ID == "" {
		t.Fatal("expected a generated id")
	}
	if n.Properties["email"] != "Ada@Example.com" {
		t.Fatalf("unexpected properties: %+v", n.Properties)
	}
}

func TestCreateNodeRejectsDuplicateUniqueKey(t *testing.T) {
	p := newTestPipeline(t)
	mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})

	_, err := p.CreateNode(context.Background(), CreateNodeInput{Kind: "Person", Props: map[string]any{"email": "ADA@EXAMPLE.COM"}})
	if !errs.IsKind(err, errs.Uniqueness) {
		t.Fatalf("expected a uniqueness error, got %v", err)
	}
}

func TestCreateNodeUniquenessSpansSubClasses(t *testing.T) {
	p := newTestPipeline(t)
	mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})

	_, err := p.CreateNode(context.Background(), CreateNodeInput{Kind: "Employee", Props: map[string]any{"email": "ada@example.com"}})
	if !errs.IsKind(err, errs.Uniqueness) {
		t.Fatalf("expected Employee's email to conflict with Person's, got %v", err)
	}
}

func TestCreateNodeRejectsDisjointKindCollision(t *testing.T) {
	p := newTestPipeline(t)
	person := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})

	_, err := p.CreateNode(context.Background(), CreateNodeInput{Kind: "Robot", ID: person.ID, Props: map[string]any{}})
	if !errs.IsKind(err, errs.Validation) {
		t.Fatalf("expected a disjointness validation error, got %v", err)
	}
}

func TestCreateNodeSyncsEmbeddings(t *testing.T) {
	p := newTestPipeline(t)
	n := mustCreateNode(t, p, "Person", map[string]any{
		"email":   "ada@example.com",
		"profile": map[string]any{"vector": []any{0.1, 0.2, 0.3}},
	})
	if n.ID == "" {
		t.Fatal("expected node to be created")
	}
	// An ill-shaped vector (wrong dimension) is silently skipped, not an error.
	_ = mustCreateNode(t, p, "Person", map[string]any{
		"email":   "grace@example.com",
		"profile": map[string]any{"vector": []any{0.1, 0.2}},
	})
}

func TestUpdateNodeMergesAndReconcilesUniqueness(t *testing.T) {
	p := newTestPipeline(t)
	n := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com", "name": "Ada"})

	updated, err := p.UpdateNode(context.Background(), UpdateNodeInput{
		Kind: "Person", ID: n.ID, Props: map[string]any{"email": "ada.lovelace@example.com"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Properties["name"] != "Ada" {
		t.Fatalf("expected merge to retain name, got %+v", updated.Properties)
	}
	if updated.Properties["email"] != "ada.lovelace@example.com" {
		t.Fatalf("expected email to change, got %+v", updated.Properties)
	}

	// The old key must no longer be reserved.
	other := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})
	if other.ID == n.ID {
		t.Fatal("expected a distinct node")
	}
}

func TestUpdateNodeRejectsSoftDeletedWithoutClearDeleted(t *testing.T) {
	p := newTestPipeline(t)
	n := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})
	if err := p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Person", ID: n.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := p.UpdateNode(context.Background(), UpdateNodeInput{Kind: "Person", ID: n.ID, Props: map[string]any{"name": "x"}})
	if !errs.IsKind(err, errs.NodeNotFound) {
		t.Fatalf("expected NodeNotFound, got %v", err)
	}

	resurrected, err := p.UpdateNode(context.Background(), UpdateNodeInput{
		Kind: "Person", ID: n.ID, Props: map[string]any{"name": "x"}, ClearDeleted: true,
	})
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	if resurrected.DeletedAt != nil {
		t.Fatalf("expected tombstone cleared, got %+v", resurrected)
	}
}

func TestDeleteNodeIsNoopWhenAlreadyGone(t *testing.T) {
	p := newTestPipeline(t)
	if err := p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Person", ID: "nope"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestDeleteNodeRestrictBlocksOnLiveEdge(t *testing.T) {
	p := newTestPipeline(t)
	robot := mustCreateNode(t, p, "Robot", map[string]any{})
	company := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})
	_, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "licensedBy", FromKind: "Robot", FromID: robot.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("create edge: %v", err)
	}

	err = p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Robot", ID: robot.ID})
	if !errs.IsKind(err, errs.RestrictedDelete) {
		t.Fatalf("expected RestrictedDelete, got %v", err)
	}
}

func TestDeleteNodeCascadesToConnectedEdges(t *testing.T) {
	p := newTestPipeline(t)
	person := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})
	company := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})
	edge, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("create edge: %v", err)
	}

	if err := p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Person", ID: person.ID}); err != nil {
		t.Fatalf("delete person: %v", err)
	}

	got, err := p.Backend.GetEdge(context.Background(), p.GraphID, "worksAt", edge.ID)
	if err != nil {
		t.Fatalf("get edge: %v", err)
	}
	if got.DeletedAt == nil {
		t.Fatal("expected cascading soft-delete of connected edge")
	}
}

func TestHardDeleteNodeRemovesRow(t *testing.T) {
	p := newTestPipeline(t)
	n := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})
	if err := p.HardDeleteNode(context.Background(), DeleteNodeInput{Kind: "Company", ID: n.ID}); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	row, err := p.Backend.GetNode(context.Background(), p.GraphID, "Company", n.ID)
	if err == nil && row != nil {
		t.Fatalf("expected row to be gone, got %+v", row)
	}
}
