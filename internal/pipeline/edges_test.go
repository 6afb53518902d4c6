package pipeline

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/errs"
)

func mustCreatePersonAndCompany(t *testing.T, p *Pipeline) (person, company *Node) {
	t.Helper()
	person = mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})
	company = mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})
	return
}

func TestCreateEdgeRejectsUnassignableEndpoint(t *testing.T) {
	p := newTestPipeline(t)
	person, _ := mustCreatePersonAndCompany(t, p)

	_, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Person", ToID: person.ID,
	})
	if !errs.IsKind(err, errs.Validation) {
		t.Fatalf("expected a validation error for a disallowed target kind, got %v", err)
	}
}

func TestCreateEdgeRejectsMissingEndpoint(t *testing.T) {
	p := newTestPipeline(t)
	person, _ := mustCreatePersonAndCompany(t, p)

	_, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: "ghost",
	})
	if !errs.IsKind(err, errs.EndpointNotFound) {
		t.Fatalf("expected EndpointNotFound, got %v", err)
	}
}

func TestCreateEdgeEnforcesOneActiveCardinality(t *testing.T) {
	p := newTestPipeline(t)
	person, company := mustCreatePersonAndCompany(t, p)
	other := mustCreateNode(t, p, "Company", map[string]any{"name": "Globex"})

	_, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("first edge: %v", err)
	}

	_, err = p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: other.ID,
	})
	if !errs.IsKind(err, errs.Cardinality) {
		t.Fatalf("expected a cardinality error for a second active worksAt edge, got %v", err)
	}

	// A closed-out (already-ended) edge never counts toward oneActive.
	closed := pastInstant()
	_, err = p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: other.ID, ValidTo: &closed,
	})
	if err != nil {
		t.Fatalf("expected a closed-out edge to be allowed alongside an active one, got %v", err)
	}
}

func TestCreateEdgeEnforcesUniqueCardinality(t *testing.T) {
	p := newTestPipeline(t)
	robot := mustCreateNode(t, p, "Robot", map[string]any{})
	company := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})

	_, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "licensedBy", FromKind: "Robot", FromID: robot.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("first edge: %v", err)
	}
	_, err = p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "licensedBy", FromKind: "Robot", FromID: robot.ID, ToKind: "Company", ToID: company.ID,
	})
	if !errs.IsKind(err, errs.Cardinality) {
		t.Fatalf("expected a cardinality error for a duplicate licensedBy pair, got %v", err)
	}
}

func TestUpdateEdgeDoesNotRecheckCardinality(t *testing.T) {
	p := newTestPipeline(t)
	person, company := mustCreatePersonAndCompany(t, p)
	edge, err := p.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("create edge: %v", err)
	}

	updated, err := p.UpdateEdge(context.Background(), "worksAt", edge.ID, map[string]any{"title": "Engineer"})
	if err != nil {
		t.Fatalf("update edge: %v", err)
	}
	if updated.Properties["title"] != "Engineer" {
		t.Fatalf("expected merged props, got %+v", updated.Properties)
	}
}

func TestDeleteEdgeIsNoopWhenMissing(t *testing.T) {
	p := newTestPipeline(t)
	if err := p.DeleteEdge(context.Background(), "worksAt", "nope"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
