package pipeline

import (
	"context"
	"testing"
)

func TestGetOrCreateByConstraintCreatesWhenAbsent(t *testing.T) {
	p := newTestPipeline(t)
	n, result, err := p.GetOrCreateByConstraint(context.Background(), GetOrCreateByConstraintInput{
		Kind: "Person", ConstraintName: "personEmail", Props: map[string]any{"email": "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}
	if result != ResultCreated {
		t.Fatalf("expected created, got %s", result)
	}
	if n.Properties["email"] != "ada@example.com" {
		t.Fatalf("unexpected props: %+v", n.Properties)
	}
}

func TestGetOrCreateByConstraintFindsExisting(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com", "name": "Ada"})

	n, result, err := p.GetOrCreateByConstraint(context.Background(), GetOrCreateByConstraintInput{
		Kind: "Person", ConstraintName: "personEmail", Props: map[string]any{"email": "ADA@EXAMPLE.COM"},
	})
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}
	if result != ResultFound {
		t.Fatalf("expected found, got %s", result)
	}
	if n.ID != existing.ID {
		t.Fatalf("expected the same node, got %s vs %s", n.ID, existing.ID)
	}
	if n.Properties["name"] != "Ada" {
		t.Fatalf("expected found branch to leave props untouched, got %+v", n.Properties)
	}
}

func TestGetOrCreateByConstraintUpdatesWhenRequested(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com", "name": "Ada"})

	n, result, err := p.GetOrCreateByConstraint(context.Background(), GetOrCreateByConstraintInput{
		Kind: "Person", ConstraintName: "personEmail", Props: map[string]any{"email": "ada@example.com", "name": "Ada Lovelace"},
		IfExists: IfExistsUpdate,
	})
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}
	if result != ResultUpdated {
		t.Fatalf("expected updated, got %s", result)
	}
	if n.ID != existing.ID || n.Properties["name"] != "Ada Lovelace" {
		t.Fatalf("expected in-place update, got %+v", n)
	}
}

func TestGetOrCreateByConstraintResurrectsTombstoned(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Person", map[string]any{"email": "ada@example.com"})
	if err := p.DeleteNode(context.Background(), DeleteNodeInput{Kind: "Person", ID: existing.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	n, result, err := p.GetOrCreateByConstraint(context.Background(), GetOrCreateByConstraintInput{
		Kind: "Person", ConstraintName: "personEmail", Props: map[string]any{"email": "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}
	if result != ResultResurrected {
		t.Fatalf("expected resurrected, got %s", result)
	}
	if n.DeletedAt != nil {
		t.Fatalf("expected tombstone cleared, got %+v", n)
	}
}

func TestGetOrCreateByEndpointsCreatesThenFinds(t *testing.T) {
	p := newTestPipeline(t)
	person, company := mustCreatePersonAndCompany(t, p)

	_, result, err := p.GetOrCreateByEndpoints(context.Background(), GetOrCreateByEndpointsInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if result != ResultCreated {
		t.Fatalf("expected created, got %s", result)
	}

	_, result, err = p.GetOrCreateByEndpoints(context.Background(), GetOrCreateByEndpointsInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if result != ResultFound {
		t.Fatalf("expected found on the second call, got %s", result)
	}
}
