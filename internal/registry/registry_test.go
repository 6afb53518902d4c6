package registry

import (
	"testing"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/ontology"
)

func build(t *testing.T, rels ...core.OntologyRelation) *Registry {
	t.Helper()
	closures := ontology.Build(rels, core.BuiltinMetaEdges)
	graph := &core.Graph{ID: "g", Nodes: map[core.Kind]*core.NodeKindReg{}, Edges: map[core.Kind]*core.EdgeKindReg{}}
	return New(graph, closures)
}

func TestIsAssignableToReflexive(t *testing.T) {
	r := build(t, core.OntologyRelation{MetaEdge: "subClassOf", From: "Dog", To: "Animal"})

	if !r.IsAssignableTo("Dog", "Dog") {
		t.Fatalf("every kind must be assignable to itself")
	}
	if !r.IsAssignableTo("Dog", "Animal") {
		t.Fatalf("Dog should be assignable to Animal")
	}
	if r.IsSubClassOf("Dog", "Dog") {
		t.Fatalf("subClassOf must be strict, never reflexive")
	}
	if r.IsPartOf("X", "X") {
		t.Fatalf("partOf must be strict, never reflexive")
	}
}

func TestDisjointOrderIndependentAndIrreflexive(t *testing.T) {
	r := build(t, core.OntologyRelation{MetaEdge: "disjointWith", From: "Person", To: "Organization"})

	if !r.AreDisjoint("Person", "Organization") || !r.AreDisjoint("Organization", "Person") {
		t.Fatalf("disjointness lookup must be order independent")
	}
	if r.AreDisjoint("Person", "Person") {
		t.Fatalf("a kind is never disjoint with itself")
	}
}

func TestExpandSubClasses(t *testing.T) {
	r := build(t,
		core.OntologyRelation{MetaEdge: "subClassOf", From: "Dog", To: "Animal"},
		core.OntologyRelation{MetaEdge: "subClassOf", From: "Puppy", To: "Dog"},
	)

	got := r.ExpandSubClasses("Animal")
	want := map[string]bool{"Animal": true, "Dog": true, "Puppy": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for _, k := range got {
		if !want[k] {
			t.Fatalf("unexpected kind %s in expansion", k)
		}
	}
}
