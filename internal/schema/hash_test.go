package schema

import (
	"testing"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/ontology"
)

func graphWith(names ...string) *core.Graph {
	nodes := map[core.Kind]*core.NodeKindReg{}
	for _, name := range names {
		nodes[core.Kind(name)] = &core.NodeKindReg{Name: core.Kind(name)}
	}
	return &core.Graph{ID: "g1", Nodes: nodes, Edges: map[core.Kind]*core.EdgeKindReg{}}
}

func TestHashDeterministicAndFormat(t *testing.T) {
	g := graphWith("Person")
	c := ontology.Build(nil, core.BuiltinMetaEdges)
	doc := Serialize(g, c, 1, "2026-01-01T00:00:00Z")

	h1 := ContentHash(doc)
	h2 := ContentHash(doc)
	if h1 != h2 {
		t.Fatalf("hash must be deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%s)", len(h1), h1)
	}
}

func TestHashExcludesVersionAndTimestamp(t *testing.T) {
	g := graphWith("Person")
	c := ontology.Build(nil, core.BuiltinMetaEdges)
	d1 := Serialize(g, c, 1, "2026-01-01T00:00:00Z")
	d2 := Serialize(g, c, 2, "2027-05-05T00:00:00Z")

	if ContentHash(d1) != ContentHash(d2) {
		t.Fatalf("bumping version/timestamp alone must not change the hash")
	}
}

func TestHashChangesWithContent(t *testing.T) {
	g1 := graphWith("Person")
	g2 := graphWith("Person", "Company")
	c := ontology.Build(nil, core.BuiltinMetaEdges)
	d1 := Serialize(g1, c, 1, "t")
	d2 := Serialize(g2, c, 1, "t")

	if ContentHash(d1) == ContentHash(d2) {
		t.Fatalf("adding a node kind must change the hash")
	}
}
