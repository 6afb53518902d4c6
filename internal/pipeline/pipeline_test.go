package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/backend/sqlitebackend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/hooks"
	"github.com/typegraph/tgcore/internal/ontology"
	"github.com/typegraph/tgcore/internal/registry"
)

// testGraph declares Person (with an email-uniqueness constraint and a
// profile.vector embedding), Employee (a Person subclass), Robot (disjoint with
// Person), Company, and a worksAt edge with oneActive cardinality —
// enough surface to exercise every pipeline operation.
func testGraph(t *testing.T) *core.Graph {
	t.Helper()

	person, err := core.DefineNode("Person", core.NodeOpts{
		OnDelete: core.OnDeleteCascade,
		Unique: []core.UniquenessConstraint{
			{Name: "personEmail", Fields: []string{"email"}, Scope: core.ScopeKindWithSubClasses, Collation: core.CollationCaseInsensitive},
		},
		Embeddings: []core.EmbeddingField{{Path: "profile.vector", Dimension: 3}},
	})
	if err != nil {
		t.Fatalf("define Person: %v", err)
	}

	employee, err := core.DefineNode("Employee", core.NodeOpts{OnDelete: core.OnDeleteCascade})
	if err != nil {
		t.Fatalf("define Employee: %v", err)
	}

	robot, err := core.DefineNode("Robot", core.NodeOpts{OnDelete: core.OnDeleteRestrict})
	if err != nil {
		t.Fatalf("define Robot: %v", err)
	}

	company, err := core.DefineNode("Company", core.NodeOpts{
		OnDelete: core.OnDeleteRestrict,
		Unique: []core.UniquenessConstraint{
			{Name: "companyName", Fields: []string{"name"}, Scope: core.ScopeKind, Collation: core.CollationCaseInsensitive},
		},
	})
	if err != nil {
		t.Fatalf("define Company: %v", err)
	}

	worksAt, err := core.DefineEdge("worksAt", core.EdgeOpts{
		From:        []string{"Person"},
		To:          []string{"Company"},
		Cardinality: core.CardinalityOneActive,
	})
	if err != nil {
		t.Fatalf("define worksAt: %v", err)
	}

	licensedBy, err := core.DefineEdge("licensedBy", core.EdgeOpts{
		From:              []string{"Robot"},
		To:                []string{"Company"},
		Cardinality:       core.CardinalityUnique,
		EndpointExistence: core.EndpointCurrentlyValid,
	})
	if err != nil {
		t.Fatalf("define licensedBy: %v", err)
	}

	g, err := core.DefineGraph(core.GraphOpts{
		ID:    "test",
		Nodes: []*core.NodeKindReg{person, employee, robot, company},
		Edges: []*core.EdgeKindReg{worksAt, licensedBy},
		Ontology: []core.OntologyRelation{
			{MetaEdge: "subClassOf", From: "Employee", To: "Person"},
			{MetaEdge: "disjointWith", From: "Person", To: "Robot"},
		},
	})
	if err != nil {
		t.Fatalf("define graph: %v", err)
	}
	return g
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	store, err := sqlitebackend.Open(context.Background(), sqlitebackend.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	g := testGraph(t)
	closures := ontology.Build(g.Ontology, g.MetaEdges)
	reg := registry.New(g, closures)

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return tick }
	return New("test", g, reg, store, hooks.Hooks{}, now, nil)
}

func mustCreateNode(t *testing.T, p *Pipeline, kind core.Kind, props map[string]any) *Node {
	t.Helper()
	n, err := p.CreateNode(context.Background(), CreateNodeInput{Kind: kind, Props: props})
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	return n
}

var _ backend.Backend = (*sqlitebackend.Store)(nil)

func pastInstant() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}
