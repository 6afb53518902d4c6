package pipeline

import (
	"context"
	"testing"

	"github.com/typegraph/tgcore/internal/core"
)

func TestExportThenImportRoundTrips(t *testing.T) {
	src := newTestPipeline(t)
	person, company := mustCreatePersonAndCompany(t, src)
	if _, err := src.CreateEdge(context.Background(), CreateEdgeInput{
		Kind: "worksAt", FromKind: "Person", FromID: person.ID, ToKind: "Company", ToID: company.ID,
	}); err != nil {
		t.Fatalf("create edge: %v", err)
	}

	env, err := src.Export(context.Background(), ExportOptions{
		NodeKinds: []core.Kind{"Person", "Company"}, EdgeKinds: []core.Kind{"worksAt"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(env.Nodes) != 2 || len(env.Edges) != 1 {
		t.Fatalf("unexpected envelope shape: %+v", env)
	}

	dst := newTestPipeline(t)
	result, err := dst.Import(context.Background(), *env, ImportOptions{VerifyEdgeEndpoints: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.NodesCreated != 2 || result.EdgesCreated != 1 {
		t.Fatalf("unexpected import result: %+v", result)
	}

	got, err := dst.Backend.GetNode(context.Background(), dst.GraphID, "Person", person.ID)
	if err != nil || got == nil {
		t.Fatalf("expected imported person to be present, err=%v got=%v", err, got)
	}
}

func TestImportSkipsConflictingIDByDefault(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})

	result, err := p.Import(context.Background(), Envelope{
		Nodes: []ImportNode{{Kind: "Company", ID: existing.ID, Props: map[string]any{"name": "Acme Renamed"}}},
	}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.NodesSkipped != 1 {
		t.Fatalf("expected the conflicting record to be skipped, got %+v", result)
	}

	row, err := p.Backend.GetNode(context.Background(), p.GraphID, "Company", existing.ID)
	if err != nil || row.Properties["name"] != "Acme" {
		t.Fatalf("expected original row untouched, got %+v err=%v", row, err)
	}
}

func TestImportUpdatesConflictingIDWhenRequested(t *testing.T) {
	p := newTestPipeline(t)
	existing := mustCreateNode(t, p, "Company", map[string]any{"name": "Acme"})

	result, err := p.Import(context.Background(), Envelope{
		Nodes: []ImportNode{{Kind: "Company", ID: existing.ID, Props: map[string]any{"name": "Acme Renamed"}}},
	}, ImportOptions{OnConflict: ConflictUpdate})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.NodesUpdated != 1 {
		t.Fatalf("expected the record to be updated, got %+v", result)
	}
}

func TestImportVerifiesEdgeEndpointsAgainstStore(t *testing.T) {
	p := newTestPipeline(t)
	result, err := p.Import(context.Background(), Envelope{
		Edges: []ImportEdge{{Kind: "worksAt", FromKind: "Person", FromID: "ghost", ToKind: "Company", ToID: "ghost"}},
	}, ImportOptions{VerifyEdgeEndpoints: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.EdgesSkipped != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected the edge to be skipped for a missing endpoint, got %+v", result)
	}
}
