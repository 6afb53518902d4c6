package core

import (
	"testing"

	"github.com/typegraph/tgcore/internal/errs"
)

// fakeSchema is the minimal Schema stub used across these tests; it never
// exercises Validate (that's the pipeline's concern), only Describe, which
// is all DefineNode/DefineEdge's reserved-property check needs.
type fakeSchema struct {
	properties map[string]any
}

func (f fakeSchema) Validate(input map[string]any) (map[string]any, []errs.Issue) {
	return input, nil
}

func (f fakeSchema) Describe() map[string]any {
	return map[string]any{"properties": f.properties}
}

func TestDefineNode(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		opts    NodeOpts
		wantErr bool
	}{
		{name: "bare kind", kind: "Person", opts: NodeOpts{}},
		{name: "empty name rejected", kind: "", opts: NodeOpts{}, wantErr: true},
		{
			name: "reserved property name rejected",
			kind: "Person",
			opts: NodeOpts{Schema: fakeSchema{properties: map[string]any{"id": struct{}{}}}},
			wantErr: true,
		},
		{
			name: "uniqueness constraint missing name rejected",
			kind: "Person",
			opts: NodeOpts{Unique: []UniquenessConstraint{{Fields: []string{"email"}}}},
			wantErr: true,
		},
		{
			name: "uniqueness constraint missing fields rejected",
			kind: "Person",
			opts: NodeOpts{Unique: []UniquenessConstraint{{Name: "personEmail"}}},
			wantErr: true,
		},
		{
			name: "defaults fill in onDelete restrict",
			kind: "Person",
			opts: NodeOpts{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := DefineNode(tt.kind, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DefineNode(%q) = nil error, want error", tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("DefineNode(%q) = %v, want no error", tt.kind, err)
			}
			if reg.OnDelete == "" {
				t.Fatalf("OnDelete left blank, want a default")
			}
		})
	}
}

func TestDefineNodeDefaultOnDelete(t *testing.T) {
	reg, err := DefineNode("Person", NodeOpts{})
	if err != nil {
		t.Fatalf("DefineNode: %v", err)
	}
	if reg.OnDelete != OnDeleteRestrict {
		t.Fatalf("OnDelete = %q, want %q", reg.OnDelete, OnDeleteRestrict)
	}
}

func TestDefineEdgeRequiresFromTo(t *testing.T) {
	tests := []struct {
		name    string
		opts    EdgeOpts
		wantErr bool
	}{
		{name: "missing from", opts: EdgeOpts{To: []string{"Company"}}, wantErr: true},
		{name: "missing to", opts: EdgeOpts{From: []string{"Person"}}, wantErr: true},
		{name: "both present", opts: EdgeOpts{From: []string{"Person"}, To: []string{"Company"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefineEdge("worksAt", tt.opts)
			if tt.wantErr != (err != nil) {
				t.Fatalf("DefineEdge error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefineEdgeDefaults(t *testing.T) {
	reg, err := DefineEdge("worksAt", EdgeOpts{From: []string{"Person"}, To: []string{"Company"}})
	if err != nil {
		t.Fatalf("DefineEdge: %v", err)
	}
	if reg.Cardinality != CardinalityMany {
		t.Fatalf("Cardinality = %q, want %q", reg.Cardinality, CardinalityMany)
	}
	if reg.EndpointExistence != EndpointNotDeleted {
		t.Fatalf("EndpointExistence = %q, want %q", reg.EndpointExistence, EndpointNotDeleted)
	}
}

func TestDefineEdgeRejectsReservedProperty(t *testing.T) {
	_, err := DefineEdge("worksAt", EdgeOpts{
		From:   []string{"Person"},
		To:     []string{"Company"},
		Schema: fakeSchema{properties: map[string]any{"fromId": struct{}{}}},
	})
	if err == nil {
		t.Fatal("expected error for reserved edge property fromId")
	}
}

func TestDefineGraphRejectsUnknownEndpointKind(t *testing.T) {
	person, err := DefineNode("Person", NodeOpts{})
	if err != nil {
		t.Fatalf("DefineNode: %v", err)
	}
	worksAt, err := DefineEdge("worksAt", EdgeOpts{From: []string{"Person"}, To: []string{"Company"}})
	if err != nil {
		t.Fatalf("DefineEdge: %v", err)
	}
	_, err = DefineGraph(GraphOpts{
		ID:    "g1",
		Nodes: []*NodeKindReg{person},
		Edges: []*EdgeKindReg{worksAt},
	})
	if err == nil {
		t.Fatal("expected error for edge referencing undeclared Company node kind")
	}
}

func TestDefineGraphRejectsDuplicateKinds(t *testing.T) {
	p1, _ := DefineNode("Person", NodeOpts{})
	p2, _ := DefineNode("Person", NodeOpts{Description: "dup"})
	_, err := DefineGraph(GraphOpts{ID: "g1", Nodes: []*NodeKindReg{p1, p2}})
	if err == nil {
		t.Fatal("expected error for duplicate node kind registration")
	}
}

func TestDefineGraphMergesBuiltinMetaEdges(t *testing.T) {
	person, _ := DefineNode("Person", NodeOpts{})
	g, err := DefineGraph(GraphOpts{ID: "g1", Nodes: []*NodeKindReg{person}})
	if err != nil {
		t.Fatalf("DefineGraph: %v", err)
	}
	if _, ok := g.MetaEdges["subClassOf"]; !ok {
		t.Fatal("expected built-in subClassOf meta-edge to be present")
	}
	if len(g.MetaEdges) < len(BuiltinMetaEdges) {
		t.Fatalf("got %d meta-edges, want at least %d builtins", len(g.MetaEdges), len(BuiltinMetaEdges))
	}
}

func TestDefineGraphCustomMetaEdgeOverridesBuiltin(t *testing.T) {
	person, _ := DefineNode("Person", NodeOpts{})
	custom, err := MetaEdge("subClassOf", MetaEdgeOpts{Description: "overridden"})
	if err != nil {
		t.Fatalf("MetaEdge: %v", err)
	}
	g, err := DefineGraph(GraphOpts{ID: "g1", Nodes: []*NodeKindReg{person}, MetaEdges: []*MetaEdgeReg{custom}})
	if err != nil {
		t.Fatalf("DefineGraph: %v", err)
	}
	if g.MetaEdges["subClassOf"].Description != "overridden" {
		t.Fatalf("custom meta-edge did not override the builtin")
	}
}

func TestDefineGraphRejectsOntologyWithUndeclaredMetaEdge(t *testing.T) {
	person, _ := DefineNode("Person", NodeOpts{})
	_, err := DefineGraph(GraphOpts{
		ID:    "g1",
		Nodes: []*NodeKindReg{person},
		Ontology: []OntologyRelation{
			{MetaEdge: "notDeclared", From: "Person", To: "Person"},
		},
	})
	if err == nil {
		t.Fatal("expected error for ontology relation using an undeclared meta-edge")
	}
}

func TestDefineGraphDefaults(t *testing.T) {
	person, _ := DefineNode("Person", NodeOpts{})
	g, err := DefineGraph(GraphOpts{ID: "g1", Nodes: []*NodeKindReg{person}})
	if err != nil {
		t.Fatalf("DefineGraph: %v", err)
	}
	if g.Defaults.OnNodeDelete != OnDeleteRestrict {
		t.Fatalf("default OnNodeDelete = %q, want %q", g.Defaults.OnNodeDelete, OnDeleteRestrict)
	}
	if g.Defaults.TemporalMode != TemporalCurrent {
		t.Fatalf("default TemporalMode = %q, want %q", g.Defaults.TemporalMode, TemporalCurrent)
	}
}

func TestIsIRI(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"http://example.org/Thing", true},
		{"https://example.org/Thing", true},
		{"Person", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsIRI(tt.s); got != tt.want {
			t.Errorf("IsIRI(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestPredicateMatches(t *testing.T) {
	tests := []struct {
		name      string
		predicate Predicate
		props     map[string]any
		want      bool
	}{
		{name: "empty predicate always matches", predicate: nil, props: map[string]any{}, want: true},
		{
			name:      "isNull matches absent field",
			predicate: Predicate{{Field: "endedAt", Op: OpIsNull}},
			props:     map[string]any{},
			want:      true,
		},
		{
			name:      "isNull matches explicit nil",
			predicate: Predicate{{Field: "endedAt", Op: OpIsNull}},
			props:     map[string]any{"endedAt": nil},
			want:      true,
		},
		{
			name:      "isNull fails when field is present",
			predicate: Predicate{{Field: "endedAt", Op: OpIsNull}},
			props:     map[string]any{"endedAt": "2026-01-01"},
			want:      false,
		},
		{
			name:      "isNotNull requires the field present and non-nil",
			predicate: Predicate{{Field: "endedAt", Op: OpIsNotNull}},
			props:     map[string]any{"endedAt": "2026-01-01"},
			want:      true,
		},
		{
			name: "AND of clauses requires every clause to match",
			predicate: Predicate{
				{Field: "endedAt", Op: OpIsNull},
				{Field: "email", Op: OpIsNotNull},
			},
			props: map[string]any{"email": "a@example.com"},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.predicate.Matches(tt.props); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefineGraphRejectsEmptyID(t *testing.T) {
	_, err := DefineGraph(GraphOpts{})
	if err == nil {
		t.Fatal("expected error for empty graph id")
	}
	if !errs.IsKind(err, errs.Configuration) {
		t.Fatalf("expected a Configuration error, got %v", err)
	}
}
