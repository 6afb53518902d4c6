package main

import (
	"github.com/typegraph/tgcore/internal/core"
)

// demoGraph defines a minimal Person/Company graph, enough to exercise
// node creation, a uniqueness constraint, and an edge kind end to end.
// It carries no Schema (nil passes through pipeline.validateSchema
// unvalidated), the same "bring your own validator" stance the core
// package documents for Schema (§1 scope).
func demoGraph() (*core.Graph, error) {
	person, err := core.DefineNode("Person", core.NodeOpts{
		Description: "A natural person.",
		OnDelete:    core.OnDeleteCascade,
		Unique: []core.UniquenessConstraint{
			{Name: "personEmail", Fields: []string{"email"}, Scope: core.ScopeKind, Collation: core.CollationCaseInsensitive},
		},
	})
	if err != nil {
		return nil, err
	}

	company, err := core.DefineNode("Company", core.NodeOpts{
		Description: "An employer.",
		OnDelete:    core.OnDeleteRestrict,
		Unique: []core.UniquenessConstraint{
			{Name: "companyName", Fields: []string{"name"}, Scope: core.ScopeKind, Collation: core.CollationCaseInsensitive},
		},
	})
	if err != nil {
		return nil, err
	}

	worksAt, err := core.DefineEdge("worksAt", core.EdgeOpts{
		Description: "Employment relationship.",
		From:        []string{"Person"},
		To:          []string{"Company"},
		Cardinality: core.CardinalityOneActive,
	})
	if err != nil {
		return nil, err
	}

	return core.DefineGraph(core.GraphOpts{
		ID:    demoGraphID,
		Nodes: []*core.NodeKindReg{person, company},
		Edges: []*core.EdgeKindReg{worksAt},
		Defaults: core.GraphDefaults{
			OnNodeDelete: core.OnDeleteRestrict,
			TemporalMode: core.TemporalCurrent,
		},
	})
}
