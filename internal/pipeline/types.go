// Package pipeline implements the constraint-checked write pipeline and
// collection runtime (§4.F): per-kind CRUD with validation, disjointness
// and uniqueness prechecks, cardinality-aware edge writes, batched
// writes over a batch validation cache, get-or-create helpers, and the
// import/export interchange format.
package pipeline

import (
	"time"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/hooks"
	"github.com/typegraph/tgcore/internal/registry"
)

// Node is the typed row returned by every node operation.
type Node struct {
	ID         string
	Kind       core.Kind
	Properties map[string]any
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ValidFrom  time.Time
	ValidTo    *time.Time
	DeletedAt  *time.Time
}

// Edge is the typed row returned by every edge operation.
type Edge struct {
	ID         string
	Kind       core.Kind
	FromKind   core.Kind
	FromID     string
	ToKind     core.Kind
	ToID       string
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ValidFrom  time.Time
	ValidTo    *time.Time
	DeletedAt  *time.Time
}

// CreateNodeInput is the input to CreateNode (§4.F.2).
type CreateNodeInput struct {
	Kind      core.Kind
	ID        string // optional; generated if empty
	Props     map[string]any
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// UpdateNodeInput is the input to UpdateNode (§4.F.3).
type UpdateNodeInput struct {
	Kind         core.Kind
	ID           string
	Props        map[string]any
	ClearDeleted bool
}

// DeleteNodeInput is the input to DeleteNode/HardDeleteNode (§4.F.4).
type DeleteNodeInput struct {
	Kind core.Kind
	ID   string
}

// CreateEdgeInput is the input to CreateEdge (§4.F.5).
type CreateEdgeInput struct {
	Kind     core.Kind
	ID       string
	FromKind core.Kind
	FromID   string
	ToKind   core.Kind
	ToID     string
	Props    map[string]any
	ValidTo  *time.Time
}

// Pipeline is the write pipeline bound to one graph, its registry, and
// a backend. One Pipeline instance is shared by every generated
// collection wrapper for that graph (§5 "Collection instances are
// memoized per (kind, backend)").
type Pipeline struct {
	GraphID  string
	Graph    *core.Graph
	Registry *registry.Registry
	Backend  backend.Backend
	Hooks    hooks.Hooks

	// Now returns the current instant; overridable in tests.
	Now func() time.Time
	// NewID generates a node/edge id when the caller doesn't supply one.
	NewID func() string
}

// New constructs a Pipeline. now and newID default to time.Now and a
// uuid-based generator when nil.
func New(graphID string, graph *core.Graph, reg *registry.Registry, be backend.Backend, h hooks.Hooks, now func() time.Time, newID func() string) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = defaultNewID
	}
	return &Pipeline{GraphID: graphID, Graph: graph, Registry: reg, Backend: be, Hooks: h, Now: now, NewID: newID}
}

func nodeRowToNode(kind core.Kind, r *backend.NodeRow) *Node {
	return &Node{
		ID: r.ID, Kind: kind, Properties: r.Properties, Version: r.Version,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, ValidTo: r.EndedAt, DeletedAt: r.DeletedAt,
		ValidFrom: r.CreatedAt,
	}
}

func edgeRowToEdge(kind core.Kind, r *backend.EdgeRow) *Edge {
	return &Edge{
		ID: r.ID, Kind: kind, FromKind: core.Kind(r.FromKind), FromID: r.FromID,
		ToKind: core.Kind(r.ToKind), ToID: r.ToID, Properties: r.Properties,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, ValidFrom: r.CreatedAt,
		ValidTo: r.EndedAt, DeletedAt: r.DeletedAt,
	}
}
