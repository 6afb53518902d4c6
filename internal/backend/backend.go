// Package backend declares the storage contract the write pipeline
// depends on (§6). Two concrete backends live alongside it —
// sqlitebackend for embedded/single-writer use and doltbackend for a
// versioned relational store — but nothing in this package imports
// either so the contract stays backend-agnostic, mirroring the way
// beads' internal/storage.Storage sits above internal/storage/sqlite
// and internal/storage/dolt.
package backend

import (
	"context"
	"time"
)

// Capabilities advertises what a backend can do so the pipeline can
// adapt (§6: "capabilities.transactions: bool").
type Capabilities struct {
	Transactions bool
}

// NodeRow is the backend's row shape for a node instance (§6: "property
// blobs are JSON, timestamps are ISO-8601 strings" — represented here as
// time.Time/map[string]any; the concrete backend owns the wire
// encoding).
type NodeRow struct {
	ID         string
	Kind       string
	Properties map[string]any
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	EndedAt    *time.Time
	DeletedAt  *time.Time
}

// EdgeRow is the backend's row shape for an edge instance.
type EdgeRow struct {
	ID         string
	Kind       string
	FromKind   string
	FromID     string
	ToKind     string
	ToID       string
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
	EndedAt    *time.Time
	DeletedAt  *time.Time
}

// NodeFilter narrows findNodesByKind/countNodesByKind (§4.F, GLOSSARY
// temporal modes).
type NodeFilter struct {
	IncludeEnded      bool
	IncludeTombstones bool
	AsOf              *time.Time
	Limit             int
	Offset            int
}

// EdgeFilter narrows edge lookups analogously.
type EdgeFilter struct {
	IncludeEnded      bool
	IncludeTombstones bool
	AsOf              *time.Time
	Limit             int
	Offset            int
}

// SchemaVersionRow is the backend's row shape for a schema-versions
// table entry (§6 "Persistent state layout").
type SchemaVersionRow struct {
	GraphID     string
	Version     int
	Hash        string
	Document    []byte // canonical JSON document
	IsActive    bool
	GeneratedAt string
}

// Tx is the transaction-scoped subset of Backend a caller receives
// inside Transaction(fn) (§5 "Transactions"). It exposes every
// operation Backend does except opening a nested transaction.
type Tx interface {
	Ops
}

// Ops is every storage primitive the pipeline calls, shared by Backend
// and Tx (§6 "Backend contract (consumed)").
type Ops interface {
	// Node operations.
	InsertNode(ctx context.Context, graphID string, row NodeRow) error
	// UpdateNode replaces the stored properties with properties (callers
	// merge beforehand), bumps the node's monotonic version
	// (§3 "monotonic version, incremented per update"), and — when
	// clearDeleted is set — clears the tombstone so a resurrect actually
	// resurrects (§4.F.3 step 4).
	UpdateNode(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time, clearDeleted bool) error
	DeleteNode(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error
	HardDeleteNode(ctx context.Context, graphID, kind, id string) error
	GetNode(ctx context.Context, graphID, kind, id string) (*NodeRow, error)
	GetNodes(ctx context.Context, graphID, kind string, ids []string) ([]NodeRow, error)
	FindNodesByKind(ctx context.Context, graphID, kind string, filter NodeFilter) ([]NodeRow, error)
	CountNodesByKind(ctx context.Context, graphID, kind string, filter NodeFilter) (int, error)

	// Edge operations.
	InsertEdge(ctx context.Context, graphID string, row EdgeRow) error
	UpdateEdge(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time) error
	DeleteEdge(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error
	HardDeleteEdge(ctx context.Context, graphID, kind, id string) error
	GetEdge(ctx context.Context, graphID, kind, id string) (*EdgeRow, error)
	FindEdgesByKind(ctx context.Context, graphID, kind string, filter EdgeFilter) ([]EdgeRow, error)
	CountEdgesFrom(ctx context.Context, graphID, kind, fromKind, fromID string) (int, error)
	EdgeExistsBetween(ctx context.Context, graphID, kind, fromKind, fromID, toKind, toID string) (bool, error)
	FindEdgesConnectedTo(ctx context.Context, graphID, nodeKind, nodeID string, filter EdgeFilter) ([]EdgeRow, error)

	// Uniqueness operations. key is the precomputed, collation-normalized
	// composite key (§4.F.2 step 6).
	CheckUnique(ctx context.Context, graphID, kind, constraintName, key string) (nodeID string, found bool, err error)
	InsertUnique(ctx context.Context, graphID, kind, constraintName, key, nodeID string) error
	DeleteUnique(ctx context.Context, graphID, kind, constraintName, key string) error
	FindByConstraint(ctx context.Context, graphID, kind, constraintName, key string) (*NodeRow, error)

	// Embedding operations (§4.F.2 step 9).
	UpsertEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string, vector []float32) error
	DeleteEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string) error

	// Schema operations back schema.VersionStore.
	GetActiveSchema(ctx context.Context, graphID string) (*SchemaVersionRow, error)
	GetSchemaVersion(ctx context.Context, graphID string, version int) (*SchemaVersionRow, error)
	InsertSchema(ctx context.Context, row SchemaVersionRow) error
	SetActiveSchema(ctx context.Context, graphID string, version int) error

	// ClearGraph wipes every row for a graph id across every table
	// (§6 "bulk-graph ops clearGraph") — used by the conformance suite's
	// test fixtures.
	ClearGraph(ctx context.Context, graphID string) error
}

// Backend is the full storage contract the engine is built against
// (§6). Dialect identifies the concrete implementation for diagnostics
// and capability gating.
type Backend interface {
	Ops
	Dialect() string
	Capabilities() Capabilities
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
