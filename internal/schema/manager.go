package schema

import (
	"context"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
	"github.com/typegraph/tgcore/internal/hooks"
	"github.com/typegraph/tgcore/internal/ontology"
)

// Status is the outcome of EnsureSchema (§4.E).
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusUnchanged   Status = "unchanged"
	StatusMigrated    Status = "migrated"
	StatusPending     Status = "pending"
	StatusBreaking    Status = "breaking"
)

// StoredSchema is one version row as persisted by a VersionStore.
type StoredSchema struct {
	GraphID     string
	Version     int
	Hash        string
	Document    *Document
	Active      bool
	GeneratedAt string
}

// VersionStore persists schema version rows keyed by graph id, with
// exactly one version marked active per graph (§4.E). BackendStore
// implements this over a backend's schema_versions operations.
type VersionStore interface {
	GetActiveSchema(ctx context.Context, graphID string) (*StoredSchema, error)
	GetSchemaVersion(ctx context.Context, graphID string, version int) (*StoredSchema, error)
	InsertSchema(ctx context.Context, s *StoredSchema) error
	SetActiveSchema(ctx context.Context, graphID string, version int) error
}

// EnsureOptions controls how EnsureSchema resolves a detected diff.
type EnsureOptions struct {
	AutoMigrate      bool
	ThrowOnBreaking  bool
	GeneratedAt      string
	Hooks            hooks.Hooks
}

// EnsureResult reports what EnsureSchema did.
type EnsureResult struct {
	Status      Status
	Version     int
	FromVersion int
	Hash        string
	Diff        *Diff
}

// EnsureSchema drives the schema lifecycle state machine described in
// §4.E:
//
//	no active schema        -> insert version 1, mark active -> initialized
//	active exists, same hash -> unchanged
//	active exists, diff empty -> unchanged
//	diff safe,  autoMigrate  -> insert version N+1, flip active -> migrated
//	diff safe,  !autoMigrate -> pending (not persisted)
//	diff breaking, throwOnBreaking -> *errs.TypedError(Migration)
//	diff breaking, !throwOnBreaking -> breaking (not persisted)
func EnsureSchema(ctx context.Context, store VersionStore, graph *core.Graph, closures *ontology.Closures, opts EnsureOptions) (*EnsureResult, error) {
	doc := Serialize(graph, closures, 1, opts.GeneratedAt)
	hash := ContentHash(doc)

	active, err := store.GetActiveSchema(ctx, graph.ID)
	if err != nil {
		return nil, errs.DatabaseError("get active schema", err)
	}

	if active == nil {
		doc.Version = 1
		stored := &StoredSchema{GraphID: graph.ID, Version: 1, Hash: hash, Document: doc, Active: true, GeneratedAt: opts.GeneratedAt}
		if err := store.InsertSchema(ctx, stored); err != nil {
			return nil, errs.DatabaseError("insert schema", err)
		}
		if err := store.SetActiveSchema(ctx, graph.ID, 1); err != nil {
			return nil, errs.DatabaseError("set active schema", err)
		}
		return &EnsureResult{Status: StatusInitialized, Version: 1, Hash: hash}, nil
	}

	if active.Hash == hash {
		return &EnsureResult{Status: StatusUnchanged, Version: active.Version, Hash: hash}, nil
	}

	nextVersion := active.Version + 1
	candidate := Serialize(graph, closures, nextVersion, opts.GeneratedAt)
	diff := Compare(active.Document, candidate)

	if !diff.HasChanges {
		return &EnsureResult{Status: StatusUnchanged, Version: active.Version, Hash: active.Hash, Diff: diff}, nil
	}

	if diff.HasBreakingChanges {
		if opts.ThrowOnBreaking {
			return nil, errs.New(errs.Migration, "schema change is breaking",
				"graphId", graph.ID, "fromVersion", active.Version, "toVersion", nextVersion, "plan", diff.Plan)
		}
		return &EnsureResult{Status: StatusBreaking, Version: active.Version, FromVersion: active.Version, Hash: active.Hash, Diff: diff}, nil
	}

	if !opts.AutoMigrate {
		return &EnsureResult{Status: StatusPending, Version: active.Version, FromVersion: active.Version, Hash: active.Hash, Diff: diff}, nil
	}

	opts.Hooks.FireBeforeMigrate(ctx, graph.ID, active.Version, nextVersion)

	candidateHash := ContentHash(candidate)
	stored := &StoredSchema{
		GraphID: graph.ID, Version: nextVersion, Hash: candidateHash,
		Document: candidate, Active: true, GeneratedAt: opts.GeneratedAt,
	}
	if err := store.InsertSchema(ctx, stored); err != nil {
		return nil, errs.DatabaseError("insert schema", err)
	}
	if err := store.SetActiveSchema(ctx, graph.ID, nextVersion); err != nil {
		return nil, errs.DatabaseError("set active schema", err)
	}

	opts.Hooks.FireAfterMigrate(ctx, graph.ID, active.Version, nextVersion)

	return &EnsureResult{Status: StatusMigrated, Version: nextVersion, FromVersion: active.Version, Hash: candidateHash, Diff: diff}, nil
}

// RollbackSchema flips the active pointer back to an existing version
// without deleting any rows — schema versions are append-only (§4.E).
func RollbackSchema(ctx context.Context, store VersionStore, graphID string, targetVersion int) (*StoredSchema, error) {
	target, err := store.GetSchemaVersion(ctx, graphID, targetVersion)
	if err != nil {
		return nil, errs.DatabaseError("get schema version", err)
	}
	if target == nil {
		return nil, errs.New(errs.Migration, "rollback target version does not exist",
			"graphId", graphID, "version", targetVersion)
	}
	if err := store.SetActiveSchema(ctx, graphID, targetVersion); err != nil {
		return nil, errs.DatabaseError("set active schema", err)
	}
	return target, nil
}
