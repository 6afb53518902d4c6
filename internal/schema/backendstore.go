package schema

import (
	"context"
	"encoding/json"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/errs"
)

// BackendStore adapts a backend.Ops' schema_versions operations (which
// move an opaque JSON blob) into the VersionStore EnsureSchema expects
// (which moves a parsed *Document), the same seam the write pipeline
// crosses for every other operation (§6 "Persistent state layout").
type BackendStore struct {
	Ops backend.Ops
}

// NewBackendStore wraps ops as a VersionStore.
func NewBackendStore(ops backend.Ops) *BackendStore {
	return &BackendStore{Ops: ops}
}

func (s *BackendStore) GetActiveSchema(ctx context.Context, graphID string) (*StoredSchema, error) {
	row, err := s.Ops.GetActiveSchema(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return rowToStored(row)
}

func (s *BackendStore) GetSchemaVersion(ctx context.Context, graphID string, version int) (*StoredSchema, error) {
	row, err := s.Ops.GetSchemaVersion(ctx, graphID, version)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return rowToStored(row)
}

func (s *BackendStore) InsertSchema(ctx context.Context, stored *StoredSchema) error {
	doc, err := json.Marshal(stored.Document)
	if err != nil {
		return errs.Wrap(errs.Migration, "encode schema document", err)
	}
	return s.Ops.InsertSchema(ctx, backend.SchemaVersionRow{
		GraphID: stored.GraphID, Version: stored.Version, Hash: stored.Hash,
		Document: doc, IsActive: stored.Active, GeneratedAt: stored.GeneratedAt,
	})
}

func (s *BackendStore) SetActiveSchema(ctx context.Context, graphID string, version int) error {
	return s.Ops.SetActiveSchema(ctx, graphID, version)
}

func rowToStored(row *backend.SchemaVersionRow) (*StoredSchema, error) {
	var doc Document
	if err := json.Unmarshal(row.Document, &doc); err != nil {
		return nil, errs.Wrap(errs.Migration, "decode schema document", err)
	}
	return &StoredSchema{
		GraphID: row.GraphID, Version: row.Version, Hash: row.Hash,
		Document: &doc, Active: row.IsActive, GeneratedAt: row.GeneratedAt,
	}, nil
}
