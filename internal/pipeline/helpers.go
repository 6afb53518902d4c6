package pipeline

import (
	"time"

	"github.com/typegraph/tgcore/internal/backend"
)

func backendNodeRow(id, kind string, props map[string]any, createdAt, updatedAt time.Time, validTo *time.Time) backend.NodeRow {
	return backend.NodeRow{
		ID: id, Kind: kind, Properties: props, Version: 1,
		CreatedAt: createdAt, UpdatedAt: updatedAt, EndedAt: validTo,
	}
}

func backendEdgeRow(id, kind, fromKind, fromID, toKind, toID string, props map[string]any, createdAt, updatedAt time.Time, validTo *time.Time) backend.EdgeRow {
	return backend.EdgeRow{
		ID: id, Kind: kind, FromKind: fromKind, FromID: fromID, ToKind: toKind, ToID: toID,
		Properties: props, CreatedAt: createdAt, UpdatedAt: updatedAt, EndedAt: validTo,
	}
}

func emptyEdgeFilter() backend.EdgeFilter {
	return backend.EdgeFilter{}
}
