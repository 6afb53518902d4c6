package sqlitebackend

import (
	"context"
	"database/sql"
)

// runMigrations applies the fixed set of DDL statements idempotently,
// the way beads' migrations.go runs a linear list of Go functions
// against the opened database rather than a separate migration tool.
func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return wrapDBError("apply migration", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		graph_id   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		id         TEXT NOT NULL,
		properties TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		ended_at   TEXT,
		deleted_at TEXT,
		PRIMARY KEY (graph_id, kind, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_graph_kind ON nodes(graph_id, kind)`,
	`CREATE TABLE IF NOT EXISTS edges (
		graph_id   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		id         TEXT NOT NULL,
		from_kind  TEXT NOT NULL,
		from_id    TEXT NOT NULL,
		to_kind    TEXT NOT NULL,
		to_id      TEXT NOT NULL,
		properties TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		ended_at   TEXT,
		deleted_at TEXT,
		PRIMARY KEY (graph_id, kind, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_graph_kind ON edges(graph_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(graph_id, kind, from_kind, from_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(graph_id, to_kind, to_id)`,
	`CREATE TABLE IF NOT EXISTS uniqueness_index (
		graph_id        TEXT NOT NULL,
		kind            TEXT NOT NULL,
		constraint_name TEXT NOT NULL,
		key             TEXT NOT NULL,
		node_id         TEXT NOT NULL,
		PRIMARY KEY (graph_id, kind, constraint_name, key)
	)`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		graph_id   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		node_id    TEXT NOT NULL,
		field_path TEXT NOT NULL,
		vector     TEXT NOT NULL,
		PRIMARY KEY (graph_id, kind, node_id, field_path)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_versions (
		graph_id     TEXT NOT NULL,
		version      INTEGER NOT NULL,
		hash         TEXT NOT NULL,
		document     TEXT NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 0,
		generated_at TEXT NOT NULL,
		PRIMARY KEY (graph_id, version)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_schema_versions_active
		ON schema_versions(graph_id) WHERE is_active = 1`,
}
