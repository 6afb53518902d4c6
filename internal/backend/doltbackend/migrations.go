package doltbackend

import (
	"context"
	"strings"
)

// runMigrations applies the fixed DDL list. CREATE INDEX has no
// IF NOT EXISTS in MySQL's dialect, so a "duplicate key name" error on
// a rerun is swallowed rather than treated as a migration failure.
func runMigrations(ctx context.Context, s *Store) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "duplicate key name") {
				continue
			}
			return wrapDBError("apply migration", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		graph_id   VARCHAR(191) NOT NULL,
		kind       VARCHAR(191) NOT NULL,
		id         VARCHAR(191) NOT NULL,
		properties LONGTEXT NOT NULL,
		version    INT NOT NULL DEFAULT 1,
		created_at VARCHAR(64) NOT NULL,
		updated_at VARCHAR(64) NOT NULL,
		ended_at   VARCHAR(64),
		deleted_at VARCHAR(64),
		PRIMARY KEY (graph_id, kind, id)
	)`,
	`CREATE INDEX idx_nodes_graph_kind ON nodes(graph_id, kind)`,
	`CREATE TABLE IF NOT EXISTS edges (
		graph_id   VARCHAR(191) NOT NULL,
		kind       VARCHAR(191) NOT NULL,
		id         VARCHAR(191) NOT NULL,
		from_kind  VARCHAR(191) NOT NULL,
		from_id    VARCHAR(191) NOT NULL,
		to_kind    VARCHAR(191) NOT NULL,
		to_id      VARCHAR(191) NOT NULL,
		properties LONGTEXT NOT NULL,
		created_at VARCHAR(64) NOT NULL,
		updated_at VARCHAR(64) NOT NULL,
		ended_at   VARCHAR(64),
		deleted_at VARCHAR(64),
		PRIMARY KEY (graph_id, kind, id)
	)`,
	`CREATE INDEX idx_edges_graph_kind ON edges(graph_id, kind)`,
	`CREATE INDEX idx_edges_from ON edges(graph_id, kind, from_kind, from_id)`,
	`CREATE INDEX idx_edges_to ON edges(graph_id, to_kind, to_id)`,
	`CREATE TABLE IF NOT EXISTS uniqueness_index (
		graph_id        VARCHAR(191) NOT NULL,
		kind            VARCHAR(191) NOT NULL,
		constraint_name VARCHAR(191) NOT NULL,
		key_value       VARCHAR(500) NOT NULL,
		node_id         VARCHAR(191) NOT NULL,
		PRIMARY KEY (graph_id, kind, constraint_name, key_value)
	)`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		graph_id   VARCHAR(191) NOT NULL,
		kind       VARCHAR(191) NOT NULL,
		node_id    VARCHAR(191) NOT NULL,
		field_path VARCHAR(191) NOT NULL,
		vector     LONGTEXT NOT NULL,
		PRIMARY KEY (graph_id, kind, node_id, field_path)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_versions (
		graph_id     VARCHAR(191) NOT NULL,
		version      INT NOT NULL,
		hash         VARCHAR(64) NOT NULL,
		document     LONGTEXT NOT NULL,
		is_active    TINYINT NOT NULL DEFAULT 0,
		generated_at VARCHAR(64) NOT NULL,
		PRIMARY KEY (graph_id, version)
	)`,
}
