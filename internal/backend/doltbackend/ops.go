package doltbackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ops struct {
	q queryer
}

func (s *Store) InsertNode(ctx context.Context, graphID string, row backend.NodeRow) error {
	return (&ops{q: s.db}).InsertNode(ctx, graphID, row)
}
func (s *Store) UpdateNode(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time, clearDeleted bool) error {
	return (&ops{q: s.db}).UpdateNode(ctx, graphID, kind, id, properties, updatedAt, clearDeleted)
}
func (s *Store) DeleteNode(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error {
	return (&ops{q: s.db}).DeleteNode(ctx, graphID, kind, id, deletedAt)
}
func (s *Store) HardDeleteNode(ctx context.Context, graphID, kind, id string) error {
	return (&ops{q: s.db}).HardDeleteNode(ctx, graphID, kind, id)
}
func (s *Store) GetNode(ctx context.Context, graphID, kind, id string) (*backend.NodeRow, error) {
	return (&ops{q: s.db}).GetNode(ctx, graphID, kind, id)
}
func (s *Store) GetNodes(ctx context.Context, graphID, kind string, ids []string) ([]backend.NodeRow, error) {
	return (&ops{q: s.db}).GetNodes(ctx, graphID, kind, ids)
}
func (s *Store) FindNodesByKind(ctx context.Context, graphID, kind string, filter backend.NodeFilter) ([]backend.NodeRow, error) {
	return (&ops{q: s.db}).FindNodesByKind(ctx, graphID, kind, filter)
}
func (s *Store) CountNodesByKind(ctx context.Context, graphID, kind string, filter backend.NodeFilter) (int, error) {
	return (&ops{q: s.db}).CountNodesByKind(ctx, graphID, kind, filter)
}
func (s *Store) InsertEdge(ctx context.Context, graphID string, row backend.EdgeRow) error {
	return (&ops{q: s.db}).InsertEdge(ctx, graphID, row)
}
func (s *Store) UpdateEdge(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time) error {
	return (&ops{q: s.db}).UpdateEdge(ctx, graphID, kind, id, properties, updatedAt)
}
func (s *Store) DeleteEdge(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error {
	return (&ops{q: s.db}).DeleteEdge(ctx, graphID, kind, id, deletedAt)
}
func (s *Store) HardDeleteEdge(ctx context.Context, graphID, kind, id string) error {
	return (&ops{q: s.db}).HardDeleteEdge(ctx, graphID, kind, id)
}
func (s *Store) GetEdge(ctx context.Context, graphID, kind, id string) (*backend.EdgeRow, error) {
	return (&ops{q: s.db}).GetEdge(ctx, graphID, kind, id)
}
func (s *Store) FindEdgesByKind(ctx context.Context, graphID, kind string, filter backend.EdgeFilter) ([]backend.EdgeRow, error) {
	return (&ops{q: s.db}).FindEdgesByKind(ctx, graphID, kind, filter)
}
func (s *Store) CountEdgesFrom(ctx context.Context, graphID, kind, fromKind, fromID string) (int, error) {
	return (&ops{q: s.db}).CountEdgesFrom(ctx, graphID, kind, fromKind, fromID)
}
func (s *Store) EdgeExistsBetween(ctx context.Context, graphID, kind, fromKind, fromID, toKind, toID string) (bool, error) {
	return (&ops{q: s.db}).EdgeExistsBetween(ctx, graphID, kind, fromKind, fromID, toKind, toID)
}
func (s *Store) FindEdgesConnectedTo(ctx context.Context, graphID, nodeKind, nodeID string, filter backend.EdgeFilter) ([]backend.EdgeRow, error) {
	return (&ops{q: s.db}).FindEdgesConnectedTo(ctx, graphID, nodeKind, nodeID, filter)
}
func (s *Store) CheckUnique(ctx context.Context, graphID, kind, constraintName, key string) (string, bool, error) {
	return (&ops{q: s.db}).CheckUnique(ctx, graphID, kind, constraintName, key)
}
func (s *Store) InsertUnique(ctx context.Context, graphID, kind, constraintName, key, nodeID string) error {
	return (&ops{q: s.db}).InsertUnique(ctx, graphID, kind, constraintName, key, nodeID)
}
func (s *Store) DeleteUnique(ctx context.Context, graphID, kind, constraintName, key string) error {
	return (&ops{q: s.db}).DeleteUnique(ctx, graphID, kind, constraintName, key)
}
func (s *Store) FindByConstraint(ctx context.Context, graphID, kind, constraintName, key string) (*backend.NodeRow, error) {
	return (&ops{q: s.db}).FindByConstraint(ctx, graphID, kind, constraintName, key)
}
func (s *Store) UpsertEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string, vector []float32) error {
	return (&ops{q: s.db}).UpsertEmbedding(ctx, graphID, kind, nodeID, fieldPath, vector)
}
func (s *Store) DeleteEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string) error {
	return (&ops{q: s.db}).DeleteEmbedding(ctx, graphID, kind, nodeID, fieldPath)
}
func (s *Store) GetActiveSchema(ctx context.Context, graphID string) (*backend.SchemaVersionRow, error) {
	return (&ops{q: s.db}).GetActiveSchema(ctx, graphID)
}
func (s *Store) GetSchemaVersion(ctx context.Context, graphID string, version int) (*backend.SchemaVersionRow, error) {
	return (&ops{q: s.db}).GetSchemaVersion(ctx, graphID, version)
}
func (s *Store) InsertSchema(ctx context.Context, row backend.SchemaVersionRow) error {
	return (&ops{q: s.db}).InsertSchema(ctx, row)
}
func (s *Store) SetActiveSchema(ctx context.Context, graphID string, version int) error {
	return (&ops{q: s.db}).SetActiveSchema(ctx, graphID, version)
}
func (s *Store) ClearGraph(ctx context.Context, graphID string) error {
	return (&ops{q: s.db}).ClearGraph(ctx, graphID)
}

func (o *ops) InsertNode(ctx context.Context, graphID string, row backend.NodeRow) error {
	props, err := json.Marshal(orEmpty(row.Properties))
	if err != nil {
		return fmt.Errorf("marshal node properties: %w", err)
	}
	version := row.Version
	if version == 0 {
		version = 1
	}
	_, err = o.q.ExecContext(ctx, `
		INSERT INTO nodes (graph_id, kind, id, properties, version, created_at, updated_at, ended_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		graphID, row.Kind, row.ID, string(props), version,
		formatTime(row.CreatedAt), formatTime(row.UpdatedAt), nullableTime(row.EndedAt), nullableTime(row.DeletedAt))
	return wrapDBError("insert node", err)
}

func (o *ops) UpdateNode(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time, clearDeleted bool) error {
	props, err := json.Marshal(orEmpty(properties))
	if err != nil {
		return fmt.Errorf("marshal node properties: %w", err)
	}
	_, err = o.q.ExecContext(ctx, `
		UPDATE nodes SET properties = ?, updated_at = ?, version = version + 1,
			deleted_at = CASE WHEN ? THEN NULL ELSE deleted_at END
		WHERE graph_id = ? AND kind = ? AND id = ?`,
		string(props), formatTime(updatedAt), boolToInt(clearDeleted), graphID, kind, id)
	return wrapDBError("update node", err)
}

func (o *ops) DeleteNode(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error {
	_, err := o.q.ExecContext(ctx, `
		UPDATE nodes SET deleted_at = ? WHERE graph_id = ? AND kind = ? AND id = ? AND deleted_at IS NULL`,
		formatTime(deletedAt), graphID, kind, id)
	return wrapDBError("soft delete node", err)
}

func (o *ops) HardDeleteNode(ctx context.Context, graphID, kind, id string) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM nodes WHERE graph_id = ? AND kind = ? AND id = ?`, graphID, kind, id)
	return wrapDBError("hard delete node", err)
}

func (o *ops) GetNode(ctx context.Context, graphID, kind, id string) (*backend.NodeRow, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, kind, properties, version, created_at, updated_at, ended_at, deleted_at
		FROM nodes WHERE graph_id = ? AND kind = ? AND id = ?`, graphID, kind, id)
	n, err := scanNode(row)
	if err != nil {
		return nil, wrapDBError("get node", err)
	}
	return n, nil
}

func (o *ops) GetNodes(ctx context.Context, graphID, kind string, ids []string) ([]backend.NodeRow, error) {
	out := make([]backend.NodeRow, 0, len(ids))
	for _, id := range ids {
		n, err := o.GetNode(ctx, graphID, kind, id)
		if err != nil {
			if isNotFoundErr(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (o *ops) FindNodesByKind(ctx context.Context, graphID, kind string, filter backend.NodeFilter) ([]backend.NodeRow, error) {
	query := `SELECT id, kind, properties, version, created_at, updated_at, ended_at, deleted_at FROM nodes WHERE graph_id = ? AND kind = ?`
	args := []any{graphID, kind}
	query += temporalClause(filter.IncludeEnded, filter.IncludeTombstones, filter.AsOf, &args)
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("find nodes by kind", err)
	}
	defer func() { _ = rows.Close() }()

	var out []backend.NodeRow
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, wrapDBError("scan node row", err)
		}
		out = append(out, *n)
	}
	return out, wrapDBError("iterate node rows", rows.Err())
}

func (o *ops) CountNodesByKind(ctx context.Context, graphID, kind string, filter backend.NodeFilter) (int, error) {
	query := `SELECT COUNT(*) FROM nodes WHERE graph_id = ? AND kind = ?`
	args := []any{graphID, kind}
	query += temporalClause(filter.IncludeEnded, filter.IncludeTombstones, filter.AsOf, &args)
	var count int
	err := o.q.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, wrapDBError("count nodes by kind", err)
}

func (o *ops) InsertEdge(ctx context.Context, graphID string, row backend.EdgeRow) error {
	props, err := json.Marshal(orEmpty(row.Properties))
	if err != nil {
		return fmt.Errorf("marshal edge properties: %w", err)
	}
	_, err = o.q.ExecContext(ctx, `
		INSERT INTO edges (graph_id, kind, id, from_kind, from_id, to_kind, to_id, properties, created_at, updated_at, ended_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		graphID, row.Kind, row.ID, row.FromKind, row.FromID, row.ToKind, row.ToID, string(props),
		formatTime(row.CreatedAt), formatTime(row.UpdatedAt), nullableTime(row.EndedAt), nullableTime(row.DeletedAt))
	return wrapDBError("insert edge", err)
}

func (o *ops) UpdateEdge(ctx context.Context, graphID, kind, id string, properties map[string]any, updatedAt time.Time) error {
	props, err := json.Marshal(orEmpty(properties))
	if err != nil {
		return fmt.Errorf("marshal edge properties: %w", err)
	}
	_, err = o.q.ExecContext(ctx, `
		UPDATE edges SET properties = ?, updated_at = ? WHERE graph_id = ? AND kind = ? AND id = ?`,
		string(props), formatTime(updatedAt), graphID, kind, id)
	return wrapDBError("update edge", err)
}

func (o *ops) DeleteEdge(ctx context.Context, graphID, kind, id string, deletedAt time.Time) error {
	_, err := o.q.ExecContext(ctx, `
		UPDATE edges SET deleted_at = ? WHERE graph_id = ? AND kind = ? AND id = ? AND deleted_at IS NULL`,
		formatTime(deletedAt), graphID, kind, id)
	return wrapDBError("soft delete edge", err)
}

func (o *ops) HardDeleteEdge(ctx context.Context, graphID, kind, id string) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM edges WHERE graph_id = ? AND kind = ? AND id = ?`, graphID, kind, id)
	return wrapDBError("hard delete edge", err)
}

func (o *ops) GetEdge(ctx context.Context, graphID, kind, id string) (*backend.EdgeRow, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, kind, from_kind, from_id, to_kind, to_id, properties, created_at, updated_at, ended_at, deleted_at
		FROM edges WHERE graph_id = ? AND kind = ? AND id = ?`, graphID, kind, id)
	e, err := scanEdge(row)
	if err != nil {
		return nil, wrapDBError("get edge", err)
	}
	return e, nil
}

func (o *ops) FindEdgesByKind(ctx context.Context, graphID, kind string, filter backend.EdgeFilter) ([]backend.EdgeRow, error) {
	query := `SELECT id, kind, from_kind, from_id, to_kind, to_id, properties, created_at, updated_at, ended_at, deleted_at
		FROM edges WHERE graph_id = ? AND kind = ?`
	args := []any{graphID, kind}
	query += temporalClause(filter.IncludeEnded, filter.IncludeTombstones, filter.AsOf, &args)
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("find edges by kind", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEdgeRowsAll(rows)
}

func (o *ops) CountEdgesFrom(ctx context.Context, graphID, kind, fromKind, fromID string) (int, error) {
	var count int
	err := o.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges
		WHERE graph_id = ? AND kind = ? AND from_kind = ? AND from_id = ? AND deleted_at IS NULL AND ended_at IS NULL`,
		graphID, kind, fromKind, fromID).Scan(&count)
	return count, wrapDBError("count edges from", err)
}

func (o *ops) EdgeExistsBetween(ctx context.Context, graphID, kind, fromKind, fromID, toKind, toID string) (bool, error) {
	var count int
	err := o.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges
		WHERE graph_id = ? AND kind = ? AND from_kind = ? AND from_id = ? AND to_kind = ? AND to_id = ?
		AND deleted_at IS NULL AND ended_at IS NULL`,
		graphID, kind, fromKind, fromID, toKind, toID).Scan(&count)
	if err != nil {
		return false, wrapDBError("edge exists between", err)
	}
	return count > 0, nil
}

func (o *ops) FindEdgesConnectedTo(ctx context.Context, graphID, nodeKind, nodeID string, filter backend.EdgeFilter) ([]backend.EdgeRow, error) {
	query := `SELECT id, kind, from_kind, from_id, to_kind, to_id, properties, created_at, updated_at, ended_at, deleted_at
		FROM edges WHERE graph_id = ? AND ((from_kind = ? AND from_id = ?) OR (to_kind = ? AND to_id = ?))`
	args := []any{graphID, nodeKind, nodeID, nodeKind, nodeID}
	query += temporalClause(filter.IncludeEnded, filter.IncludeTombstones, filter.AsOf, &args)
	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("find edges connected to", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEdgeRowsAll(rows)
}

func (o *ops) CheckUnique(ctx context.Context, graphID, kind, constraintName, key string) (string, bool, error) {
	var nodeID string
	err := o.q.QueryRowContext(ctx, `
		SELECT node_id FROM uniqueness_index WHERE graph_id = ? AND kind = ? AND constraint_name = ? AND key_value = ?`,
		graphID, kind, constraintName, key).Scan(&nodeID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBError("check unique", err)
	}
	return nodeID, true, nil
}

func (o *ops) InsertUnique(ctx context.Context, graphID, kind, constraintName, key, nodeID string) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO uniqueness_index (graph_id, kind, constraint_name, key_value, node_id) VALUES (?, ?, ?, ?, ?)`,
		graphID, kind, constraintName, key, nodeID)
	return wrapDBError("insert unique", err)
}

func (o *ops) DeleteUnique(ctx context.Context, graphID, kind, constraintName, key string) error {
	_, err := o.q.ExecContext(ctx, `
		DELETE FROM uniqueness_index WHERE graph_id = ? AND kind = ? AND constraint_name = ? AND key_value = ?`,
		graphID, kind, constraintName, key)
	return wrapDBError("delete unique", err)
}

func (o *ops) FindByConstraint(ctx context.Context, graphID, kind, constraintName, key string) (*backend.NodeRow, error) {
	nodeID, found, err := o.CheckUnique(ctx, graphID, kind, constraintName, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return o.GetNode(ctx, graphID, kind, nodeID)
}

func (o *ops) UpsertEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string, vector []float32) error {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding vector: %w", err)
	}
	_, err = o.q.ExecContext(ctx, `
		INSERT INTO embeddings (graph_id, kind, node_id, field_path, vector) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE vector = VALUES(vector)`,
		graphID, kind, nodeID, fieldPath, string(encoded))
	return wrapDBError("upsert embedding", err)
}

func (o *ops) DeleteEmbedding(ctx context.Context, graphID, kind, nodeID, fieldPath string) error {
	_, err := o.q.ExecContext(ctx, `
		DELETE FROM embeddings WHERE graph_id = ? AND kind = ? AND node_id = ? AND field_path = ?`,
		graphID, kind, nodeID, fieldPath)
	return wrapDBError("delete embedding", err)
}

func (o *ops) GetActiveSchema(ctx context.Context, graphID string) (*backend.SchemaVersionRow, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT graph_id, version, hash, document, is_active, generated_at
		FROM schema_versions WHERE graph_id = ? AND is_active = 1`, graphID)
	s, err := scanSchemaVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("get active schema", err)
	}
	return s, nil
}

func (o *ops) GetSchemaVersion(ctx context.Context, graphID string, version int) (*backend.SchemaVersionRow, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT graph_id, version, hash, document, is_active, generated_at
		FROM schema_versions WHERE graph_id = ? AND version = ?`, graphID, version)
	s, err := scanSchemaVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("get schema version", err)
	}
	return s, nil
}

func (o *ops) InsertSchema(ctx context.Context, row backend.SchemaVersionRow) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO schema_versions (graph_id, version, hash, document, is_active, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.GraphID, row.Version, row.Hash, string(row.Document), boolToInt(row.IsActive), row.GeneratedAt)
	return wrapDBError("insert schema version", err)
}

func (o *ops) SetActiveSchema(ctx context.Context, graphID string, version int) error {
	if _, err := o.q.ExecContext(ctx, `UPDATE schema_versions SET is_active = 0 WHERE graph_id = ?`, graphID); err != nil {
		return wrapDBError("clear active schema", err)
	}
	res, err := o.q.ExecContext(ctx, `UPDATE schema_versions SET is_active = 1 WHERE graph_id = ? AND version = ?`, graphID, version)
	if err != nil {
		return wrapDBError("set active schema", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrapDBError("set active schema", sql.ErrNoRows)
	}
	return nil
}

func (o *ops) ClearGraph(ctx context.Context, graphID string) error {
	for _, table := range []string{"nodes", "edges", "uniqueness_index", "embeddings", "schema_versions"} {
		if _, err := o.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE graph_id = ?`, table), graphID); err != nil {
			return wrapDBError("clear graph table "+table, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func isNotFoundErr(err error) bool {
	return err != nil && containsFold(err.Error(), "not found")
}

func containsFold(s, substr string) bool {
	ls, lsub := toLower(s), toLower(substr)
	return len(ls) >= len(lsub) && index(ls, lsub) >= 0
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func index(s, sub string) int {
	n := len(s) - len(sub)
	for i := 0; i <= n; i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
