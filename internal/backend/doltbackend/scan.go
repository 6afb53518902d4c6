package doltbackend

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func unmarshalProps(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func scanNode(r rowScanner) (*backend.NodeRow, error) {
	var n backend.NodeRow
	var props, createdAt, updatedAt string
	var endedAt, deletedAt sql.NullString
	if err := r.Scan(&n.ID, &n.Kind, &props, &n.Version, &createdAt, &updatedAt, &endedAt, &deletedAt); err != nil {
		return nil, err
	}
	decoded, err := unmarshalProps(props)
	if err != nil {
		return nil, err
	}
	n.Properties = decoded

	ct, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	n.CreatedAt = ct
	ut, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	n.UpdatedAt = ut

	et, err := parseNullableTime(endedAt)
	if err != nil {
		return nil, err
	}
	n.EndedAt = et
	dt, err := parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}
	n.DeletedAt = dt
	return &n, nil
}

func scanEdge(r rowScanner) (*backend.EdgeRow, error) {
	var e backend.EdgeRow
	var props, createdAt, updatedAt string
	var endedAt, deletedAt sql.NullString
	if err := r.Scan(&e.ID, &e.Kind, &e.FromKind, &e.FromID, &e.ToKind, &e.ToID, &props, &createdAt, &updatedAt, &endedAt, &deletedAt); err != nil {
		return nil, err
	}
	decoded, err := unmarshalProps(props)
	if err != nil {
		return nil, err
	}
	e.Properties = decoded

	ct, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = ct
	ut, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = ut

	et, err := parseNullableTime(endedAt)
	if err != nil {
		return nil, err
	}
	e.EndedAt = et
	dt, err := parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}
	e.DeletedAt = dt
	return &e, nil
}

func scanEdgeRowsAll(rows *sql.Rows) ([]backend.EdgeRow, error) {
	var out []backend.EdgeRow
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, wrapDBError("scan edge row", err)
		}
		out = append(out, *e)
	}
	return out, wrapDBError("iterate edge rows", rows.Err())
}

func scanSchemaVersion(r rowScanner) (*backend.SchemaVersionRow, error) {
	var s backend.SchemaVersionRow
	var isActive int
	var document string
	if err := r.Scan(&s.GraphID, &s.Version, &s.Hash, &document, &isActive, &s.GeneratedAt); err != nil {
		return nil, err
	}
	s.Document = []byte(document)
	s.IsActive = isActive != 0
	return &s, nil
}

func temporalClause(includeEnded, includeTombstones bool, asOf *time.Time, args *[]any) string {
	var clause string
	if asOf != nil {
		clause += " AND created_at <= ? AND (ended_at IS NULL OR ended_at > ?)"
		*args = append(*args, formatTime(*asOf), formatTime(*asOf))
	} else if !includeEnded {
		clause += " AND ended_at IS NULL"
	}
	if !includeTombstones {
		clause += " AND deleted_at IS NULL"
	}
	return clause
}
