// Package sqlitebackend implements backend.Backend over an embedded
// modernc.org/sqlite database, for single-writer/embedded use (§6).
// It is grounded on beads' internal/storage/sqlite: the same
// BEGIN IMMEDIATE-with-retry discipline for serializing writers, the
// same wrapDBError idiom for turning sql.ErrNoRows into a typed
// not-found error. It has no config or metadata table of its own.
package sqlitebackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/typegraph/tgcore/internal/backend"
)

// Store is a backend.Backend over a single SQLite database file (or
// ":memory:"). One Store serves every graph id; rows are partitioned
// by graph_id column the way beads partitions nothing (single-tenant)
// but the schema-versions table already requires a graph_id key (§6).
type Store struct {
	db         *sql.DB
	maxRetries uint64
}

// Config controls how Open connects.
type Config struct {
	// Path is the sqlite DSN: a file path or ":memory:".
	Path string
	// BusyTimeoutMs is passed as PRAGMA busy_timeout.
	BusyTimeoutMs int
	// MaxRetries bounds beginImmediateWithRetry's backoff loop.
	MaxRetries uint64
}

// Open connects to path, applies pragmas, and runs migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.BusyTimeoutMs == 0 {
		cfg.BusyTimeoutMs = 5000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, wrapDBError("open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // a single writer connection serializes BEGIN IMMEDIATE

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMs)); err != nil {
		return nil, wrapDBError("set busy_timeout", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		return nil, wrapDBError("set journal_mode", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, wrapDBError("set foreign_keys", err)
	}

	s := &Store{db: db}
	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}
	s.maxRetries = cfg.MaxRetries
	return s, nil
}

func (s *Store) Dialect() string { return "sqlite" }

func (s *Store) Capabilities() backend.Capabilities {
	return backend.Capabilities{Transactions: true}
}

func (s *Store) Close() error { return s.db.Close() }

// Transaction opens a BEGIN IMMEDIATE transaction with retry on
// SQLITE_BUSY, runs fn, and commits or rolls back (§5 "Transactions").
// Grounded on queries.go's CreateIssue, which acquires a dedicated
// connection and issues raw BEGIN IMMEDIATE/COMMIT/ROLLBACK rather than
// relying on database/sql's BeginTx (modernc.org/sqlite's BeginTx is
// always DEFERRED).
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx backend.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapDBError("acquire connection", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn, s.retries()); err != nil {
		return wrapDBError("begin immediate transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	txStore := newConnTx(conn)
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}

func (s *Store) retries() uint64 {
	if s.maxRetries == 0 {
		return 5
	}
	return s.maxRetries
}

// beginImmediateWithRetry issues BEGIN IMMEDIATE, retrying with
// exponential backoff while the database reports SQLITE_BUSY — a
// dedicated connection's busy_timeout handles short contention, but a
// writer holding a RESERVED lock across a slow transaction needs this
// extra layer (mirrors beads' queries.go comment on the same call).
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn, maxRetries uint64) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	return backoff.Retry(func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err != nil && isBusy(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func isBusy(err error) bool {
	// modernc.org/sqlite surfaces SQLITE_BUSY in the error text; there is
	// no typed sentinel exported for it.
	return err != nil && (containsFold(err.Error(), "busy") || containsFold(err.Error(), "locked"))
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	n := len(s) - len(substr)
	for i := 0; i <= n; i++ {
		if equalFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ErrNotFound mirrors beads' sqlite.ErrNotFound sentinel.
var ErrNotFound = errors.New("not found")

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func marshalProps(props map[string]any) ([]byte, error) {
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(props)
}

func unmarshalProps(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
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
