// Package conformance is a backend-agnostic test suite run against any
// backend.Backend implementation, the way beads' storage tests run the
// same scenario table against both the sqlite and dolt stores.
package conformance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typegraph/tgcore/internal/backend"
)

// Run exercises every operation in the backend contract against b. A
// concrete backend's test file should call this from a TestXxx
// function with a freshly opened, empty store.
func Run(t *testing.T, b backend.Backend) {
	t.Helper()
	t.Run("NodeLifecycle", func(t *testing.T) { testNodeLifecycle(t, b) })
	t.Run("EdgeLifecycle", func(t *testing.T) { testEdgeLifecycle(t, b) })
	t.Run("Uniqueness", func(t *testing.T) { testUniqueness(t, b) })
	t.Run("Embeddings", func(t *testing.T) { testEmbeddings(t, b) })
	t.Run("SchemaVersions", func(t *testing.T) { testSchemaVersions(t, b) })
	t.Run("Transaction", func(t *testing.T) { testTransaction(t, b) })
	t.Run("ClearGraph", func(t *testing.T) { testClearGraph(t, b) })
}

func testNodeLifecycle(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	now := time.Now()
	graphID := "conformance-nodes"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	require.NoError(t, b.InsertNode(ctx, graphID, backend.NodeRow{
		ID: "n1", Kind: "Person", Properties: map[string]any{"name": "Ada"}, Version: 1, CreatedAt: now, UpdatedAt: now,
	}))

	got, err := b.GetNode(ctx, graphID, "Person", "n1")
	require.NoError(t, err)
	require.Equal(t, "Ada", got.Properties["name"])
	require.Equal(t, 1, got.Version)

	require.NoError(t, b.UpdateNode(ctx, graphID, "Person", "n1", map[string]any{"name": "Ada Lovelace"}, now.Add(time.Second), false))
	got, err = b.GetNode(ctx, graphID, "Person", "n1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", got.Properties["name"])
	require.Equal(t, 2, got.Version, "UpdateNode must bump the monotonic version")

	require.NoError(t, b.DeleteNode(ctx, graphID, "Person", "n1", now.Add(2*time.Second)))
	rows, err := b.FindNodesByKind(ctx, graphID, "Person", backend.NodeFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 0, "soft-deleted node must be excluded by default")

	rows, err = b.FindNodesByKind(ctx, graphID, "Person", backend.NodeFilter{IncludeTombstones: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DeletedAt)

	require.NoError(t, b.UpdateNode(ctx, graphID, "Person", "n1", map[string]any{"name": "Ada Lovelace"}, now.Add(3*time.Second), true))
	got, err = b.GetNode(ctx, graphID, "Person", "n1")
	require.NoError(t, err)
	require.Nil(t, got.DeletedAt, "clearDeleted must resurrect a tombstoned node")
	require.Equal(t, 3, got.Version)

	require.NoError(t, b.HardDeleteNode(ctx, graphID, "Person", "n1"))
	_, err = b.GetNode(ctx, graphID, "Person", "n1")
	require.Error(t, err, "hard-deleted node must be gone entirely")
}

func testEdgeLifecycle(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	now := time.Now()
	graphID := "conformance-edges"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	require.NoError(t, b.InsertNode(ctx, graphID, backend.NodeRow{ID: "a", Kind: "Person", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, b.InsertNode(ctx, graphID, backend.NodeRow{ID: "b", Kind: "Person", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, b.InsertEdge(ctx, graphID, backend.EdgeRow{
		ID: "e1", Kind: "knows", FromKind: "Person", FromID: "a", ToKind: "Person", ToID: "b",
		CreatedAt: now, UpdatedAt: now,
	}))

	exists, err := b.EdgeExistsBetween(ctx, graphID, "knows", "Person", "a", "Person", "b")
	require.NoError(t, err)
	require.True(t, exists)

	count, err := b.CountEdgesFrom(ctx, graphID, "knows", "Person", "a")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	connected, err := b.FindEdgesConnectedTo(ctx, graphID, "Person", "b", backend.EdgeFilter{})
	require.NoError(t, err)
	require.Len(t, connected, 1)

	require.NoError(t, b.DeleteEdge(ctx, graphID, "knows", "e1", now.Add(time.Second)))
	exists, err = b.EdgeExistsBetween(ctx, graphID, "knows", "Person", "a", "Person", "b")
	require.NoError(t, err)
	require.False(t, exists, "soft-deleted edge must not count as existing")
}

func testUniqueness(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	graphID := "conformance-unique"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	require.NoError(t, b.InsertUnique(ctx, graphID, "Person", "byEmail", "a@example.com", "n1"))
	nodeID, found, err := b.CheckUnique(ctx, graphID, "Person", "byEmail", "a@example.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "n1", nodeID)

	_, found, err = b.CheckUnique(ctx, graphID, "Person", "byEmail", "nobody@example.com")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, b.DeleteUnique(ctx, graphID, "Person", "byEmail", "a@example.com"))
	_, found, err = b.CheckUnique(ctx, graphID, "Person", "byEmail", "a@example.com")
	require.NoError(t, err)
	require.False(t, found)
}

func testEmbeddings(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	graphID := "conformance-embeddings"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	require.NoError(t, b.UpsertEmbedding(ctx, graphID, "Document", "d1", "summaryVector", []float32{0.1, 0.2, 0.3}))
	require.NoError(t, b.UpsertEmbedding(ctx, graphID, "Document", "d1", "summaryVector", []float32{0.4, 0.5, 0.6}))
	require.NoError(t, b.DeleteEmbedding(ctx, graphID, "Document", "d1", "summaryVector"))
}

func testSchemaVersions(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	graphID := "conformance-schema"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	require.NoError(t, b.InsertSchema(ctx, backend.SchemaVersionRow{
		GraphID: graphID, Version: 1, Hash: "h1", Document: []byte("{}"), IsActive: true, GeneratedAt: "t1",
	}))
	require.NoError(t, b.InsertSchema(ctx, backend.SchemaVersionRow{
		GraphID: graphID, Version: 2, Hash: "h2", Document: []byte("{}"), IsActive: false, GeneratedAt: "t2",
	}))

	active, err := b.GetActiveSchema(ctx, graphID)
	require.NoError(t, err)
	require.Equal(t, 1, active.Version)

	require.NoError(t, b.SetActiveSchema(ctx, graphID, 2))
	active, err = b.GetActiveSchema(ctx, graphID)
	require.NoError(t, err)
	require.Equal(t, 2, active.Version)

	v1, err := b.GetSchemaVersion(ctx, graphID, 1)
	require.NoError(t, err)
	require.Equal(t, "h1", v1.Hash)
}

func testTransaction(t *testing.T, b backend.Backend) {
	if !b.Capabilities().Transactions {
		t.Skip("backend does not support transactions")
	}
	ctx := context.Background()
	now := time.Now()
	graphID := "conformance-tx"
	require.NoError(t, b.ClearGraph(ctx, graphID))

	err := b.Transaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		return tx.InsertNode(ctx, graphID, backend.NodeRow{ID: "n1", Kind: "Person", CreatedAt: now, UpdatedAt: now})
	})
	require.NoError(t, err)
	_, err = b.GetNode(ctx, graphID, "Person", "n1")
	require.NoError(t, err, "committed transaction must be visible")

	rollbackErr := &testError{"forced rollback"}
	err = b.Transaction(ctx, func(ctx context.Context, tx backend.Tx) error {
		if insertErr := tx.InsertNode(ctx, graphID, backend.NodeRow{ID: "n2", Kind: "Person", CreatedAt: now, UpdatedAt: now}); insertErr != nil {
			return insertErr
		}
		return rollbackErr
	})
	require.Error(t, err)
	_, err = b.GetNode(ctx, graphID, "Person", "n2")
	require.Error(t, err, "rolled-back insert must not be visible")
}

func testClearGraph(t *testing.T, b backend.Backend) {
	ctx := context.Background()
	graphID := "conformance-clear"
	now := time.Now()
	require.NoError(t, b.InsertNode(ctx, graphID, backend.NodeRow{ID: "n1", Kind: "Person", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, b.ClearGraph(ctx, graphID))
	_, err := b.GetNode(ctx, graphID, "Person", "n1")
	require.Error(t, err)
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
