package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
	"github.com/typegraph/tgcore/internal/hooks"
)

// endpointPrefetchConcurrency bounds how many concurrent GetNode calls
// warmEndpoints issues; the backend connection pool, not the CPU, is
// the limiting resource here.
const endpointPrefetchConcurrency = 8

// warmEndpoints fetches every distinct endpoint referenced by inputs
// concurrently and seeds cache.nodes with the results, so the sequential
// cardinality-checking pass that follows never blocks on a cold lookup
// it could have issued in parallel with its siblings (§4.F.6 "a batch
// validation cache layered over the backend").
func (c *batchValidationCache) warmEndpoints(ctx context.Context, inputs []CreateEdgeInput) error {
	type ref struct {
		kind core.Kind
		id   string
	}
	seen := make(map[string]ref)
	for _, in := range inputs {
		seen[nodeCacheKey(in.FromKind, in.FromID)] = ref{in.FromKind, in.FromID}
		seen[nodeCacheKey(in.ToKind, in.ToID)] = ref{in.ToKind, in.ToID}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(endpointPrefetchConcurrency)
	for key, r := range seen {
		key, r := key, r
		g.Go(func() error {
			row, err := c.p.Backend.GetNode(gctx, c.p.GraphID, string(r.kind), r.id)
			if err != nil {
				row = nil // a lookup miss is resolved again, and reported, by the sequential pass
			}
			mu.Lock()
			c.nodes[key] = row
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// batchValidationCache memoizes the lookups edge-cardinality and
// endpoint-existence checks repeat across a batch, so a bulk edge write
// does one round trip per distinct endpoint/counter instead of one per
// item (§4.F.6 "a batch validation cache layered over the backend").
// It is single-use: construct one per bulk call, never shared across
// calls, since pending counts accumulate only for the items accepted
// so far in this batch.
type batchValidationCache struct {
	p *Pipeline

	nodes         map[string]*backend.NodeRow
	baseCounts    map[string]int
	pendingCounts map[string]int
	existsBase    map[string]bool
	pendingPairs  map[string]struct{}
}

func newBatchValidationCache(p *Pipeline) *batchValidationCache {
	return &batchValidationCache{
		p:             p,
		nodes:         map[string]*backend.NodeRow{},
		baseCounts:    map[string]int{},
		pendingCounts: map[string]int{},
		existsBase:    map[string]bool{},
		pendingPairs:  map[string]struct{}{},
	}
}

func nodeCacheKey(kind core.Kind, id string) string { return string(kind) + "\x00" + id }

func (c *batchValidationCache) getNode(ctx context.Context, kind core.Kind, id string) (*backend.NodeRow, error) {
	key := nodeCacheKey(kind, id)
	if row, ok := c.nodes[key]; ok {
		return row, nil
	}
	row, err := c.p.Backend.GetNode(ctx, c.p.GraphID, string(kind), id)
	if err != nil {
		return nil, err
	}
	c.nodes[key] = row
	return row, nil
}

func fromCountKey(edgeKind, fromKind core.Kind, fromID string) string {
	return string(edgeKind) + "\x00" + string(fromKind) + "\x00" + fromID
}

// countEdgesFrom returns the base backend count plus every pending
// increment accepted earlier in this batch for the same (edgeKind,
// fromKind, fromID). It records nothing itself; acceptCount adds the
// caller's own increment once its edge is inserted.
func (c *batchValidationCache) countEdgesFrom(ctx context.Context, edgeKind, fromKind core.Kind, fromID string) (int, error) {
	key := fromCountKey(edgeKind, fromKind, fromID)
	base, ok := c.baseCounts[key]
	if !ok {
		n, err := c.p.Backend.CountEdgesFrom(ctx, c.p.GraphID, string(edgeKind), string(fromKind), fromID)
		if err != nil {
			return 0, err
		}
		base = n
		c.baseCounts[key] = base
	}
	return base + c.pendingCounts[key], nil
}

func (c *batchValidationCache) acceptCount(edgeKind, fromKind core.Kind, fromID string) {
	key := fromCountKey(edgeKind, fromKind, fromID)
	c.pendingCounts[key]++
}

func pairKey(edgeKind, fromKind core.Kind, fromID string, toKind core.Kind, toID string) string {
	return string(edgeKind) + "\x00" + string(fromKind) + "\x00" + fromID + "\x00" + string(toKind) + "\x00" + toID
}

func (c *batchValidationCache) existsBetween(ctx context.Context, edgeKind, fromKind core.Kind, fromID string, toKind core.Kind, toID string) (bool, error) {
	key := pairKey(edgeKind, fromKind, fromID, toKind, toID)
	if _, pending := c.pendingPairs[key]; pending {
		return true, nil
	}
	if exists, ok := c.existsBase[key]; ok {
		return exists, nil
	}
	exists, err := c.p.Backend.EdgeExistsBetween(ctx, c.p.GraphID, string(edgeKind), string(fromKind), fromID, string(toKind), toID)
	if err != nil {
		return false, err
	}
	c.existsBase[key] = exists
	return exists, nil
}

func (c *batchValidationCache) acceptPair(edgeKind, fromKind core.Kind, fromID string, toKind core.Kind, toID string) {
	c.pendingPairs[pairKey(edgeKind, fromKind, fromID, toKind, toID)] = struct{}{}
}

// BulkInsertNodes validates and inserts every input, bypassing the
// per-item hook envelope (§4.F.6 "bulkInsert: no return, no hooks").
// It stops at the first failure; callers that need partial success use
// BulkCreateNodes instead.
func (p *Pipeline) BulkInsertNodes(ctx context.Context, inputs []CreateNodeInput) error {
	for _, in := range inputs {
		if _, err := p.createNodeNoHooks(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

// BulkCreateNodes creates every input independently, collecting a
// result or error per item rather than failing the whole batch.
func (p *Pipeline) BulkCreateNodes(ctx context.Context, inputs []CreateNodeInput) ([]*Node, []error) {
	nodes := make([]*Node, len(inputs))
	errsOut := make([]error, len(inputs))
	for i, in := range inputs {
		nodes[i], errsOut[i] = p.createNodeNoHooks(ctx, in)
	}
	return nodes, errsOut
}

func (p *Pipeline) createNodeNoHooks(ctx context.Context, in CreateNodeInput) (*Node, error) {
	reg, ok := p.Registry.NodeKind(in.Kind)
	if !ok {
		return nil, errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
	}
	id := in.ID
	if id == "" {
		id = p.NewID()
	}
	props := in.Props
	if props == nil {
		props = map[string]any{}
	}
	validated, issues := validateSchema(reg.Schema, props)
	if len(issues) > 0 {
		return nil, errs.New(errs.Validation, "node properties failed validation", "kind", in.Kind).WithIssues(issues...)
	}
	if err := p.checkUniqueness(ctx, in.Kind, reg, validated, ""); err != nil {
		return nil, err
	}
	now := p.Now()
	row := backendNodeRow(id, string(in.Kind), validated, now, now, in.ValidTo)
	if err := p.Backend.InsertNode(ctx, p.GraphID, row); err != nil {
		return nil, errs.DatabaseError("insertNode", err)
	}
	if err := p.insertUniqueIndexRows(ctx, in.Kind, reg, id, validated); err != nil {
		return nil, err
	}
	if err := p.syncEmbeddings(ctx, in.Kind, reg, id, validated); err != nil {
		return nil, err
	}
	return &Node{ID: id, Kind: in.Kind, Properties: validated, Version: 1, CreatedAt: now, UpdatedAt: now, ValidFrom: now, ValidTo: in.ValidTo}, nil
}

// BulkUpsertNodes buckets inputs into creates and updates with one
// batched GetNodes lookup, then performs one batched insert path plus
// individual hookless updates — each clearing a prior tombstone
// automatically (§4.F.6 "bulk upserts bucket into toCreate/toUpdate").
func (p *Pipeline) BulkUpsertNodes(ctx context.Context, kind core.Kind, inputs []CreateNodeInput) ([]*Node, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.ID != "" {
			ids = append(ids, in.ID)
		}
	}
	existingRows, err := p.Backend.GetNodes(ctx, p.GraphID, string(kind), ids)
	if err != nil {
		return nil, errs.DatabaseError("getNodes", err)
	}
	existing := make(map[string]backend.NodeRow, len(existingRows))
	for _, r := range existingRows {
		existing[r.ID] = r
	}

	// Updates run on a copy of the pipeline with no hooks registered, so
	// they bypass the per-item hook envelope like the rest of the batch.
	quiet := *p
	quiet.Hooks = hooks.Hooks{}

	out := make([]*Node, len(inputs))
	for i, in := range inputs {
		in.Kind = kind
		if row, found := existing[in.ID]; found {
			n, err := quiet.UpdateNode(ctx, UpdateNodeInput{Kind: kind, ID: in.ID, Props: in.Props, ClearDeleted: row.DeletedAt != nil})
			if err != nil {
				return nil, err
			}
			out[i] = n
			continue
		}
		n, err := p.createNodeNoHooks(ctx, in)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// BulkCreateEdges creates every input against a shared
// batchValidationCache so repeated endpoint and cardinality lookups
// within the batch cost one round trip instead of one per item.
func (p *Pipeline) BulkCreateEdges(ctx context.Context, inputs []CreateEdgeInput) ([]*Edge, []error) {
	cache := newBatchValidationCache(p)
	_ = cache.warmEndpoints(ctx, inputs) // best-effort; misses fall back to a per-item lookup
	edges := make([]*Edge, len(inputs))
	errsOut := make([]error, len(inputs))
	for i, in := range inputs {
		edges[i], errsOut[i] = p.createEdgeCached(ctx, cache, in)
	}
	return edges, errsOut
}

func (p *Pipeline) createEdgeCached(ctx context.Context, cache *batchValidationCache, in CreateEdgeInput) (*Edge, error) {
	reg, ok := p.Registry.EdgeKind(in.Kind)
	if !ok {
		return nil, errs.New(errs.KindNotFound, "edge kind not registered", "kind", in.Kind)
	}
	if !p.endpointAllowed(reg.From, in.FromKind) {
		return nil, errs.New(errs.Validation, "source kind not allowed for edge", "edge", in.Kind, "fromKind", in.FromKind)
	}
	if !p.endpointAllowed(reg.To, in.ToKind) {
		return nil, errs.New(errs.Validation, "target kind not allowed for edge", "edge", in.Kind, "toKind", in.ToKind)
	}

	fromRow, err := cache.getNode(ctx, in.FromKind, in.FromID)
	if err != nil || fromRow == nil {
		return nil, endpointNotFound(in.Kind, "from", in.FromKind, in.FromID)
	}
	toRow, err := cache.getNode(ctx, in.ToKind, in.ToID)
	if err != nil || toRow == nil {
		return nil, endpointNotFound(in.Kind, "to", in.ToKind, in.ToID)
	}
	if reg.EndpointExistence != core.EndpointEver {
		if fromRow.DeletedAt != nil {
			return nil, endpointNotFound(in.Kind, "from", in.FromKind, in.FromID)
		}
		if toRow.DeletedAt != nil {
			return nil, endpointNotFound(in.Kind, "to", in.ToKind, in.ToID)
		}
	}

	props := in.Props
	if props == nil {
		props = map[string]any{}
	}
	validated, issues := validateSchema(reg.Schema, props)
	if len(issues) > 0 {
		return nil, errs.New(errs.Validation, "edge properties failed validation", "kind", in.Kind).WithIssues(issues...)
	}

	switch reg.Cardinality {
	case core.CardinalityOne:
		count, err := cache.countEdgesFrom(ctx, in.Kind, in.FromKind, in.FromID)
		if err != nil {
			return nil, errs.DatabaseError("countEdgesFrom", err)
		}
		if count > 0 {
			return nil, cardinalityErr(in.Kind, reg.Cardinality)
		}
	case core.CardinalityOneActive:
		if in.ValidTo == nil {
			count, err := cache.countEdgesFrom(ctx, in.Kind, in.FromKind, in.FromID)
			if err != nil {
				return nil, errs.DatabaseError("countEdgesFrom", err)
			}
			if count > 0 {
				return nil, cardinalityErr(in.Kind, reg.Cardinality)
			}
		}
	case core.CardinalityUnique:
		exists, err := cache.existsBetween(ctx, in.Kind, in.FromKind, in.FromID, in.ToKind, in.ToID)
		if err != nil {
			return nil, errs.DatabaseError("edgeExistsBetween", err)
		}
		if exists {
			return nil, cardinalityErr(in.Kind, reg.Cardinality)
		}
	}

	id := in.ID
	if id == "" {
		id = p.NewID()
	}
	now := p.Now()
	row := backendEdgeRow(id, string(in.Kind), string(in.FromKind), in.FromID, string(in.ToKind), in.ToID, validated, now, now, in.ValidTo)
	if err := p.Backend.InsertEdge(ctx, p.GraphID, row); err != nil {
		return nil, errs.DatabaseError("insertEdge", err)
	}

	switch reg.Cardinality {
	case core.CardinalityOne, core.CardinalityOneActive:
		cache.acceptCount(in.Kind, in.FromKind, in.FromID)
	case core.CardinalityUnique:
		cache.acceptPair(in.Kind, in.FromKind, in.FromID, in.ToKind, in.ToID)
	}

	return &Edge{
		ID: id, Kind: in.Kind, FromKind: in.FromKind, FromID: in.FromID, ToKind: in.ToKind, ToID: in.ToID,
		Properties: validated, CreatedAt: now, UpdatedAt: now, ValidFrom: now, ValidTo: in.ValidTo,
	}, nil
}
