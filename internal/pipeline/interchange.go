package pipeline

import (
	"context"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// interchangeFormatVersion is the format version stamped onto every
// export (§4.F.8). Bump it only for a breaking change to the envelope
// shape itself, not to graph content.
const interchangeFormatVersion = 1

// UnknownPropertyPolicy controls how Import handles a property name
// the kind's schema doesn't declare.
type UnknownPropertyPolicy string

const (
	UnknownPropertyError UnknownPropertyPolicy = "error"
	UnknownPropertyStrip UnknownPropertyPolicy = "strip"
	UnknownPropertyAllow UnknownPropertyPolicy = "allow"
)

// ConflictPolicy controls how Import handles a record whose id already
// exists.
type ConflictPolicy string

const (
	ConflictSkip   ConflictPolicy = "skip"
	ConflictUpdate ConflictPolicy = "update"
	ConflictError  ConflictPolicy = "error"
)

// ImportNode and ImportEdge are the interchange envelope's record
// shapes (§4.F.8).
type ImportNode struct {
	Kind  core.Kind
	ID    string
	Props map[string]any
}

type ImportEdge struct {
	Kind     core.Kind
	ID       string
	FromKind core.Kind
	FromID   string
	ToKind   core.Kind
	ToID     string
	Props    map[string]any
}

// Envelope is the interchange document: everything Export produces and
// Import consumes (§4.F.8 "{formatVersion, exportedAt, source, nodes,
// edges}").
type Envelope struct {
	FormatVersion int
	ExportedAt    string
	Source        string
	Nodes         []ImportNode
	Edges         []ImportEdge
}

// ImportOptions configures Import's conflict and validation behavior.
type ImportOptions struct {
	OnUnknownProperty   UnknownPropertyPolicy
	OnConflict          ConflictPolicy
	VerifyEdgeEndpoints bool
	BatchSize           int
}

// ImportResult tallies what Import did.
type ImportResult struct {
	NodesCreated int
	NodesUpdated int
	NodesSkipped int
	EdgesCreated int
	EdgesSkipped int
	Errors       []error
}

// Import loads an interchange envelope, processing every node before
// any edge so edge endpoint verification can see same-batch nodes,
// inside one transaction when the backend supports it (§4.F.8).
// opts.BatchSize is defaulted to 500 but not otherwise used: records are
// not split into batches.
func (p *Pipeline) Import(ctx context.Context, env Envelope, opts ImportOptions) (*ImportResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	result := &ImportResult{}
	inBatch := p.Backend.Capabilities().Transactions

	run := func(ctx context.Context, ops backend.Ops) error {
		seenNodes := make(map[string]ImportNode, len(env.Nodes))
		for _, n := range env.Nodes {
			seenNodes[string(n.Kind)+"\x00"+n.ID] = n
			if err := p.importNode(ctx, n, opts, result); err != nil {
				result.Errors = append(result.Errors, err)
				if opts.OnConflict == ConflictError {
					return err
				}
			}
		}
		for _, e := range env.Edges {
			if opts.VerifyEdgeEndpoints {
				if _, ok := seenNodes[string(e.FromKind)+"\x00"+e.FromID]; !ok {
					if _, err := p.Backend.GetNode(ctx, p.GraphID, string(e.FromKind), e.FromID); err != nil {
						result.EdgesSkipped++
						result.Errors = append(result.Errors, endpointNotFound(e.Kind, "from", e.FromKind, e.FromID))
						continue
					}
				}
				if _, ok := seenNodes[string(e.ToKind)+"\x00"+e.ToID]; !ok {
					if _, err := p.Backend.GetNode(ctx, p.GraphID, string(e.ToKind), e.ToID); err != nil {
						result.EdgesSkipped++
						result.Errors = append(result.Errors, endpointNotFound(e.Kind, "to", e.ToKind, e.ToID))
						continue
					}
				}
			}
			if _, err := p.CreateEdge(ctx, CreateEdgeInput{
				Kind: e.Kind, ID: e.ID, FromKind: e.FromKind, FromID: e.FromID, ToKind: e.ToKind, ToID: e.ToID, Props: e.Props,
			}); err != nil {
				result.EdgesSkipped++
				result.Errors = append(result.Errors, err)
				continue
			}
			result.EdgesCreated++
		}
		return nil
	}

	if inBatch {
		err := p.Backend.Transaction(ctx, func(ctx context.Context, tx backend.Tx) error {
			return run(ctx, tx)
		})
		if err != nil {
			return result, err
		}
		return result, nil
	}
	return result, run(ctx, p.Backend)
}

func (p *Pipeline) importNode(ctx context.Context, n ImportNode, opts ImportOptions, result *ImportResult) error {
	reg, ok := p.Registry.NodeKind(n.Kind)
	if !ok {
		return errs.New(errs.KindNotFound, "import record uses unregistered node kind", "kind", n.Kind)
	}

	props, err := applyUnknownPropertyPolicy(reg, n.Props, opts.OnUnknownProperty)
	if err != nil {
		return err
	}

	existing, getErr := p.Backend.GetNode(ctx, p.GraphID, string(n.Kind), n.ID)
	if getErr == nil && existing != nil {
		switch opts.OnConflict {
		case ConflictUpdate:
			if _, err := p.UpdateNode(ctx, UpdateNodeInput{Kind: n.Kind, ID: n.ID, Props: props, ClearDeleted: existing.DeletedAt != nil}); err != nil {
				return err
			}
			result.NodesUpdated++
			return nil
		case ConflictError:
			return errs.New(errs.Validation, "import record id already exists", "kind", n.Kind, "id", n.ID)
		default: // skip
			result.NodesSkipped++
			return nil
		}
	}

	if _, err := p.CreateNode(ctx, CreateNodeInput{Kind: n.Kind, ID: n.ID, Props: props}); err != nil {
		return err
	}
	result.NodesCreated++
	return nil
}

func applyUnknownPropertyPolicy(reg *core.NodeKindReg, props map[string]any, policy UnknownPropertyPolicy) (map[string]any, error) {
	if policy == "" || policy == UnknownPropertyAllow || reg.Schema == nil {
		return props, nil
	}
	declared, _ := reg.Schema.Describe()["properties"].(map[string]any)
	var unknown []string
	for k := range props {
		if _, ok := declared[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return props, nil
	}
	if policy == UnknownPropertyError {
		return nil, errs.New(errs.Validation, "import record has unknown properties", "kind", reg.Name, "properties", unknown)
	}
	stripped := make(map[string]any, len(props))
	for k, v := range props {
		if _, ok := declared[k]; ok {
			stripped[k] = v
		}
	}
	return stripped, nil
}

// ExportOptions configures Export's scope.
type ExportOptions struct {
	NodeKinds         []core.Kind
	EdgeKinds         []core.Kind
	IncludeEnded      bool
	IncludeTombstones bool
	AsOf              *time.Time
	Source            string
	Now               func() time.Time
}

// Export selects every row for the requested kinds and wraps it in an
// interchange envelope (§4.F.8).
func (p *Pipeline) Export(ctx context.Context, opts ExportOptions) (*Envelope, error) {
	now := opts.Now
	if now == nil {
		now = p.Now
	}
	filter := backend.NodeFilter{IncludeEnded: opts.IncludeEnded, IncludeTombstones: opts.IncludeTombstones, AsOf: opts.AsOf}
	edgeFilter := backend.EdgeFilter{IncludeEnded: opts.IncludeEnded, IncludeTombstones: opts.IncludeTombstones, AsOf: opts.AsOf}

	env := &Envelope{FormatVersion: interchangeFormatVersion, ExportedAt: now().UTC().Format(time.RFC3339Nano), Source: opts.Source}

	for _, kind := range opts.NodeKinds {
		rows, err := p.Backend.FindNodesByKind(ctx, p.GraphID, string(kind), filter)
		if err != nil {
			return nil, errs.DatabaseError("findNodesByKind", err)
		}
		for _, r := range rows {
			env.Nodes = append(env.Nodes, ImportNode{Kind: kind, ID: r.ID, Props: r.Properties})
		}
	}
	for _, kind := range opts.EdgeKinds {
		rows, err := p.Backend.FindEdgesByKind(ctx, p.GraphID, string(kind), edgeFilter)
		if err != nil {
			return nil, errs.DatabaseError("findEdgesByKind", err)
		}
		for _, r := range rows {
			env.Edges = append(env.Edges, ImportEdge{
				Kind: kind, ID: r.ID, FromKind: core.Kind(r.FromKind), FromID: r.FromID,
				ToKind: core.Kind(r.ToKind), ToID: r.ToID, Props: r.Properties,
			})
		}
	}
	return env, nil
}
