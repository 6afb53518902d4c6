package pipeline

import (
	"context"
	"time"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// CreateEdge runs the six-step edge creation pipeline (§4.F.5): resolve
// the edge kind, verify both endpoints' concrete kinds are allowed,
// load both endpoints honoring the edge's endpoint-existence mode,
// validate properties, enforce cardinality, and insert the row.
func (p *Pipeline) CreateEdge(ctx context.Context, in CreateEdgeInput) (*Edge, error) {
	var result *Edge
	err := p.Hooks.Envelope(ctx, p.GraphID, "create", "edge", string(in.Kind), in.ID, func(ctx context.Context) error {
		reg, ok := p.Registry.EdgeKind(in.Kind)
		if !ok {
			return errs.New(errs.KindNotFound, "edge kind not registered", "kind", in.Kind)
		}

		if !p.endpointAllowed(reg.From, in.FromKind) {
			return errs.New(errs.Validation, "source kind not allowed for edge", "edge", in.Kind, "fromKind", in.FromKind)
		}
		if !p.endpointAllowed(reg.To, in.ToKind) {
			return errs.New(errs.Validation, "target kind not allowed for edge", "edge", in.Kind, "toKind", in.ToKind)
		}

		if err := p.loadEndpoint(ctx, reg.EndpointExistence, "from", in.Kind, in.FromKind, in.FromID); err != nil {
			return err
		}
		if err := p.loadEndpoint(ctx, reg.EndpointExistence, "to", in.Kind, in.ToKind, in.ToID); err != nil {
			return err
		}

		props := in.Props
		if props == nil {
			props = map[string]any{}
		}
		validated, issues := validateSchema(reg.Schema, props)
		if len(issues) > 0 {
			return errs.New(errs.Validation, "edge properties failed validation", "kind", in.Kind).WithIssues(issues...)
		}

		if err := p.checkCardinality(ctx, in.Kind, reg, in.FromKind, in.FromID, in.ToKind, in.ToID, in.ValidTo); err != nil {
			return err
		}

		id := in.ID
		if id == "" {
			id = p.NewID()
		}
		now := p.Now()
		row := backendEdgeRow(id, string(in.Kind), string(in.FromKind), in.FromID, string(in.ToKind), in.ToID, validated, now, now, in.ValidTo)
		if err := p.Backend.InsertEdge(ctx, p.GraphID, row); err != nil {
			return errs.DatabaseError("insertEdge", err)
		}

		result = &Edge{
			ID: id, Kind: in.Kind, FromKind: in.FromKind, FromID: in.FromID, ToKind: in.ToKind, ToID: in.ToID,
			Properties: validated, CreatedAt: now, UpdatedAt: now, ValidFrom: now, ValidTo: in.ValidTo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) endpointAllowed(allowed map[core.Kind]struct{}, concrete core.Kind) bool {
	for target := range allowed {
		if p.Registry.IsAssignableTo(string(concrete), string(target)) {
			return true
		}
	}
	return false
}

// loadEndpoint fetches an edge endpoint honoring the edge kind's
// endpoint-existence mode (§4.F.5 step 3): notDeleted requires a live
// row, currentlyValid additionally requires the node's own temporal
// validity window to cover now, and ever accepts any row that was
// stored at all (including hard-surviving soft-deleted rows).
func (p *Pipeline) loadEndpoint(ctx context.Context, mode core.EndpointExistence, side string, edgeKind, nodeKind core.Kind, nodeID string) error {
	row, err := p.Backend.GetNode(ctx, p.GraphID, string(nodeKind), nodeID)
	if err != nil || row == nil {
		return endpointNotFound(edgeKind, side, nodeKind, nodeID)
	}
	switch mode {
	case core.EndpointEver:
		return nil
	case core.EndpointCurrentlyValid:
		now := p.Now()
		if row.DeletedAt != nil {
			return endpointNotFound(edgeKind, side, nodeKind, nodeID)
		}
		if row.EndedAt != nil && !row.EndedAt.After(now) {
			return endpointNotFound(edgeKind, side, nodeKind, nodeID)
		}
		return nil
	default: // EndpointNotDeleted
		if row.DeletedAt != nil {
			return endpointNotFound(edgeKind, side, nodeKind, nodeID)
		}
		return nil
	}
}

func endpointNotFound(edgeKind core.Kind, side string, nodeKind core.Kind, nodeID string) error {
	return errs.New(errs.EndpointNotFound, "edge endpoint not found",
		"edge", edgeKind, "endpoint", side, "nodeKind", nodeKind, "nodeId", nodeID)
}

// checkCardinality enforces an edge kind's cardinality constraint
// before insert (§4.F.5 step 5, §3/§8 cardinality semantics). many is
// unconstrained; one allows at most one live edge of this kind from
// the source; oneActive additionally only counts edges with no
// validTo (an "active" edge), so a closed-out prior edge never blocks
// a new one; unique forbids a second live edge between the exact same
// ordered endpoint pair.
func (p *Pipeline) checkCardinality(ctx context.Context, kind core.Kind, reg *core.EdgeKindReg, fromKind core.Kind, fromID string, toKind core.Kind, toID string, newValidTo *time.Time) error {
	switch reg.Cardinality {
	case core.CardinalityMany:
		return nil
	case core.CardinalityOne:
		count, err := p.Backend.CountEdgesFrom(ctx, p.GraphID, string(kind), string(fromKind), fromID)
		if err != nil {
			return errs.DatabaseError("countEdgesFrom", err)
		}
		if count > 0 {
			return cardinalityErr(kind, reg.Cardinality)
		}
		return nil
	case core.CardinalityOneActive:
		if newValidTo != nil {
			return nil // the new edge is already closed out, never "active"
		}
		edges, err := p.Backend.FindEdgesByKind(ctx, p.GraphID, string(kind), backend.EdgeFilter{})
		if err != nil {
			return errs.DatabaseError("findEdgesByKind", err)
		}
		for _, e := range edges {
			if e.FromKind == string(fromKind) && e.FromID == fromID && e.EndedAt == nil {
				return cardinalityErr(kind, reg.Cardinality)
			}
		}
		return nil
	case core.CardinalityUnique:
		exists, err := p.Backend.EdgeExistsBetween(ctx, p.GraphID, string(kind), string(fromKind), fromID, string(toKind), toID)
		if err != nil {
			return errs.DatabaseError("edgeExistsBetween", err)
		}
		if exists {
			return cardinalityErr(kind, reg.Cardinality)
		}
		return nil
	}
	return nil
}

func cardinalityErr(kind core.Kind, card core.Cardinality) error {
	return errs.New(errs.Cardinality, "edge cardinality constraint violated", "kind", kind, "cardinality", card)
}

// UpdateEdge merges and re-validates an edge's properties. Cardinality
// is not rechecked on update (§9 Open Question: "does an update that
// changes validTo re-trigger the oneActive check?" — decided no; only
// creation establishes cardinality, an update that closes an edge out
// never needs to re-justify a slot it already holds).
func (p *Pipeline) UpdateEdge(ctx context.Context, kind core.Kind, id string, props map[string]any) (*Edge, error) {
	var result *Edge
	err := p.Hooks.Envelope(ctx, p.GraphID, "update", "edge", string(kind), id, func(ctx context.Context) error {
		reg, ok := p.Registry.EdgeKind(kind)
		if !ok {
			return errs.New(errs.KindNotFound, "edge kind not registered", "kind", kind)
		}
		existing, err := p.Backend.GetEdge(ctx, p.GraphID, string(kind), id)
		if err != nil || existing.DeletedAt != nil {
			return errs.New(errs.EdgeNotFound, "edge not found", "kind", kind, "id", id)
		}
		merged := mergeProps(existing.Properties, props)
		validated, issues := validateSchema(reg.Schema, merged)
		if len(issues) > 0 {
			return errs.New(errs.Validation, "edge properties failed validation", "kind", kind).WithIssues(issues...)
		}
		now := p.Now()
		if err := p.Backend.UpdateEdge(ctx, p.GraphID, string(kind), id, validated, now); err != nil {
			return errs.DatabaseError("updateEdge", err)
		}
		refreshed, err := p.Backend.GetEdge(ctx, p.GraphID, string(kind), id)
		if err != nil {
			return errs.DatabaseError("getEdge", err)
		}
		result = edgeRowToEdge(kind, refreshed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteEdge soft-deletes an edge; a missing or already-deleted edge is
// a no-op.
func (p *Pipeline) DeleteEdge(ctx context.Context, kind core.Kind, id string) error {
	return p.Hooks.Envelope(ctx, p.GraphID, "delete", "edge", string(kind), id, func(ctx context.Context) error {
		existing, err := p.Backend.GetEdge(ctx, p.GraphID, string(kind), id)
		if err != nil || existing.DeletedAt != nil {
			return nil
		}
		return wrapDB("deleteEdge", p.Backend.DeleteEdge(ctx, p.GraphID, string(kind), id, p.Now()))
	})
}

// HardDeleteEdge permanently removes an edge row.
func (p *Pipeline) HardDeleteEdge(ctx context.Context, kind core.Kind, id string) error {
	return p.Hooks.Envelope(ctx, p.GraphID, "hardDelete", "edge", string(kind), id, func(ctx context.Context) error {
		return wrapDB("hardDeleteEdge", p.Backend.HardDeleteEdge(ctx, p.GraphID, string(kind), id))
	})
}

func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.DatabaseError(op, err)
}
