package pipeline

import (
	"context"

	"github.com/typegraph/tgcore/internal/backend"
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// IfExists selects what GetOrCreate does when a match is found.
type IfExists string

const (
	IfExistsFound  IfExists = "found"
	IfExistsUpdate IfExists = "update"
)

// GetOrCreateResult reports which branch a get-or-create call took
// (§4.F.7).
type GetOrCreateResult string

const (
	ResultFound       GetOrCreateResult = "found"
	ResultUpdated     GetOrCreateResult = "updated"
	ResultResurrected GetOrCreateResult = "resurrected"
	ResultCreated     GetOrCreateResult = "created"
)

// GetOrCreateByConstraintInput is the input to GetOrCreateByConstraint.
type GetOrCreateByConstraintInput struct {
	Kind           core.Kind
	ConstraintName string
	Props          map[string]any
	IfExists       IfExists
}

// GetOrCreateByConstraint resolves a node by a uniqueness constraint's
// key, updating, resurrecting, or creating as appropriate (§4.F.7).
func (p *Pipeline) GetOrCreateByConstraint(ctx context.Context, in GetOrCreateByConstraintInput) (*Node, GetOrCreateResult, error) {
	reg, ok := p.Registry.NodeKind(in.Kind)
	if !ok {
		return nil, "", errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
	}
	var constraint *core.UniquenessConstraint
	for i := range reg.Unique {
		if reg.Unique[i].Name == in.ConstraintName {
			constraint = &reg.Unique[i]
			break
		}
	}
	if constraint == nil {
		return nil, "", errs.New(errs.Configuration, "no such uniqueness constraint", "kind", in.Kind, "constraint", in.ConstraintName)
	}

	key := uniqueKey(constraint.Fields, constraint.Collation, in.Props)
	match, err := p.Backend.FindByConstraint(ctx, p.GraphID, string(in.Kind), in.ConstraintName, key)
	if err == nil && match == nil {
		// DeleteNode removes a node's index rows, so a soft-deleted match
		// is looked up among the kind's tombstoned rows instead.
		rows, findErr := p.Backend.FindNodesByKind(ctx, p.GraphID, string(in.Kind), backend.NodeFilter{IncludeEnded: true, IncludeTombstones: true})
		if findErr == nil {
			for i := range rows {
				if rows[i].DeletedAt != nil && uniqueKey(constraint.Fields, constraint.Collation, rows[i].Properties) == key {
					match = &rows[i]
					break
				}
			}
		}
	}
	if err != nil || match == nil {
		n, createErr := p.CreateNode(ctx, CreateNodeInput{Kind: in.Kind, Props: in.Props})
		if createErr != nil {
			return nil, "", createErr
		}
		return n, ResultCreated, nil
	}

	if match.DeletedAt != nil {
		n, err := p.UpdateNode(ctx, UpdateNodeInput{Kind: in.Kind, ID: match.ID, Props: in.Props, ClearDeleted: true})
		if err != nil {
			return nil, "", err
		}
		return n, ResultResurrected, nil
	}

	if in.IfExists == IfExistsUpdate {
		n, err := p.UpdateNode(ctx, UpdateNodeInput{Kind: in.Kind, ID: match.ID, Props: in.Props})
		if err != nil {
			return nil, "", err
		}
		return n, ResultUpdated, nil
	}
	return nodeRowToNode(in.Kind, match), ResultFound, nil
}

// GetOrCreateByEndpointsInput is the input to GetOrCreateByEndpoints.
type GetOrCreateByEndpointsInput struct {
	Kind     core.Kind
	FromKind core.Kind
	FromID   string
	ToKind   core.Kind
	ToID     string
	Props    map[string]any
	MatchOn  []string // extra property fields that must also match
	IfExists IfExists
}

// GetOrCreateByEndpoints resolves an edge by its endpoints (and
// optionally extra matching property fields), updating or creating as
// appropriate (§4.F.7). Soft-deleted edges are not matched; a request
// against a tombstoned pair simply creates a fresh edge.
func (p *Pipeline) GetOrCreateByEndpoints(ctx context.Context, in GetOrCreateByEndpointsInput) (*Edge, GetOrCreateResult, error) {
	connected, err := p.Backend.FindEdgesConnectedTo(ctx, p.GraphID, string(in.FromKind), in.FromID, backend.EdgeFilter{})
	if err == nil {
		for _, e := range connected {
			if e.Kind != string(in.Kind) || e.FromKind != string(in.FromKind) || e.FromID != in.FromID {
				continue
			}
			if e.ToKind != string(in.ToKind) || e.ToID != in.ToID {
				continue
			}
			if e.DeletedAt != nil {
				continue
			}
			if !propsMatch(e.Properties, in.Props, in.MatchOn) {
				continue
			}
			if in.IfExists == IfExistsUpdate {
				updated, err := p.UpdateEdge(ctx, in.Kind, e.ID, in.Props)
				if err != nil {
					return nil, "", err
				}
				return updated, ResultUpdated, nil
			}
			row := e
			return edgeRowToEdge(in.Kind, &row), ResultFound, nil
		}
	}

	created, err := p.CreateEdge(ctx, CreateEdgeInput{
		Kind: in.Kind, FromKind: in.FromKind, FromID: in.FromID, ToKind: in.ToKind, ToID: in.ToID, Props: in.Props,
	})
	if err != nil {
		return nil, "", err
	}
	return created, ResultCreated, nil
}

func propsMatch(existing, candidate map[string]any, fields []string) bool {
	for _, f := range fields {
		if existing[f] != candidate[f] {
			return false
		}
	}
	return true
}
