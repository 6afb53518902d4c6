package pipeline

import (
	"context"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// CreateNode runs the ten-step node creation pipeline (§4.F.2): resolve
// the kind, validate properties, reject a colliding live id, precheck
// disjointness and uniqueness, insert the row, insert uniqueness index
// rows, sync embeddings, and return the typed node.
func (p *Pipeline) CreateNode(ctx context.Context, in CreateNodeInput) (*Node, error) {
	var result *Node
	err := p.Hooks.Envelope(ctx, p.GraphID, "create", "node", string(in.Kind), in.ID, func(ctx context.Context) error {
		reg, ok := p.Registry.NodeKind(in.Kind)
		if !ok {
			return errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
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
			return errs.New(errs.Validation, "node properties failed validation", "kind", in.Kind).WithIssues(issues...)
		}

		now := p.Now()

		if existing, err := p.Backend.GetNode(ctx, p.GraphID, string(in.Kind), id); err == nil && existing != nil && existing.DeletedAt == nil {
			return errs.New(errs.Validation, "node already exists", "kind", in.Kind, "id", id)
		}

		if err := p.checkDisjointness(ctx, in.Kind, id); err != nil {
			return err
		}

		if err := p.checkUniqueness(ctx, in.Kind, reg, validated, ""); err != nil {
			return err
		}

		row := backendNodeRow(id, string(in.Kind), validated, now, now, in.ValidTo)
		if err := p.Backend.InsertNode(ctx, p.GraphID, row); err != nil {
			return errs.DatabaseError("insertNode", err)
		}

		if err := p.insertUniqueIndexRows(ctx, in.Kind, reg, id, validated); err != nil {
			return err
		}

		if err := p.syncEmbeddings(ctx, in.Kind, reg, id, validated); err != nil {
			return err
		}

		result = &Node{
			ID: id, Kind: in.Kind, Properties: validated, Version: 1,
			CreatedAt: now, UpdatedAt: now, ValidFrom: now, ValidTo: in.ValidTo,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkDisjointness fails if a live node with the same id exists under
// any kind declared disjoint with kind (§3 "disjoint kinds can never
// share an instance id").
func (p *Pipeline) checkDisjointness(ctx context.Context, kind core.Kind, id string) error {
	for _, other := range p.Registry.GetDisjointKinds(string(kind)) {
		existing, err := p.Backend.GetNode(ctx, p.GraphID, other, id)
		if err != nil {
			continue // not found is the expected, non-error path for most backends
		}
		if existing != nil && existing.DeletedAt == nil {
			return errs.New(errs.Validation, "id already in use by a disjoint kind",
				"kind", kind, "id", id, "conflictingKind", other)
		}
	}
	return nil
}

// UpdateNode runs the five-step node update pipeline (§4.F.3): load the
// existing node, merge and re-validate properties, reconcile uniqueness
// index rows, bump the version (and clear the tombstone if requested),
// and re-sync embeddings.
func (p *Pipeline) UpdateNode(ctx context.Context, in UpdateNodeInput) (*Node, error) {
	var result *Node
	err := p.Hooks.Envelope(ctx, p.GraphID, "update", "node", string(in.Kind), in.ID, func(ctx context.Context) error {
		reg, ok := p.Registry.NodeKind(in.Kind)
		if !ok {
			return errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
		}

		existing, err := p.Backend.GetNode(ctx, p.GraphID, string(in.Kind), in.ID)
		if err != nil {
			return errs.New(errs.NodeNotFound, "node not found", "kind", in.Kind, "id", in.ID)
		}
		if existing.DeletedAt != nil && !in.ClearDeleted {
			return errs.New(errs.NodeNotFound, "node is soft-deleted", "kind", in.Kind, "id", in.ID).
				WithSuggestion("pass ClearDeleted to resurrect it")
		}

		merged := mergeProps(existing.Properties, in.Props)
		validated, issues := validateSchema(reg.Schema, merged)
		if len(issues) > 0 {
			return errs.New(errs.Validation, "node properties failed validation", "kind", in.Kind).WithIssues(issues...)
		}

		if err := p.reconcileUniquenessOnUpdate(ctx, in.Kind, reg, in.ID, existing.Properties, validated); err != nil {
			return err
		}

		now := p.Now()
		if err := p.Backend.UpdateNode(ctx, p.GraphID, string(in.Kind), in.ID, validated, now, in.ClearDeleted); err != nil {
			return errs.DatabaseError("updateNode", err)
		}

		if err := p.syncEmbeddings(ctx, in.Kind, reg, in.ID, validated); err != nil {
			return err
		}

		refreshed, err := p.Backend.GetNode(ctx, p.GraphID, string(in.Kind), in.ID)
		if err != nil {
			return errs.DatabaseError("getNode", err)
		}
		result = nodeRowToNode(in.Kind, refreshed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteNode soft-deletes a node, applying its onDelete behavior to
// connected edges first (§4.F.4). A missing or already-deleted node is
// a no-op, not an error.
func (p *Pipeline) DeleteNode(ctx context.Context, in DeleteNodeInput) error {
	return p.Hooks.Envelope(ctx, p.GraphID, "delete", "node", string(in.Kind), in.ID, func(ctx context.Context) error {
		reg, ok := p.Registry.NodeKind(in.Kind)
		if !ok {
			return errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
		}
		existing, err := p.Backend.GetNode(ctx, p.GraphID, string(in.Kind), in.ID)
		if err != nil || existing.DeletedAt != nil {
			return nil
		}

		if err := p.applyOnDelete(ctx, in.Kind, reg, in.ID, false); err != nil {
			return err
		}

		now := p.Now()
		if err := p.Backend.DeleteNode(ctx, p.GraphID, string(in.Kind), in.ID, now); err != nil {
			return errs.DatabaseError("deleteNode", err)
		}
		if err := p.deleteUniqueIndexRows(ctx, in.Kind, reg, existing.Properties); err != nil {
			return err
		}
		for _, f := range reg.Embeddings {
			if err := p.Backend.DeleteEmbedding(ctx, p.GraphID, string(in.Kind), in.ID, f.Path); err != nil {
				return errs.DatabaseError("deleteEmbedding", err)
			}
		}
		return nil
	})
}

// HardDeleteNode permanently removes a node row after applying its
// onDelete behavior in hard-delete mode.
func (p *Pipeline) HardDeleteNode(ctx context.Context, in DeleteNodeInput) error {
	return p.Hooks.Envelope(ctx, p.GraphID, "hardDelete", "node", string(in.Kind), in.ID, func(ctx context.Context) error {
		reg, ok := p.Registry.NodeKind(in.Kind)
		if !ok {
			return errs.New(errs.KindNotFound, "node kind not registered", "kind", in.Kind)
		}
		existing, err := p.Backend.GetNode(ctx, p.GraphID, string(in.Kind), in.ID)
		if err != nil || existing == nil {
			return nil
		}
		if err := p.applyOnDelete(ctx, in.Kind, reg, in.ID, true); err != nil {
			return err
		}
		// The backend contract makes no cascade promise for the
		// uniqueness-index or embedding tables, so clean those up
		// explicitly rather than assume the primary-row delete carries
		// them (§9 "Hard-delete assumes the backend cascades...").
		if err := p.deleteUniqueIndexRows(ctx, in.Kind, reg, existing.Properties); err != nil {
			return err
		}
		for _, f := range reg.Embeddings {
			if err := p.Backend.DeleteEmbedding(ctx, p.GraphID, string(in.Kind), in.ID, f.Path); err != nil {
				return errs.DatabaseError("deleteEmbedding", err)
			}
		}
		if err := p.Backend.HardDeleteNode(ctx, p.GraphID, string(in.Kind), in.ID); err != nil {
			return errs.DatabaseError("hardDeleteNode", err)
		}
		return nil
	})
}

// applyOnDelete enforces a node kind's onDelete behavior against every
// edge connected to id (§4.F.4): restrict fails if any live edge is
// connected, cascade removes them, disconnect leaves them as orphaned
// references.
func (p *Pipeline) applyOnDelete(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, id string, hard bool) error {
	connected, err := p.Backend.FindEdgesConnectedTo(ctx, p.GraphID, string(kind), id, emptyEdgeFilter())
	if err != nil {
		return errs.DatabaseError("findEdgesConnectedTo", err)
	}
	if len(connected) == 0 {
		return nil
	}
	switch reg.OnDelete {
	case core.OnDeleteRestrict:
		kinds := make(map[string]int)
		for _, e := range connected {
			kinds[e.Kind]++
		}
		return errs.New(errs.RestrictedDelete, "node has connected edges and onDelete is restrict",
			"kind", kind, "id", id, "edgeKinds", kinds, "edgeCount", len(connected))
	case core.OnDeleteCascade:
		now := p.Now()
		for _, e := range connected {
			if hard {
				if err := p.Backend.HardDeleteEdge(ctx, p.GraphID, e.Kind, e.ID); err != nil {
					return errs.DatabaseError("hardDeleteEdge", err)
				}
			} else if err := p.Backend.DeleteEdge(ctx, p.GraphID, e.Kind, e.ID, now); err != nil {
				return errs.DatabaseError("deleteEdge", err)
			}
		}
	case core.OnDeleteDisconnect:
		// Edges are left in place as orphaned references; readers honoring
		// EndpointNotDeleted/CurrentlyValid will naturally stop seeing them
		// as valid once the endpoint node itself is gone or tombstoned.
	}
	return nil
}

func mergeProps(existing, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func validateSchema(schema core.Schema, props map[string]any) (map[string]any, []errs.Issue) {
	if schema == nil {
		return props, nil
	}
	return schema.Validate(props)
}

