package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// nullMarker stands in for a missing or null field in a composite
// uniqueness key; it can never collide with a real string value because
// it contains a control byte no normalized field value can produce.
const nullMarker = "\x01NULL"

// uniqueKey computes the null-byte-joined composite key for one
// uniqueness constraint over props (§4.F.2 step 6, §3 collation).
func uniqueKey(fields []string, collation core.Collation, props map[string]any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		v, ok := props[f]
		if !ok || v == nil {
			parts[i] = nullMarker
			continue
		}
		s := fmt.Sprint(v)
		if collation == core.CollationCaseInsensitive {
			s = strings.ToLower(s)
		}
		parts[i] = s
	}
	return strings.Join(parts, "\x00")
}

// constraintBinding pairs a uniqueness constraint with the kind that
// declared it. DeclaringKind is what a kindWithSubClasses constraint's
// scope expansion is rooted at — for a constraint the node's own kind
// declares, DeclaringKind equals that kind.
type constraintBinding struct {
	DeclaringKind core.Kind
	Constraint    core.UniquenessConstraint
}

// applicableConstraints returns every uniqueness constraint that binds a
// write of kind: those kind declares itself (any scope), plus those
// declared by an ancestor kind with kindWithSubClasses scope (§3 "a
// constraint declared kindWithSubClasses on an ancestor also binds every
// subclass's writes"). Without this, a constraint declared on Person
// would never be consulted when writing an Employee.
func (p *Pipeline) applicableConstraints(kind core.Kind, reg *core.NodeKindReg, props map[string]any) []constraintBinding {
	var out []constraintBinding
	for _, u := range reg.Unique {
		if u.Predicate.Matches(props) {
			out = append(out, constraintBinding{DeclaringKind: kind, Constraint: u})
		}
	}
	for _, ancestor := range p.Registry.ExpandSuperClasses(string(kind)) {
		if ancestor == string(kind) {
			continue
		}
		aReg, ok := p.Registry.NodeKind(core.Kind(ancestor))
		if !ok {
			continue
		}
		for _, u := range aReg.Unique {
			if u.Scope == core.ScopeKindWithSubClasses && u.Predicate.Matches(props) {
				out = append(out, constraintBinding{DeclaringKind: core.Kind(ancestor), Constraint: u})
			}
		}
	}
	return out
}

// scopeKinds returns the set of concrete kinds a binding's index
// namespace spans: just the declaring kind, or the declaring kind plus
// every transitive subclass of it, per the constraint's declared scope.
// Rooting the expansion at the declaring kind (not the kind being
// written) is what lets a Person-declared constraint's scan reach rows
// an Employee write inserted under its own concrete-kind namespace.
func (p *Pipeline) scopeKinds(b constraintBinding) []string {
	if b.Constraint.Scope == core.ScopeKindWithSubClasses {
		return p.Registry.ExpandSubClasses(string(b.DeclaringKind))
	}
	return []string{string(b.DeclaringKind)}
}

// checkUniqueness verifies every applicable constraint has no
// conflicting index entry elsewhere in its scope. selfID is the node's
// own id, excluded from conflict (used on update, where the node's own
// prior index row under the same key is not a conflict).
func (p *Pipeline) checkUniqueness(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, props map[string]any, selfID string) error {
	for _, b := range p.applicableConstraints(kind, reg, props) {
		u := b.Constraint
		key := uniqueKey(u.Fields, u.Collation, props)
		for _, scopeKind := range p.scopeKinds(b) {
			nodeID, found, err := p.Backend.CheckUnique(ctx, p.GraphID, scopeKind, u.Name, key)
			if err != nil {
				return errs.DatabaseError("checkUnique", err)
			}
			if found && nodeID != selfID {
				return errs.New(errs.Uniqueness, "uniqueness constraint violated",
					"kind", kind, "constraint", u.Name, "conflictingNodeId", nodeID).
					WithSuggestion("choose different values for: " + strings.Join(u.Fields, ", "))
			}
		}
	}
	return nil
}

// insertUniqueIndexRows inserts one index row per applicable constraint,
// keyed under the node's own concrete kind (§4.F.2 step 7). Rows for an
// inherited kindWithSubClasses constraint are still keyed by the
// concrete kind being written: scopeKinds widens the scan to reach them,
// so the shared namespace is the scan, not the storage key.
func (p *Pipeline) insertUniqueIndexRows(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, id string, props map[string]any) error {
	for _, b := range p.applicableConstraints(kind, reg, props) {
		u := b.Constraint
		key := uniqueKey(u.Fields, u.Collation, props)
		if err := p.Backend.InsertUnique(ctx, p.GraphID, string(kind), u.Name, key, id); err != nil {
			return errs.DatabaseError("insertUnique", err)
		}
	}
	return nil
}

// deleteUniqueIndexRows removes every applicable constraint's index row
// for props under the node's own kind, including rows inserted for a
// constraint an ancestor declared with kindWithSubClasses scope.
func (p *Pipeline) deleteUniqueIndexRows(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, props map[string]any) error {
	for _, b := range p.applicableConstraints(kind, reg, props) {
		u := b.Constraint
		key := uniqueKey(u.Fields, u.Collation, props)
		if err := p.Backend.DeleteUnique(ctx, p.GraphID, string(kind), u.Name, key); err != nil {
			return errs.DatabaseError("deleteUnique", err)
		}
	}
	return nil
}

// reconcileUniquenessOnUpdate maintains uniqueness index rows across a
// property update (§4.F.3 step 3, the four-case table): constraints that
// stopped applying lose their row, constraints that newly apply are
// checked and gain a row, constraints whose key didn't change are left
// alone, and constraints whose key changed are deleted then re-checked
// and re-inserted.
func (p *Pipeline) reconcileUniquenessOnUpdate(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, id string, oldProps, newProps map[string]any) error {
	oldApplicable := indexByName(p.applicableConstraints(kind, reg, oldProps))
	newApplicable := indexByName(p.applicableConstraints(kind, reg, newProps))

	names := make(map[string]struct{}, len(oldApplicable)+len(newApplicable))
	for n := range oldApplicable {
		names[n] = struct{}{}
	}
	for n := range newApplicable {
		names[n] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		oldB, hadOld := oldApplicable[name]
		newB, hasNew := newApplicable[name]
		switch {
		case !hadOld && !hasNew:
			continue
		case hadOld && !hasNew:
			oldU := oldB.Constraint
			oldKey := uniqueKey(oldU.Fields, oldU.Collation, oldProps)
			if err := p.Backend.DeleteUnique(ctx, p.GraphID, string(kind), name, oldKey); err != nil {
				return errs.DatabaseError("deleteUnique", err)
			}
		case !hadOld && hasNew:
			if err := p.checkAndInsertOne(ctx, kind, newB, id, newProps); err != nil {
				return err
			}
		default:
			oldU, newU := oldB.Constraint, newB.Constraint
			oldKey := uniqueKey(oldU.Fields, oldU.Collation, oldProps)
			newKey := uniqueKey(newU.Fields, newU.Collation, newProps)
			if oldKey == newKey {
				continue
			}
			if err := p.Backend.DeleteUnique(ctx, p.GraphID, string(kind), name, oldKey); err != nil {
				return errs.DatabaseError("deleteUnique", err)
			}
			if err := p.checkAndInsertOne(ctx, kind, newB, id, newProps); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) checkAndInsertOne(ctx context.Context, kind core.Kind, b constraintBinding, id string, props map[string]any) error {
	u := b.Constraint
	key := uniqueKey(u.Fields, u.Collation, props)
	for _, scopeKind := range p.scopeKinds(b) {
		nodeID, found, err := p.Backend.CheckUnique(ctx, p.GraphID, scopeKind, u.Name, key)
		if err != nil {
			return errs.DatabaseError("checkUnique", err)
		}
		if found && nodeID != id {
			return errs.New(errs.Uniqueness, "uniqueness constraint violated",
				"kind", kind, "constraint", u.Name, "conflictingNodeId", nodeID)
		}
	}
	return p.Backend.InsertUnique(ctx, p.GraphID, string(kind), u.Name, key, id)
}

func indexByName(bs []constraintBinding) map[string]constraintBinding {
	m := make(map[string]constraintBinding, len(bs))
	for _, b := range bs {
		m[b.Constraint.Name] = b
	}
	return m
}
