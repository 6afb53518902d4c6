// Package registry wraps a compiled ontology closure in typed lookups
// (§4.C). It is the in-memory index every validation and query path
// consults; it is built once from a core.Graph and ontology.Closures and
// is safe to share across goroutines because it never mutates after
// construction (§5 "immutable after construction ... shared freely").
package registry

import (
	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/ontology"
)

// Registry answers reasoning queries over a graph's kinds and ontology.
type Registry struct {
	graph    *core.Graph
	closures *ontology.Closures
}

// New builds a Registry from a graph definition and its compiled
// closures. Callers typically get closures from ontology.Build(graph.Ontology, graph.MetaEdges).
func New(graph *core.Graph, closures *ontology.Closures) *Registry {
	return &Registry{graph: graph, closures: closures}
}

// Graph returns the underlying frozen graph definition.
func (r *Registry) Graph() *core.Graph { return r.graph }

// NodeKind looks up a node kind registration by name.
func (r *Registry) NodeKind(name core.Kind) (*core.NodeKindReg, bool) {
	reg, ok := r.graph.Nodes[name]
	return reg, ok
}

// EdgeKind looks up an edge kind registration by name.
func (r *Registry) EdgeKind(name core.Kind) (*core.EdgeKindReg, bool) {
	reg, ok := r.graph.Edges[name]
	return reg, ok
}

// IsSubClassOf reports whether child is a (possibly transitive) subclass
// of parent. Strict: a kind is never a subclass of itself.
func (r *Registry) IsSubClassOf(child, parent string) bool {
	_, ok := r.closures.SubClassAncestors[child][parent]
	return ok
}

// IsAssignableTo reports whether concrete can be used wherever target is
// expected: concrete equals target, or concrete is a subclass of target
// (reflexive, unlike IsSubClassOf) (§4.C).
func (r *Registry) IsAssignableTo(concrete, target string) bool {
	if concrete == target {
		return true
	}
	return r.IsSubClassOf(concrete, target)
}

// ExpandSubClasses returns k plus every transitive subsumption descendant
// of k.
func (r *Registry) ExpandSubClasses(k string) []string {
	out := []string{k}
	for d := range r.closures.SubClassDescendants[k] {
		out = append(out, d)
	}
	return out
}

// ExpandSuperClasses returns k plus every transitive subsumption ancestor
// of k, the reverse of ExpandSubClasses. Used to find constraints an
// ancestor kind declared with kindWithSubClasses scope that bind k too.
func (r *Registry) ExpandSuperClasses(k string) []string {
	out := []string{k}
	for a := range r.closures.SubClassAncestors[k] {
		out = append(out, a)
	}
	return out
}

// IsNarrowerThan reports whether a is narrower than b.
func (r *Registry) IsNarrowerThan(a, b string) bool {
	_, ok := r.closures.NarrowerClosure[a][b]
	return ok
}

// IsBroaderThan reports whether a is broader than b.
func (r *Registry) IsBroaderThan(a, b string) bool {
	_, ok := r.closures.BroaderClosure[a][b]
	return ok
}

// AreEquivalent reports whether a and b are in the same equivalence
// class.
func (r *Registry) AreEquivalent(a, b string) bool {
	_, ok := r.closures.EquivalenceSets[a][b]
	return ok
}

// GetEquivalents returns the members of a's equivalence class, excluding
// a itself.
func (r *Registry) GetEquivalents(a string) []string {
	return setKeys(r.closures.EquivalenceSets[a])
}

// ResolveIri maps an external IRI to the locally declared kind it was
// bound to via a sameAs/equivalentTo relation, if any.
func (r *Registry) ResolveIri(iri string) (string, bool) {
	k, ok := r.closures.IRIToKind[iri]
	return k, ok
}

// AreDisjoint reports whether a and b can never both contain the same
// instance id, order-independent.
func (r *Registry) AreDisjoint(a, b string) bool {
	_, ok := r.closures.DisjointPairs[normalizePair(a, b)]
	return ok
}

// GetDisjointKinds returns every kind declared disjoint with k.
func (r *Registry) GetDisjointKinds(k string) []string {
	var out []string
	for pair := range r.closures.DisjointPairs {
		a, b := splitPair(pair)
		switch k {
		case a:
			out = append(out, b)
		case b:
			out = append(out, a)
		}
	}
	return out
}

// IsPartOf reports whether a is (transitively) part of b.
func (r *Registry) IsPartOf(a, b string) bool {
	_, ok := r.closures.PartOfClosure[a][b]
	return ok
}

// GetParts returns the parts k transitively has under hasPart, i.e. the
// things k is the whole of.
func (r *Registry) GetParts(k string) []string {
	return setKeys(r.closures.HasPartClosure[k])
}

// GetWholes returns the wholes k is transitively part of.
func (r *Registry) GetWholes(k string) []string {
	return setKeys(r.closures.PartOfClosure[k])
}

// GetInverseEdge returns the declared inverse of an edge kind, if any.
func (r *Registry) GetInverseEdge(edge string) (string, bool) {
	inv, ok := r.closures.EdgeInverses[edge]
	return inv, ok
}

// GetImpliedEdges returns the edges that edge's presence implies.
func (r *Registry) GetImpliedEdges(edge string) []string {
	return setKeys(r.closures.EdgeImplicationsClosure[edge])
}

// GetImplyingEdges returns the edges that imply edge.
func (r *Registry) GetImplyingEdges(edge string) []string {
	return setKeys(r.closures.EdgeImplyingClosure[edge])
}

// ExpandImplyingEdges returns edge plus every edge kind that implies it,
// useful for "does at least one of these edge kinds exist" queries.
func (r *Registry) ExpandImplyingEdges(edge string) []string {
	out := []string{edge}
	out = append(out, r.GetImplyingEdges(edge)...)
	return out
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func normalizePair(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func splitPair(pair string) (string, string) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '|' {
			return pair[:i], pair[i+1:]
		}
	}
	return pair, ""
}
