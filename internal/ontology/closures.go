// Package ontology compiles a declared set of ontology relations into the
// precomputed transitive/symmetric closures the rest of the engine
// queries at O(1) (§4.B, §9 "Closures precomputed, not resolved at
// runtime").
package ontology

import "github.com/typegraph/tgcore/internal/core"

// Closures is the twelve-mapping record produced by Build.
type Closures struct {
	SubClassAncestors   map[string]map[string]struct{}
	SubClassDescendants map[string]map[string]struct{}
	BroaderClosure      map[string]map[string]struct{}
	NarrowerClosure     map[string]map[string]struct{}
	EquivalenceSets     map[string]map[string]struct{}
	IRIToKind           map[string]string
	DisjointPairs       map[string]struct{}
	PartOfClosure       map[string]map[string]struct{}
	HasPartClosure      map[string]map[string]struct{}
	EdgeInverses        map[string]string
	EdgeImplicationsClosure map[string]map[string]struct{}
	EdgeImplyingClosure     map[string]map[string]struct{}
}

func newClosures() *Closures {
	return &Closures{
		SubClassAncestors:       map[string]map[string]struct{}{},
		SubClassDescendants:     map[string]map[string]struct{}{},
		BroaderClosure:          map[string]map[string]struct{}{},
		NarrowerClosure:         map[string]map[string]struct{}{},
		EquivalenceSets:         map[string]map[string]struct{}{},
		IRIToKind:               map[string]string{},
		DisjointPairs:           map[string]struct{}{},
		PartOfClosure:           map[string]map[string]struct{}{},
		HasPartClosure:          map[string]map[string]struct{}{},
		EdgeInverses:            map[string]string{},
		EdgeImplicationsClosure: map[string]map[string]struct{}{},
		EdgeImplyingClosure:     map[string]map[string]struct{}{},
	}
}

// Build partitions relations by meta-edge kind and compiles each family of
// closures (§4.B algorithm).
//
// metaEdges is the full meta-edge declaration set (the twelve built-ins
// plus any custom ones); only the twelve built-in names below compile
// into a closure family today, so a custom meta-edge's relations are
// retained on the graph but don't participate in any precomputed
// closure.
func Build(relations []core.OntologyRelation, metaEdges map[string]*core.MetaEdgeReg) *Closures {
	c := newClosures()

	var subClassPairs, broaderPairs, partOfPairs, impliesPairs [][2]string
	var equivPairs [][2]string
	uf := newUnionFind()

	for _, rel := range relations {
		from, to := rel.From, rel.To
		if exactlyOneIRI(from, to) {
			if core.IsIRI(from) {
				c.IRIToKind[from] = to
			} else {
				c.IRIToKind[to] = from
			}
		}

		switch rel.MetaEdge {
		case "subClassOf":
			subClassPairs = append(subClassPairs, [2]string{from, to})
			continue
		case "broader":
			broaderPairs = append(broaderPairs, [2]string{from, to})
			continue
		case "narrower":
			// inverse of broader: narrower(A,B) means A is narrower than B,
			// i.e. B is broader than A.
			broaderPairs = append(broaderPairs, [2]string{to, from})
			continue
		case "equivalentTo", "sameAs":
			uf.union(from, to)
			equivPairs = append(equivPairs, [2]string{from, to})
			continue
		case "disjointWith":
			c.DisjointPairs[normalizePair(from, to)] = struct{}{}
			continue
		case "partOf":
			partOfPairs = append(partOfPairs, [2]string{from, to})
			continue
		case "hasPart":
			// inverse of partOf.
			partOfPairs = append(partOfPairs, [2]string{to, from})
			continue
		case "inverseOf":
			c.EdgeInverses[from] = to
			c.EdgeInverses[to] = from
			continue
		case "implies":
			impliesPairs = append(impliesPairs, [2]string{from, to})
			continue
		}
	}

	// Transitive closures via Warshall's algorithm.
	subAnc := transitiveClosure(subClassPairs)
	c.SubClassAncestors = subAnc
	c.SubClassDescendants = invert(subAnc)

	c.BroaderClosure = transitiveClosure(broaderPairs)
	c.NarrowerClosure = invert(c.BroaderClosure)

	c.PartOfClosure = transitiveClosure(partOfPairs)
	c.HasPartClosure = invert(c.PartOfClosure)

	c.EdgeImplicationsClosure = transitiveClosure(impliesPairs)
	c.EdgeImplyingClosure = invert(c.EdgeImplicationsClosure)

	// Equivalence classes via union-find, each set excluding the member
	// itself (§4.B, §8 "self-excluding").
	classes := uf.classes()
	for _, members := range classes {
		for _, m := range members {
			set := make(map[string]struct{}, len(members)-1)
			for _, other := range members {
				if other != m {
					set[other] = struct{}{}
				}
			}
			if len(set) > 0 {
				c.EquivalenceSets[m] = set
			}
		}
	}
	_ = equivPairs // pairs only needed to drive the union-find above

	return c
}

func exactlyOneIRI(a, b string) bool {
	return core.IsIRI(a) != core.IsIRI(b)
}

// normalizePair orders a pair lexically so disjointness lookups are
// order-independent (§4.B: "normalized so a < b lexically").
func normalizePair(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// transitiveClosure runs Warshall's algorithm over a set of directed
// pairs: for each intermediate k, if i reaches k and k reaches j, then i
// reaches j. Complexity O(N^3) over named entities, acceptable because
// ontologies are small (§4.B Complexity).
func transitiveClosure(pairs [][2]string) map[string]map[string]struct{} {
	reach := map[string]map[string]struct{}{}
	nodeSet := map[string]struct{}{}
	addEdge := func(a, b string) {
		if reach[a] == nil {
			reach[a] = map[string]struct{}{}
		}
		reach[a][b] = struct{}{}
		nodeSet[a] = struct{}{}
		nodeSet[b] = struct{}{}
	}
	for _, p := range pairs {
		addEdge(p[0], p[1])
	}
	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	for _, k := range nodes {
		for _, i := range nodes {
			if _, ok := reach[i][k]; !ok {
				continue
			}
			for j := range reach[k] {
				if i == j {
					continue // strict: never a descendant/ancestor of itself
				}
				if reach[i] == nil {
					reach[i] = map[string]struct{}{}
				}
				reach[i][j] = struct{}{}
			}
		}
	}
	// strip any accidental self-edges from duplicate/reflexive input
	// relations so the closure stays strict (§8 "Duplicate and reflexive
	// relations are idempotent").
	for n, set := range reach {
		delete(set, n)
	}
	return reach
}

// invert re-pivots a closure: for each a -> b, record b -> a.
func invert(forward map[string]map[string]struct{}) map[string]map[string]struct{} {
	inv := map[string]map[string]struct{}{}
	for a, bs := range forward {
		for b := range bs {
			if inv[b] == nil {
				inv[b] = map[string]struct{}{}
			}
			inv[b][a] = struct{}{}
		}
	}
	return inv
}

// unionFind is a path-compressing union-find used to compute equivalence
// classes (§4.B).
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) classes() map[string][]string {
	out := map[string][]string{}
	for x := range u.parent {
		root := u.find(x)
		out[root] = append(out[root], x)
	}
	return out
}
