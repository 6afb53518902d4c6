// Package schema serializes a graph definition into a canonical,
// content-addressed document, computes a stable hash, diffs two
// documents, and classifies changes as safe or breaking (§4.D), then
// drives the schema lifecycle state machine (§4.E).
package schema

import (
	"sort"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/ontology"
)

// Document is the canonical JSON document described in §4.D. Field order
// in Go doesn't matter; ContentHash re-serializes with recursively
// sorted keys so two semantically identical documents always hash the
// same regardless of map iteration order.
type Document struct {
	GraphID     string           `json:"graphId"`
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generatedAt"`
	Nodes       []NodeDoc        `json:"nodes"`
	Edges       []EdgeDoc        `json:"edges"`
	Ontology    OntologyDoc      `json:"ontology"`
	Defaults    DefaultsDoc      `json:"defaults"`
}

// NodeDoc is one node kind's canonical representation.
type NodeDoc struct {
	Name        string              `json:"name"`
	Properties  map[string]any      `json:"properties"`
	Unique      []UniqueDoc         `json:"uniqueConstraints"`
	OnDelete    string              `json:"onDelete"`
	Description string              `json:"description"`
}

// UniqueDoc is a serialized uniqueness constraint, with its predicate in
// the data-first {field, op} shape called for by §9's Design Notes
// (replacing the original proxy-recorded predicate while preserving
// semantics).
type UniqueDoc struct {
	Name      string        `json:"name"`
	Fields    []string      `json:"fields"`
	Scope     string        `json:"scope"`
	Collation string        `json:"collation"`
	Predicate []PredicateDoc `json:"predicate,omitempty"`
}

// PredicateDoc is one {field, op} clause.
type PredicateDoc struct {
	Field string `json:"field"`
	Op    string `json:"op"`
}

// EdgeDoc is one edge kind's canonical representation.
type EdgeDoc struct {
	Name              string         `json:"name"`
	FromKinds         []string       `json:"fromKinds"`
	ToKinds           []string       `json:"toKinds"`
	Properties        map[string]any `json:"properties"`
	Cardinality       string         `json:"cardinality"`
	EndpointExistence string         `json:"endpointExistence"`
	Description       string         `json:"description"`
}

// OntologyDoc carries the declared meta-edges, the relation triples, and
// the full precomputed closure record (§4.D).
type OntologyDoc struct {
	MetaEdges []MetaEdgeDoc  `json:"metaEdges"`
	Relations []RelationDoc  `json:"relations"`
	Closures  ClosuresDoc    `json:"closures"`
}

// MetaEdgeDoc is a declared meta-edge.
type MetaEdgeDoc struct {
	Name       string `json:"name"`
	Transitive bool   `json:"transitive"`
	Symmetric  bool   `json:"symmetric"`
	Reflexive  bool   `json:"reflexive"`
	Inverse    string `json:"inverse,omitempty"`
	Inference  string `json:"inference"`
}

// RelationDoc is one ontology relation triple. Key returns the
// metaEdge:from:to comparison key the differ uses (§4.D "Relations are
// compared by the triple key metaEdge:from:to").
type RelationDoc struct {
	MetaEdge string `json:"metaEdge"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (r RelationDoc) Key() string { return r.MetaEdge + ":" + r.From + ":" + r.To }

// ClosuresDoc serializes the twelve precomputed closure maps as sorted
// string lists so the document is stable and JSON-friendly.
type ClosuresDoc struct {
	SubClassAncestors   map[string][]string `json:"subClassAncestors"`
	SubClassDescendants map[string][]string `json:"subClassDescendants"`
	BroaderClosure      map[string][]string `json:"broaderClosure"`
	NarrowerClosure     map[string][]string `json:"narrowerClosure"`
	EquivalenceSets     map[string][]string `json:"equivalenceSets"`
	IRIToKind           map[string]string   `json:"iriToKind"`
	DisjointPairs       []string            `json:"disjointPairs"`
	PartOfClosure       map[string][]string `json:"partOfClosure"`
	HasPartClosure      map[string][]string `json:"hasPartClosure"`
	EdgeInverses        map[string]string   `json:"edgeInverses"`
	EdgeImplicationsClosure map[string][]string `json:"edgeImplicationsClosure"`
	EdgeImplyingClosure     map[string][]string `json:"edgeImplyingClosure"`
}

// DefaultsDoc is the graph-wide defaults.
type DefaultsDoc struct {
	OnNodeDelete string `json:"onNodeDelete"`
	TemporalMode string `json:"temporalMode"`
}

// Serialize compiles a graph definition and its closures into the
// canonical document for the given version, stamped with generatedAt
// (an ISO-8601 instant supplied by the caller so this function stays
// deterministic and testable without touching a clock).
func Serialize(graph *core.Graph, closures *ontology.Closures, version int, generatedAt string) *Document {
	doc := &Document{
		GraphID:     graph.ID,
		Version:     version,
		GeneratedAt: generatedAt,
		Defaults: DefaultsDoc{
			OnNodeDelete: string(graph.Defaults.OnNodeDelete),
			TemporalMode: string(graph.Defaults.TemporalMode),
		},
	}

	for name, n := range graph.Nodes {
		nd := NodeDoc{
			Name:        string(name),
			Properties:  describeSchema(n.Schema),
			OnDelete:    string(n.OnDelete),
			Description: n.Description,
		}
		for _, u := range n.Unique {
			nd.Unique = append(nd.Unique, serializeUnique(u))
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].Name < doc.Nodes[j].Name })

	for name, e := range graph.Edges {
		ed := EdgeDoc{
			Name:              string(name),
			FromKinds:         sortedKinds(e.From),
			ToKinds:           sortedKinds(e.To),
			Properties:        describeSchema(e.Schema),
			Cardinality:       string(e.Cardinality),
			EndpointExistence: string(e.EndpointExistence),
			Description:       e.Description,
		}
		doc.Edges = append(doc.Edges, ed)
	}
	sort.Slice(doc.Edges, func(i, j int) bool { return doc.Edges[i].Name < doc.Edges[j].Name })

	for name, me := range graph.MetaEdges {
		doc.Ontology.MetaEdges = append(doc.Ontology.MetaEdges, MetaEdgeDoc{
			Name: name, Transitive: me.Transitive, Symmetric: me.Symmetric,
			Reflexive: me.Reflexive, Inverse: me.Inverse, Inference: string(me.Inference),
		})
	}
	sort.Slice(doc.Ontology.MetaEdges, func(i, j int) bool {
		return doc.Ontology.MetaEdges[i].Name < doc.Ontology.MetaEdges[j].Name
	})

	for _, rel := range graph.Ontology {
		doc.Ontology.Relations = append(doc.Ontology.Relations, RelationDoc{
			MetaEdge: rel.MetaEdge, From: rel.From, To: rel.To,
		})
	}
	sort.Slice(doc.Ontology.Relations, func(i, j int) bool {
		return doc.Ontology.Relations[i].Key() < doc.Ontology.Relations[j].Key()
	})

	doc.Ontology.Closures = serializeClosures(closures)

	return doc
}

func serializeUnique(u core.UniquenessConstraint) UniqueDoc {
	ud := UniqueDoc{
		Name: u.Name, Fields: append([]string(nil), u.Fields...),
		Scope: string(u.Scope), Collation: string(u.Collation),
	}
	for _, p := range u.Predicate {
		ud.Predicate = append(ud.Predicate, PredicateDoc{Field: p.Field, Op: string(p.Op)})
	}
	return ud
}

func describeSchema(s core.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return s.Describe()
}

func sortedKinds(set map[core.Kind]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

func serializeClosures(c *ontology.Closures) ClosuresDoc {
	if c == nil {
		return ClosuresDoc{}
	}
	return ClosuresDoc{
		SubClassAncestors:       sortedMap(c.SubClassAncestors),
		SubClassDescendants:     sortedMap(c.SubClassDescendants),
		BroaderClosure:          sortedMap(c.BroaderClosure),
		NarrowerClosure:         sortedMap(c.NarrowerClosure),
		EquivalenceSets:         sortedMap(c.EquivalenceSets),
		IRIToKind:               c.IRIToKind,
		DisjointPairs:           sortedSet(c.DisjointPairs),
		PartOfClosure:           sortedMap(c.PartOfClosure),
		HasPartClosure:          sortedMap(c.HasPartClosure),
		EdgeInverses:            c.EdgeInverses,
		EdgeImplicationsClosure: sortedMap(c.EdgeImplicationsClosure),
		EdgeImplyingClosure:     sortedMap(c.EdgeImplyingClosure),
	}
}

func sortedMap(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		out[k] = sortedSet(set)
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
