// Package core defines the nominal, branded record types that the rest of
// the engine is built from: node kinds, edge kinds, meta-edges, ontology
// relations, and the graph definition that ties them together.
//
// Node kinds and edge kinds are compile-time artifacts: once a Graph is
// built via DefineGraph, its registrations are immutable.
package core

import (
	"strings"

	"github.com/typegraph/tgcore/internal/errs"
)

// Kind is an interned type name — a node kind or edge kind name. It is a
// distinct string type so a Kind can never be passed where a raw node ID
// is expected, the way beads keeps kind and ID as separate columns instead
// of a single opaque string.
type Kind string

// NodeID is a branded node identifier, parameterized by the node kind it
// belongs to at the type level. At runtime it is just a string; the type
// parameter exists purely to stop a Person ID from being handed to a
// function expecting a Company ID.
type NodeID[K any] string

// Schema is the opaque property-validator capability every node/edge kind
// carries. It is intentionally minimal: validation and JSON-Schema-like
// description are the only two capabilities the core depends on; the
// concrete validator implementation is an external collaborator per the
// spec's scope (§1).
type Schema interface {
	Validate(input map[string]any) (map[string]any, []errs.Issue)
	Describe() map[string]any
}

// EmbeddingField describes a vector-valued property the write pipeline
// must sync into the embedding index (§4.F.2 step 9).
type EmbeddingField struct {
	Path      string
	Dimension int
}

// DeleteBehavior controls what happens to connected edges when a node is
// deleted (§4.F.4).
type DeleteBehavior string

const (
	OnDeleteRestrict   DeleteBehavior = "restrict"
	OnDeleteCascade    DeleteBehavior = "cascade"
	OnDeleteDisconnect DeleteBehavior = "disconnect"
)

// Cardinality constrains how many edges of a kind may emanate from a
// source, or exist between a pair (§3, §8).
type Cardinality string

const (
	CardinalityMany      Cardinality = "many"
	CardinalityOne       Cardinality = "one"
	CardinalityUnique    Cardinality = "unique"
	CardinalityOneActive Cardinality = "oneActive"
)

// EndpointExistence selects which states of an edge's endpoints must hold
// for the edge to be considered valid (§4.F.5 step 3).
type EndpointExistence string

const (
	EndpointNotDeleted    EndpointExistence = "notDeleted"
	EndpointCurrentlyValid EndpointExistence = "currentlyValid"
	EndpointEver          EndpointExistence = "ever"
)

// Collation controls how uniqueness constraint keys normalize string
// fields (§3, §8).
type Collation string

const (
	CollationBinary        Collation = "binary"
	CollationCaseInsensitive Collation = "caseInsensitive"
)

// PredicateOp is the operator half of a partial-index predicate clause.
type PredicateOp string

const (
	OpIsNull    PredicateOp = "isNull"
	OpIsNotNull PredicateOp = "isNotNull"
)

// PredicateClause is one {field, op} clause of a uniqueness constraint's
// partial-index predicate. §9 (Design Notes) calls for exactly this
// data-first shape in place of the original proxy-recorded predicate.
type PredicateClause struct {
	Field string
	Op    PredicateOp
}

// Predicate is an AND of clauses; a node is indexed by a constraint only
// when every clause matches its current properties.
type Predicate []PredicateClause

// Matches reports whether props satisfies every clause in the predicate.
// A nil/empty predicate always matches.
func (p Predicate) Matches(props map[string]any) bool {
	for _, c := range p {
		v, present := props[c.Field]
		isNull := !present || v == nil
		switch c.Op {
		case OpIsNull:
			if !isNull {
				return false
			}
		case OpIsNotNull:
			if isNull {
				return false
			}
		}
	}
	return true
}

// UniquenessScope controls which concrete kinds share a constraint's
// index namespace.
type UniquenessScope string

const (
	ScopeKind              UniquenessScope = "kind"
	ScopeKindWithSubClasses UniquenessScope = "kindWithSubClasses"
)

// UniquenessConstraint is a named list of fields, scope, collation, and an
// optional partial predicate (§3).
type UniquenessConstraint struct {
	Name      string
	Fields    []string
	Scope     UniquenessScope
	Collation Collation
	Predicate Predicate
}

// NodeKindReg is the frozen record produced by DefineNode.
type NodeKindReg struct {
	brand       struct{}
	Name        Kind
	Schema      Schema
	Description string
	OnDelete    DeleteBehavior
	Unique      []UniquenessConstraint
	Embeddings  []EmbeddingField
}

// EdgeKindReg is the frozen record produced by DefineEdge.
type EdgeKindReg struct {
	brand             struct{}
	Name              Kind
	Schema            Schema
	Description       string
	From              map[Kind]struct{}
	To                map[Kind]struct{}
	Cardinality       Cardinality
	EndpointExistence EndpointExistence
}

// MetaEdgeReg is the frozen record produced by MetaEdge. Twelve built-ins
// are predeclared in BuiltinMetaEdges.
type MetaEdgeReg struct {
	brand      struct{}
	Name       string
	Transitive bool
	Symmetric  bool
	Reflexive  bool
	Inverse    string
	Inference  InferenceCategory
	Description string
}

// InferenceCategory classifies what kind of reasoning a meta-edge drives.
type InferenceCategory string

const (
	InferenceSubsumption  InferenceCategory = "subsumption"
	InferenceHierarchy    InferenceCategory = "hierarchy"
	InferenceSubstitution InferenceCategory = "substitution"
	InferenceConstraint   InferenceCategory = "constraint"
	InferenceComposition  InferenceCategory = "composition"
	InferenceAssociation  InferenceCategory = "association"
	InferenceNone         InferenceCategory = "none"
)

// reservedNodeProps are forbidden in a node kind's property schema.
var reservedNodeProps = map[string]struct{}{"id": {}, "kind": {}, "meta": {}}

// reservedEdgeProps are forbidden in an edge kind's property schema.
var reservedEdgeProps = map[string]struct{}{
	"id": {}, "kind": {}, "meta": {}, "fromKind": {}, "fromId": {}, "toKind": {}, "toId": {},
}

// IsIRI reports whether s is an external ontology IRI rather than a
// locally declared kind name (§3: "IRI iff it begins with http(s)://").
func IsIRI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NodeOpts are the optional fields of DefineNode.
type NodeOpts struct {
	Schema      Schema
	Description string
	OnDelete    DeleteBehavior
	Unique      []UniquenessConstraint
	Embeddings  []EmbeddingField
}

// DefineNode validates and freezes a node kind registration. Failure mode
// is a *errs.TypedError of kind Configuration (§4.A).
func DefineNode(name string, opts NodeOpts) (*NodeKindReg, error) {
	if name == "" {
		return nil, errs.New(errs.Configuration, "node kind name must not be empty")
	}
	if opts.Schema != nil {
		if fields := reservedFieldsIn(opts.Schema, reservedNodeProps); len(fields) > 0 {
			return nil, errs.New(errs.Configuration, "node kind uses reserved property name",
				"kind", name, "fields", fields)
		}
	}
	onDelete := opts.OnDelete
	if onDelete == "" {
		onDelete = OnDeleteRestrict
	}
	for _, u := range opts.Unique {
		if u.Name == "" || len(u.Fields) == 0 {
			return nil, errs.New(errs.Configuration, "uniqueness constraint requires a name and at least one field",
				"kind", name)
		}
	}
	return &NodeKindReg{
		Name:        Kind(name),
		Schema:      opts.Schema,
		Description: opts.Description,
		OnDelete:    onDelete,
		Unique:      opts.Unique,
		Embeddings:  opts.Embeddings,
	}, nil
}

// EdgeOpts are the optional fields of DefineEdge.
type EdgeOpts struct {
	Schema            Schema
	Description       string
	From              []string
	To                []string
	Cardinality       Cardinality
	EndpointExistence EndpointExistence
}

// DefineEdge validates and freezes an edge kind registration. From/To must
// be non-empty when the edge kind is used directly (§4.A).
func DefineEdge(name string, opts EdgeOpts) (*EdgeKindReg, error) {
	if name == "" {
		return nil, errs.New(errs.Configuration, "edge kind name must not be empty")
	}
	if opts.Schema != nil {
		if fields := reservedFieldsIn(opts.Schema, reservedEdgeProps); len(fields) > 0 {
			return nil, errs.New(errs.Configuration, "edge kind uses reserved property name",
				"kind", name, "fields", fields)
		}
	}
	if len(opts.From) == 0 || len(opts.To) == 0 {
		return nil, errs.New(errs.Configuration, "edge kind requires non-empty from/to sets",
			"kind", name)
	}
	card := opts.Cardinality
	if card == "" {
		card = CardinalityMany
	}
	existence := opts.EndpointExistence
	if existence == "" {
		existence = EndpointNotDeleted
	}
	return &EdgeKindReg{
		Name:              Kind(name),
		Schema:            opts.Schema,
		Description:       opts.Description,
		From:              toSet(opts.From),
		To:                toSet(opts.To),
		Cardinality:       card,
		EndpointExistence: existence,
	}, nil
}

// MetaEdgeOpts are the optional fields of MetaEdge.
type MetaEdgeOpts struct {
	Transitive  bool
	Symmetric   bool
	Reflexive   bool
	Inverse     string
	Inference   InferenceCategory
	Description string
}

// MetaEdge declares a custom meta-edge. The twelve built-ins are provided
// pre-declared via BuiltinMetaEdges; users may add more.
func MetaEdge(name string, opts MetaEdgeOpts) (*MetaEdgeReg, error) {
	if name == "" {
		return nil, errs.New(errs.Configuration, "meta-edge name must not be empty")
	}
	inference := opts.Inference
	if inference == "" {
		inference = InferenceNone
	}
	return &MetaEdgeReg{
		Name:        name,
		Transitive:  opts.Transitive,
		Symmetric:   opts.Symmetric,
		Reflexive:   opts.Reflexive,
		Inverse:     opts.Inverse,
		Inference:   inference,
		Description: opts.Description,
	}, nil
}

// OntologyRelation applies a meta-edge to an ordered pair of endpoints.
// Each endpoint is a node kind name, edge kind name, or an external IRI
// string (§3).
type OntologyRelation struct {
	MetaEdge string
	From     string
	To       string
}

// GraphDefaults holds graph-wide defaults (§3).
type GraphDefaults struct {
	OnNodeDelete DeleteBehavior
	TemporalMode TemporalMode
}

// TemporalMode selects the validity view for a read (GLOSSARY).
type TemporalMode string

const (
	TemporalCurrent           TemporalMode = "current"
	TemporalIncludeEnded      TemporalMode = "includeEnded"
	TemporalIncludeTombstones TemporalMode = "includeTombstones"
	// TemporalAsOf is a prefix; actual instant travels alongside, see
	// pipeline.AsOf.
	TemporalAsOf TemporalMode = "asOf"
)

// Graph is the frozen graph definition: the mapping from kind name to
// registration, the ontology relations, and the defaults (§3).
type Graph struct {
	ID        string
	Nodes     map[Kind]*NodeKindReg
	Edges     map[Kind]*EdgeKindReg
	MetaEdges map[string]*MetaEdgeReg
	Ontology  []OntologyRelation
	Defaults  GraphDefaults
}

// GraphOpts are the inputs to DefineGraph.
type GraphOpts struct {
	ID        string
	Nodes     []*NodeKindReg
	Edges     []*EdgeKindReg
	MetaEdges []*MetaEdgeReg
	Ontology  []OntologyRelation
	Defaults  GraphDefaults
}

// DefineGraph assembles node/edge registrations and ontology relations
// into a frozen Graph. Edge registrations may narrow an edge kind's
// declared from/to set but must never widen it beyond what DefineEdge
// already fixed — there is nothing further to narrow at this layer since
// EdgeOpts.From/To already is the edge kind's own allowed set; narrowing
// happens when two different edge registrations share a name, which this
// constructor rejects as a configuration error rather than silently
// picking one (§3: "Edge registrations may narrow ... never widen").
func DefineGraph(opts GraphOpts) (*Graph, error) {
	if opts.ID == "" {
		return nil, errs.New(errs.Configuration, "graph id must not be empty")
	}
	g := &Graph{
		ID:        opts.ID,
		Nodes:     make(map[Kind]*NodeKindReg, len(opts.Nodes)),
		Edges:     make(map[Kind]*EdgeKindReg, len(opts.Edges)),
		MetaEdges: make(map[string]*MetaEdgeReg, len(opts.MetaEdges)+len(BuiltinMetaEdges)),
		Ontology:  opts.Ontology,
		Defaults:  opts.Defaults,
	}
	if g.Defaults.OnNodeDelete == "" {
		g.Defaults.OnNodeDelete = OnDeleteRestrict
	}
	if g.Defaults.TemporalMode == "" {
		g.Defaults.TemporalMode = TemporalCurrent
	}
	for name, me := range BuiltinMetaEdges {
		g.MetaEdges[name] = me
	}
	for _, n := range opts.Nodes {
		if n == nil {
			continue
		}
		if _, dup := g.Nodes[n.Name]; dup {
			return nil, errs.New(errs.Configuration, "duplicate node kind", "kind", n.Name)
		}
		g.Nodes[n.Name] = n
	}
	for _, e := range opts.Edges {
		if e == nil {
			continue
		}
		if _, dup := g.Edges[e.Name]; dup {
			return nil, errs.New(errs.Configuration, "duplicate edge kind", "kind", e.Name)
		}
		for from := range e.From {
			if !IsIRI(string(from)) {
				if _, ok := g.Nodes[from]; !ok {
					return nil, errs.New(errs.Configuration, "edge references unknown source node kind",
						"edge", e.Name, "kind", from)
				}
			}
		}
		for to := range e.To {
			if !IsIRI(string(to)) {
				if _, ok := g.Nodes[to]; !ok {
					return nil, errs.New(errs.Configuration, "edge references unknown target node kind",
						"edge", e.Name, "kind", to)
				}
			}
		}
		g.Edges[e.Name] = e
	}
	for _, me := range opts.MetaEdges {
		if me == nil {
			continue
		}
		g.MetaEdges[me.Name] = me
	}
	for _, rel := range opts.Ontology {
		if _, ok := g.MetaEdges[rel.MetaEdge]; !ok {
			return nil, errs.New(errs.Configuration, "ontology relation uses undeclared meta-edge",
				"metaEdge", rel.MetaEdge)
		}
	}
	return g, nil
}

func reservedFieldsIn(s Schema, reserved map[string]struct{}) []string {
	doc := s.Describe()
	props, _ := doc["properties"].(map[string]any)
	var bad []string
	for name := range props {
		if _, isReserved := reserved[name]; isReserved {
			bad = append(bad, name)
		}
	}
	return bad
}

func toSet(names []string) map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(names))
	for _, n := range names {
		m[Kind(n)] = struct{}{}
	}
	return m
}
