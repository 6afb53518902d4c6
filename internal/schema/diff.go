package schema

import (
	"fmt"
)

// Severity classifies a modification's risk (§4.D).
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// ChangeKind classifies whether a kind was added, removed, or modified.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// NodeChange describes what happened to one node kind between two
// documents.
type NodeChange struct {
	Name     string
	Kind     ChangeKind
	Severity Severity
	Reasons  []string
}

// EdgeChange describes what happened to one edge kind.
type EdgeChange struct {
	Name     string
	Kind     ChangeKind
	Severity Severity
	Reasons  []string
}

// RelationChange describes what happened to one ontology relation
// triple, keyed by metaEdge:from:to (§4.D).
type RelationChange struct {
	Key  string
	Kind ChangeKind
}

// PlanAction is one step of the migration plan the differ emits for
// every breaking change (§4.D). The core never executes this plan — per
// spec.md §1 Non-goals, breaking migrations are reported, not run.
type PlanAction struct {
	Description string
}

// Diff is the structured comparison of two canonical documents.
type Diff struct {
	Nodes              []NodeChange
	Edges              []EdgeChange
	Relations          []RelationChange
	Summary            string
	HasChanges         bool
	HasBreakingChanges bool
	Plan               []PlanAction
}

// Compare diffs two canonical documents (§4.D).
func Compare(before, after *Document) *Diff {
	d := &Diff{}

	beforeNodes := indexNodes(before.Nodes)
	afterNodes := indexNodes(after.Nodes)
	for name := range union(keysOfNodes(beforeNodes), keysOfNodes(afterNodes)) {
		b, inBefore := beforeNodes[name]
		a, inAfter := afterNodes[name]
		switch {
		case !inBefore && inAfter:
			d.Nodes = append(d.Nodes, NodeChange{Name: name, Kind: ChangeAdded, Severity: SeveritySafe})
		case inBefore && !inAfter:
			d.Nodes = append(d.Nodes, NodeChange{
				Name: name, Kind: ChangeRemoved, Severity: SeverityBreaking,
				Reasons: []string{"node kind removed"},
			})
			d.Plan = append(d.Plan, PlanAction{Description: fmt.Sprintf("DELETE data for removed kind %s", name)})
		default:
			if nc := diffNode(name, b, a); nc != nil {
				d.Nodes = append(d.Nodes, *nc)
				if nc.Severity == SeverityBreaking {
					for _, reason := range nc.Reasons {
						d.Plan = append(d.Plan, PlanAction{
							Description: fmt.Sprintf("MIGRATE data for %s: %s", name, reason),
						})
					}
				}
			}
		}
	}

	beforeEdges := indexEdges(before.Edges)
	afterEdges := indexEdges(after.Edges)
	for name := range union(keysOfEdges(beforeEdges), keysOfEdges(afterEdges)) {
		b, inBefore := beforeEdges[name]
		a, inAfter := afterEdges[name]
		switch {
		case !inBefore && inAfter:
			d.Edges = append(d.Edges, EdgeChange{Name: name, Kind: ChangeAdded, Severity: SeveritySafe})
		case inBefore && !inAfter:
			d.Edges = append(d.Edges, EdgeChange{
				Name: name, Kind: ChangeRemoved, Severity: SeverityBreaking,
				Reasons: []string{"edge kind removed"},
			})
			d.Plan = append(d.Plan, PlanAction{Description: fmt.Sprintf("DELETE data for removed kind %s", name)})
		default:
			if ec := diffEdge(name, b, a); ec != nil {
				d.Edges = append(d.Edges, *ec)
				if ec.Severity == SeverityBreaking {
					for _, reason := range ec.Reasons {
						d.Plan = append(d.Plan, PlanAction{
							Description: fmt.Sprintf("MIGRATE data for %s: %s", name, reason),
						})
					}
				}
			}
		}
	}

	beforeRel := indexRelations(before.Ontology.Relations)
	afterRel := indexRelations(after.Ontology.Relations)
	for key := range union(keysOfRelations(beforeRel), keysOfRelations(afterRel)) {
		_, inBefore := beforeRel[key]
		_, inAfter := afterRel[key]
		switch {
		case !inBefore && inAfter:
			d.Relations = append(d.Relations, RelationChange{Key: key, Kind: ChangeAdded})
		case inBefore && !inAfter:
			d.Relations = append(d.Relations, RelationChange{Key: key, Kind: ChangeRemoved})
		}
	}

	added, removed, modified := 0, 0, 0
	for _, n := range d.Nodes {
		switch n.Kind {
		case ChangeAdded:
			added++
		case ChangeRemoved:
			removed++
		case ChangeModified:
			modified++
		}
		if n.Severity == SeverityBreaking {
			d.HasBreakingChanges = true
		}
	}
	for _, e := range d.Edges {
		if e.Severity == SeverityBreaking {
			d.HasBreakingChanges = true
		}
	}

	d.HasChanges = len(d.Nodes) > 0 || len(d.Edges) > 0 || len(d.Relations) > 0
	d.Summary = fmt.Sprintf("Nodes: %d added, %d removed, %d modified; Edges: %d changed; Relations: %d changed",
		added, removed, modified, len(d.Edges), len(d.Relations))

	return d
}

func diffNode(name string, b, a NodeDoc) *NodeChange {
	var reasons []string
	severity := SeveritySafe

	removedProps, addedRequired, addedOptional := compareProperties(b.Properties, a.Properties)
	if len(removedProps) > 0 {
		reasons = append(reasons, fmt.Sprintf("properties removed: %v", removedProps))
		severity = SeverityBreaking
	}
	if len(addedRequired) > 0 {
		reasons = append(reasons, fmt.Sprintf("new required properties: %v", addedRequired))
		severity = SeverityBreaking
	}

	if b.OnDelete != a.OnDelete {
		reasons = append(reasons, "onDelete changed")
		severity = maxSeverity(severity, SeverityWarning)
	}
	if !uniqueEqual(b.Unique, a.Unique) {
		reasons = append(reasons, "uniqueness constraints changed")
		severity = maxSeverity(severity, SeverityWarning)
	}
	if len(addedOptional) > 0 {
		reasons = append(reasons, fmt.Sprintf("optional properties added: %v", addedOptional))
		severity = maxSeverity(severity, SeveritySafe)
	}

	if len(reasons) == 0 {
		return nil
	}
	return &NodeChange{Name: name, Kind: ChangeModified, Severity: severity, Reasons: reasons}
}

func diffEdge(name string, b, a EdgeDoc) *EdgeChange {
	var reasons []string
	severity := SeveritySafe

	removedProps, addedRequired, _ := compareProperties(b.Properties, a.Properties)
	if len(removedProps) > 0 {
		reasons = append(reasons, fmt.Sprintf("properties removed: %v", removedProps))
		severity = SeverityBreaking
	}
	if len(addedRequired) > 0 {
		reasons = append(reasons, fmt.Sprintf("new required properties: %v", addedRequired))
		severity = SeverityBreaking
	}
	if !stringSliceEqual(b.FromKinds, a.FromKinds) || !stringSliceEqual(b.ToKinds, a.ToKinds) {
		reasons = append(reasons, "from/to sets changed")
		severity = maxSeverity(severity, SeverityWarning)
	}
	if b.Cardinality != a.Cardinality {
		reasons = append(reasons, "cardinality changed")
		severity = maxSeverity(severity, SeverityWarning)
	}

	if len(reasons) == 0 {
		return nil
	}
	return &EdgeChange{Name: name, Kind: ChangeModified, Severity: severity, Reasons: reasons}
}

// compareProperties inspects two JSON-Schema-like property documents
// (each with "properties" and "required" keys, as produced by a
// core.Schema.Describe() implementation) and reports what changed.
func compareProperties(before, after map[string]any) (removed, addedRequired, addedOptional []string) {
	beforeProps, _ := before["properties"].(map[string]any)
	afterProps, _ := after["properties"].(map[string]any)
	beforeRequired := toStringSet(before["required"])
	afterRequired := toStringSet(after["required"])

	for name := range beforeProps {
		if _, ok := afterProps[name]; !ok {
			removed = append(removed, name)
		}
	}
	for name := range afterProps {
		if _, existed := beforeProps[name]; existed {
			continue
		}
		if afterRequired[name] {
			addedRequired = append(addedRequired, name)
		} else {
			addedOptional = append(addedOptional, name)
		}
	}
	// a property that existed but became required is also breaking.
	for name := range afterRequired {
		if !beforeRequired[name] {
			if _, existed := beforeProps[name]; existed {
				addedRequired = append(addedRequired, name)
			}
		}
	}
	return removed, addedRequired, addedOptional
}

func toStringSet(v any) map[string]bool {
	out := map[string]bool{}
	items, _ := v.([]any)
	for _, item := range items {
		if s, ok := item.(string); ok {
			out[s] = true
		}
	}
	return out
}

func maxSeverity(a, b Severity) Severity {
	rank := map[Severity]int{SeveritySafe: 0, SeverityWarning: 1, SeverityBreaking: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func indexNodes(nodes []NodeDoc) map[string]NodeDoc {
	m := make(map[string]NodeDoc, len(nodes))
	for _, n := range nodes {
		m[n.Name] = n
	}
	return m
}

func indexEdges(edges []EdgeDoc) map[string]EdgeDoc {
	m := make(map[string]EdgeDoc, len(edges))
	for _, e := range edges {
		m[e.Name] = e
	}
	return m
}

func indexRelations(rels []RelationDoc) map[string]RelationDoc {
	m := make(map[string]RelationDoc, len(rels))
	for _, r := range rels {
		m[r.Key()] = r
	}
	return m
}

func keysOfNodes(m map[string]NodeDoc) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func keysOfEdges(m map[string]EdgeDoc) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func keysOfRelations(m map[string]RelationDoc) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func union(sets ...map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func uniqueEqual(a, b []UniqueDoc) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Collation != b[i].Collation || a[i].Scope != b[i].Scope {
			return false
		}
		if !stringSliceEqual(a[i].Fields, b[i].Fields) {
			return false
		}
	}
	return true
}
