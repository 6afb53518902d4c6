package schema

import "testing"

func docWithNode(names ...string) *Document {
	doc := &Document{GraphID: "g1"}
	for _, n := range names {
		doc.Nodes = append(doc.Nodes, NodeDoc{Name: n, Properties: map[string]any{"properties": map[string]any{}}})
	}
	return doc
}

func TestDiffSelfIsEmpty(t *testing.T) {
	d := docWithNode("Person")
	diff := Compare(d, d)
	if diff.HasChanges || diff.HasBreakingChanges {
		t.Fatalf("diffing a document against itself must report no changes")
	}
}

func TestRemovingNodeKindIsBreaking(t *testing.T) {
	before := docWithNode("Person", "Company")
	after := docWithNode("Person")

	diff := Compare(before, after)
	if !diff.HasBreakingChanges {
		t.Fatalf("removing a node kind must be breaking")
	}
}

func TestAddingRequiredPropertyIsBreaking(t *testing.T) {
	before := &Document{Nodes: []NodeDoc{{
		Name:       "Person",
		Properties: map[string]any{"properties": map[string]any{"name": map[string]any{}}, "required": []any{}},
	}}}
	after := &Document{Nodes: []NodeDoc{{
		Name: "Person",
		Properties: map[string]any{
			"properties": map[string]any{"name": map[string]any{}, "ssn": map[string]any{}},
			"required":   []any{"ssn"},
		},
	}}}

	diff := Compare(before, after)
	if !diff.HasBreakingChanges {
		t.Fatalf("adding a required property must be breaking")
	}
}

func TestAddingOptionalPropertyIsSafe(t *testing.T) {
	before := &Document{Nodes: []NodeDoc{{
		Name:       "Person",
		Properties: map[string]any{"properties": map[string]any{"name": map[string]any{}}, "required": []any{}},
	}}}
	after := &Document{Nodes: []NodeDoc{{
		Name: "Person",
		Properties: map[string]any{
			"properties": map[string]any{"name": map[string]any{}, "nickname": map[string]any{}},
			"required":   []any{},
		},
	}}}

	diff := Compare(before, after)
	if diff.HasBreakingChanges {
		t.Fatalf("adding an optional property must not be breaking")
	}
	if !diff.HasChanges {
		t.Fatalf("expected a safe change to be recorded")
	}
}
