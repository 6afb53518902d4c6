package ontology

import (
	"testing"

	"github.com/typegraph/tgcore/internal/core"
)

func rel(meta, from, to string) core.OntologyRelation {
	return core.OntologyRelation{MetaEdge: meta, From: from, To: to}
}

func TestSubClassTransitivity(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("subClassOf", "Dog", "Animal"),
		rel("subClassOf", "Animal", "LivingThing"),
	}, core.BuiltinMetaEdges)

	if _, ok := c.SubClassAncestors["Dog"]["LivingThing"]; !ok {
		t.Fatalf("expected Dog to transitively be a subclass of LivingThing")
	}
	if _, ok := c.SubClassDescendants["LivingThing"]["Dog"]; !ok {
		t.Fatalf("expected LivingThing descendants to include Dog")
	}
}

func TestAncestorsDescendantsAreInverses(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("subClassOf", "A", "B"),
	}, core.BuiltinMetaEdges)

	for a, ancestors := range c.SubClassAncestors {
		for b := range ancestors {
			if _, ok := c.SubClassDescendants[b][a]; !ok {
				t.Fatalf("descendants(%s) missing %s though ancestors(%s) contains it", b, a, a)
			}
		}
	}
}

func TestEquivalenceSymmetricTransitiveSelfExcluding(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("equivalentTo", "Car", "Automobile"),
		rel("equivalentTo", "Automobile", "Vehicle4Wheel"),
	}, core.BuiltinMetaEdges)

	for _, k := range []string{"Car", "Automobile", "Vehicle4Wheel"} {
		if _, ok := c.EquivalenceSets[k][k]; ok {
			t.Fatalf("equivalence set for %s must not contain itself", k)
		}
	}
	if _, ok := c.EquivalenceSets["Car"]["Vehicle4Wheel"]; !ok {
		t.Fatalf("expected Car to be transitively equivalent to Vehicle4Wheel")
	}
	if _, ok := c.EquivalenceSets["Vehicle4Wheel"]["Car"]; !ok {
		t.Fatalf("equivalence must be symmetric")
	}
}

func TestDisjointSymmetricIrreflexive(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("disjointWith", "Person", "Organization"),
	}, core.BuiltinMetaEdges)

	if _, ok := c.DisjointPairs[normalizePair("Person", "Organization")]; !ok {
		t.Fatalf("expected normalized disjoint pair to be present")
	}
	if _, ok := c.DisjointPairs[normalizePair("Organization", "Person")]; !ok {
		t.Fatalf("normalized pair should match regardless of declaration order")
	}
	if _, ok := c.DisjointPairs[normalizePair("Person", "Person")]; ok {
		t.Fatalf("a kind must never be disjoint with itself")
	}
}

func TestInverseOfIsInvolution(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("inverseOf", "managerOf", "managedBy"),
	}, core.BuiltinMetaEdges)

	if c.EdgeInverses["managerOf"] != "managedBy" {
		t.Fatalf("expected managerOf -> managedBy")
	}
	if c.EdgeInverses[c.EdgeInverses["managerOf"]] != "managerOf" {
		t.Fatalf("inverseOf must be an involution")
	}
}

func TestOrderIndependence(t *testing.T) {
	relsA := []core.OntologyRelation{
		rel("subClassOf", "Dog", "Animal"),
		rel("subClassOf", "Animal", "LivingThing"),
		rel("disjointWith", "Person", "Organization"),
	}
	relsB := []core.OntologyRelation{
		rel("disjointWith", "Person", "Organization"),
		rel("subClassOf", "Animal", "LivingThing"),
		rel("subClassOf", "Dog", "Animal"),
	}

	ca := Build(relsA, core.BuiltinMetaEdges)
	cb := Build(relsB, core.BuiltinMetaEdges)

	if !setsEqual(ca.SubClassAncestors["Dog"], cb.SubClassAncestors["Dog"]) {
		t.Fatalf("closures must be order independent")
	}
}

func TestDuplicateAndReflexiveIdempotent(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("subClassOf", "Dog", "Animal"),
		rel("subClassOf", "Dog", "Animal"),
		rel("subClassOf", "Dog", "Dog"),
	}, core.BuiltinMetaEdges)

	if len(c.SubClassAncestors["Dog"]) != 1 {
		t.Fatalf("expected a single ancestor after duplicate/reflexive relations, got %v", c.SubClassAncestors["Dog"])
	}
	if _, ok := c.SubClassAncestors["Dog"]["Dog"]; ok {
		t.Fatalf("a kind must never be its own ancestor")
	}
}

func TestIRIMapping(t *testing.T) {
	c := Build([]core.OntologyRelation{
		rel("sameAs", "Person", "https://schema.org/Person"),
	}, core.BuiltinMetaEdges)

	if c.IRIToKind["https://schema.org/Person"] != "Person" {
		t.Fatalf("expected IRI to resolve to Person, got %q", c.IRIToKind["https://schema.org/Person"])
	}
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
