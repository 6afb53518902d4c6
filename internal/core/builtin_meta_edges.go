package core

// BuiltinMetaEdges are the twelve meta-edges every graph gets for free
// (§3). Users may still declare additional custom meta-edges via
// MetaEdge; those are merged on top of this set in DefineGraph, so a
// custom declaration with the same name overrides a built-in.
var BuiltinMetaEdges = map[string]*MetaEdgeReg{
	"subClassOf": {
		Name: "subClassOf", Transitive: true, Inference: InferenceSubsumption,
		Description: "child is a kind of parent",
	},
	"broader": {
		Name: "broader", Transitive: true, Inverse: "narrower", Inference: InferenceHierarchy,
		Description: "concept is broader than the related concept",
	},
	"narrower": {
		Name: "narrower", Transitive: true, Inverse: "broader", Inference: InferenceHierarchy,
		Description: "concept is narrower than the related concept",
	},
	"relatedTo": {
		Name: "relatedTo", Inference: InferenceAssociation,
		Description: "loosely associated concepts",
	},
	"equivalentTo": {
		Name: "equivalentTo", Symmetric: true, Transitive: true, Inference: InferenceSubstitution,
		Description: "concepts that may be used interchangeably",
	},
	"sameAs": {
		Name: "sameAs", Symmetric: true, Transitive: true, Inference: InferenceSubstitution,
		Description: "identical referents under different names",
	},
	"differentFrom": {
		Name: "differentFrom", Symmetric: true, Inference: InferenceConstraint,
		Description: "explicitly distinct referents",
	},
	"disjointWith": {
		Name: "disjointWith", Symmetric: true, Inference: InferenceConstraint,
		Description: "no instance may belong to both kinds at once",
	},
	"partOf": {
		Name: "partOf", Transitive: true, Inverse: "hasPart", Inference: InferenceComposition,
		Description: "part-whole relationship",
	},
	"hasPart": {
		Name: "hasPart", Transitive: true, Inverse: "partOf", Inference: InferenceComposition,
		Description: "whole-part relationship",
	},
	"inverseOf": {
		Name: "inverseOf", Inference: InferenceAssociation,
		Description: "declares that two edge kinds are each other's inverse",
	},
	"implies": {
		Name: "implies", Transitive: true, Inference: InferenceAssociation,
		Description: "the presence of one edge kind implies another",
	},
}
