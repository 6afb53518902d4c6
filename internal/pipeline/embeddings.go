package pipeline

import (
	"context"
	"math"
	"strings"

	"github.com/typegraph/tgcore/internal/core"
	"github.com/typegraph/tgcore/internal/errs"
)

// syncEmbeddings reconciles a node kind's declared embedding fields
// against props (§4.F.2 step 9): a field undefined in props loses its
// index row; a field present but null or not a well-formed vector of the
// declared dimension is left untouched; a well-formed vector is upserted.
func (p *Pipeline) syncEmbeddings(ctx context.Context, kind core.Kind, reg *core.NodeKindReg, id string, props map[string]any) error {
	for _, f := range reg.Embeddings {
		v, present := getByPath(props, f.Path)
		if !present {
			if err := p.Backend.DeleteEmbedding(ctx, p.GraphID, string(kind), id, f.Path); err != nil {
				return errs.DatabaseError("deleteEmbedding", err)
			}
			continue
		}
		if v == nil {
			continue
		}
		vec, ok := toFiniteVector(v, f.Dimension)
		if !ok {
			continue
		}
		if err := p.Backend.UpsertEmbedding(ctx, p.GraphID, string(kind), id, f.Path, vec); err != nil {
			return errs.DatabaseError("upsertEmbedding", err)
		}
	}
	return nil
}

// getByPath resolves a dot-separated path against nested
// map[string]any values, the way a node's properties blob nests JSON
// objects.
func getByPath(props map[string]any, path string) (any, bool) {
	cur := any(props)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// toFiniteVector validates that v is a []any (or []float64/[]float32) of
// exactly dim finite numbers and converts it to []float32.
func toFiniteVector(v any, dim int) ([]float32, bool) {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case []float64:
		raw = make([]any, len(t))
		for i, f := range t {
			raw[i] = f
		}
	case []float32:
		raw = make([]any, len(t))
		for i, f := range t {
			raw[i] = f
		}
	default:
		return nil, false
	}
	if len(raw) != dim {
		return nil, false
	}
	out := make([]float32, dim)
	for i, el := range raw {
		var f float64
		switch n := el.(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case int:
			f = float64(n)
		default:
			return nil, false
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}
