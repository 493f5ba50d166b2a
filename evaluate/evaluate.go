// Package evaluate implements the evaluator (C8): driving a compiled
// schema's keyword list against an instance value, producing the output
// tree (C9) that output.Document projects into the four JSON Schema
// 2020-12 verbosity shapes.
//
// Grounded on grill-core's interrogator.rs evaluation path and grill's
// output.rs annotation-accumulation model. The numbers cache (exact
// big-rational parsing of JSON number literals, keyed by the literal
// string) is grounded on other_examples/f9fe5ae3..._compiler.go.go's
// loadRat/big.Rat use, generalized into a per-evaluation-pass
// cache.Keyed[*big.Rat] so repeated literals are parsed once across an
// entire evaluate call.
package evaluate

import (
	"math/big"

	"github.com/jsonschema-engine/interrogator/cache"
	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/output"
	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/uri"
)

// ErrUnknownKey mirrors schema.ErrUnknownKey, returned when asked to
// evaluate a key that does not resolve within Evaluator's graph (the
// cross-interrogator contamination invariant violation).
const ErrUnknownKey = errors.Error("evaluate: unknown schema key")

// Evaluator drives evaluation of compiled schemas in a schema.Graph. A
// committed graph is immutable, so an Evaluator is safe for concurrent use
// by any number of goroutines (§5: compiled state is read-only once a
// transaction commits).
type Evaluator struct {
	Graph *schema.Graph
}

// New returns an Evaluator over graph.
func New(graph *schema.Graph) *Evaluator {
	return &Evaluator{Graph: graph}
}

// Evaluate evaluates the compiled schema key against instance, producing an
// output.Document ready for serialization as structure. Evaluation is a
// pure function of the compiled graph plus (key, instance): repeated calls
// with equal inputs yield equal outputs (invariant 8).
func (e *Evaluator) Evaluate(key schema.Key, structure output.Structure, instance any) (*output.Document, error) {
	numberCache := cache.NewKeyed[*big.Rat]()
	root, err := e.evalSchema(key, "", instance, nil, numberCache, structure)
	if err != nil {
		return nil, err
	}
	return output.New(structure, root), nil
}

// evalSchema evaluates the compiled schema at key against instance,
// appearing at instancePointer within the overall instance document.
// dynScope carries the dynamic anchors accumulated along the current
// evaluation path (for $dynamicRef resolution); numberCache is shared
// across the whole Evaluate call.
func (e *Evaluator) evalSchema(key schema.Key, instancePointer jsonpointer.Pointer, instance any, dynScope []keyword.DynamicAnchorFrame, numberCache *cache.Keyed[*big.Rat], structure output.Structure) (*output.Node, error) {
	cs, ok := e.Graph.Get(key)
	if !ok {
		return nil, ErrUnknownKey
	}

	scope := dynScope
	for _, a := range cs.Anchors {
		if a.KeywordName == "$dynamicAnchor" {
			frame := keyword.DynamicAnchorFrame{Name: a.Name, Schema: key}
			scope = append(append([]keyword.DynamicAnchorFrame(nil), scope...), frame)
		}
	}

	ctx := &keyword.EvaluateContext{
		InstancePointer: instancePointer,
		KeywordPointer:  cs.Path,
		NumberCache:     numberCache,
		Values:          cache.NewKeyed[any](),
		Annotations:     make(map[string]any),
		DynamicScope:    scope,
	}
	ctx.EvaluateSchema = func(target schema.Key, instPtr jsonpointer.Pointer, inst any) (*output.Node, error) {
		return e.evalSchema(target, instPtr, inst, scope, numberCache, structure)
	}
	ctx.ResolveDynamic = func(name string) (schema.Key, bool) {
		for i := len(scope) - 1; i >= 0; i-- {
			if scope[i].Name == name {
				return scope[i].Schema, true
			}
		}
		return schema.Key{}, false
	}

	parent := &output.Node{InstanceLocation: instancePointer, KeywordLocation: cs.Path, Valid: true}

	for _, kw := range cs.Keywords {
		kwPointer := keywordPointer(cs.Path, kw)
		ctx.KeywordPointer = kwPointer
		ctx.AbsoluteKeywordLocation = absoluteKeywordLocation(cs, kwPointer)

		node, err := kw.Evaluate(ctx, instance)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		parent.AddChild(node)

		if structure == output.Flag && !parent.Valid {
			break
		}
	}

	return parent, nil
}

func keywordPointer(base jsonpointer.Pointer, kw keyword.Keyword) jsonpointer.Pointer {
	names := kw.Kind().Names()
	if len(names) == 0 {
		return base
	}
	return base.Append(jsonpointer.Token(names[0]))
}

// absoluteKeywordLocation builds the absolute URI of one keyword's location
// within cs, using cs's own canonical identity (the id it was compiled under,
// falling back to its first registered URI for an unidentified schema) as
// the base.
func absoluteKeywordLocation(cs schema.CompiledSchema, kwPointer jsonpointer.Pointer) *uri.URI {
	base := cs.ID
	if base == nil && len(cs.URIs) > 0 {
		base = cs.URIs[0]
	}
	if base == nil {
		return nil
	}
	u := base.WithoutFragment()
	frag := string(kwPointer)
	u.SetFragment(&frag)
	return u
}
