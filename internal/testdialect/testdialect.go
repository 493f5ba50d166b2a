// Package testdialect is a minimal, test-only JSON Schema dialect (type,
// $ref, $anchor, anyOf, properties, minimum, $id, $schema) used to exercise
// the compiler and evaluator in their own tests. It is not a production
// keyword library — the concrete keyword/dialect set remains an external
// collaborator.
package testdialect

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/jsonschema-engine/interrogator/internal/genarena"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/output"
)

// ID is this dialect's canonical identifier.
const ID = "https://ex.test/dialects/testdialect"

// New returns one clone-ready prototype of each keyword in the dialect, in
// the order the compiler should link them (identification first).
func New() []keyword.Keyword {
	return []keyword.Keyword{
		&SchemaKeyword{},
		&IDKeyword{},
		&AnchorKeyword{},
		&TypeKeyword{},
		&MinimumKeyword{},
		&PropertiesKeyword{},
		&AnyOfKeyword{},
		&RefKeyword{},
	}
}

func jsonType(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case float64:
		if val == float64(int64(val)) {
			return "integer"
		}
		return "number"
	default:
		if n, ok := asRat(v); ok {
			if n.IsInt() {
				return "integer"
			}
			return "number"
		}
		return "unknown"
	}
}

func asRat(v any) (*big.Rat, bool) {
	switch val := v.(type) {
	case fmt.Stringer:
		r, ok := new(big.Rat).SetString(val.String())
		return r, ok
	case float64:
		return new(big.Rat).SetFloat64(val), true
	case int:
		return new(big.Rat).SetInt64(int64(val)), true
	case int64:
		return new(big.Rat).SetInt64(val), true
	default:
		return nil, false
	}
}

// SchemaKeyword implements the dialect-identification role via "$schema".
type SchemaKeyword struct{ keyword.Base }

func (*SchemaKeyword) Kind() keyword.Kind { return keyword.Single("$schema") }

func (k *SchemaKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	_, present := m["$schema"]
	return present, nil
}

func (*SchemaKeyword) Evaluate(*keyword.EvaluateContext, any) (*output.Node, error) {
	return nil, nil
}

func (*SchemaKeyword) Clone() keyword.Keyword { return &SchemaKeyword{} }

func (*SchemaKeyword) Dialect(schema keyword.RawSchema) (string, bool, error) {
	m, ok := schema.Value.(map[string]any)
	if !ok {
		return "", false, nil
	}
	s, ok := m["$schema"].(string)
	return s, ok, nil
}

// IDKeyword implements the identification role via "$id".
type IDKeyword struct{ keyword.Base }

func (*IDKeyword) Kind() keyword.Kind { return keyword.Single("$id") }

func (k *IDKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	_, present := m["$id"]
	return present, nil
}

func (*IDKeyword) Evaluate(*keyword.EvaluateContext, any) (*output.Node, error) {
	return nil, nil
}

func (*IDKeyword) Clone() keyword.Keyword { return &IDKeyword{} }

func (*IDKeyword) Identify(schema keyword.RawSchema) (string, bool, error) {
	m, ok := schema.Value.(map[string]any)
	if !ok {
		return "", false, nil
	}
	id, ok := m["$id"].(string)
	return id, ok, nil
}

// AnchorKeyword declares anchors via "$anchor".
type AnchorKeyword struct{ keyword.Base }

func (*AnchorKeyword) Kind() keyword.Kind { return keyword.Single("$anchor") }

func (k *AnchorKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	_, present := m["$anchor"]
	return present, nil
}

func (*AnchorKeyword) Evaluate(*keyword.EvaluateContext, any) (*output.Node, error) {
	return nil, nil
}

func (*AnchorKeyword) Clone() keyword.Keyword { return &AnchorKeyword{} }

func (*AnchorKeyword) Anchors(schema keyword.RawSchema) ([]keyword.AnchorDecl, error) {
	m, ok := schema.Value.(map[string]any)
	if !ok {
		return nil, nil
	}
	name, ok := m["$anchor"].(string)
	if !ok {
		return nil, nil
	}
	return []keyword.AnchorDecl{{Name: name, KeywordName: "$anchor"}}, nil
}

// TypeKeyword validates the instance's JSON type against "type".
type TypeKeyword struct {
	keyword.Base
	expected []string
}

func (*TypeKeyword) Kind() keyword.Kind { return keyword.Single("type") }

func (k *TypeKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	raw, present := m["type"]
	if !present {
		return false, nil
	}
	switch v := raw.(type) {
	case string:
		k.expected = []string{v}
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				k.expected = append(k.expected, s)
			}
		}
	}
	return true, nil
}

func (k *TypeKeyword) Evaluate(ctx *keyword.EvaluateContext, instance any) (*output.Node, error) {
	actual := jsonType(instance)
	for _, want := range k.expected {
		if want == actual || (want == "number" && actual == "integer") {
			return output.NewValid(ctx.InstancePointer, ctx.KeywordPointer, nil), nil
		}
	}
	return output.NewInvalid(ctx.InstancePointer, ctx.KeywordPointer,
		fmt.Sprintf("expected type %v, got %s", k.expected, actual)), nil
}

func (k *TypeKeyword) Clone() keyword.Keyword {
	return &TypeKeyword{expected: append([]string(nil), k.expected...)}
}

// MinimumKeyword validates a numeric lower bound via "minimum", parsing the
// literal once per compile through ctx.NumberCache.
type MinimumKeyword struct {
	keyword.Base
	bound *big.Rat
}

func (*MinimumKeyword) Kind() keyword.Kind { return keyword.Single("minimum") }

func (k *MinimumKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	raw, present := m["minimum"]
	if !present {
		return false, nil
	}

	literal := fmt.Sprintf("%v", raw)
	bound, err := ctx.NumberCache.GetOrCreate(literal, func() (*big.Rat, error) {
		r, ok := asRat(raw)
		if !ok {
			return nil, fmt.Errorf("minimum: not a number: %v", raw)
		}
		return r, nil
	})
	if err != nil {
		return false, err
	}
	k.bound = bound
	return true, nil
}

func (k *MinimumKeyword) Evaluate(ctx *keyword.EvaluateContext, instance any) (*output.Node, error) {
	n, ok := asRat(instance)
	if !ok {
		return nil, nil
	}
	if n.Cmp(k.bound) >= 0 {
		return output.NewValid(ctx.InstancePointer, ctx.KeywordPointer, nil), nil
	}
	return output.NewInvalid(ctx.InstancePointer, ctx.KeywordPointer,
		fmt.Sprintf("%s is less than minimum %s", n.RatString(), k.bound.RatString())), nil
}

func (k *MinimumKeyword) Clone() keyword.Keyword { return &MinimumKeyword{bound: k.bound} }

// PropertiesKeyword recurses into sub-schemas named in "properties".
type PropertiesKeyword struct {
	keyword.Base
	names   []string
	targets map[jsonpointer.Pointer]genarena.Key
}

func (*PropertiesKeyword) Kind() keyword.Kind { return keyword.Single("properties") }

func (k *PropertiesKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return false, nil
	}
	for name := range props {
		k.names = append(k.names, name)
	}
	sort.Strings(k.names)
	k.targets = make(map[jsonpointer.Pointer]genarena.Key, len(k.names))
	return true, nil
}

func (k *PropertiesKeyword) Subschemas(keyword.RawSchema) ([]jsonpointer.Pointer, error) {
	out := make([]jsonpointer.Pointer, len(k.names))
	for i, name := range k.names {
		out[i] = jsonpointer.New("properties", jsonpointer.Token(name))
	}
	return out, nil
}

func (k *PropertiesKeyword) BindSubschema(pointer jsonpointer.Pointer, target genarena.Key) {
	k.targets[pointer] = target
}

func (k *PropertiesKeyword) Evaluate(ctx *keyword.EvaluateContext, instance any) (*output.Node, error) {
	m, ok := instance.(map[string]any)
	if !ok {
		return nil, nil
	}

	parent := output.NewValid(ctx.InstancePointer, ctx.KeywordPointer, nil)
	parent.Transient = true
	evaluated := make([]string, 0, len(k.names))

	for _, name := range k.names {
		val, present := m[name]
		if !present {
			continue
		}
		ptr := jsonpointer.New("properties", jsonpointer.Token(name))
		target, ok := k.targets[ptr]
		if !ok {
			continue
		}
		node, err := ctx.EvaluateSchema(target, ctx.InstancePointer.Append(jsonpointer.Token(name)), val)
		if err != nil {
			return nil, err
		}
		if node != nil {
			parent.AddChild(node)
		}
		evaluated = append(evaluated, name)
	}

	ctx.PublishAnnotation("properties", evaluated)
	return parent, nil
}

func (k *PropertiesKeyword) Clone() keyword.Keyword {
	return &PropertiesKeyword{
		names:   append([]string(nil), k.names...),
		targets: make(map[jsonpointer.Pointer]genarena.Key),
	}
}

// AnyOfKeyword requires at least one sub-schema in "anyOf" to validate.
type AnyOfKeyword struct {
	keyword.Base
	count   int
	targets []genarena.Key
}

func (*AnyOfKeyword) Kind() keyword.Kind { return keyword.Single("anyOf") }

func (k *AnyOfKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	list, ok := m["anyOf"].([]any)
	if !ok {
		return false, nil
	}
	k.count = len(list)
	k.targets = make([]genarena.Key, k.count)
	return true, nil
}

func (k *AnyOfKeyword) Subschemas(keyword.RawSchema) ([]jsonpointer.Pointer, error) {
	out := make([]jsonpointer.Pointer, k.count)
	for i := range out {
		out[i] = jsonpointer.New("anyOf").AppendIndex(i)
	}
	return out, nil
}

func (k *AnyOfKeyword) BindSubschema(pointer jsonpointer.Pointer, target genarena.Key) {
	for i := 0; i < k.count; i++ {
		if pointer == jsonpointer.New("anyOf").AppendIndex(i) {
			k.targets[i] = target
			return
		}
	}
}

func (k *AnyOfKeyword) Evaluate(ctx *keyword.EvaluateContext, instance any) (*output.Node, error) {
	parent := &output.Node{
		InstanceLocation: ctx.InstancePointer,
		KeywordLocation:  ctx.KeywordPointer,
	}

	for _, target := range k.targets {
		node, err := ctx.EvaluateSchema(target, ctx.InstancePointer, instance)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		if node.Valid {
			parent.Valid = true
		}
		parent.Children = append(parent.Children, node)
	}

	if !parent.Valid {
		parent.HasError = true
		parent.Error = "instance does not match any subschema in anyOf"
	}
	return parent, nil
}

func (k *AnyOfKeyword) Clone() keyword.Keyword {
	return &AnyOfKeyword{count: k.count, targets: make([]genarena.Key, k.count)}
}

// RefKeyword resolves "$ref" against its bound target schema.
type RefKeyword struct {
	keyword.Base
	rawURI string
	target genarena.Key
}

func (*RefKeyword) Kind() keyword.Kind { return keyword.Single("$ref") }

func (k *RefKeyword) Compile(ctx *keyword.CompileContext) (bool, error) {
	m, ok := ctx.Schema.Value.(map[string]any)
	if !ok {
		return false, nil
	}
	ref, ok := m["$ref"].(string)
	if !ok {
		return false, nil
	}
	k.rawURI = ref
	return true, nil
}

func (k *RefKeyword) Refs(keyword.RawSchema) ([]keyword.Reference, error) {
	return []keyword.Reference{{RawURI: k.rawURI, KeywordName: "$ref"}}, nil
}

func (k *RefKeyword) BindReference(rawURI string, target genarena.Key) {
	if rawURI == k.rawURI {
		k.target = target
	}
}

func (k *RefKeyword) Evaluate(ctx *keyword.EvaluateContext, instance any) (*output.Node, error) {
	return ctx.EvaluateSchema(k.target, ctx.InstancePointer, instance)
}

func (k *RefKeyword) Clone() keyword.Keyword { return &RefKeyword{rawURI: k.rawURI} }
