// Package keyword defines the abstract contract every keyword
// implementation satisfies (C4): a capability-set interface with required
// kind/compile/evaluate operations and optional identification/reference/
// anchor/subschema-discovery operations.
//
// Grounded on grill-core's Keyword trait (src/keyword.rs): Go has no trait
// default-methods, so each optional operation is its own small interface; a
// keyword supports an operation exactly when it implements that interface,
// and Supports reports which ones it implements. Base is an empty struct
// concrete keyword implementations embed; it adds no methods.
package keyword

import (
	"math/big"
	"regexp"

	"github.com/jsonschema-engine/interrogator/cache"
	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/internal/genarena"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/output"
	"github.com/jsonschema-engine/interrogator/uri"
)

// ErrUnimplemented is returned by Compile and Evaluate of this package's
// internal placeholder keyword. Optional operations do not return it: a
// keyword lacking one does not implement the corresponding interface.
const ErrUnimplemented = errors.Error("keyword: operation not implemented")

// Kind names the schema property (or properties, for a composite keyword
// jointly handling several) a Keyword implementation is responsible for.
type Kind struct {
	names []string
}

// Single returns a Kind for a keyword that handles exactly one schema property.
func Single(name string) Kind {
	return Kind{names: []string{name}}
}

// Composite returns a Kind for a keyword jointly handling several properties
// (e.g. a single keyword implementation covering both "if" and "then").
func Composite(names ...string) Kind {
	return Kind{names: append([]string(nil), names...)}
}

// IsComposite reports whether k names more than one property.
func (k Kind) IsComposite() bool {
	return len(k.names) > 1
}

// Names returns the property name(s) k covers.
func (k Kind) Names() []string {
	return k.names
}

// String returns a human-readable form of k, for diagnostics.
func (k Kind) String() string {
	if len(k.names) == 1 {
		return k.names[0]
	}
	s := "{"
	for i, n := range k.names {
		if i > 0 {
			s += ","
		}
		s += n
	}
	return s + "}"
}

// RawSchema is the pre-compiled view of a schema a Keyword's Compile and
// optional operations inspect: the raw decoded JSON value at some position
// within a document, its path, and the base URI relative references within
// it resolve against.
type RawSchema struct {
	Value   any
	Path    jsonpointer.Pointer
	BaseURI *uri.URI
}

// CompileContext carries the resources available to a Keyword's Compile
// call: the schema being compiled and the shared numeric/regex memoization
// caches (parsed once per compile pass, per the numbers-cache design in C8).
type CompileContext struct {
	Schema      RawSchema
	NumberCache *cache.Keyed[*big.Rat]
	RegexCache  *cache.Keyed[*regexp.Regexp]
}

// EvaluateContext carries the per-evaluation-call resources and location
// bookkeeping a Keyword's Evaluate call needs. EvaluateSchema lets a
// reference-like keyword (e.g. $ref) recurse into the evaluator without the
// keyword package depending on the evaluate package; it is wired by
// whichever evaluate.Evaluate call constructs the context.
type EvaluateContext struct {
	InstancePointer         jsonpointer.Pointer
	KeywordPointer          jsonpointer.Pointer
	AbsoluteKeywordLocation *uri.URI
	Scratch                 map[string]any
	NumberCache             *cache.Keyed[*big.Rat]
	Values                  *cache.Keyed[any]
	Annotations             map[string]any
	DynamicScope            []DynamicAnchorFrame

	// EvaluateSchema evaluates the schema at key against instance, returning
	// its output node. Used by $ref/$dynamicRef-like keywords.
	EvaluateSchema func(key genarena.Key, instancePointer jsonpointer.Pointer, instance any) (*output.Node, error)
	// ResolveDynamic resolves a $dynamicAnchor name against the current
	// dynamic scope, returning the nearest enclosing match (if any).
	ResolveDynamic func(name string) (genarena.Key, bool)
}

// DynamicAnchorFrame records one dynamic anchor visible at some point along
// the current evaluation path, used to resolve $dynamicRef.
type DynamicAnchorFrame struct {
	Name   string
	Schema genarena.Key
}

// PublishAnnotation records an annotation value under name for later
// unevaluated-* keywords (e.g. unevaluatedProperties reads "properties" and
// "patternProperties" annotations) in this evaluation's Annotations map.
func (ctx *EvaluateContext) PublishAnnotation(name string, value any) {
	if ctx.Annotations == nil {
		ctx.Annotations = make(map[string]any)
	}
	ctx.Annotations[name] = value
}

// Annotation returns a previously published annotation by keyword name.
func (ctx *EvaluateContext) Annotation(name string) (any, bool) {
	v, ok := ctx.Annotations[name]
	return v, ok
}

// Reference is a reference discovered by a Refs() implementation: the
// original URI-reference as written in the schema, and which property
// produced it.
type Reference struct {
	RawURI      string
	KeywordName string
}

// AnchorDecl is an anchor discovered by an Anchors() implementation.
type AnchorDecl struct {
	Name        string
	KeywordName string
}

// Keyword is the abstract contract every keyword implementation satisfies.
// Implementations must be safe to Clone and to use concurrently once
// compiled (no mutation after Compile returns).
type Keyword interface {
	// Kind returns the property name(s) this keyword is responsible for.
	Kind() Kind
	// Compile reports whether this keyword applies to the schema described
	// by ctx.Schema, optionally recording internal state for Evaluate. Must
	// be idempotent given equal inputs.
	Compile(ctx *CompileContext) (bool, error)
	// Evaluate applies the keyword to instance, returning an output node
	// (annotation or error) or nil if the keyword contributes nothing.
	Evaluate(ctx *EvaluateContext, instance any) (*output.Node, error)
	// Clone returns an independent copy suitable for compiling against a
	// fresh schema (a keyword prototype is cloned once per schema it applies to).
	Clone() Keyword
}

// Subschemas is implemented by keywords that introduce sub-schemas (e.g.
// properties, items, allOf). Returns the pointers, relative to the schema's
// own path, where sub-schemas occur.
type Subschemas interface {
	Subschemas(schema RawSchema) ([]jsonpointer.Pointer, error)
}

// Anchors is implemented by keywords that can declare anchors (e.g. $anchor,
// $dynamicAnchor).
type Anchors interface {
	Anchors(schema RawSchema) ([]AnchorDecl, error)
}

// Identifier is implemented by the keyword(s) that declare a schema's
// canonical id (e.g. $id); a dialect has at least one.
type Identifier interface {
	Identify(schema RawSchema) (string, bool, error)
}

// DialectIdentifier is implemented by the (exactly one, per dialect)
// keyword that declares which dialect governs a schema (e.g. $schema).
type DialectIdentifier interface {
	Dialect(schema RawSchema) (string, bool, error)
}

// Refs is implemented by keywords that reference other schemas (e.g. $ref,
// $dynamicRef).
type Refs interface {
	Refs(schema RawSchema) ([]Reference, error)
}

// ReferenceBinder is implemented by a Refs keyword that needs the resolved
// schema.Key for a reference it reported attached back to it once the
// compiler has resolved references across the schema graph, so Evaluate can
// recurse via EvaluateContext.EvaluateSchema without the keyword package
// importing schema.
type ReferenceBinder interface {
	BindReference(rawURI string, target genarena.Key)
}

// SubschemaBinder is implemented by a Subschemas keyword that needs the
// resolved schema.Key for each sub-schema pointer it reported, attached back
// to it once the compiler has recursively compiled each one.
type SubschemaBinder interface {
	BindSubschema(pointer jsonpointer.Pointer, target genarena.Key)
}

// Base is embedded by concrete Keyword implementations. It has no methods:
// an embedder supports an optional operation by implementing the
// corresponding interface directly, and does not support it otherwise.
type Base struct{}

var _ Keyword = (*unimplementedKeyword)(nil)

type unimplementedKeyword struct{ Base }

func (unimplementedKeyword) Kind() Kind { return Kind{} }
func (unimplementedKeyword) Compile(*CompileContext) (bool, error) {
	return false, ErrUnimplemented
}
func (unimplementedKeyword) Evaluate(*EvaluateContext, any) (*output.Node, error) {
	return nil, ErrUnimplemented
}
func (unimplementedKeyword) Clone() Keyword { return unimplementedKeyword{} }

// Supports reports which optional interfaces k implements. Nothing caches
// the answer; dialect.NewDialect calls it once per keyword prototype to
// check the identifier and dialect-identifier roles.
func Supports(k Keyword) (subschemas, anchors, identify, dialectID, refs bool) {
	_, subschemas = k.(Subschemas)
	_, anchors = k.(Anchors)
	_, identify = k.(Identifier)
	_, dialectID = k.(DialectIdentifier)
	_, refs = k.(Refs)
	return
}
