// Package schema implements the schema graph (C5): a generational-index
// store of compiled schemas with their parent/child/reference/dependent
// edges, addressable by Key and by every absolute URI under which they are
// reachable.
package schema

import (
	"sync"

	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/internal/genarena"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/source"
	"github.com/jsonschema-engine/interrogator/uri"
)

// Key is an opaque, generational handle to a compiled schema. It is a type
// alias (not a distinct type) for genarena.Key so that keyword.Keyword
// implementations — which reference schemas only through
// keyword.EvaluateContext.EvaluateSchema(key genarena.Key, ...) to avoid a
// keyword→schema import cycle — can be handed a schema.Key directly.
type Key = genarena.Key

const (
	// ErrUnknownKey is returned when a Key does not resolve within a Graph
	// (the "cross-interrogator contamination" invariant violation).
	ErrUnknownKey = errors.Error("unknown schema key")
)

// Reference records one schema-to-schema reference discovered during
// compilation (e.g. by $ref).
type Reference struct {
	Target          Key
	AbsoluteTarget  *uri.URI
	RawURIReference string
	KeywordName     string
}

// Anchor records one anchor declared within a schema.
type Anchor struct {
	Name        string
	AbsoluteURI *uri.URI
	KeywordName string
}

// CompiledSchema is the immutable (post-commit) compiled form of one schema.
type CompiledSchema struct {
	ID         *uri.URI
	URIs       []*uri.URI
	Parent     *Key
	Subschemas []Key
	References []Reference
	Dependents []Key
	Anchors    []Anchor
	DialectURI *uri.URI
	Path       jsonpointer.Pointer
	Keywords   []keyword.Keyword

	// Source is the source-repository link this schema's value was taken
	// from, so a compiled schema can always be traced back to the exact
	// document position it was compiled out of.
	Source source.SourceKey
}

// Graph is the schema graph: a generational arena of CompiledSchema values
// plus a secondary URI→Key index.
type Graph struct {
	mu      sync.RWMutex
	schemas *genarena.Arena[CompiledSchema]
	byURI   map[string]Key
}

// New returns an empty schema graph.
func New() *Graph {
	return &Graph{
		schemas: genarena.New[CompiledSchema](),
		byURI:   make(map[string]Key),
	}
}

// Get returns the compiled schema for key.
func (g *Graph) Get(key Key) (CompiledSchema, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.schemas.Get(key)
}

// MustGet returns the compiled schema for key, panicking if key is unknown.
// Reserved for call sites that have already validated the key (e.g.
// immediately after Insert), mirroring the spec's get_unchecked.
func (g *Graph) MustGet(key Key) CompiledSchema {
	cs, ok := g.Get(key)
	if !ok {
		panic(ErrUnknownKey)
	}
	return cs
}

// ContainsKey reports whether key resolves to a live schema.
func (g *Graph) ContainsKey(key Key) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.schemas.Contains(key)
}

// EnsureKeyExists returns ErrUnknownKey if key does not resolve.
func (g *Graph) EnsureKeyExists(key Key) error {
	if !g.ContainsKey(key) {
		return ErrUnknownKey
	}
	return nil
}

// GetByURI resolves an absolute URI (canonical id, document+pointer URI, or
// anchor URI) to its Key.
func (g *Graph) GetByURI(u *uri.URI) (Key, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	key, ok := g.byURI[u.CanonicalString()]
	return key, ok
}

// Insert appends cs to the graph and registers every URI in cs.URIs,
// returning its new Key.
func (g *Graph) Insert(cs CompiledSchema, txn *Txn) Key {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := g.schemas.Insert(cs)
	g.journal(txn, journalEntry{kind: journalInsertSchema, key: key})
	for _, u := range cs.URIs {
		g.registerURILocked(key, u, txn)
	}
	return key
}

// RegisterURI adds an additional URI alias (e.g. a late-discovered anchor
// URI) resolving to key.
func (g *Graph) RegisterURI(key Key, u *uri.URI, txn *Txn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registerURILocked(key, u, txn)
}

func (g *Graph) registerURILocked(key Key, u *uri.URI, txn *Txn) {
	canon := u.CanonicalString()
	if _, exists := g.byURI[canon]; exists {
		return
	}
	g.byURI[canon] = key
	g.journal(txn, journalEntry{kind: journalRegisterURI, uriKey: canon})
}

// AddDependent appends dependent to target's reverse-edge list (invariant 5:
// every reference's target records its referrer as a dependent).
func (g *Graph) AddDependent(target, dependent Key, txn *Txn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs, ok := g.schemas.Get(target)
	if !ok {
		return ErrUnknownKey
	}
	g.captureForMutation(txn, target, cs)

	cs.Dependents = append(cs.Dependents, dependent)
	g.schemas.Set(target, cs)
	return nil
}

// SetSubschemas overwrites target's subschema-key list (populated once the
// compiler has recursively compiled each located sub-schema).
func (g *Graph) SetSubschemas(target Key, subschemas []Key, txn *Txn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs, ok := g.schemas.Get(target)
	if !ok {
		return ErrUnknownKey
	}
	g.captureForMutation(txn, target, cs)

	cs.Subschemas = subschemas
	g.schemas.Set(target, cs)
	return nil
}

// SetReferences overwrites target's reference list (populated once the
// compiler has resolved every $ref-like keyword found within it).
func (g *Graph) SetReferences(target Key, refs []Reference, txn *Txn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cs, ok := g.schemas.Get(target)
	if !ok {
		return ErrUnknownKey
	}
	g.captureForMutation(txn, target, cs)

	cs.References = refs
	g.schemas.Set(target, cs)
	return nil
}
