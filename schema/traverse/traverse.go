// Package traverse implements the schema graph's depth-first traversal
// iterators (C6): Ancestors, Descendants, DirectDependencies,
// TransitiveDependencies, DirectDependents, and AllDependents, all built
// over one generic DFS engine parameterized by an edge-selection function,
// plus the Keys/MapIntoOwned/FindByURI auxiliary combinators.
//
// Iterators are exposed as iter.Seq[schema.Key] (Go 1.23 range-over-func),
// the idiomatic analogue of Rust's lazy Iterator trait this traversal
// engine is grounded on (grill-core/src/schema/traverse.rs).
package traverse

import (
	"iter"

	"github.com/jsonschema-engine/interrogator/schema"
)

// edgesFunc selects which neighboring keys a DFS should descend into from key.
type edgesFunc func(g *schema.Graph, key schema.Key) []schema.Key

func dfs(g *schema.Graph, root schema.Key, edges edgesFunc, includeRoot bool) iter.Seq[schema.Key] {
	return func(yield func(schema.Key) bool) {
		seen := make(map[schema.Key]bool)
		var visit func(key schema.Key, emit bool) bool
		visit = func(key schema.Key, emit bool) bool {
			if seen[key] {
				return true
			}
			seen[key] = true
			if emit && !yield(key) {
				return false
			}
			for _, next := range edges(g, key) {
				if !visit(next, true) {
					return false
				}
			}
			return true
		}
		visit(root, includeRoot)
	}
}

func parentEdge(g *schema.Graph, key schema.Key) []schema.Key {
	cs, ok := g.Get(key)
	if !ok || cs.Parent == nil {
		return nil
	}
	return []schema.Key{*cs.Parent}
}

func subschemaEdges(g *schema.Graph, key schema.Key) []schema.Key {
	cs, ok := g.Get(key)
	if !ok {
		return nil
	}
	return cs.Subschemas
}

func referenceEdges(g *schema.Graph, key schema.Key) []schema.Key {
	cs, ok := g.Get(key)
	if !ok {
		return nil
	}
	out := make([]schema.Key, 0, len(cs.References))
	for _, r := range cs.References {
		out = append(out, r.Target)
	}
	return out
}

func dependentEdges(g *schema.Graph, key schema.Key) []schema.Key {
	cs, ok := g.Get(key)
	if !ok {
		return nil
	}
	return cs.Dependents
}

// Ancestors yields the chain from key to its forest root (exclusive of key
// itself), following parent edges (0 or 1 per schema).
func Ancestors(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return dfs(g, key, parentEdge, false)
}

// Descendants yields key's sub-schemas depth-first (exclusive of key
// itself), following each schema's Subschemas list. The compiler lists
// identified sub-schemas there too (with a nil Parent), so Descendants
// yields them and descends into them; it does not stop at an
// identified-schema boundary.
func Descendants(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return dfs(g, key, subschemaEdges, false)
}

// DirectDependencies yields the schemas key directly references, one step only.
func DirectDependencies(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return func(yield func(schema.Key) bool) {
		for _, k := range referenceEdges(g, key) {
			if !yield(k) {
				return
			}
		}
	}
}

// TransitiveDependencies yields every schema reachable from key by chained
// references, depth-first, each yielded at most once (exclusive of key itself).
func TransitiveDependencies(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return dfs(g, key, referenceEdges, false)
}

// DirectDependents yields the schemas that directly reference key, one step only.
func DirectDependents(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return func(yield func(schema.Key) bool) {
		for _, k := range dependentEdges(g, key) {
			if !yield(k) {
				return
			}
		}
	}
}

// AllDependents yields the reverse-reference closure of key, depth-first
// (exclusive of key itself).
func AllDependents(g *schema.Graph, key schema.Key) iter.Seq[schema.Key] {
	return dfs(g, key, dependentEdges, false)
}

// Keys drains seq into a slice of Keys — the "strip to key iterator" combinator.
func Keys(seq iter.Seq[schema.Key]) []schema.Key {
	var out []schema.Key
	for k := range seq {
		out = append(out, k)
	}
	return out
}

// MapIntoOwned maps each key in seq to its compiled schema value. Unlike the
// Rust Schema<'a> this combinator is named after, Graph.Get already returns
// CompiledSchema by value rather than a reference tied to the arena's
// lifetime, so "owning" a result here just means doing the lookup; a key no
// longer live in g is silently skipped.
func MapIntoOwned(g *schema.Graph, seq iter.Seq[schema.Key]) iter.Seq[schema.CompiledSchema] {
	return func(yield func(schema.CompiledSchema) bool) {
		for k := range seq {
			cs, ok := g.Get(k)
			if !ok {
				continue
			}
			if !yield(cs) {
				return
			}
		}
	}
}

// FindByURI returns the first key in seq whose compiled schema's id or URI
// list contains target (by canonical string comparison).
func FindByURI(g *schema.Graph, seq iter.Seq[schema.Key], target string) (schema.Key, bool) {
	for k := range seq {
		cs, ok := g.Get(k)
		if !ok {
			continue
		}
		if cs.ID != nil && cs.ID.CanonicalString() == target {
			return k, true
		}
		for _, u := range cs.URIs {
			if u.CanonicalString() == target {
				return k, true
			}
		}
	}
	return schema.Key{}, false
}
