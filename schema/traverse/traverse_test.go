package traverse_test

import (
	"testing"

	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/schema/traverse"
	"github.com/jsonschema-engine/interrogator/uri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURI(t *testing.T, s string) *uri.URI {
	t.Helper()
	u, err := uri.Parse(s)
	require.NoError(t, err)
	return u
}

// buildTree installs root -> mid -> leaf as a subschema chain and returns their keys.
func buildTree(t *testing.T) (g *schema.Graph, root, mid, leaf schema.Key) {
	t.Helper()
	g = schema.New()

	root = g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/root")}, nil)
	rootRef := root
	mid = g.Insert(schema.CompiledSchema{Parent: &rootRef}, nil)
	midRef := mid
	leaf = g.Insert(schema.CompiledSchema{Parent: &midRef}, nil)

	require.NoError(t, g.SetSubschemas(root, []schema.Key{mid}, nil))
	require.NoError(t, g.SetSubschemas(mid, []schema.Key{leaf}, nil))
	return
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	g, root, mid, leaf := buildTree(t)
	got := traverse.Keys(traverse.Ancestors(g, leaf))
	assert.Equal(t, []schema.Key{mid, root}, got)
}

func TestDescendants(t *testing.T) {
	t.Parallel()

	g, root, mid, leaf := buildTree(t)
	got := traverse.Keys(traverse.Descendants(g, root))
	assert.Equal(t, []schema.Key{mid, leaf}, got)
}

func TestDescendants_Leaf_Empty(t *testing.T) {
	t.Parallel()

	g, _, _, leaf := buildTree(t)
	got := traverse.Keys(traverse.Descendants(g, leaf))
	assert.Empty(t, got)
}

func TestDirectDependenciesAndTransitive(t *testing.T) {
	t.Parallel()

	g := schema.New()
	c := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/c")}, nil)
	b := g.Insert(schema.CompiledSchema{
		ID:         mustURI(t, "https://ex/b"),
		References: []schema.Reference{{Target: c, KeywordName: "$ref"}},
	}, nil)
	a := g.Insert(schema.CompiledSchema{
		ID:         mustURI(t, "https://ex/a"),
		References: []schema.Reference{{Target: b, KeywordName: "$ref"}},
	}, nil)

	assert.Equal(t, []schema.Key{b}, traverse.Keys(traverse.DirectDependencies(g, a)))
	assert.Equal(t, []schema.Key{b, c}, traverse.Keys(traverse.TransitiveDependencies(g, a)))
}

func TestDirectDependentsAndAll(t *testing.T) {
	t.Parallel()

	g := schema.New()
	target := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/target")}, nil)
	mid := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/mid")}, nil)
	top := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/top")}, nil)

	require.NoError(t, g.AddDependent(target, mid, nil))
	require.NoError(t, g.AddDependent(mid, top, nil))

	assert.Equal(t, []schema.Key{mid}, traverse.Keys(traverse.DirectDependents(g, target)))
	assert.Equal(t, []schema.Key{mid, top}, traverse.Keys(traverse.AllDependents(g, target)))
}

func TestTransitiveDependencies_CycleSafe(t *testing.T) {
	t.Parallel()

	// a references b and b references a; the DFS must terminate and yield
	// each key exactly once despite the cycle.
	g := schema.New()
	a := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/a")}, nil)
	b := g.Insert(schema.CompiledSchema{
		ID:         mustURI(t, "https://ex/b"),
		References: []schema.Reference{{Target: a, KeywordName: "$ref"}},
	}, nil)

	require.NoError(t, g.SetReferences(a, []schema.Reference{{Target: b, KeywordName: "$ref"}}, nil))

	assert.NotPanics(t, func() {
		got := traverse.Keys(traverse.TransitiveDependencies(g, a))
		assert.Len(t, got, 1, "b is reached once even though it loops back to a")
		assert.Equal(t, b, got[0])
	})
}

func TestMapIntoOwned(t *testing.T) {
	t.Parallel()

	g, root, mid, leaf := buildTree(t)

	var got []schema.CompiledSchema
	for cs := range traverse.MapIntoOwned(g, traverse.Descendants(g, root)) {
		got = append(got, cs)
	}
	require.Len(t, got, 2)
	assert.Equal(t, root, *got[0].Parent)
	assert.Equal(t, mid, *got[1].Parent)

	// a key no longer present in the graph is skipped rather than zero-valued.
	ghost := mid
	got = nil
	seq := func(yield func(schema.Key) bool) {
		if !yield(leaf) {
			return
		}
		yield(ghost)
	}
	for cs := range traverse.MapIntoOwned(schema.New(), seq) {
		got = append(got, cs)
	}
	assert.Empty(t, got)
}

func TestFindByURI(t *testing.T) {
	t.Parallel()

	g := schema.New()
	target := mustURI(t, "https://ex/target")
	want := g.Insert(schema.CompiledSchema{ID: target, URIs: []*uri.URI{target}}, nil)
	root := g.Insert(schema.CompiledSchema{ID: mustURI(t, "https://ex/root")}, nil)
	require.NoError(t, g.SetSubschemas(root, []schema.Key{want}, nil))

	got, ok := traverse.FindByURI(g, traverse.Descendants(g, root), "https://ex/target")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = traverse.FindByURI(g, traverse.Descendants(g, root), "https://ex/missing")
	assert.False(t, ok)
}
