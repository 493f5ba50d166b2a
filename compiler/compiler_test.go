package compiler_test

import (
	"context"
	"testing"

	"github.com/jsonschema-engine/interrogator/compiler"
	"github.com/jsonschema-engine/interrogator/decode"
	"github.com/jsonschema-engine/interrogator/dialect"
	"github.com/jsonschema-engine/interrogator/internal/testdialect"
	"github.com/jsonschema-engine/interrogator/resolve"
	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/source"
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

// harness bundles a Compiler wired with internal/testdialect as its sole,
// default dialect, plus direct access to the underlying collaborators so
// tests can pre-seed documents and inspect the resulting graph.
type harness struct {
	Sources  *source.Sources
	Graph    *schema.Graph
	Compiler *compiler.Compiler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sources := source.New()
	graph := schema.New()
	registry := dialect.NewRegistry()

	d, err := dialect.NewDialect(mustURI(t, testdialect.ID), nil, testdialect.New())
	require.NoError(t, err)
	require.NoError(t, registry.Register(d, sources, nil))
	require.NoError(t, registry.SetDefault(mustURI(t, testdialect.ID)))

	c := compiler.New(sources, registry, graph, resolve.NewChain(), decode.NewChain())
	return &harness{Sources: sources, Graph: graph, Compiler: c}
}

func (h *harness) seed(t *testing.T, rawURI string, value any) {
	t.Helper()
	_, err := h.Sources.Insert(mustURI(t, rawURI), value, nil)
	require.NoError(t, err)
}

func TestCompile_BasicType(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/s", map[string]any{"type": "string"})

	key, err := h.Compiler.Compile(context.Background(), "https://ex/s")
	require.NoError(t, err)

	cs, ok := h.Graph.Get(key)
	require.True(t, ok)
	assert.Len(t, cs.Keywords, 1)
	assert.Nil(t, cs.Parent)
}

func TestCompile_PopulatesCacheStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/pattern", map[string]any{"minimum": 3})

	_, err := h.Compiler.Compile(context.Background(), "https://ex/pattern")
	require.NoError(t, err)

	stats := h.Compiler.CacheStats()
	assert.Contains(t, stats, "compiler.numbers")
	assert.Contains(t, stats, "compiler.regexes")

	h.Compiler.ClearCaches()
	stats = h.Compiler.CacheStats()
	assert.Equal(t, int64(0), stats["compiler.numbers"])
	assert.Equal(t, int64(0), stats["compiler.regexes"])
}

func TestCompile_NestedRef(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/a", map[string]any{"$ref": "https://ex/b"})
	h.seed(t, "https://ex/b", map[string]any{"type": "number"})

	aKey, err := h.Compiler.Compile(context.Background(), "https://ex/a")
	require.NoError(t, err)

	aSchema, ok := h.Graph.Get(aKey)
	require.True(t, ok)
	require.Len(t, aSchema.References, 1)
	bKey := aSchema.References[0].Target

	bSchema, ok := h.Graph.Get(bKey)
	require.True(t, ok)
	assert.Contains(t, bSchema.Dependents, aKey)
}

func TestCompile_Anchor(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/c", map[string]any{
		"properties": map[string]any{
			"x": map[string]any{"$anchor": "foo", "type": "integer"},
		},
		"$ref": "#foo",
	})

	rootKey, err := h.Compiler.Compile(context.Background(), "https://ex/c")
	require.NoError(t, err)

	root, ok := h.Graph.Get(rootKey)
	require.True(t, ok)
	require.Len(t, root.Subschemas, 1)
	require.Len(t, root.References, 1)

	assert.Equal(t, root.Subschemas[0], root.References[0].Target,
		"the $ref to #foo must resolve to the anchored properties/x subschema")
}

func TestCompile_Cycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/r", map[string]any{
		"properties": map[string]any{
			"next": map[string]any{"$ref": "https://ex/r"},
		},
	})

	rootKey, err := h.Compiler.Compile(context.Background(), "https://ex/r")
	require.NoError(t, err)

	root, ok := h.Graph.Get(rootKey)
	require.True(t, ok)
	require.Len(t, root.Subschemas, 1)
	nextKey := root.Subschemas[0]

	next, ok := h.Graph.Get(nextKey)
	require.True(t, ok)
	require.Len(t, next.References, 1)
	assert.Equal(t, rootKey, next.References[0].Target)
	assert.Contains(t, root.Dependents, nextKey)
}

func TestCompile_AnyOf(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/e", map[string]any{
		"anyOf": []any{
			map[string]any{"type": "integer"},
			map[string]any{"minimum": float64(2)},
		},
	})

	key, err := h.Compiler.Compile(context.Background(), "https://ex/e")
	require.NoError(t, err)

	cs, ok := h.Graph.Get(key)
	require.True(t, ok)
	assert.Len(t, cs.Subschemas, 2)
}

func TestCompileAll_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/ok", map[string]any{"type": "string"})
	// https://ex/missing is never seeded and no resolver is registered, so
	// resolving it fails and the whole compile_all call must roll back.

	_, err := h.Compiler.CompileAll(context.Background(), []string{"https://ex/ok", "https://ex/missing"})
	require.Error(t, err)

	_, ok := h.Graph.GetByURI(mustURI(t, "https://ex/ok"))
	assert.False(t, ok, "a schema compiled earlier in a failed compile_all must not survive rollback")

	_, ok = h.Sources.Lookup(mustURI(t, "https://ex/ok"))
	assert.True(t, ok, "a document seeded before compile_all is not part of its transaction and survives rollback")
}

func TestCompile_ShortCircuitsOnRepeatedCompile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/s", map[string]any{"type": "string"})

	key1, err := h.Compiler.Compile(context.Background(), "https://ex/s")
	require.NoError(t, err)
	key2, err := h.Compiler.Compile(context.Background(), "https://ex/s")
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
}

func TestCompile_DialectUnknown(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.seed(t, "https://ex/u", map[string]any{"$schema": "https://ex/does-not-exist", "type": "string"})

	_, err := h.Compiler.Compile(context.Background(), "https://ex/u")
	assert.ErrorIs(t, err, compiler.ErrDialectNotKnown)
}
