package uri_test

import (
	"testing"

	"github.com/jsonschema-engine/interrogator/cache"
	"github.com/jsonschema-engine/interrogator/uri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RegistersWithDefaultCacheManager(t *testing.T) {
	// Not parallel: reads the process-wide cache.DefaultManager other
	// package-level caches may also be registering with.
	_, err := uri.Parse("https://ex.com/registers-cache")
	require.NoError(t, err)

	stats := cache.AllStats()
	size, ok := stats["uri.parse"]
	require.True(t, ok, "uri package should register its parse cache with cache.DefaultManager")
	assert.GreaterOrEqual(t, size, int64(1))
}

func TestParse_AbsoluteURL(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("https://ex.com/schemas/a.json")
	require.NoError(t, err)
	assert.Equal(t, uri.KindAbsolute, u.Kind())
	assert.True(t, u.IsAbsolute())
	assert.Equal(t, "https", u.Scheme())
}

func TestParse_URN(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("urn:example:schema:person")
	require.NoError(t, err)
	assert.Equal(t, uri.KindURN, u.Kind())
	assert.True(t, u.IsAbsolute())
}

func TestParse_URN_Invalid(t *testing.T) {
	t.Parallel()

	_, err := uri.Parse("urn::missing-nid")
	assert.ErrorIs(t, err, uri.ErrFailedToParseURN)
}

func TestParse_Relative(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("a/b.json")
	require.NoError(t, err)
	assert.Equal(t, uri.KindRelative, u.Kind())
	assert.False(t, u.IsAbsolute())
}

func TestURI_Fragment(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("https://ex.com/s#/definitions/x")
	require.NoError(t, err)

	frag, ok := u.Fragment()
	require.True(t, ok)
	assert.True(t, frag.IsPointer())
	p, ok := frag.AsPointer()
	require.True(t, ok)
	assert.Equal(t, "/definitions/x", string(p))
}

func TestURI_Fragment_Anchor(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("https://ex.com/s#foo")
	require.NoError(t, err)

	frag, ok := u.Fragment()
	require.True(t, ok)
	assert.True(t, frag.IsAnchor())
	name, ok := frag.AsAnchor()
	require.True(t, ok)
	assert.Equal(t, "foo", name)
}

func TestURI_SetFragment(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("https://ex.com/s")
	require.NoError(t, err)

	u.SetFragment(nil)
	assert.Equal(t, "https://ex.com/s", u.String())

	empty := ""
	u.SetFragment(&empty)
	assert.Equal(t, "https://ex.com/s#", u.String())

	name := "x"
	u.SetFragment(&name)
	assert.Equal(t, "https://ex.com/s#x", u.String())
}

func TestURI_WithoutFragment(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("https://ex.com/s#/a")
	require.NoError(t, err)

	base := u.WithoutFragment()
	assert.Equal(t, "https://ex.com/s", base.String())
	// original is untouched
	assert.Equal(t, "https://ex.com/s#/a", u.String())
}

func TestURI_ResolveReference(t *testing.T) {
	t.Parallel()

	base, err := uri.Parse("https://ex.com/a/b.json")
	require.NoError(t, err)

	ref, err := uri.Parse("c.json")
	require.NoError(t, err)

	resolved := base.ResolveReference(ref)
	assert.Equal(t, "https://ex.com/a/c.json", resolved.String())
}

func TestURI_ResolveReference_AbsolutePath(t *testing.T) {
	t.Parallel()

	base, err := uri.Parse("https://ex.com/a/b.json")
	require.NoError(t, err)
	ref, err := uri.Parse("/z.json")
	require.NoError(t, err)

	resolved := base.ResolveReference(ref)
	assert.Equal(t, "https://ex.com/z.json", resolved.String())
}

func TestURI_Normalize_LowercasesScheme(t *testing.T) {
	t.Parallel()

	u, err := uri.Parse("HTTPS://ex.com/a/../b.json")
	require.NoError(t, err)

	n := u.Normalize()
	assert.Equal(t, "https", n.Scheme())
	assert.Equal(t, "https://ex.com/b.json", n.String())
}

func TestURI_Idempotence(t *testing.T) {
	t.Parallel()

	// Invariant 7: parsing then serializing an absolute URI yields the same
	// canonical string.
	raw := "https://ex.com/s"
	u, err := uri.Parse(raw)
	require.NoError(t, err)

	reparsed, err := uri.Parse(u.Normalize().String())
	require.NoError(t, err)

	assert.Equal(t, u.Normalize().String(), reparsed.Normalize().String())
}

func TestURI_Equal(t *testing.T) {
	t.Parallel()

	a, err := uri.Parse("HTTPS://ex.com/s#")
	require.NoError(t, err)
	b, err := uri.Parse("https://ex.com/s")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestParseAbsolute_RejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := uri.ParseAbsolute("a/b.json")
	assert.ErrorIs(t, err, uri.ErrNotAbsolute)
}
