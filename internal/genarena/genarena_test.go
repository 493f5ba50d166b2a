package genarena_test

import (
	"testing"

	"github.com/jsonschema-engine/interrogator/internal/genarena"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_InsertGet(t *testing.T) {
	t.Parallel()

	a := genarena.New[string]()
	k1 := a.Insert("one")
	k2 := a.Insert("two")

	v1, ok := a.Get(k1)
	require.True(t, ok)
	assert.Equal(t, "one", v1)

	v2, ok := a.Get(k2)
	require.True(t, ok)
	assert.Equal(t, "two", v2)

	assert.Equal(t, 2, a.Len())
}

func TestArena_RemoveInvalidatesKey(t *testing.T) {
	t.Parallel()

	a := genarena.New[int]()
	k := a.Insert(42)

	v, ok := a.Remove(k)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = a.Get(k)
	assert.False(t, ok, "removed key must not resolve")
	assert.False(t, a.Contains(k))
}

func TestArena_SlotReuseDoesNotAliasStaleKey(t *testing.T) {
	t.Parallel()

	a := genarena.New[string]()
	k1 := a.Insert("first")
	_, _ = a.Remove(k1)

	k2 := a.Insert("second")

	_, ok := a.Get(k1)
	assert.False(t, ok, "stale key from a removed-then-reused slot must stay invalid")

	v2, ok := a.Get(k2)
	require.True(t, ok)
	assert.Equal(t, "second", v2)
}

func TestArena_ZeroKeyInvalid(t *testing.T) {
	t.Parallel()

	var a genarena.Arena[int]
	var zeroKey genarena.Key

	assert.False(t, zeroKey.Valid())
	_, ok := a.Get(zeroKey)
	assert.False(t, ok)
}

func TestArena_SnapshotRestore(t *testing.T) {
	t.Parallel()

	a := genarena.New[int]()
	a.Insert(1)
	snap := a.Snapshot()

	a.Insert(2)
	a.Insert(3)
	assert.Equal(t, 3, a.Len())

	a.Restore(snap)
	assert.Equal(t, 1, a.Len())
}

func TestArena_SetMutatesInPlace(t *testing.T) {
	t.Parallel()

	a := genarena.New[int]()
	k := a.Insert(1)

	ok := a.Set(k, 2)
	require.True(t, ok)

	v, _ := a.Get(k)
	assert.Equal(t, 2, v)
}

func TestArena_Keys(t *testing.T) {
	t.Parallel()

	a := genarena.New[int]()
	k1 := a.Insert(1)
	k2 := a.Insert(2)

	keys := a.Keys()
	assert.ElementsMatch(t, []genarena.Key{k1, k2}, keys)
}
