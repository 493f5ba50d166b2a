package output_test

import (
	"encoding/json"
	"testing"

	"github.com/jsonschema-engine/interrogator/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree() *output.Node {
	root := output.NewValid("", "", nil)
	child := output.NewInvalid("", "/type", "expected string")
	root.AddChild(child)
	return root
}

func TestNode_AddChild_UpdatesValidity(t *testing.T) {
	t.Parallel()

	root := output.NewValid("", "", nil)
	assert.True(t, root.Valid)

	root.AddChild(output.NewInvalid("", "/type", "nope"))
	assert.False(t, root.Valid, "adding an invalid child must flip parent validity")
}

func TestNode_AddChild_SplicesTransient(t *testing.T) {
	t.Parallel()

	root := output.NewValid("", "", nil)
	transient := &output.Node{Valid: true, Transient: true}
	transient.AddChild(output.NewValid("/a", "/then/a", "x"))
	transient.AddChild(output.NewValid("/b", "/then/b", "y"))

	root.AddChild(transient)

	assert.Len(t, root.Children, 2, "a transient child's children must be spliced into the parent")
}

func TestDocument_Flag_Marshal(t *testing.T) {
	t.Parallel()

	doc := output.New(output.Flag, buildTree())
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":false}`, string(data))
}

func TestDocument_Basic_Marshal(t *testing.T) {
	t.Parallel()

	doc := output.New(output.Basic, buildTree())
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["valid"])
	assert.NotEmpty(t, decoded["errors"])
}

func TestDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	// Invariant 1: serializing then deserializing an output tree yields an
	// equivalent tree (same validity, same annotations/errors).
	doc := output.New(output.Verbose, buildTree())
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var roundTripped output.Document
	require.NoError(t, json.Unmarshal(data, &roundTripped))

	assert.Equal(t, doc.Root.Valid, roundTripped.Root.Valid)
	require.Len(t, roundTripped.Root.Children, 1)
	assert.Equal(t, doc.Root.Children[0].Error, roundTripped.Root.Children[0].Error)
}

func TestNode_Prune_CollapsesSingleChild(t *testing.T) {
	t.Parallel()

	root := &output.Node{Valid: true}
	mid := &output.Node{Valid: true}
	leaf := output.NewValid("/a", "/properties/a", "ann")
	mid.Children = []*output.Node{leaf}
	root.Children = []*output.Node{mid}

	pruned := root.Prune()
	assert.Same(t, leaf, pruned, "a chain of single-child, contribution-free nodes collapses to the leaf")
}

func TestNode_Prune_DropsEmptyNode(t *testing.T) {
	t.Parallel()

	root := &output.Node{Valid: true}
	assert.Nil(t, root.Prune())
}

func TestParseStructure(t *testing.T) {
	t.Parallel()

	for _, s := range []output.Structure{output.Flag, output.Basic, output.Detailed, output.Verbose} {
		parsed, ok := output.ParseStructure(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}

	_, ok := output.ParseStructure("bogus")
	assert.False(t, ok)
}

func TestTranslator_Applied(t *testing.T) {
	t.Parallel()

	doc := output.New(output.Basic, buildTree())
	doc.Translator = func(_ string, msg string) string { return "translated: " + msg }

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "translated: expected string")
}
