// Package output implements the output model (C9): the four JSON Schema
// output verbosity shapes (Flag, Basic, Detailed, Verbose) over a single
// Node tree, transient-node splicing for if/then/else, and JSON
// (de)serialization conforming to the JSON Schema 2020-12 output contract.
//
// Grounded on grill's output.rs: one tree of Node values built up during
// evaluation, pruned or flattened differently depending on which Structure
// the caller asked for.
package output

import (
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/uri"
)

// Structure selects one of the four output verbosity shapes.
type Structure int

const (
	Flag Structure = iota
	Basic
	Detailed
	Verbose
)

// String returns the "fmt" field value matching s.
func (s Structure) String() string {
	switch s {
	case Flag:
		return "flag"
	case Basic:
		return "basic"
	case Detailed:
		return "detailed"
	case Verbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// ParseStructure parses the "fmt" field value into a Structure.
func ParseStructure(s string) (Structure, bool) {
	switch s {
	case "flag":
		return Flag, true
	case "basic":
		return Basic, true
	case "detailed":
		return Detailed, true
	case "verbose":
		return Verbose, true
	default:
		return 0, false
	}
}

// Node is one keyword evaluation's contribution to the output tree: its
// validity, location triad, an annotation XOR an error (never both), and
// its children.
type Node struct {
	Valid                   bool
	InstanceLocation        jsonpointer.Pointer
	KeywordLocation         jsonpointer.Pointer
	AbsoluteKeywordLocation *uri.URI

	HasAnnotation bool
	Annotation    any

	HasError bool
	Error    string

	Children []*Node

	// Transient marks a node (e.g. the synthetic wrapper for if/then/else)
	// whose own position is never kept in the output tree: AddChild splices
	// a transient child's children directly into the parent instead of
	// nesting it.
	Transient bool
}

// NewValid returns a childless valid Node carrying an annotation.
func NewValid(instanceLoc, keywordLoc jsonpointer.Pointer, annotation any) *Node {
	return &Node{
		Valid:            true,
		InstanceLocation: instanceLoc,
		KeywordLocation:  keywordLoc,
		HasAnnotation:    annotation != nil,
		Annotation:       annotation,
	}
}

// NewInvalid returns a childless invalid Node carrying an error message.
func NewInvalid(instanceLoc, keywordLoc jsonpointer.Pointer, errMsg string) *Node {
	return &Node{
		Valid:            false,
		InstanceLocation: instanceLoc,
		KeywordLocation:  keywordLoc,
		HasError:         true,
		Error:            errMsg,
	}
}

// AddChild appends child to n, updating n's validity via logical AND. If
// child is Transient, its own children are spliced into n directly instead
// of nesting child itself (the if/then/else wrapper-node convention).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	n.Valid = n.Valid && child.Valid
	if child.Transient {
		n.Children = append(n.Children, child.Children...)
		return
	}
	n.Children = append(n.Children, child)
}

// Prune recursively removes Detailed-structure dead weight: nodes with no
// children and no direct contribution (no annotation, no error) are
// dropped; a node with exactly one child is replaced by that child.
func (n *Node) Prune() *Node {
	if n == nil {
		return nil
	}
	var kept []*Node
	for _, c := range n.Children {
		pruned := c.Prune()
		if pruned == nil {
			continue
		}
		kept = append(kept, pruned)
	}
	n.Children = kept

	if len(n.Children) == 0 && !n.HasAnnotation && !n.HasError {
		return nil
	}
	if len(n.Children) == 1 && !n.HasAnnotation && !n.HasError {
		return n.Children[0]
	}
	return n
}

// Flatten produces a pre-order flat list of nodes for the Basic structure.
func (n *Node) Flatten() []*Node {
	if n == nil {
		return nil
	}
	out := []*Node{n}
	for _, c := range n.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}
