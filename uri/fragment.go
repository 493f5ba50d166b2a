package uri

import (
	"strings"

	"github.com/jsonschema-engine/interrogator/jsonpointer"
)

// Fragment is the tagged union a URI's fragment component decodes to: either
// an Anchor (a bare name) or a Pointer (a leading-slash RFC 6901 path). The
// empty fragment is the Anchor variant with an empty name.
type Fragment struct {
	isPointer bool
	anchor    string
	pointer   jsonpointer.Pointer
}

// NewAnchorFragment builds an anchor-named Fragment.
func NewAnchorFragment(name string) Fragment {
	return Fragment{anchor: name}
}

// NewPointerFragment builds a JSON-pointer Fragment.
func NewPointerFragment(p jsonpointer.Pointer) Fragment {
	return Fragment{isPointer: true, pointer: p}
}

// parseFragment classifies a raw (already percent-decoded) fragment string:
// one beginning with '/' is a JSON pointer, anything else (including empty)
// is an anchor name.
func parseFragment(raw string) Fragment {
	if strings.HasPrefix(raw, "/") {
		return Fragment{isPointer: true, pointer: jsonpointer.Pointer(raw)}
	}
	return Fragment{anchor: raw}
}

// IsAnchor reports whether f is the Anchor variant.
func (f Fragment) IsAnchor() bool {
	return !f.isPointer
}

// IsPointer reports whether f is the Pointer variant.
func (f Fragment) IsPointer() bool {
	return f.isPointer
}

// IsEmpty reports whether f is the empty anchor (equivalent to no fragment
// for most comparisons).
func (f Fragment) IsEmpty() bool {
	return !f.isPointer && f.anchor == ""
}

// AsAnchor returns f's anchor name and whether f is the Anchor variant.
func (f Fragment) AsAnchor() (string, bool) {
	if f.isPointer {
		return "", false
	}
	return f.anchor, true
}

// AsPointer returns f's JSON pointer and whether f is the Pointer variant.
func (f Fragment) AsPointer() (jsonpointer.Pointer, bool) {
	if !f.isPointer {
		return "", false
	}
	return f.pointer, true
}

// String renders f back to its raw fragment form (without the leading '#').
func (f Fragment) String() string {
	if f.isPointer {
		return string(f.pointer)
	}
	return f.anchor
}
