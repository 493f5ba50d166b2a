// Package jsonpointer provides Pointer, an implementation of RFC6901
// (https://datatracker.ietf.org/doc/html/rfc6901) over decoded JSON values
// (map[string]any, []any, and scalars), as produced by decode.Deserializer
// implementations.
package jsonpointer

import (
	"strconv"
	"strings"

	"github.com/jsonschema-engine/interrogator/errors"
)

const (
	// ErrNotFound is returned when the target is not found.
	ErrNotFound = errors.Error("not found")
	// ErrInvalidPointer is returned when the pointer syntax is invalid.
	ErrInvalidPointer = errors.Error("invalid json pointer")
)

// Pointer represents a JSON Pointer value as defined by RFC6901.
type Pointer string

// Token is a single unescaped reference token within a Pointer.
type Token string

// New builds a Pointer from a slice of unescaped tokens.
func New(tokens ...Token) Pointer {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteByte('/')
		sb.WriteString(escape(string(t)))
	}
	return Pointer(sb.String())
}

// Append returns a new Pointer with the given token appended.
func (p Pointer) Append(tok Token) Pointer {
	return Pointer(string(p) + "/" + escape(string(tok)))
}

// AppendIndex returns a new Pointer with the given array index appended.
func (p Pointer) AppendIndex(i int) Pointer {
	return p.Append(Token(strconv.Itoa(i)))
}

// IsEmpty reports whether the pointer references the document root.
func (p Pointer) IsEmpty() bool {
	return p == ""
}

// Tokens splits the pointer into its unescaped reference tokens.
func (p Pointer) Tokens() ([]Token, error) {
	s := string(p)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, errors.Error("invalid json pointer").Wrap(errInvalidPrefix(s))
	}
	parts := strings.Split(s[1:], "/")
	tokens := make([]Token, len(parts))
	for i, part := range parts {
		tokens[i] = Token(unescape(part))
	}
	return tokens, nil
}

// String returns the pointer's raw (escaped) string form.
func (p Pointer) String() string {
	return string(p)
}

// Validate reports whether p is syntactically valid per RFC6901.
func (p Pointer) Validate() error {
	_, err := p.Tokens()
	return err
}

// Evaluate resolves p against source, a tree of decoded JSON values
// (map[string]any / []any / scalars), and returns the referenced value.
func (p Pointer) Evaluate(source any) (any, error) {
	tokens, err := p.Tokens()
	if err != nil {
		return nil, err
	}
	return evaluate(source, tokens, "")
}

func evaluate(source any, tokens []Token, path string) (any, error) {
	if len(tokens) == 0 {
		return source, nil
	}
	tok := tokens[0]
	rest := tokens[1:]
	path = path + "/" + string(tok)

	switch v := source.(type) {
	case map[string]any:
		child, ok := v[string(tok)]
		if !ok {
			return nil, ErrNotFound.Wrap(errAt(path))
		}
		return evaluate(child, rest, path)
	case []any:
		idx, err := tokenToIndex(tok, len(v))
		if err != nil {
			return nil, ErrInvalidPointer.Wrap(err)
		}
		return evaluate(v[idx], rest, path)
	default:
		return nil, ErrInvalidPointer.Wrap(errAt(path))
	}
}

func tokenToIndex(tok Token, length int) (int, error) {
	s := string(tok)
	if s == "-" {
		return 0, errAt("'-' does not reference an existing element")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, errAt("leading zero in array index " + s)
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, errAt("invalid array index " + s)
	}
	if idx >= length {
		return 0, errAt("array index out of range: " + s)
	}
	return idx, nil
}

func errAt(msg string) error {
	return errors.New(msg)
}

func errInvalidPrefix(s string) error {
	return errors.New("pointer must start with '/': " + s)
}

// EscapeToken escapes a single reference token for use within a Pointer,
// replacing "~" with "~0" and "/" with "~1" per RFC6901 §3.
func EscapeToken(s string) string {
	return escape(s)
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(s string) string {
	return unescape(s)
}

func escape(part string) string {
	part = strings.ReplaceAll(part, "~", "~0")
	part = strings.ReplaceAll(part, "/", "~1")
	return part
}

func unescape(part string) string {
	part = strings.ReplaceAll(part, "~1", "/")
	part = strings.ReplaceAll(part, "~0", "~")
	return part
}
