// Package decode implements the external data-deserialization collaborator
// (§6): a Deserializer registered per format string, a Chain trying
// registered deserializers for a format, and JSON/YAML defaults.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jsonschema-engine/interrogator/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ErrUnknownFormat is returned when no Deserializer is registered for a format.
	ErrUnknownFormat = errors.Error("decode: no deserializer registered for format")
)

// Deserializer parses raw bytes into a decoded JSON-compatible value tree
// (nested map[string]any/[]any/string/bool/nil and numbers: json.Number from
// the JSON deserializer, int or float64 from the YAML one).
type Deserializer interface {
	Decode(data []byte) (any, error)
}

// Func adapts a plain function to a Deserializer.
type Func func(data []byte) (any, error)

func (f Func) Decode(data []byte) (any, error) { return f(data) }

// Chain dispatches to a registered Deserializer by format string, defaulting
// to "json" and "yaml" implementations.
type Chain struct {
	mu       sync.RWMutex
	decoders map[string]Deserializer
}

// NewChain returns a Chain pre-registered with the "json" and "yaml" defaults.
func NewChain() *Chain {
	c := &Chain{decoders: make(map[string]Deserializer)}
	c.Register("json", JSON{})
	c.Register("yaml", YAML{})
	return c
}

// Register associates format with d, overwriting any existing registration.
func (c *Chain) Register(format string, d Deserializer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders[format] = d
}

// Decode dispatches to the Deserializer registered for format.
func (c *Chain) Decode(format string, data []byte) (any, error) {
	c.mu.RLock()
	d, ok := c.decoders[format]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownFormat
	}

	v, err := d.Decode(data)
	if err != nil {
		return nil, Errors{{Format: format, Cause: err}}
	}
	return v, nil
}

// Errors aggregates one cause per format attempted, implementing
// Unwrap() []error so errors.Is/errors.As see through to the underlying cause.
type Errors []FormatError

// FormatError pairs a deserialization failure with the format that produced it.
type FormatError struct {
	Format string
	Cause  error
}

func (e FormatError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.Format, e.Cause)
}

func (e FormatError) Unwrap() error { return e.Cause }

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, fe := range e {
		out[i] = fe
	}
	return out
}

// JSON decodes using encoding/json, preserving exact numeric literals as
// json.Number so a later big.Rat parse (the evaluator's numbers cache) never
// loses precision to a float64 round-trip.
type JSON struct{}

func (JSON) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// YAML decodes using gopkg.in/yaml.v3, recursively converting
// map[string]interface{} (yaml.v3's default) and any non-string map keys to
// strings, since JSON Schema documents never carry non-string object keys.
type YAML struct{}

func (YAML) Decode(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return normalizeYAML(v), nil
}

func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = normalizeYAML(vv)
		}
		return out
	default:
		return val
	}
}
