// Package interrogator assembles the source repository (C2), dialect
// registry (C3), schema graph (C5), compiler (C7), and evaluator (C8) into
// a single facade, configured through a Builder/Config surface: dialects
// plus a default, pre-sourced documents, a pre-compile URI list, resolvers,
// and deserializers.
//
// Grounded on the teacher's top-level package assembling its sub-packages
// behind one Config/Builder surface, merged with dario.cat/mergo rather
// than hand-rolled per-field zero-value checks.
package interrogator

import (
	"context"

	"dario.cat/mergo"

	"github.com/jsonschema-engine/interrogator/compiler"
	"github.com/jsonschema-engine/interrogator/decode"
	"github.com/jsonschema-engine/interrogator/dialect"
	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/evaluate"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/output"
	"github.com/jsonschema-engine/interrogator/resolve"
	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/source"
	"github.com/jsonschema-engine/interrogator/uri"
)

const (
	// ErrConfigMergeFailed wraps a failure merging a Config over defaults.
	ErrConfigMergeFailed = errors.Error("interrogator: failed to merge config")
	// ErrInvalidDialectID wraps a failure parsing a ConfigDialect's ID.
	ErrInvalidDialectID = errors.Error("interrogator: invalid dialect id")
	// ErrInvalidDefaultDialect wraps a failure parsing Config.DefaultDialect.
	ErrInvalidDefaultDialect = errors.Error("interrogator: invalid default dialect uri")
	// ErrInvalidDocumentURI wraps a failure parsing a ConfigDocument's URI.
	ErrInvalidDocumentURI = errors.Error("interrogator: invalid document uri")
	// ErrDocumentDecodeFailed wraps a failure decoding a ConfigDocument's raw form.
	ErrDocumentDecodeFailed = errors.Error("interrogator: failed to decode document")
)

// ConfigDialect describes one dialect to register.
type ConfigDialect struct {
	ID          string
	Metaschemas []dialect.Metaschema
	Keywords    []keyword.Keyword
}

// ConfigDocument describes one document to pre-source before compilation.
// Exactly one of Value, Bytes, or String should be set; Bytes/String are
// decoded using Format (defaulting to "json").
type ConfigDocument struct {
	URI    string
	Value  any
	Bytes  []byte
	String string
	Format string
}

// Config is the full set of recognized build options. A zero Config builds
// an Interrogator with no dialects registered (callers compiling anything
// must supply at least one) and the package's default resolver/deserializer
// set.
type Config struct {
	Dialects       []ConfigDialect
	DefaultDialect string
	Documents      []ConfigDocument
	Compile        []string
	Resolvers      []resolve.Resolver
	Deserializers  map[string]decode.Deserializer
}

func defaultConfig() Config {
	return Config{
		Resolvers: []resolve.Resolver{resolve.NewFileResolver()},
	}
}

// Builder accumulates a Config through chained With* calls.
type Builder struct {
	cfg Config
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithDialect registers a dialect to build into the registry.
func (b *Builder) WithDialect(d ConfigDialect) *Builder {
	b.cfg.Dialects = append(b.cfg.Dialects, d)
	return b
}

// WithDefaultDialect designates the fallback dialect by id.
func (b *Builder) WithDefaultDialect(id string) *Builder {
	b.cfg.DefaultDialect = id
	return b
}

// WithDocument pre-sources an already-decoded document value under uri.
func (b *Builder) WithDocument(uri string, value any) *Builder {
	b.cfg.Documents = append(b.cfg.Documents, ConfigDocument{URI: uri, Value: value})
	return b
}

// WithDocumentBytes pre-sources a document decoded from raw bytes in format
// (defaulting to "json" if empty).
func (b *Builder) WithDocumentBytes(uri string, data []byte, format string) *Builder {
	b.cfg.Documents = append(b.cfg.Documents, ConfigDocument{URI: uri, Bytes: data, Format: format})
	return b
}

// WithDocumentString pre-sources a document decoded from a raw string in
// format (defaulting to "json" if empty).
func (b *Builder) WithDocumentString(uri string, data string, format string) *Builder {
	b.cfg.Documents = append(b.cfg.Documents, ConfigDocument{URI: uri, String: data, Format: format})
	return b
}

// WithPrecompile adds a URI to compile as part of Build.
func (b *Builder) WithPrecompile(uri string) *Builder {
	b.cfg.Compile = append(b.cfg.Compile, uri)
	return b
}

// WithResolver appends a resolver, tried after every previously-added one.
func (b *Builder) WithResolver(r resolve.Resolver) *Builder {
	b.cfg.Resolvers = append(b.cfg.Resolvers, r)
	return b
}

// WithDeserializer registers a deserializer for format, overriding any
// package default registered under the same name.
func (b *Builder) WithDeserializer(format string, d decode.Deserializer) *Builder {
	if b.cfg.Deserializers == nil {
		b.cfg.Deserializers = make(map[string]decode.Deserializer)
	}
	b.cfg.Deserializers[format] = d
	return b
}

// Build merges the accumulated Config over the package defaults and
// assembles an Interrogator.
func (b *Builder) Build(ctx context.Context) (*Interrogator, error) {
	return Build(ctx, b.cfg)
}

// Interrogator is the assembled facade over the source repository, dialect
// registry, schema graph, compiler, and evaluator, plus the keys compiled
// during Build per Config.Compile.
type Interrogator struct {
	Sources   *source.Sources
	Dialects  *dialect.Registry
	Graph     *schema.Graph
	Compiler  *compiler.Compiler
	Evaluator *evaluate.Evaluator
	Compiled  []schema.Key
}

// Build assembles an Interrogator from cfg, merged over the package
// defaults (presently: a single resolve.FileResolver).
func Build(ctx context.Context, cfg Config) (*Interrogator, error) {
	merged := defaultConfig()
	if err := mergo.Merge(&merged, cfg, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, ErrConfigMergeFailed.Wrap(err)
	}

	sources := source.New()
	graph := schema.New()
	registry := dialect.NewRegistry()

	for _, cd := range merged.Dialects {
		id, err := uri.Parse(cd.ID)
		if err != nil {
			return nil, ErrInvalidDialectID.Wrap(err)
		}
		d, err := dialect.NewDialect(id, cd.Metaschemas, cd.Keywords)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(d, sources, nil); err != nil {
			return nil, err
		}
	}
	if merged.DefaultDialect != "" {
		id, err := uri.Parse(merged.DefaultDialect)
		if err != nil {
			return nil, ErrInvalidDefaultDialect.Wrap(err)
		}
		if err := registry.SetDefault(id); err != nil {
			return nil, err
		}
	}

	decoders := decode.NewChain()
	for format, d := range merged.Deserializers {
		decoders.Register(format, d)
	}

	for _, doc := range merged.Documents {
		u, err := uri.Parse(doc.URI)
		if err != nil {
			return nil, ErrInvalidDocumentURI.Wrap(err)
		}
		value, err := resolveDocumentValue(doc, decoders)
		if err != nil {
			return nil, err
		}
		if _, err := sources.Insert(u, value, nil); err != nil {
			return nil, err
		}
	}

	resolvers := resolve.NewChain(merged.Resolvers...)
	c := compiler.New(sources, registry, graph, resolvers, decoders)

	var compiled []schema.Key
	if len(merged.Compile) > 0 {
		keys, err := c.CompileAll(ctx, merged.Compile)
		if err != nil {
			return nil, err
		}
		compiled = keys
	}

	return &Interrogator{
		Sources:   sources,
		Dialects:  registry,
		Graph:     graph,
		Compiler:  c,
		Evaluator: evaluate.New(graph),
		Compiled:  compiled,
	}, nil
}

func resolveDocumentValue(doc ConfigDocument, decoders *decode.Chain) (any, error) {
	if doc.Value != nil {
		return doc.Value, nil
	}
	format := doc.Format
	if format == "" {
		format = "json"
	}
	switch {
	case doc.Bytes != nil:
		v, err := decoders.Decode(format, doc.Bytes)
		if err != nil {
			return nil, ErrDocumentDecodeFailed.Wrap(err)
		}
		return v, nil
	case doc.String != "":
		v, err := decoders.Decode(format, []byte(doc.String))
		if err != nil {
			return nil, ErrDocumentDecodeFailed.Wrap(err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

// Compile compiles rawURI (and transitively everything it references) into
// i's schema graph, returning its key.
func (i *Interrogator) Compile(ctx context.Context, rawURI string) (schema.Key, error) {
	return i.Compiler.Compile(ctx, rawURI)
}

// Evaluate evaluates the compiled schema key against instance, producing an
// output.Document in the requested structure.
func (i *Interrogator) Evaluate(key schema.Key, structure output.Structure, instance any) (*output.Document, error) {
	return i.Evaluator.Evaluate(key, structure, instance)
}
