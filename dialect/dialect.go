// Package dialect implements the dialect registry (C3): the ordered set of
// known JSON Schema dialects, each with its own metaschema sources and
// keyword-prototype list, plus $schema-based dialect selection.
//
// Grounded on grill-core's Dialect concept and the teacher's
// jsonschema/oas3/registry.go SchemaRegistry (map-based O(1) lookup with a
// documented default fallback, sync.RWMutex guarded).
package dialect

import (
	"sync"

	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/source"
	"github.com/jsonschema-engine/interrogator/uri"
)

const (
	// ErrNoIdentifierKeyword is returned by NewDialect when none of its
	// keyword prototypes implement keyword.Identifier.
	ErrNoIdentifierKeyword = errors.Error("dialect: no keyword implements Identifier")
	// ErrDuplicateDialectKeyword is returned by NewDialect when more than
	// one keyword prototype implements keyword.DialectIdentifier (at most
	// one keyword may claim the dialect-identification role).
	ErrDuplicateDialectKeyword = errors.Error("dialect: more than one keyword implements DialectIdentifier")
	// ErrNoDialectKeyword is returned by NewDialect when no keyword
	// prototype implements keyword.DialectIdentifier.
	ErrNoDialectKeyword = errors.Error("dialect: no keyword implements DialectIdentifier")
	// ErrDuplicateIdentifier is the "Dialect::Duplicate" runtime error: more
	// than one keyword identified the same schema at compile time.
	ErrDuplicateIdentifier = errors.Error("dialect: more than one keyword identified the same schema")
	// ErrDuplicateDialect is returned by Registry.Register for a dialect id
	// already registered.
	ErrDuplicateDialect = errors.Error("dialect: id already registered")
	// ErrDialectUnknown is returned when a schema names a $schema URI not
	// present in the registry.
	ErrDialectUnknown = errors.Error("dialect: unknown dialect")
	// ErrUriParsingFailed wraps a failure to parse a dialect URI string.
	ErrUriParsingFailed = errors.Error("dialect: failed to parse uri")
	// ErrEmptyDialectSet is returned by PertinentToOrDefault when the schema
	// names no dialect and Registry.Default reports none.
	ErrEmptyDialectSet = errors.Error("dialect: registry holds no dialects")
)

// Metaschema is one metaschema document a Dialect validates schemas against,
// pre-seeded into the source repository on registration.
type Metaschema struct {
	URI   *uri.URI
	Value any
}

// Dialect is a named collection of keyword prototypes, their metaschemas,
// and the keyword name that supplies a schema's canonical id.
type Dialect struct {
	ID          *uri.URI
	Metaschemas []Metaschema
	Keywords    []keyword.Keyword

	identifierName string
	dialectName    string
}

// NewDialect constructs a Dialect from its id, metaschema documents, and
// ordered keyword prototypes, validating the identifier/dialect-keyword
// conventions: at least one keyword must implement Identifier, and exactly
// one must implement DialectIdentifier.
func NewDialect(id *uri.URI, metaschemas []Metaschema, keywords []keyword.Keyword) (*Dialect, error) {
	var identifierName, dialectName string
	identifiers := 0
	dialectKeywords := 0

	for _, k := range keywords {
		_, _, identify, dialectID, _ := keyword.Supports(k)
		if identify {
			identifiers++
			identifierName = k.Kind().String()
		}
		if dialectID {
			dialectKeywords++
			dialectName = k.Kind().String()
		}
	}

	if identifiers == 0 {
		return nil, ErrNoIdentifierKeyword
	}
	if dialectKeywords == 0 {
		return nil, ErrNoDialectKeyword
	}
	if dialectKeywords > 1 {
		return nil, ErrDuplicateDialectKeyword
	}

	return &Dialect{
		ID:             id,
		Metaschemas:    metaschemas,
		Keywords:       keywords,
		identifierName: identifierName,
		dialectName:    dialectName,
	}, nil
}

// Identify invokes every Identifier keyword against schema, returning the
// single raw id string claimed. More than one keyword claiming an id for
// the same schema is the "Dialect::Duplicate" construction/compile error.
func (d *Dialect) Identify(schema keyword.RawSchema) (string, bool, error) {
	var found string
	var ok bool
	for _, k := range d.Keywords {
		ident, is := k.(keyword.Identifier)
		if !is {
			continue
		}
		id, claimed, err := ident.Identify(schema)
		if err != nil {
			return "", false, err
		}
		if !claimed {
			continue
		}
		if ok {
			return "", false, ErrDuplicateIdentifier
		}
		found, ok = id, true
	}
	return found, ok, nil
}

// DialectURI invokes this dialect's sole DialectIdentifier keyword against
// schema, returning the raw $schema-equivalent URI string it names, if any.
func (d *Dialect) DialectURI(schema keyword.RawSchema) (string, bool, error) {
	for _, k := range d.Keywords {
		di, is := k.(keyword.DialectIdentifier)
		if !is {
			continue
		}
		return di.Dialect(schema)
	}
	return "", false, nil
}

// Registry holds an ordered set of known Dialects with a designated default.
type Registry struct {
	mu         sync.RWMutex
	dialects   []*Dialect
	byID       map[string]int
	defaultIdx int
	hasDefault bool
}

// NewRegistry returns an empty dialect registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Register adds d to the registry, pre-seeding its metaschema documents
// into sources under txn. Fails with ErrDuplicateDialect if d.ID is already
// registered.
func (r *Registry) Register(d *Dialect, sources *source.Sources, txn *source.Txn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := d.ID.CanonicalString()
	if _, exists := r.byID[key]; exists {
		return ErrDuplicateDialect
	}

	for _, m := range d.Metaschemas {
		if _, err := sources.Insert(m.URI, m.Value, txn); err != nil {
			return err
		}
	}

	r.byID[key] = len(r.dialects)
	r.dialects = append(r.dialects, d)
	return nil
}

// SetDefault designates the dialect registered under id as the fallback
// PertinentToOrDefault returns when a schema names no dialect.
func (r *Registry) SetDefault(id *uri.URI) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id.CanonicalString()]
	if !ok {
		return ErrDialectUnknown
	}
	r.defaultIdx = idx
	r.hasDefault = true
	return nil
}

// Get resolves a dialect by its absolute id.
func (r *Registry) Get(id *uri.URI) (*Dialect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id.CanonicalString()]
	if !ok {
		return nil, false
	}
	return r.dialects[idx], true
}

// Default returns the designated default dialect, if any.
func (r *Registry) Default() (*Dialect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasDefault {
		return nil, false
	}
	return r.dialects[r.defaultIdx], true
}

// PertinentTo returns the first registered dialect whose identifier keyword
// matches schema's $schema-equivalent value, or nil if schema names none.
// Fails with ErrDialectUnknown if schema names a dialect URI not registered.
func (r *Registry) PertinentTo(schema keyword.RawSchema) (*Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.dialects {
		raw, found, err := d.DialectURI(schema)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		u, err := uri.Parse(raw)
		if err != nil {
			return nil, ErrUriParsingFailed.Wrap(err)
		}
		idx, ok := r.byID[u.CanonicalString()]
		if !ok {
			return nil, ErrDialectUnknown
		}
		return r.dialects[idx], nil
	}
	return nil, nil
}

// PertinentToOrDefault behaves as PertinentTo, falling back to the
// designated default dialect when schema names none.
func (r *Registry) PertinentToOrDefault(schema keyword.RawSchema) (*Dialect, error) {
	d, err := r.PertinentTo(schema)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return d, nil
	}
	def, ok := r.Default()
	if !ok {
		return nil, ErrEmptyDialectSet
	}
	return def, nil
}
