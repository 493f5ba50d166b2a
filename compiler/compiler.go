// Package compiler implements the compiler (C7): the transaction-scoped
// walk that turns a raw JSON Schema document, reachable through the source
// repository, into compiled schemas linked into the schema graph.
//
// Grounded on grill-core's interrogator.rs transaction-scoped compile/
// compile_all (a journal of reversible mutations to the source repository
// and schema graph, rolled back as a unit on any sub-failure) and, for the
// recursive per-schema walk, on the structure of
// other_examples/f9fe5ae3_santhosh-tekuri-jsonschema__compiler.go.go's
// compileURL/compileRef/compile/compileMap recursion.
package compiler

import (
	"context"
	"io"
	"math/big"
	"regexp"
	"sync"

	jsValidator "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/singleflight"

	"github.com/jsonschema-engine/interrogator/cache"
	"github.com/jsonschema-engine/interrogator/decode"
	"github.com/jsonschema-engine/interrogator/dialect"
	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/keyword"
	"github.com/jsonschema-engine/interrogator/resolve"
	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/source"
	"github.com/jsonschema-engine/interrogator/uri"
)

const (
	// ErrSchemaIdentificationFailed covers a failed or ambiguous (duplicate)
	// identifier claim for a schema.
	ErrSchemaIdentificationFailed = errors.Error("compiler: schema identification failed")
	// ErrDialectNotKnown is returned when a schema names a $schema-equivalent
	// URI that is not registered.
	ErrDialectNotKnown = errors.Error("compiler: dialect not known")
	// ErrUriParsingFailed wraps a failure to parse a URI encountered mid-compile.
	ErrUriParsingFailed = errors.Error("compiler: failed to parse uri")
	// ErrResolveFailed wraps a resolver chain failure.
	ErrResolveFailed = errors.Error("compiler: resolve failed")
	// ErrSourcingFailed wraps a deserialization or source-repository insert failure.
	ErrSourcingFailed = errors.Error("compiler: sourcing failed")
	// ErrLocateSubschemasFailed wraps a failure evaluating a sub-schema pointer.
	ErrLocateSubschemasFailed = errors.Error("compiler: failed to locate subschema")
	// ErrSchemaInvalid is the metaschema validation failure.
	ErrSchemaInvalid = errors.Error("compiler: schema failed metaschema validation")
	// ErrMetaschemaSetupFailed wraps a failure compiling a dialect's own metaschemas.
	ErrMetaschemaSetupFailed = errors.Error("compiler: failed to compile dialect metaschema")
	// ErrAnchorSyntax is returned for an anchor name violating the engine's
	// anchor-name grammar.
	ErrAnchorSyntax = errors.Error("compiler: invalid anchor syntax")
)

var anchorNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// Compiler wires the source repository, dialect registry, schema graph, and
// the external resolver/deserializer collaborators (§6) into the compile
// pipeline.
type Compiler struct {
	Sources   *source.Sources
	Dialects  *dialect.Registry
	Graph     *schema.Graph
	Resolvers *resolve.Chain
	Decoders  *decode.Chain

	numberCache *cache.Keyed[*big.Rat]
	regexCache  *cache.Keyed[*regexp.Regexp]
	caches      *cache.Manager

	metaMu    sync.Mutex
	metaCache map[string]*jsValidator.Schema

	group singleflight.Group
}

// New returns a Compiler over the given collaborators.
func New(sources *source.Sources, dialects *dialect.Registry, graph *schema.Graph, resolvers *resolve.Chain, decoders *decode.Chain) *Compiler {
	numberCache := cache.NewKeyed[*big.Rat]()
	regexCache := cache.NewKeyed[*regexp.Regexp]()

	caches := cache.NewManager()
	caches.Register("compiler.numbers", numberCache)
	caches.Register("compiler.regexes", regexCache)

	return &Compiler{
		Sources:     sources,
		Dialects:    dialects,
		Graph:       graph,
		Resolvers:   resolvers,
		Decoders:    decoders,
		numberCache: numberCache,
		regexCache:  regexCache,
		caches:      caches,
		metaCache:   make(map[string]*jsValidator.Schema),
	}
}

// CacheStats reports the current entry count of each of c's memoization
// caches (the shared big.Rat and compiled-pattern caches reused across every
// schema compiled through c).
func (c *Compiler) CacheStats() map[string]int64 {
	return c.caches.Stats()
}

// ClearCaches empties every one of c's memoization caches. Schemas already
// compiled are unaffected; only the memoized intermediate parses are
// dropped, to be recomputed on next use.
func (c *Compiler) ClearCaches() {
	c.caches.ClearAll()
}

// Compile compiles the schema identified by rawURI within its own
// transaction, committing on success and rolling back on any failure.
func (c *Compiler) Compile(ctx context.Context, rawURI string) (schema.Key, error) {
	keys, err := c.CompileAll(ctx, []string{rawURI})
	if err != nil {
		return schema.Key{}, err
	}
	return keys[0], nil
}

// CompileAll compiles every URI within one transaction; on any failure, no
// schema or source added during the call is observable afterward
// (invariant 4: transaction atomicity).
func (c *Compiler) CompileAll(ctx context.Context, rawURIs []string) ([]schema.Key, error) {
	txn := c.StartTxn()

	keys := make([]schema.Key, 0, len(rawURIs))
	for _, raw := range rawURIs {
		u, err := uri.ParseAbsolute(raw)
		if err != nil {
			_ = txn.Rollback()
			return nil, ErrUriParsingFailed.Wrap(err)
		}
		key, err := c.resolveURI(ctx, txn, u)
		if err != nil {
			_ = txn.Rollback()
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return keys, nil
}

// resolveURI is the entry point for compiling "the schema identified by
// target": it short-circuits against already-compiled schemas (step 3),
// otherwise sources the owning document and compiles its root, which
// recursively discovers and compiles every subschema and anchor the
// dialect's keywords report — after which target is looked up again.
func (c *Compiler) resolveURI(ctx context.Context, txn *Txn, target *uri.URI) (schema.Key, error) {
	if key, ok := c.Graph.GetByURI(target); ok {
		return key, nil
	}

	docURI := target.WithoutFragment()
	docKey, err := c.ensureSourced(ctx, txn, docURI)
	if err != nil {
		return schema.Key{}, err
	}

	if _, err := c.compileAt(ctx, txn, docKey, docURI, "", docURI, nil); err != nil {
		return schema.Key{}, err
	}

	if key, ok := c.Graph.GetByURI(target); ok {
		return key, nil
	}

	// The document's root compile did not reach target through any
	// dialect-recognized subschema pointer (e.g. a raw JSON-pointer
	// reference into a position no keyword reports via Subschemas). Try
	// compiling that exact pointer position directly.
	if frag, ok := target.Fragment(); ok {
		if ptr, isPtr := frag.AsPointer(); isPtr {
			return c.compileAt(ctx, txn, docKey, docURI, ptr, docURI, nil)
		}
	}

	return schema.Key{}, ErrSchemaIdentificationFailed.Wrap(errors.New(target.CanonicalString()))
}

// ensureSourced guarantees docURI's document is present in the source
// repository, resolving and deserializing it if not. Resolver invocations
// are deduplicated per URI via singleflight, so two overlapping compiles of
// the same not-yet-sourced document never redundantly fetch it.
func (c *Compiler) ensureSourced(ctx context.Context, txn *Txn, docURI *uri.URI) (source.DocumentKey, error) {
	if key, ok := c.Sources.Lookup(docURI); ok {
		link, _ := c.Sources.GetLink(key)
		return link.Document, nil
	}

	sfKey := docURI.CanonicalString()
	result, err, _ := c.group.Do(sfKey, func() (any, error) {
		r, format, rerr := c.Resolvers.Resolve(ctx, docURI)
		if rerr != nil {
			return nil, ErrResolveFailed.Wrap(rerr)
		}
		data, rerr := io.ReadAll(r)
		if rerr != nil {
			return nil, ErrResolveFailed.Wrap(rerr)
		}
		value, rerr := c.Decoders.Decode(format, data)
		if rerr != nil {
			return nil, ErrSourcingFailed.Wrap(rerr)
		}
		return value, nil
	})
	if err != nil {
		return source.DocumentKey{}, err
	}

	docKey, err := c.Sources.Insert(docURI, result, txn.sourceTxn)
	if err != nil {
		return source.DocumentKey{}, ErrSourcingFailed.Wrap(err)
	}
	if err := c.Sources.IndexDocument(docKey, docURI, txn.sourceTxn, nil); err != nil {
		return source.DocumentKey{}, ErrSourcingFailed.Wrap(err)
	}
	return docKey, nil
}

// compileAt compiles the schema at path within docKey's document, whose
// syntactic parent (if any, and if this schema does not declare its own id)
// is parent. It implements steps 3-10 of the compile algorithm.
func (c *Compiler) compileAt(ctx context.Context, txn *Txn, docKey source.DocumentKey, docURI *uri.URI, path jsonpointer.Pointer, enclosingBase *uri.URI, parent *schema.Key) (schema.Key, error) {
	fragURI := fragmentURIForPath(docURI, path)

	// Step 3: short-circuit.
	if key, ok := c.Graph.GetByURI(fragURI); ok {
		return key, nil
	}

	doc, ok := c.Sources.GetDocument(docKey)
	if !ok {
		return schema.Key{}, source.ErrUnknownDocumentKey
	}
	rawValue, err := path.Evaluate(doc.Value)
	if err != nil {
		return schema.Key{}, ErrLocateSubschemasFailed.Wrap(err)
	}

	rs := keyword.RawSchema{Value: rawValue, Path: path, BaseURI: enclosingBase}

	// Step 4: dialect.
	d, err := c.Dialects.PertinentToOrDefault(rs)
	if err != nil {
		if errors.Is(err, dialect.ErrDialectUnknown) {
			return schema.Key{}, ErrDialectNotKnown.Wrap(err)
		}
		return schema.Key{}, err
	}

	if err := c.validateAgainstMetaschema(d, rawValue); err != nil {
		return schema.Key{}, err
	}

	// Step 5: identify.
	id, claimed, err := d.Identify(rs)
	if err != nil {
		return schema.Key{}, ErrSchemaIdentificationFailed.Wrap(err)
	}

	thisBase := enclosingBase
	var canonicalID *uri.URI
	if claimed {
		parsedID, perr := uri.Parse(id)
		if perr != nil {
			return schema.Key{}, ErrUriParsingFailed.Wrap(perr)
		}
		resolved := enclosingBase.ResolveReference(parsedID)
		if frag, hasFrag := resolved.Fragment(); hasFrag && frag.IsEmpty() {
			resolved = resolved.WithoutFragment()
		}
		canonicalID = resolved
		thisBase = canonicalID
	}

	// Step 9 (performed here, since later steps need the compiled keyword
	// instances' internal state to report subschemas/anchors/refs): keyword linking.
	compileCtx := &keyword.CompileContext{
		Schema:      keyword.RawSchema{Value: rawValue, Path: path, BaseURI: thisBase},
		NumberCache: c.numberCache,
		RegexCache:  c.regexCache,
	}
	compiledKeywords := make([]keyword.Keyword, 0, len(d.Keywords))
	for _, proto := range d.Keywords {
		inst := proto.Clone()
		matched, cerr := inst.Compile(compileCtx)
		if cerr != nil {
			return schema.Key{}, cerr
		}
		if matched {
			compiledKeywords = append(compiledKeywords, inst)
		}
	}

	// Step 7: anchors.
	var anchors []schema.Anchor
	var anchorURIs []*uri.URI
	for _, k := range compiledKeywords {
		ak, supports := k.(keyword.Anchors)
		if !supports {
			continue
		}
		decls, aerr := ak.Anchors(compileCtx.Schema)
		if aerr != nil {
			return schema.Key{}, aerr
		}
		for _, decl := range decls {
			if verr := validateAnchorName(decl); verr != nil {
				return schema.Key{}, verr
			}
			anchorURI := thisBase.WithoutFragment()
			name := decl.Name
			anchorURI.SetFragment(&name)
			anchors = append(anchors, schema.Anchor{Name: decl.Name, AbsoluteURI: anchorURI, KeywordName: decl.KeywordName})
			anchorURIs = append(anchorURIs, anchorURI)
		}
	}

	uris := []*uri.URI{fragURI}
	if path.IsEmpty() {
		uris = append(uris, docURI.WithoutFragment())
	}
	if canonicalID != nil {
		uris = append(uris, canonicalID)
	}
	uris = append(uris, anchorURIs...)

	var thisParent *schema.Key
	if !claimed {
		thisParent = parent
	}

	frag := fragmentForPath(path)
	sourceKey, err := c.Sources.Link(fragURI, docKey, path, frag, txn.sourceTxn)
	if err != nil {
		return schema.Key{}, ErrSourcingFailed.Wrap(err)
	}

	cs := schema.CompiledSchema{
		ID:         canonicalID,
		URIs:       uris,
		Parent:     thisParent,
		Path:       path,
		Anchors:    anchors,
		Keywords:   compiledKeywords,
		DialectURI: d.ID,
		Source:     sourceKey,
	}
	key := c.Graph.Insert(cs, txn.schemaTxn)

	// Step 6: locate and recursively compile sub-schemas.
	var subschemaKeys []schema.Key
	for _, k := range compiledKeywords {
		sk, supports := k.(keyword.Subschemas)
		if !supports {
			continue
		}
		ptrs, serr := sk.Subschemas(compileCtx.Schema)
		if serr != nil {
			return schema.Key{}, ErrLocateSubschemasFailed.Wrap(serr)
		}
		binder, canBind := k.(keyword.SubschemaBinder)
		for _, relPtr := range ptrs {
			childPath := jsonpointer.Pointer(string(path) + string(relPtr))
			childKey, cerr := c.compileAt(ctx, txn, docKey, docURI, childPath, thisBase, &key)
			if cerr != nil {
				return schema.Key{}, cerr
			}
			subschemaKeys = append(subschemaKeys, childKey)
			if canBind {
				binder.BindSubschema(relPtr, childKey)
			}
		}
	}
	if len(subschemaKeys) > 0 {
		if err := c.Graph.SetSubschemas(key, subschemaKeys, txn.schemaTxn); err != nil {
			return schema.Key{}, err
		}
	}

	// Step 8: references. The schema is already inserted into the graph, so
	// a self- or ancestor-referencing cycle terminates at step 3 above.
	var refs []schema.Reference
	for _, k := range compiledKeywords {
		rk, supports := k.(keyword.Refs)
		if !supports {
			continue
		}
		discovered, rerr := rk.Refs(compileCtx.Schema)
		if rerr != nil {
			return schema.Key{}, rerr
		}
		binder, canBind := k.(keyword.ReferenceBinder)
		for _, ref := range discovered {
			parsedRef, perr := uri.Parse(ref.RawURI)
			if perr != nil {
				return schema.Key{}, ErrUriParsingFailed.Wrap(perr)
			}
			absTarget := thisBase.ResolveReference(parsedRef)
			targetKey, terr := c.resolveURI(ctx, txn, absTarget)
			if terr != nil {
				return schema.Key{}, terr
			}
			if err := c.Graph.AddDependent(targetKey, key, txn.schemaTxn); err != nil {
				return schema.Key{}, err
			}
			refs = append(refs, schema.Reference{
				Target:          targetKey,
				AbsoluteTarget:  absTarget,
				RawURIReference: ref.RawURI,
				KeywordName:     ref.KeywordName,
			})
			if canBind {
				binder.BindReference(ref.RawURI, targetKey)
			}
		}
	}
	if len(refs) > 0 {
		if err := c.Graph.SetReferences(key, refs, txn.schemaTxn); err != nil {
			return schema.Key{}, err
		}
	}

	return key, nil
}

func (c *Compiler) validateAgainstMetaschema(d *dialect.Dialect, value any) error {
	v, err := c.metaschemaFor(d)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := v.Validate(value); err != nil {
		return ErrSchemaInvalid.Wrap(err)
	}
	return nil
}

func (c *Compiler) metaschemaFor(d *dialect.Dialect) (*jsValidator.Schema, error) {
	key := d.ID.CanonicalString()

	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	if v, ok := c.metaCache[key]; ok {
		return v, nil
	}
	if len(d.Metaschemas) == 0 {
		c.metaCache[key] = nil
		return nil, nil
	}

	comp := jsValidator.NewCompiler()
	for _, m := range d.Metaschemas {
		if err := comp.AddResource(m.URI.CanonicalString(), m.Value); err != nil {
			return nil, ErrMetaschemaSetupFailed.Wrap(err)
		}
	}
	root := d.Metaschemas[0].URI.CanonicalString()
	compiled, err := comp.Compile(root)
	if err != nil {
		return nil, ErrMetaschemaSetupFailed.Wrap(err)
	}
	c.metaCache[key] = compiled
	return compiled, nil
}

func validateAnchorName(decl keyword.AnchorDecl) error {
	if decl.KeywordName == "$recursiveAnchor" {
		if decl.Name != "" {
			return ErrAnchorSyntax.Wrap(errors.New("$recursiveAnchor must be empty"))
		}
		return nil
	}
	if !anchorNameRe.MatchString(decl.Name) {
		return ErrAnchorSyntax.Wrap(errors.New("invalid anchor name: " + decl.Name))
	}
	return nil
}

func fragmentURIForPath(docURI *uri.URI, path jsonpointer.Pointer) *uri.URI {
	u := docURI.WithoutFragment()
	frag := string(path)
	u.SetFragment(&frag)
	return u
}

func fragmentForPath(path jsonpointer.Pointer) uri.Fragment {
	if path.IsEmpty() {
		return uri.NewAnchorFragment("")
	}
	return uri.NewPointerFragment(path)
}
