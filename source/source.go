// Package source implements the source repository (C2): interning of
// parsed JSON documents and the many-to-one mapping from URIs (with
// fragments) to document-plus-JSON-pointer locations within them.
//
// Grounded on grill-core's Sources type: three indexes (documents, internal
// links, and a URI→link lookup), a transactional journal bracketing
// mutation, and an idempotent indexing walk that makes every interior
// position of a document separately addressable.
package source

import (
	"sync"

	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/hashing"
	"github.com/jsonschema-engine/interrogator/internal/genarena"
	"github.com/jsonschema-engine/interrogator/jsonpointer"
	"github.com/jsonschema-engine/interrogator/uri"
)

const (
	// ErrSourceConflict is returned when a URI is inserted or linked with a
	// value/location that conflicts with what is already recorded for it.
	ErrSourceConflict = errors.Error("source conflict")
	// ErrInvalidLinkPath is returned when a link's path does not resolve
	// within its document.
	ErrInvalidLinkPath = errors.Error("invalid link path")
	// ErrNotAbsolute is returned when a non-fragment-free URI is supplied
	// where the repository requires one.
	ErrNotAbsolute = errors.Error("uri must have no non-empty fragment")
	// ErrUnknownDocumentKey is returned when a DocumentKey does not resolve
	// within this repository.
	ErrUnknownDocumentKey = errors.Error("unknown document key")
	// ErrUnknownSourceKey is returned when a SourceKey does not resolve
	// within this repository.
	ErrUnknownSourceKey = errors.Error("unknown source key")
	// ErrNoActiveTransaction is returned by Commit/Rollback on a Txn already closed.
	ErrNoActiveTransaction = errors.Error("no active transaction")
)

// DocumentKey is an opaque, generational handle to an interned document.
type DocumentKey struct{ k genarena.Key }

// SourceKey is an opaque, generational handle to a (document, location) link.
type SourceKey struct{ k genarena.Key }

// Document is a parsed JSON value interned under a canonical absolute URI.
type Document struct {
	URI     *uri.URI
	Value   any
	Links   []SourceKey
	Indexed bool
}

// Link is a (DocumentKey, JSON pointer) pair addressable by the URI under
// which it was requested.
type Link struct {
	URI      *uri.URI
	Document DocumentKey
	Path     jsonpointer.Pointer
	Fragment uri.Fragment
}

// Sources is the source repository: interned documents plus the links that
// address positions within them.
type Sources struct {
	mu        sync.RWMutex
	documents *genarena.Arena[Document]
	links     *genarena.Arena[Link]
	byURI     map[string]SourceKey
	txn       *Txn
}

// New returns an empty source repository.
func New() *Sources {
	return &Sources{
		documents: genarena.New[Document](),
		links:     genarena.New[Link](),
		byURI:     make(map[string]SourceKey),
	}
}

func canonicalKey(u *uri.URI) string {
	return u.CanonicalString()
}

// GetDocument returns the document for key.
func (s *Sources) GetDocument(key DocumentKey) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents.Get(key.k)
}

// GetLink returns the link for key.
func (s *Sources) GetLink(key SourceKey) (Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.Get(key.k)
}

// Lookup resolves a URI (with or without fragment) to its SourceKey, if any.
func (s *Sources) Lookup(u *uri.URI) (SourceKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byURI[canonicalKey(u)]
	return key, ok
}

// Insert interns value under u (which must carry no non-empty fragment),
// installing both the fragment-free URI and the empty-fragment ("#") URI as
// aliases for the document root. If u is already known, the supplied value
// must be value-equal to what is recorded or ErrSourceConflict is returned
// (invariant: idempotent insertion never mutates a differing document).
func (s *Sources) Insert(u *uri.URI, value any, txn *Txn) (DocumentKey, error) {
	if frag, ok := u.Fragment(); ok && !frag.IsEmpty() {
		return DocumentKey{}, ErrNotAbsolute
	}

	baseKey := canonicalKey(u.WithoutFragment())

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingSrc, ok := s.byURI[baseKey]; ok {
		link, _ := s.links.Get(existingSrc.k)
		doc, _ := s.documents.Get(link.Document)
		if !hashing.Equal(doc.Value, value) {
			return DocumentKey{}, ErrSourceConflict
		}
		return link.Document, nil
	}

	docKey := DocumentKey{k: s.documents.Insert(Document{URI: u.WithoutFragment()})}
	s.journal(txn, journalEntry{kind: journalInsertDocument, docKey: docKey.k})

	rootPath := jsonpointer.Pointer("")

	baseSrc, err := s.linkLocked(u.WithoutFragment(), docKey, rootPath, uri.NewAnchorFragment(""), txn)
	if err != nil {
		return DocumentKey{}, err
	}
	emptyFragURI := u.WithoutFragment()
	empty := ""
	emptyFragURI.SetFragment(&empty)
	hashSrc, err := s.linkLocked(emptyFragURI, docKey, rootPath, uri.NewAnchorFragment(""), txn)
	if err != nil {
		return DocumentKey{}, err
	}

	doc, _ := s.documents.Get(docKey.k)
	doc.Value = value
	doc.Links = []SourceKey{baseSrc, hashSrc}
	s.documents.Set(docKey.k, doc)

	return docKey, nil
}

// Link records new as addressable under its URI, returning its SourceKey.
// If new's URI is already known and its recorded link differs, fails with
// ErrSourceConflict; otherwise the existing key is returned.
func (s *Sources) Link(u *uri.URI, docKey DocumentKey, path jsonpointer.Pointer, frag uri.Fragment, txn *Txn) (SourceKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkLocked(u, docKey, path, frag, txn)
}

func (s *Sources) linkLocked(u *uri.URI, docKey DocumentKey, path jsonpointer.Pointer, frag uri.Fragment, txn *Txn) (SourceKey, error) {
	doc, ok := s.documents.Get(docKey.k)
	if !ok {
		return SourceKey{}, ErrUnknownDocumentKey
	}
	if _, err := path.Evaluate(doc.Value); err != nil && path != "" {
		return SourceKey{}, ErrInvalidLinkPath.Wrap(err)
	}

	key := canonicalKey(u)
	if existing, ok := s.byURI[key]; ok {
		existingLink, _ := s.links.Get(existing.k)
		if existingLink.Document != docKey || existingLink.Path != path {
			return SourceKey{}, ErrSourceConflict
		}
		return existing, nil
	}

	linkKey := SourceKey{k: s.links.Insert(Link{URI: u, Document: docKey, Path: path, Fragment: frag})}
	s.byURI[key] = linkKey
	s.journal(txn, journalEntry{kind: journalInsertLink, srcKey: linkKey.k, uriKey: key})

	return linkKey, nil
}

// IndexDocument walks every interior position of the document at docKey,
// under baseURI, linking each as a Pointer-fragment SourceKey and invoking
// visit for each position, including ones already linked. It is idempotent: once a document
// has been indexed, subsequent calls are no-ops.
func (s *Sources) IndexDocument(docKey DocumentKey, baseURI *uri.URI, txn *Txn, visit func(SourceKey, jsonpointer.Pointer, any) error) error {
	s.mu.Lock()
	doc, ok := s.documents.Get(docKey.k)
	if !ok {
		s.mu.Unlock()
		return ErrUnknownDocumentKey
	}
	if doc.Indexed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	var walk func(value any, path jsonpointer.Pointer) error
	walk = func(value any, path jsonpointer.Pointer) error {
		u := baseURI.WithoutFragment()
		var fragStr *string
		fs := string(path)
		fragStr = &fs
		u.SetFragment(fragStr)

		s.mu.Lock()
		key, err := s.linkLocked(u, docKey, path, uri.NewPointerFragment(path), txn)
		s.mu.Unlock()
		if err != nil {
			return err
		}
		if visit != nil {
			if err := visit(key, path, value); err != nil {
				return err
			}
		}

		switch v := value.(type) {
		case map[string]any:
			for _, k := range sortedKeys(v) {
				if err := walk(v[k], path.Append(jsonpointer.Token(k))); err != nil {
					return err
				}
			}
		case []any:
			for i, elem := range v {
				if err := walk(elem, path.AppendIndex(i)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(doc.Value, ""); err != nil {
		return err
	}

	s.mu.Lock()
	doc, _ = s.documents.Get(docKey.k)
	doc.Indexed = true
	s.documents.Set(docKey.k, doc)
	s.mu.Unlock()

	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys)
	return keys
}

func insertionSort(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
