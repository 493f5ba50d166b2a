// Package uri implements the URI model: parsing, normalization, and
// RFC 3986 §5 base resolution for the three URI variants the engine
// distinguishes — absolute URLs, URNs, and relative URI-references.
//
// Parsing is built on net/url, which already implements the bulk of
// RFC 3986's grammar and its §5.3 reference-resolution algorithm; this
// package adds the absolute/URN/relative variant distinction, canonical
// serialization, and fragment semantics (anchor vs. JSON-pointer fragments)
// that the engine needs on top of it.
package uri

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/jsonschema-engine/interrogator/cache"
	"github.com/jsonschema-engine/interrogator/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// ErrFailedToParseURL is returned when a URL-variant URI fails RFC 3986 parsing.
	ErrFailedToParseURL = errors.Error("failed to parse url")
	// ErrFailedToParseURN is returned when a urn: scheme URI fails RFC 8141 parsing.
	ErrFailedToParseURN = errors.Error("failed to parse urn")
	// ErrFailedToParseRelativeURI is returned when a relative URI-reference fails to parse.
	ErrFailedToParseRelativeURI = errors.Error("failed to parse relative uri")
	// ErrNotAbsolute is returned when an absolute URI was required but not supplied.
	ErrNotAbsolute = errors.Error("uri is not absolute")
	// ErrMalformedAuthority is returned when the authority sub-grammar is violated.
	ErrMalformedAuthority = errors.Error("malformed authority")
	// ErrInvalidScheme is returned when the scheme token is not a valid RFC 3986 scheme.
	ErrInvalidScheme = errors.Error("invalid scheme")
	// ErrInvalidPort is returned when a port value falls outside [0, 65535].
	ErrInvalidPort = errors.Error("invalid port")
	// ErrOverflow is returned when an offset into the URI string would exceed 32 bits.
	ErrOverflow = errors.Error("uri exceeds maximum representable length")
)

const maxURILength = 1<<32 - 1

var schemeCaser = cases.Lower(language.Und)

// Kind distinguishes the three URI variants the engine models.
type Kind int

const (
	// KindAbsolute is a URL-style absolute URI (has a scheme and, per RFC 3986, is not a urn: scheme).
	KindAbsolute Kind = iota
	// KindURN is a urn:<nid>:<nss> URI per RFC 8141.
	KindURN
	// KindRelative is a scheme-less relative URI-reference.
	KindRelative
)

func (k Kind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindURN:
		return "urn"
	case KindRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// URI is a parsed URI of any of the three variants, normalized on request
// and comparable by its canonical serialized form.
type URI struct {
	kind Kind
	u    *url.URL
	// fragmentPresent distinguishes an absent fragment from an empty-but-present
	// one ("#"), a distinction net/url's URL.Fragment=="" cannot represent on
	// its own.
	fragmentPresent bool
	// nid/nss hold the URN namespace-identifier/namespace-specific-string once
	// parsed, kept alongside u (whose Opaque carries "<nid>:<nss>").
	nid, nss string
}

var parseCache = cache.NewKeyed[*URI]()

func init() {
	cache.DefaultManager.Register("uri.parse", parseCache)
}

// Parse parses s as any of the three URI variants, selecting absolute vs.
// relative by whether s begins with a scheme token followed by ':'.
func Parse(s string) (*URI, error) {
	if len(s) > maxURILength {
		return nil, ErrOverflow
	}

	cached, err := parseCache.GetOrCreate(s, func() (*URI, error) {
		return parse(s)
	})
	if err != nil {
		return nil, err
	}
	// Return a copy so callers mutating the fragment of their own instance
	// never disturb the cached canonical parse.
	cp := *cached
	if cached.u != nil {
		u2 := *cached.u
		cp.u = &u2
	}
	return &cp, nil
}

func parse(s string) (*URI, error) {
	if isURNScheme(s) {
		return parseURN(s)
	}
	if hasScheme(s) {
		return parseAbsolute(s)
	}
	return parseRelative(s)
}

// ParseAbsolute parses s, requiring it to be an absolute URI (URL or URN
// variant); relative references fail with ErrNotAbsolute.
func ParseAbsolute(s string) (*URI, error) {
	u, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if !u.IsAbsolute() {
		return nil, ErrNotAbsolute
	}
	return u, nil
}

func hasScheme(s string) bool {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 {
		return false
	}
	scheme := s[:idx]
	if !unicode.IsLetter(rune(scheme[0])) {
		return false
	}
	for i := 1; i < len(scheme); i++ {
		c := scheme[i]
		if !(unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isURNScheme(s string) bool {
	return len(s) >= 4 && strings.EqualFold(s[:4], "urn:")
}

func parseAbsolute(s string) (*URI, error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return nil, ErrFailedToParseURL.Wrap(err)
	}
	if parsed.Scheme == "" {
		return nil, ErrInvalidScheme
	}
	if parsed.Port() != "" {
		if err := validatePort(parsed.Port()); err != nil {
			return nil, err
		}
	}
	if parsed.Opaque == "" && parsed.User != nil && parsed.Host == "" {
		return nil, ErrMalformedAuthority
	}
	return &URI{kind: KindAbsolute, u: parsed, fragmentPresent: strings.Contains(s, "#")}, nil
}

func parseRelative(s string) (*URI, error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return nil, ErrFailedToParseRelativeURI.Wrap(err)
	}
	if parsed.IsAbs() {
		return nil, ErrFailedToParseRelativeURI
	}
	return &URI{kind: KindRelative, u: parsed, fragmentPresent: strings.Contains(s, "#")}, nil
}

func parseURN(s string) (*URI, error) {
	rest := s[4:] // after "urn:"
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 {
		return nil, ErrFailedToParseURN.Wrap(errors.New("urn missing namespace-specific string: " + s))
	}
	nid := rest[:idx]
	nss := rest[idx+1:]
	if !validNID(nid) {
		return nil, ErrFailedToParseURN.Wrap(errors.New("invalid urn namespace identifier: " + nid))
	}
	if nss == "" {
		return nil, ErrFailedToParseURN.Wrap(errors.New("empty urn namespace-specific string"))
	}

	frag := ""
	if hashIdx := strings.IndexByte(nss, '#'); hashIdx >= 0 {
		frag = nss[hashIdx+1:]
		nss = nss[:hashIdx]
	}

	parsed := &url.URL{Scheme: "urn", Opaque: nid + ":" + nss}
	fragmentPresent := strings.Contains(s, "#")
	if frag != "" {
		parsed.Fragment = frag
	}
	return &URI{kind: KindURN, u: parsed, nid: nid, nss: nss, fragmentPresent: fragmentPresent}, nil
}

func validNID(nid string) bool {
	if len(nid) == 0 || len(nid) > 32 {
		return false
	}
	for i, c := range nid {
		isAlnum := unicode.IsLetter(c) || unicode.IsDigit(c)
		if i == 0 && !isAlnum {
			return false
		}
		if !isAlnum && c != '-' {
			return false
		}
	}
	return true
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// Kind returns which of the three variants u is.
func (u *URI) Kind() Kind {
	return u.kind
}

// IsAbsolute reports whether u is an absolute URL or URN (not a relative
// reference).
func (u *URI) IsAbsolute() bool {
	return u.kind != KindRelative
}

// Scheme returns the lowercased scheme, or "" for a relative reference.
func (u *URI) Scheme() string {
	return u.u.Scheme
}

// Fragment reports u's fragment, if any, and whether a "#" is present at all
// (distinguishing "no fragment", which reports false, from an empty
// fragment, which reports true with a Fragment whose IsEmpty is true).
func (u *URI) Fragment() (Fragment, bool) {
	if !u.hasFragmentMarker() {
		return Fragment{}, false
	}
	return parseFragment(u.u.Fragment), true
}

// hasFragmentMarker distinguishes "#" present vs. absent. net/url does not
// retain this distinction once Fragment == "", so Parse and SetFragment
// record it in fragmentPresent; "http://x" and "http://x#" stay distinct.
func (u *URI) hasFragmentMarker() bool {
	return u.fragmentPresent
}

// SetFragment sets u's fragment. Passing nil clears the fragment entirely
// (removing the "#"); passing a pointer to "" sets an empty-but-present
// fragment ("#"); passing a non-empty string sets "#<value>".
func (u *URI) SetFragment(frag *string) {
	if frag == nil {
		u.u.Fragment = ""
		u.u.RawFragment = ""
		u.fragmentPresent = false
		return
	}
	u.u.Fragment = *frag
	u.u.RawFragment = ""
	u.fragmentPresent = true
}

// ClearFragment removes any fragment from u.
func (u *URI) ClearFragment() {
	u.SetFragment(nil)
}

// WithoutFragment returns a copy of u with its fragment removed — the base
// document URI used to key the source repository.
func (u *URI) WithoutFragment() *URI {
	cp := u.clone()
	cp.ClearFragment()
	return cp
}

func (u *URI) clone() *URI {
	cp := *u
	u2 := *u.u
	cp.u = &u2
	return &cp
}

// Normalize returns a new URI with the scheme lowercased, dot-segments
// removed from the path, and the empty-fragment form canonicalized away
// (an empty "#" fragment is dropped, matching this engine's canonical-id
// convention; see DESIGN.md on the $id empty-fragment Open Question).
func (u *URI) Normalize() *URI {
	cp := u.normalizeKeepFragment()
	if cp.u.Fragment == "" {
		cp.u.RawFragment = ""
		cp.fragmentPresent = false
	}
	return cp
}

// CanonicalString serializes u with scheme lowercased and dot-segments
// removed, but preserves whether an empty fragment ("#") is present — unlike
// Normalize, which is used for canonical-id comparison and drops it. The
// source repository uses this form as its URI index key, since it must
// distinguish "https://ex/s" from "https://ex/s#" (two distinct SourceKeys
// over the same document root).
func (u *URI) CanonicalString() string {
	return u.normalizeKeepFragment().String()
}

func (u *URI) normalizeKeepFragment() *URI {
	cp := u.clone()
	cp.u.Scheme = schemeCaser.String(cp.u.Scheme)
	if cp.u.Opaque == "" {
		cp.u.Path = cleanPath(cp.u.Path)
	}
	return cp
}

func cleanPath(p string) string {
	if p == "" {
		return p
	}
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != "" && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
				continue
			}
			out = append(out, seg)
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}

// ResolveReference resolves ref against u as the base, per RFC 3986 §5.
// Per §5.3's algorithm, the resolved fragment is always ref's fragment
// (never the base's), defined or not.
func (u *URI) ResolveReference(ref *URI) *URI {
	resolved := u.u.ResolveReference(ref.u)
	kind := KindAbsolute
	if resolved.Scheme == "urn" {
		kind = KindURN
	}
	return &URI{kind: kind, u: resolved, fragmentPresent: ref.fragmentPresent}
}

// String returns u's canonical serialized form.
func (u *URI) String() string {
	s := u.u.String()
	if u.fragmentPresent && u.u.Fragment == "" {
		s += "#"
	}
	return s
}

// Equal reports whether u and other serialize identically after
// normalization.
func (u *URI) Equal(other *URI) bool {
	if other == nil {
		return false
	}
	return u.Normalize().String() == other.Normalize().String()
}

// Host returns the host[:port] component, or "" if absent or not a URL-variant URI.
func (u *URI) Host() string {
	return u.u.Host
}

// Path returns the path component.
func (u *URI) Path() string {
	return u.u.Path
}
