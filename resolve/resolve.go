// Package resolve implements the external source-fetching collaborator
// (§6): a Resolver interface, a Chain that tries several in order, and a
// default file:// implementation backed by system.FileSystem. Fetching
// schemas over HTTP remains an external collaborator's responsibility.
package resolve

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/system"
	"github.com/jsonschema-engine/interrogator/uri"
)

const (
	// ErrNotFound is returned by a Resolver that recognizes the URI's scheme
	// but cannot locate the resource.
	ErrNotFound = errors.Error("resolve: not found")
	// ErrUnsupportedScheme is returned by a Resolver asked to resolve a URI
	// whose scheme it does not handle.
	ErrUnsupportedScheme = errors.Error("resolve: unsupported scheme")
	// ErrNoResolverMatched is returned by a Chain that has no Resolvers
	// registered; when every registered Resolver fails, the Chain returns
	// their failures as Errors instead.
	ErrNoResolverMatched = errors.Error("resolve: no resolver matched")
)

// Resolver fetches the raw bytes backing u, along with a format hint (e.g.
// "json", "yaml") a decode.Chain can use to pick a Deserializer.
type Resolver interface {
	Resolve(ctx context.Context, u *uri.URI) (r io.Reader, format string, err error)
}

// Func adapts a plain function to a Resolver.
type Func func(ctx context.Context, u *uri.URI) (io.Reader, string, error)

func (f Func) Resolve(ctx context.Context, u *uri.URI) (io.Reader, string, error) {
	return f(ctx, u)
}

// Chain tries each registered Resolver in order, returning the first
// successful result. If every Resolver fails, it returns an Errors
// aggregate wrapping each attempt's cause.
type Chain struct {
	resolvers []Resolver
}

// NewChain returns a Chain trying resolvers in the given order.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Add appends r to the end of the chain.
func (c *Chain) Add(r Resolver) {
	c.resolvers = append(c.resolvers, r)
}

// Resolve implements Resolver.
func (c *Chain) Resolve(ctx context.Context, u *uri.URI) (io.Reader, string, error) {
	if len(c.resolvers) == 0 {
		return nil, "", ErrNoResolverMatched
	}

	var errs Errors
	for _, r := range c.resolvers {
		reader, format, err := r.Resolve(ctx, u)
		if err == nil {
			return reader, format, nil
		}
		errs = append(errs, err)
	}
	return nil, "", errs
}

// Errors aggregates one cause per resolver attempted by a Chain, and
// implements Unwrap() []error so errors.Is/errors.As see through to any
// individual cause (matching errors.UnwrapErrors' expectations).
type Errors []error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "resolve: no resolvers attempted"
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("resolve: all resolvers failed: %s", strings.Join(parts, "; "))
}

func (e Errors) Unwrap() []error { return e }

// FileResolver resolves file:// URIs against a system.VirtualFS, defaulting
// to the real filesystem. The format hint is inferred from the path's
// extension, defaulting to "json".
type FileResolver struct {
	FS system.VirtualFS
}

// NewFileResolver returns a FileResolver backed by the real filesystem.
func NewFileResolver() *FileResolver {
	return &FileResolver{FS: &system.FileSystem{}}
}

func (f *FileResolver) Resolve(_ context.Context, u *uri.URI) (io.Reader, string, error) {
	if u.Scheme() != "file" {
		return nil, "", ErrUnsupportedScheme
	}

	path := u.Path()
	file, err := f.FS.Open(path)
	if err != nil {
		return nil, "", ErrNotFound.Wrap(err)
	}

	data, err := io.ReadAll(file)
	_ = file.Close()
	if err != nil {
		return nil, "", err
	}

	return strings.NewReader(string(data)), formatFromPath(path), nil
}

func formatFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return "yaml"
	default:
		return "json"
	}
}
