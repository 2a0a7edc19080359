// Package assets loads remote assets through a credentialed URL resolver and
// a registry of type-specific loaders, retrying transient failures with a
// bounded exponential backoff.
package assets

import (
	"context"
	"slices"

	"github.com/stacklok/spatial-anchors/internal/httpclient"
)

// Resolution methods accepted by Resolver.ResolveURL
const (
	MethodGet = "GET"
	MethodPut = "PUT"
)

// Resolver turns an asset key into a time-limited URL
//
//go:generate mockgen -destination=mocks/mock_assets.go -package=mocks -source=types.go Resolver,Loader
type Resolver interface {
	// ResolveURL returns a URL that can be used with method to read or write key
	ResolveURL(ctx context.Context, key, method string) (string, error)
	// ResolveAllURLs returns read URLs for every object stored under key
	ResolveAllURLs(ctx context.Context, key string) ([]string, error)
}

// Loader fetches and decodes the asset at url. progress may be nil.
type Loader interface {
	Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error)

// Load calls f
func (f LoaderFunc) Load(ctx context.Context, url string, progress httpclient.ProgressFunc) (any, error) {
	return f(ctx, url, progress)
}

// Registry maps an asset type, such as "gltf" or "audio", to its loader
type Registry map[string]Loader

// Lookup returns the loader registered for assetType
func (r Registry) Lookup(assetType string) (Loader, bool) {
	l, ok := r[assetType]
	return l, ok && l != nil
}

// Types returns the registered asset types in sorted order
func (r Registry) Types() []string {
	types := make([]string, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
