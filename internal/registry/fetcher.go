// Package registry retrieves published release catalogs.
package registry

import (
	"context"

	"github.com/moldflow/mfupdate/internal/release"
)

// Fetcher retrieves the published release catalog of one distribution.
// Implementations never fail loudly: ok is false when no data is available.
type Fetcher interface {
	FetchReleases(ctx context.Context) (catalog release.Catalog, ok bool)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (release.Catalog, bool)

// FetchReleases calls f(ctx).
func (f FetcherFunc) FetchReleases(ctx context.Context) (release.Catalog, bool) {
	return f(ctx)
}
