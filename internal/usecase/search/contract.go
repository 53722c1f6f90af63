package search

import (
	"context"

	"github.com/kailas-cloud/logdex/internal/domain"
)

// Wire drives the Logpoint search protocol: one submission call, then
// repeated identical polls until the service asserts the final flag.
type Wire interface {
	StartSearch(ctx context.Context, req domain.Request) (string, error)
	FetchPage(ctx context.Context, searchID string) (domain.Page, error)
}

// RepoLister fetches the repositories the credential may search.
// Separate from Wire so a caching decorator can wrap the listing alone.
type RepoLister interface {
	ListRepositories(ctx context.Context) ([]string, error)
}
