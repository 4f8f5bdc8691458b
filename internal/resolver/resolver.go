// Package resolver turns loose queries into concrete media through cached
// lookups against unreliable external services. Resolvers never return
// errors: every failure becomes a deterministic fallback that is cached like
// a real answer.
package resolver

import (
	"context"
	"time"

	"github.com/justchokingaround/moodcast/internal/providers/itunes"
)

// DefaultTimeout bounds every external call made by a resolver
const DefaultTimeout = 8 * time.Second

// CatalogSearcher searches the artwork/podcast catalog
type CatalogSearcher interface {
	Search(ctx context.Context, params itunes.SearchParams) ([]itunes.Result, error)
}

// PageFetcher returns the raw markup of a search results page
type PageFetcher interface {
	FetchSearchPage(ctx context.Context, url string) (string, error)
}

// TokenExtractor pulls the first video id out of a markup document
type TokenExtractor interface {
	ExtractFirst(doc string) (string, bool)
}

// detached derives the context for an external call. Caller cancellation is
// dropped so a shared lookup always finishes for every waiter; values such as
// the request id are kept.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
