package driving

import (
	"context"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

// Searcher runs queries over the materialised document set.
// Search never returns an error to its caller: unexpected failures
// degrade to an empty result set with generic suggestions.
type Searcher interface {
	// Search scores the ready document set against the query.
	Search(ctx context.Context, query string, filters *domain.SearchFilters, opts *domain.SearchOptions) *domain.SearchResults
}
