// Package dataservice defines the downstream data-service contract (spec §6):
// a search returning {hits: {total: {value}, hits: []}}, and an aggregation
// returning {hits, aggregations}. The core does not define the query
// language; it only passes through opaque query documents produced by the
// worker bodies (es_query_gen et al.).
package dataservice

import "context"

// SearchResult mirrors the search response shape from spec §6.
type SearchResult struct {
	Total int
	Hits  []map[string]any
}

// AggregateResult mirrors the aggregation response shape from spec §6.
type AggregateResult struct {
	Hits         []map[string]any
	Aggregations map[string]any
}

// Service is the data-service contract required by worker bodies
// (es_query_exec, page_query). query is an opaque document
// the core never inspects.
type Service interface {
	// Search runs a non-paginated search.
	Search(ctx context.Context, query any) (SearchResult, error)

	// SearchPage runs a paginated search for size results starting at from_.
	SearchPage(ctx context.Context, query any, size, from int) (SearchResult, error)

	// Aggregate runs an aggregation query.
	Aggregate(ctx context.Context, query any) (AggregateResult, error)
}
