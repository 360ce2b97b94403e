// Package typesensestore implements dataservice.Service on top of
// github.com/typesense/typesense-go/v4, used by the es_query_exec and
// page_query worker bodies against a real search collection.
package typesensestore

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"

	"github.com/beefkknd/deterministic-planner/internal/dataservice"
)

// Service implements dataservice.Service against a single Typesense
// collection. query documents passed in are expected to carry a "q" string
// and optional "filter_by"/"query_by" keys — the core never inspects these,
// they flow through opaquely from the worker's own query-generation step.
type Service struct {
	client     *typesense.Client
	collection string
}

// New constructs a Service for the given collection, using a Typesense
// client configured with apiKey against serverURL.
func New(serverURL, apiKey, collection string) *Service {
	client := typesense.NewClient(
		typesense.WithServer(serverURL),
		typesense.WithAPIKey(apiKey),
	)
	return &Service{client: client, collection: collection}
}

func searchParams(query any, size, from int) *api.SearchCollectionParams {
	q, _ := query.(map[string]any)
	text, _ := q["q"].(string)
	if text == "" {
		text = "*"
	}
	queryBy, _ := q["query_by"].(string)
	if queryBy == "" {
		queryBy = "text"
	}
	params := &api.SearchCollectionParams{
		Q:       text,
		QueryBy: queryBy,
	}
	if filterBy, ok := q["filter_by"].(string); ok && filterBy != "" {
		params.FilterBy = &filterBy
	}
	if size > 0 {
		perPage := size
		params.PerPage = &perPage
	}
	if from > 0 && size > 0 {
		page := from/size + 1
		params.Page = &page
	}
	return params
}

func toHits(result *api.SearchResult) []map[string]any {
	hits := make([]map[string]any, 0, len(*result.Hits))
	for _, h := range *result.Hits {
		if h.Document != nil {
			hits = append(hits, *h.Document)
		}
	}
	return hits
}

// Search implements dataservice.Service.
func (s *Service) Search(ctx context.Context, query any) (dataservice.SearchResult, error) {
	return s.SearchPage(ctx, query, 0, 0)
}

// SearchPage implements dataservice.Service.
func (s *Service) SearchPage(ctx context.Context, query any, size, from int) (dataservice.SearchResult, error) {
	result, err := s.client.Collection(s.collection).Documents().Search(ctx, searchParams(query, size, from))
	if err != nil {
		return dataservice.SearchResult{}, fmt.Errorf("typesensestore: search %s: %w", s.collection, err)
	}
	total := 0
	if result.Found != nil {
		total = *result.Found
	}
	return dataservice.SearchResult{Total: total, Hits: toHits(result)}, nil
}

// Aggregate implements dataservice.Service. Typesense does not have a
// dedicated aggregation endpoint comparable to the spec's contract; this
// derives simple facet-style counts from a faceted search, matching the
// {hits, aggregations} shape callers expect.
func (s *Service) Aggregate(ctx context.Context, query any) (dataservice.AggregateResult, error) {
	params := searchParams(query, 0, 0)
	q, _ := query.(map[string]any)
	if facetBy, ok := q["facet_by"].(string); ok && facetBy != "" {
		params.FacetBy = &facetBy
	}
	result, err := s.client.Collection(s.collection).Documents().Search(ctx, params)
	if err != nil {
		return dataservice.AggregateResult{}, fmt.Errorf("typesensestore: aggregate %s: %w", s.collection, err)
	}
	aggs := make(map[string]any)
	if result.FacetCounts != nil {
		for _, facet := range *result.FacetCounts {
			if facet.FieldName == nil {
				continue
			}
			counts := make(map[string]int)
			if facet.Counts != nil {
				for _, c := range *facet.Counts {
					if c.Value != nil && c.Count != nil {
						counts[*c.Value] = *c.Count
					}
				}
			}
			aggs[*facet.FieldName] = counts
		}
	}
	return dataservice.AggregateResult{Hits: toHits(result), Aggregations: aggs}, nil
}
