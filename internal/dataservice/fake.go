package dataservice

import "context"

// FakeService is an in-process Service backed by a fixed slice of documents,
// used by tests and the demo CLI. query is expected to be a
// map[string]any with an optional "match" key used as a naive substring
// filter against each document's "text" field; this is illustrative only —
// the core never interprets query contents (spec §6).
type FakeService struct {
	Documents []map[string]any
}

// NewFakeService constructs a FakeService over docs.
func NewFakeService(docs []map[string]any) *FakeService {
	return &FakeService{Documents: docs}
}

func (f *FakeService) matches(query any) []map[string]any {
	q, _ := query.(map[string]any)
	match, _ := q["match"].(string)
	if match == "" {
		return f.Documents
	}
	var out []map[string]any
	for _, doc := range f.Documents {
		text, _ := doc["text"].(string)
		if contains(text, match) {
			out = append(out, doc)
		}
	}
	return out
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Search implements Service.
func (f *FakeService) Search(_ context.Context, query any) (SearchResult, error) {
	hits := f.matches(query)
	return SearchResult{Total: len(hits), Hits: hits}, nil
}

// SearchPage implements Service.
func (f *FakeService) SearchPage(_ context.Context, query any, size, from int) (SearchResult, error) {
	hits := f.matches(query)
	total := len(hits)
	if from > total {
		from = total
	}
	end := from + size
	if end > total {
		end = total
	}
	return SearchResult{Total: total, Hits: hits[from:end]}, nil
}

// Aggregate implements Service.
func (f *FakeService) Aggregate(_ context.Context, query any) (AggregateResult, error) {
	hits := f.matches(query)
	byKey := map[string]any{}
	for _, h := range hits {
		if key, ok := h["category"].(string); ok {
			count, _ := byKey[key].(int)
			byKey[key] = count + 1
		}
	}
	return AggregateResult{Hits: hits, Aggregations: byKey}, nil
}
