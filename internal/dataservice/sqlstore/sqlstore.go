// Package sqlstore implements dataservice.Service on top of database/sql
// with the github.com/lib/pq driver: a reference-table backend selectable in
// place of the search index for the workers that call the data service
// (es_query_exec, page_query).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/beefkknd/deterministic-planner/internal/dataservice"
)

// Service implements dataservice.Service against a single Postgres table.
// query documents are expected to carry a "match" string matched against the
// table's "label" column; the core never inspects these, they flow through
// opaquely from the worker bodies.
type Service struct {
	db    *sql.DB
	table string
}

// New opens a Postgres connection pool at dsn and returns a Service querying
// table. The caller owns closing the returned Service via Close.
func New(dsn, table string) (*Service, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	return &Service{db: db, table: table}, nil
}

// Close releases the underlying connection pool.
func (s *Service) Close() error {
	return s.db.Close()
}

func matchOf(query any) string {
	q, _ := query.(map[string]any)
	match, _ := q["match"].(string)
	return match
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: columns: %w", err)
	}
	var hits []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		hits = append(hits, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: rows: %w", err)
	}
	return hits, nil
}

// Search implements dataservice.Service.
func (s *Service) Search(ctx context.Context, query any) (dataservice.SearchResult, error) {
	return s.SearchPage(ctx, query, 0, 0)
}

// SearchPage implements dataservice.Service.
func (s *Service) SearchPage(ctx context.Context, query any, size, from int) (dataservice.SearchResult, error) {
	match := matchOf(query)
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE label ILIKE $1 ORDER BY id", s.table)
	args := []any{"%" + match + "%"}
	if size > 0 {
		stmt += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, size, from)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return dataservice.SearchResult{}, fmt.Errorf("sqlstore: search %s: %w", s.table, err)
	}
	defer rows.Close()
	hits, err := scanRows(rows)
	if err != nil {
		return dataservice.SearchResult{}, err
	}

	var total int
	countStmt := fmt.Sprintf("SELECT count(*) FROM %s WHERE label ILIKE $1", s.table)
	if err := s.db.QueryRowContext(ctx, countStmt, "%"+match+"%").Scan(&total); err != nil {
		return dataservice.SearchResult{}, fmt.Errorf("sqlstore: count %s: %w", s.table, err)
	}
	return dataservice.SearchResult{Total: total, Hits: hits}, nil
}

// Aggregate implements dataservice.Service by grouping on the "category"
// column, the closest SQL analogue to the spec's aggregation contract.
func (s *Service) Aggregate(ctx context.Context, query any) (dataservice.AggregateResult, error) {
	match := matchOf(query)
	stmt := fmt.Sprintf("SELECT category, count(*) FROM %s WHERE label ILIKE $1 GROUP BY category", s.table)
	rows, err := s.db.QueryContext(ctx, stmt, "%"+match+"%")
	if err != nil {
		return dataservice.AggregateResult{}, fmt.Errorf("sqlstore: aggregate %s: %w", s.table, err)
	}
	defer rows.Close()

	aggs := make(map[string]any)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return dataservice.AggregateResult{}, fmt.Errorf("sqlstore: scan aggregate: %w", err)
		}
		aggs[category] = count
	}
	if err := rows.Err(); err != nil {
		return dataservice.AggregateResult{}, fmt.Errorf("sqlstore: aggregate rows: %w", err)
	}

	hits, err := s.SearchPage(ctx, query, 0, 0)
	if err != nil {
		return dataservice.AggregateResult{}, err
	}
	return dataservice.AggregateResult{Hits: hits.Hits, Aggregations: aggs}, nil
}
