package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/travel-aggregator/internal/travel"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SearchRecord is one served search as kept in the history table.
type SearchRecord struct {
	ID         uuid.UUID                `json:"id"`
	Location   string                   `json:"location"`
	StartDate  *time.Time               `json:"start_date,omitempty"`
	EndDate    *time.Time               `json:"end_date,omitempty"`
	Budget     *float64                 `json:"budget,omitempty"`
	Keywords   string                   `json:"keywords,omitempty"`
	Flights    int                      `json:"flights"`
	Hotels     int                      `json:"hotels"`
	Activities int                      `json:"activities"`
	Failures   []travel.ProviderFailure `json:"failures"`
	CacheHit   bool                     `json:"cache_hit"`
	CreatedAt  time.Time                `json:"created_at"`
}

// NewSearchRecord summarizes a served search.
func NewSearchRecord(q travel.SearchQuery, res *travel.AggregatedResult, cacheHit bool) SearchRecord {
	rec := SearchRecord{
		ID:        uuid.New(),
		Location:  q.Location,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Budget:    q.Budget,
		Keywords:  q.Keywords,
		CacheHit:  cacheHit,
		Failures:  []travel.ProviderFailure{},
	}
	if res != nil {
		rec.Flights = len(res.Flights)
		rec.Hotels = len(res.Hotels)
		rec.Activities = len(res.Activities)
		if len(res.Failures) > 0 {
			rec.Failures = res.Failures
		}
	}
	return rec
}

// Repository provides database access for search history.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// RecordSearch inserts a search record.
func (r *Repository) RecordSearch(ctx context.Context, rec SearchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Failures == nil {
		rec.Failures = []travel.ProviderFailure{}
	}

	failuresJSON, err := json.Marshal(rec.Failures)
	if err != nil {
		return fmt.Errorf("marshaling failures for search %s: %w", rec.ID, err)
	}

	const q = `
		INSERT INTO searches (id, location, start_date, end_date, budget, keywords,
		                      flights, hotels, activities, failures, cache_hit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if _, err := r.q.Exec(ctx, q,
		rec.ID, rec.Location, rec.StartDate, rec.EndDate, rec.Budget, rec.Keywords,
		rec.Flights, rec.Hotels, rec.Activities, failuresJSON, rec.CacheHit,
	); err != nil {
		return fmt.Errorf("recording search for %s: %w", rec.Location, err)
	}

	return nil
}

const selectSearches = `
	SELECT id, location, start_date, end_date, budget, keywords,
	       flights, hotels, activities, failures, cache_hit, created_at
	FROM searches
`

// RecentSearches returns the newest records first.
func (r *Repository) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	rows, err := r.q.Query(ctx, selectSearches+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent searches: %w", err)
	}
	return collect(rows)
}

// SearchesWithFailedCategory returns the newest searches in which the given category failed.
// Uses the JSONB @> containment operator.
func (r *Repository) SearchesWithFailedCategory(ctx context.Context, category travel.Category, limit int) ([]SearchRecord, error) {
	filter, err := json.Marshal([]map[string]any{{"category": category}})
	if err != nil {
		return nil, fmt.Errorf("marshaling JSONB filter: %w", err)
	}

	rows, err := r.q.Query(ctx, selectSearches+` WHERE failures @> $1::jsonb ORDER BY created_at DESC LIMIT $2`, string(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("querying searches by failed category: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]SearchRecord, error) {
	defer rows.Close()

	results := []SearchRecord{}
	for rows.Next() {
		var rec SearchRecord
		var failuresJSON []byte

		if err := rows.Scan(
			&rec.ID,
			&rec.Location,
			&rec.StartDate,
			&rec.EndDate,
			&rec.Budget,
			&rec.Keywords,
			&rec.Flights,
			&rec.Hotels,
			&rec.Activities,
			&failuresJSON,
			&rec.CacheHit,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		if err := json.Unmarshal(failuresJSON, &rec.Failures); err != nil {
			return nil, fmt.Errorf("unmarshaling failures for search %s: %w", rec.ID, err)
		}

		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	return results, nil
}
