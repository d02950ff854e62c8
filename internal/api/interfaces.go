package api

import (
	"context"

	"github.com/neexbeast/travel-aggregator/internal/provider"
	"github.com/neexbeast/travel-aggregator/internal/storage"
	"github.com/neexbeast/travel-aggregator/internal/travel"
)

// TravelAggregator fans a search out to every provider.
type TravelAggregator interface {
	Aggregate(ctx context.Context, q travel.SearchQuery) (*travel.AggregatedResult, error)
}

// ResultCache defines the cache operations needed by handlers.
type ResultCache interface {
	Get(ctx context.Context, q travel.SearchQuery) (*travel.AggregatedResult, error)
	Set(ctx context.Context, q travel.SearchQuery, res *travel.AggregatedResult) error
	Delete(ctx context.Context, q travel.SearchQuery) error
}

// SearchHistory defines the storage operations needed by handlers.
type SearchHistory interface {
	RecordSearch(ctx context.Context, rec storage.SearchRecord) error
	RecentSearches(ctx context.Context, limit int) ([]storage.SearchRecord, error)
	SearchesWithFailedCategory(ctx context.Context, category travel.Category, limit int) ([]storage.SearchRecord, error)
}

// CheckinLinker looks up airline check-in URLs.
type CheckinLinker interface {
	CheckinLinks(ctx context.Context, airlineCode string) ([]provider.CheckinLink, error)
}

type cacheRecorder interface {
	IncCacheLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) IncCacheLookup(bool) {}
