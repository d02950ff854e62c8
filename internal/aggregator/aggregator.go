package aggregator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/travel-aggregator/internal/travel"
)

// Provider is a single upstream source for one kind of item.
type Provider[T any] interface {
	Name() string
	Search(ctx context.Context, q travel.SearchQuery) ([]T, error)
}

type providerRecorder interface {
	ObserveProviderLatency(category, provider string, d time.Duration)
	IncProviderFailure(category, provider string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveProviderLatency(string, string, time.Duration) {}
func (nopRecorder) IncProviderFailure(string, string)                    {}

// Aggregator fans a query out to the flight, hotel and activity providers in parallel.
type Aggregator struct {
	flights    Provider[travel.Flight]
	hotels     Provider[travel.Hotel]
	activities Provider[travel.Activity]

	timeout time.Duration
	log     *slog.Logger
	metrics providerRecorder
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds every provider call. Zero means no per-call bound.
func WithTimeout(d time.Duration) Option { return func(a *Aggregator) { a.timeout = d } }

func WithLogger(l *slog.Logger) Option { return func(a *Aggregator) { a.log = l } }

func WithMetrics(m providerRecorder) Option { return func(a *Aggregator) { a.metrics = m } }

// New constructs an Aggregator over the three providers.
func New(flights Provider[travel.Flight], hotels Provider[travel.Hotel], activities Provider[travel.Activity], opts ...Option) *Aggregator {
	a := &Aggregator{
		flights:    flights,
		hotels:     hotels,
		activities: activities,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate validates q, queries all providers concurrently and merges their results.
// Provider failures are folded into the result; only a validation error or a crashed
// provider call fails the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, q travel.SearchQuery) (*travel.AggregatedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	var (
		flights    []travel.Flight
		hotels     []travel.Hotel
		activities []travel.Activity

		flightsErr, hotelsErr, activitiesErr *ProviderError
	)

	g.Go(search(gCtx, a, travel.CategoryFlights, a.flights, q.Clone(), &flights, &flightsErr))
	g.Go(search(gCtx, a, travel.CategoryHotels, a.hotels, q.Clone(), &hotels, &hotelsErr))
	g.Go(search(gCtx, a, travel.CategoryActivities, a.activities, q.Clone(), &activities, &activitiesErr))

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregating travel data for %s: %w", q.Location, err)
	}

	res := &travel.AggregatedResult{
		Flights:    flights,
		Hotels:     hotels,
		Activities: activities,
	}
	for _, pErr := range []*ProviderError{flightsErr, hotelsErr, activitiesErr} {
		if pErr != nil {
			res.Failures = append(res.Failures, pErr.failure())
		}
	}

	a.log.Info("aggregated travel data",
		"location", q.Location,
		"flights", len(res.Flights),
		"hotels", len(res.Hotels),
		"activities", len(res.Activities),
		"failed_categories", len(res.Failures),
	)

	return res, nil
}

// search returns the errgroup task for one category. A reported error lands in
// *failure and the task succeeds; a panic becomes the task's error.
func search[T any](ctx context.Context, a *Aggregator, cat travel.Category, p Provider[T], q travel.SearchQuery, out *[]T, failure **ProviderError) func() error {
	return func() (err error) {
		name := p.Name()
		*out = []T{}

		defer func() {
			if r := recover(); r != nil {
				a.log.Error("provider search panicked", "category", cat, "provider", name, "recover", r)
				a.metrics.IncProviderFailure(string(cat), name)
				err = &InfrastructureError{Category: cat, Provider: name, Panic: r}
			}
		}()

		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		start := time.Now()
		items, searchErr := p.Search(ctx, q)
		a.metrics.ObserveProviderLatency(string(cat), name, time.Since(start))

		if searchErr != nil {
			a.log.Warn("provider search failed", "category", cat, "provider", name, "location", q.Location, "err", searchErr)
			a.metrics.IncProviderFailure(string(cat), name)
			*failure = &ProviderError{Category: cat, Provider: name, Err: searchErr}
			return nil
		}

		if items != nil {
			*out = items
		}
		return nil
	}
}
