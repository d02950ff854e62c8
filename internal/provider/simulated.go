package provider

import (
	"context"
	"strings"
	"time"

	"github.com/neexbeast/travel-aggregator/internal/travel"
)

// Simulated latencies, matching what the real upstreams typically take.
const (
	DefaultFlightLatency   = 500 * time.Millisecond
	DefaultHotelLatency    = 700 * time.Millisecond
	DefaultActivityLatency = 300 * time.Millisecond

	// assumedStayNights scales a nightly rate up to a whole-trip price for budget checks.
	assumedStayNights = 5
)

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sameCity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ---- Skyscanner ----

// SimulatedFlights stands in for the Skyscanner flight API.
type SimulatedFlights struct {
	latency time.Duration
	catalog []travel.Flight
}

// NewSimulatedFlights constructs the simulated flight provider.
func NewSimulatedFlights(latency time.Duration) *SimulatedFlights {
	return &SimulatedFlights{latency: latency, catalog: flightCatalog}
}

func (*SimulatedFlights) Name() string { return "Skyscanner" }

// Search returns flights into q.Location whose whole-trip price fits the budget.
func (s *SimulatedFlights) Search(ctx context.Context, q travel.SearchQuery) ([]travel.Flight, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}

	out := []travel.Flight{}
	for _, f := range s.catalog {
		if !sameCity(f.Destination, q.Location) {
			continue
		}
		if q.Budget != nil && f.Price > *q.Budget {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// ---- Hotelbeds ----

// SimulatedHotels stands in for the Hotelbeds hotel API.
type SimulatedHotels struct {
	latency time.Duration
	catalog []travel.Hotel
}

// NewSimulatedHotels constructs the simulated hotel provider.
func NewSimulatedHotels(latency time.Duration) *SimulatedHotels {
	return &SimulatedHotels{latency: latency, catalog: hotelCatalog}
}

func (*SimulatedHotels) Name() string { return "Hotelbeds" }

// Search returns hotels in q.Location whose nightly rate over an assumed stay fits the budget.
func (s *SimulatedHotels) Search(ctx context.Context, q travel.SearchQuery) ([]travel.Hotel, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}

	out := []travel.Hotel{}
	for _, h := range s.catalog {
		if !sameCity(h.Location, q.Location) {
			continue
		}
		if q.Budget != nil && h.PricePerNight*assumedStayNights > *q.Budget {
			continue
		}
		h.Amenities = append([]string(nil), h.Amenities...)
		out = append(out, h)
	}
	return out, nil
}

// ---- Viator ----

// SimulatedActivities stands in for the Viator activities API.
type SimulatedActivities struct {
	latency time.Duration
	catalog []travel.Activity
}

// NewSimulatedActivities constructs the simulated activities provider.
func NewSimulatedActivities(latency time.Duration) *SimulatedActivities {
	return &SimulatedActivities{latency: latency, catalog: activityCatalog}
}

func (*SimulatedActivities) Name() string { return "Viator" }

// Search returns activities in q.Location matching the keywords.
// Activities are treated as a small part of the trip, so only half the budget applies per person.
func (s *SimulatedActivities) Search(ctx context.Context, q travel.SearchQuery) ([]travel.Activity, error) {
	if err := wait(ctx, s.latency); err != nil {
		return nil, err
	}

	kw := strings.ToLower(strings.TrimSpace(q.Keywords))
	out := []travel.Activity{}
	for _, a := range s.catalog {
		if !sameCity(a.Location, q.Location) {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(a.Name), kw) && !strings.Contains(strings.ToLower(a.Description), kw) {
			continue
		}
		if q.Budget != nil && a.PricePerPerson > *q.Budget/2 {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
