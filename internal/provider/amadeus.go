package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/travel-aggregator/internal/auth"
	"github.com/neexbeast/travel-aggregator/internal/travel"
)

const httpTimeout = 10 * time.Second

var errUnauthorized = errors.New("upstream rejected bearer token")

// TokenSource hands out bearer tokens for the Amadeus API.
// *auth.Authenticator satisfies this interface.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(rejected string)
}

// doGet performs an authenticated GET and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL, token string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("GET %s: %w", rawURL, errUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// ---- Amadeus ----

// AmadeusClient calls the Amadeus self-service API with a cached bearer token.
type AmadeusClient struct {
	tokens  TokenSource
	baseURL string
	client  *http.Client
}

// NewAmadeusClient constructs an AmadeusClient against the default test environment.
func NewAmadeusClient(tokens TokenSource) *AmadeusClient {
	return NewAmadeusClientWithURL(auth.DefaultBaseURL, tokens)
}

// NewAmadeusClientWithURL constructs an AmadeusClient pointing at a custom base URL (for tests).
func NewAmadeusClientWithURL(baseURL string, tokens TokenSource) *AmadeusClient {
	return &AmadeusClient{
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// get attaches a bearer token to the request. A 401 drops the cached token and retries once.
func (c *AmadeusClient) get(ctx context.Context, path string, params url.Values, dst any) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("obtaining amadeus token: %w", err)
		}

		err = doGet(ctx, c.client, endpoint, token, dst)
		if errors.Is(err, errUnauthorized) && attempt == 0 {
			c.tokens.Invalidate(token)
			continue
		}
		return err
	}
}

// CheckinLink is one airline check-in URL.
type CheckinLink struct {
	Type    string `json:"type"`
	Href    string `json:"href"`
	Channel string `json:"channel"`
}

type checkinLinksResponse struct {
	Data []CheckinLink `json:"data"`
}

// CheckinLinks returns the online check-in URLs for the given airline code.
func (c *AmadeusClient) CheckinLinks(ctx context.Context, airlineCode string) ([]CheckinLink, error) {
	params := url.Values{"airlineCode": {strings.ToUpper(airlineCode)}}

	var raw checkinLinksResponse
	if err := c.get(ctx, "v2/reference-data/urls/checkin-links", params, &raw); err != nil {
		return nil, fmt.Errorf("amadeus checkin links for %s: %w", airlineCode, err)
	}
	if raw.Data == nil {
		return []CheckinLink{}, nil
	}
	return raw.Data, nil
}

type locationsResponse struct {
	Data []struct {
		IATACode string `json:"iataCode"`
		SubType  string `json:"subType"`
		Name     string `json:"name"`
	} `json:"data"`
}

// CityCode resolves a city name to its IATA code.
func (c *AmadeusClient) CityCode(ctx context.Context, keyword string) (string, error) {
	params := url.Values{
		"subType": {"CITY"},
		"keyword": {keyword},
	}

	var raw locationsResponse
	if err := c.get(ctx, "v1/reference-data/locations", params, &raw); err != nil {
		return "", fmt.Errorf("amadeus location lookup for %s: %w", keyword, err)
	}
	for _, loc := range raw.Data {
		if loc.IATACode != "" {
			return loc.IATACode, nil
		}
	}
	return "", fmt.Errorf("amadeus: no city code for %s", keyword)
}

// OfferSearch describes a one-way flight offers request.
type OfferSearch struct {
	Origin        string
	Destination   string
	DepartureDate time.Time
	MaxPrice      *float64
	Max           int
}

type flightOffersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Itineraries []struct {
			Segments []struct {
				Departure struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
				CarrierCode string `json:"carrierCode"`
				Number      string `json:"number"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Currency   string `json:"currency"`
			GrandTotal string `json:"grandTotal"`
		} `json:"price"`
	} `json:"data"`
}

// FlightOffers searches Amadeus for flight offers and maps them to travel.Flight.
func (c *AmadeusClient) FlightOffers(ctx context.Context, s OfferSearch) ([]travel.Flight, error) {
	params := url.Values{
		"originLocationCode":      {s.Origin},
		"destinationLocationCode": {s.Destination},
		"departureDate":           {s.DepartureDate.Format(travel.DateLayout)},
		"adults":                  {"1"},
	}
	if s.Max > 0 {
		params.Set("max", strconv.Itoa(s.Max))
	}
	if s.MaxPrice != nil {
		params.Set("maxPrice", strconv.Itoa(maxPriceParam(*s.MaxPrice)))
	}

	var raw flightOffersResponse
	if err := c.get(ctx, "v2/shopping/flight-offers", params, &raw); err != nil {
		return nil, fmt.Errorf("amadeus flight offers %s-%s: %w", s.Origin, s.Destination, err)
	}

	flights := make([]travel.Flight, 0, len(raw.Data))
	for _, offer := range raw.Data {
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		segs := offer.Itineraries[0].Segments
		first, last := segs[0], segs[len(segs)-1]

		price, err := strconv.ParseFloat(offer.Price.GrandTotal, 64)
		if err != nil {
			return nil, fmt.Errorf("amadeus offer %s has invalid price %q: %w", offer.ID, offer.Price.GrandTotal, err)
		}

		depDate, depTime := splitTimestamp(first.Departure.At)
		arrDate, arrTime := splitTimestamp(last.Arrival.At)

		flights = append(flights, travel.Flight{
			ID:            "AMA" + offer.ID,
			Airline:       first.CarrierCode,
			FlightNumber:  first.CarrierCode + first.Number,
			Origin:        first.Departure.IATACode,
			Destination:   last.Arrival.IATACode,
			DepartureDate: depDate,
			ArrivalDate:   arrDate,
			DepartureTime: depTime,
			ArrivalTime:   arrTime,
			Price:         price,
			Provider:      "Amadeus",
		})
	}

	return flights, nil
}

// maxPriceParam rounds a budget up to the whole-number maxPrice Amadeus accepts.
// Rounding down would drop offers the budget allows; the API rejects 0.
func maxPriceParam(budget float64) int {
	return max(int(math.Ceil(budget)), 1)
}

// splitTimestamp turns "2025-07-20T19:00:00" into ("2025-07-20", "19:00").
func splitTimestamp(at string) (string, string) {
	date, clock, ok := strings.Cut(at, "T")
	if !ok {
		return at, ""
	}
	if len(clock) >= 5 {
		clock = clock[:5]
	}
	return date, clock
}

// AmadeusFlights is a flight provider backed by the Amadeus flight offers API.
type AmadeusFlights struct {
	client *AmadeusClient
	origin string
	max    int
}

// NewAmadeusFlights constructs the provider searching from the given origin IATA code.
func NewAmadeusFlights(client *AmadeusClient, origin string) *AmadeusFlights {
	return &AmadeusFlights{client: client, origin: strings.ToUpper(origin), max: 10}
}

func (*AmadeusFlights) Name() string { return "Amadeus" }

// Search looks up one-way offers from the configured origin to q.Location on q.StartDate.
func (p *AmadeusFlights) Search(ctx context.Context, q travel.SearchQuery) ([]travel.Flight, error) {
	if q.StartDate == nil {
		return nil, errors.New("amadeus flight search requires a start date")
	}

	dest := strings.TrimSpace(q.Location)
	if !isIATACode(dest) {
		code, err := p.client.CityCode(ctx, q.Location)
		if err != nil {
			return nil, err
		}
		dest = code
	}

	return p.client.FlightOffers(ctx, OfferSearch{
		Origin:        p.origin,
		Destination:   dest,
		DepartureDate: *q.StartDate,
		MaxPrice:      q.Budget,
		Max:           p.max,
	})
}

func isIATACode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
