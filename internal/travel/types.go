package travel

// Flight is a single flight offer from a provider.
type Flight struct {
	ID            string  `json:"id"`
	Airline       string  `json:"airline"`
	FlightNumber  string  `json:"flight_number"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureDate string  `json:"departure_date"`
	ArrivalDate   string  `json:"arrival_date"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time"`
	Price         float64 `json:"price"`
	Provider      string  `json:"provider"`
}

// Hotel is a single hotel offer from a provider.
type Hotel struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	CheckInDate   string   `json:"check_in_date"`
	CheckOutDate  string   `json:"check_out_date"`
	PricePerNight float64  `json:"price_per_night"`
	Rating        float32  `json:"rating"`
	Amenities     []string `json:"amenities"`
	Provider      string   `json:"provider"`
}

// Activity is a single bookable activity or experience.
type Activity struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Date           string  `json:"date"`
	PricePerPerson float64 `json:"price_per_person"`
	Description    string  `json:"description"`
	Provider       string  `json:"provider"`
}

// Category names one of the three provider kinds.
type Category string

const (
	CategoryFlights    Category = "flights"
	CategoryHotels     Category = "hotels"
	CategoryActivities Category = "activities"
)

// ProviderFailure describes a category whose provider failed.
type ProviderFailure struct {
	Category Category `json:"category"`
	Provider string   `json:"provider"`
	Error    string   `json:"error"`
}

// AggregatedResult is the unified response for one search.
// The item slices are never nil so they always encode as JSON arrays.
type AggregatedResult struct {
	Flights    []Flight          `json:"flights"`
	Hotels     []Hotel           `json:"hotels"`
	Activities []Activity        `json:"activities"`
	Failures   []ProviderFailure `json:"errors,omitempty"`
}

// Complete reports whether every category succeeded.
func (r *AggregatedResult) Complete() bool {
	return len(r.Failures) == 0
}

// Failed reports whether the given category is marked as failed.
func (r *AggregatedResult) Failed(c Category) bool {
	for _, f := range r.Failures {
		if f.Category == c {
			return true
		}
	}
	return false
}
