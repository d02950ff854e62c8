package travel

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for query dates.
const DateLayout = "2006-01-02"

// SearchQuery is the validated input shared by all providers.
// It is passed by value; use Clone before handing it to another goroutine.
type SearchQuery struct {
	Location  string
	StartDate *time.Time
	EndDate   *time.Time
	Budget    *float64
	Keywords  string
}

// ParseSearchQuery builds a SearchQuery from URL query parameters.
// Both camelCase (startDate) and snake_case (start_date) date names are accepted.
func ParseSearchQuery(v url.Values) (SearchQuery, error) {
	q := SearchQuery{
		Location: strings.TrimSpace(v.Get("location")),
		Keywords: strings.TrimSpace(v.Get("keywords")),
	}

	var err error
	if q.StartDate, err = parseDate("startDate", firstOf(v, "startDate", "start_date")); err != nil {
		return SearchQuery{}, err
	}
	if q.EndDate, err = parseDate("endDate", firstOf(v, "endDate", "end_date")); err != nil {
		return SearchQuery{}, err
	}

	if raw := strings.TrimSpace(v.Get("budget")); raw != "" {
		b, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return SearchQuery{}, &ValidationError{Field: "budget", Reason: "must be a number"}
		}
		q.Budget = &b
	}

	if err := q.Validate(); err != nil {
		return SearchQuery{}, err
	}
	return q, nil
}

func firstOf(v url.Values, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return &t, nil
}

// Validate checks the invariants every provider relies on.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Location) == "" {
		return &ValidationError{Field: "location", Reason: "is required"}
	}
	if q.Budget != nil && *q.Budget <= 0 {
		return &ValidationError{Field: "budget", Reason: "must be positive"}
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return &ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}
	return nil
}

// Clone returns a deep copy so concurrent providers never share pointers.
func (q SearchQuery) Clone() SearchQuery {
	c := q
	if q.StartDate != nil {
		t := *q.StartDate
		c.StartDate = &t
	}
	if q.EndDate != nil {
		t := *q.EndDate
		c.EndDate = &t
	}
	if q.Budget != nil {
		b := *q.Budget
		c.Budget = &b
	}
	return c
}

// CacheKey returns a canonical representation of the query.
func (q SearchQuery) CacheKey() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Location)))
	b.WriteByte('|')
	if q.StartDate != nil {
		b.WriteString(q.StartDate.Format(DateLayout))
	}
	b.WriteByte('|')
	if q.EndDate != nil {
		b.WriteString(q.EndDate.Format(DateLayout))
	}
	b.WriteByte('|')
	if q.Budget != nil {
		b.WriteString(strconv.FormatFloat(*q.Budget, 'f', -1, 64))
	}
	b.WriteByte('|')
	b.WriteString(strings.ToLower(q.Keywords))
	return b.String()
}

