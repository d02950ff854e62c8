package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/travel-aggregator/internal/storage"
	"github.com/neexbeast/travel-aggregator/internal/travel"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	healthyMessage = "travel data aggregation service is healthy"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	agg     TravelAggregator
	cache   ResultCache
	history SearchHistory
	checkin CheckinLinker
	metrics cacheRecorder
	log     *slog.Logger
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithCheckinLinker enables GET /api/v1/checkin-links/{airline}.
func WithCheckinLinker(c CheckinLinker) HandlerOption {
	return func(h *Handlers) { h.checkin = c }
}

func WithCacheMetrics(m cacheRecorder) HandlerOption {
	return func(h *Handlers) { h.metrics = m }
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(agg TravelAggregator, cache ResultCache, history SearchHistory, log *slog.Logger, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		agg:     agg,
		cache:   cache,
		history: history,
		metrics: nopRecorder{},
		log:     log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// AggregateTravelData handles GET /api/v1/aggregate-travel-data.
// Cache hit → return. Otherwise aggregate, cache complete results, return.
// refresh=true drops the cached entry and always aggregates.
// Partial provider failure still answers 200 with the failures listed under "errors".
func (h *Handlers) AggregateTravelData(w http.ResponseWriter, r *http.Request) {
	q, err := travel.ParseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		if refresh, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid refresh: must be a boolean")
			return
		}
	}

	if refresh {
		if err := h.cache.Delete(r.Context(), q); err != nil {
			h.log.Warn("cache delete failed", "location", q.Location, "err", err)
		}
	} else {
		cached, err := h.cache.Get(r.Context(), q)
		if err != nil {
			h.log.Warn("cache get failed", "location", q.Location, "err", err)
		}
		h.metrics.IncCacheLookup(cached != nil)
		if cached != nil {
			h.record(r.Context(), q, cached, true)
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	res, err := h.agg.Aggregate(r.Context(), q)
	if err != nil {
		if errors.Is(err, travel.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("aggregation failed", "location", q.Location, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if res.Complete() {
		if err := h.cache.Set(r.Context(), q, res); err != nil {
			h.log.Warn("cache set failed", "location", q.Location, "err", err)
		}
	}

	h.record(r.Context(), q, res, false)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) record(ctx context.Context, q travel.SearchQuery, res *travel.AggregatedResult, cacheHit bool) {
	if err := h.history.RecordSearch(ctx, storage.NewSearchRecord(q, res, cacheHit)); err != nil {
		h.log.Warn("recording search failed", "location", q.Location, "err", err)
	}
}

// RecentSearches handles GET /api/v1/searches?limit=N&failed=<category>.
func (h *Handlers) RecentSearches(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit: must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var (
		records []storage.SearchRecord
		err     error
	)
	switch failed := travel.Category(strings.ToLower(r.URL.Query().Get("failed"))); failed {
	case "":
		records, err = h.history.RecentSearches(r.Context(), limit)
	case travel.CategoryFlights, travel.CategoryHotels, travel.CategoryActivities:
		records, err = h.history.SearchesWithFailedCategory(r.Context(), failed, limit)
	default:
		writeError(w, http.StatusBadRequest, "invalid failed: must be flights, hotels or activities")
		return
	}
	if err != nil {
		h.log.Error("listing searches failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// CheckinLinks handles GET /api/v1/checkin-links/{airline}.
func (h *Handlers) CheckinLinks(w http.ResponseWriter, r *http.Request) {
	if h.checkin == nil {
		writeError(w, http.StatusNotFound, "check-in links are not configured")
		return
	}

	airline := chi.URLParam(r, "airline")
	if !validAirlineCode(airline) {
		writeError(w, http.StatusBadRequest, "invalid airline: expected a 2 character IATA code")
		return
	}

	links, err := h.checkin.CheckinLinks(r.Context(), airline)
	if err != nil {
		h.log.Error("checkin links lookup failed", "airline", airline, "err", err)
		writeError(w, http.StatusBadGateway, "upstream lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, links)
}

func validAirlineCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Health handles GET /api/v1/health. It reports liveness only.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": healthyMessage})
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// ReadyHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// It answers 200 if both are reachable, 503 otherwise.
func ReadyHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("readiness check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("readiness check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
