package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/neexbeast/travel-aggregator/internal/metrics"
)

// RouterConfig carries the router settings that come from configuration.
type RouterConfig struct {
	BearerToken        string
	RateLimitPerMinute int
	// Metrics enables GET /metrics and request metrics when non-nil.
	Metrics *metrics.Metrics
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health, readiness and metrics are unauthenticated; search routes require bearer auth.
// Rate limiting is applied globally per client IP.
func NewRouter(handlers *Handlers, cfg RouterConfig, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(RequestMetrics(cfg.Metrics))
	}
	r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))

	r.Get("/api/v1/health", Health)
	r.Get("/api/v1/ready", ReadyHandlerFunc(db, redisClient, log))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.BearerToken))
		r.Get("/api/v1/aggregate-travel-data", handlers.AggregateTravelData)
		r.Get("/api/v1/searches", handlers.RecentSearches)
		r.Get("/api/v1/checkin-links/{airline}", handlers.CheckinLinks)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
