package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/travel-aggregator/internal/aggregator"
	"github.com/neexbeast/travel-aggregator/internal/api"
	"github.com/neexbeast/travel-aggregator/internal/auth"
	"github.com/neexbeast/travel-aggregator/internal/cache"
	"github.com/neexbeast/travel-aggregator/internal/config"
	"github.com/neexbeast/travel-aggregator/internal/metrics"
	"github.com/neexbeast/travel-aggregator/internal/provider"
	"github.com/neexbeast/travel-aggregator/internal/storage"
	"github.com/neexbeast/travel-aggregator/internal/travel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Run migrations.
	applied, err := storage.RunMigrations(ctx, pool, cfg.Store.MigrationsDir)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "count", applied)

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.Store.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Wire dependencies.
	var flights aggregator.Provider[travel.Flight] = provider.NewSimulatedFlights(provider.DefaultFlightLatency)
	handlerOpts := []api.HandlerOption{api.WithCacheMetrics(m)}
	if cfg.Amadeus.Enabled() {
		issuer := auth.NewClientCredentialsIssuerWithURL(cfg.Amadeus.BaseURL, cfg.Amadeus.APIKey, cfg.Amadeus.APISecret)
		authenticator := auth.NewAuthenticator(issuer,
			auth.WithIssueTimeout(cfg.Amadeus.IssueTimeout),
			auth.WithLogger(log),
			auth.WithMetrics(m),
		)
		amadeus := provider.NewAmadeusClientWithURL(cfg.Amadeus.BaseURL, authenticator)
		handlerOpts = append(handlerOpts, api.WithCheckinLinker(amadeus))

		if cfg.Search.FlightProvider == config.FlightProviderAmadeus {
			flights = provider.NewAmadeusFlights(amadeus, cfg.Amadeus.Origin)
		}
		log.Info("amadeus enabled", "base_url", cfg.Amadeus.BaseURL, "flight_provider", cfg.Search.FlightProvider)
	}

	agg := aggregator.New(
		flights,
		provider.NewSimulatedHotels(provider.DefaultHotelLatency),
		provider.NewSimulatedActivities(provider.DefaultActivityLatency),
		aggregator.WithTimeout(cfg.Search.ProviderTimeout),
		aggregator.WithLogger(log),
		aggregator.WithMetrics(m),
	)

	repo := storage.NewRepository(pool)
	cacheLayer := cache.NewCache(redisClient, cfg.Store.CacheTTL)
	handlers := api.NewHandlers(agg, cacheLayer, repo, log, handlerOpts...)

	// Build router with pingers adapted for the readiness check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := &redisPingerAdapter{client: redisClient}

	router := api.NewRouter(handlers, api.RouterConfig{
		BearerToken:        cfg.Server.BearerToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Metrics:            m,
	}, dbPinger, redisPinger, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
