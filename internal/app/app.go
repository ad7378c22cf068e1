// Package app provides application-level coordination and dependency injection.
// It wires the resolution engine to its adapters and infrastructure, manages
// their lifecycles, and exposes the HTTP surface.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/adapters/primary/rest"
	"github.com/tripweather/weather-engine/internal/adapters/secondary/geocode"
	"github.com/tripweather/weather-engine/internal/adapters/secondary/openweather"
	"github.com/tripweather/weather-engine/internal/config"
	"github.com/tripweather/weather-engine/internal/core/events"
	"github.com/tripweather/weather-engine/internal/core/ports"
	"github.com/tripweather/weather-engine/internal/core/services"
	"github.com/tripweather/weather-engine/internal/infrastructure/cache"
	"github.com/tripweather/weather-engine/internal/infrastructure/circuitbreaker"
	"github.com/tripweather/weather-engine/internal/infrastructure/database"
	"github.com/tripweather/weather-engine/internal/infrastructure/ratelimit"
	"github.com/tripweather/weather-engine/internal/middleware"
	"github.com/tripweather/weather-engine/internal/observability"
	"github.com/tripweather/weather-engine/internal/version"
)

// Server represents the HTTP server instance.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	db        *database.PostgresDB
	breakers  *circuitbreaker.Manager
}

// New creates a new application instance.
//
// Returns:
//   - *App: Configured application instance
//   - error: Logger initialization error
func New() (*App, error) {
	logger, err := zap.NewProduction()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg := config.Load()

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start initializes and starts all application components.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Server start error
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	cacheService, rateLimitService := a.initRedisServices(ctx)

	if err := a.initDatabase(); err != nil {
		a.logger.Warn("failed to connect to database, continuing without it", zap.Error(err))
	}

	a.breakers = circuitbreaker.NewManager(a.logger)

	resolver, keys := a.buildResolver(cacheService)

	weatherHandler := rest.NewWeatherHandler(resolver, keys, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(
		weatherHandler,
		rateLimitMiddleware,
		a.telemetry,
	)

	a.server = &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  a.cfg.Server.IdleTimeout,
		},
		logger: a.logger,
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// buildResolver assembles the resolution pipeline: upstream clients behind
// circuit breakers, the match/classify/synthesize services around the fetch
// coordinator, then the history and cache decorators on the outside.
//
// Parameters:
//   - cacheService: Record cache backing the outermost decorator
//
// Returns:
//   - ports.Resolver: Fully decorated resolver
//   - ports.KeySource: Provider key availability for the HTTP layer
func (a *App) buildResolver(cacheService ports.CacheService) (ports.Resolver, ports.KeySource) {
	httpClient := &http.Client{
		Timeout: a.cfg.Provider.HTTPTimeout,
	}

	owClient := openweather.NewClient(a.cfg.Provider.BaseURL, a.cfg.Provider.APIKey, httpClient, a.logger)
	geoClient := geocode.NewClient(a.cfg.Provider.GeoBaseURL, a.cfg.Provider.APIKey, httpClient, a.logger)

	breakerCfg := circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}

	provider := NewBreakerForecastProvider(owClient, a.breakers.GetBreaker("forecast-api", breakerCfg))
	geocoder := NewBreakerGeocoder(geoClient, a.breakers.GetBreaker("geocoding-api", breakerCfg))

	bus := events.NewBus()
	a.bridgeEvents(bus)

	matcher := services.NewForecastMatcher(a.logger, bus)
	classifier := services.NewSourceClassifier(a.cfg.Engine.ForecastHorizonDays, a.logger, bus)
	synthesizer := services.NewFallbackSynthesizer(a.logger, bus)

	coordinator := services.NewFetchCoordinator(
		geocoder,
		provider,
		owClient,
		matcher,
		classifier,
		synthesizer,
		services.CoordinatorConfig{
			FetchTimeout: a.cfg.Engine.FetchTimeout,
			HorizonDays:  a.cfg.Engine.ForecastHorizonDays,
		},
		a.logger,
		bus,
	)

	cached := NewCachedResolver(
		coordinator,
		cacheService,
		a.telemetry,
		a.cfg.Engine.LiveCacheTTL,
		a.cfg.Engine.FallbackCacheTTL,
		a.logger,
	)

	if a.db == nil {
		return cached, owClient
	}

	return NewRecordingResolver(cached, a.db, a.telemetry, a.logger), owClient
}

// bridgeEvents forwards engine events to telemetry. The engine publishes
// without knowing about metrics; everything observability-shaped hangs off
// the bus here.
func (a *App) bridgeEvents(bus *events.Bus) {
	if a.telemetry == nil {
		return
	}

	bus.Subscribe(func(evt events.Event) {
		if evt.Type != events.TypeFallbackUsed {
			return
		}

		profile := "derived_profile"

		if known, _ := evt.Fields["known_profile"].(bool); known {
			profile = "known_profile"
		}

		a.telemetry.RecordFallback(context.Background(), profile)
	})
}

// initTelemetry initializes OpenTelemetry providers.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Telemetry initialization error
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initRedisServices initializes Redis-based or memory-based cache and rate limiting.
//
// Parameters:
//   - ctx: Context for Redis connection testing
//
// Returns:
//   - ports.CacheService: Cache implementation (Redis or memory)
//   - ports.RateLimitService: Rate limiter implementation (Redis or memory)
func (a *App) initRedisServices(ctx context.Context) (ports.CacheService, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")

		memCache := cache.NewMemoryCache(5*time.Minute, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))

		memCache := cache.NewMemoryCache(5*time.Minute, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	a.logger.Info("Redis connected successfully")

	redisCfg := cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	cacheService, _ := cache.NewRedisCache(redisCfg, a.logger)
	rateLimitService := ratelimit.NewRedisRateLimiter(redisClient, a.logger)

	return cacheService, rateLimitService
}

// initDatabase initializes the PostgreSQL connection and brings the schema
// up to date. The schema lives entirely in embedded migrations.
//
// Returns:
//   - error: Database connection or migration error
func (a *App) initDatabase() error {
	if !a.cfg.Database.Enabled {
		return nil
	}

	dbConfig := database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}

	db, err := database.NewPostgresDB(dbConfig, a.logger)

	if err != nil {
		return err
	}

	if err := database.RunMigrations(db.DB(), a.logger); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			a.logger.Error("failed to close database connection", zap.Error(closeErr))
		}

		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.db = db

	return nil
}

// setupRouter creates and configures the HTTP router with all middleware.
//
// Parameters:
//   - weatherHandler: Handler for weather endpoints
//   - rateLimitMiddleware: Rate-limiting middleware instance
//   - telemetry: Telemetry instance for observability
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func (a *App) setupRouter(
	weatherHandler *rest.WeatherHandler,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	telemetry *observability.Telemetry,
) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	}).Methods("GET")

	router.HandleFunc("/health/ready", a.readinessHandler).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		versionInfo := version.Get()

		if err := json.NewEncoder(w).Encode(versionInfo); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/stats", a.statsHandler).Methods("GET")

	if telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	if rateLimitMiddleware != nil {
		api.Use(rateLimitMiddleware.Middleware)
	}

	api.HandleFunc("/weather", weatherHandler.GetWeather).Methods("GET")

	return router
}

// readinessHandler reports whether downstream dependencies answer. The
// database is checked only when configured; the engine itself has no hard
// dependencies.
func (a *App) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ready := true
	checks := map[string]bool{
		"server": true,
	}

	if a.db != nil {
		if err := a.db.Ping(); err != nil {
			ready = false
			checks["database"] = false
		} else {
			checks["database"] = true
		}
	}

	status := http.StatusOK

	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// statsHandler reports circuit breaker state and, when history is enabled,
// resolution aggregates for the past hour.
func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"circuit_breakers": a.breakers.GetStats(),
	}

	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resolutionStats, err := a.db.ResolutionStats(ctx, time.Now().Add(-1*time.Hour))

		if err != nil {
			a.logger.Warn("failed to load resolution stats", zap.Error(err))
		} else {
			stats["resolutions"] = resolutionStats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]interface{}{"stats": stats}); err != nil {
		a.logger.Error("failed to encode stats", zap.Error(err))
	}
}
