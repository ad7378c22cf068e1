// Package database persists resolution history to PostgreSQL. Recording is
// best-effort: a failed insert is logged and dropped, never surfaced to the
// request that produced it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// PostgresDB wraps the connection pool used for resolution history.
type PostgresDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection settings.
type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// NewPostgresDB opens a connection pool and verifies it with a ping.
// Schema management happens through RunMigrations, not here.
func NewPostgresDB(cfg Config, logger *zap.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

// RecordResolution inserts one completed resolution into the history table.
func (p *PostgresDB) RecordResolution(ctx context.Context, rec ports.ResolutionRecord) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "RecordResolution")

	defer span.End()

	span.SetAttributes(
		attribute.String("resolution.place", rec.Place),
		attribute.String("resolution.date_key", rec.DateKey),
		attribute.String("resolution.source", string(rec.Source)),
	)

	query := `
		INSERT INTO resolutions (
			id, place, date_key, source, match_type, confidence,
			temp_current, temp_high, temp_low, is_live, duration_ms, cache_hit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	start := time.Now()
	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.Place,
		rec.DateKey,
		string(rec.Source),
		string(rec.MatchType),
		string(rec.Confidence),
		rec.Current,
		rec.High,
		rec.Low,
		rec.IsLive,
		rec.DurationMs,
		rec.CacheHit,
	)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("failed to record resolution",
			zap.Error(err),
			zap.String("place", rec.Place),
			zap.String("date_key", rec.DateKey),
			zap.Duration("duration", duration),
		)
		span.RecordError(err)

		return err
	}

	p.logger.Debug("resolution recorded",
		zap.String("place", rec.Place),
		zap.String("date_key", rec.DateKey),
		zap.Duration("duration", duration),
	)

	return nil
}

// ResolutionStats aggregates the history table for the stats endpoint:
// request volume, live versus fallback split, latency spread, and the cache
// hit rate since the given time.
func (p *PostgresDB) ResolutionStats(ctx context.Context, since time.Time) (map[string]interface{}, error) {
	query := `
		SELECT
			COUNT(*) as total_resolutions,
			SUM(CASE WHEN is_live THEN 1 ELSE 0 END) as live_count,
			SUM(CASE WHEN NOT is_live THEN 1 ELSE 0 END) as fallback_count,
			AVG(duration_ms) as avg_duration_ms,
			MAX(duration_ms) as max_duration_ms,
			SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END)::float / GREATEST(COUNT(*), 1)::float as cache_hit_rate
		FROM resolutions
		WHERE resolved_at >= $1
	`

	var stats struct {
		TotalResolutions int
		LiveCount        sql.NullInt64
		FallbackCount    sql.NullInt64
		AvgDurationMs    sql.NullFloat64
		MaxDurationMs    sql.NullInt64
		CacheHitRate     sql.NullFloat64
	}

	err := p.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalResolutions,
		&stats.LiveCount,
		&stats.FallbackCount,
		&stats.AvgDurationMs,
		&stats.MaxDurationMs,
		&stats.CacheHitRate,
	)

	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"total_resolutions": stats.TotalResolutions,
		"live_count":        stats.LiveCount.Int64,
		"fallback_count":    stats.FallbackCount.Int64,
		"avg_duration_ms":   stats.AvgDurationMs.Float64,
		"max_duration_ms":   stats.MaxDurationMs.Int64,
		"cache_hit_rate":    stats.CacheHitRate.Float64,
	}

	return result, nil
}

// DB exposes the underlying pool for migrations.
func (p *PostgresDB) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping verifies the database connection for health checks.
func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}
