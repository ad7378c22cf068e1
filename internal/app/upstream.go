package app

import (
	"context"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/ports"
	"github.com/tripweather/weather-engine/internal/infrastructure/circuitbreaker"
)

// BreakerForecastProvider wraps a forecast provider with a circuit breaker
// so a failing upstream stops being hammered while it recovers. Breaker
// rejections surface as provider errors, which the engine treats as any
// other expected failure.
type BreakerForecastProvider struct {
	provider ports.ForecastProvider
	cb       *circuitbreaker.Breaker
}

// NewBreakerForecastProvider wraps provider with cb.
func NewBreakerForecastProvider(provider ports.ForecastProvider, cb *circuitbreaker.Breaker) *BreakerForecastProvider {
	return &BreakerForecastProvider{provider: provider, cb: cb}
}

// FetchForecast executes the upstream fetch through the circuit breaker.
func (p *BreakerForecastProvider) FetchForecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastEntry, error) {
	var entries []domain.ForecastEntry

	err := p.cb.Execute(ctx, "fetch-forecast", func() error {
		var err error
		entries, err = p.provider.FetchForecast(ctx, coords)
		return err
	})

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// BreakerGeocoder wraps a geocoder with a circuit breaker.
type BreakerGeocoder struct {
	geocoder ports.Geocoder
	cb       *circuitbreaker.Breaker
}

// NewBreakerGeocoder wraps geocoder with cb.
func NewBreakerGeocoder(geocoder ports.Geocoder, cb *circuitbreaker.Breaker) *BreakerGeocoder {
	return &BreakerGeocoder{geocoder: geocoder, cb: cb}
}

// Locate executes the geocoding lookup through the circuit breaker.
func (g *BreakerGeocoder) Locate(ctx context.Context, place, country string) (domain.Coordinates, error) {
	var coords domain.Coordinates

	err := g.cb.Execute(ctx, "geocode", func() error {
		var err error
		coords, err = g.geocoder.Locate(ctx, place, country)
		return err
	})

	if err != nil {
		return domain.Coordinates{}, err
	}

	return coords, nil
}
