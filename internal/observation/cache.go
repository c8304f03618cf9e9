package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSatellite wraps a SatelliteProvider with an expiring LRU cache keyed by
// rounded coordinate and date. Errors are never cached, so a failed live call
// is retried on the next request.
type CachedSatellite struct {
	inner   domain.SatelliteProvider
	cache   *expirable.LRU[string, domain.SatelliteObservation]
	metrics *observability.Metrics
}

// NewCachedSatellite creates a cache decorator around a satellite provider.
func NewCachedSatellite(inner domain.SatelliteProvider, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedSatellite {
	return &CachedSatellite{
		inner:   inner,
		cache:   expirable.NewLRU[string, domain.SatelliteObservation](maxEntries, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedSatellite) FetchSatellite(ctx context.Context, loc domain.Coordinate, date time.Time) (domain.SatelliteObservation, error) {
	key := fmt.Sprintf("%s|%s", loc.Key(), date.Format("2006-01-02"))
	if obs, ok := c.cache.Get(key); ok {
		c.metrics.ObservationCache.WithLabelValues(kindSatellite, "hit").Inc()
		return obs, nil
	}
	c.metrics.ObservationCache.WithLabelValues(kindSatellite, "miss").Inc()

	obs, err := c.inner.FetchSatellite(ctx, loc, date)
	if err != nil {
		return obs, err
	}
	c.cache.Add(key, obs)
	return obs, nil
}

// CachedWeather wraps a WeatherProvider with an expiring LRU cache keyed by
// rounded coordinate and forecast length.
type CachedWeather struct {
	inner   domain.WeatherProvider
	cache   *expirable.LRU[string, domain.WeatherBundle]
	metrics *observability.Metrics
}

// NewCachedWeather creates a cache decorator around a weather provider.
func NewCachedWeather(inner domain.WeatherProvider, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedWeather {
	return &CachedWeather{
		inner:   inner,
		cache:   expirable.NewLRU[string, domain.WeatherBundle](maxEntries, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedWeather) FetchWeather(ctx context.Context, loc domain.Coordinate, forecastHours int) (domain.WeatherBundle, error) {
	key := fmt.Sprintf("%s|%d", loc.Key(), forecastHours)
	if b, ok := c.cache.Get(key); ok {
		c.metrics.ObservationCache.WithLabelValues(kindWeather, "hit").Inc()
		return withForecastCopy(b), nil
	}
	c.metrics.ObservationCache.WithLabelValues(kindWeather, "miss").Inc()

	b, err := c.inner.FetchWeather(ctx, loc, forecastHours)
	if err != nil {
		return b, err
	}
	c.cache.Add(key, withForecastCopy(b))
	return b, nil
}

// withForecastCopy detaches the forecast slice so callers cannot mutate a
// cached entry.
func withForecastCopy(b domain.WeatherBundle) domain.WeatherBundle {
	b.Forecast = append([]domain.ForecastPoint(nil), b.Forecast...)
	return b
}
