// Package observation obtains satellite and weather observations, preferring
// live providers and falling back to synthetic data on any failure.
package observation

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/adapter/synthetic"
	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultForecastHours is the forecast length requested when none is given.
const DefaultForecastHours = 72

const (
	kindSatellite = "satellite"
	kindWeather   = "weather"
)

// SatelliteResult is a satellite observation with its provenance. FallbackErr
// holds the live failure that was absorbed, if any.
type SatelliteResult struct {
	Observation domain.SatelliteObservation
	Source      domain.DataSource
	FallbackErr error
}

// WeatherResult is a weather bundle with its provenance.
type WeatherResult struct {
	Bundle      domain.WeatherBundle
	Source      domain.DataSource
	FallbackErr error
}

// Config wires a Source. Nil providers mean no live credential is configured.
type Config struct {
	Satellite          domain.SatelliteProvider
	Weather            domain.WeatherProvider
	SyntheticSatellite *synthetic.Satellite
	SyntheticWeather   *synthetic.Weather
	Timeout            time.Duration
	Clock              clockwork.Clock
	Metrics            *observability.Metrics
	Logger             *slog.Logger
}

// Source fetches observations. Its methods never fail: live errors are logged,
// counted, and replaced by synthetic data.
type Source struct {
	satellite domain.SatelliteProvider
	weather   domain.WeatherProvider
	synthSat  *synthetic.Satellite
	synthWx   *synthetic.Weather
	timeout   time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewSource creates a Source from cfg.
func NewSource(cfg Config) *Source {
	if cfg.SyntheticSatellite == nil {
		cfg.SyntheticSatellite = synthetic.NewSatellite(synthetic.SatelliteConstant)
	}
	if cfg.SyntheticWeather == nil {
		cfg.SyntheticWeather = synthetic.NewWeather(cfg.Clock)
	}

	cfg.Metrics.LiveProviders.WithLabelValues(kindSatellite).Set(boolToFloat(cfg.Satellite != nil))
	cfg.Metrics.LiveProviders.WithLabelValues(kindWeather).Set(boolToFloat(cfg.Weather != nil))

	return &Source{
		satellite: cfg.Satellite,
		weather:   cfg.Weather,
		synthSat:  cfg.SyntheticSatellite,
		synthWx:   cfg.SyntheticWeather,
		timeout:   cfg.Timeout,
		clock:     cfg.Clock,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// FetchSatellite returns indices for loc on date. A zero date means today.
func (s *Source) FetchSatellite(ctx context.Context, loc domain.Coordinate, date time.Time) SatelliteResult {
	if date.IsZero() {
		date = truncateToDay(s.clock.Now())
	}

	if s.satellite != nil {
		start := s.clock.Now()
		obs, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (domain.SatelliteObservation, error) {
			return s.satellite.FetchSatellite(ctx, loc, date)
		})
		s.metrics.LiveFetchDuration.WithLabelValues(kindSatellite).Observe(s.clock.Since(start).Seconds())
		if err == nil {
			obs.IsRealData = true
			s.metrics.ObservationFetches.WithLabelValues(kindSatellite, string(domain.SourceLive)).Inc()
			return SatelliteResult{Observation: obs, Source: domain.SourceLive}
		}

		s.metrics.LiveFetchErrors.WithLabelValues(kindSatellite).Inc()
		s.logger.Warn("live satellite fetch failed, using synthetic data",
			"lat", loc.Latitude, "lon", loc.Longitude, "error", err)
		s.metrics.ObservationFetches.WithLabelValues(kindSatellite, string(domain.SourceSynthetic)).Inc()
		return SatelliteResult{
			Observation: s.synthSat.Observation(loc, date),
			Source:      domain.SourceSynthetic,
			FallbackErr: err,
		}
	}

	s.metrics.ObservationFetches.WithLabelValues(kindSatellite, string(domain.SourceSynthetic)).Inc()
	return SatelliteResult{Observation: s.synthSat.Observation(loc, date), Source: domain.SourceSynthetic}
}

// FetchWeather returns current conditions and forecastHours of forecast. A
// non-positive forecastHours uses DefaultForecastHours.
func (s *Source) FetchWeather(ctx context.Context, loc domain.Coordinate, forecastHours int) WeatherResult {
	if forecastHours <= 0 {
		forecastHours = DefaultForecastHours
	}

	if s.weather != nil {
		start := s.clock.Now()
		b, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (domain.WeatherBundle, error) {
			return s.weather.FetchWeather(ctx, loc, forecastHours)
		})
		s.metrics.LiveFetchDuration.WithLabelValues(kindWeather).Observe(s.clock.Since(start).Seconds())
		if err == nil {
			b.Source = domain.SourceLive
			b.Location = loc
			s.metrics.ObservationFetches.WithLabelValues(kindWeather, string(domain.SourceLive)).Inc()
			return WeatherResult{Bundle: b, Source: domain.SourceLive}
		}

		s.metrics.LiveFetchErrors.WithLabelValues(kindWeather).Inc()
		s.logger.Warn("live weather fetch failed, using synthetic data",
			"lat", loc.Latitude, "lon", loc.Longitude, "error", err)
		s.metrics.ObservationFetches.WithLabelValues(kindWeather, string(domain.SourceSynthetic)).Inc()
		return WeatherResult{
			Bundle:      s.synthWx.Bundle(loc, forecastHours),
			Source:      domain.SourceSynthetic,
			FallbackErr: err,
		}
	}

	s.metrics.ObservationFetches.WithLabelValues(kindWeather, string(domain.SourceSynthetic)).Inc()
	return WeatherResult{Bundle: s.synthWx.Bundle(loc, forecastHours), Source: domain.SourceSynthetic}
}

// LiveSatellite reports whether a live satellite provider is configured.
func (s *Source) LiveSatellite() bool { return s.satellite != nil }

// LiveWeather reports whether a live weather provider is configured.
func (s *Source) LiveWeather() bool { return s.weather != nil }

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
