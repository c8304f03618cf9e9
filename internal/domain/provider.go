package domain

import (
	"context"
	"time"
)

// SatelliteProvider fetches live crop-health indices.
type SatelliteProvider interface {
	FetchSatellite(ctx context.Context, loc Coordinate, date time.Time) (SatelliteObservation, error)
}

// WeatherProvider fetches live current conditions and an hourly forecast.
type WeatherProvider interface {
	FetchWeather(ctx context.Context, loc Coordinate, forecastHours int) (WeatherBundle, error)
}
