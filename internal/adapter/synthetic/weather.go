package synthetic

import (
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Synthetic current conditions.
var currentWeather = domain.WeatherObservation{
	Temperature: 31.0,
	Humidity:    75.0,
	Rainfall:    0.0,
	WindSpeed:   8.5,
	DewPoint:    23.5,
	Pressure:    1012.0,
}

// Weather generates synthetic current conditions and a cyclic forecast.
type Weather struct {
	clock clockwork.Clock
}

// NewWeather creates a generator stamping observations with clock.
func NewWeather(clock clockwork.Clock) *Weather {
	return &Weather{clock: clock}
}

// Bundle returns current conditions plus forecastHours hourly points.
func (w *Weather) Bundle(loc domain.Coordinate, forecastHours int) domain.WeatherBundle {
	now := w.clock.Now()

	current := currentWeather
	current.Timestamp = now

	return domain.WeatherBundle{
		Current:  current,
		Forecast: Forecast(now, forecastHours),
		Location: loc,
		Source:   domain.SourceSynthetic,
	}
}

// Forecast returns points for hours 1..hours after now.
func Forecast(now time.Time, hours int) []domain.ForecastPoint {
	if hours < 0 {
		hours = 0
	}
	points := make([]domain.ForecastPoint, 0, hours)
	for h := 1; h <= hours; h++ {
		rainfall := 2.5
		if h%18 > 6 {
			rainfall = 0.0
		}
		points = append(points, domain.ForecastPoint{
			Hour:        h,
			Temperature: 31.0 - float64(h%24)*0.3,
			Humidity:    75.0 + float64(h%12)*1.5,
			Rainfall:    rainfall,
			Timestamp:   now.Add(time.Duration(h) * time.Hour),
		})
	}
	return points
}
