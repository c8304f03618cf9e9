package synthetic

import (
	"testing"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

var karnataka = domain.Coordinate{Latitude: 15.3173, Longitude: 75.7139}

func TestSatellite_Constant(t *testing.T) {
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	obs := NewSatellite(SatelliteConstant).Observation(karnataka, date)

	assert.Equal(t, 0.65, obs.NDVI)
	assert.Equal(t, 0.55, obs.NDMI)
	assert.Equal(t, 0.7, obs.CropHealth)
	assert.Equal(t, 0.3, obs.StressLevel)
	assert.Equal(t, 0.6, obs.CanopyWater)
	assert.Equal(t, 0.68, obs.Chlorophyll)
	assert.Equal(t, 28.5, obs.TemperatureSurface)
	assert.Equal(t, date, obs.Timestamp)
	assert.False(t, obs.IsRealData)
}

func TestSatellite_UnknownModeIsConstant(t *testing.T) {
	s := NewSatellite("random")

	assert.Equal(t, SatelliteConstant, s.Mode())
	assert.Equal(t, 0.65, s.Observation(karnataka, testNow).NDVI)
}

func TestSatellite_Coordinate(t *testing.T) {
	s := NewSatellite(SatelliteCoordinate)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, s.Observation(karnataka, testNow), s.Observation(karnataka, testNow))
	})

	t.Run("varies with location", func(t *testing.T) {
		other := domain.Coordinate{Latitude: 15.1, Longitude: 75.2}
		assert.NotEqual(t, s.Observation(karnataka, testNow).NDVI, s.Observation(other, testNow).NDVI)
	})

	t.Run("negative coordinates stay in range", func(t *testing.T) {
		obs := s.Observation(domain.Coordinate{Latitude: -33.87, Longitude: -70.65}, testNow)

		assert.InDelta(t, 0.4+0.13, obs.NDVI, 1e-9)
		for _, v := range []float64{obs.NDVI, obs.NDMI, obs.CropHealth, obs.StressLevel, obs.CanopyWater, obs.Chlorophyll} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		assert.False(t, obs.IsRealData)
	})
}

func TestParseSatelliteMode(t *testing.T) {
	m, err := ParseSatelliteMode("coordinate")
	require.NoError(t, err)
	assert.Equal(t, SatelliteCoordinate, m)

	_, err = ParseSatelliteMode("noise")
	require.Error(t, err)
}

func TestWeather_Bundle(t *testing.T) {
	w := NewWeather(clockwork.NewFakeClockAt(testNow))

	b := w.Bundle(karnataka, 72)

	assert.Equal(t, domain.SourceSynthetic, b.Source)
	assert.Equal(t, karnataka, b.Location)
	assert.Equal(t, 31.0, b.Current.Temperature)
	assert.Equal(t, 75.0, b.Current.Humidity)
	assert.Equal(t, 0.0, b.Current.Rainfall)
	assert.Equal(t, 8.5, b.Current.WindSpeed)
	assert.Equal(t, 23.5, b.Current.DewPoint)
	assert.Equal(t, 1012.0, b.Current.Pressure)
	assert.Equal(t, testNow, b.Current.Timestamp)
	require.Len(t, b.Forecast, 72)
	assert.Equal(t, 1, b.Forecast[0].Hour)
	assert.Equal(t, 72, b.Forecast[71].Hour)
}

func TestForecast(t *testing.T) {
	points := Forecast(testNow, 72)
	at := func(h int) domain.ForecastPoint { return points[h-1] }

	tests := []struct {
		hour         int
		wantTemp     float64
		wantHumidity float64
		wantRain     float64
	}{
		{1, 30.7, 76.5, 2.5},
		{6, 29.2, 84.0, 2.5},
		{7, 28.9, 85.5, 0.0},
		{12, 27.4, 75.0, 0.0},
		{17, 25.9, 82.5, 0.0},
		{18, 25.6, 84.0, 2.5},
		{19, 25.3, 85.5, 2.5},
		{24, 31.0, 75.0, 2.5},
		{25, 30.7, 76.5, 0.0},
	}

	for _, tt := range tests {
		p := at(tt.hour)
		assert.Equal(t, tt.hour, p.Hour)
		assert.InDelta(t, tt.wantTemp, p.Temperature, 1e-9, "hour %d temperature", tt.hour)
		assert.InDelta(t, tt.wantHumidity, p.Humidity, 1e-9, "hour %d humidity", tt.hour)
		assert.Equal(t, tt.wantRain, p.Rainfall, "hour %d rainfall", tt.hour)
		assert.Equal(t, testNow.Add(time.Duration(tt.hour)*time.Hour), p.Timestamp)
	}
}

func TestForecast_NonPositiveHours(t *testing.T) {
	assert.Empty(t, Forecast(testNow, 0))
	assert.Empty(t, Forecast(testNow, -5))
}
