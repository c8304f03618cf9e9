package domain

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func testSatellite() SatelliteObservation {
	return SatelliteObservation{
		NDVI:               0.65,
		NDMI:               0.55,
		CropHealth:         0.7,
		StressLevel:        0.3,
		CanopyWater:        0.6,
		Chlorophyll:        0.68,
		TemperatureSurface: 28.5,
	}
}

func testWeather() WeatherObservation {
	return WeatherObservation{
		Temperature: 31.0,
		Humidity:    75.0,
		Rainfall:    0.0,
		WindSpeed:   8.5,
		DewPoint:    23.5,
		Pressure:    1012.0,
	}
}

func testStorage() StorageCondition {
	return StorageCondition{Type: StorageBag, VentilationScore: 0.4, MoistureContent: 14.0}
}

func TestFuse(t *testing.T) {
	t.Run("all inputs present", func(t *testing.T) {
		sat, wx, st := testSatellite(), testWeather(), testStorage()

		v := Fuse(&sat, &wx, &st).Vector()

		want := FeatureVector{
			0.65, 0.55, 0.7, 0.3, 0.6, 0.68, 28.5,
			31.0, 0.75, 0.0, 8.5, 23.5,
			0.5, 0.4, 0.7,
		}
		if diff := cmp.Diff(want, v); diff != "" {
			t.Errorf("fused vector mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all inputs absent", func(t *testing.T) {
		v := Fuse(nil, nil, nil).Vector()

		want := FeatureVector{
			0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 25.0,
			25.0, 0.6, 0.0, 5.0, 15.0,
			0.5, 0.5, 0.6,
		}
		assert.Equal(t, want, v)
	})

	t.Run("only storage present", func(t *testing.T) {
		st := testStorage()
		f := Fuse(nil, nil, &st)

		assert.Equal(t, DefaultSatelliteFeatures, f.Satellite)
		assert.Equal(t, DefaultWeatherFeatures, f.Weather)
		assert.Equal(t, StorageFeatures{TypeScore: 0.5, Ventilation: 0.4, Moisture: 0.7}, f.Storage)
	})

	t.Run("non-finite values replaced by defaults", func(t *testing.T) {
		sat := testSatellite()
		sat.NDVI = math.NaN()
		wx := testWeather()
		wx.Humidity = math.Inf(1)
		st := testStorage()
		st.MoistureContent = math.NaN()

		v := Fuse(&sat, &wx, &st).Vector()

		assert.Equal(t, 0.5, v[IndexNDVI])
		assert.Equal(t, 0.6, v[IndexHumidity])
		assert.Equal(t, 0.6, v[IndexMoisture])
		for i, x := range v {
			assert.False(t, math.IsNaN(x) || math.IsInf(x, 0), "component %d not finite", i)
		}
	})
}

func TestStorageTypeScore(t *testing.T) {
	tests := []struct {
		typ  StorageType
		want float64
	}{
		{StorageSilo, 0.2},
		{StorageBag, 0.5},
		{StorageWarehouse, 0.3},
		{StorageOpen, 0.8},
		{"pit", 0.5},
		{"", 0.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, StorageTypeScore(tt.typ))
		})
	}
}

func TestFuse_SiloIndependentOfOtherFields(t *testing.T) {
	for _, st := range []StorageCondition{
		{Type: StorageSilo, VentilationScore: 0, MoistureContent: 0},
		{Type: StorageSilo, VentilationScore: 1, MoistureContent: 30},
		{Type: StorageSilo, VentilationScore: 0.5, MoistureContent: 12},
	} {
		f := Fuse(nil, nil, &st)
		assert.Equal(t, 0.2, f.Vector()[IndexStorageType])
	}
}

func TestFeaturesFromVector_InvertsVector(t *testing.T) {
	sat, wx, st := testSatellite(), testWeather(), testStorage()
	f := Fuse(&sat, &wx, &st)

	assert.Equal(t, f, FeaturesFromVector(f.Vector()))
}
