package domain

import (
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate reports whether the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

// Key returns the coordinate rounded to two decimal places (~1.1 km), used to
// group nearby requests for caching and history.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.2f,%.2f", c.Latitude, c.Longitude)
}

// DataSource identifies where an observation came from.
type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceSynthetic DataSource = "synthetic"
)

// SatelliteObservation holds crop-health indicators for a location and date.
type SatelliteObservation struct {
	NDVI               float64   `json:"ndvi"`
	NDMI               float64   `json:"ndmi"`
	CropHealth         float64   `json:"crop_health"`
	StressLevel        float64   `json:"stress_level"`
	CanopyWater        float64   `json:"canopy_water"`
	Chlorophyll        float64   `json:"chlorophyll"`
	TemperatureSurface float64   `json:"temperature_surface"` // °C
	Timestamp          time.Time `json:"timestamp"`
	IsRealData         bool      `json:"is_real_data"`
}

// WeatherObservation is a snapshot of conditions at the storage site.
type WeatherObservation struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // relative humidity, %
	Rainfall    float64   `json:"rainfall"`    // mm
	WindSpeed   float64   `json:"wind_speed"`  // m/s
	DewPoint    float64   `json:"dew_point"`   // °C
	Pressure    float64   `json:"pressure"`    // hPa
	Timestamp   time.Time `json:"timestamp"`
}

// ForecastPoint is one hourly forecast step.
type ForecastPoint struct {
	Hour        int       `json:"hour"` // offset from the fetch time
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Rainfall    float64   `json:"rainfall"`
	Timestamp   time.Time `json:"timestamp"`
}

// WeatherBundle groups current conditions with the forecast that followed them.
type WeatherBundle struct {
	Current  WeatherObservation `json:"current"`
	Forecast []ForecastPoint    `json:"forecast"`
	Location Coordinate         `json:"location"`
	Source   DataSource         `json:"source"`
}

// TruncateForecast returns at most n leading forecast points.
func (b WeatherBundle) TruncateForecast(n int) []ForecastPoint {
	if n < 0 || len(b.Forecast) <= n {
		return b.Forecast
	}
	return b.Forecast[:n]
}

// StorageType names how produce is stored.
type StorageType string

const (
	StorageSilo      StorageType = "silo"
	StorageBag       StorageType = "bag"
	StorageWarehouse StorageType = "warehouse"
	StorageOpen      StorageType = "open"
)

// StorageCondition describes the storage environment.
type StorageCondition struct {
	Type             StorageType `json:"type"`
	VentilationScore float64     `json:"ventilation_score"` // 0 best, 1 worst
	MoistureContent  float64     `json:"moisture_content"`  // %
}

// Validate checks the storage parameters a caller supplied.
func (s StorageCondition) Validate() error {
	if math.IsNaN(s.VentilationScore) || s.VentilationScore < 0 || s.VentilationScore > 1 {
		return &ValidationError{Field: "ventilation_score", Reason: "must be between 0 and 1"}
	}
	if math.IsNaN(s.MoistureContent) || s.MoistureContent < 0 || s.MoistureContent > 100 {
		return &ValidationError{Field: "moisture_content", Reason: "must be a percentage between 0 and 100"}
	}
	return nil
}
