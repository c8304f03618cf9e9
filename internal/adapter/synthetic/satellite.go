// Package synthetic generates deterministic stand-in observations used when a
// live provider is unconfigured or fails.
package synthetic

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
)

// SatelliteMode selects how synthetic satellite indices are produced.
type SatelliteMode string

const (
	// SatelliteConstant returns the same indices for every location.
	SatelliteConstant SatelliteMode = "constant"
	// SatelliteCoordinate derives indices from the coordinate so nearby
	// locations differ while staying reproducible.
	SatelliteCoordinate SatelliteMode = "coordinate"
)

// ParseSatelliteMode validates a configured mode name.
func ParseSatelliteMode(s string) (SatelliteMode, error) {
	switch m := SatelliteMode(s); m {
	case SatelliteConstant, SatelliteCoordinate:
		return m, nil
	default:
		return "", fmt.Errorf("unknown synthetic satellite mode %q", s)
	}
}

// Satellite generates synthetic satellite observations.
type Satellite struct {
	mode SatelliteMode
}

// NewSatellite creates a generator. An unknown mode behaves as SatelliteConstant.
func NewSatellite(mode SatelliteMode) *Satellite {
	if mode != SatelliteCoordinate {
		mode = SatelliteConstant
	}
	return &Satellite{mode: mode}
}

// Mode returns the generator's effective mode.
func (s *Satellite) Mode() SatelliteMode { return s.mode }

// Observation returns indices for loc on date. The result is never flagged as
// real data.
func (s *Satellite) Observation(loc domain.Coordinate, date time.Time) domain.SatelliteObservation {
	if s.mode == SatelliteCoordinate {
		return coordinateObservation(loc, date)
	}
	return domain.SatelliteObservation{
		NDVI:               0.65,
		NDMI:               0.55,
		CropHealth:         0.7,
		StressLevel:        0.3,
		CanopyWater:        0.6,
		Chlorophyll:        0.68,
		TemperatureSurface: 28.5,
		Timestamp:          date,
	}
}

func coordinateObservation(loc domain.Coordinate, date time.Time) domain.SatelliteObservation {
	ndvi := 0.4 + posMod(loc.Latitude, 0.5)
	ndmi := 0.3 + posMod(loc.Longitude, 0.5)
	health := (ndvi + ndmi) / 2
	return domain.SatelliteObservation{
		NDVI:               ndvi,
		NDMI:               ndmi,
		CropHealth:         health,
		StressLevel:        1 - health,
		CanopyWater:        ndmi,
		Chlorophyll:        0.9*ndvi + 0.05,
		TemperatureSurface: 22 + posMod(loc.Latitude+loc.Longitude, 10),
		Timestamp:          date,
	}
}

// posMod is the floored modulo, always in [0, m).
func posMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
