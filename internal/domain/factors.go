package domain

import "math"

// MaxCombinedRisk caps RiskFactors.CombinedRiskMultiplier.
const MaxCombinedRisk = 3.0

// RiskFactors explains how current conditions favour fungal growth. The
// multipliers are independent of the scored assessment.
type RiskFactors struct {
	TemperatureRisk        float64   `json:"temperature_risk"`
	HumidityRisk           float64   `json:"humidity_risk"`
	CropStressRisk         float64   `json:"crop_stress_risk"`
	CombinedRiskMultiplier float64   `json:"combined_risk_multiplier"`
	Assessment             RiskLevel `json:"assessment"`
}

// CalculateRiskFactors derives multiplicative risk contributions from the
// current weather and the satellite stress level.
//
// 25-35 °C is the optimal aflatoxin growth band; above it growth slows.
// Stressed crops are more susceptible to infection before harvest.
func CalculateRiskFactors(sat SatelliteObservation, weather WeatherBundle) RiskFactors {
	temp := weather.Current.Temperature
	humidity := weather.Current.Humidity

	tempRisk := 1.0
	switch {
	case temp >= 25 && temp <= 35:
		tempRisk = 1.5
	case temp > 35:
		tempRisk = 0.8
	}

	humidityRisk := 1.0
	switch {
	case humidity > 70:
		humidityRisk = 1.8
	case humidity > 60:
		humidityRisk = 1.3
	}

	stress := sat.StressLevel
	if math.IsNaN(stress) {
		stress = 0
	}
	stressRisk := 1.0 + stress*0.5

	combined := math.Min(tempRisk*humidityRisk*stressRisk, MaxCombinedRisk)

	return RiskFactors{
		TemperatureRisk:        tempRisk,
		HumidityRisk:           humidityRisk,
		CropStressRisk:         stressRisk,
		CombinedRiskMultiplier: combined,
		Assessment:             classifyCombinedRisk(combined),
	}
}

func classifyCombinedRisk(combined float64) RiskLevel {
	switch {
	case combined > 2.0:
		return RiskHigh
	case combined > 1.5:
		return RiskModerate
	default:
		return RiskLow
	}
}
