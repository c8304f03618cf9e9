package domain

import (
	"math"
	"time"
)

// RiskLevel is a categorical risk label.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Score classification thresholds, inclusive lower bounds.
const (
	CriticalThreshold = 8.0
	HighThreshold     = 6.0
	ModerateThreshold = 4.0

	MinRiskScore = 1.0
	MaxRiskScore = 10.0
)

// Strategy records which scorer produced an assessment.
type Strategy string

const (
	StrategyTrained   Strategy = "trained"
	StrategyRuleBased Strategy = "rule_based"
)

// RiskAssessment is the scored outcome for one feature sequence.
type RiskAssessment struct {
	RiskScore  float64   `json:"risk_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Strategy   Strategy  `json:"strategy_used"`
	Note       string    `json:"note,omitempty"`
}

// ClassifyRisk maps a score to its level, evaluated high to low.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskCritical
	case score >= HighThreshold:
		return RiskHigh
	case score >= ModerateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// ClampScore bounds a raw score to [MinRiskScore, MaxRiskScore].
func ClampScore(v float64) float64 {
	return math.Min(MaxRiskScore, math.Max(MinRiskScore, v))
}
