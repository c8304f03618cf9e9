package scoring

import (
	"math"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	ruleBasedConfidence = 0.75
	ruleBasedNote       = "Rule-based fallback scorer; load a trained model for production use"
)

// RuleBased scores the latest snapshot with fixed additive thresholds.
type RuleBased struct {
	clock clockwork.Clock
}

// NewRuleBased creates the fallback scorer.
func NewRuleBased(clock clockwork.Clock) *RuleBased {
	return &RuleBased{clock: clock}
}

func (r *RuleBased) Strategy() domain.Strategy { return domain.StrategyRuleBased }

// Score never fails. An empty sequence scores all-zero features.
func (r *RuleBased) Score(seq domain.FeatureSequence) (domain.RiskAssessment, error) {
	latest := seq.Latest()
	humidity := latest.Weather.Humidity
	temp := latest.Weather.Temperature

	risk := 1.0

	switch {
	case humidity > 0.75:
		risk += 3.5
	case humidity > 0.65:
		risk += 2.0
	}

	switch {
	case temp >= 25 && temp <= 35:
		risk += 2.5
	case temp >= 20 && temp <= 40:
		risk += 1.5
	}

	// Ventilation: higher is worse.
	if latest.Storage.Ventilation > 0.6 {
		risk += 1.5
	}

	// Above roughly 13% moisture content.
	if latest.Storage.Moisture > 0.65 {
		risk += 1.5
	}

	score := math.Min(risk, domain.MaxRiskScore)
	return domain.RiskAssessment{
		RiskScore:  score,
		RiskLevel:  domain.ClassifyRisk(score),
		Confidence: ruleBasedConfidence,
		Timestamp:  r.clock.Now(),
		Strategy:   domain.StrategyRuleBased,
		Note:       ruleBasedNote,
	}, nil
}
