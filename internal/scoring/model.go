// Package scoring turns feature sequences into bounded risk assessments.
//
// Two strategies implement Model: Trained runs a recurrent network loaded from
// a gob artifact, and RuleBased applies additive thresholds to the latest
// snapshot. Select picks one at startup from artifact presence.
package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/harvest-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Model scores a look-back window of fused snapshots.
type Model interface {
	Score(seq domain.FeatureSequence) (domain.RiskAssessment, error)
	Strategy() domain.Strategy
}

// Select returns a Trained model loaded from path, or RuleBased when path is
// empty or names no file. An artifact that exists but cannot be loaded is an
// error.
func Select(path string, clock clockwork.Clock, logger *slog.Logger) (Model, error) {
	if path == "" {
		logger.Info("no model artifact configured, using rule-based scorer")
		return NewRuleBased(clock), nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("model artifact not found, using rule-based scorer", "path", path)
			return NewRuleBased(clock), nil
		}
		return nil, fmt.Errorf("stat model artifact: %w", err)
	}

	m, err := Load(path, clock)
	if err != nil {
		return nil, err
	}
	logger.Info("trained model loaded", "path", path, "recurrent_layers", len(m.params.Recurrent), "dense_layers", len(m.params.Dense))
	return m, nil
}
