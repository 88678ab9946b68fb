package risk

import (
	"context"

	"github.com/wudi/slipcheck/fields"
	"github.com/wudi/slipcheck/observability"
)

// Scorer is the single scoring entry point for callers. It never fails and
// never exposes model state.
type Scorer struct {
	ensemble *Ensemble
	logger   observability.Logger
}

// NewScorer scores against models (usually a *Registry).
func NewScorer(models ModelSource, logger observability.Logger) *Scorer {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Scorer{ensemble: NewEnsemble(models, logger), logger: logger}
}

// Score returns the risk score of rec in [0,1], rounded to two decimals.
// Without any model the score is 0.50.
func (s *Scorer) Score(ctx context.Context, rec fields.Record) float64 {
	v := Vectorize(rec)
	density, reconstruction := s.ensemble.SubScores(ctx, v)
	score := Combine(density, reconstruction)
	s.logger.Debug("scored record",
		observability.Float64("density", density),
		observability.Float64("reconstruction", reconstruction),
		observability.Float64("risk", score),
	)
	return score
}
