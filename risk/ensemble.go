package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/wudi/slipcheck/observability"
)

// Neutral is the sub-score of a model that is absent or failed: no opinion
// either way.
const Neutral = 0.5

// Ensemble blends the density and reconstruction sub-scores.
type Ensemble struct {
	models ModelSource
	logger observability.Logger
}

// NewEnsemble scores with models. A nil source behaves as if no model exists.
func NewEnsemble(models ModelSource, logger observability.Logger) *Ensemble {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Ensemble{models: models, logger: logger}
}

// Score returns the unweighted mean of both sub-scores rounded to two
// decimals, always within [0,1].
func (e *Ensemble) Score(ctx context.Context, v Vector) float64 {
	return Combine(e.SubScores(ctx, v))
}

// SubScores evaluates both members independently; a failure in one never
// changes the other.
func (e *Ensemble) SubScores(ctx context.Context, v Vector) (density, reconstruction float64) {
	return e.DensityScore(ctx, v), e.ReconstructionScore(ctx, v)
}

// DensityScore negates the model's decision function (higher = more
// anomalous) and rescales it from [-1,1] to [0,1].
func (e *Ensemble) DensityScore(ctx context.Context, v Vector) float64 {
	if e.models == nil {
		return Neutral
	}
	m, ok := e.models.Density()
	if !ok {
		return Neutral
	}
	raw, err := decide(ctx, m, v)
	if err == nil && !finite(raw) {
		err = fmt.Errorf("non-finite decision %v", raw)
	}
	if err != nil {
		e.fallback(KindDensity, err)
		return Neutral
	}
	return clamp01((-raw + 1) / 2)
}

// ReconstructionScore maps the mean squared reconstruction error through
// mse/(mse+1), which grows monotonically towards 1.
func (e *Ensemble) ReconstructionScore(ctx context.Context, v Vector) float64 {
	if e.models == nil {
		return Neutral
	}
	m, ok := e.models.Reconstruction()
	if !ok {
		return Neutral
	}
	out, err := reconstruct(ctx, m, v)
	if err != nil {
		e.fallback(KindReconstruction, err)
		return Neutral
	}
	mse, err := meanSquaredError(v, out)
	if err != nil {
		e.fallback(KindReconstruction, err)
		return Neutral
	}
	return SaturateError(mse)
}

func (e *Ensemble) fallback(kind Kind, err error) {
	e.logger.Warn("inference failed, using neutral sub-score",
		observability.String("kind", kind.String()),
		observability.Error("cause", err),
	)
}

// Combine averages two sub-scores and rounds to two decimals, ties to even.
func Combine(density, reconstruction float64) float64 {
	return round2(clamp01((density + reconstruction) / 2))
}

// SaturateError maps a non-negative error onto [0,1).
func SaturateError(mse float64) float64 {
	return mse / (mse + 1)
}

func meanSquaredError(v Vector, out []float64) (float64, error) {
	if len(out) != Len {
		return 0, fmt.Errorf("reconstruction has %d values, want %d", len(out), Len)
	}
	var sum float64
	for i, x := range v {
		d := x - out[i]
		sum += d * d
	}
	mse := sum / Len
	if !finite(mse) {
		return 0, fmt.Errorf("non-finite reconstruction error %v", mse)
	}
	return mse, nil
}

func decide(ctx context.Context, m DensityModel, v Vector) (score float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("density model panicked: %v", rec)
		}
	}()
	return m.Decision(ctx, v)
}

func reconstruct(ctx context.Context, m ReconstructionModel, v Vector) (out []float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reconstruction model panicked: %v", rec)
		}
	}()
	return m.Reconstruct(ctx, v)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// round2 rounds exact ties to even (0.125 -> 0.12, 0.375 -> 0.38).
func round2(x float64) float64 { return math.RoundToEven(x*100) / 100 }
