package risk

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsembleWithoutModelsIsNeutral(t *testing.T) {
	ctx := context.Background()
	for _, src := range []ModelSource{nil, staticSource{}} {
		e := NewEnsemble(src, nil)
		assert.Equal(t, 0.5, e.Score(ctx, Vector{1000, 7, 0}))
		assert.Equal(t, Neutral, e.DensityScore(ctx, Vector{}))
		assert.Equal(t, Neutral, e.ReconstructionScore(ctx, Vector{}))
	}
}

func TestDensityScoreRescalesDecision(t *testing.T) {
	tests := []struct {
		decision float64
		want     float64
	}{
		{1, 0},
		{0, 0.5},
		{-1, 1},
		{0.2, 0.4},
		{5, 0},
		{-5, 1},
	}
	for _, tt := range tests {
		e := NewEnsemble(staticSource{density: constantDensity(tt.decision)}, nil)
		assert.InDelta(t, tt.want, e.DensityScore(context.Background(), Vector{}), 1e-12, "decision %v", tt.decision)
	}
}

func TestReconstructionScoreIsMonotonic(t *testing.T) {
	e := NewEnsemble(staticSource{reconstruction: zeroReconstruction()}, nil)
	ctx := context.Background()

	prev := -1.0
	for _, amount := range []float64{0, 0.5, 1, 2, 10, 100, 1e4} {
		s := e.ReconstructionScore(ctx, Vector{amount, 0, 0})
		assert.Greater(t, s, prev, "amount %v", amount)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, 1.0)
		prev = s
	}
	assert.Equal(t, 0.0, e.ReconstructionScore(ctx, Vector{}))
}

func TestSaturateError(t *testing.T) {
	assert.Equal(t, 0.0, SaturateError(0))
	assert.Equal(t, 0.5, SaturateError(1))
	assert.InDelta(t, 0.75, SaturateError(3), 1e-12)
}

func TestEnsembleBlendsSubScores(t *testing.T) {
	src := staticSource{
		density: constantDensity(0.2),
		reconstruction: &fakeReconstruction{reconstruct: func(v Vector) ([]float64, error) {
			// Error of sqrt(3) on one component gives an MSE of 1.
			return []float64{v[0] + math.Sqrt(3), v[1], v[2]}, nil
		}},
	}
	e := NewEnsemble(src, nil)
	assert.Equal(t, 0.45, e.Score(context.Background(), Vector{1, 2, 3}))
}

func TestEnsembleRoundsTiesToEven(t *testing.T) {
	e := NewEnsemble(staticSource{density: constantDensity(-0.5)}, nil)
	// (0.75 + 0.5) / 2 = 0.625
	assert.Equal(t, 0.62, e.Score(context.Background(), Vector{}))

	// density 0.25 with an exact reconstruction: (0.25 + 0) / 2 = 0.125
	e = NewEnsemble(staticSource{
		density:        constantDensity(0.5),
		reconstruction: zeroReconstruction(),
	}, nil)
	assert.Equal(t, 0.12, e.Score(context.Background(), Vector{}))
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{0.625, 0.62},
		{0.875, 0.88},
		{0.126, 0.13},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round2(tt.in), "round2(%v)", tt.in)
	}
}

func TestEnsembleIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	healthyDensity := constantDensity(-1)

	tests := []struct {
		name           string
		reconstruction ReconstructionModel
	}{
		{"error", &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
			return nil, errors.New("session closed")
		}}},
		{"panic", &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
			panic("index out of range")
		}}},
		{"wrong length", &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
			return []float64{1}, nil
		}}},
		{"nan", &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
			return []float64{math.NaN(), 0, 0}, nil
		}}},
		{"overflow", &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
			return []float64{math.MaxFloat64, 0, 0}, nil
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnsemble(staticSource{density: healthyDensity, reconstruction: tt.reconstruction}, nil)
			assert.Equal(t, Neutral, e.ReconstructionScore(ctx, Vector{}))
			assert.Equal(t, 1.0, e.DensityScore(ctx, Vector{}))
			assert.Equal(t, 0.75, e.Score(ctx, Vector{}))
		})
	}
}

func TestEnsembleIsolatesDensityFailures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		decision func(Vector) (float64, error)
	}{
		{"error", func(Vector) (float64, error) { return 0, errors.New("boom") }},
		{"panic", func(Vector) (float64, error) { panic("boom") }},
		{"nan", func(Vector) (float64, error) { return math.NaN(), nil }},
		{"inf", func(Vector) (float64, error) { return math.Inf(-1), nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnsemble(staticSource{
				density:        &fakeDensity{decision: tt.decision},
				reconstruction: zeroReconstruction(),
			}, nil)
			assert.Equal(t, Neutral, e.DensityScore(ctx, Vector{}))
			assert.Equal(t, 0.0, e.ReconstructionScore(ctx, Vector{}))
			assert.Equal(t, 0.25, e.Score(ctx, Vector{}))
		})
	}
}

func TestScoreIsBoundedAndRounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		decision := rng.NormFloat64() * 3
		offset := rng.ExpFloat64() * 10
		src := staticSource{
			density: constantDensity(decision),
			reconstruction: &fakeReconstruction{reconstruct: func(v Vector) ([]float64, error) {
				return []float64{v[0] + offset, v[1], v[2] - offset}, nil
			}},
		}
		v := Vector{rng.Float64() * 1e6, float64(rng.Intn(40)), float64(rng.Intn(40))}
		s := NewEnsemble(src, nil).Score(ctx, v)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.Equal(t, math.RoundToEven(s*100)/100, s)
	}
}

func TestCombine(t *testing.T) {
	assert.Equal(t, 0.5, Combine(Neutral, Neutral))
	assert.Equal(t, 1.0, Combine(1, 1))
	assert.Equal(t, 0.0, Combine(0, 0))
	assert.Equal(t, 0.33, Combine(0.333, 0.333))
}
