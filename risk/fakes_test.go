package risk

import (
	"context"
	"sync/atomic"
)

type fakeDensity struct {
	decision func(Vector) (float64, error)
	calls    atomic.Int32
	closed   atomic.Bool
}

func (f *fakeDensity) Decision(ctx context.Context, v Vector) (float64, error) {
	f.calls.Add(1)
	return f.decision(v)
}

func (f *fakeDensity) Close() error {
	f.closed.Store(true)
	return nil
}

func constantDensity(score float64) *fakeDensity {
	return &fakeDensity{decision: func(Vector) (float64, error) { return score, nil }}
}

type fakeReconstruction struct {
	reconstruct func(Vector) ([]float64, error)
	closed      atomic.Bool
}

func (f *fakeReconstruction) Reconstruct(ctx context.Context, v Vector) ([]float64, error) {
	return f.reconstruct(v)
}

func (f *fakeReconstruction) Close() error {
	f.closed.Store(true)
	return nil
}

// zeroReconstruction reconstructs every input as the origin, so the error
// equals the squared norm of the input.
func zeroReconstruction() *fakeReconstruction {
	return &fakeReconstruction{reconstruct: func(Vector) ([]float64, error) {
		return make([]float64, Len), nil
	}}
}

type staticSource struct {
	density        DensityModel
	reconstruction ReconstructionModel
}

func (s staticSource) Density() (DensityModel, bool) {
	return s.density, s.density != nil
}

func (s staticSource) Reconstruction() (ReconstructionModel, bool) {
	return s.reconstruction, s.reconstruction != nil
}
