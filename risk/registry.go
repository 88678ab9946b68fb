package risk

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/slipcheck/observability"
)

// Paths locates the two model artefacts.
type Paths struct {
	Density        string
	Reconstruction string
}

// Registry owns the process-wide model handles. Each kind is loaded at most
// once, on first use, under its own lock; afterwards the loaded model is
// shared read-only and the filesystem is not consulted again.
//
// The models it hands out run inference under the kind's read lock, so Reset
// and Close wait for in-flight calls before releasing sessions.
type Registry struct {
	density        slot[DensityModel]
	reconstruction slot[ReconstructionModel]
}

// NewRegistry prepares unloaded handles for paths. A nil loader makes every
// model absent.
func NewRegistry(paths Paths, loader Loader, logger observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	r := &Registry{}
	r.density = slot[DensityModel]{
		kind:   KindDensity,
		path:   paths.Density,
		logger: logger,
	}
	r.reconstruction = slot[ReconstructionModel]{
		kind:   KindReconstruction,
		path:   paths.Reconstruction,
		logger: logger,
	}
	if loader != nil {
		r.density.load = loader.LoadDensity
		r.reconstruction.load = loader.LoadReconstruction
	}
	return r
}

// Density returns the density model, loading it on first use.
func (r *Registry) Density() (DensityModel, bool) {
	if _, ok := r.density.get(); !ok {
		return nil, false
	}
	return guardedDensity{&r.density}, true
}

// Reconstruction returns the reconstruction model, loading it on first use.
func (r *Registry) Reconstruction() (ReconstructionModel, bool) {
	if _, ok := r.reconstruction.get(); !ok {
		return nil, false
	}
	return guardedReconstruction{&r.reconstruction}, true
}

// State reports the handle state of kind without triggering a load.
func (r *Registry) State(kind Kind) State {
	switch kind {
	case KindDensity:
		return r.density.current()
	case KindReconstruction:
		return r.reconstruction.current()
	default:
		return StateAbsent
	}
}

// Reset closes loaded models and returns both handles to unloaded so the
// next use loads again.
func (r *Registry) Reset() error {
	return errors.Join(r.density.reset(), r.reconstruction.reset())
}

// Close releases loaded models.
func (r *Registry) Close() error { return r.Reset() }

type slot[M interface{ Close() error }] struct {
	kind   Kind
	path   string
	load   func(path string) (M, error)
	logger observability.Logger

	mu    sync.RWMutex
	state State
	model M
}

func (s *slot[M]) get() (M, bool) {
	s.mu.RLock()
	if s.state != StateUnloaded {
		m, ok := s.model, s.state == StateLoaded
		s.mu.RUnlock()
		return m, ok
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnloaded {
		m, err := s.open()
		if err != nil {
			s.state = StateAbsent
			s.logAbsent(err)
		} else {
			s.model = m
			s.state = StateLoaded
		}
	}
	return s.model, s.state == StateLoaded
}

func (s *slot[M]) open() (m M, err error) {
	if s.load == nil {
		return m, errors.New("no model loader configured")
	}
	if s.path == "" {
		return m, fmt.Errorf("%w: no path configured", ErrModelNotFound)
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, fmt.Errorf("%w: %s", ErrModelNotFound, s.path)
		}
		return m, fmt.Errorf("stat %s: %w", s.path, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("load %s panicked: %v", s.path, rec)
		}
	}()
	m, err = s.load(s.path)
	if err != nil {
		return m, fmt.Errorf("load %s: %w", s.path, err)
	}
	if any(m) == nil {
		return m, fmt.Errorf("load %s: loader returned no model", s.path)
	}

	fields := []observability.Field{
		observability.String("kind", s.kind.String()),
		observability.String("path", s.path),
	}
	if digest, derr := fileDigest(s.path); derr == nil {
		fields = append(fields, observability.String("blake2b", digest))
	}
	s.logger.Info("model loaded", fields...)
	return m, nil
}

// use runs fn against the loaded model while holding the read lock.
func (s *slot[M]) use(fn func(M) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateLoaded {
		return fmt.Errorf("%s: %w", s.kind, ErrModelClosed)
	}
	return fn(s.model)
}

func (s *slot[M]) logAbsent(err error) {
	fields := []observability.Field{
		observability.String("kind", s.kind.String()),
		observability.Error("cause", err),
	}
	if errors.Is(err, ErrModelNotFound) {
		s.logger.Info("model not available, using neutral sub-score", fields...)
		return
	}
	s.logger.Warn("model failed to load, using neutral sub-score", fields...)
}

func (s *slot[M]) current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *slot[M]) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.state == StateLoaded {
		if cerr := s.model.Close(); cerr != nil {
			err = fmt.Errorf("close %s model: %w", s.kind, cerr)
		}
	}
	var zero M
	s.model = zero
	s.state = StateUnloaded
	return err
}

// guardedDensity and guardedReconstruction are the handles the registry
// hands out. Their Close is a no-op: the registry owns the sessions.
type guardedDensity struct{ s *slot[DensityModel] }

func (g guardedDensity) Decision(ctx context.Context, v Vector) (score float64, err error) {
	err = g.s.use(func(m DensityModel) error {
		score, err = m.Decision(ctx, v)
		return err
	})
	return score, err
}

func (guardedDensity) Close() error { return nil }

type guardedReconstruction struct{ s *slot[ReconstructionModel] }

func (g guardedReconstruction) Reconstruct(ctx context.Context, v Vector) (out []float64, err error) {
	err = g.s.use(func(m ReconstructionModel) error {
		out, err = m.Reconstruct(ctx, v)
		return err
	})
	return out, err
}

func (guardedReconstruction) Close() error { return nil }

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
