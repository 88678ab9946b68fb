package risk

import (
	"context"
	"errors"
)

// Kind identifies one of the two ensemble members.
type Kind int

const (
	KindDensity Kind = iota
	KindReconstruction
)

func (k Kind) String() string {
	switch k {
	case KindDensity:
		return "density"
	case KindReconstruction:
		return "reconstruction"
	default:
		return "unknown"
	}
}

// State is the lifecycle of a model handle.
type State int

const (
	// StateUnloaded means no load has been attempted yet.
	StateUnloaded State = iota
	// StateAbsent means the artefact was missing or failed to load. It is
	// not retried until the registry is reset.
	StateAbsent
	// StateLoaded means the model is ready and shared read-only.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateAbsent:
		return "absent"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// ErrModelNotFound is logged when an artefact file does not exist.
var ErrModelNotFound = errors.New("model artefact not found")

// ErrModelClosed is returned by a registry handle used after Reset or Close.
var ErrModelClosed = errors.New("model closed")

// DensityModel is an unsupervised density model such as an isolation
// forest. Decision returns its decision function; higher means more normal.
type DensityModel interface {
	Decision(ctx context.Context, v Vector) (float64, error)
	Close() error
}

// ReconstructionModel is an autoencoder-style model returning its
// reconstruction of the input.
type ReconstructionModel interface {
	Reconstruct(ctx context.Context, v Vector) ([]float64, error)
	Close() error
}

// Loader opens model artefacts.
type Loader interface {
	LoadDensity(path string) (DensityModel, error)
	LoadReconstruction(path string) (ReconstructionModel, error)
}

// ModelSource hands out the models that are available right now.
type ModelSource interface {
	Density() (DensityModel, bool)
	Reconstruction() (ReconstructionModel, bool)
}
