package risk

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/slipcheck/fields"
)

// Without a usable onnxruntime library every artefact ends up absent and
// scoring stays neutral.
func TestONNXLoaderWithoutRuntime(t *testing.T) {
	if os.Getenv("ONNXRUNTIME_LIB") != "" {
		t.Skip("onnxruntime configured; runtime failure path not reachable")
	}
	dir := t.TempDir()
	loader := &ONNXLoader{LibraryPath: filepath.Join(dir, "libonnxruntime-missing.so")}

	paths := writeArtefacts(t)
	_, err := loader.LoadDensity(paths.Density)
	require.Error(t, err)
	_, err = loader.LoadReconstruction(paths.Reconstruction)
	require.Error(t, err)

	reg := NewRegistry(paths, loader, nil)
	s := NewScorer(reg, nil)
	assert.Equal(t, 0.5, s.Score(context.Background(), fields.Record{}))
	assert.Equal(t, StateAbsent, reg.State(KindDensity))
	assert.Equal(t, StateAbsent, reg.State(KindReconstruction))
}

// testdata/density.onnx computes 1 - amount/1000 (Gemm, output "scores");
// testdata/reconstruction.onnx halves its input (Mul).
func TestONNXModelsRun(t *testing.T) {
	lib := os.Getenv("ONNXRUNTIME_LIB")
	if lib == "" {
		t.Skip("ONNXRUNTIME_LIB not set; skipping onnxruntime integration test")
	}
	loader := &ONNXLoader{LibraryPath: lib}
	paths := Paths{
		Density:        filepath.Join("testdata", "density.onnx"),
		Reconstruction: filepath.Join("testdata", "reconstruction.onnx"),
	}
	ctx := context.Background()

	density, err := loader.LoadDensity(paths.Density)
	require.NoError(t, err)
	defer density.Close()

	d, err := density.Decision(ctx, Vector{0, 7, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1, d, 1e-6)
	d, err = density.Decision(ctx, Vector{1000, 7, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-4)

	recon, err := loader.LoadReconstruction(paths.Reconstruction)
	require.NoError(t, err)
	defer recon.Close()

	out, err := recon.Reconstruct(ctx, Vector{2, 4, 6})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, out, 1e-6)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := density.Decision(ctx, Vector{float64(i) * 100, 0, 0})
			assert.NoError(t, err)
			assert.InDelta(t, 1-float64(i)*0.1, got, 1e-4)
		}()
	}
	wg.Wait()

	_, err = loader.LoadDensity(paths.Reconstruction)
	assert.Error(t, err, "a model without a scores output is not a density model")

	_, err = density.Decision(canceledContext(), Vector{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestONNXRegistryScores(t *testing.T) {
	lib := os.Getenv("ONNXRUNTIME_LIB")
	if lib == "" {
		t.Skip("ONNXRUNTIME_LIB not set; skipping onnxruntime integration test")
	}
	reg := NewRegistry(Paths{
		Density:        filepath.Join("testdata", "density.onnx"),
		Reconstruction: filepath.Join("testdata", "reconstruction.onnx"),
	}, &ONNXLoader{LibraryPath: lib}, nil)
	defer reg.Close()

	amount, sender := "1,000.00", "Somchai"
	// density (0 + 1) / 2 = 0.5; reconstruction error of (1000, 7, 0) is
	// about 83337, which saturates to ~1.
	score := NewScorer(reg, nil).Score(context.Background(), fields.Record{Amount: &amount, SenderName: &sender})
	assert.Equal(t, 0.75, score)
	assert.Equal(t, StateLoaded, reg.State(KindDensity))
	assert.Equal(t, StateLoaded, reg.State(KindReconstruction))
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
