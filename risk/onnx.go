package risk

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// ONNXLoader opens models exported to ONNX (skl2onnx for the isolation
// forest, tf2onnx for the autoencoder) and runs them with ONNX Runtime.
type ONNXLoader struct {
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// platform default search. The runtime is initialised once per process,
	// so the first loader to initialise decides the library.
	LibraryPath string
	// DensityOutput names the decision-function output of the density model.
	DensityOutput string
}

func (l *ONNXLoader) initRuntime() error {
	ortOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if l.LibraryPath != "" {
			ort.SetSharedLibraryPath(l.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return ortErr
}

// LoadDensity opens an isolation-forest style model whose output is a
// single decision score per row.
func (l *ONNXLoader) LoadDensity(path string) (DensityModel, error) {
	if err := l.initRuntime(); err != nil {
		return nil, err
	}
	output := l.DensityOutput
	if output == "" {
		output = "scores"
	}
	m, err := openONNX(path, output, 1)
	if err != nil {
		return nil, err
	}
	return &onnxDensity{m}, nil
}

// LoadReconstruction opens an autoencoder whose output has the input's shape.
func (l *ONNXLoader) LoadReconstruction(path string) (ReconstructionModel, error) {
	if err := l.initRuntime(); err != nil {
		return nil, err
	}
	m, err := openONNX(path, "", Len)
	if err != nil {
		return nil, err
	}
	return &onnxReconstruction{m}, nil
}

type onnxModel struct {
	session   *ort.DynamicAdvancedSession
	outputLen int64
}

// openONNX validates the model signature against the feature vector and
// opens a session. An empty output name selects the first output.
func openONNX(path, output string, outputLen int64) (*onnxModel, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%s: expected 1 input, got %d", path, len(inputs))
	}
	in := inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("%s: input %q has type %v, want float32", path, in.Name, in.DataType)
	}
	if dims := in.Dimensions; len(dims) != 2 || (dims[1] != Len && dims[1] >= 0) {
		return nil, fmt.Errorf("%s: input %q has shape %v, want [batch %d]", path, in.Name, dims, Len)
	}

	outName := ""
	for _, o := range outputs {
		if output == "" || o.Name == output {
			if o.DataType != ort.TensorElementDataTypeFloat {
				return nil, fmt.Errorf("%s: output %q has type %v, want float32", path, o.Name, o.DataType)
			}
			outName = o.Name
			break
		}
	}
	if outName == "" {
		return nil, fmt.Errorf("%s: output %q not found", path, output)
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{outName}, nil)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", path, err)
	}
	return &onnxModel{session: session, outputLen: outputLen}, nil
}

// run executes one row. Tensors are per call, so a session can serve
// concurrent callers.
func (m *onnxModel) run(ctx context.Context, v Vector) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input, err := ort.NewTensor(ort.NewShape(1, Len), v.Float32s())
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, m.outputLen))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	return append([]float32(nil), output.GetData()...), nil
}

func (m *onnxModel) Close() error {
	return m.session.Destroy()
}

type onnxDensity struct{ *onnxModel }

func (d *onnxDensity) Decision(ctx context.Context, v Vector) (float64, error) {
	out, err := d.run(ctx, v)
	if err != nil {
		return 0, err
	}
	return float64(out[0]), nil
}

type onnxReconstruction struct{ *onnxModel }

func (r *onnxReconstruction) Reconstruct(ctx context.Context, v Vector) ([]float64, error) {
	out, err := r.run(ctx, v)
	if err != nil {
		return nil, err
	}
	rec := make([]float64, len(out))
	for i, x := range out {
		rec[i] = float64(x)
	}
	return rec, nil
}
