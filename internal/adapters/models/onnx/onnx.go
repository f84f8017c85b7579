// Package onnx runs binary classifiers exported to ONNX (for example with
// onnxmltools) through ONNX Runtime.
package onnx

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/okian/dropout/internal/domain/classifier"
)

// ErrInvalidModel is returned when the model's inputs or outputs do not
// match a single-row binary classifier.
var ErrInvalidModel = errors.New("invalid onnx model")

const probabilitiesOutput = "probabilities"

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// Init initializes the ONNX Runtime environment from the shared library at
// libPath. Only the first call has any effect.
func Init(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Model wraps a session for a classifier with a float input of shape
// [1, width] and a probability output of shape [1, 2].
type Model struct {
	mu      sync.Mutex // serializes Run on the shared session
	session *ort.DynamicAdvancedSession
	width   int64
}

// Load opens the model at path and checks that it accepts width features.
// Init must have succeeded first.
func Load(path string, width int) (*Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	inputName, err := validateInput(inputs, int64(width))
	if err != nil {
		return nil, err
	}
	outputName, err := validateOutputs(outputs)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("onnx: failed to set threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputName}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &Model{session: session, width: int64(width)}, nil
}

func validateInput(inputs []ort.InputOutputInfo, width int64) (string, error) {
	if len(inputs) != 1 {
		return "", fmt.Errorf("%w: want one input, got %d", ErrInvalidModel, len(inputs))
	}
	in := inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return "", fmt.Errorf("%w: input %q is %v, want float", ErrInvalidModel, in.Name, in.DataType)
	}
	dims := in.Dimensions
	// batch may be symbolic (-1); the feature dimension must be fixed
	if len(dims) != 2 || dims[1] != width {
		return "", fmt.Errorf("%w: input %q has shape %v, want [N %d]", ErrInvalidModel, in.Name, dims, width)
	}
	return in.Name, nil
}

// validateOutputs picks the probability tensor, preferring the output named
// "probabilities" and otherwise the first float output shaped [N, 2].
func validateOutputs(outputs []ort.InputOutputInfo) (string, error) {
	var pick *ort.InputOutputInfo
	for i := range outputs {
		o := &outputs[i]
		if o.OrtValueType != ort.ONNXTypeTensor || o.DataType != ort.TensorElementDataTypeFloat {
			continue
		}
		if len(o.Dimensions) != 2 || o.Dimensions[1] != 2 {
			continue
		}
		if o.Name == probabilitiesOutput {
			return o.Name, nil
		}
		if pick == nil {
			pick = o
		}
	}
	if pick == nil {
		return "", fmt.Errorf("%w: no float [N 2] probability output (disable zipmap when exporting)", ErrInvalidModel)
	}
	return pick.Name, nil
}

// PredictProbability returns the positive-class probability for x.
func (m *Model) PredictProbability(x []float64) (float64, error) {
	if int64(len(x)) != m.width {
		return 0, fmt.Errorf("onnx: %w: input width %d, want %d", classifier.ErrInvalidInput, len(x), m.width)
	}
	data := make([]float32, len(x))
	for i, v := range x {
		data[i] = float32(v)
	}
	in, err := ort.NewTensor(ort.NewShape(1, m.width), data)
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	m.mu.Lock()
	err = m.session.Run([]ort.Value{in}, []ort.Value{out})
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("onnx: inference failed: %w", err)
	}
	return float64(out.GetData()[1]), nil
}

// Predict returns the hard label for x.
func (m *Model) Predict(x []float64) (int, error) {
	p, err := m.PredictProbability(x)
	if err != nil {
		return 0, err
	}
	return classifier.LabelOf(p), nil
}

// Close releases the session.
func (m *Model) Close() error {
	return m.session.Destroy()
}
