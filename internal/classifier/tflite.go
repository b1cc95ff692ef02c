package classifier

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
)

// TFLite runs a TensorFlow Lite model whose single input is a float32
// feature vector and whose output holds one score per class id.
type TFLite struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputSize   int
	outputSize  int
}

// LoadTFLite loads a model file and allocates its tensors. threads <= 0
// uses the CPU count.
func LoadTFLite(path string, threads int) (*TFLite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tflite model: %w", err)
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model %s", path)
	}

	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New("cannot create TensorFlow Lite interpreter")
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.New("tensor allocation failed")
	}

	t := &TFLite{
		model:       model,
		options:     options,
		interpreter: interpreter,
	}

	input := interpreter.GetInputTensor(0)
	output := interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		t.Close()
		return nil, errors.New("model has no input or output tensor")
	}
	if input.Type() != tflite.Float32 || output.Type() != tflite.Float32 {
		t.Close()
		return nil, errors.New("model tensors must be float32")
	}

	t.inputSize = len(input.Float32s())
	t.outputSize = len(output.Float32s())
	if t.outputSize == 0 {
		t.Close()
		return nil, errors.New("model output tensor is empty")
	}

	return t, nil
}

// InputSize returns the feature vector length the model expects.
func (t *TFLite) InputSize() int {
	return t.inputSize
}

// Predict runs the model and returns the index of the highest output score.
func (t *TFLite) Predict(features []float64) (int, error) {
	if len(features) != t.inputSize {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d",
			len(features), t.inputSize)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interpreter == nil {
		return 0, errors.New("interpreter closed")
	}

	input := t.interpreter.GetInputTensor(0)
	in := input.Float32s()
	for i, v := range features {
		in[i] = float32(v)
	}

	if status := t.interpreter.Invoke(); status != tflite.OK {
		return 0, errors.New("tensor invoke failed")
	}

	scores := t.interpreter.GetOutputTensor(0).Float32s()
	return argmax(scores), nil
}

// Close releases the interpreter, options and model.
func (t *TFLite) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interpreter != nil {
		t.interpreter.Delete()
		t.interpreter = nil
	}
	if t.options != nil {
		t.options.Delete()
		t.options = nil
	}
	if t.model != nil {
		t.model.Delete()
		t.model = nil
	}
	return nil
}

// argmax returns the index of the largest value; the first wins on ties.
func argmax(scores []float32) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
