package onnx

import (
	"fmt"
	"sync"

	"github.com/krau/konaclassify/zoo"
	ort "github.com/yalue/onnxruntime_go"
)

// Network is a zoo.Network backed by an ONNX Runtime session with pre-allocated tensors. Runs are
// serialized because the tensors are shared.
type Network struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	inputName  string
	outputName string
	labels     *zoo.Labels
	mu         sync.Mutex
}

func inputShape(spec zoo.Spec) ort.Shape {
	w, h := int64(spec.InputShape.Width), int64(spec.InputShape.Height)
	if spec.Layout == zoo.NHWC {
		return ort.NewShape(1, h, w, 3)
	}
	return ort.NewShape(1, 3, h, w)
}

// checkDims compares a model's declared dims with want. Dynamic dims (<= 0) match anything.
func checkDims(got, want ort.Shape) error {
	if len(got) != len(want) {
		return fmt.Errorf("model expects rank %d input %v, profile produces %v", len(got), got, want)
	}
	for i := range got {
		if got[i] > 0 && got[i] != want[i] {
			return fmt.Errorf("model expects input %v, profile produces %v", got, want)
		}
	}
	return nil
}

// outputShape fills dynamic dims of the model output and checks it holds one score per class.
func outputShape(dims ort.Shape, classes int) (ort.Shape, error) {
	if len(dims) == 0 {
		return ort.NewShape(1, int64(classes)), nil
	}
	shape := make(ort.Shape, len(dims))
	dynamic := -1
	for i, d := range dims {
		shape[i] = d
		if d <= 0 {
			shape[i] = 1
			if i > 0 {
				dynamic = i
			}
		}
	}
	if dynamic >= 0 && shape.FlattenedSize() == 1 {
		shape[dynamic] = int64(classes)
	}
	if shape.FlattenedSize() != int64(classes) {
		return nil, fmt.Errorf("model outputs %v, want %d classes", dims, classes)
	}
	return shape, nil
}

// Load opens the ONNX file at path for the given profile.
func Load(path string, spec zoo.Spec, labels *zoo.Labels) (*Network, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", path)
	}

	in := inputShape(spec)
	if err := checkDims(inputs[0].Dimensions, in); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	out, err := outputShape(outputs[0].Dimensions, labels.Len())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	inputTensor, err := ort.NewEmptyTensor[float32](in)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](out)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &Network{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		labels:     labels,
	}, nil
}

func (n *Network) Run(input []float32) ([]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	dst := n.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model %q expects %d", len(input), n.inputName, len(dst))
	}
	copy(dst, input)
	if err := n.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := n.output.GetData()
	out := make([]float32, len(scores))
	copy(out, scores)
	return out, nil
}

func (n *Network) Labels() *zoo.Labels {
	return n.labels
}

func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var err error
	if n.session != nil {
		err = n.session.Destroy()
		n.session = nil
	}
	if n.input != nil {
		n.input.Destroy()
		n.input = nil
	}
	if n.output != nil {
		n.output.Destroy()
		n.output = nil
	}
	return err
}
