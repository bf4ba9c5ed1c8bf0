// Package zoo holds the pretrained ImageNet classifiers the application can run: their static
// profiles, the preprocessing each one expects and the decoding of raw scores into ranked
// predictions.
package zoo

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoImage      = errors.New("no image")
	ErrNoLoader     = errors.New("profile has no network loader")
	ErrUnknownMode  = errors.New("unknown preprocessing mode")
	ErrInvalidShape = errors.New("invalid input shape")
)

// Layout is the memory order of the input tensor.
type Layout string

const (
	NCHW Layout = "NCHW"
	NHWC Layout = "NHWC"
)

type InputShape struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s InputShape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

type Prediction struct {
	ClassID     string  `json:"class_id"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Tensor is a single-image batch ready for a forward pass.
type Tensor struct {
	Shape  []int64
	Layout Layout
	Data   []float32
}

// Spatial returns the width and height encoded in Shape.
func (t *Tensor) Spatial() (w, h int) {
	if len(t.Shape) != 4 {
		return 0, 0
	}
	if t.Layout == NHWC {
		return int(t.Shape[2]), int(t.Shape[1])
	}
	return int(t.Shape[3]), int(t.Shape[2])
}

// Network is a loaded classifier. Run takes the flattened input tensor and returns one raw score
// per class, in the order of Labels.
type Network interface {
	Run(input []float32) ([]float32, error)
	Labels() *Labels
}

type LoadFunc func(ctx context.Context, spec Spec) (Network, error)
