package zoo

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

type stubNetwork struct {
	scores []float32
	labels *Labels
	err    error
	inputs [][]float32
}

func (n *stubNetwork) Run(input []float32) ([]float32, error) {
	n.inputs = append(n.inputs, input)
	if n.err != nil {
		return nil, n.err
	}
	return n.scores, nil
}

func (n *stubNetwork) Labels() *Labels {
	return n.labels
}

func catDogLabels() *Labels {
	l, _ := NewLabels([]string{"n01", "n02", "n03"}, []string{"cat", "dog", "fox"})
	return l
}

// countingLoader returns the same network every time and counts calls.
func countingLoader(net Network, calls *atomic.Int32) LoadFunc {
	return func(ctx context.Context, spec Spec) (Network, error) {
		calls.Add(1)
		return net, nil
	}
}

func blackImage(w, h int) image.Image {
	return imaging.New(w, h, color.Black)
}

func testSpec(name string) Spec {
	return Spec{
		Name:       name,
		InputShape: InputShape{224, 224},
		Layout:     NCHW,
		Mode:       ModeTorch,
		DocURL:     "https://example.com/" + name,
	}
}
