package zoo

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

const DefaultTopK = 5

// Spec is the static description of a classifier.
type Spec struct {
	Name       string     `json:"name"`
	InputShape InputShape `json:"input_shape"`
	Layout     Layout     `json:"layout"`
	Mode       Mode       `json:"mode"`

	// Logits is set when the network outputs raw scores rather than probabilities.
	Logits     bool   `json:"logits"`
	WeightsURL string `json:"weights_url,omitempty"`
	DocURL     string `json:"doc_url"`
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("profile without name")
	}
	if s.InputShape.Width <= 0 || s.InputShape.Height <= 0 {
		return fmt.Errorf("%s: %w %s", s.Name, ErrInvalidShape, s.InputShape)
	}
	if s.Layout != NCHW && s.Layout != NHWC {
		return fmt.Errorf("%s: unknown layout %q", s.Name, s.Layout)
	}
	if _, ok := Preprocessors[s.Mode]; !ok {
		return fmt.Errorf("%s: %w %q", s.Name, ErrUnknownMode, s.Mode)
	}
	return nil
}

// Profile pairs a Spec with its lazily loaded network. The spec never changes after NewProfile;
// the network is loaded on first use and kept for the life of the process.
type Profile struct {
	spec Spec
	topK int
	load LoadFunc

	mu  sync.Mutex
	net Network

	// loaded mirrors net != nil so readers never wait on a load in progress.
	loaded atomic.Bool
}

type Option func(*Profile)

func WithTopK(k int) Option {
	return func(p *Profile) {
		if k > 0 {
			p.topK = k
		}
	}
}

func NewProfile(spec Spec, load LoadFunc, opts ...Option) *Profile {
	p := &Profile{spec: spec, topK: DefaultTopK, load: load}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Profile) Spec() Spec {
	return p.spec
}

func (p *Profile) Name() string {
	return p.spec.Name
}

func (p *Profile) InputShape() InputShape {
	return p.spec.InputShape
}

// Network returns the profile's network, loading it on the first call. Callers racing on the
// first call wait for a single load. A failed load is not remembered.
func (p *Profile) Network(ctx context.Context) (Network, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.net != nil {
		return p.net, nil
	}
	if p.load == nil {
		return nil, ErrNoLoader
	}
	n, err := p.load(ctx, p.spec)
	if err != nil {
		return nil, err
	}
	p.net = n
	p.loaded.Store(true)
	return n, nil
}

// Loaded reports whether the network has been loaded.
func (p *Profile) Loaded() bool {
	return p.loaded.Load()
}

// Close releases the network if it holds native resources.
func (p *Profile) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.net.(io.Closer); ok {
		p.net = nil
		p.loaded.Store(false)
		return c.Close()
	}
	return nil
}

// Prepare resizes img to the profile's input shape and normalizes it into a batch of one.
func (p *Profile) Prepare(img image.Image) (*Tensor, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	pre, ok := Preprocessors[p.spec.Mode]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, p.spec.Mode)
	}
	w, h := p.spec.InputShape.Width, p.spec.InputShape.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w %s", ErrInvalidShape, p.spec.InputShape)
	}

	// alpha is dropped, like converting to RGB before resizing
	resized := imaging.Resize(img, w, h, imaging.Linear)

	t := &Tensor{Layout: p.spec.Layout, Data: make([]float32, 3*w*h)}
	if t.Layout == NHWC {
		t.Shape = []int64{1, int64(h), int64(w), 3}
	} else {
		t.Shape = []int64{1, 3, int64(h), int64(w)}
	}

	plane := w * h
	for y := 0; y < h; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			ch := pre([3]float32{float32(px[0]), float32(px[1]), float32(px[2])})
			i := y*w + x
			if t.Layout == NHWC {
				copy(t.Data[i*3:i*3+3], ch[:])
			} else {
				t.Data[i] = ch[0]
				t.Data[plane+i] = ch[1]
				t.Data[2*plane+i] = ch[2]
			}
		}
	}
	return t, nil
}

// Classify runs img through the network and returns the top predictions, most probable first.
// report, when not nil, is told about each step.
func (p *Profile) Classify(ctx context.Context, img image.Image, report Reporter) ([]Prediction, error) {
	emit := func(e Event) {
		if report != nil {
			report(e)
		}
	}
	fail := func(stage Stage, err error) ([]Prediction, error) {
		emit(Event{Kind: Cleared})
		return nil, &StageError{Stage: stage, Err: err}
	}

	emit(Event{Kind: Started})

	emit(progressEvent(StageLoading,
		fmt.Sprintf("Loading %s model ... (This might take from seconds to several minutes)", p.spec.Name)))
	net, err := p.Network(ctx)
	if err != nil {
		return fail(StageLoading, err)
	}

	emit(progressEvent(StagePreprocessing, "Processing image ..."))
	t, err := p.Prepare(img)
	if err != nil {
		return fail(StagePreprocessing, err)
	}

	emit(progressEvent(StageInference, fmt.Sprintf("Classifying image with '%s' ...", p.spec.Name)))
	if err := ctx.Err(); err != nil {
		return fail(StageInference, err)
	}
	scores, err := net.Run(t.Data)
	if err != nil {
		return fail(StageInference, err)
	}

	preds, err := Decode(scores, net.Labels(), p.topK, p.spec.Logits)
	if err != nil {
		return fail(StageDecoding, err)
	}

	emit(Event{Kind: Cleared})
	emit(Event{Kind: Completed})
	return preds, nil
}
