package zoo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkIsMemoized(t *testing.T) {
	var calls atomic.Int32
	p := NewProfile(testSpec("ResNet50"), countingLoader(&stubNetwork{labels: catDogLabels()}, &calls))

	first, err := p.Network(context.Background())
	require.NoError(t, err)
	second, err := p.Network(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, p.Loaded())
}

func TestNetworkConcurrentFirstUseLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	p := NewProfile(testSpec("ResNet50"), countingLoader(&stubNetwork{labels: catDogLabels()}, &calls))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Network(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestNetworkFailureIsNotMemoized(t *testing.T) {
	fail := true
	net := &stubNetwork{labels: catDogLabels()}
	p := NewProfile(testSpec("ResNet50"), func(ctx context.Context, spec Spec) (Network, error) {
		if fail {
			return nil, errors.New("weights unavailable")
		}
		return net, nil
	})

	_, err := p.Network(context.Background())
	require.Error(t, err)
	assert.False(t, p.Loaded())

	fail = false
	got, err := p.Network(context.Background())
	require.NoError(t, err)
	assert.Same(t, net, got)
}

func TestNetworkWithoutLoader(t *testing.T) {
	_, err := NewProfile(testSpec("x"), nil).Network(context.Background())
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestPrepareResizesToInputShape(t *testing.T) {
	cases := []struct {
		spec Spec
		w, h int
	}{
		{testSpec("ResNet50"), 640, 480},
		{testSpec("ResNet50"), 17, 900},
		{Spec{Name: "InceptionV3", InputShape: InputShape{299, 299}, Layout: NHWC, Mode: ModeTF}, 100, 100},
		{Spec{Name: "Wide", InputShape: InputShape{320, 160}, Layout: NHWC, Mode: ModeCaffe}, 50, 70},
	}
	for _, tc := range cases {
		t.Run(tc.spec.Name, func(t *testing.T) {
			p := NewProfile(tc.spec, nil)
			tensor, err := p.Prepare(blackImage(tc.w, tc.h))
			require.NoError(t, err)

			w, h := tensor.Spatial()
			assert.Equal(t, tc.spec.InputShape.Width, w)
			assert.Equal(t, tc.spec.InputShape.Height, h)
			assert.Equal(t, int64(1), tensor.Shape[0])
			assert.Len(t, tensor.Data, 3*w*h)
		})
	}
}

func TestPrepareLayout(t *testing.T) {
	nchw, err := NewProfile(testSpec("a"), nil).Prepare(blackImage(8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 224, 224}, nchw.Shape)

	spec := testSpec("b")
	spec.Layout = NHWC
	nhwc, err := NewProfile(spec, nil).Prepare(blackImage(8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 224, 224, 3}, nhwc.Shape)
}

func TestPrepareNormalizesBlackImage(t *testing.T) {
	spec := testSpec("tf")
	spec.Mode = ModeTF
	tensor, err := NewProfile(spec, nil).Prepare(blackImage(30, 30))
	require.NoError(t, err)
	for _, v := range tensor.Data {
		require.InDelta(t, -1.0, v, 1e-6)
	}
}

func TestPrepareNilImage(t *testing.T) {
	_, err := NewProfile(testSpec("a"), nil).Prepare(nil)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestClassifyRanksAndReports(t *testing.T) {
	net := &stubNetwork{scores: []float32{0.05, 0.87, 0.08}, labels: catDogLabels()}
	var calls atomic.Int32
	p := NewProfile(testSpec("ResNet50"), countingLoader(net, &calls))

	var events []Event
	preds, err := p.Classify(context.Background(), blackImage(500, 375), func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)

	require.Len(t, preds, 3)
	assert.Equal(t, "dog", preds[0].Label)
	for i := 1; i < len(preds); i++ {
		assert.GreaterOrEqual(t, preds[i-1].Probability, preds[i].Probability)
	}

	kinds := make([]EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []EventKind{Started, Progress, Progress, Progress, Cleared, Completed}, kinds)
	assert.Equal(t, 10, events[1].Percent)
	assert.Equal(t, StageLoading, events[1].Stage)
	assert.Contains(t, events[1].Message, "ResNet50")
	assert.Equal(t, 67, events[2].Percent)
	assert.Equal(t, 85, events[3].Percent)

	require.Len(t, net.inputs, 1)
	assert.Len(t, net.inputs[0], 3*224*224)
}

func TestClassifyTopKDefaultsToFive(t *testing.T) {
	ids := make([]string, 10)
	names := make([]string, 10)
	scores := make([]float32, 10)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		names[i] = ids[i]
		scores[i] = float32(i)
	}
	labels, err := NewLabels(ids, names)
	require.NoError(t, err)

	spec := testSpec("ResNet50")
	spec.Logits = true
	var calls atomic.Int32
	p := NewProfile(spec, countingLoader(&stubNetwork{scores: scores, labels: labels}, &calls))

	preds, err := p.Classify(context.Background(), blackImage(10, 10), nil)
	require.NoError(t, err)
	require.Len(t, preds, 5)
	assert.Equal(t, "j", preds[0].Label)

	var total float32
	for _, pr := range preds {
		total += pr.Probability
	}
	assert.LessOrEqual(t, total, float32(1.0001))
}

func TestClassifyLoadFailure(t *testing.T) {
	p := NewProfile(testSpec("ResNet50"), func(ctx context.Context, spec Spec) (Network, error) {
		return nil, errors.New("no weights")
	})

	var last Event
	_, err := p.Classify(context.Background(), blackImage(10, 10), func(e Event) { last = e })

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLoading, se.Stage)
	assert.Equal(t, Cleared, last.Kind)
}

func TestClassifyInferenceFailure(t *testing.T) {
	var calls atomic.Int32
	net := &stubNetwork{labels: catDogLabels(), err: errors.New("shape mismatch")}
	p := NewProfile(testSpec("ResNet50"), countingLoader(net, &calls))

	_, err := p.Classify(context.Background(), blackImage(10, 10), nil)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageInference, se.Stage)
}

func TestClassifyDecodeFailure(t *testing.T) {
	var calls atomic.Int32
	net := &stubNetwork{labels: catDogLabels(), scores: []float32{1}}
	p := NewProfile(testSpec("ResNet50"), countingLoader(net, &calls))

	_, err := p.Classify(context.Background(), blackImage(10, 10), nil)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDecoding, se.Stage)
}

func TestLoadedDoesNotWaitForLoad(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	p := NewProfile(testSpec("ResNet50"), func(ctx context.Context, spec Spec) (Network, error) {
		close(started)
		<-release
		return &stubNetwork{labels: catDogLabels()}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.Network(context.Background())
		assert.NoError(t, err)
	}()
	<-started

	answered := make(chan bool)
	go func() { answered <- p.Loaded() }()
	select {
	case loaded := <-answered:
		assert.False(t, loaded)
	case <-time.After(2 * time.Second):
		t.Fatal("Loaded blocked while the network was loading")
	}

	close(release)
	<-done
	assert.True(t, p.Loaded())
}
