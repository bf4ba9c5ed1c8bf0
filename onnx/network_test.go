package onnx

import (
	"testing"

	"github.com/krau/konaclassify/zoo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestInputShape(t *testing.T) {
	nchw := zoo.Spec{InputShape: zoo.InputShape{Width: 224, Height: 224}, Layout: zoo.NCHW}
	assert.Equal(t, ort.NewShape(1, 3, 224, 224), inputShape(nchw))

	nhwc := zoo.Spec{InputShape: zoo.InputShape{Width: 320, Height: 299}, Layout: zoo.NHWC}
	assert.Equal(t, ort.NewShape(1, 299, 320, 3), inputShape(nhwc))
}

func TestCheckDims(t *testing.T) {
	want := ort.NewShape(1, 3, 224, 224)
	assert.NoError(t, checkDims(ort.NewShape(-1, 3, 224, 224), want))
	assert.NoError(t, checkDims(ort.NewShape(1, 3, -1, -1), want))
	assert.Error(t, checkDims(ort.NewShape(1, 224, 224, 3), want))
	assert.Error(t, checkDims(ort.NewShape(1, 3, 224), want))
}

func TestOutputShape(t *testing.T) {
	s, err := outputShape(ort.NewShape(-1, 1000), 1000)
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(1, 1000), s)

	s, err = outputShape(ort.NewShape(1, -1), 1000)
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(1, 1000), s)

	s, err = outputShape(ort.NewShape(1, 1000, 1, 1), 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), s.FlattenedSize())

	_, err = outputShape(ort.NewShape(1, 1001), 1000)
	assert.Error(t, err)
}
