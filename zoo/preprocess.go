package zoo

// Mode names one of the normalizations Keras applies in imagenet_utils.preprocess_input.
type Mode string

const (
	ModeCaffe Mode = "caffe"
	ModeTF    Mode = "tf"
	ModeTorch Mode = "torch"
)

// PreprocessFunc maps one RGB pixel in the 0..255 range to the three input channels, in channel
// order.
type PreprocessFunc func(rgb [3]float32) [3]float32

var (
	caffeMean = [3]float32{103.939, 116.779, 123.68}
	torchMean = [3]float32{0.485, 0.456, 0.406}
	torchStd  = [3]float32{0.229, 0.224, 0.225}
)

var Preprocessors = map[Mode]PreprocessFunc{
	// BGR, zero-centered on the ImageNet mean, no scaling
	ModeCaffe: func(rgb [3]float32) [3]float32 {
		return [3]float32{
			rgb[2] - caffeMean[0],
			rgb[1] - caffeMean[1],
			rgb[0] - caffeMean[2],
		}
	},
	// scaled to [-1, 1]
	ModeTF: func(rgb [3]float32) [3]float32 {
		return [3]float32{
			rgb[0]/127.5 - 1,
			rgb[1]/127.5 - 1,
			rgb[2]/127.5 - 1,
		}
	},
	ModeTorch: func(rgb [3]float32) [3]float32 {
		var out [3]float32
		for c := 0; c < 3; c++ {
			out[c] = (rgb[c]/255 - torchMean[c]) / torchStd[c]
		}
		return out
	},
}
