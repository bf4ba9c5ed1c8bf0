package zoo

import (
	"errors"
	"fmt"
)

// Registry is the ordered, read-only set of selectable profiles.
type Registry struct {
	profiles []*Profile
	byName   map[string]*Profile
}

func NewRegistry(profiles ...*Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.New("empty registry")
	}
	r := &Registry{
		profiles: make([]*Profile, 0, len(profiles)),
		byName:   make(map[string]*Profile, len(profiles)),
	}
	for _, p := range profiles {
		if err := p.spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[p.spec.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.spec.Name)
		}
		r.profiles = append(r.profiles, p)
		r.byName[p.spec.Name] = p
	}
	return r, nil
}

func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.spec.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (*Profile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) Default() *Profile {
	return r.profiles[0]
}

// Close releases every loaded network.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.profiles {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.spec.Name, err))
		}
	}
	return errors.Join(errs...)
}

const onnxZoo = "https://github.com/onnx/models/raw/main/validated/vision/classification/"

// StandardSpecs lists the bundled classifiers in display order. urls overrides the weights URL
// of a profile by name.
//
// ResNet50, VGG16, VGG19 and MobileNetV2 come from the ONNX model zoo, which ships the torchvision
// variants. InceptionV3 and Xception have no zoo export; they expect Keras models converted with
// tf2onnx, either configured through urls or placed in the model directory. No bundled profile
// uses ModeCaffe; it stays in Preprocessors for Keras ResNet50/VGG exports, which expect BGR
// mean-subtracted input, and is selected by giving such a spec Mode: ModeCaffe.
func StandardSpecs(urls map[string]string) []Spec {
	specs := []Spec{
		{
			Name:       "ResNet50",
			InputShape: InputShape{224, 224},
			Layout:     NCHW,
			Mode:       ModeTorch,
			Logits:     true,
			WeightsURL: onnxZoo + "resnet/model/resnet50-v2-7.onnx",
			DocURL:     "https://keras.io/applications/#resnet",
		},
		{
			Name:       "VGG16",
			InputShape: InputShape{224, 224},
			Layout:     NCHW,
			Mode:       ModeTorch,
			Logits:     true,
			WeightsURL: onnxZoo + "vgg/model/vgg16-7.onnx",
			DocURL:     "https://keras.io/applications/#vgg16",
		},
		{
			Name:       "VGG19",
			InputShape: InputShape{224, 224},
			Layout:     NCHW,
			Mode:       ModeTorch,
			Logits:     true,
			WeightsURL: onnxZoo + "vgg/model/vgg19-7.onnx",
			DocURL:     "https://keras.io/applications/#vgg19",
		},
		{
			Name:       "InceptionV3",
			InputShape: InputShape{299, 299},
			Layout:     NHWC,
			Mode:       ModeTF,
			DocURL:     "https://keras.io/applications/#inceptionv3",
		},
		{
			Name:       "Xception",
			InputShape: InputShape{299, 299},
			Layout:     NHWC,
			Mode:       ModeTF,
			DocURL:     "https://keras.io/applications/#xception",
		},
		{
			Name:       "MobileNetV2",
			InputShape: InputShape{224, 224},
			Layout:     NCHW,
			Mode:       ModeTorch,
			Logits:     true,
			WeightsURL: onnxZoo + "mobilenet/model/mobilenetv2-7.onnx",
			DocURL:     "https://keras.io/applications/#mobilenet",
		},
	}
	for i := range specs {
		if u, ok := urls[specs[i].Name]; ok {
			specs[i].WeightsURL = u
		}
	}
	return specs
}

// NewStandardRegistry builds the bundled profiles around a single loader.
func NewStandardRegistry(load LoadFunc, urls map[string]string, opts ...Option) (*Registry, error) {
	specs := StandardSpecs(urls)
	profiles := make([]*Profile, len(specs))
	for i, s := range specs {
		profiles[i] = NewProfile(s, load, opts...)
	}
	return NewRegistry(profiles...)
}
