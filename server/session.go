package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/gen2brain/avif"
	"github.com/gabriel-vasile/mimetype"
	"github.com/krau/konaclassify/present"
	"github.com/krau/konaclassify/zoo"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrNoModel         = errors.New("no model selected")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrDecode          = errors.New("cannot decode image")
	ErrBusy            = errors.New("classification in progress")
)

type State int

const (
	Idle State = iota
	ModelSelected
	ImageUploaded
	Classifying
	ResultsShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ModelSelected:
		return "model-selected"
	case ImageUploaded:
		return "image-uploaded"
	case Classifying:
		return "classifying"
	case ResultsShown:
		return "results-shown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Result struct {
	Model       string           `json:"model"`
	Predictions []zoo.Prediction `json:"predictions"`
	Summary     string           `json:"summary"`
	Chart       []present.Row    `json:"chart"`
}

// Session drives one user's pick-upload-classify flow. It is not safe for concurrent use.
type Session struct {
	registry   *zoo.Registry
	imageTypes []string

	state   State
	profile *zoo.Profile
	image   image.Image
	result  *Result
}

func NewSession(registry *zoo.Registry, imageTypes []string) *Session {
	return &Session{registry: registry, imageTypes: imageTypes}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Profile() *zoo.Profile {
	return s.profile
}

func (s *Session) Result() *Result {
	return s.result
}

// SelectModel picks a profile. An image already uploaded is kept, so picking another model after
// seeing results goes back to ImageUploaded.
func (s *Session) SelectModel(name string) error {
	if s.state == Classifying {
		return ErrBusy
	}
	p, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	s.profile = p
	s.result = nil
	if s.image != nil {
		s.state = ImageUploaded
	} else {
		s.state = ModelSelected
	}
	return nil
}

// normalizeType maps a file extension or sniffed extension to the configured spelling.
func normalizeType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func (s *Session) accepts(ext string) bool {
	return slices.Contains(s.imageTypes, normalizeType(ext))
}

// Upload validates and decodes an image file. The file name's extension and the sniffed content
// type must both be among the accepted image types.
func (s *Session) Upload(filename string, data []byte) error {
	switch s.state {
	case Idle:
		return ErrNoModel
	case Classifying:
		return ErrBusy
	}
	if len(data) == 0 {
		return zoo.ErrNoImage
	}
	if ext := filepath.Ext(filename); !s.accepts(ext) {
		return fmt.Errorf("%w: %q, accepted: %s", ErrUnsupportedType, ext, strings.Join(s.imageTypes, ", "))
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") || !s.accepts(mt.Extension()) {
		return fmt.Errorf("%w: content is %s", ErrUnsupportedType, mt.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	s.image = img
	s.result = nil
	s.state = ImageUploaded
	return nil
}

func (s *Session) Image() image.Image {
	return s.image
}

// Classify runs the selected profile on the uploaded image. On failure the session goes back to
// ImageUploaded so the user can try again.
func (s *Session) Classify(ctx context.Context, report zoo.Reporter) (*Result, error) {
	switch s.state {
	case Idle:
		return nil, ErrNoModel
	case ModelSelected:
		return nil, zoo.ErrNoImage
	case Classifying:
		return nil, ErrBusy
	}

	s.state = Classifying
	preds, err := s.profile.Classify(ctx, s.image, report)
	if err != nil {
		s.state = ImageUploaded
		return nil, err
	}
	summary, err := present.Summary(preds)
	if err != nil {
		s.state = ImageUploaded
		return nil, err
	}

	s.result = &Result{
		Model:       s.profile.Name(),
		Predictions: preds,
		Summary:     summary,
		Chart:       present.ChartData(preds),
	}
	s.state = ResultsShown
	return s.result, nil
}
