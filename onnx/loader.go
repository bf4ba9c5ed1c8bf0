package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/krau/konaclassify/config"
	"github.com/krau/konaclassify/zoo"
)

// labelSource loads the ImageNet labels once, on the first successful call.
type labelSource struct {
	cfg     config.Config
	fetcher *zoo.Fetcher

	mu     sync.Mutex
	labels *zoo.Labels
}

func (s *labelSource) get(ctx context.Context) (*zoo.Labels, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.labels != nil {
		return s.labels, nil
	}
	path := filepath.Join(s.cfg.ModelDir, s.cfg.LabelsFile)
	if err := s.fetcher.Fetch(ctx, s.cfg.LabelsURL, path); err != nil {
		return nil, fmt.Errorf("failed to fetch labels: %w", err)
	}
	labels, err := zoo.LoadLabels(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	s.labels = labels
	return labels, nil
}

func WeightsPath(cfg config.Config, spec zoo.Spec) string {
	return filepath.Join(cfg.ModelDir, spec.Name+".onnx")
}

// Loader returns a zoo.LoadFunc that fetches a profile's weights into the model directory and
// opens them with ONNX Runtime.
func Loader(cfg config.Config, fetcher *zoo.Fetcher) zoo.LoadFunc {
	ls := &labelSource{cfg: cfg, fetcher: fetcher}
	return func(ctx context.Context, spec zoo.Spec) (zoo.Network, error) {
		labels, err := ls.get(ctx)
		if err != nil {
			return nil, err
		}
		path := WeightsPath(cfg, spec)
		if err := fetcher.Fetch(ctx, spec.WeightsURL, path); err != nil {
			return nil, fmt.Errorf("failed to fetch %s weights: %w", spec.Name, err)
		}
		slog.Info("Loading model", slog.String("model", spec.Name), slog.String("path", path))
		return Load(path, spec, labels)
	}
}

// NewRegistry builds the standard registry with ONNX-backed profiles.
func NewRegistry(cfg config.Config, fetcher *zoo.Fetcher) (*zoo.Registry, error) {
	return zoo.NewStandardRegistry(Loader(cfg, fetcher), cfg.ModelURLs, zoo.WithTopK(cfg.TopK))
}
