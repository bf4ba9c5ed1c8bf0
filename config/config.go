package config

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Host     string `toml:"host" mapstructure:"host"`
	Port     string `toml:"port" mapstructure:"port"`
	Libonnx  string `toml:"libonnx" mapstructure:"libonnx"`
	LogLevel string `toml:"log_level" mapstructure:"log_level"`

	ModelDir     string            `toml:"model_dir" mapstructure:"model_dir"`
	ModelURLs    map[string]string `toml:"model_urls" mapstructure:"model_urls"`
	LabelsURL    string            `toml:"labels_url" mapstructure:"labels_url"`
	LabelsFile   string            `toml:"labels_file" mapstructure:"labels_file"`
	FetchRetries uint64            `toml:"fetch_retries" mapstructure:"fetch_retries"`

	TopK       int      `toml:"top_k" mapstructure:"top_k"`
	ImageTypes []string `toml:"image_types" mapstructure:"image_types"`
}

func Default() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         "8000",
		LogLevel:     "info",
		ModelDir:     "models",
		LabelsURL:    "https://storage.googleapis.com/download.tensorflow.org/data/imagenet_class_index.json",
		LabelsFile:   "imagenet_class_index.json",
		FetchRetries: 3,
		TopK:         5,
		ImageTypes:   []string{"png", "jpg"},
	}
}

var (
	cfg      = Default()
	path     = "config.toml"
	loadOnce sync.Once
)

// SetPath changes the file read by the first call to C. Later calls have no effect.
func SetPath(p string) {
	if p != "" {
		path = p
	}
}

func C() Config {
	loadOnce.Do(func() {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				panic(err)
			}
			if err := toml.Unmarshal(data, &cfg); err != nil {
				panic(err)
			}
		}
		if cfg.TopK <= 0 {
			cfg.TopK = 5
		}
		for i, t := range cfg.ImageTypes {
			cfg.ImageTypes[i] = strings.ToLower(strings.TrimPrefix(t, "."))
		}
	})
	return cfg
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
