package config

import (
	"log/slog"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 5, c.TopK)
	assert.Equal(t, []string{"png", "jpg"}, c.ImageTypes)
	assert.Equal(t, "models", c.ModelDir)
}

func TestUnmarshalOverridesDefaults(t *testing.T) {
	c := Default()
	data := []byte(`
port = "9000"
top_k = 3
image_types = ["png", "jpg", "webp"]

[model_urls]
Xception = "https://example.com/xception.onnx"
`)
	require.NoError(t, toml.Unmarshal(data, &c))
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, 3, c.TopK)
	assert.Equal(t, "0.0.0.0", c.Host)
	assert.Equal(t, "https://example.com/xception.onnx", c.ModelURLs["Xception"])
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warning"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{}.SlogLevel())
}
