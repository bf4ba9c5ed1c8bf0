package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/krau/konaclassify/present"
	"github.com/krau/konaclassify/zoo"
)

const maxUploadSize = 32 << 20

var ErrTooLarge = errors.New("upload too large")

type profileView struct {
	Name       string         `json:"name"`
	InputShape zoo.InputShape `json:"input_shape"`
	DocURL     string         `json:"doc_url"`
	Loaded     bool           `json:"loaded"`
}

func views() []profileView {
	ps := registry.Profiles()
	out := make([]profileView, len(ps))
	for i, p := range ps {
		spec := p.Spec()
		out[i] = profileView{Name: spec.Name, InputShape: spec.InputShape, DocURL: spec.DocURL, Loaded: p.Loaded()}
	}
	return out
}

func joinTypes(types []string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = "." + t
	}
	return strings.Join(parts, ",")
}

func IndexHandler(c *gin.Context) {
	selected := registry.Default()
	if name := c.Query("model"); name != "" {
		if p, ok := registry.Lookup(name); ok {
			selected = p
		}
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Models":     views(),
		"Selected":   selected.Spec(),
		"Resources":  present.ResourceLinks(selected.Spec()),
		"ImageTypes": imageTypes,
	})
}

// statusOf maps a session or classification error to an HTTP status.
func statusOf(err error) int {
	var se *zoo.StageError
	switch {
	case errors.As(err, &se):
		return http.StatusInternalServerError
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrNoModel),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrDecode),
		errors.Is(err, zoo.ErrNoImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Classification failed",
			slog.String("request_id", c.GetString("request_id")),
			slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// formSession builds a session from the multipart form: the model field, then the file field.
func formSession(c *gin.Context) (*Session, error) {
	s := NewSession(registry, imageTypes)

	name := c.PostForm("model")
	if name == "" {
		name = registry.Default().Name()
	}
	if err := s.SelectModel(name); err != nil {
		return nil, err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, zoo.ErrNoImage
	}
	if fileHeader.Size > maxUploadSize {
		return nil, ErrTooLarge
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, zoo.ErrNoImage
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	if err := s.Upload(fileHeader.Filename, data); err != nil {
		return nil, err
	}
	return s, nil
}

func PredictHandler(c *gin.Context) {
	s, err := formSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.Classify(c.Request.Context(), nil)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClassifyHandler streams progress as server-sent events, then the result or the error.
func ClassifyHandler(c *gin.Context) {
	s, err := formSession(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	result, err := s.Classify(c.Request.Context(), func(e zoo.Event) {
		switch e.Kind {
		case zoo.Progress:
			c.SSEvent("progress", e)
		case zoo.Cleared:
			c.SSEvent("clear", e)
		default:
			return
		}
		c.Writer.Flush()
	})
	if err != nil {
		slog.Error("Classification failed",
			slog.String("request_id", c.GetString("request_id")),
			slog.String("error", err.Error()))
		c.SSEvent("error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("result", result)
	c.Writer.Flush()
}

func ModelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, views())
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
