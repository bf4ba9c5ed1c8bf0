// Package server is the web front end: the upload page, the progress stream and a JSON API.
package server

import (
	"embed"
	"html/template"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/krau/konaclassify/zoo"
)

//go:embed templates/*
var templateFS embed.FS

var (
	registry   *zoo.Registry
	imageTypes []string
)

// Init sets the registry and accepted image types the handlers serve.
func Init(reg *zoo.Registry, types []string) {
	registry = reg
	imageTypes = types
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)

		start := time.Now()
		c.Next()
		slog.Info("Request",
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"join": joinTypes,
	}).ParseFS(templateFS, "templates/*.html")))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/", IndexHandler)
	r.POST("/classify", ClassifyHandler)
	r.GET("/health", HealthHandler)

	api := r.Group("/api")
	api.GET("/models", ModelsHandler)
	api.POST("/predict", PredictHandler)
	return r
}
