// Package onnx runs the zoo's classifiers on ONNX Runtime.
package onnx

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/krau/konaclassify/config"
	ort "github.com/yalue/onnxruntime_go"
)

const libEnv = "ONNXRUNTIME_LIB"

var pathOnce sync.Once
var libPath string

func LibPath() string {
	pathOnce.Do(func() {
		libPath = resolveLibPath(config.C().Libonnx, os.Getenv(libEnv), runtime.GOOS, fileExists)
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func libCandidates(goos string) []string {
	switch goos {
	case "linux":
		return []string{
			filepath.Join("onnxlibs", "libonnxruntime.so"),
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
		}
	case "darwin":
		return []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
	case "windows":
		return []string{"onnxruntime.dll"}
	default:
		return nil
	}
}

// resolveLibPath prefers the configured path, then the environment, then the first OS default
// found on disk. When nothing is found it returns the first OS default and lets the runtime
// report the failure.
func resolveLibPath(configured, env, goos string, exists func(string) bool) string {
	if configured != "" {
		return configured
	}
	if env != "" {
		return env
	}
	candidates := libCandidates(goos)
	for _, c := range candidates {
		if exists(c) {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// Init loads the shared library and creates the runtime environment.
func Init() error {
	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(LibPath())
	return ort.InitializeEnvironment()
}

func Destroy() {
	if ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
		}
	}
}
