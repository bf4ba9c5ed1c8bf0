package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLibPath(t *testing.T) {
	none := func(string) bool { return false }

	assert.Equal(t, "/opt/ort.so", resolveLibPath("/opt/ort.so", "/env/ort.so", "linux", none))
	assert.Equal(t, "/env/ort.so", resolveLibPath("", "/env/ort.so", "linux", none))
	assert.Equal(t, "onnxlibs/libonnxruntime.so", resolveLibPath("", "", "linux", none))

	onlyUsrLib := func(p string) bool { return p == "/usr/lib/libonnxruntime.so" }
	assert.Equal(t, "/usr/lib/libonnxruntime.so", resolveLibPath("", "", "linux", onlyUsrLib))

	assert.Equal(t, "", resolveLibPath("", "", "plan9", none))
}
