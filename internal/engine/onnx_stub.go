//go:build !onnx

package engine

import (
	"agentcore/internal/faults"
	"agentcore/internal/source"
)

// onnxBackend refuses to load without the 'onnx' build tag so default builds
// stay free of the ONNX Runtime shared library.
type onnxBackend struct {
	opts Options
}

func NewONNXBackend(opts Options) Backend {
	return &onnxBackend{opts: opts.withDefaults()}
}

func (b *onnxBackend) Name() string { return "onnx" }

func (b *onnxBackend) Load(*source.Artifact) (Engine, error) {
	return nil, faults.DependencyUnavailable("onnx support not built (missing 'onnx' build tag)")
}
