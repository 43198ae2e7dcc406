// Package engine owns the single resident inference engine.
//
// A Handle holds at most one loaded Engine. Loading builds the new engine
// before the old one is released, so a failed load never leaves the handle
// worse off than before. One mutex serializes load, run and release.
//
// Backends:
//
//   - onnx: ONNX Runtime via github.com/yalue/onnxruntime_go, enabled with
//     `-tags=onnx`. The session is built from the mapped artifact bytes.
//   - llama: llama.cpp via github.com/go-skynet/go-llama.cpp, enabled with
//     `-tags=llama`. The model is loaded from the artifact file path.
//
// Without the tag, each backend compiles to a stub whose Load reports
// faults.KindDependencyUnavailable.
package engine

import (
	"fmt"

	"agentcore/internal/source"
)

// Engine is one loaded model. Run performs a single synchronous forward pass
// from input into output and returns the number of output bytes written.
type Engine interface {
	// InputSize is the input capacity in bytes; 0 means unbounded.
	InputSize() int
	// OutputSize is the output capacity in bytes; 0 means the caller's buffer length.
	OutputSize() int
	Run(input, output []byte) (int, error)
	Close() error
}

// Backend constructs engines from resolved artifacts.
type Backend interface {
	Name() string
	Load(art *source.Artifact) (Engine, error)
}

// Options configures the built-in backends. Zero values select defaults.
type Options struct {
	// SharedLibraryPath points at libonnxruntime when it is not on the loader path.
	SharedLibraryPath string
	InputName         string
	OutputName        string
	InputSize         int
	OutputSize        int

	ContextSize int
	Threads     int
	MaxTokens   int
}

const (
	defaultOutputSize  = 256
	defaultInputSize   = 4096
	defaultContextSize = 2048
	defaultMaxTokens   = 256
)

func (o Options) withDefaults() Options {
	if o.InputName == "" {
		o.InputName = "input"
	}
	if o.OutputName == "" {
		o.OutputName = "output"
	}
	if o.InputSize <= 0 {
		o.InputSize = defaultInputSize
	}
	if o.OutputSize <= 0 {
		o.OutputSize = defaultOutputSize
	}
	if o.ContextSize <= 0 {
		o.ContextSize = defaultContextSize
	}
	if o.Threads <= 0 {
		o.Threads = 4
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

// NewBackend returns the named backend ("onnx" or "llama").
func NewBackend(name string, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch name {
	case "onnx", "":
		return NewONNXBackend(opts), nil
	case "llama":
		return NewLlamaBackend(opts), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", name)
	}
}
