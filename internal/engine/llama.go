//go:build llama

package engine

import (
	"bytes"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"agentcore/internal/source"
)

// llamaBuilt reports whether this binary carries the real llama backend.
const llamaBuilt = true

type llamaBackend struct {
	opts Options
}

// NewLlamaBackend returns a backend that loads GGUF models with llama.cpp.
// Input bytes are the prompt text; output receives the completion text.
func NewLlamaBackend(opts Options) Backend {
	return &llamaBackend{opts: opts.withDefaults()}
}

func (b *llamaBackend) Name() string { return "llama" }

func (b *llamaBackend) Load(art *source.Artifact) (Engine, error) {
	if art == nil || strings.TrimSpace(art.Path) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(art.Path, llama.SetContext(b.opts.ContextSize))
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, opts: b.opts}, nil
}

type llamaEngine struct {
	model *llama.LLama
	opts  Options
}

func (e *llamaEngine) InputSize() int  { return e.opts.InputSize }
func (e *llamaEngine) OutputSize() int { return e.opts.OutputSize }

func (e *llamaEngine) Run(input, output []byte) (int, error) {
	if e.model == nil {
		return 0, errors.New("llama model not initialized")
	}
	prompt := string(bytes.TrimRight(input, "\x00"))
	text, err := e.model.Predict(prompt,
		llama.SetTokens(e.opts.MaxTokens),
		llama.SetThreads(e.opts.Threads),
		llama.SetTopK(llama.DefaultOptions.TopK),
		llama.SetTopP(llama.DefaultOptions.TopP),
		llama.SetTemperature(llama.DefaultOptions.Temperature),
	)
	if err != nil {
		return 0, err
	}
	return copy(output, text), nil
}

func (e *llamaEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}
