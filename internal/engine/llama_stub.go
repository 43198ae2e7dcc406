//go:build !llama

package engine

import (
	"agentcore/internal/faults"
	"agentcore/internal/source"
)

// llamaBuilt reports whether this binary carries the real llama backend.
const llamaBuilt = false

// llamaBackend is the no-CGO stand-in used when the 'llama' tag is not set.
type llamaBackend struct {
	opts Options
}

func NewLlamaBackend(opts Options) Backend {
	return &llamaBackend{opts: opts.withDefaults()}
}

func (b *llamaBackend) Name() string { return "llama" }

func (b *llamaBackend) Load(*source.Artifact) (Engine, error) {
	return nil, faults.DependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
