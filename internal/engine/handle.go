package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"agentcore/internal/faults"
	"agentcore/internal/source"
)

// State is the handle lifecycle state.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
)

// Status is a read-only view of the handle.
type Status struct {
	State      State
	Reference  source.Reference
	Backend    string
	LoadedAt   time.Time
	InputSize  int
	OutputSize int
}

// Handle owns at most one Engine.
type Handle struct {
	backend Backend
	log     zerolog.Logger

	mu       sync.Mutex
	eng      Engine
	ref      source.Reference
	loadedAt time.Time
}

// NewHandle returns an unloaded handle that builds engines with b.
func NewHandle(b Backend, log zerolog.Logger) *Handle {
	return &Handle{backend: b, log: log.With().Str("component", "engine").Logger()}
}

// Load replaces the resident engine with one built from art. The previous
// engine is closed only after the new one is constructed; on failure it
// stays resident. The artifact may be closed once Load returns.
func (h *Handle) Load(ctx context.Context, art *source.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	eng, err := h.backend.Load(art)
	if err != nil {
		loadsTotal.WithLabelValues(h.backend.Name(), "error").Inc()
		h.log.Warn().Err(err).Str("ref", refString(art.Ref)).Msg("engine load failed")
		if faults.KindOf(err) != faults.KindInternal {
			return err
		}
		return faults.EngineLoadFailure(err)
	}
	// Construction is not interruptible; honor a cancellation that arrived
	// meanwhile by discarding the new engine and keeping the old one.
	if err := ctx.Err(); err != nil {
		_ = eng.Close()
		loadsTotal.WithLabelValues(h.backend.Name(), "cancelled").Inc()
		return err
	}

	old := h.eng
	h.eng, h.ref, h.loadedAt = eng, art.Ref, time.Now()
	if old != nil {
		if err := old.Close(); err != nil {
			h.log.Warn().Err(err).Msg("closing previous engine")
		}
	}
	residentEngines.Set(1)
	loadsTotal.WithLabelValues(h.backend.Name(), "ok").Inc()
	loadDuration.Observe(time.Since(start).Seconds())
	h.log.Info().Str("ref", refString(art.Ref)).Int64("bytes", art.Size()).Dur("dur", time.Since(start)).Msg("engine loaded")
	return nil
}

// Run executes one forward pass. On an unloaded handle it writes nothing and
// returns (0, nil); callers that need to tell the difference use RunChecked.
func (h *Handle) Run(input, output []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return 0, nil
	}
	return h.runLocked(input, output)
}

// RunChecked is Run that reports faults.ErrEngineNotLoaded on an unloaded handle.
func (h *Handle) RunChecked(input, output []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return 0, faults.ErrEngineNotLoaded
	}
	return h.runLocked(input, output)
}

// RunFor is RunChecked restricted to the engine built from ref. A handle
// holding a different reference reports faults.ErrEngineNotLoaded.
func (h *Handle) RunFor(ref source.Reference, input, output []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil || h.ref != ref {
		return 0, faults.ErrEngineNotLoaded
	}
	return h.runLocked(input, output)
}

func (h *Handle) runLocked(input, output []byte) (int, error) {
	if n := h.eng.InputSize(); n > 0 && len(input) > n {
		input = input[:n]
	}
	if n := h.eng.OutputSize(); n > 0 && len(output) > n {
		output = output[:n]
	}
	start := time.Now()
	n, err := h.eng.Run(input, output)
	runDuration.Observe(time.Since(start).Seconds())
	return n, err
}

// Release closes the resident engine, if any.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return nil
	}
	err := h.eng.Close()
	h.log.Info().Str("ref", refString(h.ref)).Msg("engine released")
	h.eng, h.ref, h.loadedAt = nil, nil, time.Time{}
	residentEngines.Set(0)
	return err
}

// Current returns the reference of the resident engine.
func (h *Handle) Current() (source.Reference, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ref, h.eng != nil
}

// State reports whether an engine is resident.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return StateUnloaded
	}
	return StateLoaded
}

// OutputSize returns the resident engine's output capacity, or 0 when unloaded.
func (h *Handle) OutputSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil {
		return 0
	}
	return h.eng.OutputSize()
}

// Status snapshots the handle.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Status{State: StateUnloaded, Backend: h.backend.Name()}
	if h.eng != nil {
		st.State = StateLoaded
		st.Reference = h.ref
		st.LoadedAt = h.loadedAt
		st.InputSize = h.eng.InputSize()
		st.OutputSize = h.eng.OutputSize()
	}
	return st
}

func refString(r source.Reference) string {
	if r == nil {
		return ""
	}
	return r.String()
}
