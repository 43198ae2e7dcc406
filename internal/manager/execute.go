package manager

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"agentcore/internal/faults"
	"agentcore/internal/router"
	"agentcore/pkg/types"
)

// ExecuteModel runs input against modelID on the route the router picks. It
// never panics: every failure, recovered panics included, is returned in
// Result.Err, and a response_ready event carries Result.Message.
func (m *Manager) ExecuteModel(ctx context.Context, modelID string, input Input, preferLocal bool) (res Result) {
	execID := uuid.NewString()
	route := "none"
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("model", modelID).Msg("execution panicked")
			res = Result{Err: faults.Newf(faults.KindInternal, "execute", "panic: %v", r)}
		}
		res.Output.ExecutionID = execID
		res.Output.ModelID = modelID
		if res.Output.Route == "" {
			res.Output.Route = route
		}
		m.executions.Add(1)
		executionsTotal.WithLabelValues(res.Output.Route, outcome(res.Err)).Inc()
		if res.Err != nil {
			m.setErr(res.Err)
			m.log.Warn().Err(res.Err).Str("model", modelID).Str("route", res.Output.Route).Msg("execution failed")
		}
		m.publish(Event{Name: EventResponseReady, ModelID: modelID, Fields: map[string]any{
			"execution_id": execID,
			"route":        res.Output.Route,
			"ok":           res.Err == nil,
			"text":         res.Message(),
		}})
	}()

	switch in := input.(type) {
	case TextInput, BinaryInput:
	case UnsupportedInput:
		return Result{Err: faults.UnsupportedInputType(in.Type)}
	default:
		return Result{Err: faults.UnsupportedInputType("unknown")}
	}

	decided := m.router.DecideRoute(modelID, preferLocal)
	route = decided.Kind()
	switch r := decided.(type) {
	case router.Local:
		out, err := m.executeLocal(ctx, r.Model, input)
		if err == nil {
			return Result{Output: out}
		}
		text, isText := input.(TextInput)
		if !m.fallbackRemote || !isText || ctx.Err() != nil {
			return Result{Err: err}
		}
		m.log.Info().Err(err).Str("model", modelID).Msg("local execution failed, falling back to remote")
		fallback := m.router.DecideRoute(modelID, false)
		route = fallback.Kind()
		out, err = m.executeRemote(ctx, modelID, text.Text, fallback)
		return Result{Output: out, Err: err}
	case router.Remote:
		text, isText := input.(TextInput)
		if !isText {
			return Result{Err: faults.UnsupportedInputType(input.Kind())}
		}
		out, err := m.executeRemote(ctx, modelID, text.Text, decided)
		return Result{Output: out, Err: err}
	}
	return Result{Err: faults.Newf(faults.KindInternal, "execute", "unknown route %T", decided)}
}

func (m *Manager) executeLocal(ctx context.Context, info types.LocalModelInfo, input Input) (Output, error) {
	var payload []byte
	switch in := input.(type) {
	case TextInput:
		if !info.Accepts(types.ModalityText) {
			return Output{}, faults.UnsupportedInputType("text")
		}
		payload = []byte(in.Text)
	case BinaryInput:
		if !info.Accepts(in.modality()) && !info.Accepts(types.ModalityBinary) {
			return Output{}, faults.UnsupportedInputType(string(in.modality()))
		}
		payload = in.Data
	}

	release, err := m.admit(ctx, m.cpuPool)
	if err != nil {
		return Output{}, err
	}
	defer release()
	unlock, err := m.lockEngine(ctx)
	if err != nil {
		return Output{}, err
	}
	defer unlock()

	resident, err := m.ensureResidentLocked(ctx, info)
	if err != nil {
		return Output{}, err
	}
	size := m.handle.OutputSize()
	if size <= 0 {
		size = m.outputBytes
	}
	buf := make([]byte, size)
	n, err := m.handle.RunFor(resident, payload, buf)
	if err != nil {
		return Output{}, err
	}
	out := buf[:n]
	local := router.Local{Model: info}
	return Output{
		Text:  string(bytes.TrimRight(out, "\x00")),
		Data:  out,
		Route: local.Kind(),
		Cost:  router.CostEstimate(local),
	}, nil
}

func (m *Manager) executeRemote(ctx context.Context, modelID, prompt string, route router.Route) (Output, error) {
	text, err := m.remote.Execute(ctx, modelID, prompt)
	if err != nil {
		return Output{Route: route.Kind()}, err
	}
	return Output{Text: text, Route: route.Kind(), Cost: router.CostEstimate(route)}, nil
}
