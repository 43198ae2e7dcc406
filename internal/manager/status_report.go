package manager

import (
	"time"

	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// Ready reports whether any route can serve: a model is loaded or the
// remote credential is present.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	n := len(m.loaded)
	m.mu.RUnlock()
	return n > 0 || m.HasCredential()
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	es := m.handle.Status()
	eng := types.EngineStatus{
		State:      string(es.State),
		Backend:    es.Backend,
		InputSize:  es.InputSize,
		OutputSize: es.OutputSize,
	}
	if es.Reference != nil {
		spec := source.ToSpec(es.Reference)
		eng.Reference = &spec
		eng.LoadedAt = es.LoadedAt.Unix()
	}

	m.mu.RLock()
	if es.Reference != nil {
		eng.ModelID = m.resident
	}
	resp := types.StatusResponse{
		Engine:            eng,
		LoadedModels:      len(m.loaded),
		MemoryBudgetBytes: m.memoryBudget,
		LastError:         m.lastErr,
	}
	m.mu.RUnlock()

	now := time.Now()
	resp.RemoteAvailable = m.HasCredential()
	resp.IOInflight = int(m.ioPool.inflight.Load())
	resp.CPUInflight = int(m.cpuPool.inflight.Load())
	resp.ExecutionsTotal = m.executions.Load()
	resp.LoadsTotal = m.loads.Load()
	resp.UptimeSeconds = int64(now.Sub(m.startTime).Seconds())
	resp.ServerTimeUnix = now.Unix()
	return resp
}
