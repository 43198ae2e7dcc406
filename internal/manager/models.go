package manager

import (
	"context"
	"sort"

	"agentcore/internal/faults"
	"agentcore/pkg/types"
)

// LoadedModel implements router.LoadedSet.
func (m *Manager) LoadedModel(id string) (types.LocalModelInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.loaded[id]
	return info, ok
}

// LoadedModels returns the loaded set ordered by id.
func (m *Manager) LoadedModels() []types.LocalModelInfo {
	m.mu.RLock()
	out := make([]types.LocalModelInfo, 0, len(m.loaded))
	for _, info := range m.loaded {
		out = append(out, info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// ClearModel removes id from the loaded set and releases the engine when it
// was serving id.
func (m *Manager) ClearModel(id string) error {
	unlock, _ := m.lockEngine(context.Background())
	defer unlock()

	m.mu.Lock()
	if _, ok := m.loaded[id]; !ok {
		m.mu.Unlock()
		return faults.Newf(faults.KindArtifactNotFound, "clear", "model %q is not loaded", id)
	}
	delete(m.loaded, id)
	wasResident := m.resident == id
	if wasResident {
		m.resident = ""
	}
	m.mu.Unlock()

	if wasResident {
		if err := m.handle.Release(); err != nil {
			m.log.Warn().Err(err).Str("model", id).Msg("releasing engine")
		}
	}
	m.log.Info().Str("model", id).Bool("released", wasResident).Msg("model cleared")
	m.publish(Event{Name: EventClear, ModelID: id, Fields: map[string]any{"released": wasResident}})
	return nil
}

// ImportedModels lists the catalog. Without a catalog it is empty.
func (m *Manager) ImportedModels(ctx context.Context) ([]types.LocalModelInfo, error) {
	if m.catalog == nil {
		return nil, nil
	}
	return m.catalog.List(ctx)
}
