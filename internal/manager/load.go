package manager

import (
	"context"
	"errors"

	"agentcore/internal/faults"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// LoadOptions carries optional metadata recorded with a loaded model.
type LoadOptions struct {
	Version     string
	InputTypes  []types.Modality
	OutputTypes []types.Modality
	// RequiredMemoryBytes defaults to the artifact size.
	RequiredMemoryBytes int64
	// Import also records the model in the catalog.
	Import bool
}

// LoadModel resolves ref, loads it into the engine and registers modelID in
// the loaded set.
func (m *Manager) LoadModel(ctx context.Context, modelID string, ref source.Reference) Result {
	return m.LoadModelWith(ctx, modelID, ref, LoadOptions{})
}

// LoadModelWith is LoadModel with metadata. Re-registering an id replaces its
// record. A failed load leaves the loaded set, the catalog and the resident
// engine as they were.
func (m *Manager) LoadModelWith(ctx context.Context, modelID string, ref source.Reference, opts LoadOptions) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: faults.Newf(faults.KindInternal, "load", "panic: %v", r)}
		}
		res.load = true
		modelLoadsTotal.WithLabelValues(outcome(res.Err)).Inc()
		if res.Err != nil {
			m.setErr(res.Err)
			m.log.Warn().Err(res.Err).Str("model", modelID).Msg("load failed")
			m.publish(Event{Name: EventLoadError, ModelID: modelID, Fields: map[string]any{"error": res.Err.Error()}})
		}
	}()
	if modelID == "" {
		return Result{Err: errors.New("model id is required")}
	}
	if ref == nil {
		return Result{Err: faults.Newf(faults.KindArtifactNotFound, "load", "no reference for %q", modelID)}
	}
	m.publish(Event{Name: EventLoadStart, ModelID: modelID, Fields: map[string]any{"reference": ref.String()}})

	info, err := m.loadEngine(ctx, modelID, ref, opts)
	if err != nil {
		return Result{Err: err}
	}
	m.loads.Add(1)
	m.log.Info().Str("model", modelID).Str("ref", ref.String()).Int64("bytes", info.SizeBytes).Msg("model loaded")
	m.publish(Event{Name: EventLoadDone, ModelID: modelID, Fields: map[string]any{"reference": ref.String(), "bytes": info.SizeBytes}})
	return Result{Output: Output{Text: "Loaded " + ref.DisplayName(), ModelID: modelID, Route: "local"}}
}

// loadEngine resolves ref under an io slot, then commits the catalog record,
// the engine and the loaded set under the engine lock.
func (m *Manager) loadEngine(ctx context.Context, modelID string, ref source.Reference, opts LoadOptions) (types.LocalModelInfo, error) {
	release, err := m.admit(ctx, m.ioPool)
	if err != nil {
		return types.LocalModelInfo{}, err
	}
	defer release()

	art, err := m.resolver.Resolve(ctx, ref)
	if err != nil {
		return types.LocalModelInfo{}, err
	}
	defer art.Close()

	info := newModelInfo(modelID, ref, art, opts)
	if m.memoryBudget > 0 && !info.IsCompatible(m.memoryBudget) {
		return info, faults.Newf(faults.KindEngineLoadFailure, "load",
			"model needs %d bytes of memory, budget is %d", info.RequiredMemoryBytes, m.memoryBudget)
	}

	unlock, err := m.lockEngine(ctx)
	if err != nil {
		return info, err
	}
	defer unlock()

	var undo func()
	if opts.Import && m.catalog != nil {
		if undo, err = m.importRecord(ctx, info); err != nil {
			return info, err
		}
	}
	if cur, ok := m.handle.Current(); !ok || cur != ref {
		if err := m.handle.Load(ctx, art); err != nil {
			if undo != nil {
				undo()
			}
			return info, err
		}
	}
	m.mu.Lock()
	m.loaded[modelID] = info
	m.resident = modelID
	m.mu.Unlock()
	return info, nil
}

// importRecord writes info to the catalog and returns a func restoring the
// previous record.
func (m *Manager) importRecord(ctx context.Context, info types.LocalModelInfo) (func(), error) {
	prev, existed, err := m.catalog.Get(ctx, info.ModelID)
	if err != nil {
		return nil, faults.IOFailure("import", err)
	}
	if err := m.catalog.Put(ctx, info); err != nil {
		return nil, faults.IOFailure("import", err)
	}
	return func() {
		var err error
		if existed {
			err = m.catalog.Put(context.Background(), prev)
		} else {
			_, err = m.catalog.Delete(context.Background(), info.ModelID)
		}
		if err != nil {
			m.log.Warn().Err(err).Str("model", info.ModelID).Msg("restoring catalog record")
		}
	}, nil
}

// lockEngine serializes every change of the resident engine with the runs
// that depend on it. The returned func releases the lock.
func (m *Manager) lockEngine(ctx context.Context) (func(), error) {
	if err := m.engineLock.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	return func() { m.engineLock.Release(1) }, nil
}

// ensureResidentLocked makes the engine hold info's artifact, reloading it
// from its reference when another model is resident. The caller holds the
// engine lock. Returns the resident reference.
func (m *Manager) ensureResidentLocked(ctx context.Context, info types.LocalModelInfo) (source.Reference, error) {
	if _, ok := m.LoadedModel(info.ModelID); !ok {
		return nil, faults.Newf(faults.KindEngineNotLoaded, "execute", "model %q was cleared", info.ModelID)
	}
	ref, err := referenceOf(info)
	if err != nil {
		return nil, err
	}
	if cur, ok := m.handle.Current(); ok && cur == ref {
		m.setResident(info.ModelID)
		return ref, nil
	}
	art, err := m.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer art.Close()
	if err := m.handle.Load(ctx, art); err != nil {
		return nil, err
	}
	m.setResident(info.ModelID)
	m.log.Info().Str("model", info.ModelID).Str("ref", ref.String()).Msg("model reloaded")
	return ref, nil
}

func (m *Manager) setResident(id string) {
	m.mu.Lock()
	m.resident = id
	m.mu.Unlock()
}

func newModelInfo(modelID string, ref source.Reference, art *source.Artifact, opts LoadOptions) types.LocalModelInfo {
	spec := source.ToSpec(ref)
	need := opts.RequiredMemoryBytes
	if need <= 0 {
		need = art.Size()
	}
	return types.LocalModelInfo{
		ModelID:             modelID,
		StoragePath:         art.Path,
		Version:             opts.Version,
		InputTypes:          opts.InputTypes,
		OutputTypes:         opts.OutputTypes,
		SizeBytes:           art.Size(),
		RequiredMemoryBytes: need,
		Reference:           &spec,
	}
}

// referenceOf recovers the reference a model was registered with. Catalog
// entries without one resolve by id.
func referenceOf(info types.LocalModelInfo) (source.Reference, error) {
	if info.Reference == nil {
		return source.LocalFile{Path: info.ModelID}, nil
	}
	return source.FromSpec(*info.Reference)
}
