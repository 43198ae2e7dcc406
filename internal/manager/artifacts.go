package manager

import (
	"context"
	"errors"

	"agentcore/internal/faults"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// AvailableArtifacts lists the local artifact store.
func (m *Manager) AvailableArtifacts() ([]types.ArtifactInfo, error) {
	st := m.resolver.Store()
	names, err := st.List()
	if err != nil {
		return nil, err
	}
	out := make([]types.ArtifactInfo, 0, len(names))
	for _, n := range names {
		out = append(out, types.ArtifactInfo{Name: n, SizeBytes: st.SizeOf(n)})
	}
	return out, nil
}

// DeleteArtifact removes name from the store. Engines already built from it
// are unaffected.
func (m *Manager) DeleteArtifact(name string) error {
	if !m.resolver.Store().Delete(name) {
		return faults.ArtifactNotFound(name)
	}
	m.log.Info().Str("artifact", name).Msg("artifact deleted")
	return nil
}

// PullArtifact resolves ref without loading it, which downloads remote
// artifacts into the store.
func (m *Manager) PullArtifact(ctx context.Context, ref source.Reference) (types.ArtifactInfo, error) {
	release, err := m.admit(ctx, m.ioPool)
	if err != nil {
		return types.ArtifactInfo{}, err
	}
	defer release()
	art, err := m.resolver.Resolve(ctx, ref)
	if err != nil {
		return types.ArtifactInfo{}, err
	}
	defer art.Close()
	return types.ArtifactInfo{Name: art.Name, SizeBytes: art.Size()}, nil
}

// ImportModel resolves ref and records info in the catalog so it can later be
// referenced by id. The engine is not touched.
func (m *Manager) ImportModel(ctx context.Context, info types.LocalModelInfo, ref source.Reference) (types.LocalModelInfo, error) {
	if m.catalog == nil {
		return info, faults.DependencyUnavailable("model catalog not configured")
	}
	if info.ModelID == "" {
		return info, errors.New("model id is required")
	}
	release, err := m.admit(ctx, m.ioPool)
	if err != nil {
		return info, err
	}
	art, err := m.resolver.Resolve(ctx, ref)
	release()
	if err != nil {
		return info, err
	}
	defer art.Close()

	rec := newModelInfo(info.ModelID, ref, art, LoadOptions{
		Version:             info.Version,
		InputTypes:          info.InputTypes,
		OutputTypes:         info.OutputTypes,
		RequiredMemoryBytes: info.RequiredMemoryBytes,
	})
	if err := m.catalog.Put(ctx, rec); err != nil {
		return rec, faults.IOFailure("import", err)
	}
	m.log.Info().Str("model", rec.ModelID).Str("path", rec.StoragePath).Msg("model imported")
	return rec, nil
}

// ForgetModel removes id from the catalog.
func (m *Manager) ForgetModel(ctx context.Context, id string) error {
	if m.catalog == nil {
		return faults.DependencyUnavailable("model catalog not configured")
	}
	ok, err := m.catalog.Delete(ctx, id)
	if err != nil {
		return faults.IOFailure("forget", err)
	}
	if !ok {
		return faults.Newf(faults.KindArtifactNotFound, "forget", "model %q is not imported", id)
	}
	return nil
}
