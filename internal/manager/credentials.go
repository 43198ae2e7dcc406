package manager

import (
	"context"
	"strings"

	"agentcore/internal/faults"
	"agentcore/internal/secret"
)

// StoreCredential saves value under key. An empty key selects the remote
// credential key.
func (m *Manager) StoreCredential(key, value string) error {
	if m.secrets == nil {
		return faults.DependencyUnavailable("credential store not configured")
	}
	if key == "" {
		key = m.credentialKey
	}
	if strings.TrimSpace(value) == "" {
		return secret.ErrEmptyValue
	}
	if err := m.secrets.Put(key, value); err != nil {
		return faults.IOFailure("store credential", err)
	}
	m.log.Info().Str("key", key).Msg("credential stored")
	return nil
}

// HasCredential reports whether the remote route has a credential.
func (m *Manager) HasCredential() bool {
	return m.remote.TestConnection(context.Background())
}
