package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"agentcore/internal/engine"
	"agentcore/internal/router"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// Manager owns the loaded set, the engine handle, the credential store and
// the router. The router reads the loaded set through LoadedModel.
type Manager struct {
	mu       sync.RWMutex
	loaded   map[string]types.LocalModelInfo
	resident string // model id the engine was last loaded for; written under engineLock
	lastErr  string

	// engineLock is held from a residency check through the run or load
	// that depends on it.
	engineLock *semaphore.Weighted

	resolver      *source.Resolver
	handle        *engine.Handle
	secrets       secret.Store
	credentialKey string
	remote        RemoteExecutor
	catalog       Catalog
	router        *router.Router

	memoryBudget   int64
	ioPool         *pool
	cpuPool        *pool
	maxWait        time.Duration
	outputBytes    int
	fallbackRemote bool

	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	executions atomic.Uint64
	loads      atomic.Uint64
}

// SetEventPublisher replaces the event sink. A nil publisher drops events.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

func (m *Manager) setErr(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

// Close releases the resident engine.
func (m *Manager) Close() error {
	unlock, _ := m.lockEngine(context.Background())
	defer unlock()
	m.setResident("")
	return m.handle.Release()
}
