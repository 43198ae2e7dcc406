package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"agentcore/internal/engine"
	"agentcore/internal/gateway"
	"agentcore/internal/router"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultIOWorkers   = 2
	defaultCPUWorkers  = 4
	defaultMaxWait     = 30 * time.Second
	defaultOutputBytes = 4096
)

// RemoteExecutor runs prompts on the remote route. *gateway.Gateway satisfies it.
type RemoteExecutor interface {
	Execute(ctx context.Context, modelID, prompt string) (string, error)
	TestConnection(ctx context.Context) bool
}

// Catalog records imported models. *catalog.Catalog satisfies it.
type Catalog interface {
	Put(ctx context.Context, info types.LocalModelInfo) error
	Get(ctx context.Context, id string) (types.LocalModelInfo, bool, error)
	List(ctx context.Context) ([]types.LocalModelInfo, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Resolver *source.Resolver
	Handle   *engine.Handle
	Secrets  secret.Store
	// CredentialKey names the remote bearer token; defaults to secret.OpenRouterKey.
	CredentialKey string
	// Remote defaults to a gateway over Secrets.
	Remote  RemoteExecutor
	Catalog Catalog
	// ModelsEndpoint is the base of remote route endpoints.
	ModelsEndpoint string

	// MemoryBudgetBytes caps RequiredMemoryBytes of a loadable model; 0 disables the check.
	MemoryBudgetBytes int64
	IOWorkers         int
	CPUWorkers        int
	MaxWait           time.Duration
	// OutputBytes sizes the local output buffer when the engine reports no capacity.
	OutputBytes int
	// FallbackRemote retries failed local text executions once on the remote route.
	FallbackRemote bool

	Publisher EventPublisher
	Logger    zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("manager: resolver is required")
	}
	if cfg.Handle == nil {
		return nil, errors.New("manager: engine handle is required")
	}
	if cfg.CredentialKey == "" {
		cfg.CredentialKey = secret.OpenRouterKey
	}
	if cfg.Remote == nil {
		cfg.Remote = gateway.New(gateway.Config{
			Secrets:       cfg.Secrets,
			CredentialKey: cfg.CredentialKey,
			Logger:        cfg.Logger,
		})
	}
	// Apply defaults if unset
	if cfg.IOWorkers <= 0 {
		cfg.IOWorkers = defaultIOWorkers
	}
	if cfg.CPUWorkers <= 0 {
		cfg.CPUWorkers = defaultCPUWorkers
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.OutputBytes <= 0 {
		cfg.OutputBytes = defaultOutputBytes
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}

	m := &Manager{
		loaded:         make(map[string]types.LocalModelInfo),
		engineLock:     semaphore.NewWeighted(1),
		resolver:       cfg.Resolver,
		handle:         cfg.Handle,
		secrets:        cfg.Secrets,
		credentialKey:  cfg.CredentialKey,
		remote:         cfg.Remote,
		catalog:        cfg.Catalog,
		memoryBudget:   cfg.MemoryBudgetBytes,
		ioPool:         newPool("io", cfg.IOWorkers),
		cpuPool:        newPool("cpu", cfg.CPUWorkers),
		maxWait:        cfg.MaxWait,
		outputBytes:    cfg.OutputBytes,
		fallbackRemote: cfg.FallbackRemote,
		publisher:      cfg.Publisher,
		log:            cfg.Logger.With().Str("component", "manager").Logger(),
		startTime:      time.Now(),
	}
	m.router = router.New(m, cfg.ModelsEndpoint)
	return m, nil
}
