package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"agentcore/internal/catalog"
	"agentcore/internal/common/fsutil"
	"agentcore/internal/config"
	"agentcore/internal/engine"
	"agentcore/internal/gateway"
	"agentcore/internal/logging"
	"agentcore/internal/manager"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/internal/store"
)

// app is the wired model core of one CLI invocation.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	mgr     *manager.Manager
	catalog *catalog.Catalog
	// persistentSecrets is false when credentials live in memory only.
	persistentSecrets bool
	closers           []io.Closer
}

// newApp wires store, catalog, resolver, engine, secrets, gateway and manager
// from cfg. Logs go to logOut.
func newApp(cfg config.Config, logOut io.Writer) (a *app, err error) {
	log, logCloser, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	a = &app{cfg: cfg, log: log, closers: []io.Closer{logCloser}}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	st, err := store.New(cfg.ModelsDir, log)
	if err != nil {
		return nil, err
	}
	assetsDir, err := fsutil.ExpandHome(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}
	catPath, err := fsutil.ExpandHome(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(catPath), 0o755); err != nil {
		return nil, fmt.Errorf("catalog dir: %w", err)
	}
	cat, err := catalog.Open(catPath, log)
	if err != nil {
		return nil, err
	}
	a.catalog = cat
	a.closers = append(a.closers, cat)

	resolver := source.NewResolver(st, source.Config{
		AssetsDir:  assetsDir,
		HubBaseURL: cfg.Hub.BaseURL,
		HubToken:   cfg.Hub.Token,
		Lookup:     cat,
		Logger:     log,
	})
	backend, err := engine.NewBackend(cfg.Engine.Backend, engine.Options{
		SharedLibraryPath: cfg.Engine.SharedLibraryPath,
		InputName:         cfg.Engine.InputName,
		OutputName:        cfg.Engine.OutputName,
		InputSize:         cfg.Engine.InputSize,
		OutputSize:        cfg.Engine.OutputSize,
		ContextSize:       cfg.Engine.ContextSize,
		Threads:           cfg.Engine.Threads,
		MaxTokens:         cfg.Engine.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	secrets, persistent, err := openSecrets(cfg.Secrets)
	if err != nil {
		return nil, err
	}
	a.persistentSecrets = persistent
	remote := gateway.New(gateway.Config{
		Endpoint: cfg.Remote.Endpoint,
		Model:    cfg.Remote.Model,
		Secrets:  secrets,
		Timeout:  time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		Logger:   log,
	})

	mgr, err := manager.NewWithConfig(manager.ManagerConfig{
		Resolver:          resolver,
		Handle:            engine.NewHandle(backend, log),
		Secrets:           secrets,
		Remote:            remote,
		Catalog:           cat,
		ModelsEndpoint:    cfg.Remote.ModelsEndpoint,
		MemoryBudgetBytes: int64(cfg.Limits.MemoryBudgetMB) << 20,
		IOWorkers:         cfg.Limits.IOWorkers,
		CPUWorkers:        cfg.Limits.CPUWorkers,
		MaxWait:           time.Duration(cfg.Limits.MaxWaitMS) * time.Millisecond,
		FallbackRemote:    cfg.Remote.FallbackRemote,
		Publisher:         manager.LogPublisher{Log: log},
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}
	a.mgr = mgr
	a.closers = append(a.closers, mgr)
	return a, nil
}

// openSecrets opens the encrypted file store when a passphrase is available
// and falls back to an in-memory store otherwise.
func openSecrets(cfg config.SecretsConfig) (secret.Store, bool, error) {
	pass := os.Getenv(cfg.PassphraseEnv)
	if pass == "" {
		return secret.NewMemoryStore(), false, nil
	}
	p, err := fsutil.ExpandHome(cfg.Path)
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, false, fmt.Errorf("secrets dir: %w", err)
	}
	fs, err := secret.OpenFile(p, pass)
	if err != nil {
		return nil, false, err
	}
	return fs, true, nil
}

// Close releases components in reverse wiring order.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
