package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DefaultAddr          = ":8080"
	DefaultDataDir       = "~/.agentcore"
	DefaultBackend       = "onnx"
	DefaultPassphraseEnv = "AGENTCORE_SECRET_PASSPHRASE"
	DefaultMaxBodyBytes  = 16 << 20
)

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields. Paths under DataDir are derived from it,
// so a custom data_dir moves them too.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.ModelsDir == "" {
		c.ModelsDir = filepath.Join(c.DataDir, "models")
	}
	if c.AssetsDir == "" {
		c.AssetsDir = filepath.Join(c.DataDir, "assets")
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.Engine.Backend == "" {
		c.Engine.Backend = DefaultBackend
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = 60
	}
	if c.Secrets.Path == "" {
		c.Secrets.Path = filepath.Join(c.DataDir, "secrets.json")
	}
	if c.Secrets.PassphraseEnv == "" {
		c.Secrets.PassphraseEnv = DefaultPassphraseEnv
	}
	if c.Limits.MaxBodyBytes <= 0 {
		c.Limits.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate rejects values no component can honor.
func (c Config) Validate() error {
	switch strings.ToLower(c.Engine.Backend) {
	case "", "onnx", "llama":
	default:
		return fmt.Errorf("engine.backend: unknown backend %q", c.Engine.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: want console or json, got %q", c.Log.Format)
	}
	for name, v := range map[string]int{
		"limits.memory_budget_mb":        c.Limits.MemoryBudgetMB,
		"limits.io_workers":              c.Limits.IOWorkers,
		"limits.cpu_workers":             c.Limits.CPUWorkers,
		"limits.max_wait_ms":             c.Limits.MaxWaitMS,
		"limits.request_timeout_seconds": c.Limits.RequestTimeoutSeconds,
	} {
		if v < 0 {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}
	return nil
}
