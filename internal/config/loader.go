package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when no --config flag is given.
const EnvConfigPath = "AGENTCORE_CONFIG"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// DataDir roots the default models dir, catalog and secrets file.
	DataDir     string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ModelsDir   string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	AssetsDir   string `json:"assets_dir" yaml:"assets_dir" toml:"assets_dir"`
	CatalogPath string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`

	Engine  EngineConfig  `json:"engine" yaml:"engine" toml:"engine"`
	Remote  RemoteConfig  `json:"remote" yaml:"remote" toml:"remote"`
	Hub     HubConfig     `json:"hub" yaml:"hub" toml:"hub"`
	Secrets SecretsConfig `json:"secrets" yaml:"secrets" toml:"secrets"`
	Limits  LimitsConfig  `json:"limits" yaml:"limits" toml:"limits"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
	CORS    CORSConfig    `json:"cors" yaml:"cors" toml:"cors"`
}

// EngineConfig selects and tunes the inference backend.
type EngineConfig struct {
	// Backend is onnx or llama.
	Backend           string `json:"backend" yaml:"backend" toml:"backend"`
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path" toml:"shared_library_path"`
	InputName         string `json:"input_name" yaml:"input_name" toml:"input_name"`
	OutputName        string `json:"output_name" yaml:"output_name" toml:"output_name"`
	InputSize         int    `json:"input_size" yaml:"input_size" toml:"input_size"`
	OutputSize        int    `json:"output_size" yaml:"output_size" toml:"output_size"`
	ContextSize       int    `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads           int    `json:"threads" yaml:"threads" toml:"threads"`
	MaxTokens         int    `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
}

// RemoteConfig tunes the remote inference gateway.
type RemoteConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Model          string `json:"model" yaml:"model" toml:"model"`
	ModelsEndpoint string `json:"models_endpoint" yaml:"models_endpoint" toml:"models_endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	FallbackRemote bool   `json:"fallback_remote" yaml:"fallback_remote" toml:"fallback_remote"`
}

// HubConfig tunes artifact downloads.
type HubConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
	// Token is sent as a bearer token for gated repositories.
	Token string `json:"token" yaml:"token" toml:"token"`
}

// SecretsConfig locates the encrypted credential file.
type SecretsConfig struct {
	Path string `json:"path" yaml:"path" toml:"path"`
	// PassphraseEnv names the environment variable holding the passphrase.
	// Without a passphrase credentials are kept in memory only.
	PassphraseEnv string `json:"passphrase_env" yaml:"passphrase_env" toml:"passphrase_env"`
}

// LimitsConfig bounds resource usage.
type LimitsConfig struct {
	MemoryBudgetMB        int   `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	IOWorkers             int   `json:"io_workers" yaml:"io_workers" toml:"io_workers"`
	CPUWorkers            int   `json:"cpu_workers" yaml:"cpu_workers" toml:"cpu_workers"`
	MaxWaitMS             int   `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	MaxBodyBytes          int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// RequestTimeoutSeconds bounds one execute or load request; 0 disables it.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format is console or json.
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

// CORSConfig enables cross-origin requests on the HTTP API.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
