// Package cli implements the agentcore command tree.
//
// Files:
//   - cli.go        (Options, MainWithArgs, loadConfig)
//   - cobra_root.go (command tree)
//   - app.go        (component wiring)
//   - serve.go      (HTTP server lifecycle)
//   - logenv.go     (env and flag helpers)
package cli

import (
	"fmt"
	"io"
	"os"

	"agentcore/internal/config"
)

// Options carries the persistent flags shared by every subcommand.
type Options struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
}

// MainWithArgs runs the CLI and returns the process exit code.
func MainWithArgs(args []string) int {
	return mainWith(args, os.Stdout, os.Stderr)
}

func mainWith(args []string, stdout, stderr io.Writer) int {
	opts := &Options{
		ConfigPath: envStr(config.EnvConfigPath, ""),
		LogLevel:   envStr("AGENTCORE_LOG_LEVEL", ""),
	}
	root := buildRootCmdWith(opts)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	if len(args) == 0 {
		_ = root.Help()
		return 2
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

// loadConfig reads the config file if any, applies flag overrides and fills
// defaults.
func loadConfig(opts *Options) (config.Config, error) {
	var cfg config.Config
	if opts.ConfigPath != "" {
		c, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
