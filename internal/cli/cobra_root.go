package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"agentcore/internal/config"
	"agentcore/internal/faults"
	"agentcore/internal/manager"
	"agentcore/internal/source"
	"agentcore/pkg/types"
)

// Swappable in tests.
var (
	fnNewApp = newApp
	fnServe  = serve
)

// withApp loads config, wires the core and runs fn with it.
func withApp(cmd *cobra.Command, opts *Options, tweak func(*config.Config), fn func(*app) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(&cfg)
	}
	a, err := fnNewApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// buildRootCmdWith constructs the command tree bound to opts.
func buildRootCmdWith(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "agentcore",
		Short:         "Model execution and routing core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Config file (.yaml, .json, .toml); defaults to $"+config.EnvConfigPath)
	root.PersistentFlags().StringVar(&opts.DataDir, "data-dir", opts.DataDir, "Data directory holding models, catalog and secrets")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error")

	root.AddCommand(
		serveCmd(opts),
		execCmd(opts),
		loadCmd(opts),
		pullCmd(opts),
		modelsCmd(opts),
		artifactsCmd(opts),
		credentialCmd(opts),
	)
	return root
}

func serveCmd(opts *Options) *cobra.Command {
	var addr, corsOrigins string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API",
		Example: "  agentcore serve --addr :8080\n  agentcore serve --cors-origins http://localhost:5173",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tweak := func(c *config.Config) {
				if addr != "" {
					c.Addr = addr
				}
				if origins := splitCSV(corsOrigins); len(origins) > 0 {
					c.CORS.Enabled = true
					c.CORS.Origins = origins
				}
			}
			return withApp(cmd, opts, tweak, func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return fnServe(ctx, a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envStr("AGENTCORE_ADDR", ""), "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma separated origins; enables CORS")
	return cmd
}

func execCmd(opts *Options) *cobra.Command {
	var (
		model, text, file, modality, ref string
		remote, asJSON                   bool
	)
	cmd := &cobra.Command{
		Use:     "exec",
		Short:   "Execute a model once",
		Example: "  agentcore exec --model openai/gpt-4o-mini --text 'hello' --remote\n  agentcore exec --model clf --ref hf:org/clf/model.onnx --file img.bin --modality image",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := buildInput(text, file, modality)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, nil, func(a *app) error {
				ctx := cmd.Context()
				if ref != "" {
					r, err := source.ParseReference(ref)
					if err != nil {
						return err
					}
					if res := a.mgr.LoadModel(ctx, model, r); !res.OK() {
						return errors.New(res.Message())
					}
				}
				res := a.mgr.ExecuteModel(ctx, model, input, !remote)
				if asJSON {
					resp := types.ExecuteResponse{
						Text:        res.Message(),
						Route:       res.Output.Route,
						Model:       model,
						ExecutionID: res.Output.ExecutionID,
						Cost:        res.Output.Cost,
					}
					if res.Err != nil {
						resp.Error = string(faults.KindOf(res.Err))
					}
					if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
						return err
					}
				} else if res.OK() {
					fmt.Fprintln(cmd.OutOrStdout(), res.Output.Text)
				}
				if !res.OK() {
					return errors.New(res.Message())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model id")
	cmd.Flags().StringVar(&text, "text", "", "Text input")
	cmd.Flags().StringVar(&file, "file", "", "Binary input file")
	cmd.Flags().StringVar(&modality, "modality", "", "Modality of --file (image, audio, binary)")
	cmd.Flags().StringVar(&ref, "ref", "", "Load the model from this reference first (file:, hf:, bundled:)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Skip the local engine")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func buildInput(text, file, modality string) (manager.Input, error) {
	switch {
	case text != "" && file != "":
		return nil, errors.New("use either --text or --file")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return manager.BinaryInput{Data: data, Modality: types.Modality(modality)}, nil
	case text != "":
		return manager.TextInput{Text: text}, nil
	default:
		return nil, errors.New("one of --text or --file is required")
	}
}

func loadCmd(opts *Options) *cobra.Command {
	var (
		version  string
		memoryMB int64
		imp      bool
	)
	cmd := &cobra.Command{
		Use:     "load <model-id> <reference>",
		Short:   "Resolve and load a model, optionally importing it",
		Example: "  agentcore load phi hf:org/phi/model.onnx --import",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := source.ParseReference(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, nil, func(a *app) error {
				res := a.mgr.LoadModelWith(cmd.Context(), args[0], ref, manager.LoadOptions{
					Version:             version,
					RequiredMemoryBytes: memoryMB << 20,
					Import:              imp,
				})
				if !res.OK() {
					return errors.New(res.Message())
				}
				info, _ := a.mgr.LoadedModel(args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\n", info.ModelID, info.StoragePath, info.SizeBytes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Version recorded on the model")
	cmd.Flags().Int64Var(&memoryMB, "memory-mb", 0, "Required memory override in MB")
	cmd.Flags().BoolVar(&imp, "import", false, "Record the model in the catalog")
	return cmd
}

func pullCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "pull <reference>",
		Short:   "Download or copy an artifact into the local store",
		Example: "  agentcore pull hf:org/model/weights.onnx",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := source.ParseReference(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, nil, func(a *app) error {
				info, err := a.mgr.PullArtifact(cmd.Context(), ref)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", info.Name, info.SizeBytes)
				return nil
			})
		},
	}
}

func modelsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List imported models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				models, err := a.mgr.ImportedModels(cmd.Context())
				if err != nil {
					return err
				}
				return printModels(cmd.OutOrStdout(), models)
			})
		},
	}
	imp := &cobra.Command{
		Use:   "import <model-id> <reference>",
		Short: "Record a model in the catalog without loading it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := source.ParseReference(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, nil, func(a *app) error {
				info, err := a.mgr.ImportModel(cmd.Context(), types.LocalModelInfo{ModelID: args[0]}, ref)
				if err != nil {
					return err
				}
				return printModels(cmd.OutOrStdout(), []types.LocalModelInfo{info})
			})
		},
	}
	forget := &cobra.Command{
		Use:   "forget <model-id>",
		Short: "Remove a model from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				return a.mgr.ForgetModel(cmd.Context(), args[0])
			})
		},
	}
	cmd.AddCommand(imp, forget)
	return cmd
}

func artifactsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List stored artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				arts, err := a.mgr.AvailableArtifacts()
				if err != nil {
					return err
				}
				if len(arts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no artifacts")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tSIZE")
				for _, art := range arts {
					fmt.Fprintf(tw, "%s\t%d\n", art.Name, art.SizeBytes)
				}
				return tw.Flush()
			})
		},
	}
	rm := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a stored artifact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				return a.mgr.DeleteArtifact(args[0])
			})
		},
	}
	cmd.AddCommand(rm)
	return cmd
}

func credentialCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the remote credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("credential requires a subcommand: set|status")
		},
	}
	var key string
	set := &cobra.Command{
		Use:   "set <value>",
		Short: "Store the remote credential in the encrypted secrets file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				if !a.persistentSecrets {
					return fmt.Errorf("set $%s to persist credentials", a.cfg.Secrets.PassphraseEnv)
				}
				return a.mgr.StoreCredential(key, args[0])
			})
		},
	}
	set.Flags().StringVar(&key, "key", "", "Credential key (defaults to the remote credential)")
	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the remote credential is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, nil, func(a *app) error {
				if a.mgr.HasCredential() {
					fmt.Fprintln(cmd.OutOrStdout(), "configured")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "not configured")
				}
				return nil
			})
		},
	}
	cmd.AddCommand(set, status)
	return cmd
}

func printModels(w io.Writer, models []types.LocalModelInfo) error {
	if len(models) == 0 {
		fmt.Fprintln(w, "no models")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tSIZE\tPATH")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.ModelID, m.Version, m.SizeBytes, m.StoragePath)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
