package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/sigkit/examples"
	_ "github.com/randalmurphal/sigkit/local"
	"github.com/randalmurphal/sigkit/provider"
	"github.com/randalmurphal/sigkit/retrieve"
	"github.com/randalmurphal/sigkit/tokens"
	"github.com/randalmurphal/sigkit/usage"
)

var (
	errWatchNeedsConfig = errors.New("--watch requires --config")
	errNoExamples       = errors.New("name one or more examples, or pass --all")
)

// newClient builds the model client. Tests replace it.
var newClient = func(cfg provider.Config) (provider.Client, error) {
	return provider.FromConfig(cfg)
}

// app carries flag values and output streams for one command tree.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	configPath string
	logLevel   string
	logJSON    bool
	flags      overrides
	temp       float64

	all        bool
	concurrent bool
	watch      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sigkit",
		Short: "Run declarative language model programs against a local model",
		Long: `sigkit runs a set of example programs built from signatures and
modules (Predict, ChainOfThought, ReAct, MultiChainComparison, Parallel)
against a local Ollama server.

Configuration is read from defaults, then --config, then SIGKIT_*
environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("temperature") {
				t := a.temp
				a.flags.temperature = &t
			}
			return a.initLogger()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (.toml, .yaml)")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	pf.StringVar(&a.flags.model, "model", "", "model name on the server")
	pf.StringVar(&a.flags.baseURL, "base-url", "", "inference server address")
	pf.Float64Var(&a.temp, "temperature", 0, "sampling temperature")
	pf.StringVar(&a.flags.contextURL, "context-url", "", "document for the retrieval examples")
	pf.IntVar(&a.flags.threads, "threads", 0, "worker pool size for the parallel example")

	root.AddCommand(a.runCmd(), a.listCmd(), a.configCmd())
	return root
}

func (a *app) initLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if a.logJSON {
		a.logger = slog.New(slog.NewJSONHandler(a.stderr, opts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(a.stderr, opts))
	}
	return nil
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run {--all | example...}",
		Short: "Run the named examples, or all of them with --all",
		Example: `  sigkit run count-letter rag
  sigkit run --all --concurrent
  sigkit run --config sigkit.toml --watch basic-predict`,
		RunE: a.run,
	}
	cmd.Flags().BoolVar(&a.all, "all", false, "run every example")
	cmd.Flags().BoolVar(&a.concurrent, "concurrent", false, "run the selected examples at the same time")
	cmd.Flags().BoolVar(&a.watch, "watch", false, "re-run whenever the config file changes")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	if a.all && len(args) > 0 {
		return fmt.Errorf("--all takes no example names, got %s", strings.Join(args, ", "))
	}
	if !a.all && len(args) == 0 {
		_ = cmd.Usage()
		return errNoExamples
	}
	ctx := cmd.Context()

	if !a.watch {
		return a.runOnce(ctx, args)
	}
	if a.configPath == "" {
		return errWatchNeedsConfig
	}

	if err := a.runOnce(ctx, args); err != nil {
		a.logger.Error("run failed", slog.Any("error", err))
	}
	a.logger.Info("watching config", slog.String("path", a.configPath))
	err := provider.WatchFile(ctx, a.configPath, func() {
		fmt.Fprintf(a.stdout, "\nConfig changed, re-running.\n")
		if err := a.runOnce(ctx, args); err != nil {
			a.logger.Error("run failed", slog.Any("error", err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runOnce loads the configuration and runs the named examples with a fresh
// client, printing the token usage summary at the end.
func (a *app) runOnce(ctx context.Context, names []string) error {
	cfg, err := loadConfig(a.configPath, a.flags)
	if err != nil {
		return err
	}

	client, err := newClient(cfg.Provider)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	tracker := usage.NewTracker()
	fetcher := retrieve.NewFetcher(a.fetchOptions(cfg)...)
	defer fetcher.Close()

	a.logger.Debug("running examples",
		slog.String("provider", cfg.Provider.Provider),
		slog.String("model", cfg.Provider.Model),
		slog.String("base_url", cfg.Provider.BaseURL),
		slog.Int("threads", cfg.Threads))

	env := &examples.Env{
		LM:         usage.Wrap(client, tracker, cfg.Provider.Model),
		Out:        a.stdout,
		Fetcher:    fetcher,
		ContextURL: cfg.ContextURL,
		Threads:    cfg.Threads,
		Logger:     a.logger,
	}
	runErr := examples.Run(ctx, env, names, examples.RunOptions{Concurrent: a.concurrent})
	if errors.Is(runErr, provider.ErrModelNotFound) {
		fmt.Fprintf(a.stderr, "Model %q is not on the server. Pull it with: ollama pull %s\n",
			cfg.Provider.Model, cfg.Provider.Model)
	}

	if len(tracker.Models()) > 0 {
		fmt.Fprintln(a.stdout)
		if err := tracker.WriteSummary(a.stdout); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func (a *app) fetchOptions(cfg File) []retrieve.Option {
	opts := []retrieve.Option{retrieve.WithLogger(a.logger)}
	if cfg.FetchCacheTTL > 0 {
		opts = append(opts, retrieve.WithCache(cfg.FetchCacheTTL))
	}
	if cfg.MaxContextTokens > 0 {
		opts = append(opts, retrieve.WithMaxTokens(cfg.MaxContextTokens))
	} else {
		opts = append(opts, retrieve.WithBudget(tokens.ForModel(cfg.Provider.Model, cfg.Provider.GetIntOption("num_ctx", 0))))
	}
	return opts
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the examples",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, ex := range examples.Registry() {
				fmt.Fprintf(a.stdout, "%-20s %s\n", ex.Name, ex.Description)
			}
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig(a.configPath, a.flags)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
