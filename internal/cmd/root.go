// Package cmd implements the starweave command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/rand/starweave/internal/app"
	"github.com/rand/starweave/internal/config"
	"github.com/rand/starweave/internal/logging"
	"github.com/rand/starweave/internal/observability"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().StringP("data-dir", "D", "", "Custom data directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")

	rootCmd.AddCommand(
		chatCmd,
		matchCmd,
		historyCmd,
		statsCmd,
		configCmd,
	)
}

var rootCmd = &cobra.Command{
	Use:   "starweave",
	Short: "A concept-matching agent",
	Long: heredoc.Doc(`
		starweave embeds what you type, matches it against a small set of
		evolving concepts and answers with the action of the best match.
		Module agents built from the same concepts take part in co-creation
		rounds that make the agent more inclined to propose new ideas.

		Run without a subcommand to start an interactive session.
	`),
	Example: heredoc.Doc(`
		# Start an interactive session
		starweave

		# Match a single input
		starweave match "why do stars shine"

		# Show the last ten interactions
		starweave history -n 10
	`),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatCmd.RunE(cmd, args)
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, rootCmd, fang.WithVersion(version())); err != nil {
		stop()
		os.Exit(1)
	}
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}

// ResolveCwd returns the --cwd flag as an absolute path, or the process
// working directory.
func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}

	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("resolve cwd: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("resolve cwd: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("resolve cwd: %s is not a directory", abs)
	}
	return abs, nil
}

// loadConfig loads configuration for the cwd and flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cwd, err := ResolveCwd(cmd)
	if err != nil {
		return nil, "", err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(cwd, dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, cwd, nil
}

// openAgent builds the agent for CLI commands. The cleanup func closes the
// agent, flushes spans and closes the log file.
func openAgent(cmd *cobra.Command) (*app.Agent, func(), error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, logCloser, err := logging.New(logging.FromConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logCloser.Close()
	}

	opts := []app.Option{app.WithLogger(logger)}
	if cfg.Tracing.Enabled {
		traceFile, err := openTraceFile(cfg.TracePath())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { traceFile.Close() })

		tp, err := observability.NewTracerProvider(traceFile, version())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := observability.ShutdownTracerProvider(context.Background(), tp); err != nil {
				logger.Warn("flush spans failed", "error", err)
			}
		})
		otel.SetTracerProvider(tp)
		opts = append(opts, app.WithTracerProvider(tp))
	}

	agent, err := app.New(cmd.Context(), cfg, opts...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	cleanup := func() {
		agent.Close()
		closeAll()
	}
	return agent, cleanup, nil
}

func openTraceFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}
