package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rand/starweave/internal/config"
)

func init() {
	configShowCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	configShowCmd.Flags().BoolP("yaml", "y", false, "Output as YAML")

	configCmd.AddCommand(
		configShowCmd,
		configEditCmd,
		configValidateCmd,
		configPathCmd,
	)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing starweave configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the current effective configuration after merging all sources",
	Example: heredoc.Doc(`
		# Show config in human-readable format
		starweave config show

		# Show config as JSON
		starweave config show --json

		# Show config as YAML
		starweave config show --yaml
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		asYAML, _ := cmd.Flags().GetBool("yaml")

		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(cfg)
		}

		if asYAML {
			redacted := *cfg
			redacted.Embedding.APIKey = ""
			encoder := yaml.NewEncoder(out)
			encoder.SetIndent(2)
			return encoder.Encode(&redacted)
		}

		showConfig(out, cfg)
		return nil
	},
}

func showConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Effective Configuration")
	fmt.Fprintln(out, "=======================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Options:")
	fmt.Fprintf(out, "  Data Directory:    %s\n", cfg.DataDir)
	fmt.Fprintf(out, "  Debug:             %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Journal:           %v (%s)\n", cfg.Journal.Enabled, cfg.JournalPath())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Embedding:")
	fmt.Fprintf(out, "  Provider:          %s\n", cfg.Embedding.Provider)
	if cfg.Embedding.Model != "" {
		fmt.Fprintf(out, "  Model:             %s\n", cfg.Embedding.Model)
	}
	if cfg.Embedding.BaseURL != "" {
		fmt.Fprintf(out, "  Base URL:          %s\n", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.APIKey != "" {
		keyLen := min(len(cfg.Embedding.APIKey), 8)
		fmt.Fprintf(out, "  API Key:           %s...\n", cfg.Embedding.APIKey[:keyLen])
	}
	fmt.Fprintf(out, "  Dimensions:        %d\n", cfg.Embedding.Dimensions)
	fmt.Fprintf(out, "  Cache Size:        %d\n", cfg.Embedding.CacheSize)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Concepts:")
	for _, s := range cfg.Concepts {
		fmt.Fprintf(out, "  %-14s %-14s threshold %.2f  %v\n", s.Name, s.Action, s.Threshold, s.Vector)
	}
	fmt.Fprintln(out)

	if len(cfg.Modules) > 0 {
		fmt.Fprintln(out, "Modules:")
		for _, m := range cfg.Modules {
			fmt.Fprintf(out, "  %-10s %s\n", m.Name, strings.Join(m.Concepts, ", "))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Orchestrator:")
	fmt.Fprintf(out, "  Propensity:        %.1f\n", cfg.Orchestrator.Propensity)
	fmt.Fprintf(out, "  Auto Co-create:    %v\n", cfg.Orchestrator.AutoCoCreate)
	fmt.Fprintf(out, "  Reflection Every:  %d\n", cfg.Reflection.Interval)
}

const defaultConfigHeader = `# starweave configuration
# Values below are the defaults. Remove anything you do not want to override.
`

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config in editor",
	Long:  "Open the configuration file in your default editor",
	Example: heredoc.Doc(`
		# Edit config with $EDITOR
		starweave config edit
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cwd, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var configPath string
		for _, src := range config.Sources(cwd, cfg.DataDir) {
			if _, err := os.Stat(src.Path); err == nil {
				configPath = src.Path
				break
			}
		}

		if configPath == "" {
			configPath = filepath.Join(cfg.DataDir, "config.yaml")
			if err := writeDefaultConfig(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created new config file: %s\n", configPath)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = os.Getenv("VISUAL")
		}
		if editor == "" {
			editor = "vi"
		}

		execCmd := exec.Command(editor, configPath)
		execCmd.Stdin = os.Stdin
		execCmd.Stdout = os.Stdout
		execCmd.Stderr = os.Stderr

		return execCmd.Run()
	},
}

func writeDefaultConfig(path string) error {
	defaults := config.Default()
	defaults.DataDir = ""
	data, err := defaults.Marshal()
	if err != nil {
		return fmt.Errorf("render default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultConfigHeader), data...), 0o644); err != nil {
		return fmt.Errorf("create default config: %w", err)
	}
	return nil
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Check the configuration for errors and warnings",
	Example: heredoc.Doc(`
		# Validate configuration
		starweave config validate
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ Configuration error: %v\n", err)
			return err
		}
		return validateConfig(cmd.OutOrStdout(), cfg)
	},
}

func validateConfig(out io.Writer, cfg *config.Config) error {
	warnings, err := cfg.Validate()

	if _, statErr := os.Stat(cfg.DataDir); cfg.DataDir != "" && os.IsNotExist(statErr) {
		warnings = append(warnings, fmt.Sprintf("Data directory does not exist: %s (will be created)", cfg.DataDir))
	}

	var errs []string
	if err != nil {
		errs = strings.Split(err.Error(), "\n")
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(out, "  ✗ %s\n", e)
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  ⚠ %s\n", w)
		}
	}

	if len(errs) == 0 && len(warnings) == 0 {
		fmt.Fprintln(out, "✓ Configuration is valid")
	} else if len(errs) == 0 {
		fmt.Fprintln(out, "\n✓ Configuration is valid with warnings")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration has %d error(s): %w", len(errs), err)
	}
	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file paths",
	Long:  "Display the paths where configuration files are loaded from",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cwd, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Configuration Paths (in order of precedence):")
		fmt.Fprintln(out)

		for _, src := range config.Sources(cwd, cfg.DataDir) {
			status := "✗"
			if _, err := os.Stat(src.Path); err == nil {
				status = "✓"
			}
			fmt.Fprintf(out, "  %s %s\n    %s\n", status, src.Name, src.Path)
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "Journal:        %s\n", cfg.JournalPath())
		logPath := cfg.LogPath()
		if logPath == "" {
			logPath = "stderr"
		}
		fmt.Fprintf(out, "Log file:       %s\n", logPath)
		if cfg.Tracing.Enabled {
			fmt.Fprintf(out, "Traces:         %s\n", cfg.TracePath())
		}

		return nil
	},
}
