package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmdemo/internal/config"
	"github.com/woxQAQ/wasmdemo/internal/host"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "wasmdemo",
		Short: "Call size and get_version on compiled Wasm guests.",
		Long: `wasmdemo loads the guests found under the configured artifact paths and
calls their exports through an embedded Wasm runtime.

Configuration is read from --config and from WASMDEMO_* environment variables.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", buildVersion, buildCommit, buildDate),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Watch.Enabled {
				return runWatch(cmd, a)
			}
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVarP(&a.output, "output", "o", "text", "Output format (text, json, yaml)")

	rootCmd.AddCommand(
		newSizeCmd(a),
		newVersionCmd(a),
		newListCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

// setup loads configuration, lets explicitly set flags win over it and
// installs the process logger.
func (a *app) setup(flags *pflag.FlagSet) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = a.output
	}
	if !validFormat(cfg.Output) {
		return fmt.Errorf("invalid output format %q", cfg.Output)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// openHost starts a host over the configured artifacts. Callers must Close it.
func (a *app) openHost(cmd *cobra.Command) (*host.Host, error) {
	return host.New(cmd.Context(), a.cfg, a.logger)
}
