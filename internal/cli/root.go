// Package cli provides the gatectl command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/gate-remote/internal/app"
	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/env"
	"github.com/thatsimonsguy/gate-remote/internal/logging"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
)

// Version is set during build time
var Version = "dev"

type rootOptions struct {
	configFile string
	dbPath     string
	logLevel   string
}

// Execute runs the root command; ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gatectl",
		Short: "Remote control for a networked gate controller",
		Long: `gatectl talks to a gate controller over its HTTP API.

It reads the gate endpoint and bearer token from the local settings
database (seeded from the config file) and can query, open and close
the gate, follow the local countdown, and inspect the operation history.

Example:
  # Store credentials once
  gatectl creds set --url https://gate.example.net --token s3cret

  # Open the gate and follow the countdown
  gatectl open --follow`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config-file", "config.json", "Path to gate-remote config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the SQLite database file (overrides db_path)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newStatusCmd(opts),
		newHealthCmd(opts),
		newGateCommandCmd(opts, "open"),
		newGateCommandCmd(opts, "close"),
		newCredsCmd(opts),
		newDurationsCmd(opts),
		newHistoryCmd(opts),
		newInstallServiceCmd(),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) load() error {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return err
	}
	cfg.LogLevel = config.ParseLogLevel(o.logLevel)
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}

	logging.Init(cfg.LogLevel, "")
	env.Cfg = &cfg
	return nil
}

func (o *rootOptions) stack(extra ...orchestrator.Option) (*app.Stack, error) {
	stack, err := app.Build(env.Cfg, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to open gate stack: %w", err)
	}
	return stack, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatectl version %s\n", Version)
		},
	}
}
