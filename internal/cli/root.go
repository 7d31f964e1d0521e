package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/config"
	"github.com/roach88/syncedhp/internal/logging"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger resolved from them before a command runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the syncedhp CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncedhp",
		Short: "syncedhp - shared vitality pools",
		Long: `Manage groups of participants that share a single vitality pool.

Damage and healing taken by one online member are applied to the pool and
mirrored to every other online member. Groups and memberships are kept in a
SQLite document that survives restarts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if opts.Verbose {
				cfg.LogLevel = "debug"
			}

			logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to configure logging", err)
			}

			opts.Config = cfg
			opts.Logger = logger
			return nil
		},
	}

	def := config.Default()
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./syncedhp.yaml or $HOME/.syncedhp/syncedhp.yaml)")
	flags.String("db", def.Database, "path to SQLite database")
	flags.String("session", def.Session, "session file describing online participants")
	flags.Duration("poll-interval", def.PollInterval, "respawn watcher poll interval")
	flags.String("log-level", def.LogLevel, "log level (debug|info|warn|error)")
	flags.String("log-format", def.LogFormat, "log format (text|json)")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
