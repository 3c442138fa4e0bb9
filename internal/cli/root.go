// Package cli provides the command-line interface for task-consolidator.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nhle/task-consolidator/internal/credential"
	"github.com/nhle/task-consolidator/internal/logging"
	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/things"
)

// Function variables for side effects, replaced in tests.
var (
	keyringGet    = credential.Get
	keyringSet    = credential.Set
	keyringDelete = credential.Delete
	ghRun         credential.Runner = credential.RunGH
	opener        things.Opener     = things.SystemOpener{}
	promptSecret                    = promptSecretHuh
	dotEnvPath                      = model.DefaultDotEnvPath
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root command. version is shown by the
// version subcommand and --version.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "task-consolidator",
		Short: "Consolidate tasks from GitHub and other sources",
		Long: `task-consolidator gathers GitHub notifications and assigned issues
(plus flagged mail, when enabled) into one task list. The list can be
printed or exported as JSON or Markdown, pushed into Things 3, and the
fetched notifications marked read or done.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error)")

	root.AddCommand(
		newFetchCommand(opts),
		newAuthCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(version),
	)

	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}

// load reads the configuration and builds the diagnostic logger. The
// --log-level flag overrides log.level.
func (o *globalOptions) load(cmd *cobra.Command) (*model.AppConfig, *slog.Logger, error) {
	cfg, err := model.LoadConfig(o.configPath, dotEnvPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}

	return cfg, logging.New(level, cmd.ErrOrStderr()), nil
}

// newResolver builds a credential resolver that goes through the
// package's gh and keyring hooks.
func newResolver(logger *slog.Logger) *credential.Resolver {
	r := credential.NewResolver(logger)
	r.GH = ghRun
	r.Keyring = keyringGet
	return r
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("task-consolidator " + version + "\n"))
			return err
		},
	}
}
