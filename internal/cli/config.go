package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/task-consolidator/internal/app"
	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/theme"
)

func newConfigCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(newConfigInitCommand(global))

	return cmd
}

func newConfigInitCommand(global *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the current settings",
		Long: `Write the effective configuration (defaults, environment and any
existing file) to the --config path. Tokens and passwords are never
written; keep them in the environment or the system keyring.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(global.configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", global.configPath)
			}

			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}

			if err := model.SaveConfig(global.configPath, cfg); err != nil {
				return err
			}

			app.NewReporter(cmd.OutOrStdout()).Success(
				"Wrote " + theme.PathStyle.Render(global.configPath),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
