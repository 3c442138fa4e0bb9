package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/task-consolidator/internal/app"
	"github.com/nhle/task-consolidator/internal/credential"
	"github.com/nhle/task-consolidator/internal/source/github"
	"github.com/nhle/task-consolidator/internal/source/mail"
	"github.com/nhle/task-consolidator/internal/theme"
)

func newAuthCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	cmd.AddCommand(
		newAuthLoginCommand(global),
		newAuthLogoutCommand(),
		newAuthStatusCommand(global),
		newAuthMailLoginCommand(global),
	)

	return cmd
}

func newAuthLoginCommand(global *globalOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a GitHub token in the system keyring",
		Long: `Verify a GitHub personal access token against the API and store it in
the system keyring. Without --token the token is read from a masked prompt.
GITHUB_TOKEN still takes precedence over the stored token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}

			token = strings.TrimSpace(token)
			if token == "" {
				token, err = promptSecret("GitHub token", "A personal access token with the notifications and repo scopes")
				if err != nil {
					return err
				}
			}

			client := github.NewClient(cmd.Context(), cfg.GitHub.APIURL, token)
			login, err := github.NewAdapter(client, logger).ValidateConnection(cmd.Context())
			if err != nil {
				return err
			}

			if err := keyringSet(credential.GitHubTokenKey, token); err != nil {
				return err
			}

			app.NewReporter(cmd.OutOrStdout()).Success(
				"Logged in as " + theme.EmphasisStyle.Render(login),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token to store (prompted when omitted)")

	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored GitHub token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := app.NewReporter(cmd.OutOrStdout())

			err := keyringDelete(credential.GitHubTokenKey)
			if errors.Is(err, credential.ErrNotFound) {
				r.Hint("No stored GitHub token")
				return nil
			}
			if err != nil {
				return err
			}

			r.Success("Removed stored GitHub token")
			return nil
		},
	}
}

func newAuthStatusCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials a fetch would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}

			resolver := newResolver(logger)
			creds, err := resolver.Resolve(cmd.Context(), cfg.GitHub)
			if err != nil {
				return err
			}

			r := app.NewReporter(cmd.OutOrStdout())
			r.Success("Token from " + theme.AppStyle.Render(creds.Via.Describe()))

			if creds.Username != "" {
				r.Success("Username: " + theme.EmphasisStyle.Render(creds.Username))
			} else {
				r.Hint("No username configured; assigned issues come from the token's user")
			}
			if creds.Org != "" {
				r.Success("Organization: " + theme.EmphasisStyle.Render(creds.Org))
			}
			return nil
		},
	}
}

func newAuthMailLoginCommand(global *globalOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "mail-login",
		Short: "Store the IMAP password in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Mail.Host == "" || cfg.Mail.Username == "" {
				return errors.New("mail.host and mail.username must be set in the config file")
			}

			password, err := promptSecret(
				"IMAP password",
				fmt.Sprintf("Password for %s on %s", cfg.Mail.Username, cfg.Mail.Host),
			)
			if err != nil {
				return err
			}

			if verify {
				adapter := mail.NewAdapter(cfg.Mail, password, logger)
				if err := adapter.ValidateConnection(cmd.Context()); err != nil {
					return err
				}
			}

			if err := keyringSet(credential.MailPasswordKey, password); err != nil {
				return err
			}

			app.NewReporter(cmd.OutOrStdout()).Success("Stored mail password for " + cfg.Mail.Username)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", true, "Log in to the IMAP server before storing the password")

	return cmd
}
