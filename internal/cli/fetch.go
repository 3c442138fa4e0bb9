package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/task-consolidator/internal/app"
	"github.com/nhle/task-consolidator/internal/credential"
	"github.com/nhle/task-consolidator/internal/format"
	"github.com/nhle/task-consolidator/internal/source"
	"github.com/nhle/task-consolidator/internal/source/github"
	"github.com/nhle/task-consolidator/internal/source/mail"
	"github.com/nhle/task-consolidator/internal/store"
	"github.com/nhle/task-consolidator/internal/things"
)

type fetchOptions struct {
	format   string
	output   string
	things   bool
	markRead bool
	markDone bool
	org      string
	username string
	mail     bool
	db       string
}

func newFetchCommand(global *globalOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch notifications and assigned issues",
		Long: `Fetch GitHub notifications and open assigned issues, normalize them
into tasks and print them (or write them to --output).

Issues come from every repository of --org when both an organization and
a username are known, and from the authenticated user's assignments
otherwise.`,
		Example: `  task-consolidator fetch
  task-consolidator fetch -f markdown -o tasks.md
  task-consolidator fetch --org acme --username octocat -t -r`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format (json, markdown)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVarP(&opts.things, "things", "t", false, "Add tasks to Things 3")
	cmd.Flags().BoolVarP(&opts.markRead, "mark-read", "r", false, "Mark fetched notifications as read")
	cmd.Flags().BoolVarP(&opts.markDone, "mark-done", "d", false, "Mark fetched notifications as done")
	cmd.Flags().StringVar(&opts.org, "org", "", "Organization whose repositories are searched for issues")
	cmd.Flags().StringVar(&opts.username, "username", "", "GitHub username for issue assignment")
	cmd.Flags().BoolVar(&opts.mail, "mail", false, "Include flagged mail from the configured IMAP mailbox")
	cmd.Flags().StringVar(&opts.db, "db", "", "Record the run in a SQLite database at this path")

	return cmd
}

func runFetch(cmd *cobra.Command, global *globalOptions, opts *fetchOptions) error {
	ctx := cmd.Context()

	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}

	formatName := cfg.Output.Format
	if opts.format != "" {
		formatName = opts.format
	}
	if _, err := format.Parse(formatName); err != nil {
		return err
	}

	if opts.org != "" {
		cfg.GitHub.Org = opts.org
	}
	if opts.username != "" {
		cfg.GitHub.Username = opts.username
	}

	reporter := app.NewReporter(cmd.ErrOrStderr())

	resolver := newResolver(logger)
	creds, err := resolver.Resolve(ctx, cfg.GitHub)
	if err != nil {
		return err
	}
	if creds.Via == credential.ViaGHCLI {
		reporter.Success("Using GitHub CLI authentication")
	}

	client := github.NewClient(ctx, cfg.GitHub.APIURL, creds.Token)
	fetcher := &app.Fetcher{
		GitHub:   github.NewAdapter(client, logger),
		Reporter: reporter,
		Stdout:   cmd.OutOrStdout(),
		Logger:   logger,
	}

	if opts.mail || cfg.Mail.Enabled {
		password, err := credential.MailPassword(cfg.Mail, keyringGet)
		if err != nil {
			return fmt.Errorf("%w (set TC_MAIL_PASSWORD or run: task-consolidator auth mail-login)", err)
		}
		fetcher.Sources = []source.TaskSource{mail.NewAdapter(cfg.Mail, password, logger)}
	}

	if opts.things {
		fetcher.Sink = things.NewSink(cfg.Things, opener, logger)
	}

	if opts.db != "" {
		s, err := store.NewSQLiteStore(opts.db)
		if err != nil {
			return fmt.Errorf("opening %s: %w", opts.db, err)
		}
		defer s.Close()
		fetcher.Exporter = s
	}

	_, err = fetcher.Run(ctx, app.FetchOptions{
		Format:   formatName,
		Output:   opts.output,
		Org:      creds.Org,
		Username: creds.Username,
		Things:   opts.things,
		MarkRead: opts.markRead,
		MarkDone: opts.markDone,
	})
	return err
}
