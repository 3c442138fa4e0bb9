// Package app sequences a fetch run: collect notifications and issues,
// normalize them, write the formatted result, then deliver and
// acknowledge as requested.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nhle/task-consolidator/internal/format"
	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/source"
	"github.com/nhle/task-consolidator/internal/source/github"
	"github.com/nhle/task-consolidator/internal/store"
	"github.com/nhle/task-consolidator/internal/theme"
)

// sourceTimeout bounds a single additional source fetch.
const sourceTimeout = 30 * time.Second

// GitHubSource is the issue-tracker client the fetch run depends on.
type GitHubSource interface {
	ListNotifications(ctx context.Context) ([]github.Notification, error)
	ListAssignedIssues(ctx context.Context, username string) ([]github.Issue, error)
	ListOrgIssues(ctx context.Context, org, username string) ([]github.Issue, error)
	AcknowledgeRead(ctx context.Context, notifications []github.Notification) int
	AcknowledgeDone(ctx context.Context, notifications []github.Notification) int
}

// Sink delivers tasks to an external to-do application.
type Sink interface {
	AddTasks(ctx context.Context, tasks []model.Task) (int, error)
}

// Exporter records a run's tasks.
type Exporter interface {
	SaveRun(ctx context.Context, run store.Run, tasks []model.Task) (string, error)
}

// FetchOptions are the per-run choices made on the command line.
type FetchOptions struct {
	// Format is "json" or "markdown".
	Format string

	// Output is the file to write; empty prints to Stdout.
	Output string

	Org      string
	Username string

	Things   bool
	MarkRead bool
	MarkDone bool
}

// Summary reports what a run did.
type Summary struct {
	Notifications int
	Issues        int
	Extra         int
	Tasks         int
	Delivered     int
	MarkedRead    int
	MarkedDone    int
	RunID         string
}

// Fetcher runs the fetch pipeline. GitHub is required; Sources, Sink and
// Exporter are optional.
type Fetcher struct {
	GitHub   GitHubSource
	Sources  []source.TaskSource
	Sink     Sink
	Exporter Exporter
	Reporter *Reporter
	Stdout   io.Writer
	Logger   *slog.Logger
}

// Run executes one fetch. The output format is validated before any
// network call. Acknowledgment and delivery failures are reported but do
// not fail the run; every other failure aborts it.
func (f *Fetcher) Run(ctx context.Context, opts FetchOptions) (*Summary, error) {
	mode, err := format.Parse(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Things && f.Sink == nil {
		return nil, errors.New("delivery requested but no sink is configured")
	}

	f.defaults()
	started := time.Now()
	summary := &Summary{}

	f.Reporter.Step("Fetching tasks from GitHub...")
	notifications, err := f.GitHub.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	summary.Notifications = len(notifications)
	f.Reporter.Success(fmt.Sprintf("Found %s notifications", count(len(notifications))))

	issues, err := f.fetchIssues(ctx, opts)
	if err != nil {
		return nil, err
	}
	summary.Issues = len(issues)
	f.Reporter.Success(fmt.Sprintf("Found %s assigned issues", count(len(issues))))

	tasks := github.ToTasks(notifications, issues)

	for _, src := range f.Sources {
		extra, err := f.fetchSource(ctx, src)
		if err != nil {
			return nil, err
		}
		summary.Extra += len(extra)
		tasks = append(tasks, extra...)
	}

	summary.Tasks = len(tasks)
	f.Reporter.Success(fmt.Sprintf("Consolidated %s total tasks", count(len(tasks))))

	out, err := format.Tasks(tasks, mode)
	if err != nil {
		return nil, err
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", opts.Output, err)
		}
		f.Reporter.Success("Exported to " + theme.PathStyle.Render(opts.Output))
	} else {
		fmt.Fprintln(f.Stdout, out)
	}

	if f.Exporter != nil {
		runID, err := f.Exporter.SaveRun(ctx, store.Run{
			StartedAt: started,
			Format:    string(mode),
		}, tasks)
		if err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
		summary.RunID = runID
		f.Logger.Debug("recorded run", "run", runID, "tasks", len(tasks))
	}

	if opts.Things {
		f.Reporter.Step("Adding tasks to Things 3...")
		delivered, err := f.Sink.AddTasks(ctx, tasks)
		summary.Delivered = delivered
		f.Reporter.Success(fmt.Sprintf(
			"Added %s tasks to %s", count(delivered), theme.AppStyle.Render("Things 3"),
		))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.Reporter.Warn(fmt.Sprintf("%d tasks could not be added", len(tasks)-delivered))
		}
	}

	if opts.MarkRead && len(notifications) > 0 {
		f.Reporter.Step("Marking notifications as read...")
		summary.MarkedRead = f.GitHub.AcknowledgeRead(ctx, notifications)
		f.Reporter.Success(fmt.Sprintf("Marked %s notifications as read", count(summary.MarkedRead)))
	}

	if opts.MarkDone && len(notifications) > 0 {
		f.Reporter.Step("Marking notifications as done...")
		summary.MarkedDone = f.GitHub.AcknowledgeDone(ctx, notifications)
		f.Reporter.Success(fmt.Sprintf("Marked %s notifications as done", count(summary.MarkedDone)))
	}

	f.Reporter.Done()
	return summary, nil
}

// fetchIssues lists org-scoped issues when both an org and a username are
// known, and the authenticated user's assigned issues otherwise.
func (f *Fetcher) fetchIssues(ctx context.Context, opts FetchOptions) ([]github.Issue, error) {
	switch {
	case opts.Org != "" && opts.Username != "":
		f.Reporter.Step("Fetching issues from organization: " + theme.EmphasisStyle.Render(opts.Org) + "...")
		return f.GitHub.ListOrgIssues(ctx, opts.Org, opts.Username)
	case opts.Username != "":
		f.Reporter.Step("Fetching assigned issues for user: " + theme.EmphasisStyle.Render(opts.Username) + "...")
	default:
		f.Reporter.Step("Fetching assigned issues...")
	}
	return f.GitHub.ListAssignedIssues(ctx, opts.Username)
}

func (f *Fetcher) fetchSource(ctx context.Context, src source.TaskSource) ([]model.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	f.Reporter.Step(fmt.Sprintf("Fetching tasks from %s...", theme.SourceLabelStyle(string(src.Name())).Render(string(src.Name()))))
	tasks, err := src.FetchTasks(ctx)
	if err != nil {
		return nil, err
	}
	f.Reporter.Success(fmt.Sprintf("Found %s %s tasks", count(len(tasks)), src.Name()))
	return tasks, nil
}

func (f *Fetcher) defaults() {
	if f.Reporter == nil {
		f.Reporter = NewReporter(io.Discard)
	}
	if f.Stdout == nil {
		f.Stdout = os.Stdout
	}
	if f.Logger == nil {
		f.Logger = slog.Default()
	}
}
