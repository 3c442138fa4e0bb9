package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// Acknowledgment actions.
const (
	ActionRead = "read"
	ActionDone = "done"
)

// AckError is a failure to acknowledge a single notification. It is logged
// and never aborts the batch.
type AckError struct {
	NotificationID string
	Action         string
	Err            error
}

func (e *AckError) Error() string {
	return fmt.Sprintf(
		"failed to mark notification %s as %s: %v",
		e.NotificationID, e.Action, e.Err,
	)
}

func (e *AckError) Unwrap() error { return e.Err }

// Adapter exposes the GitHub operations the fetch pipeline consumes.
type Adapter struct {
	client *Client
	logger *slog.Logger
}

// NewAdapter creates a new GitHub source adapter.
func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{client: client, logger: logger}
}

// ValidateConnection verifies credentials by calling GET /user.
// Returns the authenticated login on success.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	var me apiUser
	if _, err := a.client.Get(ctx, "/user", &me); err != nil {
		return "", fmt.Errorf("validating GitHub connection: %w", err)
	}
	return me.Login, nil
}

// ListNotifications returns the unread notifications of the authenticated
// user, with subject URLs rewritten to their browser form.
func (a *Adapter) ListNotifications(ctx context.Context) ([]Notification, error) {
	path := fmt.Sprintf(
		"/notifications?all=false&participating=false&per_page=%d", pageSize,
	)

	threads, err := getAll[apiNotification](ctx, a.client, path)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	notifications := make([]Notification, 0, len(threads))
	for _, t := range threads {
		notifications = append(notifications, Notification{
			ID:         t.ID,
			Title:      t.Subject.Title,
			Repository: t.Repository.FullName,
			Type:       t.Subject.Type,
			URL:        HTMLURL(t.Subject.URL),
			UpdatedAt:  t.UpdatedAt,
			Reason:     t.Reason,
		})
	}
	return notifications, nil
}

// ListAssignedIssues returns the open issues assigned to the authenticated
// user across every repository they can see. The API resolves the user
// from the token, so username only appears in logs.
func (a *Adapter) ListAssignedIssues(
	ctx context.Context,
	username string,
) ([]Issue, error) {
	a.logger.Debug("listing assigned issues", "username", username)

	path := fmt.Sprintf(
		"/issues?filter=assigned&state=open&per_page=%d", pageSize,
	)

	raw, err := getAll[apiIssue](ctx, a.client, path)
	if err != nil {
		return nil, fmt.Errorf("fetching assigned issues: %w", err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		repo := ""
		if r.Repository != nil {
			repo = r.Repository.FullName
		}
		issues = append(issues, issueFromAPI(r, repo))
	}
	return issues, nil
}

// ListOrgIssues lists every repository in org, then the open issues in each
// one assigned to username, concatenated in repository order.
func (a *Adapter) ListOrgIssues(
	ctx context.Context,
	org string,
	username string,
) ([]Issue, error) {
	reposPath := fmt.Sprintf(
		"/orgs/%s/repos?per_page=%d", url.PathEscape(org), pageSize,
	)

	repos, err := getAll[apiRepo](ctx, a.client, reposPath)
	if err != nil {
		return nil, fmt.Errorf("fetching repositories of %s: %w", org, err)
	}

	var issues []Issue
	for _, repo := range repos {
		path := fmt.Sprintf(
			"/repos/%s/%s/issues?assignee=%s&state=open&per_page=%d",
			url.PathEscape(org), url.PathEscape(repo.Name),
			url.QueryEscape(username), pageSize,
		)

		raw, err := getAll[apiIssue](ctx, a.client, path)
		if err != nil {
			return nil, fmt.Errorf(
				"fetching issues of %s/%s: %w", org, repo.Name, err,
			)
		}

		a.logger.Debug("listed repository issues",
			"repository", org+"/"+repo.Name, "count", len(raw))

		for _, r := range raw {
			issues = append(issues, issueFromAPI(r, org+"/"+repo.Name))
		}
	}
	return issues, nil
}

// AcknowledgeRead marks each notification read, keeping it in the inbox.
// Failures are logged per notification and processing continues. Returns
// the number of notifications acknowledged.
func (a *Adapter) AcknowledgeRead(
	ctx context.Context,
	notifications []Notification,
) int {
	return a.acknowledge(ctx, notifications, ActionRead)
}

// AcknowledgeDone marks each notification done, removing it from the
// inbox. Failure handling matches AcknowledgeRead.
func (a *Adapter) AcknowledgeDone(
	ctx context.Context,
	notifications []Notification,
) int {
	return a.acknowledge(ctx, notifications, ActionDone)
}

func (a *Adapter) acknowledge(
	ctx context.Context,
	notifications []Notification,
	action string,
) int {
	acked := 0
	for _, n := range notifications {
		if err := a.acknowledgeOne(ctx, n.ID, action); err != nil {
			ackErr := &AckError{NotificationID: n.ID, Action: action, Err: err}
			a.logger.Warn(ackErr.Error(),
				"notification", n.ID, "action", action)
			continue
		}
		acked++
	}
	return acked
}

func (a *Adapter) acknowledgeOne(ctx context.Context, id, action string) error {
	threadID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid thread id %q: %w", id, err)
	}

	path := fmt.Sprintf("/notifications/threads/%d", threadID)
	if action == ActionDone {
		return a.client.Delete(ctx, path)
	}
	return a.client.Patch(ctx, path)
}

// HTMLURL rewrites an API subject URL into the URL a browser would open:
// https://api.github.com/repos/o/r/pulls/1 becomes
// https://github.com/o/r/pull/1. Enterprise URLs of the form
// https://host/api/v3/repos/... are rewritten the same way. Other URLs
// are returned unchanged.
func HTMLURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return apiURL
	}

	switch {
	case strings.HasPrefix(u.Host, "api.") && strings.HasPrefix(u.Path, "/repos/"):
		u.Host = strings.TrimPrefix(u.Host, "api.")
		u.Path = strings.TrimPrefix(u.Path, "/repos")
	case strings.HasPrefix(u.Path, "/api/v3/repos/"):
		u.Path = strings.TrimPrefix(u.Path, "/api/v3/repos")
	default:
		return apiURL
	}

	u.Path = strings.Replace(u.Path, "/pulls/", "/pull/", 1)
	u.RawPath = ""
	return u.String()
}

func issueFromAPI(r apiIssue, repository string) Issue {
	body := ""
	if r.Body != nil {
		body = *r.Body
	}

	labels := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		labels = append(labels, l.Name)
	}

	assignees := make([]string, 0, len(r.Assignees))
	for _, u := range r.Assignees {
		assignees = append(assignees, u.Login)
	}

	return Issue{
		ID:         r.ID,
		Number:     r.Number,
		Title:      r.Title,
		Body:       body,
		State:      r.State,
		Repository: repository,
		URL:        r.HTMLURL,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Labels:     labels,
		Assignees:  assignees,
	}
}
