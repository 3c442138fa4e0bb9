// Package mail turns flagged IMAP messages into unified tasks.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/source"
)

const noSubject = "(no subject)"

// Mailbox is the subset of IMAPClient the adapter needs.
type Mailbox interface {
	Validate(ctx context.Context, mailbox string) error
	FetchFlagged(ctx context.Context, mailbox string, limit int) ([]Message, error)
}

// Adapter implements source.TaskSource for an IMAP mailbox.
type Adapter struct {
	client  Mailbox
	mailbox string
	limit   int
	logger  *slog.Logger
}

// Ensure Adapter implements source.TaskSource.
var _ source.TaskSource = (*Adapter)(nil)

// NewAdapter creates a mail source from cfg. password is resolved by the
// caller (environment or keyring).
func NewAdapter(cfg model.MailConfig, password string, logger *slog.Logger) *Adapter {
	client := NewIMAPClient(cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS)
	return NewAdapterWithClient(client, cfg.Mailbox, cfg.Limit, logger)
}

// NewAdapterWithClient creates a mail source backed by client.
func NewAdapterWithClient(client Mailbox, mailbox string, limit int, logger *slog.Logger) *Adapter {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		client:  client,
		mailbox: mailbox,
		limit:   limit,
		logger:  logger,
	}
}

// Name returns the source identifier for mail.
func (a *Adapter) Name() source.Name {
	return source.NameMail
}

// ValidateConnection verifies the IMAP credentials and mailbox.
func (a *Adapter) ValidateConnection(ctx context.Context) error {
	if err := a.client.Validate(ctx, a.mailbox); err != nil {
		return fmt.Errorf("validating mail connection: %w", err)
	}
	return nil
}

// FetchTasks reads flagged messages and converts them to tasks.
func (a *Adapter) FetchTasks(ctx context.Context) ([]model.Task, error) {
	messages, err := a.client.FetchFlagged(ctx, a.mailbox, a.limit)
	if err != nil {
		return nil, fmt.Errorf("fetching mail tasks: %w", err)
	}

	a.logger.Debug("fetched flagged messages", "mailbox", a.mailbox, "count", len(messages))

	tasks := make([]model.Task, 0, len(messages))
	for _, msg := range messages {
		tasks = append(tasks, ToTask(msg, a.mailbox))
	}
	return tasks, nil
}

// ToTask converts a message to a task. Messages carry no web URL.
func ToTask(msg Message, mailbox string) model.Task {
	title := msg.Subject
	if title == "" {
		title = noSubject
	}

	return model.Task{
		ID:          fmt.Sprintf("email-%d", msg.UID),
		Title:       title,
		Description: msg.TextBody,
		Source:      model.SourceOther,
		SourceType:  model.SourceTypeEmail,
		CreatedAt:   msg.Date,
		UpdatedAt:   msg.Date,
		Metadata: model.Metadata{
			{Key: model.MetaFrom, Value: model.StringValue(msg.From)},
			{Key: model.MetaMailbox, Value: model.StringValue(mailbox)},
			{Key: model.MetaFlags, Value: model.ListValue(msg.Flags)},
		},
	}
}
