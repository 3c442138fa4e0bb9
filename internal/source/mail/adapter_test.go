package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-consolidator/internal/logging"
	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/source"
)

type fakeMailbox struct {
	messages []Message
	err      error

	gotMailbox string
	gotLimit   int
}

func (f *fakeMailbox) Validate(_ context.Context, mailbox string) error {
	f.gotMailbox = mailbox
	return f.err
}

func (f *fakeMailbox) FetchFlagged(_ context.Context, mailbox string, limit int) ([]Message, error) {
	f.gotMailbox = mailbox
	f.gotLimit = limit
	return f.messages, f.err
}

func TestToTask(t *testing.T) {
	date := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	task := ToTask(Message{
		UID:      17,
		Subject:  "Invoice overdue",
		From:     "Billing",
		Date:     date,
		Flags:    []string{`\Flagged`, `\Seen`},
		TextBody: "Please pay",
	}, "INBOX")

	assert.Equal(t, "email-17", task.ID)
	assert.Equal(t, "Invoice overdue", task.Title)
	assert.Equal(t, "Please pay", task.Description)
	assert.Equal(t, model.SourceOther, task.Source)
	assert.Equal(t, model.SourceTypeEmail, task.SourceType)
	assert.Empty(t, task.URL)
	assert.Equal(t, date, task.CreatedAt)
	assert.Equal(t, date, task.UpdatedAt)
	assert.Equal(t, []string{model.MetaFrom, model.MetaMailbox, model.MetaFlags}, task.Metadata.Keys())

	flags, _ := task.Metadata.Get(model.MetaFlags)
	assert.Equal(t, []string{`\Flagged`, `\Seen`}, flags.List())
}

func TestToTask_NoSubject(t *testing.T) {
	task := ToTask(Message{UID: 3}, "INBOX")
	assert.Equal(t, "(no subject)", task.Title)

	flags, _ := task.Metadata.Get(model.MetaFlags)
	assert.Equal(t, model.KindList, flags.Kind())
	assert.Empty(t, flags.List())
}

func TestAdapter_FetchTasks(t *testing.T) {
	fake := &fakeMailbox{messages: []Message{
		{UID: 1, Subject: "one"},
		{UID: 2, Subject: "two"},
	}}
	a := NewAdapterWithClient(fake, "", 25, logging.Discard())

	tasks, err := a.FetchTasks(context.Background())
	require.NoError(t, err)

	require.Len(t, tasks, 2)
	assert.Equal(t, "email-1", tasks[0].ID)
	assert.Equal(t, "email-2", tasks[1].ID)
	assert.Equal(t, "INBOX", fake.gotMailbox)
	assert.Equal(t, 25, fake.gotLimit)
	assert.Equal(t, source.NameMail, a.Name())
}

func TestAdapter_FetchTasksError(t *testing.T) {
	fake := &fakeMailbox{err: &source.AuthError{Source: source.NameMail, Message: "bad password"}}
	a := NewAdapterWithClient(fake, "Todo", 0, logging.Discard())

	_, err := a.FetchTasks(context.Background())
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))

	err = a.ValidateConnection(context.Background())
	assert.True(t, source.IsAuthError(err))
	assert.Equal(t, "Todo", fake.gotMailbox)
}

func TestAdapter_ValidateConnection(t *testing.T) {
	a := NewAdapterWithClient(&fakeMailbox{}, "INBOX", 0, logging.Discard())
	assert.NoError(t, a.ValidateConnection(context.Background()))

	a = NewAdapterWithClient(&fakeMailbox{err: errors.New("no such mailbox")}, "INBOX", 0, logging.Discard())
	assert.ErrorContains(t, a.ValidateConnection(context.Background()), "no such mailbox")
}

func TestParseTextBody(t *testing.T) {
	plain := "From: a@example.com\r\n" +
		"Subject: hi\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hello there\r\n"
	assert.Equal(t, "Hello there", parseTextBody([]byte(plain)))

	multipart := "From: a@example.com\r\n" +
		"Subject: hi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>Hello</p>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hello plain\r\n" +
		"--XYZ--\r\n"
	assert.Equal(t, "Hello plain", parseTextBody([]byte(multipart)))
}
