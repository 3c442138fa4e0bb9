package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/task-consolidator/internal/source"
)

// IMAPClient wraps go-imap v2 for reading flagged messages from a mailbox.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(host, port, username, password string, tls bool) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client. The connection is closed when
// ctx is done, which fails any command still waiting on the server.
func (c *IMAPClient) Connect(ctx context.Context) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(c.host, c.port)

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, connectError(addr, err)
	}
	// imapclient manages read deadlines itself.
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	var client *imapclient.Client
	if c.tls {
		client = imapclient.New(conn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: c.host},
		})
		if err != nil {
			return nil, connectError(addr, err)
		}
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = client.Close()
			return nil, connectError(addr, ctxErr)
		}
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Source:  source.NameMail,
			Message: fmt.Sprintf("authentication failed for %s: %v", c.username, err),
		}
	}

	return client, nil
}

// dial opens the raw connection, negotiating implicit TLS when enabled.
func (c *IMAPClient) dial(ctx context.Context, addr string) (net.Conn, error) {
	if c.tls {
		d := &tls.Dialer{Config: &tls.Config{ServerName: c.host, NextProtos: []string{"imap"}}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func connectError(addr string, err error) error {
	return &source.RequestError{
		Source: source.NameMail,
		Method: "CONNECT",
		Path:   addr,
		Err:    err,
	}
}

// Validate logs in and selects mailbox.
func (c *IMAPClient) Validate(ctx context.Context, mailbox string) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}
	return nil
}

// FetchFlagged returns up to limit of the most recent flagged, undeleted
// messages in mailbox, with their text/plain bodies. The server's \Seen
// flag is left untouched.
func (c *IMAPClient) FetchFlagged(ctx context.Context, mailbox string, limit int) ([]Message, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		Flag:    []imap.Flag{imap.FlagFlagged},
		NotFlag: []imap.Flag{imap.FlagDeleted},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)

	var messages []Message
	for {
		data := fetchCmd.Next()
		if data == nil {
			break
		}

		buf, err := data.Collect()
		if err != nil {
			continue
		}

		msg := messageFromBuffer(buf)
		if raw := buf.FindBodySection(bodySection); raw != nil {
			msg.TextBody = parseTextBody(raw)
		}
		messages = append(messages, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// messageFromBuffer extracts envelope data and flags from a fetch buffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) Message {
	msg := Message{UID: uint32(buf.UID)}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.From = from.Name
			} else {
				msg.From = from.Addr()
			}
		}
	}

	for _, flag := range buf.Flags {
		msg.Flags = append(msg.Flags, string(flag))
	}

	return msg
}

// parseTextBody returns the first text/plain part of a raw RFC 5322
// message. A message go-message cannot parse is returned as-is.
func parseTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a malformed part
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		return strings.TrimSpace(string(body))
	}

	return ""
}
