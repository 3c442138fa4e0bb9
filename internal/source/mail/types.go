package mail

import "time"

// Message holds the parts of an IMAP message that become a task.
type Message struct {
	UID       uint32
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	Flags     []string // \Seen, \Flagged, \Answered
	TextBody  string
}
