package model

import (
	"time"
)

// Source identifies the origin system of a task.
type Source string

const (
	SourceGitHub Source = "github"
	SourceSlack  Source = "slack"
	SourceOther  Source = "other"
)

// Source-specific record shapes carried in Task.SourceType.
const (
	SourceTypeNotification = "notification"
	SourceTypeIssue        = "issue"
	SourceTypeEmail        = "email"
)

// Well-known metadata keys.
const (
	MetaRepository = "repository"
	MetaType       = "type"
	MetaReason     = "reason"
	MetaNumber     = "number"
	MetaState      = "state"
	MetaLabels     = "labels"
	MetaAssignees  = "assignees"
	MetaFrom       = "from"
	MetaMailbox    = "mailbox"
	MetaFlags      = "flags"
)

// Task is the unified representation of a pending work item from any source.
// Tasks are built once per run and never modified afterwards.
type Task struct {
	// ID is unique within a single run only.
	ID string `json:"id"`

	// Title is the display title, copied verbatim from the source.
	Title string `json:"title"`

	// Description is free text. Issues always carry their body here,
	// even when it is empty.
	Description string `json:"description"`

	// Source is the system the task came from.
	Source Source `json:"source"`

	// SourceType distinguishes record shapes within a source
	// (see the SourceType* constants).
	SourceType string `json:"sourceType"`

	// URL links back to the originating item, when there is one.
	URL string `json:"url,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Metadata holds source-specific fields. Notifications carry
	// repository, type and reason; issues carry repository, number,
	// state, labels and assignees; emails carry from, mailbox and flags.
	Metadata Metadata `json:"metadata"`
}

// Repository returns the "owner/name" repository of the task, or "".
func (t Task) Repository() string {
	v, ok := t.Metadata.Get(MetaRepository)
	if !ok {
		return ""
	}
	return v.String()
}
