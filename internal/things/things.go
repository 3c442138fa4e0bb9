// Package things delivers unified tasks to the Things to-do app through
// its URL scheme (https://culturedcode.com/things/support/articles/2803573/).
package things

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nhle/task-consolidator/internal/model"
)

// verboseDescriptionLimit is the length at which a description is left out
// of the notes entirely.
const verboseDescriptionLimit = 500

// DeliveryError is a failure to hand one task to the to-do app.
type DeliveryError struct {
	TaskID string
	Title  string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to add task %s (%q): %v", e.TaskID, e.Title, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sink pushes tasks into Things one at a time.
type Sink struct {
	opener     Opener
	scheme     string
	projectTag string
	when       string
	delay      time.Duration
	logger     *slog.Logger
}

// NewSink creates a sink from cfg. Tasks are handed to opener as
// "<scheme>:///add?..." URLs.
func NewSink(cfg model.ThingsConfig, opener Opener, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{
		opener:     opener,
		scheme:     cfg.Scheme,
		projectTag: cfg.ProjectTag,
		when:       cfg.When,
		delay:      cfg.Delay,
		logger:     logger,
	}
	if s.scheme == "" {
		s.scheme = "things"
	}
	if s.when == "" {
		s.when = "today"
	}
	return s
}

// AddTask delivers a single task.
func (s *Sink) AddTask(ctx context.Context, task model.Task) error {
	if err := s.opener.Open(ctx, s.URL(task)); err != nil {
		return &DeliveryError{TaskID: task.ID, Title: task.Title, Err: err}
	}
	return nil
}

// AddTasks delivers tasks sequentially, waiting the configured delay
// between deliveries. A failed task is logged and skipped; the returned
// error joins every DeliveryError and is nil when all tasks were added.
func (s *Sink) AddTasks(ctx context.Context, tasks []model.Task) (int, error) {
	var errs []error
	delivered := 0

	for i, task := range tasks {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return delivered, errors.Join(append(errs, ctx.Err())...)
			case <-time.After(s.delay):
			}
		}

		if err := s.AddTask(ctx, task); err != nil {
			s.logger.Warn(err.Error(), "task", task.ID)
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	return delivered, errors.Join(errs...)
}

// URL builds the add-task invocation for task. Parameters are
// percent-encoded with spaces as %20.
func (s *Sink) URL(task model.Task) string {
	params := []string{
		"title=" + escape(task.Title),
		"notes=" + escape(Notes(task)),
		"tags=" + escape(strings.Join(Tags(task, s.projectTag), ",")),
		"when=" + escape(s.when),
	}
	return s.scheme + ":///add?" + strings.Join(params, "&")
}

// Tags returns the project tag, the task source and, when the task has a
// repository, the repository name without its owner.
func Tags(task model.Task, projectTag string) []string {
	var tags []string
	if projectTag != "" {
		tags = append(tags, projectTag)
	}
	tags = append(tags, string(task.Source))

	if repo := task.Repository(); repo != "" {
		parts := strings.Split(repo, "/")
		if name := parts[len(parts)-1]; name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}

// Notes assembles the note body: repository, number, URL, a short
// description and labels, each only when present.
func Notes(task model.Task) string {
	var b strings.Builder

	if repo := task.Repository(); repo != "" {
		fmt.Fprintf(&b, "📁 %s\n", repo)
	}

	if number, ok := task.Metadata.Get(model.MetaNumber); ok && !number.IsEmpty() {
		fmt.Fprintf(&b, "#%s\n", number)
	}

	b.WriteString("\n")

	if task.URL != "" {
		fmt.Fprintf(&b, "🔗 %s\n\n", task.URL)
	}

	if task.Description != "" &&
		utf8.RuneCountInString(task.Description) < verboseDescriptionLimit {
		fmt.Fprintf(&b, "%s\n\n", task.Description)
	}

	if labels, ok := task.Metadata.Get(model.MetaLabels); ok &&
		labels.Kind() == model.KindList && len(labels.List()) > 0 {
		fmt.Fprintf(&b, "🏷️ %s\n", strings.Join(labels.List(), ", "))
	}

	return strings.TrimSpace(b.String())
}

// escape percent-encodes s for a query value, using %20 for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
