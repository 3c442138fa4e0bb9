// Package format serializes unified task lists for output.
package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/task-consolidator/internal/model"
)

// Format selects an output representation.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "markdown"
)

// UnsupportedFormatError is returned for any format other than JSON or
// Markdown.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Format)
}

// Parse validates a user-supplied format name. Names are matched exactly.
func Parse(name string) (Format, error) {
	switch f := Format(name); f {
	case JSON, Markdown:
		return f, nil
	default:
		return "", &UnsupportedFormatError{Format: name}
	}
}

// Tasks renders tasks in format f. It has no side effects and is
// deterministic for a given input.
func Tasks(tasks []model.Task, f Format) (string, error) {
	switch f {
	case JSON:
		return toJSON(tasks)
	case Markdown:
		return toMarkdown(tasks), nil
	default:
		return "", &UnsupportedFormatError{Format: string(f)}
	}
}

func toJSON(tasks []model.Task) (string, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return "", fmt.Errorf("encoding tasks: %w", err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// group is the tasks of one source, in insertion order.
type group struct {
	source model.Source
	tasks  []model.Task
}

// groupBySource partitions tasks by source, keeping first-seen group order.
func groupBySource(tasks []model.Task) []group {
	var groups []group
	index := make(map[model.Source]int)

	for _, t := range tasks {
		i, ok := index[t.Source]
		if !ok {
			i = len(groups)
			index[t.Source] = i
			groups = append(groups, group{source: t.Source})
		}
		groups[i].tasks = append(groups[i].tasks, t)
	}
	return groups
}

func toMarkdown(tasks []model.Task) string {
	var b strings.Builder
	b.WriteString("# Tasks\n\n")

	for _, g := range groupBySource(tasks) {
		fmt.Fprintf(&b, "## %s\n\n", capitalize(string(g.source)))

		for _, t := range g.tasks {
			writeTask(&b, t)
		}
	}

	return b.String()
}

func writeTask(b *strings.Builder, t model.Task) {
	fmt.Fprintf(b, "### %s\n\n", t.Title)

	if t.Description != "" {
		fmt.Fprintf(b, "%s\n\n", t.Description)
	}

	fmt.Fprintf(b, "- **Type**: %s\n", t.SourceType)
	fmt.Fprintf(b, "- **Created**: %s\n", timestamp(t.CreatedAt))
	fmt.Fprintf(b, "- **Updated**: %s\n", timestamp(t.UpdatedAt))

	if t.URL != "" {
		fmt.Fprintf(b, "- **URL**: %s\n", t.URL)
	}

	if len(t.Metadata) > 0 {
		b.WriteString("\n**Metadata:**\n")
		for _, f := range t.Metadata {
			if f.Value.IsEmpty() {
				continue
			}
			fmt.Fprintf(b, "- %s: %s\n", f.Key, f.Value)
		}
	}

	b.WriteString("\n---\n\n")
}

// timestamp renders t as ISO-8601, or "" for the zero time.
func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// capitalize upper-cases the first character of s.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
