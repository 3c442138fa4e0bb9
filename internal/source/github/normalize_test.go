package github

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-consolidator/internal/model"
)

func TestToTasks_NotificationsThenIssues(t *testing.T) {
	updated := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	notifications := []Notification{
		{ID: "n1", Title: "First", Repository: "acme/widgets", Type: "PullRequest", Reason: "review_requested", UpdatedAt: updated},
		{ID: "n2", Title: "Second", Repository: "acme/gadgets", Type: "Issue", Reason: "mention", UpdatedAt: updated},
	}
	issues := []Issue{
		{ID: 10, Number: 1, Title: "Issue A", Repository: "acme/widgets"},
		{ID: 11, Number: 2, Title: "Issue B", Repository: "acme/widgets"},
		{ID: 12, Number: 3, Title: "Issue C", Repository: "acme/gadgets"},
	}

	tasks := ToTasks(notifications, issues)
	require.Len(t, tasks, len(notifications)+len(issues))

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"n1", "n2", "10", "11", "12"}, ids)
	assert.Equal(t, model.SourceTypeNotification, tasks[1].SourceType)
	assert.Equal(t, model.SourceTypeIssue, tasks[2].SourceType)
}

func TestToTasks_Empty(t *testing.T) {
	tasks := ToTasks(nil, nil)
	assert.Empty(t, tasks)
}

func TestToTasks_Notification(t *testing.T) {
	updated := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	tasks := ToTasks([]Notification{{
		ID:         "1001",
		Title:      "Add widget API",
		Repository: "acme/widgets",
		Type:       "PullRequest",
		URL:        "https://github.com/acme/widgets/pull/42",
		UpdatedAt:  updated,
		Reason:     "review_requested",
	}}, nil)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "1001", task.ID)
	assert.Equal(t, "Add widget API", task.Title)
	assert.Equal(t, "Type: PullRequest\nReason: review_requested", task.Description)
	assert.Equal(t, model.SourceGitHub, task.Source)
	assert.Equal(t, updated, task.CreatedAt)
	assert.Equal(t, updated, task.UpdatedAt)
	assert.Equal(t, []string{"repository", "type", "reason"}, task.Metadata.Keys())
	assert.Equal(t, "acme/widgets", task.Repository())
}

func TestToTasks_Issue(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	tasks := ToTasks(nil, []Issue{{
		ID:         987654321,
		Number:     42,
		Title:      "Crash on start",
		Body:       "",
		State:      "open",
		Repository: "acme/widgets",
		URL:        "https://github.com/acme/widgets/issues/42",
		CreatedAt:  created,
		UpdatedAt:  updated,
		Labels:     []string{"bug", "bug"},
		Assignees:  nil,
	}})
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "987654321", task.ID)
	assert.Equal(t, "", task.Description)
	assert.Equal(t, created, task.CreatedAt)
	assert.Equal(t, updated, task.UpdatedAt)
	assert.Equal(t,
		[]string{"repository", "number", "state", "labels", "assignees"},
		task.Metadata.Keys(),
	)

	number, ok := task.Metadata.Get(model.MetaNumber)
	require.True(t, ok)
	assert.Equal(t, 42, number.Number())

	labels, _ := task.Metadata.Get(model.MetaLabels)
	assert.Equal(t, []string{"bug", "bug"}, labels.List())

	assignees, _ := task.Metadata.Get(model.MetaAssignees)
	assert.Equal(t, []string{}, assignees.List())
}
