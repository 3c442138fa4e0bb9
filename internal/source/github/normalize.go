package github

import (
	"fmt"
	"strconv"

	"github.com/nhle/task-consolidator/internal/model"
)

// ToTasks converts notifications and issues into unified tasks: all
// notifications first, then all issues, each in input order. The same
// item appearing in both lists yields two tasks.
func ToTasks(notifications []Notification, issues []Issue) []model.Task {
	tasks := make([]model.Task, 0, len(notifications)+len(issues))

	for _, n := range notifications {
		tasks = append(tasks, notificationToTask(n))
	}
	for _, i := range issues {
		tasks = append(tasks, issueToTask(i))
	}

	return tasks
}

func notificationToTask(n Notification) model.Task {
	return model.Task{
		ID:          n.ID,
		Title:       n.Title,
		Description: fmt.Sprintf("Type: %s\nReason: %s", n.Type, n.Reason),
		Source:      model.SourceGitHub,
		SourceType:  model.SourceTypeNotification,
		URL:         n.URL,
		CreatedAt:   n.UpdatedAt,
		UpdatedAt:   n.UpdatedAt,
		Metadata: model.Metadata{
			{Key: model.MetaRepository, Value: model.StringValue(n.Repository)},
			{Key: model.MetaType, Value: model.StringValue(n.Type)},
			{Key: model.MetaReason, Value: model.StringValue(n.Reason)},
		},
	}
}

func issueToTask(i Issue) model.Task {
	return model.Task{
		ID:          strconv.FormatInt(i.ID, 10),
		Title:       i.Title,
		Description: i.Body,
		Source:      model.SourceGitHub,
		SourceType:  model.SourceTypeIssue,
		URL:         i.URL,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		Metadata: model.Metadata{
			{Key: model.MetaRepository, Value: model.StringValue(i.Repository)},
			{Key: model.MetaNumber, Value: model.NumberValue(i.Number)},
			{Key: model.MetaState, Value: model.StringValue(i.State)},
			{Key: model.MetaLabels, Value: model.ListValue(i.Labels)},
			{Key: model.MetaAssignees, Value: model.ListValue(i.Assignees)},
		},
	}
}
