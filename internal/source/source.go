package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/task-consolidator/internal/model"
)

// Name identifies a concrete source integration in errors and logs.
type Name string

const (
	NameGitHub Name = "github"
	NameMail   Name = "mail"
)

// AuthError indicates that authentication has failed or expired for a source.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	Source  Name
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Source, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// RequestError is any failed call to an upstream service. It aborts the
// run.
type RequestError struct {
	Source Name
	Method string
	Path   string

	// Status is the HTTP status code, or 0 when no response was received.
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s request %s %s failed: %s", e.Source, e.Method, e.Path, msg)
	}
	return fmt.Sprintf(
		"%s request %s %s failed (%d): %s",
		e.Source, e.Method, e.Path, e.Status, msg,
	)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsRequestError reports whether err (or any error in its chain) is a
// RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// TaskSource is an integration that produces unified tasks directly,
// without a separate normalization step.
type TaskSource interface {
	// Name returns the source identifier used in logs and progress output.
	Name() Name

	// FetchTasks retrieves the source's pending items as tasks.
	FetchTasks(ctx context.Context) ([]model.Task, error)
}
