package github

import (
	"encoding/json"
	"time"
)

// Notification is an inbox entry pointing at an issue or pull request.
type Notification struct {
	ID         string
	Title      string
	Repository string
	Type       string

	// URL is the user-facing link to the subject (see HTMLURL).
	URL       string
	UpdatedAt time.Time
	Reason    string
}

// Issue is an open issue (or pull request) assigned to the user.
type Issue struct {
	ID         int64
	Number     int
	Title      string
	Body       string
	State      string
	Repository string
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Labels     []string
	Assignees  []string
}

// apiNotification is a thread from GET /notifications.
type apiNotification struct {
	ID         string     `json:"id"`
	Reason     string     `json:"reason"`
	Unread     bool       `json:"unread"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Subject    apiSubject `json:"subject"`
	Repository apiRepo    `json:"repository"`
}

// apiSubject is the issue, pull request or release a thread refers to.
type apiSubject struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// apiRepo is the repository summary embedded in notifications and issues,
// and the element type of GET /orgs/{org}/repos.
type apiRepo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// apiIssue is an element of GET /issues and GET /repos/{o}/{r}/issues.
type apiIssue struct {
	ID         int64      `json:"id"`
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	Body       *string    `json:"body"`
	State      string     `json:"state"`
	HTMLURL    string     `json:"html_url"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Labels     []apiLabel `json:"labels"`
	Assignees  []apiUser  `json:"assignees"`
	Repository *apiRepo   `json:"repository,omitempty"`
}

// apiLabel accepts both label objects and bare label names.
type apiLabel struct {
	Name string `json:"name"`
}

func (l *apiLabel) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &l.Name)
	}
	type plain apiLabel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = apiLabel(p)
	return nil
}

// apiUser is a GitHub account reference.
type apiUser struct {
	Login string `json:"login"`
}

// ErrorResponse is the standard GitHub error response format.
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
