package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/nhle/task-consolidator/internal/source"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// pageSize is requested on every list call; GitHub caps it at 100.
const pageSize = 100

// linkNextPattern extracts the rel="next" target from a Link header.
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client is a thin HTTP client for the GitHub REST API v3.
// Bearer authentication is handled by an oauth2 transport. Requests are
// issued one at a time and failures are returned as-is, without retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new GitHub HTTP client. The baseURL should be the
// API root (e.g., https://api.github.com or https://ghe.corp/api/v3).
// An HTTP client stored in ctx under oauth2.HTTPClient is used as the
// underlying transport.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
// It returns the URL of the next page, or "" on the last page.
func (c *Client) Get(
	ctx context.Context,
	path string,
	result interface{},
) (string, error) {
	header, err := c.do(ctx, http.MethodGet, path, result)
	if err != nil {
		return "", err
	}
	return nextPage(header), nil
}

// Patch performs an HTTP PATCH request without a body.
func (c *Client) Patch(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodPatch, path, nil)
	return err
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// getAll follows Link pagination from path and concatenates every page.
func getAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	next := path
	for next != "" {
		var page []T
		n, err := c.Get(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = n
	}
	return all, nil
}

// do builds the request, maps error statuses to typed errors and decodes
// the JSON response into result when it is non-nil.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	result interface{},
) (http.Header, error) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.RequestError{
			Source: source.NameGitHub,
			Method: method,
			Path:   path,
			Err:    err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &source.AuthError{
			Source: source.NameGitHub,
			Message: fmt.Sprintf(
				"authentication failed (401): check your token for %s",
				c.baseURL,
			),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		var ghErr ErrorResponse
		if json.Unmarshal(respBody, &ghErr) == nil && ghErr.Message != "" {
			msg = ghErr.Message
		}
		return nil, &source.RequestError{
			Source:  source.NameGitHub,
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: msg,
		}
	}

	// No content to parse (e.g. 204, 205).
	if result == nil || len(respBody) == 0 {
		return resp.Header, nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return nil, fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			method, path, err,
		)
	}

	return resp.Header, nil
}

// nextPage returns the rel="next" URL from the Link header, or "".
func nextPage(header http.Header) string {
	m := linkNextPattern.FindStringSubmatch(header.Get("Link"))
	if m == nil {
		return ""
	}
	return m[1]
}
