package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-consolidator/internal/credential"
	"github.com/nhle/task-consolidator/internal/format"
	"github.com/nhle/task-consolidator/internal/model"
	"github.com/nhle/task-consolidator/internal/store"
	"github.com/nhle/task-consolidator/internal/things"
)

// fakeGitHubAPI serves the endpoints a fetch run touches and records
// every request it receives.
type fakeGitHubAPI struct {
	mu       sync.Mutex
	requests []string
	auth     []string
}

func (f *fakeGitHubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/notifications":
		fmt.Fprint(w, `[{
			"id": "1",
			"reason": "review_requested",
			"unread": true,
			"updated_at": "2024-01-02T03:04:05Z",
			"subject": {"title": "Add widget API", "url": "https://api.github.com/repos/acme/widgets/pulls/42", "type": "PullRequest"},
			"repository": {"name": "widgets", "full_name": "acme/widgets"}
		}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/issues":
		fmt.Fprint(w, `[{
			"id": 555,
			"number": 7,
			"title": "Crash on start",
			"body": "Steps",
			"state": "open",
			"html_url": "https://github.com/acme/widgets/issues/7",
			"created_at": "2024-01-01T00:00:00Z",
			"updated_at": "2024-01-02T00:00:00Z",
			"labels": [{"name": "bug"}],
			"assignees": [{"login": "octocat"}],
			"repository": {"name": "widgets", "full_name": "acme/widgets"}
		}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/user":
		fmt.Fprint(w, `{"login": "octocat"}`)
	case r.Method == http.MethodPatch && r.URL.Path == "/notifications/threads/1":
		w.WriteHeader(http.StatusResetContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}
}

func (f *fakeGitHubAPI) authorization(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[i]
}

func (f *fakeGitHubAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

type testEnv struct {
	api        *fakeGitHubAPI
	configPath string
	stored     map[string]string
	opened     []string
	ghCalls    [][]string
}

// setupCLI points the command at a fake API through a temp config file and
// swaps every side-effecting function variable for a fake.
func setupCLI(t *testing.T) *testEnv {
	t.Helper()

	for _, env := range []string{"GITHUB_TOKEN", "GITHUB_USERNAME", "GITHUB_ORG", "TC_MAIL_PASSWORD"} {
		t.Setenv(env, "")
	}

	env := &testEnv{api: &fakeGitHubAPI{}, stored: map[string]string{}}
	srv := httptest.NewServer(env.api)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env.configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(env.configPath, []byte(
		"github:\n  api_url: "+srv.URL+"\nthings:\n  delay: 0s\n",
	), 0o600))

	origGet, origSet, origDelete := keyringGet, keyringSet, keyringDelete
	origGH, origOpener, origPrompt, origDotEnv := ghRun, opener, promptSecret, dotEnvPath
	t.Cleanup(func() {
		keyringGet, keyringSet, keyringDelete = origGet, origSet, origDelete
		ghRun, opener, promptSecret, dotEnvPath = origGH, origOpener, origPrompt, origDotEnv
	})

	dotEnvPath = filepath.Join(dir, ".env")
	keyringGet = func(key string) (string, error) {
		if v, ok := env.stored[key]; ok {
			return v, nil
		}
		return "", credential.ErrNotFound
	}
	keyringSet = func(key, value string) error {
		env.stored[key] = value
		return nil
	}
	keyringDelete = func(key string) error {
		if _, ok := env.stored[key]; !ok {
			return credential.ErrNotFound
		}
		delete(env.stored, key)
		return nil
	}
	ghRun = func(_ context.Context, args ...string) ([]byte, error) {
		env.ghCalls = append(env.ghCalls, args)
		return nil, errors.New("gh: command not found")
	}
	opener = things.OpenerFunc(func(_ context.Context, u string) error {
		env.opened = append(env.opened, u)
		return nil
	})
	promptSecret = func(string, string) (string, error) {
		return "", errors.New("unexpected prompt")
	}

	return env
}

func (e *testEnv) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	root := NewRootCommand("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", e.configPath))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), ansi.Strip(stderr.String()), err
}

func TestFetch_PrintsJSON(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "env-token")

	stdout, stderr, err := env.run("fetch")
	require.NoError(t, err)

	var tasks []model.Task
	require.NoError(t, json.Unmarshal([]byte(stdout), &tasks))
	require.Len(t, tasks, 2)

	assert.Equal(t, "1", tasks[0].ID)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", tasks[0].URL)
	assert.Equal(t, "555", tasks[1].ID)
	assert.Equal(t, model.SourceTypeIssue, tasks[1].SourceType)

	assert.Equal(t, []string{"GET /notifications", "GET /issues"}, env.api.seen())
	assert.Equal(t, "Bearer env-token", env.api.authorization(0))
	assert.Empty(t, env.ghCalls)
	assert.Contains(t, stderr, "Done!")
}

func TestFetch_UnsupportedFormat(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "env-token")

	stdout, _, err := env.run("fetch", "-f", "xml")

	var fmtErr *format.UnsupportedFormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "xml", fmtErr.Format)
	assert.Empty(t, stdout)
	assert.Empty(t, env.api.seen())
}

func TestFetch_NoCredentials(t *testing.T) {
	env := setupCLI(t)

	_, _, err := env.run("fetch")

	require.Error(t, err)
	assert.True(t, credential.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "gh auth login")
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	assert.Equal(t, [][]string{{"--version"}}, env.ghCalls)
	assert.Empty(t, env.api.seen())
}

func TestFetch_KeyringToken(t *testing.T) {
	env := setupCLI(t)
	env.stored[credential.GitHubTokenKey] = "stored-token"

	_, _, err := env.run("fetch")
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored-token", env.api.authorization(0))
}

func TestFetch_MarkdownFileThingsAndMarkRead(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "env-token")
	out := filepath.Join(t.TempDir(), "tasks.md")

	stdout, stderr, err := env.run("fetch", "-f", "markdown", "-o", out, "-t", "-r")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Tasks\n\n## Github\n\n### Add widget API\n\n"))
	assert.Empty(t, stdout)

	require.Len(t, env.opened, 2)
	assert.True(t, strings.HasPrefix(env.opened[0], "things:///add?title=Add%20widget%20API&notes="))
	assert.Contains(t, env.opened[1], "tags=tc%2Cgithub%2Cwidgets")

	assert.Contains(t, env.api.seen(), "PATCH /notifications/threads/1")
	assert.Contains(t, stderr, "Added 2 tasks to Things 3")
	assert.Contains(t, stderr, "Marked 1 notifications as read")
}

func TestFetch_RecordsRun(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "env-token")
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := env.run("fetch", "--db", dbPath)
	require.NoError(t, err)

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.GetRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].TaskCount)
	assert.Equal(t, "json", runs[0].Format)
}

func TestFetch_MailWithoutPassword(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "env-token")

	_, _, err := env.run("fetch", "--mail")

	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrNotFound)
	assert.Contains(t, err.Error(), "auth mail-login")
	assert.Empty(t, env.api.seen())
}

func TestAuthLogin_WithToken(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run("auth", "login", "--token", "new-token")
	require.NoError(t, err)

	assert.Equal(t, "new-token", env.stored[credential.GitHubTokenKey])
	assert.Equal(t, []string{"GET /user"}, env.api.seen())
	assert.Equal(t, "Bearer new-token", env.api.authorization(0))
	assert.Contains(t, ansi.Strip(stdout), "Logged in as octocat")
}

func TestAuthLogin_Prompts(t *testing.T) {
	env := setupCLI(t)
	promptSecret = func(string, string) (string, error) { return "prompted-token", nil }

	_, _, err := env.run("auth", "login")
	require.NoError(t, err)
	assert.Equal(t, "prompted-token", env.stored[credential.GitHubTokenKey])
}

func TestAuthLogout(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run("auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, ansi.Strip(stdout), "No stored GitHub token")

	env.stored[credential.GitHubTokenKey] = "tok"
	stdout, _, err = env.run("auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, ansi.Strip(stdout), "Removed stored GitHub token")
	assert.NotContains(t, env.stored, credential.GitHubTokenKey)
}

func TestAuthStatus(t *testing.T) {
	env := setupCLI(t)
	env.stored[credential.GitHubTokenKey] = "tok"
	t.Setenv("GITHUB_USERNAME", "octocat")

	stdout, _, err := env.run("auth", "status")
	require.NoError(t, err)

	out := ansi.Strip(stdout)
	assert.Contains(t, out, "Token from system keyring")
	assert.Contains(t, out, "Username: octocat")
	assert.Empty(t, env.api.seen())
}

func TestVersion(t *testing.T) {
	env := setupCLI(t)

	stdout, _, err := env.run("version")
	require.NoError(t, err)
	assert.Equal(t, "task-consolidator test\n", stdout)
}

func TestConfigInit(t *testing.T) {
	env := setupCLI(t)
	t.Setenv("GITHUB_TOKEN", "secret-token")
	t.Setenv("GITHUB_ORG", "acme")

	_, _, err := env.run("config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = env.run("config", "init", "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "acme")
	assert.NotContains(t, string(data), "secret-token")

	t.Setenv("GITHUB_ORG", "")
	cfg, err := model.LoadConfig(env.configPath, "")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.GitHub.Org)
	assert.Equal(t, "json", cfg.Output.Format)
}
