package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/nhle/task-consolidator/internal/model"
)

// Via records where the GitHub token came from.
type Via string

const (
	ViaEnvironment Via = "environment"
	ViaKeyring     Via = "keyring"
	ViaGHCLI       Via = "gh"
)

// Credentials are the resolved GitHub identity for one run.
type Credentials struct {
	Token    string
	Username string
	Org      string
	Via      Via
}

// ConfigurationError means no usable credentials were found. It is
// returned before any network call is made.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason + "\n" +
		"  1. Install and authenticate with GitHub CLI (https://cli.github.com/), then run: gh auth login\n" +
		"  2. Or set GITHUB_TOKEN in your environment or .env file" +
		" (or store one with: task-consolidator auth login)"
}

// IsConfigurationError reports whether err (or any error in its chain) is
// a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Runner executes a gh subcommand and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// RunGH runs the real gh binary.
func RunGH(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "gh", args...).Output()
}

// Resolver finds a GitHub token and username. Sources are tried in order:
// the configured token (GITHUB_TOKEN or .env), the system keyring, then
// the gh CLI.
type Resolver struct {
	// GH runs gh subcommands.
	GH Runner

	// Keyring looks up stored credentials. Nil skips the keyring.
	Keyring func(key string) (string, error)

	Logger *slog.Logger
}

// NewResolver returns a Resolver backed by the real gh binary and the
// system keyring.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{GH: RunGH, Keyring: Get, Logger: logger}
}

// Resolve returns the credentials for cfg or a ConfigurationError.
func (r *Resolver) Resolve(
	ctx context.Context,
	cfg model.GitHubConfig,
) (*Credentials, error) {
	creds := &Credentials{
		Token:    strings.TrimSpace(cfg.Token),
		Username: cfg.Username,
		Org:      cfg.Org,
		Via:      ViaEnvironment,
	}
	if creds.Token != "" {
		return creds, nil
	}

	if token := r.fromKeyring(); token != "" {
		creds.Token = token
		creds.Via = ViaKeyring
		return creds, nil
	}

	token, err := r.fromGH(ctx)
	if err != nil {
		return nil, err
	}
	creds.Token = token
	creds.Via = ViaGHCLI

	if creds.Username == "" {
		creds.Username = r.ghUsername(ctx)
	}

	return creds, nil
}

func (r *Resolver) fromKeyring() string {
	if r.Keyring == nil {
		return ""
	}
	token, err := r.Keyring(GitHubTokenKey)
	if err != nil {
		r.Logger.Debug("no token in keyring", "error", err)
		return ""
	}
	return strings.TrimSpace(token)
}

func (r *Resolver) fromGH(ctx context.Context) (string, error) {
	if _, err := r.GH(ctx, "--version"); err != nil {
		r.Logger.Debug("gh --version failed", "error", err)
		return "", &ConfigurationError{
			Reason: "GitHub authentication required. Either:",
		}
	}

	if _, err := r.GH(ctx, "auth", "status"); err != nil {
		r.Logger.Debug("gh auth status failed", "error", err)
		return "", &ConfigurationError{
			Reason: "Not authenticated with GitHub CLI. Either:",
		}
	}

	out, err := r.GH(ctx, "auth", "token")
	token := strings.TrimSpace(string(out))
	if err != nil || token == "" {
		r.Logger.Debug("gh auth token failed", "error", err)
		return "", &ConfigurationError{
			Reason: "Failed to get token from GitHub CLI. Either:",
		}
	}

	return token, nil
}

// ghUsername asks gh for the authenticated login. Failures leave the
// username unset.
func (r *Resolver) ghUsername(ctx context.Context) string {
	out, err := r.GH(ctx, "api", "user", "--jq", ".login")
	if err != nil {
		r.Logger.Debug("gh api user failed", "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Describe returns a short human-readable label for v.
func (v Via) Describe() string {
	switch v {
	case ViaGHCLI:
		return "GitHub CLI"
	case ViaKeyring:
		return "system keyring"
	default:
		return "GITHUB_TOKEN"
	}
}

// MailPassword returns the configured IMAP password, falling back to the
// keyring.
func MailPassword(cfg model.MailConfig, lookup func(key string) (string, error)) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if lookup == nil {
		return "", fmt.Errorf("mail password: %w", ErrNotFound)
	}
	pw, err := lookup(MailPasswordKey)
	if err != nil {
		return "", fmt.Errorf("mail password: %w", err)
	}
	return pw, nil
}
