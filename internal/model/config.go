package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GitHubConfig holds the issue-tracker connection settings.
type GitHubConfig struct {
	// Token is the API token from GITHUB_TOKEN or the .env file.
	// Empty means the credential resolver has to look elsewhere.
	Token string `mapstructure:"token" yaml:"token"`

	// Username is the login whose assigned issues are fetched.
	Username string `mapstructure:"username" yaml:"username"`

	// Org scopes issue listing to every repository in one organization.
	Org string `mapstructure:"org" yaml:"org"`

	// APIURL is the REST API root (e.g., https://api.github.com).
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
}

// ThingsConfig holds settings for delivering tasks to the to-do app.
type ThingsConfig struct {
	Scheme     string        `mapstructure:"scheme" yaml:"scheme"`
	ProjectTag string        `mapstructure:"project_tag" yaml:"project_tag"`
	When       string        `mapstructure:"when" yaml:"when"`
	Delay      time.Duration `mapstructure:"delay" yaml:"delay"`
}

// MailConfig holds the optional IMAP source settings.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password comes from TC_MAIL_PASSWORD; the keyring is consulted
	// when it is empty.
	Password string `mapstructure:"password" yaml:"-"`

	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`
	TLS     bool   `mapstructure:"tls" yaml:"tls"`
	Limit   int    `mapstructure:"limit" yaml:"limit"`
}

// OutputConfig holds output defaults.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration. It is built once
// per run and passed explicitly to every component.
type AppConfig struct {
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	Things ThingsConfig `mapstructure:"things" yaml:"things"`
	Mail   MailConfig   `mapstructure:"mail" yaml:"mail"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// envBindings maps config keys to the environment variables that feed them.
var envBindings = map[string]string{
	"github.token":    "GITHUB_TOKEN",
	"github.username": "GITHUB_USERNAME",
	"github.org":      "GITHUB_ORG",
	"mail.password":   "TC_MAIL_PASSWORD",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/task-consolidator/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "task-consolidator", "config.yaml")
}

// DefaultDotEnvPath is the .env file looked up in the working directory.
const DefaultDotEnvPath = ".env"

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("things.scheme", "things")
	v.SetDefault("things.project_tag", "tc")
	v.SetDefault("things.when", "today")
	v.SetDefault("things.delay", "100ms")
	v.SetDefault("mail.port", "993")
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.limit", 50)
	v.SetDefault("output.format", "json")
	v.SetDefault("log.level", "warn")
}

// LoadConfig reads configuration from the YAML file at path, the .env file
// at dotenvPath and the process environment. Values from the environment
// win over the config file, which wins over the .env file. Either file may
// be missing.
func LoadConfig(path, dotenvPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	if dotenvPath != "" {
		dotenv, err := readDotEnv(dotenvPath)
		if err != nil {
			return nil, err
		}
		// .env values sit at default precedence so both the config file
		// and the real environment override them.
		for key, env := range envBindings {
			if val := dotenv[strings.ToLower(env)]; val != "" {
				v.SetDefault(key, val)
			}
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.GitHub.APIURL = strings.TrimRight(cfg.GitHub.APIURL, "/")
	return cfg, nil
}

// readDotEnv parses a KEY=value file through viper's env codec. Keys are
// returned lower-cased, as viper stores them.
func readDotEnv(path string) (map[string]string, error) {
	d := viper.New()
	d.SetConfigFile(path)
	d.SetConfigType("env")
	if err := d.ReadInConfig(); err != nil {
		if isNotFound(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	values := make(map[string]string)
	for _, key := range d.AllKeys() {
		values[key] = d.GetString(key)
	}
	return values, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// SaveConfig writes the non-secret parts of cfg to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("github.username", cfg.GitHub.Username)
	v.Set("github.org", cfg.GitHub.Org)
	v.Set("github.api_url", cfg.GitHub.APIURL)
	v.Set("things", map[string]any{
		"scheme":      cfg.Things.Scheme,
		"project_tag": cfg.Things.ProjectTag,
		"when":        cfg.Things.When,
		"delay":       cfg.Things.Delay.String(),
	})
	v.Set("mail", map[string]any{
		"enabled":  cfg.Mail.Enabled,
		"host":     cfg.Mail.Host,
		"port":     cfg.Mail.Port,
		"username": cfg.Mail.Username,
		"mailbox":  cfg.Mail.Mailbox,
		"tls":      cfg.Mail.TLS,
		"limit":    cfg.Mail.Limit,
	})
	v.Set("output", cfg.Output)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
