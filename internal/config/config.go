package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Cloudsky01/gh-e2echeck/internal/git"
	"github.com/Cloudsky01/gh-e2echeck/internal/paths"
	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

const (
	EnvPrefix = "E2ECHECK"

	DefaultPollAttempts = 5
	DefaultPollDelay    = time.Second
	DefaultOutputTitle  = "E2E Tests"
	DefaultAPIURL       = "https://api.github.com"

	// MaxPollAttempts bounds poll.attempts
	MaxPollAttempts = 60

	redacted = "********"
)

var ErrInvalidConfig = errors.New("invalid configuration")

var logFormats = []string{"text", "json", "logfmt"}

type Config struct {
	CheckRunID  string     `mapstructure:"check_run_id" yaml:"check_run_id,omitempty"`
	Project     string     `mapstructure:"project" yaml:"project,omitempty"`
	PreviewURL  string     `mapstructure:"preview_url" yaml:"preview_url,omitempty"`
	JobStatus   string     `mapstructure:"job_status" yaml:"job_status,omitempty"`
	Repository  string     `mapstructure:"repository" yaml:"repository,omitempty"`
	RunID       int64      `mapstructure:"run_id" yaml:"run_id,omitempty"`
	RunAttempt  int64      `mapstructure:"run_attempt" yaml:"run_attempt,omitempty"`
	Job         string     `mapstructure:"job" yaml:"job,omitempty"`
	Workflow    string     `mapstructure:"workflow" yaml:"workflow,omitempty"`
	ServerURL   string     `mapstructure:"server_url" yaml:"server_url,omitempty"`
	APIURL      string     `mapstructure:"api_url" yaml:"api_url,omitempty"`
	Token       string     `mapstructure:"token" yaml:"token,omitempty"`
	OutputTitle string     `mapstructure:"output_title" yaml:"output_title,omitempty"`
	Poll        PollConfig `mapstructure:"poll" yaml:"poll"`
	Log         LogConfig  `mapstructure:"log" yaml:"log"`

	// Not serialized - tracks where the file layer came from
	source     paths.ConfigSource
	configPath string
}

type PollConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// envBindings maps config keys to the environment variables GitHub Actions
// and the calling workflow provide. The first non-empty variable wins.
var envBindings = map[string][]string{
	"check_run_id":  {"CHECK_RUN_ID"},
	"project":       {"PROJECT"},
	"preview_url":   {"PREVIEW_URL"},
	"job_status":    {"JOB_STATUS"},
	"repository":    {"GITHUB_REPOSITORY"},
	"run_id":        {"GITHUB_RUN_ID"},
	"run_attempt":   {"GITHUB_RUN_ATTEMPT"},
	"job":           {"GITHUB_JOB"},
	"workflow":      {"GITHUB_WORKFLOW"},
	"server_url":    {"GITHUB_SERVER_URL"},
	"api_url":       {"GITHUB_API_URL"},
	"token":         {"GITHUB_TOKEN", "GH_TOKEN"},
	"output_title":  {EnvPrefix + "_OUTPUT_TITLE"},
	"poll.attempts": {EnvPrefix + "_POLL_ATTEMPTS"},
	"poll.delay":    {EnvPrefix + "_POLL_DELAY"},
	"log.level":     {EnvPrefix + "_LOG_LEVEL"},
	"log.format":    {EnvPrefix + "_LOG_FORMAT"},
}

// FlagKeys maps CLI flag names to config keys
var FlagKeys = map[string]string{
	"check-run-id":  "check_run_id",
	"project":       "project",
	"preview-url":   "preview_url",
	"job-status":    "job_status",
	"repo":          "repository",
	"run-id":        "run_id",
	"run-attempt":   "run_attempt",
	"job":           "job",
	"workflow":      "workflow",
	"server-url":    "server_url",
	"api-url":       "api_url",
	"output-title":  "output_title",
	"poll-attempts": "poll.attempts",
	"poll-delay":    "poll.delay",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_attempt", 1)
	v.SetDefault("server_url", models.DefaultServerURL)
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("output_title", DefaultOutputTitle)
	v.SetDefault("poll.attempts", DefaultPollAttempts)
	v.SetDefault("poll.delay", DefaultPollDelay)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadOptions selects the config file and flag layer
type LoadOptions struct {
	// ConfigPath is an explicit file; it must exist
	ConfigPath string

	// Paths is searched when ConfigPath is empty; nil skips the file layer
	Paths *paths.Paths

	// Flags overrides everything else for flags the user actually set
	Flags *pflag.FlagSet
}

// Load merges defaults, the optional config file, environment and flags
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	source := paths.SourceNone
	configPath := opts.ConfigPath
	if configPath != "" {
		source = paths.SourceCLIFlag
	} else if opts.Paths != nil {
		configPath, source = opts.Paths.FindConfig()
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.source = source
	cfg.configPath = configPath

	return &cfg, nil
}

func (c *Config) GetConfigSource() paths.ConfigSource {
	return c.source
}

func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.Poll.Attempts < 1 || c.Poll.Attempts > MaxPollAttempts {
		return fmt.Errorf("%w: poll.attempts must be between 1 and %d, got %d", ErrInvalidConfig, MaxPollAttempts, c.Poll.Attempts)
	}
	if c.Poll.Delay < 0 {
		return fmt.Errorf("%w: poll.delay must not be negative, got %s", ErrInvalidConfig, c.Poll.Delay)
	}
	if !isLogFormat(c.Log.Format) {
		return fmt.Errorf("%w: log.format must be one of %s, got %q", ErrInvalidConfig, strings.Join(logFormats, ", "), c.Log.Format)
	}
	return nil
}

// RunContext validates and returns the workflow run the check belongs to
func (c *Config) RunContext() (models.WorkflowRunContext, error) {
	if c.Repository == "" {
		return models.WorkflowRunContext{}, fmt.Errorf("%w: repository is not set (GITHUB_REPOSITORY or --repo)", ErrInvalidConfig)
	}
	owner, repo, err := git.SplitRepository(c.Repository)
	if err != nil {
		return models.WorkflowRunContext{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RunID <= 0 {
		return models.WorkflowRunContext{}, fmt.Errorf("%w: run id must be a positive integer (GITHUB_RUN_ID or --run-id)", ErrInvalidConfig)
	}
	if c.Job == "" {
		return models.WorkflowRunContext{}, fmt.Errorf("%w: job name is not set (GITHUB_JOB or --job)", ErrInvalidConfig)
	}
	if c.RunAttempt < 1 {
		return models.WorkflowRunContext{}, fmt.Errorf("%w: run attempt must be at least 1, got %d", ErrInvalidConfig, c.RunAttempt)
	}

	return models.WorkflowRunContext{
		Owner:      owner,
		Repo:       repo,
		RunID:      c.RunID,
		Job:        c.Job,
		RunAttempt: c.RunAttempt,
		Workflow:   c.Workflow,
		ServerURL:  c.ServerURL,
	}, nil
}

// Redacted returns a copy that is safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.Token != "" {
		out.Token = redacted
	}
	return &out
}

// FileSettings keeps only the settings that belong in a shared config file
func (c *Config) FileSettings() *Config {
	return &Config{
		APIURL:      c.APIURL,
		ServerURL:   c.ServerURL,
		OutputTitle: c.OutputTitle,
		Poll:        c.Poll,
		Log:         c.Log,
	}
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		RunAttempt:  1,
		ServerURL:   models.DefaultServerURL,
		APIURL:      DefaultAPIURL,
		OutputTitle: DefaultOutputTitle,
		Poll: PollConfig{
			Attempts: DefaultPollAttempts,
			Delay:    DefaultPollDelay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c.FileSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := `# e2echeck configuration
#
# Run-specific values (check run id, repository, run id, job) come from the
# GitHub Actions environment and are not stored here.
#
# - output_title: title of the completed check's output
# - poll.attempts: how many times to list jobs before using the run URL
# - poll.delay: wait between attempts (Go duration, e.g. 1s)
# - log.level / log.format: debug|info|warn|error, text|json|logfmt

`

	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isLogFormat(format string) bool {
	for _, f := range logFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
