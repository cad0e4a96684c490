package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	LLM           LLMConfig           `toml:"llm"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Archive       ArchiveConfig       `toml:"archive"`
	Schedules     []ScheduleConfig    `toml:"schedule"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	RunsDir            string  `toml:"runs_dir"`
	DatabaseDriver     string  `toml:"database_driver"` // sqlite or postgres
	DatabaseDSN        string  `toml:"database_dsn"`
	BranchPrefix       string  `toml:"branch_prefix"`
	AutoMergeThreshold float64 `toml:"auto_merge_threshold"`
}

// LLMConfig holds language model API settings
type LLMConfig struct {
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	APIKeyEnv string `toml:"api_key_env"`
}

// APIKey resolves the API key from the configured environment variable
func (c LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds HTTP API settings
type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address
func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ArchiveConfig holds optional S3-compatible archive settings.
// Archiving is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	AccessKeyEnv string `toml:"access_key_env"`
	SecretKeyEnv string `toml:"secret_key_env"`
	UseSSL       bool   `toml:"use_ssl"`
}

// Enabled reports whether archiving is configured
func (c ArchiveConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// ScheduleConfig is one recurring pipeline run
type ScheduleConfig struct {
	Name     string `toml:"name"`
	Cron     string `toml:"cron"`
	RepoPath string `toml:"repo_path"`
}

// Validate checks a schedule entry
func (c *ScheduleConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if c.RepoPath == "" {
		return fmt.Errorf("schedule %q: repo_path is required", c.Name)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Cron); err != nil {
		return fmt.Errorf("schedule %q: invalid cron expression: %w", c.Name, err)
	}
	return nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			RunsDir:            filepath.Join(home, ".repo-pilot", "pipeline_runs"),
			DatabaseDriver:     "sqlite",
			DatabaseDSN:        filepath.Join(home, ".repo-pilot", "repo-pilot.db"),
			BranchPrefix:       "repo-pilot",
			AutoMergeThreshold: 7.0,
		},
		LLM: LLMConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4.1",
			MaxTokens: 8192,
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.RunsDir = ExpandPath(cfg.General.RunsDir)
	if cfg.General.DatabaseDriver == "sqlite" {
		cfg.General.DatabaseDSN = ExpandPath(cfg.General.DatabaseDSN)
	}

	for i := range cfg.Schedules {
		if err := cfg.Schedules[i].Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "repo-pilot", "config.toml")
}
