// Package config loads settings from config.yaml, .env and the
// environment. Environment variables override YAML values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURI string `yaml:"database_uri"`
	DBHost      string `yaml:"db_host"`
	DBPort      string `yaml:"db_port"`
	DBName      string `yaml:"db_name"`
	DBUser      string `yaml:"db_user"`
	DBPassword  string `yaml:"db_password"`

	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	LLMBaseURL        string `yaml:"llm_base_url"`
	LLMAPIKey         string `yaml:"llm_api_key"`
	LLMTimeoutSeconds int    `yaml:"llm_timeout_seconds"`
	LLMMaxTokens      int    `yaml:"llm_max_tokens"`
	LLMDisableFewShot bool   `yaml:"llm_disable_few_shot"`
	FewShotMax        int    `yaml:"few_shot_max"`

	FeedbackStore string `yaml:"feedback_store"` // "file" or "sqlite"
	FeedbackPath  string `yaml:"feedback_path"`

	AnalyzeSchedule string `yaml:"analyze_schedule"`
	LookbackHours   int    `yaml:"lookback_hours"`
	Workers         int    `yaml:"workers"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ReportOutputDir string `yaml:"report_output_dir"`
	Timezone        string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

// Load reads config.yaml (or $CONFIG_PATH), layers .env and the
// process environment on top, applies defaults and validates.
func Load() (Config, error) {
	// .env is optional and never overrides the real environment.
	_ = godotenv.Load()

	var cfg Config
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	envOverride(&cfg.DatabaseURI, "DATABASE_URI")
	envOverride(&cfg.DBHost, "DB_HOST")
	envOverride(&cfg.DBPort, "DB_PORT")
	envOverride(&cfg.DBName, "DB_NAME")
	envOverride(&cfg.DBUser, "DB_USER")
	envOverride(&cfg.DBPassword, "DB_PASSWORD")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LOCAL_LLM_MODEL")
	envOverride(&cfg.LLMBaseURL, "LOCAL_LLM_BASE_URL")
	envOverride(&cfg.LLMAPIKey, "LOCAL_LLM_API_KEY")
	if err := envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.FewShotMax, "FEW_SHOT_MAX"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.LookbackHours, "LOOKBACK_HOURS"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.Workers, "WORKERS"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.FeedbackStore, "FEEDBACK_STORE")
	envOverride(&cfg.FeedbackPath, "FEEDBACK_PATH")
	envOverride(&cfg.AnalyzeSchedule, "ANALYZE_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.Timezone, "TIMEZONE")

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLMProvider == "" {
		c.LLMProvider = "openai"
	}
	if c.LLMTimeoutSeconds == 0 {
		c.LLMTimeoutSeconds = 30
	}
	if c.FeedbackStore == "" {
		c.FeedbackStore = "file"
	}
	if c.FeedbackPath == "" {
		switch c.FeedbackStore {
		case "sqlite":
			c.FeedbackPath = "./data/feedback.db"
		default:
			c.FeedbackPath = "./data/feedback.json"
		}
	}
	if c.LookbackHours == 0 {
		c.LookbackHours = 24
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.ReportOutputDir == "" {
		c.ReportOutputDir = "./reports"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm_provider must be 'openai' or 'anthropic', got %q", c.LLMProvider)
	}

	switch c.FeedbackStore {
	case "file", "sqlite":
	default:
		return fmt.Errorf("feedback_store must be 'file' or 'sqlite', got %q", c.FeedbackStore)
	}

	if c.LLMTimeoutSeconds < 1 {
		return fmt.Errorf("llm_timeout_seconds must be >= 1, got %d", c.LLMTimeoutSeconds)
	}
	if c.LookbackHours < 1 {
		return fmt.Errorf("lookback_hours must be >= 1, got %d", c.LookbackHours)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

// DatabaseURL resolves the Postgres connection string: a full URI wins,
// otherwise it is assembled from the DB_* components.
func (c Config) DatabaseURL() (string, error) {
	if c.DatabaseURI != "" {
		return c.DatabaseURI, nil
	}
	if c.DBHost != "" && c.DBName != "" && c.DBUser != "" && c.DBPassword != "" {
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, port, c.DBName), nil
	}
	return "", fmt.Errorf("no database configured: set database_uri or the db_host/db_name/db_user/db_password group")
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	val := os.Getenv(envKey)
	if val == "" {
		return nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", envKey, val, err)
	}
	*field = parsed
	return nil
}
