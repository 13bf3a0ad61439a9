package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram settings
	TelegramToken   string
	TargetChannels  []string // public content stream
	ServiceChannels []string // operator status reports

	// Gemini settings
	GeminiAPIKey   string
	GeminiModel    string
	Temperature    float32
	MaxTokens      int
	MaxGenRequests int // daily cap on generation requests (0 = unlimited)

	// Rewrite settings
	NewsTextMaxLength int
	MaxRewriteTries   int

	// Feed settings
	FeedsConfigPath    string
	ScheduleConfigPath string
	NewsMaxAge         time.Duration

	// State settings
	StateBackend  string // "file" or "postgres"
	StateFilePath string
	PostgresDSN   string

	// App settings
	Debug          bool
	TmpDir         string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:        "gemini-1.5-flash",
		Temperature:        0.7,
		MaxTokens:          500,
		MaxGenRequests:     60,
		NewsTextMaxLength:  1000,
		MaxRewriteTries:    3,
		FeedsConfigPath:    "configs/feeds.yaml",
		ScheduleConfigPath: "configs/schedule.yaml",
		NewsMaxAge:         24 * time.Hour,
		StateBackend:       "file",
		StateFilePath:      "publish_state.json",
		TmpDir:             "tmp",
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         2 * time.Second,
	}

	cfg.TelegramToken = os.Getenv("TG_BOT_API_TOKEN")
	cfg.TargetChannels = splitChannels(os.Getenv("TG_BOT_TARGET_CHANNELS"))
	cfg.ServiceChannels = splitChannels(os.Getenv("TG_BOT_SERVICE_CHANNELS"))
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.GeminiModel = model
	}
	if v := os.Getenv("GEMINI_TEMPERATURE"); v != "" {
		if val, err := strconv.ParseFloat(v, 32); err == nil && val >= 0 && val <= 1 {
			cfg.Temperature = float32(val)
		}
	}
	if v := os.Getenv("GEMINI_MAX_TOKENS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.MaxTokens = val
		}
	}
	if v := os.Getenv("MAX_GEN_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxGenRequests = val
		}
	}

	if v := os.Getenv("NEWS_TEXT_MAX_LENGTH"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.NewsTextMaxLength = val
		}
	}
	if v := os.Getenv("MAX_REWRITING_TRIES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.MaxRewriteTries = val
		}
	}

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.ScheduleConfigPath = getEnvOrDefault("SCHEDULE_CONFIG_PATH", cfg.ScheduleConfigPath)
	if v := os.Getenv("NEWS_MAX_AGE_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.NewsMaxAge = time.Duration(val) * time.Hour
		}
	}

	cfg.StateBackend = getEnvOrDefault("STATE_BACKEND", cfg.StateBackend)
	cfg.StateFilePath = getEnvOrDefault("STATE_FILE_PATH", cfg.StateFilePath)
	cfg.PostgresDSN = os.Getenv("DATABASE_URL")

	cfg.TmpDir = getEnvOrDefault("TMP_DIR", cfg.TmpDir)
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

// splitChannels parses a comma-separated channel list, normalizing each entry
// to the @name form Telegram expects.
func splitChannels(raw string) []string {
	if raw == "" {
		return nil
	}
	var channels []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, "@") {
			part = "@" + part
		}
		channels = append(channels, part)
	}
	return channels
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TG_BOT_API_TOKEN is required")
	}
	if len(c.TargetChannels) == 0 {
		return fmt.Errorf("TG_BOT_TARGET_CHANNELS is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.StateBackend != "file" && c.StateBackend != "postgres" {
		return fmt.Errorf("STATE_BACKEND must be 'file' or 'postgres'")
	}
	if c.StateBackend == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres state backend")
	}
	return nil
}
