// Package config handles application configuration from environment
// variables and JSON monitor files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid is wrapped by every configuration validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the process-wide configuration.
type Config struct {
	TelegramBotToken  string
	ChatID            int64
	DatabasePath      string
	LogLevel          string
	LogFile           string
	AllowedUsers      []int64
	OpenAIKey         string
	ChromeBin         string
	MetricsAddr       string
	CentralConfigPath string
	Timezone          string
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required", ErrInvalid)
	}

	rawChat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if rawChat == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_CHAT_ID is required", ErrInvalid)
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: TELEGRAM_CHAT_ID %q: %w", ErrInvalid, rawChat, err)
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: user ID %q in ALLOWED_USERS: %w", ErrInvalid, s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	cfg := &Config{
		TelegramBotToken:  token,
		ChatID:            chatID,
		DatabasePath:      envOrDefault("DATABASE_PATH", "./data/monitor.db"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
		AllowedUsers:      allowedUsers,
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		ChromeBin:         os.Getenv("CHROME_BIN"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		CentralConfigPath: envOrDefault("CENTRAL_CONFIG", "configs/centralized-config.json"),
		Timezone:          os.Getenv("TIMEZONE"),
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the time zone used to decide whether a listing was
// posted today.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: TIMEZONE %q: %w", ErrInvalid, c.Timezone, err)
	}
	return loc, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
