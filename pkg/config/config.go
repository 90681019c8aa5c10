package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID   = "TELEGRAM_CHAT_ID"
	envRedisURL         = "REDIS_URL"
)

const (
	defaultReplyTimeout   = 10 * time.Second
	defaultRequestTimeout = 15 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	defaultBufferSize     = 100
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Storage  StorageConfig  `json:"storage"`
	API      APIConfig      `json:"api"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures the Telegram transport. ChatID is the chat
// shared with the counterpart bot; Counterpart optionally restricts
// ingestion to messages sent by that username.
type TelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	Token       string `json:"token"`
	ChatID      int64  `json:"chat_id"`
	Counterpart string `json:"counterpart"`
}

// StorageConfig stores persistence collaborator settings.
type StorageConfig struct {
	Redis RedisConfig `json:"redis"`
}

// RedisConfig configures the reply-document store. When disabled the
// relay keeps reply documents in memory only.
type RedisConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// APIConfig configures the caller-facing HTTP bind settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// RelayConfig tunes correlation timeouts and buffer sizing.
type RelayConfig struct {
	ReplyTimeoutSeconds   int `json:"reply_timeout_seconds,omitempty"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`
	PollIntervalMillis    int `json:"poll_interval_millis,omitempty"`
	RecentBufferSize      int `json:"recent_buffer_size,omitempty"`
}

// ReplyTimeout is how long a correlated send waits for a matching reply
// before falling back to the recency heuristic.
func (r RelayConfig) ReplyTimeout() time.Duration {
	if r.ReplyTimeoutSeconds <= 0 {
		return defaultReplyTimeout
	}
	return time.Duration(r.ReplyTimeoutSeconds) * time.Second
}

// RequestTimeout is the end-to-end budget applied at the API layer.
func (r RelayConfig) RequestTimeout() time.Duration {
	if r.RequestTimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(r.RequestTimeoutSeconds) * time.Second
}

// PollInterval is the cadence of the free-text command's reply polling loop.
func (r RelayConfig) PollInterval() time.Duration {
	if r.PollIntervalMillis <= 0 {
		return defaultPollInterval
	}
	return time.Duration(r.PollIntervalMillis) * time.Millisecond
}

// BufferSize is the recent-reply ring buffer capacity.
func (r RelayConfig) BufferSize() int {
	if r.RecentBufferSize <= 0 {
		return defaultBufferSize
	}
	return r.RecentBufferSize
}

// LoadConfig loads .env if present, resolves config.json, unmarshals it,
// and applies environment overrides.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawChatID := strings.TrimSpace(os.Getenv(envTelegramChatID)); rawChatID != "" {
		if chatID, err := strconv.ParseInt(rawChatID, 10, 64); err == nil {
			cfg.Channels.Telegram.ChatID = chatID
		}
	}

	if url := strings.TrimSpace(os.Getenv(envRedisURL)); url != "" {
		cfg.Storage.Redis.URL = url
		cfg.Storage.Redis.Enabled = true
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is UCRELAY_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("UCRELAY_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("UCRELAY_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
