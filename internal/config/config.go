// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port      string
	DBPath    string
	DataDir   string // contacts CSV and NDJSON event logs
	StaticDir string // study pages and assets

	LLM      LLMConfig
	EventLog EventLogConfig

	SummaryInterval int           // completed turns between summary refreshes
	WashoutMinDwell time.Duration // minimum washout dwell before advance
}

// LLMConfig points the server at an OpenAI-compatible backend. A local
// Ollama instance works via its /v1 endpoint.
type LLMConfig struct {
	BaseURL   string
	APIKey    string
	ChatModel string // main empathetic dialogue model
	AuxModel  string // classification, explanation and summary model
}

// EventLogConfig controls the per-participant NDJSON audit log.
type EventLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("EVENT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "./data/study.db"),
		DataDir:   getEnv("DATA_DIR", "./data"),
		StaticDir: getEnv("STATIC_DIR", "./static"),
		LLM: LLMConfig{
			BaseURL:   getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			APIKey:    getEnv("LLM_API_KEY", "ollama"),
			ChatModel: getEnv("CHAT_MODEL", "qwen3:1.7b"),
			AuxModel:  getEnv("AUX_MODEL", "qwen3:1.7b"),
		},
		EventLog: EventLogConfig{
			Enabled:   getEnvBool("EVENT_LOG_ENABLED", true),
			Dir:       getEnv("EVENT_LOG_DIR", "./data/events"),
			QueueSize: queueSize,
		},
		SummaryInterval: getEnvInt("SUMMARY_INTERVAL", 5),
		WashoutMinDwell: getEnvDuration("WASHOUT_MIN_DWELL", 300*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL cannot be empty")
	}
	if c.LLM.ChatModel == "" {
		return fmt.Errorf("CHAT_MODEL cannot be empty")
	}
	if c.LLM.AuxModel == "" {
		return fmt.Errorf("AUX_MODEL cannot be empty")
	}
	if c.SummaryInterval <= 0 {
		return fmt.Errorf("SUMMARY_INTERVAL must be > 0")
	}
	if c.WashoutMinDwell <= 0 {
		return fmt.Errorf("WASHOUT_MIN_DWELL must be > 0")
	}
	if c.EventLog.Enabled && c.EventLog.Dir == "" {
		return fmt.Errorf("EVENT_LOG_DIR cannot be empty when the event log is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
