package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SummaryInterval != 5 {
		t.Errorf("SummaryInterval = %d", cfg.SummaryInterval)
	}
	if cfg.WashoutMinDwell != 300*time.Second {
		t.Errorf("WashoutMinDwell = %s", cfg.WashoutMinDwell)
	}
	if !cfg.EventLog.Enabled || cfg.EventLog.QueueSize != 1000 {
		t.Errorf("EventLog = %+v", cfg.EventLog)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("WASHOUT_MIN_DWELL", "2m")
	t.Setenv("SUMMARY_INTERVAL", "3")
	t.Setenv("EVENT_LOG_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.WashoutMinDwell != 2*time.Minute {
		t.Errorf("WashoutMinDwell = %s", cfg.WashoutMinDwell)
	}
	if cfg.SummaryInterval != 3 {
		t.Errorf("SummaryInterval = %d", cfg.SummaryInterval)
	}
	if cfg.EventLog.Enabled {
		t.Error("EVENT_LOG_ENABLED=false ignored")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:    "8080",
			DBPath:  "./study.db",
			DataDir: "./data",
			LLM: LLMConfig{
				BaseURL:   "http://localhost:11434/v1",
				ChatModel: "m",
				AuxModel:  "m",
			},
			SummaryInterval: 5,
			WashoutMinDwell: time.Minute,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"empty chat model", func(c *Config) { c.LLM.ChatModel = "" }},
		{"zero summary interval", func(c *Config) { c.SummaryInterval = 0 }},
		{"zero washout dwell", func(c *Config) { c.WashoutMinDwell = 0 }},
		{"event log without dir", func(c *Config) { c.EventLog.Enabled = true; c.EventLog.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}
