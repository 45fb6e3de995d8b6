package main

import (
	"testing"
	"time"

	"github.com/ShayCichocki/agentsmith/internal/config"
)

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*config.Config) bool
	}{
		{
			name:  "string value",
			key:   "llm.model",
			value: "claude-haiku-4-5",
			check: func(c *config.Config) bool { return c.LLM.Model == "claude-haiku-4-5" },
		},
		{
			name:  "int value",
			key:   "workers.concurrency",
			value: "8",
			check: func(c *config.Config) bool { return c.Workers.Concurrency == 8 },
		},
		{
			name:  "duration value",
			key:   "cache.ttl",
			value: "30m",
			check: func(c *config.Config) bool { return c.Cache.TTL == 30*time.Minute },
		},
		{
			name:  "bool value",
			key:   "telemetry.enabled",
			value: "true",
			check: func(c *config.Config) bool { return c.Telemetry.Enabled },
		},
		{
			name:  "list value",
			key:   "server.cors_origins",
			value: "http://a.test, http://b.test",
			check: func(c *config.Config) bool {
				return len(c.Server.CORSOrigins) == 2 && c.Server.CORSOrigins[1] == "http://b.test"
			},
		},
		{
			name:  "keys are case insensitive",
			key:   "LOG.LEVEL",
			value: "debug",
			check: func(c *config.Config) bool { return c.Log.Level == "debug" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if err := setConfigValue(cfg, tt.key, tt.value); err != nil {
				t.Fatalf("setConfigValue(%q, %q) error = %v", tt.key, tt.value, err)
			}
			if !tt.check(cfg) {
				t.Errorf("setConfigValue(%q, %q) did not apply", tt.key, tt.value)
			}
		})
	}
}

func TestSetConfigValue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "nope.key", "x"},
		{"bad int", "server.port", "eighty"},
		{"bad duration", "llm.request_timeout", "soon"},
		{"bad bool", "metrics.enabled", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := setConfigValue(config.Default(), tt.key, tt.value); err == nil {
				t.Errorf("setConfigValue(%q, %q) expected error", tt.key, tt.value)
			}
		})
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-ant-REDACTED"

	tests := []struct {
		key  string
		want string
	}{
		{"server.port", "8000"},
		{"cache.ttl", "1h0m0s"},
		{"llm.base_url", "(not set)"},
		{"llm.api_key", "sk-ant-...mnop"},
		{"metrics.enabled", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := getConfigValue(cfg, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	if _, err := getConfigValue(cfg, "missing"); err == nil {
		t.Error("getConfigValue(missing) expected error")
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := parseMetadata([]string{"source=cli", "ticket=ABC-1=x"})
	if err != nil {
		t.Fatalf("parseMetadata error = %v", err)
	}
	if meta["source"] != "cli" || meta["ticket"] != "ABC-1=x" {
		t.Errorf("parseMetadata = %v", meta)
	}

	if meta, err := parseMetadata(nil); err != nil || meta != nil {
		t.Errorf("parseMetadata(nil) = %v, %v; want nil, nil", meta, err)
	}
	if _, err := parseMetadata([]string{"novalue"}); err == nil {
		t.Error("parseMetadata(novalue) expected error")
	}
}

func TestSplitAddr(t *testing.T) {
	host, port, err := splitAddr("127.0.0.1:9000")
	if err != nil || host != "127.0.0.1" || port != 9000 {
		t.Errorf("splitAddr = %q, %d, %v", host, port, err)
	}
	if _, _, err := splitAddr("localhost"); err == nil {
		t.Error("splitAddr(localhost) expected error")
	}
	if _, _, err := splitAddr("localhost:http"); err == nil {
		t.Error("splitAddr(localhost:http) expected error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncate = %q, want abcd…", got)
	}
}
