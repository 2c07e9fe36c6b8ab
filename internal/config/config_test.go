package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const validYAML = `
discord:
  token: bot-token
  guild_id: "100000000000000001"
tickets:
  support_role_id: "100000000000000002"
  log_channel_id: "100000000000000003"
  faq_channel_id: "100000000000000004"
  session_ttl: 30m
api:
  port: 9090
  api_key: dashboard-key
telemetry:
  enabled: true
`

const validJSON = `{
  "discord": {"token": "bot-token", "guild_id": "1"},
  "tickets": {"support_role_id": "2", "log_channel_id": "3", "session_ttl": "5m"},
  "api": {"port": 0}
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Discord.Token != "bot-token" {
		t.Errorf("discord.token = %q", cfg.Discord.Token)
	}
	if cfg.Tickets.FAQChannelID != "100000000000000004" {
		t.Errorf("faq_channel_id = %q", cfg.Tickets.FAQChannelID)
	}
	if cfg.Tickets.SessionTTL != 30*time.Minute {
		t.Errorf("session_ttl = %v", cfg.Tickets.SessionTTL)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api.port = %d", cfg.API.Port)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("telemetry.enabled = false")
	}
	// Untouched keys keep their defaults.
	if cfg.API.Host != DefaultAPIHost {
		t.Errorf("api.host = %q", cfg.API.Host)
	}
	if cfg.Tickets.ConnectLink != DefaultConnectLink {
		t.Errorf("connect_link = %q", cfg.Tickets.ConnectLink)
	}
	if cfg.Tickets.SweepSchedule != DefaultSweepSchedule {
		t.Errorf("sweep_schedule = %q", cfg.Tickets.SweepSchedule)
	}
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.json", validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tickets.SessionTTL != 5*time.Minute {
		t.Errorf("session_ttl = %v", cfg.Tickets.SessionTTL)
	}
	if cfg.API.Port != 0 {
		t.Errorf("explicit port 0 should disable the API, got %d", cfg.API.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "discord: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_ReportsEveryMissingKey(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(ce.Problems) != 4 {
		t.Errorf("expected 4 problems, got %v", ce.Problems)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "config validation failed:\n  - ") {
		t.Errorf("unexpected message format: %q", msg)
	}
	for _, key := range []string{"DISCORD_TOKEN", "GUILD_ID", "SUPPORT_ROLE_ID", "LOG_CHANNEL_ID"} {
		if !strings.Contains(msg, key) {
			t.Errorf("expected %s in %q", key, msg)
		}
	}

	want := []string{"DISCORD_TOKEN", "GUILD_ID", "SUPPORT_ROLE_ID", "LOG_CHANNEL_ID"}
	if got := cfg.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v", got)
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.Discord = DiscordConfig{Token: "t", GuildID: "1"}
	cfg.Tickets.SupportRoleID = "2"
	cfg.Tickets.LogChannelID = "3"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestValidate_BadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"non-numeric id", func(c *Config) { c.Tickets.FAQChannelID = "faq" }, "tickets.faq_channel_id"},
		{"zero ttl", func(c *Config) { c.Tickets.SessionTTL = 0 }, "session_ttl"},
		{"bad schedule", func(c *Config) { c.Tickets.SweepSchedule = "sometimes" }, "sweep_schedule"},
		{"port range", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("GUILD_ID", "11")
	t.Setenv("SUPPORT_ROLE_ID", "22")
	t.Setenv("LOG_CHANNEL_ID", "33")
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAQ_CHANNEL_ID", "44")
	t.Setenv("TICKETBOT_API_PORT", "9091")
	t.Setenv("TICKETBOT_SESSION_TTL", "2m")
	t.Setenv("TICKETBOT_OTEL_ENABLED", "true")

	cfg, err := LoadFromEnv("")
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Tickets.FAQChannelID != "44" {
		t.Errorf("faq = %q", cfg.Tickets.FAQChannelID)
	}
	if cfg.API.Port != 9091 {
		t.Errorf("api.port = %d", cfg.API.Port)
	}
	if cfg.Tickets.SessionTTL != 2*time.Minute {
		t.Errorf("session ttl = %v", cfg.Tickets.SessionTTL)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Stdout {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Tickets.ConnectLink != DefaultConnectLink {
		t.Errorf("connect link = %q", cfg.Tickets.ConnectLink)
	}
}

func TestLoadFromEnv_BadDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TICKETBOT_SESSION_TTL", "soon")

	_, err := LoadFromEnv("")
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	for _, k := range []string{"DISCORD_TOKEN", "GUILD_ID", "SUPPORT_ROLE_ID", "LOG_CHANNEL_ID"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("GUILD_ID", "999") // process env wins over the file

	path := writeFile(t, ".env", "DISCORD_TOKEN=file-token\nGUILD_ID=1\nSUPPORT_ROLE_ID=2\nLOG_CHANNEL_ID=3\n")
	t.Cleanup(func() {
		for _, k := range []string{"DISCORD_TOKEN", "SUPPORT_ROLE_ID", "LOG_CHANNEL_ID"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Discord.Token != "file-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != "999" {
		t.Errorf("guild = %q, want process env to win", cfg.Discord.GuildID)
	}
}

func TestLoadFromEnv_MissingDotEnvIsFine(t *testing.T) {
	setRequiredEnv(t)
	if _, err := LoadFromEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("expected missing .env to be ignored, got %v", err)
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.API.Key = "secret"
	r := cfg.Redacted()
	if r.Discord.Token != "***" || r.API.Key != "***" {
		t.Errorf("secrets not masked: %+v", r)
	}
	if cfg.Discord.Token != "t" {
		t.Error("Redacted mutated the original")
	}
}
