package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for optional settings.
const (
	DefaultSessionTTL    = 15 * time.Minute
	DefaultSweepSchedule = "@every 1m"
	DefaultConnectLink   = "fivem://connect/YOUR-IP:PORT"
	DefaultAPIHost       = "127.0.0.1"
	DefaultAPIPort       = 8080
)

// Config is the top-level ticketbot configuration. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord" json:"discord"`
	Tickets   TicketsConfig   `yaml:"tickets" json:"tickets"`
	API       APIConfig       `yaml:"api" json:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// DiscordConfig holds the bot credentials and the one guild it serves.
type DiscordConfig struct {
	Token   string `yaml:"token" json:"token"`
	GuildID string `yaml:"guild_id" json:"guild_id"`
}

// TicketsConfig holds the ticket workflow settings.
type TicketsConfig struct {
	SupportRoleID string        `yaml:"support_role_id" json:"support_role_id"`
	LogChannelID  string        `yaml:"log_channel_id" json:"log_channel_id"`
	CategoryID    string        `yaml:"category_id,omitempty" json:"category_id,omitempty"`
	FAQChannelID  string        `yaml:"faq_channel_id,omitempty" json:"faq_channel_id,omitempty"`
	ConnectLink   string        `yaml:"connect_link,omitempty" json:"connect_link,omitempty"`
	SessionTTL    time.Duration `yaml:"session_ttl,omitempty" json:"session_ttl,omitempty"`
	SweepSchedule string        `yaml:"sweep_schedule,omitempty" json:"sweep_schedule,omitempty"`
}

// APIConfig holds admin API server settings. Port 0 disables the server.
type APIConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	Key  string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// TelemetryConfig toggles tracing.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Stdout  bool `yaml:"stdout" json:"stdout"`
}

// ConfigurationError reports an unusable configuration: either the source
// could not be read or parsed (Err), or validation found Problems.
type ConfigurationError struct {
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Default returns a config with every optional setting at its default.
func Default() *Config {
	return &Config{
		Tickets: TicketsConfig{
			ConnectLink:   DefaultConnectLink,
			SessionTTL:    DefaultSessionTTL,
			SweepSchedule: DefaultSweepSchedule,
		},
		API: APIConfig{
			Host: DefaultAPIHost,
			Port: DefaultAPIPort,
		},
	}
}

// Load reads configuration from a YAML or JSON file. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("config: read %s: %w", path, err)}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("config: parse %s: %w", path, err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds the config from environment variables, after loading
// envFile (typically ".env") if it exists. Variables already set in the
// environment win over the file.
func LoadFromEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Err: fmt.Errorf("config: load %s: %w", envFile, err)}
		}
	}

	cfg := &Config{
		Discord: DiscordConfig{
			Token:   os.Getenv("DISCORD_TOKEN"),
			GuildID: os.Getenv("GUILD_ID"),
		},
		Tickets: TicketsConfig{
			SupportRoleID: os.Getenv("SUPPORT_ROLE_ID"),
			LogChannelID:  os.Getenv("LOG_CHANNEL_ID"),
			CategoryID:    os.Getenv("TICKETS_CATEGORY_ID"),
			FAQChannelID:  os.Getenv("FAQ_CHANNEL_ID"),
			ConnectLink:   getenv("TICKETBOT_CONNECT_LINK", DefaultConnectLink),
			SweepSchedule: getenv("TICKETBOT_SWEEP_SCHEDULE", DefaultSweepSchedule),
		},
		API: APIConfig{
			Host: getenv("TICKETBOT_API_HOST", DefaultAPIHost),
			Port: getenvInt("TICKETBOT_API_PORT", DefaultAPIPort),
			Key:  os.Getenv("TICKETBOT_API_KEY"),
		},
		Telemetry: TelemetryConfig{
			Enabled: getenvBool("TICKETBOT_OTEL_ENABLED", false),
			Stdout:  getenvBool("TICKETBOT_OTEL_STDOUT", false),
		},
	}

	ttl, err := getenvDuration("TICKETBOT_SESSION_TTL", DefaultSessionTTL)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("config: TICKETBOT_SESSION_TTL: %w", err)}
	}
	cfg.Tickets.SessionTTL = ttl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for required fields. Every problem is reported at once.
func (c *Config) Validate() error {
	var errs []string

	for _, r := range c.required() {
		if r.value == "" {
			errs = append(errs, fmt.Sprintf("%s (%s) is required", r.env, r.key))
		}
	}

	snowflakes := []struct {
		key, value string
	}{
		{"discord.guild_id", c.Discord.GuildID},
		{"tickets.support_role_id", c.Tickets.SupportRoleID},
		{"tickets.log_channel_id", c.Tickets.LogChannelID},
		{"tickets.category_id", c.Tickets.CategoryID},
		{"tickets.faq_channel_id", c.Tickets.FAQChannelID},
	}
	for _, s := range snowflakes {
		if s.value != "" && !isSnowflake(s.value) {
			errs = append(errs, fmt.Sprintf("%s must be a numeric id, got %q", s.key, s.value))
		}
	}

	if c.Tickets.SessionTTL <= 0 {
		errs = append(errs, "tickets.session_ttl must be positive")
	}
	if _, err := cron.ParseStandard(c.Tickets.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("tickets.sweep_schedule %q is invalid: %v", c.Tickets.SweepSchedule, err))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return &ConfigurationError{Problems: errs}
	}
	return nil
}

type requiredField struct {
	env, key, value string
}

func (c *Config) required() []requiredField {
	return []requiredField{
		{"DISCORD_TOKEN", "discord.token", c.Discord.Token},
		{"GUILD_ID", "discord.guild_id", c.Discord.GuildID},
		{"SUPPORT_ROLE_ID", "tickets.support_role_id", c.Tickets.SupportRoleID},
		{"LOG_CHANNEL_ID", "tickets.log_channel_id", c.Tickets.LogChannelID},
	}
}

// Missing returns the environment keys of required settings that are unset.
func (c *Config) Missing() []string {
	var keys []string
	for _, r := range c.required() {
		if r.value == "" {
			keys = append(keys, r.env)
		}
	}
	return keys
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Discord.Token != "" {
		out.Discord.Token = "***"
	}
	if out.API.Key != "" {
		out.API.Key = "***"
	}
	return &out
}

func isSnowflake(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
