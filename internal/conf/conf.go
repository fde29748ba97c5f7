package conf

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration, loaded from environment
// variables (a .env file is read by main before this runs).
type Config struct {
	// Identity
	BotName string `envconfig:"BOT_NAME" default:"Z-Bot"`
	Prefix  string `envconfig:"COMMAND_PREFIX" default:"."`

	// Privilege lists. Entries may be bare phone numbers or full JIDs.
	Owners          []string `envconfig:"OWNER_NUMBERS" required:"true"`
	SpecialContacts []string `envconfig:"SPECIAL_CONTACTS"`

	// Storage
	StateDir    string `envconfig:"STATE_DIR" default:"./database"`
	SessionDB   string `envconfig:"SESSION_DB_PATH" default:"./auth_info/session.db"`
	DownloadDir string `envconfig:"DOWNLOAD_DIR" default:"./downloads"`

	// Optional phone number for code-based pairing instead of QR only.
	PairPhone string `envconfig:"PAIR_PHONE"`

	// All time-window logic (night mode, promotion window, broadcast
	// schedules) runs in this zone.
	Timezone string `envconfig:"BOT_TIMEZONE" default:"Africa/Nairobi"`

	// AI
	OpenAIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Media download service
	MediaAPIBase string `envconfig:"MEDIA_API_BASE"`

	// Pacing and retry tuning
	BroadcastDelaySeconds int `envconfig:"BROADCAST_DELAY_SECONDS" default:"10"`
	ReconnectDelaySeconds int `envconfig:"RECONNECT_DELAY_SECONDS" default:"5"`
	SendRatePerMinute     int `envconfig:"SEND_RATE_PER_MINUTE" default:"20"`

	Debug bool `envconfig:"DEBUG"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Owners) == 0 {
		return &ConfigError{Field: "OWNER_NUMBERS", Message: "required"}
	}
	if len(c.Prefix) != 1 {
		return &ConfigError{Field: "COMMAND_PREFIX", Message: "must be a single character"}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ConfigError{Field: "BOT_TIMEZONE", Message: err.Error()}
	}
	return nil
}

// Location returns the configured timezone. Validate is expected to have
// run first; an unparseable zone falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OwnerJIDs returns the owner list as canonical chat addresses.
func (c *Config) OwnerJIDs() []string {
	return formatAll(c.Owners)
}

// SpecialJIDs returns the statically configured special list as canonical
// chat addresses.
func (c *Config) SpecialJIDs() []string {
	return formatAll(c.SpecialContacts)
}

// BroadcastDelay returns the inter-message broadcast pacing delay.
func (c *Config) BroadcastDelay() time.Duration {
	return time.Duration(c.BroadcastDelaySeconds) * time.Second
}

// ReconnectDelay returns the fixed reconnect backoff.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

func formatAll(ids []string) []string {
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !strings.Contains(id, "@") {
			id += "@s.whatsapp.net"
		}
		out = append(out, id)
	}
	return out
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
